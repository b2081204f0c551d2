// Package confighash derives the canonical identity of a strategy
// configuration.  Two configurations that differ only in parameter order,
// casing or surrounding whitespace hash to the same value.
package confighash

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Separator joins normalized parameters before hashing.  Callers must
// reject parameters that contain it.
const Separator = "|"

// Normalize drops blank entries, trims and lower-cases the rest and sorts
// them lexicographically.  The input slice is not modified.
func Normalize(params []string) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Sum returns the hex-encoded SHA-256 of the normalized configuration.
// An all-blank configuration yields the digest of the empty string.
func Sum(params []string) string {
	h := sha256.Sum256([]byte(strings.Join(Normalize(params), Separator)))
	return hex.EncodeToString(h[:])
}
