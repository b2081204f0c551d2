package crowd

import (
	"sort"

	"github.com/OCAVIT/podsos-crowdsource-server/internal/consensus"
	"github.com/OCAVIT/podsos-crowdsource-server/internal/strategy"
)

// Ranking tunes TopStrategies.
type Ranking struct {
	// Limit caps the number of strategies returned.
	Limit int
	// MinLocal is the local result size below which fallback kicks in.
	MinLocal int
	// FallbackRate is the minimum success rate for borrowed strategies.
	FallbackRate float64
}

// DefaultRanking returns the production defaults.
func DefaultRanking() Ranking {
	return Ranking{Limit: 5, MinLocal: 3, FallbackRate: 0.70}
}

// SortByRank orders strategies by success rate descending, then by most
// recent confirmation (never-confirmed last), then by id.
func SortByRank(list []strategy.Strategy) {
	sort.SliceStable(list, func(i, j int) bool {
		return ranksBefore(list[i], list[j])
	})
}

func ranksBefore(a, b strategy.Strategy) bool {
	ra, rb := a.SuccessRate(), b.SuccessRate()
	if ra != rb {
		return ra > rb
	}
	switch {
	case a.LastConfirmed != nil && b.LastConfirmed == nil:
		return true
	case a.LastConfirmed == nil && b.LastConfirmed != nil:
		return false
	case a.LastConfirmed != nil && !a.LastConfirmed.Equal(*b.LastConfirmed):
		return a.LastConfirmed.After(*b.LastConfirmed)
	}
	return a.ID < b.ID
}

// needsFallback reports whether a local result is too sparse to stand alone.
func (r Ranking) needsFallback(local int) bool {
	return local < r.MinLocal && local < r.Limit
}

// merge ranks local, caps it at Limit and, when the local result is too
// sparse, fills the remainder with ranked fallback strategies borrowed from
// other providers.  Strategies the store should never have returned
// (demoted local rows, unproven fallback rows) are dropped here as well.
func (r Ranking) merge(providerID string, local, fallback []strategy.Strategy) (merged []strategy.Strategy, borrowed int) {
	out := make([]strategy.Strategy, 0, r.Limit)
	seen := make(map[int64]struct{}, r.Limit)

	SortByRank(local)
	for _, s := range local {
		if len(out) >= r.Limit {
			break
		}
		if !s.Status.Recommendable() {
			continue
		}
		out = append(out, s)
		seen[s.ID] = struct{}{}
	}
	if !r.needsFallback(len(out)) {
		return out, 0
	}

	SortByRank(fallback)
	for _, s := range fallback {
		if len(out) >= r.Limit {
			break
		}
		if _, dup := seen[s.ID]; dup || !r.fallbackEligible(providerID, s) {
			continue
		}
		out = append(out, s)
		seen[s.ID] = struct{}{}
		borrowed++
	}
	return out, borrowed
}

func (r Ranking) fallbackEligible(providerID string, s strategy.Strategy) bool {
	return s.ProviderID != providerID &&
		s.Status == consensus.StatusVerified &&
		s.SuccessRate() >= r.FallbackRate
}
