// Package models contains response structs shared by the binaries.
package models

// ProbeResponse is returned by the /healthz and /readyz probes.
type ProbeResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	SchemaVersion uint   `json:"schema_version,omitempty"`
}
