package types

import "time"

// Suspicion flag kinds.
const (
	FlagExcessiveFailures  = "excessive_failures"
	FlagExcessiveSuccesses = "excessive_successes"
)

// SuspicionFlag is a derived signal over the audit log. Flags are
// recomputed on every query and never persisted.
type SuspicionFlag struct {
	ClientKey   string    `json:"ip_address"`
	Kind        string    `json:"kind"`
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}
