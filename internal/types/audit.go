package types

import "time"

// Audit statuses. Every admission decision ends in exactly one of these.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Fixed failure reasons recorded in the audit log.
const (
	ReasonRateLimited  = "rate_limited"
	ReasonInvalidToken = "invalid_token"
	ReasonNotFound     = "not_found"
	ReasonRenderError  = "render_error"
)

// AuditRecord is one immutable admission decision. Records are appended to
// a day-partitioned log and never mutated; the JSON shape is part of the
// admin API and must stay backward-compatible.
type AuditRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ClientKey string    `json:"ip_address"`
	Endpoint  string    `json:"endpoint"`
	Name      string    `json:"name"`
	ClaimedID string    `json:"claimed_id"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason"`
}
