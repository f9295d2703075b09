// Package admission runs the per-request gate in front of the verify and
// render path: rate limit first, then token. Every decision, admit or
// reject, produces exactly one audit record.
package admission

import (
	"log"
	"net/http"
	"time"

	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/audit"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/security"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/server/ratelimit"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/types"
)

// Default limiter parameters for the certificate endpoints.
const (
	DefaultMaxRequests = 5
	DefaultWindow      = 60 * time.Second
)

// Request is one identity claim arriving at a certificate endpoint.
type Request struct {
	ClientKey string
	Endpoint  string
	Name      string
	ClaimedID string
	Token     string
}

// Rejection is a short-circuit before the verify/render path. Message is
// deliberately non-specific so clients cannot distinguish consumed from
// unknown tokens, or a wrong name from a wrong id.
type Rejection struct {
	Status  int
	Reason  string
	Message string
}

// Pipeline composes the limiter, the token issuer and the audit log.
type Pipeline struct {
	Tokens  *security.TokenIssuer
	Limiter *ratelimit.Limiter
	Audit   *audit.Log

	MaxRequests int
	Window      time.Duration

	// Alert receives audit write failures. Logging the logger's failure
	// must never fail the request.
	Alert func(err error)
}

// NewPipeline wires the three components with default limits.
func NewPipeline(tokens *security.TokenIssuer, limiter *ratelimit.Limiter, auditLog *audit.Log) *Pipeline {
	return &Pipeline{
		Tokens:      tokens,
		Limiter:     limiter,
		Audit:       auditLog,
		MaxRequests: DefaultMaxRequests,
		Window:      DefaultWindow,
		Alert:       func(err error) { log.Printf("ALERT: audit write failed: %v", err) },
	}
}

// Admit runs the rate check then the token check. A nil return means both
// passed and the caller may delegate to the verify/render path; otherwise
// the rejection has already been logged. The rate check is cheapest and
// runs first; a rate-limited request never consumes its token.
func (p *Pipeline) Admit(req Request) *Rejection {
	if !p.Limiter.Allow(req.ClientKey+":"+req.Endpoint, p.MaxRequests, p.Window) {
		p.record(req, types.StatusFailed, types.ReasonRateLimited)
		return &Rejection{
			Status:  http.StatusTooManyRequests,
			Reason:  types.ReasonRateLimited,
			Message: "Too many requests. Please wait before trying again.",
		}
	}

	if !p.Tokens.ValidateAndConsume(req.Token) {
		p.record(req, types.StatusFailed, types.ReasonInvalidToken)
		return &Rejection{
			Status:  http.StatusForbidden,
			Reason:  types.ReasonInvalidToken,
			Message: "Invalid or expired security token. Please reload the page and try again.",
		}
	}

	return nil
}

// Finish records the outcome of the delegated verify/render path. It is
// called unconditionally after delegation, even when the client has gone
// away: the audit trail captures attempts, not just completions.
func (p *Pipeline) Finish(req Request, status, reason string) {
	p.record(req, status, reason)
}

func (p *Pipeline) record(req Request, status, reason string) {
	err := p.Audit.Append(types.AuditRecord{
		ClientKey: req.ClientKey,
		Endpoint:  req.Endpoint,
		Name:      req.Name,
		ClaimedID: req.ClaimedID,
		Status:    status,
		Reason:    reason,
	})
	if err != nil && p.Alert != nil {
		p.Alert(err)
	}
}
