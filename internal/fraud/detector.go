// Package fraud derives suspicion signals from the audit log. Signals are
// advisory: they surface clients for human review and never block a
// request on their own.
package fraud

import (
	"sort"
	"time"

	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/audit"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/types"
)

// Default analysis parameters.
const (
	DefaultWindow           = 10 * time.Minute
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 3
)

// Detector recomputes flags on demand from audit records; nothing is
// stored, so identical log contents always yield identical output.
type Detector struct {
	log *audit.Log
	now func() time.Time

	// A client is flagged when its count in the window exceeds (is
	// strictly greater than) the matching threshold.
	FailureThreshold int
	SuccessThreshold int
}

// NewDetector builds a detector over the given log with the default
// thresholds.
func NewDetector(log *audit.Log) *Detector {
	return &Detector{
		log:              log,
		now:              time.Now,
		FailureThreshold: DefaultFailureThreshold,
		SuccessThreshold: DefaultSuccessThreshold,
	}
}

// FailuresInWindow counts failed decisions for the client in the trailing
// window.
func (d *Detector) FailuresInWindow(clientKey string, window time.Duration) (int, error) {
	return d.count(clientKey, types.StatusFailed, window)
}

// SuccessesInWindow counts successful decisions for the client in the
// trailing window.
func (d *Detector) SuccessesInWindow(clientKey string, window time.Duration) (int, error) {
	return d.count(clientKey, types.StatusSuccess, window)
}

func (d *Detector) count(clientKey, status string, window time.Duration) (int, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	end := d.now()
	recs, err := d.log.Query(audit.Filter{
		From:      end.Add(-window),
		To:        end,
		ClientKey: clientKey,
		Status:    status,
	})
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// ListFlagged scans the trailing window, groups records by client key and
// returns every client exceeding either threshold. Output is sorted by
// client key, failure flags before success flags for the same key.
func (d *Detector) ListFlagged(window time.Duration) ([]types.SuspicionFlag, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	end := d.now()
	start := end.Add(-window)

	recs, err := d.log.Query(audit.Filter{From: start, To: end})
	if err != nil {
		return nil, err
	}

	type tally struct{ failed, succeeded int }
	perClient := make(map[string]*tally)
	for _, rec := range recs {
		t := perClient[rec.ClientKey]
		if t == nil {
			t = &tally{}
			perClient[rec.ClientKey] = t
		}
		switch rec.Status {
		case types.StatusFailed:
			t.failed++
		case types.StatusSuccess:
			t.succeeded++
		}
	}

	keys := make([]string, 0, len(perClient))
	for key := range perClient {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var flags []types.SuspicionFlag
	for _, key := range keys {
		t := perClient[key]
		if t.failed > d.FailureThreshold {
			flags = append(flags, types.SuspicionFlag{
				ClientKey:   key,
				Kind:        types.FlagExcessiveFailures,
				Count:       t.failed,
				WindowStart: start,
				WindowEnd:   end,
			})
		}
		if t.succeeded > d.SuccessThreshold {
			flags = append(flags, types.SuspicionFlag{
				ClientKey:   key,
				Kind:        types.FlagExcessiveSuccesses,
				Count:       t.succeeded,
				WindowStart: start,
				WindowEnd:   end,
			})
		}
	}
	return flags, nil
}
