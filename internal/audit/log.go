// Package audit keeps the append-only record of every admission decision.
// Records land in one JSONL file per UTC calendar day and are never
// mutated or deleted by the running system.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/types"
)

const fileFormat = "certificate_requests_20060102.jsonl"

// Filter narrows a Query. Zero values match everything.
type Filter struct {
	From      time.Time
	To        time.Time
	ClientKey string
	Status    string
}

// Log is a day-partitioned append-only store of audit records.
type Log struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

// NewLog creates the log directory if needed and returns a Log writing
// under it.
func NewLog(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audit: create log dir: %w", err)
	}
	return &Log{dir: dir, now: time.Now}, nil
}

// Append writes one record to the file for its calendar day (UTC). The
// record's ID and timestamp are filled in if unset. A write error is
// returned for the caller to alert on; the record decision itself has
// already been made and is unaffected.
func (l *Log) Append(rec types.AuditRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.now()
	}
	rec.Timestamp = rec.Timestamp.UTC()

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("audit: marshal record: %w", err)
	}

	path := filepath.Join(l.dir, rec.Timestamp.Format(fileFormat))

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("audit: open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: append to %s: %w", path, err)
	}
	return nil
}

// Query returns records matching the filter in ascending timestamp order.
// Unreadable lines are skipped rather than failing the whole scan.
func (l *Log) Query(filter Filter) ([]types.AuditRecord, error) {
	from, to := filter.From.UTC(), filter.To.UTC()
	if filter.To.IsZero() {
		to = l.now().UTC()
	}
	if filter.From.IsZero() {
		from = to.AddDate(0, 0, -daysBack(l.dir, to))
	}

	var out []types.AuditRecord
	for day := truncateDay(from); !day.After(to); day = day.AddDate(0, 0, 1) {
		recs, err := l.readDay(day)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if rec.Timestamp.Before(from) || rec.Timestamp.After(to) {
				continue
			}
			if filter.ClientKey != "" && rec.ClientKey != filter.ClientKey {
				continue
			}
			if filter.Status != "" && rec.Status != filter.Status {
				continue
			}
			out = append(out, rec)
		}
	}

	// Lines within a file are already in arrival order; a stable sort
	// keeps that order for equal timestamps.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (l *Log) readDay(day time.Time) ([]types.AuditRecord, error) {
	path := filepath.Join(l.dir, day.Format(fileFormat))
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	defer f.Close()

	var recs []types.AuditRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec types.AuditRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: read %s: %w", path, err)
	}
	return recs, nil
}

// daysBack bounds an open-ended query to the partitions actually present.
func daysBack(dir string, until time.Time) int {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		return 0
	}
	oldest := time.Time{}
	for _, e := range entries {
		day, err := time.Parse(fileFormat, e.Name())
		if err != nil {
			continue
		}
		if oldest.IsZero() || day.Before(oldest) {
			oldest = day
		}
	}
	if oldest.IsZero() {
		return 0
	}
	back := int(until.Sub(oldest).Hours()/24) + 1
	if back < 0 {
		back = 0
	}
	return back
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
