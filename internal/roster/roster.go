// Package roster reads the exported spreadsheet data that is this
// system's record store. There is no database: the CSV files are the
// source of truth and are re-read (through a short-lived cache) so edits
// show up without a restart.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/types"
)

// ErrNotFound is returned when no row matches an identity claim. Callers
// must not tell the client which of name/id was wrong.
var ErrNotFound = errors.New("roster: record not found")

const cacheTTL = 30 * time.Second

// Roster is a CSV-backed identity store for the two populations.
type Roster struct {
	studentPath    string
	managementPath string
	rows           *cache.Cache
}

// New creates a roster over the given CSV exports.
func New(studentPath, managementPath string) *Roster {
	return &Roster{
		studentPath:    studentPath,
		managementPath: managementPath,
		rows:           cache.New(cacheTTL, 5*time.Minute),
	}
}

// Students returns all student rows.
func (r *Roster) Students() ([]types.Student, error) {
	rows, err := r.load(r.studentPath)
	if err != nil {
		return nil, err
	}
	students := make([]types.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, types.Student{
			Name:      firstOf(row, "name", "full_name", "student_name"),
			StudentID: firstOf(row, "student_id", "studentid", "id"),
			Email:     firstOf(row, "email_id", "email", "email_address"),
			Course:    firstOf(row, "course", "program", "branch"),
			Code:      firstOf(row, "code", "workshop", "event", "batch"),
		})
	}
	return students, nil
}

// Management returns all management rows.
func (r *Roster) Management() ([]types.Management, error) {
	rows, err := r.load(r.managementPath)
	if err != nil {
		return nil, err
	}
	people := make([]types.Management, 0, len(rows))
	for _, row := range rows {
		people = append(people, types.Management{
			Name:     firstOf(row, "name", "full_name"),
			MgmtID:   firstOf(row, "student_id", "studentid", "mgmt_id", "id"),
			Email:    firstOf(row, "email_id", "email", "email_address"),
			Course:   firstOf(row, "course", "program", "branch"),
			Position: firstOf(row, "position", "title", "role"),
		})
	}
	return people, nil
}

// FindStudent matches name case-insensitively (internal whitespace
// collapsed) and id exactly after trimming.
func (r *Roster) FindStudent(name, id string) (types.Student, error) {
	students, err := r.Students()
	if err != nil {
		return types.Student{}, err
	}
	wantName, wantID := normalizeName(name), strings.TrimSpace(id)
	for _, s := range students {
		if normalizeName(s.Name) == wantName && strings.TrimSpace(s.StudentID) == wantID {
			return s, nil
		}
	}
	return types.Student{}, ErrNotFound
}

// FindManagement is FindStudent for the management roster.
func (r *Roster) FindManagement(name, id string) (types.Management, error) {
	people, err := r.Management()
	if err != nil {
		return types.Management{}, err
	}
	wantName, wantID := normalizeName(name), strings.TrimSpace(id)
	for _, p := range people {
		if normalizeName(p.Name) == wantName && strings.TrimSpace(p.MgmtID) == wantID {
			return p, nil
		}
	}
	return types.Management{}, ErrNotFound
}

// load parses a CSV into rows keyed by normalized header, caching the
// result briefly so lookups do not hit the disk on every request.
func (r *Roster) load(path string) ([]map[string]string, error) {
	if cached, found := r.rows.Get(path); found {
		return cached.([]map[string]string), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("roster: open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("roster: parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	// Excel/Forms exports commonly carry a UTF-8 BOM on the first header.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = normalizeKey(h)
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(keys))
		for i, key := range keys {
			if i < len(record) {
				row[key] = record[i]
			}
		}
		rows = append(rows, row)
	}

	r.rows.Set(path, rows, cache.DefaultExpiration)
	return rows, nil
}

func firstOf(row map[string]string, keys ...string) string {
	for _, key := range keys {
		if value, ok := row[key]; ok && value != "" {
			return value
		}
	}
	return ""
}

// normalizeKey maps header variants like "Student ID " and "Student_Id"
// to the same canonical key.
func normalizeKey(key string) string {
	var b strings.Builder
	for _, ch := range strings.ToLower(strings.TrimSpace(key)) {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9', ch == '_':
			b.WriteRune(ch)
		case ch == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}

func normalizeName(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}
