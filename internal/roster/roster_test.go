package roster

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const studentCSV = "Name,Student_Id,Email_id,Course,Code\n" +
	"Jane Doe,STU001,jane@example.com,CS,WS1\n" +
	"John  Smith,STU002,john@example.com,EE,WS1\n"

const managementCSV = "Name,Mgmt_Id,Email,Position\n" +
	"Ada Lovelace,MGMT01,ada@example.com,President\n"

func newTestRoster(t *testing.T) *Roster {
	t.Helper()
	return New(
		writeCSV(t, "students.csv", studentCSV),
		writeCSV(t, "management.csv", managementCSV),
	)
}

func TestRoster_FindStudent(t *testing.T) {
	r := newTestRoster(t)

	student, err := r.FindStudent("Jane Doe", "STU001")
	if err != nil {
		t.Fatal(err)
	}
	if student.Email != "jane@example.com" || student.Course != "CS" {
		t.Errorf("unexpected student: %+v", student)
	}
}

func TestRoster_NameMatchIsCaseInsensitive(t *testing.T) {
	r := newTestRoster(t)

	if _, err := r.FindStudent("jane doe", "STU001"); err != nil {
		t.Errorf("lowercase name should match: %v", err)
	}
	if _, err := r.FindStudent("  JANE   DOE  ", "STU001"); err != nil {
		t.Errorf("whitespace and case variations should match: %v", err)
	}
	// Roster rows with doubled internal whitespace also normalize.
	if _, err := r.FindStudent("John Smith", "STU002"); err != nil {
		t.Errorf("row-side whitespace should be collapsed: %v", err)
	}
}

func TestRoster_IDMatchIsExactAfterTrim(t *testing.T) {
	r := newTestRoster(t)

	if _, err := r.FindStudent("Jane Doe", " STU001 "); err != nil {
		t.Errorf("surrounding whitespace on the id should be trimmed: %v", err)
	}
	if _, err := r.FindStudent("Jane Doe", "stu001"); !errors.Is(err, ErrNotFound) {
		t.Error("id comparison should be case-sensitive")
	}
}

func TestRoster_NotFound(t *testing.T) {
	r := newTestRoster(t)

	_, err := r.FindStudent("Jane Doe", "STU999")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	_, err = r.FindStudent("Nobody", "STU001")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestRoster_MissingFile(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "absent.csv"), "also-absent.csv")

	_, err := r.FindStudent("Jane Doe", "STU001")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want a wrapped os.ErrNotExist", err)
	}
}

func TestRoster_HeaderVariantsAndBOM(t *testing.T) {
	csv := "\uFEFFFull Name,Student ID,Email Address,Program\n" +
		"Jane Doe,STU001,jane@example.com,CS\n"
	r := New(writeCSV(t, "students.csv", csv), "unused.csv")

	student, err := r.FindStudent("Jane Doe", "STU001")
	if err != nil {
		t.Fatal(err)
	}
	if student.Course != "CS" || student.Email != "jane@example.com" {
		t.Errorf("header variants should map to canonical fields: %+v", student)
	}
}

func TestRoster_FindManagement(t *testing.T) {
	r := newTestRoster(t)

	person, err := r.FindManagement("ada lovelace", "MGMT01")
	if err != nil {
		t.Fatal(err)
	}
	if person.Position != "President" {
		t.Errorf("unexpected person: %+v", person)
	}
}

func TestRoster_Students(t *testing.T) {
	r := newTestRoster(t)

	students, err := r.Students()
	if err != nil {
		t.Fatal(err)
	}
	if len(students) != 2 {
		t.Errorf("got %d students, want 2", len(students))
	}
}
