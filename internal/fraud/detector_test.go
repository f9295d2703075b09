package fraud

import (
	"reflect"
	"testing"
	"time"

	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/audit"
	"github.com/space-cow-boy/certificate-distribution-platform-secure/internal/types"
)

var epoch = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestDetector(t *testing.T) (*Detector, *audit.Log) {
	t.Helper()
	log, err := audit.NewLog(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	d := NewDetector(log)
	d.now = func() time.Time { return epoch }
	return d, log
}

func appendN(t *testing.T, log *audit.Log, client, status string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := log.Append(types.AuditRecord{
			Timestamp: epoch.Add(-time.Duration(i+1) * time.Second),
			ClientKey: client,
			Endpoint:  "get_certificate",
			Status:    status,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestDetector_FailuresInWindow(t *testing.T) {
	d, log := newTestDetector(t)
	appendN(t, log, "x", types.StatusFailed, 4)
	appendN(t, log, "x", types.StatusSuccess, 2)

	count, err := d.FailuresInWindow("x", 10*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if count != 4 {
		t.Errorf("FailuresInWindow = %d, want 4", count)
	}
}

func TestDetector_OldRecordsOutsideWindow(t *testing.T) {
	d, log := newTestDetector(t)

	err := log.Append(types.AuditRecord{
		Timestamp: epoch.Add(-time.Hour),
		ClientKey: "x",
		Status:    types.StatusFailed,
	})
	if err != nil {
		t.Fatal(err)
	}

	count, err := d.FailuresInWindow("x", 10*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("FailuresInWindow = %d, want 0 for records outside the window", count)
	}
}

func TestDetector_ListFlaggedThresholds(t *testing.T) {
	d, log := newTestDetector(t)
	appendN(t, log, "x", types.StatusFailed, 6)
	appendN(t, log, "y", types.StatusFailed, 5)
	appendN(t, log, "z", types.StatusSuccess, 4)

	flags, err := d.ListFlagged(10 * time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(flags) != 2 {
		t.Fatalf("got %d flags, want 2: %+v", len(flags), flags)
	}

	if flags[0].ClientKey != "x" || flags[0].Kind != types.FlagExcessiveFailures || flags[0].Count != 6 {
		t.Errorf("unexpected first flag: %+v", flags[0])
	}
	if flags[1].ClientKey != "z" || flags[1].Kind != types.FlagExcessiveSuccesses || flags[1].Count != 4 {
		t.Errorf("unexpected second flag: %+v", flags[1])
	}
}

func TestDetector_ThresholdIsStrictlyGreater(t *testing.T) {
	d, log := newTestDetector(t)
	appendN(t, log, "x", types.StatusFailed, 5)
	appendN(t, log, "y", types.StatusSuccess, 3)

	flags, err := d.ListFlagged(10 * time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(flags) != 0 {
		t.Errorf("counts at the threshold should not flag, got %+v", flags)
	}
}

func TestDetector_BothKindsForOneClient(t *testing.T) {
	d, log := newTestDetector(t)
	appendN(t, log, "x", types.StatusFailed, 6)
	appendN(t, log, "x", types.StatusSuccess, 4)

	flags, err := d.ListFlagged(10 * time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(flags) != 2 {
		t.Fatalf("got %d flags, want 2", len(flags))
	}
	if flags[0].Kind != types.FlagExcessiveFailures || flags[1].Kind != types.FlagExcessiveSuccesses {
		t.Errorf("failure flag should come before success flag: %+v", flags)
	}
}

func TestDetector_Deterministic(t *testing.T) {
	d, log := newTestDetector(t)
	appendN(t, log, "b", types.StatusFailed, 7)
	appendN(t, log, "a", types.StatusFailed, 6)

	first, err := d.ListFlagged(10 * time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	second, err := d.ListFlagged(10 * time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated invocations differ:\n%+v\n%+v", first, second)
	}
	if first[0].ClientKey != "a" {
		t.Errorf("flags should be sorted by client key, got %+v", first)
	}
}

func TestDetector_ConfigurableThresholds(t *testing.T) {
	d, log := newTestDetector(t)
	d.FailureThreshold = 1
	appendN(t, log, "x", types.StatusFailed, 2)

	flags, err := d.ListFlagged(10 * time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(flags) != 1 {
		t.Errorf("lowered threshold should flag, got %+v", flags)
	}
}
