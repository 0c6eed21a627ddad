package spill

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "retry.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEnqueueAndDue(t *testing.T) {
	s := newTestStore(t)
	now := time.Unix(1000, 0)
	records := []*telemetry.Sample{{SessionID: "s1", MessageID: 1}}

	if err := s.Enqueue(records, RetryBaseBackoff, now); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	due, err := s.Due(now)
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("Due at enqueue time = %d batches, want 0 (backoff not yet elapsed)", len(due))
	}

	due, err = s.Due(now.Add(RetryBaseBackoff + time.Second))
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("Due after backoff = %d batches, want 1", len(due))
	}
	if due[0].Records[0].SessionID != "s1" {
		t.Errorf("round-tripped record SessionID = %q, want s1", due[0].Records[0].SessionID)
	}
}

func TestRescheduleDoublesBackoffUpToCap(t *testing.T) {
	s := newTestStore(t)
	now := time.Unix(2000, 0)
	s.Enqueue([]*telemetry.Sample{{SessionID: "s1"}}, RetryBaseBackoff, now)

	due, _ := s.Due(now.Add(RetryBaseBackoff + time.Second))
	backoff := due[0].Backoff
	for i := 0; i < 10; i++ {
		if err := s.Reschedule(due[0].ID, backoff, now); err != nil {
			t.Fatalf("Reschedule: %v", err)
		}
		backoff *= 2
		if backoff > RetryBackoffMax {
			backoff = RetryBackoffMax
		}
	}
	if backoff != RetryBackoffMax {
		t.Errorf("backoff = %v, want capped at %v", backoff, RetryBackoffMax)
	}

	due, _ = s.Due(now.Add(RetryBackoffMax + time.Second))
	if len(due) != 1 {
		t.Fatalf("Due after rescheduling = %d batches, want 1", len(due))
	}
	if due[0].Backoff != RetryBackoffMax {
		t.Errorf("stored backoff = %v, want capped at %v", due[0].Backoff, RetryBackoffMax)
	}
}

func TestRemoveDeletesBatch(t *testing.T) {
	s := newTestStore(t)
	now := time.Unix(3000, 0)
	s.Enqueue([]*telemetry.Sample{{SessionID: "s1"}}, RetryBaseBackoff, now)

	count, _ := s.Count()
	if count != 1 {
		t.Fatalf("Count before remove = %d, want 1", count)
	}

	due, _ := s.Due(now.Add(RetryBaseBackoff + time.Second))
	if err := s.Remove(due[0].ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	count, _ = s.Count()
	if count != 0 {
		t.Errorf("Count after remove = %d, want 0", count)
	}
}
