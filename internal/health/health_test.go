package health

import (
	"testing"
	"time"

	"github.com/banshee-data/telemetry-bridge/internal/timeutil"
)

func TestIsStaleRequiresPriorMessage(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	h := New(clock)
	clock.Advance(time.Hour)
	if h.IsStale(time.Minute) {
		t.Error("IsStale should be false when no message has ever been seen")
	}
}

func TestIsStaleAfterTimeout(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	h := New(clock)
	h.RecordMessage()
	clock.Advance(31 * time.Second)
	if !h.IsStale(30 * time.Second) {
		t.Error("IsStale should be true after exceeding the watchdog timeout")
	}
}

func TestResetForReconnectIncrementsAttempts(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	h := New(clock)
	h.ResetForReconnect()
	h.ResetForReconnect()
	if got := h.ReconnectAttempts(); got != 2 {
		t.Errorf("ReconnectAttempts() = %d, want 2", got)
	}
}

func TestMarkConnectedResetsAttemptsAndCountsTotal(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	h := New(clock)
	h.ResetForReconnect()
	h.ResetForReconnect()
	h.MarkConnected()

	if got := h.ReconnectAttempts(); got != 0 {
		t.Errorf("ReconnectAttempts() after connect = %d, want 0", got)
	}
	if got := h.Snapshot().TotalReconnects; got != 1 {
		t.Errorf("TotalReconnects = %d, want 1", got)
	}
}

func TestRecordErrorIncrementsCount(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	h := New(clock)
	h.RecordError()
	h.RecordError()
	if got := h.Snapshot().ErrorCount; got != 2 {
		t.Errorf("ErrorCount = %d, want 2", got)
	}
}
