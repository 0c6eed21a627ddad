package normalizer

import (
	"math"
	"testing"
	"time"

	"github.com/banshee-data/telemetry-bridge/internal/calculator"
	"github.com/banshee-data/telemetry-bridge/internal/detector"
	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
	"github.com/banshee-data/telemetry-bridge/internal/timeutil"
)

func newTestNormalizer() *Normalizer {
	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return New("session-1", "test run", detector.New(detector.DefaultConfig()), calculator.New(calculator.DefaultConfig()), clock)
}

func ptr(v float64) *float64 { return &v }

func TestPowerDerivedWhenOmitted(t *testing.T) {
	n := newTestNormalizer()
	voltage, current := 48.0, 5.0
	in := &telemetry.InputSample{VoltageV: &voltage, CurrentA: &current}

	s := n.Normalize(in)
	if s.PowerW != 240 {
		t.Errorf("PowerW = %v, want 240", s.PowerW)
	}
}

func TestPowerNotOverwrittenWhenProvided(t *testing.T) {
	n := newTestNormalizer()
	voltage, current, power := 48.0, 5.0, 999.0
	in := &telemetry.InputSample{VoltageV: &voltage, CurrentA: &current, PowerW: &power}

	s := n.Normalize(in)
	if s.PowerW != 999 {
		t.Errorf("PowerW = %v, want 999 (explicit value preserved)", s.PowerW)
	}
}

func TestTotalAccelerationDerived(t *testing.T) {
	n := newTestNormalizer()
	ax, ay, az := 3.0, 4.0, 0.0
	in := &telemetry.InputSample{SpeedMS: ptr(1), AccelX: &ax, AccelY: &ay, AccelZ: &az}

	s := n.Normalize(in)
	if math.Abs(s.TotalAcceleration-5) > 1e-9 {
		t.Errorf("TotalAcceleration = %v, want 5", s.TotalAcceleration)
	}
}

func TestThrottleReconciliationBothZeroStaysZero(t *testing.T) {
	n := newTestNormalizer()
	zero := 0.0
	in := &telemetry.InputSample{SpeedMS: ptr(1), Throttle: &zero, ThrottlePct: &zero}

	s := n.Normalize(in)
	if s.Throttle != 0 || s.ThrottlePct != 0 {
		t.Errorf("Throttle/ThrottlePct = %v/%v, want 0/0", s.Throttle, s.ThrottlePct)
	}
}

func TestThrottleReconciliationFillsFromRatio(t *testing.T) {
	n := newTestNormalizer()
	ratio := 0.5
	in := &telemetry.InputSample{SpeedMS: ptr(1), Throttle: &ratio}

	s := n.Normalize(in)
	if s.ThrottlePct != 50 {
		t.Errorf("ThrottlePct = %v, want 50 (filled from ratio)", s.ThrottlePct)
	}
}

func TestTimestampFallsBackOnInvalid(t *testing.T) {
	n := newTestNormalizer()
	bad := "not-a-timestamp"
	in := &telemetry.InputSample{SpeedMS: ptr(1), Timestamp: &bad}

	s := n.Normalize(in)
	if s.Timestamp.IsZero() {
		t.Error("Timestamp should fall back to clock time, got zero value")
	}
}

func TestMessageIDAutoIncrementsWhenOmitted(t *testing.T) {
	n := newTestNormalizer()
	s1 := n.Normalize(&telemetry.InputSample{SpeedMS: ptr(1)})
	s2 := n.Normalize(&telemetry.InputSample{SpeedMS: ptr(1)})
	if s2.MessageID != s1.MessageID+1 {
		t.Errorf("MessageID did not auto-increment: %d then %d", s1.MessageID, s2.MessageID)
	}
}
