package detector

import (
	"testing"
	"time"

	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
)

func baseSample() *telemetry.Sample {
	return &telemetry.Sample{
		VoltageV: 48,
		CurrentA: 5,
		PowerW:   240,
		SpeedMS:  10,
	}
}

func TestVoltageOutOfRange(t *testing.T) {
	d := New(DefaultConfig())
	s := baseSample()
	s.VoltageV = 80

	out := d.Detect(s, 0)
	if out == nil {
		t.Fatal("expected outliers, got nil")
	}
	if out.Reasons[FieldVoltage] != ReasonAbsoluteBound {
		t.Errorf("reasons[voltage_v] = %q, want %q", out.Reasons[FieldVoltage], ReasonAbsoluteBound)
	}
	if out.Confidence[FieldVoltage] != 1.0 {
		t.Errorf("confidence[voltage_v] = %v, want 1.0", out.Confidence[FieldVoltage])
	}
	if out.Severity != SeverityCritical {
		t.Errorf("severity = %q, want critical", out.Severity)
	}
}

func TestMonotonicityViolation(t *testing.T) {
	d := New(DefaultConfig())

	s1 := baseSample()
	s1.EnergyJ = 1000
	if out := d.Detect(s1, 0); out != nil {
		t.Fatalf("first sample should not flag, got %+v", out)
	}

	s2 := baseSample()
	s2.EnergyJ = 900
	out := d.Detect(s2, 100*time.Millisecond)
	if out == nil {
		t.Fatal("expected outliers on monotonicity violation, got nil")
	}
	if out.Reasons[FieldEnergy] != ReasonNonMonotonic {
		t.Errorf("reasons[energy_j] = %q, want %q", out.Reasons[FieldEnergy], ReasonNonMonotonic)
	}
	if out.Confidence[FieldEnergy] != 1.0 {
		t.Errorf("confidence[energy_j] = %v, want 1.0", out.Confidence[FieldEnergy])
	}
	if out.Severity != SeverityWarning {
		t.Errorf("severity = %q, want warning", out.Severity)
	}
}

func TestStuckSensor(t *testing.T) {
	d := New(DefaultConfig())

	var out *telemetry.Outliers
	for i := 0; i < 16; i++ {
		s := baseSample()
		s.GyroX = 0.1
		s.SpeedMS = 10 + float64(i) // vary speed between samples while gyro_x stays identical
		out = d.Detect(s, 100*time.Millisecond)
	}

	if out == nil {
		t.Fatal("expected outliers on 16th identical gyro_x sample, got nil")
	}
	if out.Reasons[FieldGyroX] != ReasonStuckSensor {
		t.Errorf("reasons[gyro_x] = %q, want %q", out.Reasons[FieldGyroX], ReasonStuckSensor)
	}
}

func TestNoFlagsReturnsNil(t *testing.T) {
	d := New(DefaultConfig())
	s := baseSample()
	if out := d.Detect(s, 0); out != nil {
		t.Fatalf("expected nil outliers for a clean sample, got %+v", out)
	}
}

func TestSeverityThreeFlagsIsWarning(t *testing.T) {
	d := New(DefaultConfig())
	s := baseSample()
	s.Latitude = 200  // out of bounds
	s.Longitude = 400 // out of bounds
	s.SpeedMS = -1    // negative

	out := d.Detect(s, 0)
	if out == nil {
		t.Fatal("expected outliers")
	}
	if len(out.FlaggedFields) < 3 {
		t.Fatalf("expected >= 3 flagged fields, got %d: %v", len(out.FlaggedFields), out.FlaggedFields)
	}
	if out.Severity != SeverityWarning {
		t.Errorf("severity = %q, want warning", out.Severity)
	}
}
