package calculator

import (
	"testing"
	"time"

	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
)

func TestMotionStateStationary(t *testing.T) {
	c := New(DefaultConfig())
	s := &telemetry.Sample{SpeedMS: 0.1}
	c.Calculate(s, 0)
	if s.MotionState != "stationary" {
		t.Errorf("MotionState = %q, want stationary", s.MotionState)
	}
}

func TestMotionStateTurning(t *testing.T) {
	c := New(DefaultConfig())
	s := &telemetry.Sample{SpeedMS: 10, GyroZ: 20}
	c.Calculate(s, 0)
	if s.MotionState != "turning" {
		t.Errorf("MotionState = %q, want turning", s.MotionState)
	}
}

func TestMotionStateAcceleratingBraking(t *testing.T) {
	c := New(DefaultConfig())
	c.Calculate(&telemetry.Sample{SpeedMS: 5}, 0)

	s2 := &telemetry.Sample{SpeedMS: 15}
	c.Calculate(s2, time.Second)
	if s2.MotionState != "accelerating" {
		t.Errorf("MotionState = %q, want accelerating", s2.MotionState)
	}

	c2 := New(DefaultConfig())
	c2.Calculate(&telemetry.Sample{SpeedMS: 15}, 0)
	s3 := &telemetry.Sample{SpeedMS: 5}
	c2.Calculate(s3, time.Second)
	if s3.MotionState != "braking" {
		t.Errorf("MotionState = %q, want braking", s3.MotionState)
	}
}

func TestDriverModeBraking(t *testing.T) {
	c := New(DefaultConfig())
	s := &telemetry.Sample{SpeedMS: 10, BrakePct: 30}
	c.Calculate(s, 0)
	if s.DriverMode != "braking" {
		t.Errorf("DriverMode = %q, want braking", s.DriverMode)
	}
}

func TestSessionExtremesAreMonotonic(t *testing.T) {
	c := New(DefaultConfig())
	c.Calculate(&telemetry.Sample{SpeedMS: 5, PowerW: 100}, 0)
	s2 := &telemetry.Sample{SpeedMS: 20, PowerW: 50}
	c.Calculate(s2, time.Second)
	if s2.MaxSpeedKmh < 20*3.6-0.001 {
		t.Errorf("MaxSpeedKmh = %v, want >= %v", s2.MaxSpeedKmh, 20*3.6)
	}
	if s2.MaxPowerW != 100 {
		t.Errorf("MaxPowerW = %v, want 100 (retained from first sample)", s2.MaxPowerW)
	}
}

func TestGPSCumulativeDistanceAccumulates(t *testing.T) {
	c := New(DefaultConfig())
	c.Calculate(&telemetry.Sample{Latitude: 37.0, Longitude: -122.0}, 0)
	s2 := &telemetry.Sample{Latitude: 37.001, Longitude: -122.0}
	c.Calculate(s2, time.Second)
	if s2.GPSDistanceCumulativeM <= 0 {
		t.Errorf("GPSDistanceCumulativeM = %v, want > 0", s2.GPSDistanceCumulativeM)
	}
}

func TestGPSHaversineRejectsLargeJump(t *testing.T) {
	c := New(DefaultConfig())
	c.Calculate(&telemetry.Sample{Latitude: 37.0, Longitude: -122.0}, 0)
	s2 := &telemetry.Sample{Latitude: 40.0, Longitude: -74.0} // cross-country jump
	c.Calculate(s2, time.Second)
	if s2.GPSDistanceCumulativeM != 0 {
		t.Errorf("GPSDistanceCumulativeM = %v, want 0 (segment rejected as outlier)", s2.GPSDistanceCumulativeM)
	}
}
