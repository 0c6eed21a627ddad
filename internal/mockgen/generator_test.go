package mockgen

import "testing"

func TestNormalScenarioEmitsMostTicks(t *testing.T) {
	g := New(ScenarioNormal, 1)
	emitted := 0
	for i := 0; i < 1000; i++ {
		if _, ok := g.Generate(); ok {
			emitted++
		}
	}
	if emitted < 950 {
		t.Errorf("emitted = %d/1000, want >= 950 for NORMAL scenario", emitted)
	}
}

func TestChaosScenarioInjectsAllFaultClasses(t *testing.T) {
	g := New(ScenarioChaos, 42)
	for i := 0; i < 1000; i++ {
		g.Generate()
	}
	stats := g.Stats()

	if stats.Ticks != 1000 {
		t.Errorf("Ticks = %d, want 1000", stats.Ticks)
	}
	if stats.Stalls == 0 {
		t.Error("expected at least one stall in CHAOS scenario over 1000 ticks")
	}
	if stats.MessagesDropped == 0 {
		t.Error("expected at least one dropped message in CHAOS scenario over 1000 ticks")
	}
	if stats.SensorFailures == 0 {
		t.Error("expected at least one sensor failure in CHAOS scenario over 1000 ticks")
	}
	if stats.GPSJumps == 0 {
		t.Error("expected at least one GPS jump in CHAOS scenario over 1000 ticks")
	}

	ratio := float64(stats.Emitted) / float64(stats.Ticks)
	if ratio < 0.50 || ratio > 0.99 {
		t.Errorf("emitted ratio = %v, want within [0.50, 0.99] for CHAOS scenario", ratio)
	}
}

func TestGPSIssuesScenarioDriftsWithoutStalling(t *testing.T) {
	g := New(ScenarioGPSIssues, 7)
	emitted := 0
	for i := 0; i < 500; i++ {
		if _, ok := g.Generate(); ok {
			emitted++
		}
	}
	if emitted < 450 {
		t.Errorf("emitted = %d/500, want >= 450 (GPS faults don't suppress emission)", emitted)
	}
	if g.Stats().GPSJumps == 0 {
		t.Error("expected at least one GPS jump over 500 ticks")
	}
}

func TestSensorFailuresScenarioFlagsFields(t *testing.T) {
	g := New(ScenarioSensorFailures, 3)
	sawFailure := false
	for i := 0; i < 1000; i++ {
		g.Generate()
	}
	if g.Stats().SensorFailures > 0 {
		sawFailure = true
	}
	if !sawFailure {
		t.Error("expected at least one sensor failure window over 1000 ticks")
	}
}
