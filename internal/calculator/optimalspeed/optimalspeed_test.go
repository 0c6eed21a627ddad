package optimalspeed

import "testing"

func TestOptimizerNoResultBeforeMinCount(t *testing.T) {
	o := New()
	for i := 0; i < 20; i++ {
		o.Add(10, 300)
	}
	if r := o.Result(); r != nil {
		t.Fatalf("expected nil result before minFitCount samples, got %+v", r)
	}
}

func TestOptimizerConverges(t *testing.T) {
	o := New()
	// Power roughly quadratic in speed, with a clean minimum energy-per-meter
	// somewhere in the middle of the observed range.
	for i := 0; i < 200; i++ {
		speed := 2.0 + float64(i%28)
		power := 80 + 2*speed*speed
		o.Add(speed, power)
	}

	r := o.Result()
	if r == nil {
		t.Fatal("expected a result after 200 well-behaved samples")
	}
	if r.SpeedMS < minSpeedFilter || r.SpeedMS > maxSpeedFilter {
		t.Errorf("SpeedMS = %v, out of filter range [%v,%v]", r.SpeedMS, minSpeedFilter, maxSpeedFilter)
	}
	if r.Confidence < 0.3 {
		t.Errorf("Confidence = %v, want >= 0.3 (reporting threshold)", r.Confidence)
	}
}

func TestOptimizerFiltersOutOfRangeInputs(t *testing.T) {
	o := New()
	for i := 0; i < 200; i++ {
		o.Add(1.0, 50) // below minSpeedFilter, should be dropped
	}
	if r := o.Result(); r != nil {
		t.Fatalf("expected nil result when every input is filtered out, got %+v", r)
	}
}
