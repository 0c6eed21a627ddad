package rolling

import (
	"math"
	"testing"
)

func TestWindowCountAndWrap(t *testing.T) {
	w := New(3)
	if w.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", w.Count())
	}
	w.Push(1)
	w.Push(2)
	if w.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", w.Count())
	}
	w.Push(3)
	w.Push(4) // wraps, evicting 1
	if w.Count() != 3 {
		t.Fatalf("Count() = %d, want 3 (capped at capacity)", w.Count())
	}
	last, ok := w.Last()
	if !ok || last != 4 {
		t.Fatalf("Last() = (%v, %v), want (4, true)", last, ok)
	}
	got := w.LastN(1)
	if len(got) != 1 || got[0] != 4 {
		t.Fatalf("LastN(1) = %v, want [4]", got)
	}
}

func TestWindowStatsEdgeCases(t *testing.T) {
	w := New(5)
	if w.Mean() != 0 {
		t.Errorf("Mean() on empty window = %v, want 0", w.Mean())
	}
	if w.Std() != 0 {
		t.Errorf("Std() on empty window = %v, want 0", w.Std())
	}
	w.Push(10)
	if w.Std() != 0 {
		t.Errorf("Std() with 1 sample = %v, want 0", w.Std())
	}
	w.Push(20)
	if math.Abs(w.Mean()-15) > 1e-9 {
		t.Errorf("Mean() = %v, want 15", w.Mean())
	}
}

func TestWindowReset(t *testing.T) {
	w := New(3)
	w.Push(1)
	w.Push(2)
	w.Reset()
	if w.Count() != 0 {
		t.Fatalf("Count() after Reset = %d, want 0", w.Count())
	}
	if _, ok := w.Last(); ok {
		t.Fatalf("Last() after Reset should report false")
	}
}

func TestGPSTrackPrevious(t *testing.T) {
	track := NewGPSTrack()
	if _, ok := track.Previous(); ok {
		t.Fatalf("Previous() on empty track should report false")
	}
	track.Push(GPSPoint{Lat: 1})
	if _, ok := track.Previous(); ok {
		t.Fatalf("Previous() with 1 point should report false")
	}
	track.Push(GPSPoint{Lat: 2})
	prev, ok := track.Previous()
	if !ok || prev.Lat != 1 {
		t.Fatalf("Previous() = (%v, %v), want (Lat=1, true)", prev, ok)
	}
}
