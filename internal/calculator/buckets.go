package calculator

import "github.com/banshee-data/telemetry-bridge/internal/telemetry"

// speedBucket is a half-open [lo,hi) m/s interval accumulating integrated
// distance and energy for the session's lifetime.
type speedBucket struct {
	lo, hi      float64
	cumDistance float64
	cumEnergy   float64
}

func newSpeedBuckets() []*speedBucket {
	edges := []float64{0, 5, 10, 15, 20, 25, 30}
	buckets := make([]*speedBucket, 0, len(edges)-1)
	for i := 0; i < len(edges)-1; i++ {
		buckets = append(buckets, &speedBucket{lo: edges[i], hi: edges[i+1]})
	}
	return buckets
}

func bucketFor(buckets []*speedBucket, speed float64) *speedBucket {
	for _, b := range buckets {
		if speed >= b.lo && speed < b.hi {
			return b
		}
	}
	if speed < 0 {
		return buckets[0]
	}
	return buckets[len(buckets)-1]
}

// optimalRange returns the bucket whose integrated distance/energy ratio is
// maximal among buckets with positive accumulated energy and a plausible
// efficiency value, or nil if none qualifies.
func optimalRange(buckets []*speedBucket, maxPlausible float64) *telemetry.SpeedRange {
	var best *speedBucket
	var bestRatio float64
	for _, b := range buckets {
		if b.cumEnergy <= 0 {
			continue
		}
		ratio := efficiencyKmPerKWh(b.cumDistance, b.cumEnergy)
		if ratio <= 0 || ratio >= maxPlausible {
			continue
		}
		if best == nil || ratio > bestRatio {
			best = b
			bestRatio = ratio
		}
	}
	if best == nil {
		return nil
	}
	return &telemetry.SpeedRange{Low: best.lo, Hi: best.hi}
}
