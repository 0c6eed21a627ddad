// Package normalizer implements the Normalizer (C6): it turns a parsed
// InputSample into a canonical Sample, invoking the detector and calculator
// in turn and isolating their failures so a single malformed sample never
// halts the pipeline.
package normalizer

import (
	"math"
	"time"

	"github.com/banshee-data/telemetry-bridge/internal/calculator"
	"github.com/banshee-data/telemetry-bridge/internal/detector"
	"github.com/banshee-data/telemetry-bridge/internal/monitoring"
	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
	"github.com/banshee-data/telemetry-bridge/internal/timeutil"
)

// Normalizer produces canonical samples for one session. Not safe for
// concurrent use; driven exclusively by the ingest path.
type Normalizer struct {
	sessionID   string
	sessionName string

	detector   *detector.Detector
	calculator *calculator.Calculator
	clock      timeutil.Clock

	messageCounter uint32

	haveLastTimestamp bool
	lastTimestamp     time.Time
}

// New constructs a Normalizer for one session, delegating enrichment to det
// and calc.
func New(sessionID, sessionName string, det *detector.Detector, calc *calculator.Calculator, clock timeutil.Clock) *Normalizer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Normalizer{
		sessionID:   sessionID,
		sessionName: sessionName,
		detector:    det,
		calculator:  calc,
		clock:       clock,
	}
}

// Normalize produces a canonical Sample from a parsed input. Detector and
// calculator failures are caught and logged; the returned sample always
// has every default field present.
func (n *Normalizer) Normalize(in *telemetry.InputSample) *telemetry.Sample {
	s := &telemetry.Sample{
		SessionID:   n.sessionID,
		SessionName: n.sessionName,
		Timestamp:   n.resolveTimestamp(in.Timestamp),
		MessageID:   n.resolveMessageID(in.MessageID),

		VoltageV:  floatOr(in.VoltageV, 0),
		CurrentA:  floatOr(in.CurrentA, 0),
		EnergyJ:   floatOr(in.EnergyJ, 0),
		SpeedMS:   floatOr(in.SpeedMS, 0),
		DistanceM: floatOr(in.DistanceM, 0),

		Latitude:  floatOr(in.Latitude, 0),
		Longitude: floatOr(in.Longitude, 0),
		Altitude:  floatOr(in.Altitude, 0),

		GyroX: floatOr(in.GyroX, 0),
		GyroY: floatOr(in.GyroY, 0),
		GyroZ: floatOr(in.GyroZ, 0),

		AccelX: floatOr(in.AccelX, 0),
		AccelY: floatOr(in.AccelY, 0),
		AccelZ: floatOr(in.AccelZ, 0),

		DataSource: stringOr(in.DataSource, ""),
	}

	if in.PowerW != nil {
		s.PowerW = *in.PowerW
	} else {
		s.PowerW = s.VoltageV * s.CurrentA
	}

	if in.TotalAcceleration != nil {
		s.TotalAcceleration = *in.TotalAcceleration
	} else {
		s.TotalAcceleration = math.Sqrt(s.AccelX*s.AccelX + s.AccelY*s.AccelY + s.AccelZ*s.AccelZ)
	}

	s.Throttle, s.ThrottlePct = reconcile(in.Throttle, in.ThrottlePct, 1, 100)
	s.Brake, s.BrakePct = reconcile(in.Brake, in.BrakePct, 1, 100)

	dt := n.dtSince(s.Timestamp)

	s.Outliers = n.runDetector(s, dt)
	n.runCalculator(s, dt)

	n.lastTimestamp = s.Timestamp
	n.haveLastTimestamp = true

	return s
}

func (n *Normalizer) resolveTimestamp(raw *string) time.Time {
	if raw != nil {
		if t, err := time.Parse(time.RFC3339Nano, *raw); err == nil && !t.IsZero() && t.Unix() != 0 {
			return t.UTC()
		}
	}
	return n.clock.Now().UTC()
}

func (n *Normalizer) resolveMessageID(raw *uint32) uint32 {
	if raw != nil {
		return *raw
	}
	n.messageCounter++
	return n.messageCounter
}

func (n *Normalizer) dtSince(ts time.Time) time.Duration {
	if !n.haveLastTimestamp {
		return 0
	}
	return ts.Sub(n.lastTimestamp)
}

// runDetector invokes the detector under a recover guard so a single
// malformed sample cannot halt the pipeline; on panic, outliers are absent.
func (n *Normalizer) runDetector(s *telemetry.Sample, dt time.Duration) (out *telemetry.Outliers) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.Logf("normalizer: detector panic recovered: %v", r)
			out = nil
		}
	}()
	return n.detector.Detect(s, dt)
}

// runCalculator invokes the calculator under a recover guard; on panic the
// sample's derived metrics are left at their zero value.
func (n *Normalizer) runCalculator(s *telemetry.Sample, dt time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.Logf("normalizer: calculator panic recovered: %v", r)
		}
	}()
	n.calculator.Calculate(s, dt)
}

// reconcile fills whichever of (ratio, percent) is nil from the other,
// given percent = ratio * scale. If both are nil, both resolve to zero —
// retain that behavior rather than inventing a default. Results are
// clamped to their legal ranges.
func reconcile(ratio, percent *float64, ratioMax, percentMax float64) (resolvedRatio, resolvedPercent float64) {
	switch {
	case ratio != nil && percent != nil:
		resolvedRatio, resolvedPercent = *ratio, *percent
	case ratio != nil:
		resolvedRatio = *ratio
		resolvedPercent = resolvedRatio * (percentMax / ratioMax)
	case percent != nil:
		resolvedPercent = *percent
		resolvedRatio = resolvedPercent * (ratioMax / percentMax)
	default:
		resolvedRatio, resolvedPercent = 0, 0
	}
	resolvedRatio = clamp(resolvedRatio, 0, ratioMax)
	resolvedPercent = clamp(resolvedPercent, 0, percentMax)
	return resolvedRatio, resolvedPercent
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func stringOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}
