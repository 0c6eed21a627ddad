// Package detector implements the per-sample outlier detector (C3): bounds,
// z-score, jump, IMU, GPS, monotonicity, and stuck-sensor checks over
// rolling statistics, producing a flagged-field set with per-field
// confidence, reason codes, and an overall severity.
package detector

import (
	"math"
	"time"

	"github.com/banshee-data/telemetry-bridge/internal/rolling"
	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
)

// Stats is a snapshot of the detector's lifetime counters.
type Stats struct {
	TotalMessages     uint64
	FlaggedMessages   uint64
	CountsByField     map[string]uint64
	CountsBySeverity  map[string]uint64
	MeanDetectionCostMicros float64
}

// Detector holds rolling state across samples within one session. It is not
// safe for concurrent use; the ingest path is the sole mutator, per the
// concurrency model.
type Detector struct {
	cfg Config

	voltage *rolling.Window
	current *rolling.Window
	power   *rolling.Window
	gyroX   *rolling.Window
	gyroY   *rolling.Window
	gyroZ   *rolling.Window
	accelX  *rolling.Window
	accelY  *rolling.Window
	accelZ  *rolling.Window
	speed   *rolling.Window
	gps     *rolling.GPSTrack

	stuckCount map[string]int
	lastValue  map[string]float64

	hasPrevCumulative bool
	lastEnergy        float64
	lastDistance      float64

	totalMessages    uint64
	flaggedMessages  uint64
	countsByField    map[string]uint64
	countsBySeverity map[string]uint64
	costWindow       *rolling.Window
}

// New constructs a Detector using cfg's thresholds.
func New(cfg Config) *Detector {
	n := cfg.RollingWindowSize
	if n <= 0 {
		n = 100
	}
	return &Detector{
		cfg:     cfg,
		voltage: rolling.New(n),
		current: rolling.New(n),
		power:   rolling.New(n),
		gyroX:   rolling.New(n),
		gyroY:   rolling.New(n),
		gyroZ:   rolling.New(n),
		accelX:  rolling.New(n),
		accelY:  rolling.New(n),
		accelZ:  rolling.New(n),
		speed:   rolling.New(n),
		gps:     rolling.NewGPSTrack(),

		stuckCount: make(map[string]int),
		lastValue:  make(map[string]float64),

		countsByField:    make(map[string]uint64),
		countsBySeverity: make(map[string]uint64),
		costWindow:       rolling.New(maxInt(cfg.CostWindowSize, 1)),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Detect runs all checks against s, given dt (elapsed time since the
// previous sample; zero for the first sample of a session). Returns nil
// when no field was flagged.
func (d *Detector) Detect(s *telemetry.Sample, dt time.Duration) *telemetry.Outliers {
	start := time.Now()
	defer func() {
		d.costWindow.Push(float64(time.Since(start).Microseconds()))
	}()

	flags := newFlagSet()

	d.checkElectrical(flags, FieldVoltage, s.VoltageV, d.voltage, d.cfg.VoltageBounds)
	d.checkElectrical(flags, FieldCurrent, s.CurrentA, d.current, d.cfg.CurrentBounds)
	d.checkElectrical(flags, FieldPower, s.PowerW, d.power, d.cfg.PowerBounds)

	d.checkIMUMagnitude(flags, s)
	d.checkGyroRateOfChange(flags, s)
	d.checkGPSAbsoluteBounds(flags, s)
	d.checkGPSSpeedConsistency(flags, s, dt)
	d.checkAltitudeRate(flags, s)
	d.checkSpeed(flags, s, dt)
	d.checkCumulativeMonotonicity(flags, s)
	d.checkStuckSensors(flags, s)

	d.pushWindows(s)

	d.totalMessages++
	if flags.empty() {
		return nil
	}

	d.flaggedMessages++
	for _, f := range flags.order {
		d.countsByField[f]++
	}

	severity := severityFor(flags)
	d.countsBySeverity[severity]++

	return &telemetry.Outliers{
		FlaggedFields: flags.order,
		Confidence:    flags.confidence,
		Reasons:       flags.reasons,
		Severity:      severity,
	}
}

func severityFor(flags *flagSet) string {
	for field := range flags.reasons {
		if criticalFields[field] {
			return SeverityCritical
		}
	}
	if len(flags.order) >= 3 {
		return SeverityWarning
	}
	for _, c := range flags.confidence {
		if c > 0.9 {
			return SeverityWarning
		}
	}
	return SeverityInfo
}

// checkElectrical runs checks 1-3 for one electrical field.
func (d *Detector) checkElectrical(flags *flagSet, field string, val float64, w *rolling.Window, bounds Bounds) {
	if val < bounds.Min || val > bounds.Max {
		flags.add(field, ReasonAbsoluteBound, 1.0)
	}

	zFired := false
	if w.Count() >= 10 {
		std := w.Std()
		if std > 0 {
			z := math.Abs(val-w.Mean()) / std
			if z > d.cfg.ZScoreThreshold {
				flags.add(field, ReasonZScoreExceeded, math.Min(1, z/(2*d.cfg.ZScoreThreshold)))
				zFired = true
			}
		}
	}

	if !zFired {
		mean := w.Mean()
		if mean != 0 {
			ratio := math.Abs(val-mean) / math.Abs(mean)
			if ratio > d.cfg.JumpRatioThreshold {
				flags.add(field, ReasonSuddenJump, 0.7)
			}
		}
	}
}

func (d *Detector) checkIMUMagnitude(flags *flagSet, s *telemetry.Sample) {
	mag := math.Sqrt(s.AccelX*s.AccelX + s.AccelY*s.AccelY + s.AccelZ*s.AccelZ)
	if mag <= d.cfg.IMUMagnitudeMax {
		return
	}
	field, val := FieldAccelX, s.AccelX
	if math.Abs(s.AccelY) > math.Abs(val) {
		field, val = FieldAccelY, s.AccelY
	}
	if math.Abs(s.AccelZ) > math.Abs(val) {
		field, val = FieldAccelZ, s.AccelZ
	}
	flags.add(field, ReasonMagnitudeExceeded, math.Min(1, mag/d.cfg.IMUMagnitudeMax))
}

func (d *Detector) checkGyroRateOfChange(flags *flagSet, s *telemetry.Sample) {
	type axis struct {
		field string
		val   float64
		w     *rolling.Window
	}
	for _, a := range []axis{
		{FieldGyroX, s.GyroX, d.gyroX},
		{FieldGyroY, s.GyroY, d.gyroY},
		{FieldGyroZ, s.GyroZ, d.gyroZ},
	} {
		last, ok := a.w.Last()
		if !ok {
			continue
		}
		delta := math.Abs(a.val - last)
		if delta > d.cfg.GyroRateMax {
			flags.add(a.field, ReasonRateOfChange, math.Min(1, delta/(2*d.cfg.GyroRateMax)))
		}
	}
}

func (d *Detector) checkGPSAbsoluteBounds(flags *flagSet, s *telemetry.Sample) {
	if s.Latitude < -90 || s.Latitude > 90 {
		flags.add(FieldLatitude, ReasonAbsoluteBound, 1.0)
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		flags.add(FieldLongitude, ReasonAbsoluteBound, 1.0)
	}
	if s.Altitude < d.cfg.AltitudeBounds.Min || s.Altitude > d.cfg.AltitudeBounds.Max {
		flags.add(FieldAltitude, ReasonAbsoluteBound, 1.0)
	}
}

// planarGPSDistance approximates the distance in meters between two
// lat/lon points using fixed mid-latitude constants — a deliberate detector
// heuristic, distinct from the Calculator's Haversine path.
func planarGPSDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * 111000
	dLon := (lon2 - lon1) * 78000
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

func (d *Detector) checkGPSSpeedConsistency(flags *flagSet, s *telemetry.Sample, dt time.Duration) {
	prev, ok := d.gps.Latest()
	if !ok || dt <= 0 {
		return
	}
	dist := planarGPSDistance(prev.Lat, prev.Lon, s.Latitude, s.Longitude)
	dtSeconds := dt.Seconds()

	if s.SpeedMS > 0 {
		ratio := dist / (s.SpeedMS * dtSeconds)
		if ratio > d.cfg.GPSSpeedRatioMax {
			flags.add(FieldLatitude, ReasonGPSSpeedMismatch, 0.8)
		}
	}

	impliedSpeed := dist / dtSeconds
	if impliedSpeed > d.cfg.GPSImpossibleSpeed && !flags.has(FieldLatitude) {
		flags.add(FieldLatitude, ReasonImpossibleSpeed, 0.9)
	}
}

func (d *Detector) checkAltitudeRate(flags *flagSet, s *telemetry.Sample) {
	prev, ok := d.gps.Latest()
	if !ok {
		return
	}
	if math.Abs(s.Altitude-prev.Alt) > d.cfg.AltitudeRateMax && !flags.has(FieldAltitude) {
		flags.add(FieldAltitude, ReasonAltitudeRate, 0.8)
	}
}

func (d *Detector) checkSpeed(flags *flagSet, s *telemetry.Sample, dt time.Duration) {
	switch {
	case s.SpeedMS < 0:
		flags.add(FieldSpeed, ReasonNegativeValue, 1.0)
	case s.SpeedMS > d.cfg.SpeedMax:
		flags.add(FieldSpeed, ReasonAbsoluteBound, 1.0)
	default:
		last, ok := d.speed.Last()
		if ok && dt > 0 {
			rate := math.Abs(s.SpeedMS-last) / dt.Seconds()
			if rate > d.cfg.SpeedAccelMax {
				flags.add(FieldSpeed, ReasonRateOfChange, 0.8)
			}
		}
	}
}

func (d *Detector) checkCumulativeMonotonicity(flags *flagSet, s *telemetry.Sample) {
	if !d.hasPrevCumulative {
		return
	}
	if s.EnergyJ < d.lastEnergy {
		flags.add(FieldEnergy, ReasonNonMonotonic, 1.0)
	} else if s.EnergyJ-d.lastEnergy > d.cfg.EnergyJumpMax {
		flags.add(FieldEnergy, ReasonImplausibleIncrease, 0.9)
	}
	if s.DistanceM < d.lastDistance {
		flags.add(FieldDistance, ReasonNonMonotonic, 1.0)
	} else if s.DistanceM-d.lastDistance > d.cfg.DistanceJumpMax {
		flags.add(FieldDistance, ReasonImplausibleIncrease, 0.9)
	}
}

func (d *Detector) checkStuckSensors(flags *flagSet, s *telemetry.Sample) {
	type field struct {
		name string
		val  float64
	}
	for _, f := range []field{
		{FieldVoltage, s.VoltageV},
		{FieldCurrent, s.CurrentA},
		{FieldPower, s.PowerW},
		{FieldGyroX, s.GyroX},
		{FieldGyroY, s.GyroY},
		{FieldGyroZ, s.GyroZ},
		{"accel_x", s.AccelX},
		{"accel_y", s.AccelY},
		{"accel_z", s.AccelZ},
		{FieldSpeed, s.SpeedMS},
	} {
		if last, ok := d.lastValue[f.name]; ok && last == f.val {
			d.stuckCount[f.name]++
		} else {
			d.stuckCount[f.name] = 0
		}
		if d.stuckCount[f.name] >= d.cfg.StuckCountMax && !flags.has(f.name) {
			flags.add(f.name, ReasonStuckSensor, math.Min(1, float64(d.stuckCount[f.name])/(2*float64(d.cfg.StuckCountMax))))
		}
	}
}

// pushWindows records the current sample's values for use by future calls,
// and must run after every check has consulted the prior state.
func (d *Detector) pushWindows(s *telemetry.Sample) {
	d.voltage.Push(s.VoltageV)
	d.current.Push(s.CurrentA)
	d.power.Push(s.PowerW)
	d.gyroX.Push(s.GyroX)
	d.gyroY.Push(s.GyroY)
	d.gyroZ.Push(s.GyroZ)
	d.accelX.Push(s.AccelX)
	d.accelY.Push(s.AccelY)
	d.accelZ.Push(s.AccelZ)
	d.speed.Push(s.SpeedMS)
	d.gps.Push(rolling.GPSPoint{Lat: s.Latitude, Lon: s.Longitude, Alt: s.Altitude, T: s.Timestamp})

	d.lastValue[FieldVoltage] = s.VoltageV
	d.lastValue[FieldCurrent] = s.CurrentA
	d.lastValue[FieldPower] = s.PowerW
	d.lastValue[FieldGyroX] = s.GyroX
	d.lastValue[FieldGyroY] = s.GyroY
	d.lastValue[FieldGyroZ] = s.GyroZ
	d.lastValue["accel_x"] = s.AccelX
	d.lastValue["accel_y"] = s.AccelY
	d.lastValue["accel_z"] = s.AccelZ
	d.lastValue[FieldSpeed] = s.SpeedMS

	d.lastEnergy = s.EnergyJ
	d.lastDistance = s.DistanceM
	d.hasPrevCumulative = true
}

// Stats returns a snapshot of the detector's lifetime counters.
func (d *Detector) Stats() Stats {
	byField := make(map[string]uint64, len(d.countsByField))
	for k, v := range d.countsByField {
		byField[k] = v
	}
	bySeverity := make(map[string]uint64, len(d.countsBySeverity))
	for k, v := range d.countsBySeverity {
		bySeverity[k] = v
	}
	return Stats{
		TotalMessages:           d.totalMessages,
		FlaggedMessages:         d.flaggedMessages,
		CountsByField:           byField,
		CountsBySeverity:        bySeverity,
		MeanDetectionCostMicros: d.costWindow.Mean(),
	}
}
