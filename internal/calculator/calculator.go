// Package calculator implements the telemetry calculator (C5): rolling
// efficiency, session extremes, motion/driver classification, peak
// detection, GPS cumulatives, and the optimal-speed estimate it hosts via
// internal/calculator/optimalspeed.
package calculator

import (
	"math"
	"time"

	"github.com/banshee-data/telemetry-bridge/internal/calculator/optimalspeed"
	"github.com/banshee-data/telemetry-bridge/internal/rolling"
	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
)

// Calculator accumulates per-session state and produces the derived-metric
// set attached to every sample by the Normalizer. Not safe for concurrent
// use; mutated only on the ingest path.
type Calculator struct {
	cfg Config

	distanceWindow *rolling.Window
	energyWindow   *rolling.Window

	speedWindow     *rolling.Window
	voltageWindow   *rolling.Window
	currentWindow   *rolling.Window
	powerWindow     *rolling.Window
	accelMagWindow  *rolling.Window

	maxSpeedKmh, maxPowerW, maxCurrentA, maxGForce float64

	cumulativeEnergyKWh float64

	buckets []*speedBucket

	optimizer *optimalspeed.Optimizer

	haveLastSpeed bool
	lastSpeedMS   float64

	haveCumulative bool
	lastDistanceM  float64
	lastEnergyJ    float64

	currentPeaks *peakTracker
	accelPeaks   *peakTracker

	haveGPS  bool
	lastLat  float64
	lastLon  float64
	lastAlt  float64
	gpsCumDistanceM float64
	elevationGainM  float64
}

// New constructs a Calculator using cfg's thresholds.
func New(cfg Config) *Calculator {
	n := cfg.RollingWindowSize
	if n <= 0 {
		n = 50
	}
	return &Calculator{
		cfg:            cfg,
		distanceWindow: rolling.New(n),
		energyWindow:   rolling.New(n),
		speedWindow:    rolling.New(n),
		voltageWindow:  rolling.New(n),
		currentWindow:  rolling.New(n),
		powerWindow:    rolling.New(n),
		accelMagWindow: rolling.New(n),
		buckets:        newSpeedBuckets(),
		optimizer:      optimalspeed.New(),
		currentPeaks:   newPeakTracker(cfg.PeaksRetain),
		accelPeaks:     newPeakTracker(cfg.PeaksRetain),
	}
}

// Calculate computes the derived-metric set for s given dt (elapsed time
// since the previous sample in this session) and writes it into
// s.DerivedMetrics, updating the Calculator's internal state.
func (c *Calculator) Calculate(s *telemetry.Sample, dt time.Duration) {
	deltaDistanceM, deltaEnergyJ := c.cumulativeDeltas(s)
	c.distanceWindow.Push(deltaDistanceM)
	c.energyWindow.Push(deltaEnergyJ)

	speedKmh := s.SpeedMS * 3.6
	c.maxSpeedKmh = math.Max(c.maxSpeedKmh, speedKmh)
	c.maxPowerW = math.Max(c.maxPowerW, s.PowerW)
	c.maxCurrentA = math.Max(c.maxCurrentA, s.CurrentA)

	accelMag := s.TotalAcceleration
	if accelMag == 0 {
		accelMag = accelMagnitude(s.AccelX, s.AccelY, s.AccelZ)
	}
	gForce := accelMag / 9.81
	c.maxGForce = math.Max(c.maxGForce, gForce)

	if dt > 0 {
		c.cumulativeEnergyKWh += s.PowerW * dt.Seconds() / 3.6e6
	}

	bucket := bucketFor(c.buckets, s.SpeedMS)
	bucket.cumDistance += deltaDistanceM
	bucket.cumEnergy += deltaEnergyJ
	optimalRangeResult := optimalRange(c.buckets, c.cfg.EfficiencyMaxPlausible)

	c.optimizer.Add(s.SpeedMS, s.PowerW)
	optimalSpeed := c.optimizer.Result()

	motionState := c.motionState(s, dt)
	driverMode := c.driverMode(s)
	throttleIntensity := intensityBucket(s.ThrottlePct, c.cfg)
	brakeIntensity := intensityBucket(s.BrakePct, c.cfg)

	currentPeaks := c.checkCurrentPeak(s, motionState, accelMag)
	accelPeaks := c.checkAccelPeak(s, motionState, accelMag, gForce)

	c.speedWindow.Push(s.SpeedMS)
	c.voltageWindow.Push(s.VoltageV)
	c.currentWindow.Push(s.CurrentA)
	c.powerWindow.Push(s.PowerW)
	c.accelMagWindow.Push(accelMag)

	c.updateGPSCumulatives(s)

	efficiency := efficiencyKmPerKWh(c.distanceWindow.Sum(), c.energyWindow.Sum())
	if efficiency <= 0 || efficiency >= c.cfg.EfficiencyMaxPlausible {
		efficiency = 0
	}

	s.DerivedMetrics = telemetry.DerivedMetrics{
		EfficiencyKmPerKWh: efficiency,

		MaxSpeedKmh: c.maxSpeedKmh,
		MaxPowerW:   c.maxPowerW,
		MaxCurrentA: c.maxCurrentA,
		MaxGForce:   c.maxGForce,

		AvgSpeedMS:        c.speedWindow.Mean(),
		AvgVoltageV:       c.voltageWindow.Mean(),
		AvgCurrentA:       c.currentWindow.Mean(),
		AvgPowerW:         c.powerWindow.Mean(),
		AvgAccelMagnitude: c.accelMagWindow.Mean(),

		CumulativeEnergyKWh: c.cumulativeEnergyKWh,

		OptimalSpeedRange: optimalRangeResult,
		OptimalSpeed:      optimalSpeed,

		MotionState: motionState,
		DriverMode:  driverMode,

		ThrottleIntensity: throttleIntensity,
		BrakeIntensity:    brakeIntensity,

		AccelMagnitude: accelMag,
		GForce:         gForce,

		CurrentPeaks: currentPeaks,
		AccelPeaks:   accelPeaks,

		GPSDistanceCumulativeM: c.gpsCumDistanceM,
		ElevationGainM:         c.elevationGainM,
	}
}

func (c *Calculator) cumulativeDeltas(s *telemetry.Sample) (deltaDistance, deltaEnergy float64) {
	if !c.haveCumulative {
		c.lastDistanceM = s.DistanceM
		c.lastEnergyJ = s.EnergyJ
		c.haveCumulative = true
		return 0, 0
	}
	deltaDistance = math.Max(0, s.DistanceM-c.lastDistanceM)
	deltaEnergy = math.Max(0, s.EnergyJ-c.lastEnergyJ)
	c.lastDistanceM = s.DistanceM
	c.lastEnergyJ = s.EnergyJ
	return deltaDistance, deltaEnergy
}

func accelMagnitude(ax, ay, az float64) float64 {
	dz := az - 9.81
	return math.Sqrt(ax*ax + ay*ay + dz*dz)
}

func (c *Calculator) motionState(s *telemetry.Sample, dt time.Duration) string {
	defer func() {
		c.lastSpeedMS = s.SpeedMS
		c.haveLastSpeed = true
	}()

	if s.SpeedMS < c.cfg.StationarySpeedMS {
		return "stationary"
	}
	if math.Abs(s.GyroZ) > c.cfg.TurningGyroZDegS {
		return "turning"
	}
	if c.haveLastSpeed && dt > 0 {
		rate := (s.SpeedMS - c.lastSpeedMS) / dt.Seconds()
		if rate < c.cfg.BrakingAccelMS2 {
			return "braking"
		}
		if rate > c.cfg.AcceleratingAccelMS2 {
			return "accelerating"
		}
	}
	return "cruising"
}

func (c *Calculator) driverMode(s *telemetry.Sample) string {
	switch {
	case s.BrakePct > c.cfg.DriverBrakePctThreshold:
		return "braking"
	case s.ThrottlePct < c.cfg.CoastingThrottlePctMax && s.SpeedMS > c.cfg.CoastingSpeedMinMS:
		return "coasting"
	case s.ThrottlePct < c.cfg.DriverEcoThrottlePctMax:
		return "eco"
	case s.ThrottlePct < c.cfg.DriverNormalThrottlePctMax:
		return "normal"
	default:
		return "aggressive"
	}
}

func intensityBucket(pct float64, cfg Config) string {
	switch {
	case pct < cfg.IntensityIdleMax:
		return "idle"
	case pct < cfg.IntensityLightMax:
		return "light"
	case pct < cfg.IntensityModerateMax:
		return "moderate"
	default:
		return "heavy"
	}
}

func (c *Calculator) checkCurrentPeak(s *telemetry.Sample, motionState string, accelMag float64) telemetry.PeaksSummary {
	mean := c.currentWindow.Mean()
	std := c.currentWindow.Std()
	threshold := math.Max(mean+2*std, mean*1.5)
	if s.CurrentA > threshold && mean > c.cfg.CurrentPeakMinMean {
		severity := severityHighMediumLow(s.CurrentA, 1.5*threshold, 1.2*threshold)
		c.currentPeaks.record(telemetry.Peak{
			Timestamp:      s.Timestamp,
			Value:          s.CurrentA,
			Threshold:      threshold,
			MotionState:    motionState,
			AccelMagnitude: accelMag,
			Severity:       severity,
		})
	}
	return c.currentPeaks.summary(c.cfg.PeaksRecent)
}

func (c *Calculator) checkAccelPeak(s *telemetry.Sample, motionState string, accelMag, gForce float64) telemetry.PeaksSummary {
	mean := c.accelMagWindow.Mean()
	std := c.accelMagWindow.Std()
	threshold := math.Max(mean+2*std, mean*1.5)
	if accelMag > threshold && accelMag >= c.cfg.AccelPeakMinAbs {
		severity := severityHighMediumLow(gForce, 2, 1)
		c.accelPeaks.record(telemetry.Peak{
			Timestamp:      s.Timestamp,
			Value:          accelMag,
			Threshold:      threshold,
			MotionState:    motionState,
			AccelMagnitude: accelMag,
			Severity:       severity,
		})
	}
	return c.accelPeaks.summary(c.cfg.PeaksRecent)
}

func (c *Calculator) updateGPSCumulatives(s *telemetry.Sample) {
	if !c.haveGPS {
		c.lastLat, c.lastLon, c.lastAlt = s.Latitude, s.Longitude, s.Altitude
		c.haveGPS = true
		return
	}
	segment := haversineMeters(c.lastLat, c.lastLon, s.Latitude, s.Longitude)
	if segment < c.cfg.HaversineMaxSegmentM {
		c.gpsCumDistanceM += segment
	}
	deltaAlt := s.Altitude - c.lastAlt
	if deltaAlt > 0 {
		c.elevationGainM += math.Min(deltaAlt, c.cfg.ElevationStepCapM)
	}
	c.lastLat, c.lastLon, c.lastAlt = s.Latitude, s.Longitude, s.Altitude
}
