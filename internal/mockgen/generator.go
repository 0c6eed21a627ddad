// Package mockgen implements the scenario-driven synthetic telemetry
// source (C7): a sinusoidal base signal plus GPS/IMU/driver-input tracks,
// with fault injection (stalls, drops, sensor failures, GPS drift/jumps)
// feeding the same pipeline as the live source.
package mockgen

import (
	"math"
	"math/rand"

	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
)

// Stats is a snapshot of lifetime fault-injection counters, used to
// validate detector behavior against synthetic runs.
type Stats struct {
	Ticks           uint64
	Stalls          uint64
	MessagesDropped uint64
	SensorFailures  uint64
	GPSJumps        uint64
	Emitted         uint64
}

// Generator produces synthetic telemetry samples for one scenario.
type Generator struct {
	scenario Scenario
	params   faultParams
	rng      *rand.Rand

	speedMax float64
	tickDt   float64 // nominal seconds per tick

	tickIndex int

	speed, voltage, current, energyJ, distanceM float64
	accelFwd                                    float64 // m/s^2, last computed forward acceleration

	baseLat, baseLon, altitude float64
	gpsAngle                   float64
	driftLat, driftLon         float64

	throttlePhase       float64
	brakeTicksRemaining int
	lastThrottle        float64
	lastBrake           float64

	stallTicksRemaining         int
	dropBurstRemaining          int
	sensorFailureTicksRemaining int
	sensorFailureFields         []string

	stats Stats
}

// New constructs a Generator for scenario, seeded deterministically from
// seed so tests can reproduce a run.
func New(scenario Scenario, seed int64) *Generator {
	return &Generator{
		scenario: scenario,
		params:   paramsFor(scenario),
		rng:      rand.New(rand.NewSource(seed)),
		speedMax: 30,
		tickDt:   0.2,
		baseLat:  37.7749,
		baseLon:  -122.4194,
		altitude: 50,
	}
}

// Stats returns a snapshot of lifetime fault counters.
func (g *Generator) Stats() Stats { return g.stats }

// Generate produces the next sample. The bool return is false when the
// tick is suppressed by a stall or a drop, mirroring the external
// interface's "absent" return so the orchestrator can time-skip.
func (g *Generator) Generate() (*telemetry.InputSample, bool) {
	g.tickIndex++
	g.stats.Ticks++

	if g.stallTicksRemaining > 0 {
		g.stallTicksRemaining--
		return nil, false
	}
	if g.rng.Float64() < g.params.StallProb {
		g.stallTicksRemaining = g.randIntRange(g.params.StallMinTicks, g.params.StallMaxTicks)
		g.stats.Stalls++
		return nil, false
	}

	if g.dropBurstRemaining > 0 {
		g.dropBurstRemaining--
		g.stats.MessagesDropped++
		g.advanceBaseSignal()
		return nil, false
	}
	if g.rng.Float64() < g.params.DropProb {
		g.stats.MessagesDropped++
		if g.rng.Float64() < g.params.BurstDropProb {
			g.dropBurstRemaining = g.randIntRange(g.params.BurstDropMin, g.params.BurstDropMax) - 1
		}
		g.advanceBaseSignal()
		return nil, false
	}

	g.advanceBaseSignal()
	in := g.buildSample()
	g.applySensorFailure(in)
	g.applyGPSFaults(in)

	g.stats.Emitted++
	return in, true
}

func (g *Generator) randIntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *Generator) gaussian(stdDev float64) float64 {
	return g.rng.NormFloat64() * stdDev
}

// advanceBaseSignal integrates the sinusoidal base speed/voltage/current
// track plus GPS/IMU/driver-input tracks for one tick, regardless of
// whether the tick ultimately gets emitted.
func (g *Generator) advanceBaseSignal() {
	t := float64(g.tickIndex) * g.tickDt

	base := g.speedMax / 2 * (1 + math.Sin(t*0.05))
	newSpeed := base + g.gaussian(0.5)
	if newSpeed < 0 {
		newSpeed = 0
	}
	if newSpeed > g.speedMax {
		newSpeed = g.speedMax
	}
	g.accelFwd = (newSpeed - g.speed) / g.tickDt
	g.speed = newSpeed

	g.voltage = 42 + 0.3*g.speed + g.gaussian(0.2)
	g.current = 2 + 0.25*g.speed + g.gaussian(0.15)
	power := g.voltage * g.current
	g.energyJ += power * g.tickDt
	g.distanceM += g.speed * g.tickDt

	turnRate := 10 * math.Sin(t*0.03) // deg/s
	g.gpsAngle += turnRate * g.tickDt * math.Pi / 180

	radius := 0.001
	g.driftLat += g.gaussian(g.params.GPSDriftStep)
	g.driftLon += g.gaussian(g.params.GPSDriftStep)
	if g.params.GPSDriftHalvingProb > 0 && g.rng.Float64() < g.params.GPSDriftHalvingProb {
		g.driftLat /= 2
		g.driftLon /= 2
	}
	g.altitude = 50 + 5*math.Sin(t*0.01)

	// Driver inputs.
	g.throttlePhase += 0.02
	throttlePct := 55 + 35*math.Sin(g.throttlePhase)
	brakePct := 0.0
	if g.brakeTicksRemaining > 0 {
		g.brakeTicksRemaining--
		brakePct = 15 + g.rng.Float64()*60
		throttlePct = math.Max(0, throttlePct-brakePct)
	} else if g.rng.Float64() < 0.005 {
		g.brakeTicksRemaining = g.randIntRange(5, 20)
	}
	g.lastThrottle = clampF(throttlePct, 0, 100)
	g.lastBrake = clampF(brakePct, 0, 100)

	_ = radius
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (g *Generator) buildSample() *telemetry.InputSample {
	t := float64(g.tickIndex) * g.tickDt

	radius := 0.001
	lat := g.baseLat + radius*math.Sin(g.gpsAngle) + g.gaussian(0.00001)
	lon := g.baseLon + radius*math.Cos(g.gpsAngle) + g.gaussian(0.00001)

	gyroX := g.gaussian(2)
	gyroY := g.gaussian(2)
	gyroZ := 10*math.Sin(t*0.03) + g.gaussian(2)

	accelX := g.accelFwd + g.gaussian(0.1*(1+g.speed/10))
	accelY := (gyroZ * math.Pi / 180) * g.speed
	accelZ := 9.81 + g.gaussian(0.05*(1+g.speed/10))

	speed := g.speed
	voltage := g.voltage
	current := g.current
	power := voltage * current
	energy := g.energyJ
	distance := g.distanceM
	latitude := lat
	longitude := lon
	altitude := g.altitude
	throttlePct := g.lastThrottle
	brakePct := g.lastBrake

	return &telemetry.InputSample{
		SpeedMS:   &speed,
		VoltageV:  &voltage,
		CurrentA:  &current,
		PowerW:    &power,
		EnergyJ:   &energy,
		DistanceM: &distance,

		Latitude:  &latitude,
		Longitude: &longitude,
		Altitude:  &altitude,

		GyroX: &gyroX,
		GyroY: &gyroY,
		GyroZ: &gyroZ,

		AccelX: &accelX,
		AccelY: &accelY,
		AccelZ: &accelZ,

		ThrottlePct: &throttlePct,
		BrakePct:    &brakePct,
		DataSource:  sourceTag(g.scenario),
	}
}

func sourceTag(s Scenario) *string {
	tag := "MOCK_" + string(s)
	return &tag
}

// applySensorFailure sets the zero/garbage override for any sensors
// currently inside an active failure window, or starts one.
func (g *Generator) applySensorFailure(in *telemetry.InputSample) {
	if g.sensorFailureTicksRemaining <= 0 && g.rng.Float64() < g.params.SensorFailureProb {
		g.sensorFailureTicksRemaining = g.randIntRange(g.params.SensorFailureMinTicks, g.params.SensorFailureMaxTicks)
		g.sensorFailureFields = g.pickFailingFields()
		g.stats.SensorFailures++
	}
	if g.sensorFailureTicksRemaining <= 0 {
		return
	}
	g.sensorFailureTicksRemaining--

	for _, field := range g.sensorFailureFields {
		var target *float64
		switch field {
		case "voltage_v":
			target = in.VoltageV
		case "current_a":
			target = in.CurrentA
		case "gyro_x":
			target = in.GyroX
		case "gyro_y":
			target = in.GyroY
		case "gyro_z":
			target = in.GyroZ
		case "accel_x":
			target = in.AccelX
		case "accel_y":
			target = in.AccelY
		case "accel_z":
			target = in.AccelZ
		}
		if target == nil {
			continue
		}
		if g.rng.Float64() < 0.7 {
			*target = 0
		} else {
			*target = -999 + g.rng.Float64()*1998
		}
	}
}

var failableFields = []string{"voltage_v", "current_a", "gyro_x", "gyro_y", "gyro_z", "accel_x", "accel_y", "accel_z"}

func (g *Generator) pickFailingFields() []string {
	count := g.randIntRange(g.params.SensorFailureMinCount, g.params.SensorFailureMaxCount)
	if count > len(failableFields) {
		count = len(failableFields)
	}
	perm := g.rng.Perm(len(failableFields))
	out := make([]string, count)
	for i := 0; i < count; i++ {
		out[i] = failableFields[perm[i]]
	}
	return out
}

// applyGPSFaults applies accumulated drift, accuracy-degradation noise, and
// a possible discrete jump to the GPS fields already set by buildSample.
func (g *Generator) applyGPSFaults(in *telemetry.InputSample) {
	if in.Latitude != nil {
		*in.Latitude += g.driftLat + g.gaussian(g.params.GPSAccuracyNoiseStd)
	}
	if in.Longitude != nil {
		*in.Longitude += g.driftLon + g.gaussian(g.params.GPSAccuracyNoiseStd)
	}
	if in.Altitude != nil {
		*in.Altitude += g.gaussian(g.params.GPSAccuracyNoiseStd * 1000)
	}

	if g.rng.Float64() < g.params.GPSJumpProb {
		jitter := (g.rng.Float64()*2 - 1) * g.params.GPSJumpRange
		if in.Latitude != nil {
			*in.Latitude += jitter
		}
		if in.Longitude != nil {
			*in.Longitude += jitter
		}
		g.stats.GPSJumps++
	}
}
