// Package optimalspeed estimates the cruising speed that maximizes
// distance per unit energy, by periodically re-fitting a degree-3
// polynomial of power as a function of speed over recent observations.
package optimalspeed

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
)

const (
	bufferCapacity = 500
	minSpeedFilter = 2.0
	maxSpeedFilter = 30.0
	maxPowerFilter = 10000.0

	refitEvery  = 10
	minFitCount = 30

	sweepStep = 0.5

	maxPlausibleEfficiency = 500.0
)

type point struct {
	speed float64
	power float64
}

// Optimizer maintains a rolling buffer of (speed, power) observations and
// periodically re-fits a polynomial model to estimate the efficiency-
// optimal cruising speed.
type Optimizer struct {
	buf          []point
	writes       int
	sinceLastFit int

	coeffs []float64 // polynomial coefficients, degree ascending; nil until first fit
	r2     float64

	cached *telemetry.OptimalSpeedResult
}

// New returns an empty Optimizer.
func New() *Optimizer {
	return &Optimizer{buf: make([]point, 0, bufferCapacity)}
}

// Add records one (speed, power) observation, filtering it to the plausible
// range, and re-fits the model every refitEvery additions once enough
// points have accumulated.
func (o *Optimizer) Add(speedMS, powerW float64) {
	if speedMS < minSpeedFilter || speedMS > maxSpeedFilter {
		return
	}
	if powerW <= 0 || powerW > maxPowerFilter {
		return
	}

	p := point{speed: speedMS, power: powerW}
	if len(o.buf) < bufferCapacity {
		o.buf = append(o.buf, p)
	} else {
		o.buf[o.writes%bufferCapacity] = p
	}
	o.writes++
	o.sinceLastFit++

	if len(o.buf) >= minFitCount && o.sinceLastFit >= refitEvery {
		o.refit()
		o.sinceLastFit = 0
	}
}

// refit performs the degree-3 least-squares fit and recomputes the cached
// result. Failures to solve (e.g. degenerate input) leave the prior result
// in place.
func (o *Optimizer) refit() {
	n := len(o.buf)
	a := mat.NewDense(n, 4, nil)
	b := mat.NewVecDense(n, nil)
	minSpeed, maxSpeed := math.Inf(1), math.Inf(-1)
	for i, p := range o.buf {
		x := p.speed
		a.Set(i, 0, 1)
		a.Set(i, 1, x)
		a.Set(i, 2, x*x)
		a.Set(i, 3, x*x*x)
		b.SetVec(i, p.power)
		if x < minSpeed {
			minSpeed = x
		}
		if x > maxSpeed {
			maxSpeed = x
		}
	}

	var qr mat.QR
	qr.Factorize(a)
	var coeffs mat.VecDense
	if err := qr.SolveVecTo(&coeffs, false, b); err != nil {
		return
	}

	c := []float64{coeffs.AtVec(0), coeffs.AtVec(1), coeffs.AtVec(2), coeffs.AtVec(3)}

	estimates := make([]float64, n)
	observed := make([]float64, n)
	for i, p := range o.buf {
		estimates[i] = evalPoly(c, p.speed)
		observed[i] = p.power
	}
	r2 := stat.RSquared(estimates, observed, nil)

	o.coeffs = c
	o.r2 = r2
	o.cached = o.computeResult(minSpeed, maxSpeed, n, r2)
}

func evalPoly(c []float64, x float64) float64 {
	return c[0] + c[1]*x + c[2]*x*x + c[3]*x*x*x
}

func (o *Optimizer) computeResult(minSpeed, maxSpeed float64, count int, r2 float64) *telemetry.OptimalSpeedResult {
	lo := math.Max(minSpeedFilter, minSpeed)
	hi := math.Min(maxSpeedFilter, maxSpeed)
	if hi < lo {
		return nil
	}

	var bestSpeed, bestEnergyPerMeter float64
	found := false
	for s := lo; s <= hi; s += sweepStep {
		power := evalPoly(o.coeffs, s)
		if power <= 0 {
			continue
		}
		energyPerMeter := power / s
		if !found || energyPerMeter < bestEnergyPerMeter {
			bestEnergyPerMeter = energyPerMeter
			bestSpeed = s
			found = true
		}
	}
	if !found {
		return nil
	}

	confidence := 0.5 * math.Min(1, float64(count)/100)
	if r2 > 0.5 {
		confidence += 0.5 * math.Max(0, r2)
	}
	if confidence < 0.3 {
		return nil
	}

	bestPower := evalPoly(o.coeffs, bestSpeed)
	var efficiency float64
	if bestPower > 0 {
		efficiency = 3600 * bestSpeed / bestPower
	}
	if efficiency <= 0 || efficiency >= maxPlausibleEfficiency {
		return nil
	}

	return &telemetry.OptimalSpeedResult{
		SpeedMS:            bestSpeed,
		EfficiencyKmPerKWh: efficiency,
		Confidence:         confidence,
		SampleCount:        count,
	}
}

// Result returns the current estimate, or nil when no fit meets the
// reporting confidence threshold yet.
func (o *Optimizer) Result() *telemetry.OptimalSpeedResult {
	return o.cached
}
