// Package report renders a session trend chart to PNG once a session ends,
// giving an operator a quick visual sanity check alongside the CSV export.
package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
	"github.com/banshee-data/telemetry-bridge/internal/units"
)

// Point is one (time-offset, value) sample along a trend line.
type Point struct {
	SecondsSinceStart float64
	Value             float64
}

// SessionTrend renders speed, power, and energy over the session to a
// single PNG, as three lines sharing one set of axes. speedUnit
// selects the display unit for the speed line (units.MPS/MPH/KMPH/KPH);
// an invalid or empty value falls back to km/h.
func SessionTrend(samples []*telemetry.Sample, outputPath, speedUnit string) error {
	if len(samples) == 0 {
		return fmt.Errorf("report: no samples to plot")
	}
	if !units.IsValid(speedUnit) {
		speedUnit = units.KMPH
	}

	start := samples[0].Timestamp
	speedPts := make(plotter.XYs, len(samples))
	powerPts := make(plotter.XYs, len(samples))
	energyPts := make(plotter.XYs, len(samples))

	for i, s := range samples {
		t := s.Timestamp.Sub(start).Seconds()
		speedPts[i].X, speedPts[i].Y = t, units.ConvertSpeed(s.SpeedMS, speedUnit)
		powerPts[i].X, powerPts[i].Y = t, s.PowerW
		energyPts[i].X, energyPts[i].Y = t, s.EnergyJ/3.6e6
	}

	p := plot.New()
	p.Title.Text = "Session trend"
	p.X.Label.Text = "seconds"
	p.Y.Label.Text = fmt.Sprintf("speed (%s) / power (W) / energy (kWh)", speedUnit)

	speedLine, err := plotter.NewLine(speedPts)
	if err != nil {
		return fmt.Errorf("report: speed line: %w", err)
	}

	powerLine, err := plotter.NewLine(powerPts)
	if err != nil {
		return fmt.Errorf("report: power line: %w", err)
	}

	energyLine, err := plotter.NewLine(energyPts)
	if err != nil {
		return fmt.Errorf("report: energy line: %w", err)
	}

	p.Add(speedLine, powerLine, energyLine)
	p.Legend.Add(fmt.Sprintf("speed (%s)", speedUnit), speedLine)
	p.Legend.Add("power (W)", powerLine)
	p.Legend.Add("energy (kWh)", energyLine)

	if err := p.Save(12*vg.Inch, 6*vg.Inch, outputPath); err != nil {
		return fmt.Errorf("report: save %s: %w", outputPath, err)
	}
	return nil
}
