package detector

// Bounds is an inclusive [Min, Max] absolute-value range.
type Bounds struct {
	Min float64
	Max float64
}

// Config holds the tunable thresholds for every outlier check. Use
// DefaultConfig for the documented defaults; override individual fields as
// needed.
type Config struct {
	VoltageBounds Bounds
	CurrentBounds Bounds
	PowerBounds   Bounds
	AltitudeBounds Bounds

	ZScoreThreshold    float64 // Z
	JumpRatioThreshold float64 // P
	IMUMagnitudeMax    float64 // A, m/s^2
	GyroRateMax        float64 // G, deg/s
	GPSSpeedRatioMax   float64 // R
	GPSImpossibleSpeed float64 // S, m/s
	AltitudeRateMax    float64 // m/sample
	SpeedMax           float64 // m/s
	SpeedAccelMax      float64 // m/s^2
	EnergyJumpMax      float64 // J/sample
	DistanceJumpMax    float64 // m/sample
	StuckCountMax      int     // K

	RollingWindowSize int
	CostWindowSize    int
}

// DefaultConfig returns the thresholds named in the component design.
func DefaultConfig() Config {
	return Config{
		VoltageBounds:  Bounds{Min: 0, Max: 60},
		CurrentBounds:  Bounds{Min: 0, Max: 200},
		PowerBounds:    Bounds{Min: 0, Max: 15000},
		AltitudeBounds: Bounds{Min: -500, Max: 9000},

		ZScoreThreshold:    5,
		JumpRatioThreshold: 0.5,
		IMUMagnitudeMax:    80,
		GyroRateMax:        1000,
		GPSSpeedRatioMax:   20,
		GPSImpossibleSpeed: 500,
		AltitudeRateMax:    50,
		SpeedMax:           60,
		SpeedAccelMax:      50,
		EnergyJumpMax:      50000,
		DistanceJumpMax:    100,
		StuckCountMax:      15,

		RollingWindowSize: 100,
		CostWindowSize:    100,
	}
}
