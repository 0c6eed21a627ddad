// Package telemetry defines the canonical sample shape that flows through
// the enrichment pipeline, plus the parse-boundary input shape and wire
// decoders described in the external interfaces section.
package telemetry

import "time"

// Outliers is the Detector's verdict for one sample. It is embedded as a
// pointer on Sample so "no anomalies" serializes as a JSON null/absent field
// rather than an empty-but-present object.
type Outliers struct {
	FlaggedFields []string           `json:"flagged_fields"`
	Confidence    map[string]float64 `json:"confidence"`
	Reasons       map[string]string  `json:"reasons"`
	Severity      string             `json:"severity"`
}

// Peak is a local maximum of current or acceleration magnitude recorded by
// the Calculator once it clears a dynamic threshold.
type Peak struct {
	Timestamp      time.Time `json:"timestamp"`
	Value          float64   `json:"value"`
	Threshold      float64   `json:"threshold"`
	MotionState    string    `json:"motion_state"`
	AccelMagnitude float64   `json:"accel_magnitude"`
	Severity       string    `json:"severity"` // high | medium | low
}

// PeaksSummary exposes the most recent peaks plus the lifetime count, since
// only the last 50 are retained in full.
type PeaksSummary struct {
	Recent []Peak `json:"recent"`
	Count  int    `json:"count"`
}

// SpeedRange is a half-open [Low, Hi) m/s bucket.
type SpeedRange struct {
	Low float64 `json:"low"`
	Hi  float64 `json:"hi"`
}

// OptimalSpeedResult is the OptimalSpeedOptimizer's current estimate. It is
// only meaningful when Confidence >= 0.3 (checked by the caller before
// attaching it to a sample).
type OptimalSpeedResult struct {
	SpeedMS          float64 `json:"speed_ms"`
	EfficiencyKmPerKWh float64 `json:"efficiency_km_per_kwh"`
	Confidence       float64 `json:"confidence"`
	SampleCount      int     `json:"sample_count"`
}

// DerivedMetrics is the additive set of fields the Calculator (C5) attaches
// to every sample. It is embedded anonymously in Sample so its fields
// flatten into the top-level JSON object alongside the raw sample fields,
// matching the sink/database wire shape in the external interfaces.
type DerivedMetrics struct {
	EfficiencyKmPerKWh float64 `json:"efficiency_km_per_kwh,omitempty"`

	MaxSpeedKmh  float64 `json:"max_speed_kmh"`
	MaxPowerW    float64 `json:"max_power_w"`
	MaxCurrentA  float64 `json:"max_current_a"`
	MaxGForce    float64 `json:"max_g_force"`

	AvgSpeedMS    float64 `json:"avg_speed_ms"`
	AvgVoltageV   float64 `json:"avg_voltage_v"`
	AvgCurrentA   float64 `json:"avg_current_a"`
	AvgPowerW     float64 `json:"avg_power_w"`
	AvgAccelMagnitude float64 `json:"avg_accel_magnitude"`

	CumulativeEnergyKWh float64 `json:"cumulative_energy_kwh"`

	OptimalSpeedRange *SpeedRange         `json:"optimal_speed_range,omitempty"`
	OptimalSpeed      *OptimalSpeedResult `json:"optimal_speed,omitempty"`

	MotionState string `json:"motion_state"`
	DriverMode  string `json:"driver_mode"`

	ThrottleIntensity string `json:"throttle_intensity"`
	BrakeIntensity    string `json:"brake_intensity"`

	AccelMagnitude float64 `json:"accel_magnitude"`
	GForce         float64 `json:"g_force"`

	CurrentPeaks PeaksSummary `json:"current_peaks"`
	AccelPeaks   PeaksSummary `json:"accel_peaks"`

	GPSDistanceCumulativeM float64 `json:"gps_distance_cumulative_m"`
	ElevationGainM         float64 `json:"elevation_gain_m"`
}

// Sample is the canonical, fully-resolved telemetry record: the unit of
// work inside the pipeline once the Normalizer has run. DerivedMetrics is
// embedded anonymously so its fields flatten into the same JSON object,
// matching the sink message shape in the external interfaces.
type Sample struct {
	SessionID   string    `json:"session_id"`
	SessionName string    `json:"session_name"`
	MessageID   uint32    `json:"message_id"`
	Timestamp   time.Time `json:"timestamp"`

	VoltageV float64 `json:"voltage_v"`
	CurrentA float64 `json:"current_a"`
	PowerW   float64 `json:"power_w"`
	EnergyJ  float64 `json:"energy_j"`

	SpeedMS    float64 `json:"speed_ms"`
	DistanceM  float64 `json:"distance_m"`
	Throttle   float64 `json:"throttle"`
	Brake      float64 `json:"brake"`
	ThrottlePct float64 `json:"throttle_pct"`
	BrakePct    float64 `json:"brake_pct"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`

	GyroX float64 `json:"gyro_x"`
	GyroY float64 `json:"gyro_y"`
	GyroZ float64 `json:"gyro_z"`

	AccelX float64 `json:"accel_x"`
	AccelY float64 `json:"accel_y"`
	AccelZ float64 `json:"accel_z"`

	TotalAcceleration float64 `json:"total_acceleration"`

	DataSource string `json:"data_source"`

	UptimeSeconds float64 `json:"uptime_seconds"`

	Outliers *Outliers `json:"outliers,omitempty"`

	DerivedMetrics
}

// DataSource string values, matching the provenance enum in the data model.
const (
	DataSourceESP32Real = "ESP32_REAL"
	MockDataSourcePrefix = "MOCK_"
)

// FieldOrder lists the canonical CSV export columns, matching the header
// row specified for the CSV export file.
var FieldOrder = []string{
	"session_id", "session_name", "timestamp",
	"speed_ms", "voltage_v", "current_a", "power_w", "energy_j", "distance_m",
	"latitude", "longitude", "altitude",
	"gyro_x", "gyro_y", "gyro_z",
	"accel_x", "accel_y", "accel_z", "total_acceleration",
	"message_id", "uptime_seconds",
	"throttle_pct", "brake_pct", "throttle", "brake",
	"data_source",
}
