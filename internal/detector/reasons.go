package detector

// Reason codes attached to a flagged field, naming which check fired.
const (
	ReasonAbsoluteBound     = "ABSOLUTE_BOUND"
	ReasonZScoreExceeded    = "Z_SCORE_EXCEEDED"
	ReasonSuddenJump        = "SUDDEN_JUMP"
	ReasonMagnitudeExceeded = "MAGNITUDE_EXCEEDED"
	ReasonRateOfChange      = "RATE_OF_CHANGE"
	ReasonGPSSpeedMismatch  = "GPS_SPEED_MISMATCH"
	ReasonImpossibleSpeed   = "IMPOSSIBLE_SPEED"
	ReasonAltitudeRate      = "ALTITUDE_RATE"
	ReasonNegativeValue     = "NEGATIVE_VALUE"
	ReasonNonMonotonic      = "NON_MONOTONIC"
	ReasonImplausibleIncrease = "IMPLAUSIBLE_INCREASE"
	ReasonStuckSensor       = "STUCK_SENSOR"
)

// Severity levels, in ascending order of urgency.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Field names used as map keys in Outliers.Confidence/Reasons, matching the
// sample's JSON field names.
const (
	FieldVoltage   = "voltage_v"
	FieldCurrent   = "current_a"
	FieldPower     = "power_w"
	FieldGyroX     = "gyro_x"
	FieldGyroY     = "gyro_y"
	FieldGyroZ     = "gyro_z"
	FieldAccelX    = "accel_x"
	FieldAccelY    = "accel_y"
	FieldAccelZ    = "accel_z"
	FieldSpeed     = "speed_ms"
	FieldLatitude  = "latitude"
	FieldLongitude = "longitude"
	FieldAltitude  = "altitude"
	FieldEnergy    = "energy_j"
	FieldDistance  = "distance_m"
)

// criticalFields are the three whose flagging always raises severity to
// critical, per the severity rule.
var criticalFields = map[string]bool{
	FieldVoltage: true,
	FieldCurrent: true,
	FieldPower:   true,
}
