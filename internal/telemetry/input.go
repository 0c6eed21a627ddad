package telemetry

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// InputSample is the raw, parse-boundary shape of an incoming message.
// Every field is a pointer so the Normalizer can distinguish "the source
// omitted this field" from "the source sent an explicit zero" — the
// distinction the percent/ratio reconciliation rule depends on. Represent
// the sample as this tagged record with explicit optional fields rather
// than a free-form map; the free-form shape lives only at the JSON/binary
// decode seam.
type InputSample struct {
	SessionID   *string `json:"session_id,omitempty"`
	SessionName *string `json:"session_name,omitempty"`
	MessageID   *uint32 `json:"message_id,omitempty"`
	Timestamp   *string `json:"timestamp,omitempty"`

	VoltageV *float64 `json:"voltage_v,omitempty"`
	CurrentA *float64 `json:"current_a,omitempty"`
	PowerW   *float64 `json:"power_w,omitempty"`
	EnergyJ  *float64 `json:"energy_j,omitempty"`

	SpeedMS     *float64 `json:"speed_ms,omitempty"`
	DistanceM   *float64 `json:"distance_m,omitempty"`
	Throttle    *float64 `json:"throttle,omitempty"`
	Brake       *float64 `json:"brake,omitempty"`
	ThrottlePct *float64 `json:"throttle_pct,omitempty"`
	BrakePct    *float64 `json:"brake_pct,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Altitude  *float64 `json:"altitude,omitempty"`

	GyroX *float64 `json:"gyro_x,omitempty"`
	GyroY *float64 `json:"gyro_y,omitempty"`
	GyroZ *float64 `json:"gyro_z,omitempty"`

	AccelX *float64 `json:"accel_x,omitempty"`
	AccelY *float64 `json:"accel_y,omitempty"`
	AccelZ *float64 `json:"accel_z,omitempty"`

	TotalAcceleration *float64 `json:"total_acceleration,omitempty"`

	DataSource *string `json:"data_source,omitempty"`
}

// binaryLayoutSize is the fixed fallback wire size: 6 little-endian float32
// fields plus one little-endian uint32.
const binaryLayoutSize = 28

// Decode parses a raw message as JSON, falling back to the fixed binary
// layout when the payload length matches it and JSON parsing fails.
func Decode(data []byte) (*InputSample, error) {
	in, jsonErr := decodeJSON(data)
	if jsonErr == nil {
		return in, nil
	}
	if len(data) == binaryLayoutSize {
		return decodeBinary(data)
	}
	return nil, fmt.Errorf("telemetry: decode: %w", jsonErr)
}

func decodeJSON(data []byte) (*InputSample, error) {
	var in InputSample
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// binaryLayout mirrors the little-endian wire struct: speed_ms, voltage_v,
// current_a, latitude, longitude, altitude as float32, then message_id as
// uint32. power_w is derived on decode as voltage_v * current_a.
type binaryLayout struct {
	SpeedMS   float32
	VoltageV  float32
	CurrentA  float32
	Latitude  float32
	Longitude float32
	Altitude  float32
	MessageID uint32
}

func decodeBinary(data []byte) (*InputSample, error) {
	if len(data) != binaryLayoutSize {
		return nil, fmt.Errorf("telemetry: binary payload must be %d bytes, got %d", binaryLayoutSize, len(data))
	}
	var layout binaryLayout
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &layout); err != nil {
		return nil, fmt.Errorf("telemetry: binary decode: %w", err)
	}

	speed := float64(layout.SpeedMS)
	voltage := float64(layout.VoltageV)
	current := float64(layout.CurrentA)
	lat := float64(layout.Latitude)
	lon := float64(layout.Longitude)
	alt := float64(layout.Altitude)
	power := voltage * current
	msgID := layout.MessageID

	return &InputSample{
		SpeedMS:   &speed,
		VoltageV:  &voltage,
		CurrentA:  &current,
		PowerW:    &power,
		Latitude:  &lat,
		Longitude: &lon,
		Altitude:  &alt,
		MessageID: &msgID,
	}, nil
}

// ErrEmptySample is returned when a parsed message carries none of the core
// fields required to treat it as a telemetry reading.
var ErrEmptySample = fmt.Errorf("telemetry: sample has none of speed_ms, voltage_v, current_a")

// Validate checks that the input carries at least one of the core fields
// the external interface requires, and coerces any non-finite float field
// to zero in place.
func Validate(in *InputSample) error {
	if in.SpeedMS == nil && in.VoltageV == nil && in.CurrentA == nil {
		return ErrEmptySample
	}
	coerceFinite(in.VoltageV)
	coerceFinite(in.CurrentA)
	coerceFinite(in.PowerW)
	coerceFinite(in.EnergyJ)
	coerceFinite(in.SpeedMS)
	coerceFinite(in.DistanceM)
	coerceFinite(in.Throttle)
	coerceFinite(in.Brake)
	coerceFinite(in.ThrottlePct)
	coerceFinite(in.BrakePct)
	coerceFinite(in.Latitude)
	coerceFinite(in.Longitude)
	coerceFinite(in.Altitude)
	coerceFinite(in.GyroX)
	coerceFinite(in.GyroY)
	coerceFinite(in.GyroZ)
	coerceFinite(in.AccelX)
	coerceFinite(in.AccelY)
	coerceFinite(in.AccelZ)
	coerceFinite(in.TotalAcceleration)
	return nil
}

func coerceFinite(v *float64) {
	if v == nil {
		return
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		*v = 0
	}
}

// FiniteOrZero returns v, or 0 if v is NaN or infinite.
func FiniteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
