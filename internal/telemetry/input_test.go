package telemetry

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func TestDecodeJSON(t *testing.T) {
	in, err := Decode([]byte(`{"speed_ms": 12.5, "voltage_v": 48.1}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if in.SpeedMS == nil || *in.SpeedMS != 12.5 {
		t.Fatalf("SpeedMS = %v, want 12.5", in.SpeedMS)
	}
	if in.CurrentA != nil {
		t.Fatalf("CurrentA = %v, want nil (omitted)", in.CurrentA)
	}
}

func TestDecodeBinaryFallback(t *testing.T) {
	var buf bytes.Buffer
	layout := binaryLayout{
		SpeedMS:   10,
		VoltageV:  48,
		CurrentA:  5,
		Latitude:  37.1,
		Longitude: -122.2,
		Altitude:  12,
		MessageID: 42,
	}
	if err := binary.Write(&buf, binary.LittleEndian, layout); err != nil {
		t.Fatalf("binary.Write: %v", err)
	}
	if buf.Len() != binaryLayoutSize {
		t.Fatalf("test fixture length = %d, want %d", buf.Len(), binaryLayoutSize)
	}

	in, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if in.SpeedMS == nil || *in.SpeedMS != 10 {
		t.Fatalf("SpeedMS = %v, want 10", in.SpeedMS)
	}
	if in.PowerW == nil || *in.PowerW != 240 {
		t.Fatalf("PowerW = %v, want 240 (derived voltage*current)", in.PowerW)
	}
	if in.MessageID == nil || *in.MessageID != 42 {
		t.Fatalf("MessageID = %v, want 42", in.MessageID)
	}
}

func TestValidateRejectsEmptySample(t *testing.T) {
	in := &InputSample{}
	if err := Validate(in); err != ErrEmptySample {
		t.Fatalf("Validate() error = %v, want ErrEmptySample", err)
	}
}

func TestValidateCoercesNonFinite(t *testing.T) {
	nan := math.NaN()
	inf := math.Inf(1)
	speed := 5.0
	in := &InputSample{SpeedMS: &speed, VoltageV: &nan, CurrentA: &inf}
	if err := Validate(in); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if *in.VoltageV != 0 {
		t.Errorf("VoltageV = %v, want 0 after coercion", *in.VoltageV)
	}
	if *in.CurrentA != 0 {
		t.Errorf("CurrentA = %v, want 0 after coercion", *in.CurrentA)
	}
}
