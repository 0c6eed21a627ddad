package serialsource

import "testing"

func TestDefaultConfigUsesESP32Baud(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyUSB0")
	if cfg.Port != "/dev/ttyUSB0" {
		t.Errorf("Port = %q, want /dev/ttyUSB0", cfg.Port)
	}
	if cfg.BaudRate != 115200 {
		t.Errorf("BaudRate = %d, want 115200", cfg.BaudRate)
	}
}

func TestNewSourceStartsDisconnected(t *testing.T) {
	s := New(DefaultConfig("/dev/ttyUSB0"))
	if s.Connected() {
		t.Error("Connected() = true before Connect() was called")
	}
}

func TestCloseBeforeConnectIsNoop(t *testing.T) {
	s := New(DefaultConfig("/dev/ttyUSB0"))
	if err := s.Close(); err != nil {
		t.Errorf("Close() before Connect() = %v, want nil", err)
	}
}
