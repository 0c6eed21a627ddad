package transport

import (
	"context"
	"testing"

	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
)

func TestMemorySourceFeedAndClose(t *testing.T) {
	s := NewMemorySource(4)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	s.Feed([]byte("hello"))
	msg := <-s.Messages()
	if string(msg) != "hello" {
		t.Errorf("message = %q, want hello", msg)
	}
	s.Close()
	if s.Connected() {
		t.Error("Connected() should be false after Close")
	}
}

func TestMemorySinkFailureMode(t *testing.T) {
	s := NewMemorySink()
	if err := s.Publish("telemetry", "telemetry_update", []byte("x")); err != ErrNotConnected {
		t.Fatalf("Publish before connect: got %v, want ErrNotConnected", err)
	}
	s.Connect(context.Background())
	s.SetFailing(true)
	if err := s.Publish("telemetry", "telemetry_update", []byte("x")); err == nil {
		t.Error("Publish should fail when SetFailing(true)")
	}
	s.SetFailing(false)
	if err := s.Publish("telemetry", "telemetry_update", []byte("x")); err != nil {
		t.Errorf("Publish should succeed: %v", err)
	}
	if s.Published() != 1 {
		t.Errorf("Published() = %d, want 1", s.Published())
	}
}

func TestMemoryDBClientBatching(t *testing.T) {
	c := NewMemoryDBClient()
	c.Connect(context.Background())
	batch := []*telemetry.Sample{{SessionID: "s1", MessageID: 1}}
	if err := c.InsertBatch(context.Background(), batch); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if len(c.Batches()) != 1 {
		t.Errorf("len(Batches()) = %d, want 1", len(c.Batches()))
	}
}
