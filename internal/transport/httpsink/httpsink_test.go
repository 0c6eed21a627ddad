package httpsink

import (
	"context"
	"errors"
	"testing"

	"github.com/banshee-data/telemetry-bridge/internal/httputil"
)

var errTransport = errors.New("simulated transport failure")

func TestConnectMarksConnectedOnSuccess(t *testing.T) {
	client := httputil.NewMockHTTPClient().AddResponse(200, "ok")
	s := New(Config{BaseURL: "http://sink.local"}, client)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !s.Connected() {
		t.Error("Connected() = false after a successful probe")
	}
}

func TestPublishPostsToChannelEventPath(t *testing.T) {
	client := httputil.NewMockHTTPClient().AddResponse(200, "ok").AddResponse(200, "accepted")
	s := New(Config{BaseURL: "http://sink.local"}, client)
	s.Connect(context.Background())

	if err := s.Publish("telemetry", "telemetry_update", []byte(`{"speed":1}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	req := client.GetRequest(1)
	if req == nil {
		t.Fatal("no request recorded for Publish")
	}
	if want := "http://sink.local/telemetry/telemetry_update"; req.URL.String() != want {
		t.Errorf("request URL = %q, want %q", req.URL.String(), want)
	}
}

func TestPublishMarksDisconnectedOnTransportError(t *testing.T) {
	client := httputil.NewMockHTTPClient()
	client.AddResponse(200, "ok")
	s := New(Config{BaseURL: "http://sink.local"}, client)
	s.Connect(context.Background())

	client.AddErrorResponse(errTransport)
	if err := s.Publish("telemetry", "telemetry_update", []byte(`{}`)); err == nil {
		t.Fatal("expected publish error")
	}
	if s.Connected() {
		t.Error("Connected() = true after a transport error")
	}
}

func TestPublishErrorsOnServerFailure(t *testing.T) {
	client := httputil.NewMockHTTPClient().AddResponse(200, "ok").AddResponse(500, "boom")
	s := New(Config{BaseURL: "http://sink.local"}, client)
	s.Connect(context.Background())

	if err := s.Publish("telemetry", "telemetry_update", []byte(`{}`)); err == nil {
		t.Fatal("expected error for 5xx response")
	}
}
