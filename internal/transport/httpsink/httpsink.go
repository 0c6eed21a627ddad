// Package httpsink implements transport.Sink as an HTTP POST per event,
// the reference republish backend used when no richer pub/sub broker is
// configured.
package httpsink

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/banshee-data/telemetry-bridge/internal/httputil"
)

// Config names the HTTP endpoint events are posted to.
type Config struct {
	BaseURL string
}

// Sink posts each event as a JSON body to <BaseURL>/<channel>/<event>.
type Sink struct {
	cfg    Config
	client httputil.HTTPClient

	mu        sync.Mutex
	connected bool
}

// New constructs a Sink using client (pass nil for the standard library
// default).
func New(cfg Config, client httputil.HTTPClient) *Sink {
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}
	return &Sink{cfg: cfg, client: client}
}

// Connect performs a liveness probe against the base URL.
func (s *Sink) Connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("httpsink: build probe request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("httpsink: connect: %w", err)
	}
	resp.Body.Close()

	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	return nil
}

// Close marks the sink disconnected; there is no persistent connection to
// release for a stateless HTTP backend.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

// Connected reports the last-known liveness state.
func (s *Sink) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Publish POSTs payload to <BaseURL>/<channel>/<event>.
func (s *Sink) Publish(channel, event string, payload []byte) error {
	url := fmt.Sprintf("%s/%s/%s", s.cfg.BaseURL, channel, event)
	resp, err := s.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
		return fmt.Errorf("httpsink: publish: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("httpsink: publish: server returned %d", resp.StatusCode)
	}
	return nil
}
