// Package transport defines the narrow Source/Sink/DBClient capabilities
// the Bridge depends on, plus in-memory implementations used by tests.
// Real transports live in the serialsource, httpsink, and httpdbclient
// subpackages.
package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
)

// ErrNotConnected is returned by Publish/InsertBatch calls made before Connect
// (or after the transport observed a disconnect).
var ErrNotConnected = errors.New("transport: not connected")

// Source is the live-data ingest capability: a connection that delivers
// raw message payloads until the context is canceled or Close is called.
type Source interface {
	Connect(ctx context.Context) error
	Close() error
	// Messages returns the channel of raw payloads. Closed when the
	// connection ends.
	Messages() <-chan []byte
	Connected() bool
}

// Sink is the republish capability: publish one event on a channel.
type Sink interface {
	Connect(ctx context.Context) error
	Close() error
	Publish(channel, event string, payload []byte) error
	Connected() bool
}

// DBClient is the batch-upload capability.
type DBClient interface {
	Connect(ctx context.Context) error
	Close() error
	InsertBatch(ctx context.Context, records []*telemetry.Sample) error
	Connected() bool
}

// MemorySource is an in-memory Source for tests: pushes whatever is fed to
// it via Feed until closed.
type MemorySource struct {
	mu        sync.Mutex
	ch        chan []byte
	connected bool
}

// NewMemorySource constructs a MemorySource with the given channel buffer.
func NewMemorySource(buffer int) *MemorySource {
	return &MemorySource{ch: make(chan []byte, buffer)}
}

func (s *MemorySource) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *MemorySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		close(s.ch)
		s.connected = false
	}
	return nil
}

func (s *MemorySource) Messages() <-chan []byte { return s.ch }

func (s *MemorySource) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Feed pushes a payload to the channel; it is a no-op if the source was
// never connected or has already been closed.
func (s *MemorySource) Feed(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return
	}
	select {
	case s.ch <- payload:
	default:
	}
}

// MemorySink is an in-memory Sink for tests, recording every publish.
type MemorySink struct {
	mu        sync.Mutex
	connected bool
	fail      bool
	published []publishedMsg
}

type publishedMsg struct {
	Channel, Event string
	Payload        []byte
}

// NewMemorySink constructs an initially disconnected MemorySink.
func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *MemorySink) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// SetFailing forces subsequent Publish calls to fail, simulating a
// transient-transport error.
func (s *MemorySink) SetFailing(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *MemorySink) Publish(channel, event string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}
	if s.fail {
		return errors.New("transport: simulated publish failure")
	}
	s.published = append(s.published, publishedMsg{channel, event, payload})
	return nil
}

// Published returns the number of messages successfully published.
func (s *MemorySink) Published() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.published)
}

// MemoryDBClient is an in-memory DBClient for tests.
type MemoryDBClient struct {
	mu        sync.Mutex
	connected bool
	fail      bool
	batches   [][]*telemetry.Sample
}

func NewMemoryDBClient() *MemoryDBClient { return &MemoryDBClient{} }

func (c *MemoryDBClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return nil
}

func (c *MemoryDBClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

func (c *MemoryDBClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// SetFailing forces subsequent InsertBatch calls to fail.
func (c *MemoryDBClient) SetFailing(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = fail
}

func (c *MemoryDBClient) InsertBatch(ctx context.Context, records []*telemetry.Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return ErrNotConnected
	}
	if c.fail {
		return errors.New("transport: simulated insert failure")
	}
	batch := make([]*telemetry.Sample, len(records))
	copy(batch, records)
	c.batches = append(c.batches, batch)
	return nil
}

// Batches returns every batch accepted so far.
func (c *MemoryDBClient) Batches() [][]*telemetry.Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]*telemetry.Sample, len(c.batches))
	copy(out, c.batches)
	return out
}
