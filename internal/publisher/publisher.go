// Package publisher implements the RateLimitedPublisher (C9): a token
// bucket fronting a bounded FIFO overflow queue, so a burst of outgoing
// telemetry never blocks the ingest path.
package publisher

import (
	"sync"
	"time"

	"github.com/banshee-data/telemetry-bridge/internal/timeutil"
)

// Sink is the narrow publish capability the RepublishTask drains into.
// Implementations cover the live transport and, in tests, an in-memory
// recorder.
type Sink interface {
	Publish(channel, event string, payload []byte) error
}

// Config fixes the token bucket and overflow queue sizing.
type Config struct {
	Rate      float64 // tokens/s
	Burst     int
	QueueSize int
}

// DefaultConfig matches the external-interfaces defaults.
func DefaultConfig() Config {
	return Config{Rate: 500, Burst: 100, QueueSize: 10000}
}

type queued struct {
	channel string
	event   string
	payload []byte
}

// Stats is a snapshot of lifetime publisher counters.
type Stats struct {
	QueueDepth       int
	BurstEvents      uint64
	Delayed          uint64
	Dropped          uint64
	Published        uint64
	DrainCycles      uint64
	AvailableTokens  float64
}

// Publisher is safe for concurrent use. Bucket inspection never blocks;
// publish attempts (the network call) happen outside the bucket lock.
type Publisher struct {
	cfg   Config
	clock timeutil.Clock

	bucketMu   sync.Mutex
	tokens     float64
	lastRefill time.Time

	queueMu sync.Mutex
	queue   []queued

	statsMu sync.Mutex
	stats   Stats
}

// New constructs a Publisher with a full bucket.
func New(cfg Config, clock timeutil.Clock) *Publisher {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Publisher{
		cfg:        cfg,
		clock:      clock,
		tokens:     float64(cfg.Burst),
		lastRefill: clock.Now(),
	}
}

// Stats returns a snapshot of lifetime counters plus current queue depth
// and available tokens.
func (p *Publisher) Stats() Stats {
	p.statsMu.Lock()
	snap := p.stats
	p.statsMu.Unlock()

	p.queueMu.Lock()
	snap.QueueDepth = len(p.queue)
	p.queueMu.Unlock()

	p.bucketMu.Lock()
	snap.AvailableTokens = p.refillLocked()
	p.bucketMu.Unlock()

	return snap
}

// refillLocked adds (now-lastRefill)*rate tokens, capped at burst, and
// returns the resulting token count. Caller holds bucketMu.
func (p *Publisher) refillLocked() float64 {
	now := p.clock.Now()
	elapsed := now.Sub(p.lastRefill).Seconds()
	if elapsed > 0 {
		p.tokens += elapsed * p.cfg.Rate
		if p.tokens > float64(p.cfg.Burst) {
			p.tokens = float64(p.cfg.Burst)
		}
		p.lastRefill = now
	}
	return p.tokens
}

// tryConsumeToken attempts to take one token, refilling first.
func (p *Publisher) tryConsumeToken() bool {
	p.bucketMu.Lock()
	defer p.bucketMu.Unlock()
	p.refillLocked()
	if p.tokens >= 1 {
		p.tokens--
		return true
	}
	return false
}

// Publish consumes a token and publishes immediately when one is
// available; otherwise it enqueues for the next drain. A publish failure
// also enqueues the message for retry. Only a full overflow queue causes a
// failure return, which is counted as a drop.
func (p *Publisher) Publish(sink Sink, channel, event string, payload []byte) bool {
	if p.tryConsumeToken() {
		if err := sink.Publish(channel, event, payload); err == nil {
			p.incr(func(s *Stats) { s.Published++ })
			return true
		}
	} else {
		p.incr(func(s *Stats) { s.Delayed++ })
	}
	return p.enqueue(channel, event, payload)
}

func (p *Publisher) enqueue(channel, event string, payload []byte) bool {
	p.queueMu.Lock()
	defer p.queueMu.Unlock()
	if len(p.queue) >= p.cfg.QueueSize {
		p.incr(func(s *Stats) { s.Dropped++ })
		return false
	}
	p.queue = append(p.queue, queued{channel: channel, event: event, payload: payload})
	return true
}

// Drain pops and publishes as many queued messages as the token bucket
// permits, stopping at the first send failure (the message is re-enqueued
// best-effort) or once the queue empties.
func (p *Publisher) Drain(sink Sink) {
	p.incr(func(s *Stats) { s.DrainCycles++ })
	for {
		item, ok := p.popFront()
		if !ok {
			return
		}
		if !p.tryConsumeToken() {
			p.pushFront(item)
			return
		}
		if err := sink.Publish(item.channel, item.event, item.payload); err != nil {
			p.pushFront(item)
			return
		}
		p.incr(func(s *Stats) { s.Published++ })
	}
}

func (p *Publisher) popFront() (queued, bool) {
	p.queueMu.Lock()
	defer p.queueMu.Unlock()
	if len(p.queue) == 0 {
		return queued{}, false
	}
	item := p.queue[0]
	p.queue = p.queue[1:]
	return item, true
}

func (p *Publisher) pushFront(item queued) {
	p.queueMu.Lock()
	defer p.queueMu.Unlock()
	p.queue = append([]queued{item}, p.queue...)
}

func (p *Publisher) incr(f func(*Stats)) {
	p.statsMu.Lock()
	f(&p.stats)
	p.statsMu.Unlock()
}
