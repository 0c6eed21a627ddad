package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/banshee-data/telemetry-bridge/internal/health"
	"github.com/banshee-data/telemetry-bridge/internal/monitoring"
	"github.com/banshee-data/telemetry-bridge/internal/timeutil"
)

// reconnector runs the exclusion-guarded reconnect policy (§4.11.a) for one
// channel: fail fast once attempts reach maxAttempts, otherwise delay
// min(baseDelay*2^attempts, backoffMax) before each attempt.
type reconnector struct {
	mu          sync.Mutex
	inProgress  bool
	clock       timeutil.Clock
	health      *health.ConnectionHealth
	baseDelay   time.Duration
	backoffMax  time.Duration
	maxAttempts int
}

func newReconnector(clock timeutil.Clock, h *health.ConnectionHealth, baseDelay, backoffMax time.Duration, maxAttempts int) *reconnector {
	return &reconnector{clock: clock, health: h, baseDelay: baseDelay, backoffMax: backoffMax, maxAttempts: maxAttempts}
}

// Attempt runs connect() under the exclusion guard, waiting the
// appropriate backoff first. It is a no-op (returning false) if a reconnect
// is already in progress or the attempt cap has been reached.
func (r *reconnector) Attempt(ctx context.Context, name string, connect func(ctx context.Context) error) bool {
	r.mu.Lock()
	if r.inProgress {
		r.mu.Unlock()
		return false
	}
	attempts := r.health.ReconnectAttempts()
	if attempts >= r.maxAttempts {
		r.mu.Unlock()
		return false
	}
	r.inProgress = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inProgress = false
		r.mu.Unlock()
	}()

	delay := r.baseDelay << attempts
	if delay > r.backoffMax || delay <= 0 {
		delay = r.backoffMax
	}
	r.clock.Sleep(delay)

	r.health.ResetForReconnect()
	if err := connect(ctx); err != nil {
		r.health.RecordError()
		monitoring.Logf("bridge: %s reconnect attempt failed: %v", name, err)
		return false
	}
	r.health.MarkConnected()
	return true
}
