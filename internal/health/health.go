// Package health implements ConnectionHealth (C10): per-channel liveness
// counters consulted by the HealthMonitorTask and the reconnect policy.
package health

import (
	"sync"
	"time"

	"github.com/banshee-data/telemetry-bridge/internal/timeutil"
)

// ErrorRateWindow is the decay window used for the per-minute error rate.
const ErrorRateWindow = time.Minute

// ConnectionHealth tracks liveness for one channel (source, sink, or
// database). Safe for concurrent use.
type ConnectionHealth struct {
	clock timeutil.Clock

	mu                   sync.Mutex
	connected            bool
	haveLastMessage      bool
	lastMessageTime      time.Time
	reconnectAttempts    int
	totalReconnects      int
	messagesSinceConnect uint64
	errorCount           uint64
	errorRate            float64
	lastErrorTime         time.Time
	errorWindowStart      time.Time
	errorWindowCount      uint64
}

// New constructs a ConnectionHealth, initially disconnected.
func New(clock timeutil.Clock) *ConnectionHealth {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &ConnectionHealth{clock: clock}
}

// MarkConnected records a successful (re)connect, resetting reconnect
// attempts and incrementing the lifetime total when attempts were in
// progress.
func (h *ConnectionHealth) MarkConnected() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected = true
	if h.reconnectAttempts > 0 {
		h.totalReconnects++
	}
	h.reconnectAttempts = 0
	h.messagesSinceConnect = 0
}

// MarkDisconnected flips the channel to disconnected without touching
// reconnect counters.
func (h *ConnectionHealth) MarkDisconnected() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected = false
}

// IsConnected reports the current connection state.
func (h *ConnectionHealth) IsConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

// RecordMessage updates the liveness timestamp and per-connection message
// count; call on every successfully received or published message.
func (h *ConnectionHealth) RecordMessage() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.haveLastMessage = true
	h.lastMessageTime = h.clock.Now()
	h.messagesSinceConnect++
}

// IsStale reports whether a message has ever been seen and the time since
// the last one exceeds timeout. A channel that has never seen a message is
// never stale — there's nothing to watch yet.
func (h *ConnectionHealth) IsStale(timeout time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.haveLastMessage {
		return false
	}
	return h.clock.Now().Sub(h.lastMessageTime) > timeout
}

// RecordError increments the lifetime error count and updates a decaying
// per-minute error rate computed over a rolling window.
func (h *ConnectionHealth) RecordError() {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	h.errorCount++
	h.lastErrorTime = now

	if h.errorWindowStart.IsZero() || now.Sub(h.errorWindowStart) > ErrorRateWindow {
		h.errorWindowStart = now
		h.errorWindowCount = 0
	}
	h.errorWindowCount++
	elapsed := now.Sub(h.errorWindowStart).Minutes()
	if elapsed < 1.0/60 {
		elapsed = 1.0 / 60
	}
	h.errorRate = float64(h.errorWindowCount) / elapsed
}

// ResetForReconnect zeroes session-scoped counters and records one more
// reconnect attempt, ahead of an actual attempt being made.
func (h *ConnectionHealth) ResetForReconnect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reconnectAttempts++
	h.messagesSinceConnect = 0
	h.connected = false
}

// ReconnectAttempts returns the current attempt count since the last
// successful connect.
func (h *ConnectionHealth) ReconnectAttempts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reconnectAttempts
}

// Snapshot is an immutable view of the counters, for stats emission.
type Snapshot struct {
	Connected            bool
	LastMessageTime       time.Time
	ReconnectAttempts     int
	TotalReconnects       int
	MessagesSinceConnect  uint64
	ErrorCount            uint64
	ErrorRate             float64
	LastErrorTime         time.Time
}

// Snapshot returns a copy of the current counters.
func (h *ConnectionHealth) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Snapshot{
		Connected:            h.connected,
		LastMessageTime:      h.lastMessageTime,
		ReconnectAttempts:    h.reconnectAttempts,
		TotalReconnects:      h.totalReconnects,
		MessagesSinceConnect: h.messagesSinceConnect,
		ErrorCount:           h.errorCount,
		ErrorRate:            h.errorRate,
		LastErrorTime:        h.lastErrorTime,
	}
}
