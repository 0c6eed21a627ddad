package bridge

import (
	"sync"

	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
)

// republishQueue is a bounded FIFO of pending samples for the republish
// path. When full, Push drops the oldest entry and inserts the newest,
// trading one stale sample (still safe on disk via the journal) for
// real-time freshness.
type republishQueue struct {
	mu       sync.Mutex
	items    [][]byte
	capacity int
	dropped  uint64
}

func newRepublishQueue(capacity int) *republishQueue {
	return &republishQueue{capacity: capacity}
}

func (q *republishQueue) Push(payload []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.capacity {
		q.items = q.items[1:]
		q.dropped++
	}
	q.items = append(q.items, payload)
}

// PopUpTo removes and returns up to n items from the front of the queue.
func (q *republishQueue) PopUpTo(n int) [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > len(q.items) {
		n = len(q.items)
	}
	out := make([][]byte, n)
	copy(out, q.items[:n])
	q.items = q.items[n:]
	return out
}

func (q *republishQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *republishQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// dbBuffer accumulates normalized samples awaiting the next batch flush.
type dbBuffer struct {
	mu      sync.Mutex
	records []*telemetry.Sample
}

func (b *dbBuffer) Append(s *telemetry.Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, s)
}

// SnapshotAndClear returns every buffered record and empties the buffer
// atomically, the writer's "take a full snapshot then clear" contract.
func (b *dbBuffer) SnapshotAndClear() []*telemetry.Sample {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.records
	b.records = nil
	return out
}
