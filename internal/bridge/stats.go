package bridge

import "sync/atomic"

// Stats is a lock-free snapshot of lifetime ingest/write counters, emitted
// periodically by StatsTask and exposed over the admin stats route.
type Stats struct {
	MessagesIngested atomic.Uint64
	ParseErrors      atomic.Uint64
	ValidationErrors atomic.Uint64
	MessagesDropped  atomic.Uint64

	BatchesWritten atomic.Uint64
	BatchesFailed  atomic.Uint64
	RecordsWritten atomic.Uint64
}

// Snapshot is the JSON-encodable copy returned to callers.
type Snapshot struct {
	MessagesIngested uint64 `json:"messages_ingested"`
	ParseErrors      uint64 `json:"parse_errors"`
	ValidationErrors uint64 `json:"validation_errors"`
	MessagesDropped  uint64 `json:"messages_dropped"`

	BatchesWritten uint64 `json:"batches_written"`
	BatchesFailed  uint64 `json:"batches_failed"`
	RecordsWritten uint64 `json:"records_written"`
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		MessagesIngested: s.MessagesIngested.Load(),
		ParseErrors:      s.ParseErrors.Load(),
		ValidationErrors: s.ValidationErrors.Load(),
		MessagesDropped:  s.MessagesDropped.Load(),
		BatchesWritten:   s.BatchesWritten.Load(),
		BatchesFailed:    s.BatchesFailed.Load(),
		RecordsWritten:   s.RecordsWritten.Load(),
	}
}
