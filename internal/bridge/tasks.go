package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/banshee-data/telemetry-bridge/internal/monitoring"
	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
)

// ingestTask consumes the live source's raw message channel until the
// source closes it or shutdown is signaled.
func (b *Bridge) ingestTask(ctx context.Context) {
	defer b.wg.Done()
	messages := b.deps.Source.Messages()
	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case payload, ok := <-messages:
			if !ok {
				b.sourceHealth.MarkDisconnected()
				return
			}
			b.handleRawMessage(payload)
			b.sourceHealth.RecordMessage()
		}
	}
}

// mockTask drives the synthetic generator at the configured tick period
// instead of a live source.
func (b *Bridge) mockTask(ctx context.Context) {
	defer b.wg.Done()
	ticker := b.deps.Clock.NewTicker(b.cfg.GetMockDataInterval())
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C():
			in, ok := b.deps.Generator.Generate()
			if !ok {
				continue
			}
			b.processInput(in)
			b.sourceHealth.RecordMessage()
		}
	}
}

func (b *Bridge) handleRawMessage(payload []byte) {
	in, err := telemetry.Decode(payload)
	if err != nil {
		b.stats.ParseErrors.Add(1)
		return
	}
	if err := telemetry.Validate(in); err != nil {
		b.stats.ValidationErrors.Add(1)
		return
	}
	b.processInput(in)
}

// processInput runs one sample through normalize -> journal -> republish
// enqueue -> DB buffer append, strictly sequential per the ordering rule.
func (b *Bridge) processInput(in *telemetry.InputSample) {
	s := b.normalizer.Normalize(in)
	b.stats.MessagesIngested.Add(1)

	if err := b.journal.Append(s); err != nil {
		monitoring.Logf("bridge: journal append failed: %v", err)
	}

	payload, err := json.Marshal(s)
	if err != nil {
		monitoring.Logf("bridge: marshal sample for republish failed: %v", err)
	} else {
		droppedBefore := b.republish.Dropped()
		b.republish.Push(payload)
		if b.republish.Dropped() > droppedBefore {
			b.stats.MessagesDropped.Add(1)
		}
	}

	b.dbBuf.Append(s)
}

// republishTask drains the publisher overflow, then pulls up to 20
// messages from the republish queue per pass, sleeping between passes.
func (b *Bridge) republishTask(ctx context.Context) {
	defer b.wg.Done()
	const batchPerPass = 20

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if !b.sinkHealth.IsConnected() {
			b.sinkReconnect.Attempt(ctx, "sink", b.deps.Sink.Connect)
			b.deps.Clock.Sleep(b.cfg.GetPublishDrainInterval())
			continue
		}

		b.publisher.Drain(sinkAdapter{b})

		for _, payload := range b.republish.PopUpTo(batchPerPass) {
			if ok := b.publisher.Publish(sinkAdapter{b}, RepublishChannel, RepublishEvent, payload); !ok {
				b.stats.MessagesDropped.Add(1)
			}
		}

		b.deps.Clock.Sleep(50 * time.Millisecond)
	}
}

// sinkAdapter bridges transport.Sink (Publish returns error) to
// publisher.Sink, recording health and disconnect state on failure.
type sinkAdapter struct{ b *Bridge }

func (a sinkAdapter) Publish(channel, event string, payload []byte) error {
	err := a.b.deps.Sink.Publish(channel, event, payload)
	if err != nil {
		a.b.sinkHealth.RecordError()
		a.b.sinkHealth.MarkDisconnected()
		return err
	}
	a.b.sinkHealth.RecordMessage()
	return nil
}

// dbWriterTask flushes the DB buffer on a fixed interval, retrying any
// spilled batches whose backoff has elapsed first.
func (b *Bridge) dbWriterTask(ctx context.Context) {
	defer b.wg.Done()
	ticker := b.deps.Clock.NewTicker(b.cfg.GetDBBatchInterval())
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C():
			b.retryDueBatches(ctx)
			b.flushDBBuffer(ctx)
		}
	}
}

func (b *Bridge) retryDueBatches(ctx context.Context) {
	due, err := b.spillStore.Due(b.deps.Clock.Now())
	if err != nil {
		monitoring.Logf("bridge: query retry queue failed: %v", err)
		return
	}
	for _, batch := range due {
		if err := b.deps.DB.InsertBatch(ctx, batch.Records); err != nil {
			b.dbHealth.RecordError()
			b.spillStore.Reschedule(batch.ID, batch.Backoff, b.deps.Clock.Now())
			continue
		}
		b.spillStore.Remove(batch.ID)
		b.stats.BatchesWritten.Add(1)
		b.stats.RecordsWritten.Add(uint64(len(batch.Records)))
	}
}

func (b *Bridge) flushDBBuffer(ctx context.Context) {
	records := b.dbBuf.SnapshotAndClear()
	if len(records) == 0 {
		return
	}
	maxBatch := b.cfg.GetMaxBatchSize()
	for start := 0; start < len(records); start += maxBatch {
		end := start + maxBatch
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]
		if err := b.deps.DB.InsertBatch(ctx, chunk); err != nil {
			b.dbHealth.RecordError()
			b.stats.BatchesFailed.Add(1)
			b.spillStore.Enqueue(chunk, b.cfg.GetRetryBaseBackoff(), b.deps.Clock.Now())
			continue
		}
		b.stats.BatchesWritten.Add(1)
		b.stats.RecordsWritten.Add(uint64(len(chunk)))
	}
}

// finalDBFlush runs one last buffer flush during shutdown.
func (b *Bridge) finalDBFlush() {
	b.flushDBBuffer(context.Background())
}

// healthMonitorTask polls source/sink liveness and triggers reconnects.
func (b *Bridge) healthMonitorTask(ctx context.Context) {
	defer b.wg.Done()
	ticker := b.deps.Clock.NewTicker(b.cfg.GetHealthCheckInterval())
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C():
			if b.deps.Source != nil {
				if b.sourceHealth.IsStale(b.cfg.GetWatchdogTimeout()) {
					b.sourceReconnect.Attempt(ctx, "source", b.deps.Source.Connect)
				}
				if !b.deps.Source.Connected() {
					b.sourceHealth.MarkDisconnected()
				}
			}
			if !b.deps.Sink.Connected() {
				b.sinkHealth.MarkDisconnected()
			}
		}
	}
}

// statsTask emits a periodic summary of lifetime counters.
func (b *Bridge) statsTask(ctx context.Context) {
	defer b.wg.Done()
	ticker := b.deps.Clock.NewTicker(b.cfg.GetStatsInterval())
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C():
			s := b.stats.Snapshot()
			monitoring.Logf(
				"bridge stats: ingested=%d parse_errors=%d validation_errors=%d dropped=%d batches_written=%d batches_failed=%d records_written=%d queue_depth=%d",
				s.MessagesIngested, s.ParseErrors, s.ValidationErrors, s.MessagesDropped,
				s.BatchesWritten, s.BatchesFailed, s.RecordsWritten, b.republish.Len(),
			)
		}
	}
}
