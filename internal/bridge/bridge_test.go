package bridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/banshee-data/telemetry-bridge/internal/config"
	"github.com/banshee-data/telemetry-bridge/internal/fsutil"
	"github.com/banshee-data/telemetry-bridge/internal/mockgen"
	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
	"github.com/banshee-data/telemetry-bridge/internal/timeutil"
	"github.com/banshee-data/telemetry-bridge/internal/transport"
)

func newTestBridge(t *testing.T) (*Bridge, *transport.MemorySink, *transport.MemoryDBClient) {
	t.Helper()
	dir := t.TempDir()
	sink := transport.NewMemorySink()
	db := transport.NewMemoryDBClient()

	b, err := New(Deps{
		SessionID:   "session-1",
		SessionName: "test",
		Generator:   mockgen.New(mockgen.ScenarioNormal, 1),
		Sink:        sink,
		DB:          db,
		SpoolDir:    dir,
		ExportDir:   dir,
		Config:      config.Empty(),
		Clock:       timeutil.NewMockClock(time.Unix(0, 0)),
		FS:          fsutil.OSFileSystem{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		b.journal.Close()
		b.spillStore.Close()
	})
	return b, sink, db
}

func TestProcessInputJournalsAndBuffers(t *testing.T) {
	b, _, _ := newTestBridge(t)
	speed := 10.0
	in := &telemetry.InputSample{SpeedMS: &speed}

	b.processInput(in)

	if b.stats.MessagesIngested.Load() != 1 {
		t.Errorf("MessagesIngested = %d, want 1", b.stats.MessagesIngested.Load())
	}
	if b.republish.Len() != 1 {
		t.Errorf("republish queue depth = %d, want 1", b.republish.Len())
	}
	if len(b.dbBuf.records) != 1 {
		t.Errorf("dbBuf depth = %d, want 1", len(b.dbBuf.records))
	}

	records, err := b.journal.Iter()
	if err != nil {
		t.Fatalf("Iter: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("journal records = %d, want 1", len(records))
	}
	if records[0].SpeedMS != 10 {
		t.Errorf("journaled SpeedMS = %v, want 10", records[0].SpeedMS)
	}
}

func TestRepublishQueueDropsOldestWhenFull(t *testing.T) {
	q := newRepublishQueue(3)
	for i := 0; i < 5; i++ {
		payload, _ := json.Marshal(map[string]int{"i": i})
		q.Push(payload)
	}
	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}
	if q.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", q.Dropped())
	}
	items := q.PopUpTo(10)
	var first map[string]int
	json.Unmarshal(items[0], &first)
	if first["i"] != 2 {
		t.Errorf("oldest surviving item = %v, want i=2 (items 0,1 dropped)", first)
	}
}

func TestFlushDBBufferChunksAtMaxBatchSize(t *testing.T) {
	b, _, db := newTestBridge(t)
	small := 5
	b.cfg.MaxBatchSize = &small

	for i := 0; i < 12; i++ {
		b.dbBuf.Append(&telemetry.Sample{SessionID: "session-1", MessageID: uint32(i)})
	}
	b.flushDBBuffer(context.Background())

	batches := db.Batches()
	if len(batches) != 3 {
		t.Fatalf("len(batches) = %d, want 3 (12 records / 5 per chunk)", len(batches))
	}
	if len(batches[0]) != 5 || len(batches[2]) != 2 {
		t.Errorf("batch sizes = %d,%d,%d, want 5,5,2", len(batches[0]), len(batches[1]), len(batches[2]))
	}
}

func TestFlushDBBufferSpillsOnFailure(t *testing.T) {
	b, _, db := newTestBridge(t)
	db.Connect(context.Background())
	db.SetFailing(true)

	b.dbBuf.Append(&telemetry.Sample{SessionID: "session-1", MessageID: 1})
	b.flushDBBuffer(context.Background())

	if b.stats.BatchesFailed.Load() != 1 {
		t.Errorf("BatchesFailed = %d, want 1", b.stats.BatchesFailed.Load())
	}
	count, err := b.spillStore.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("spill store count = %d, want 1", count)
	}
}
