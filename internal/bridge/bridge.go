// Package bridge implements the Bridge (C11): the orchestrator tying
// together the normalizer, journal, publisher, health monitors, and
// database writer into five cooperative long-lived tasks.
package bridge

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/banshee-data/telemetry-bridge/internal/calculator"
	"github.com/banshee-data/telemetry-bridge/internal/config"
	"github.com/banshee-data/telemetry-bridge/internal/detector"
	"github.com/banshee-data/telemetry-bridge/internal/fsutil"
	"github.com/banshee-data/telemetry-bridge/internal/health"
	"github.com/banshee-data/telemetry-bridge/internal/journal"
	"github.com/banshee-data/telemetry-bridge/internal/mockgen"
	"github.com/banshee-data/telemetry-bridge/internal/monitoring"
	"github.com/banshee-data/telemetry-bridge/internal/normalizer"
	"github.com/banshee-data/telemetry-bridge/internal/publisher"
	"github.com/banshee-data/telemetry-bridge/internal/report"
	"github.com/banshee-data/telemetry-bridge/internal/spill"
	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
	"github.com/banshee-data/telemetry-bridge/internal/timeutil"
	"github.com/banshee-data/telemetry-bridge/internal/transport"
	"github.com/banshee-data/telemetry-bridge/internal/units"
)

// RepublishChannel and RepublishEvent name the sink channel/event used for
// every outgoing telemetry_update.
const (
	RepublishChannel = "telemetry"
	RepublishEvent   = "telemetry_update"
)

// Deps bundles the external collaborators a Bridge needs. Source is nil in
// mock mode; Generator is nil in live mode.
type Deps struct {
	SessionID   string
	SessionName string

	Source    transport.Source
	Generator *mockgen.Generator
	Sink      transport.Sink
	DB        transport.DBClient

	SpoolDir  string
	ExportDir string

	Config *config.BridgeConfig
	Clock  timeutil.Clock
	FS     fsutil.FileSystem
}

// Bridge orchestrates ingest, republish, database writes, health
// monitoring, and periodic stats reporting for one session.
type Bridge struct {
	deps Deps
	cfg  *config.BridgeConfig

	normalizer *normalizer.Normalizer
	journal    *journal.Journal
	publisher  *publisher.Publisher
	spillStore *spill.Store

	sourceHealth *health.ConnectionHealth
	sinkHealth   *health.ConnectionHealth
	dbHealth     *health.ConnectionHealth

	sourceReconnect *reconnector
	sinkReconnect   *reconnector

	republish *republishQueue
	dbBuf     *dbBuffer

	stats Stats

	runningMu sync.Mutex
	running   bool
	stopCh    chan struct{}
	wg        sync.WaitGroup

	dbBackoff time.Duration
}

// StatsSnapshot implements admin.StatsProvider.
func (b *Bridge) StatsSnapshot() any { return b.stats.Snapshot() }

// New wires a Bridge from its dependencies. cfg defaults are applied via
// config.BridgeConfig's Get* accessors.
func New(deps Deps) (*Bridge, error) {
	if deps.Config == nil {
		deps.Config = config.Empty()
	}
	if deps.Clock == nil {
		deps.Clock = timeutil.RealClock{}
	}
	if deps.FS == nil {
		deps.FS = fsutil.OSFileSystem{}
	}

	if err := deps.FS.MkdirAll(deps.SpoolDir, 0755); err != nil {
		return nil, fmt.Errorf("bridge: spool dir: %w", err)
	}
	if err := deps.FS.MkdirAll(deps.ExportDir, 0755); err != nil {
		return nil, fmt.Errorf("bridge: export dir: %w", err)
	}

	j, err := journal.Open(deps.FS, deps.SpoolDir, deps.SessionID)
	if err != nil {
		return nil, fmt.Errorf("bridge: journal: %w", err)
	}

	spillPath := filepath.Join(deps.SpoolDir, deps.SessionID+".retry.db")
	spillStore, err := spill.Open(spillPath)
	if err != nil {
		j.Close()
		return nil, fmt.Errorf("bridge: spill store: %w", err)
	}

	det := detector.New(detector.DefaultConfig())
	calc := calculator.New(calculator.DefaultConfig())
	norm := normalizer.New(deps.SessionID, deps.SessionName, det, calc, deps.Clock)

	pub := publisher.New(publisher.Config{
		Rate:      deps.Config.GetPublishRateLimit(),
		Burst:     deps.Config.GetPublishBurstCapacity(),
		QueueSize: deps.Config.GetPublishQueueMaxSize(),
	}, deps.Clock)

	b := &Bridge{
		deps:         deps,
		cfg:          deps.Config,
		normalizer:   norm,
		journal:      j,
		publisher:    pub,
		spillStore:   spillStore,
		sourceHealth: health.New(deps.Clock),
		sinkHealth:   health.New(deps.Clock),
		dbHealth:     health.New(deps.Clock),
		republish:    newRepublishQueue(deps.Config.GetMaxQueueSize()),
		dbBuf:        &dbBuffer{},
		stopCh:       make(chan struct{}),
		dbBackoff:    deps.Config.GetRetryBaseBackoff(),
	}
	b.sourceReconnect = newReconnector(deps.Clock, b.sourceHealth, deps.Config.GetReconnectBaseDelay(), deps.Config.GetRetryBackoffMax(), deps.Config.GetReconnectMaxAttempts())
	b.sinkReconnect = newReconnector(deps.Clock, b.sinkHealth, deps.Config.GetReconnectBaseDelay(), deps.Config.GetRetryBackoffMax(), deps.Config.GetReconnectMaxAttempts())

	return b, nil
}

// Run connects every configured transport and starts the five cooperative
// tasks, blocking until ctx is canceled; it then calls Shutdown and returns.
func (b *Bridge) Run(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, b.cfg.GetConnectionTimeout())
	defer cancel()

	if b.deps.Source != nil {
		if err := b.deps.Source.Connect(connectCtx); err != nil {
			return fmt.Errorf("bridge: connect source: %w", err)
		}
		b.sourceHealth.MarkConnected()
	}
	if err := b.deps.Sink.Connect(connectCtx); err != nil {
		return fmt.Errorf("bridge: connect sink: %w", err)
	}
	b.sinkHealth.MarkConnected()
	if err := b.deps.DB.Connect(connectCtx); err != nil {
		return fmt.Errorf("bridge: connect database: %w", err)
	}
	b.dbHealth.MarkConnected()

	b.runningMu.Lock()
	b.running = true
	b.runningMu.Unlock()

	if b.deps.Source != nil {
		b.wg.Add(1)
		go b.ingestTask(ctx)
	} else {
		b.wg.Add(1)
		go b.mockTask(ctx)
	}
	b.wg.Add(1)
	go b.republishTask(ctx)
	b.wg.Add(1)
	go b.dbWriterTask(ctx)
	b.wg.Add(1)
	go b.healthMonitorTask(ctx)
	b.wg.Add(1)
	go b.statsTask(ctx)

	<-ctx.Done()
	b.Shutdown()
	return nil
}

func (b *Bridge) isRunning() bool {
	b.runningMu.Lock()
	defer b.runningMu.Unlock()
	return b.running
}

// Shutdown flips running false, waits for every task to observe it and
// exit, then flushes the journal, performs a final DB flush, optionally
// exports CSV, and closes every channel.
func (b *Bridge) Shutdown() {
	b.runningMu.Lock()
	if !b.running {
		b.runningMu.Unlock()
		return
	}
	b.running = false
	b.runningMu.Unlock()

	close(b.stopCh)
	b.wg.Wait()

	b.finalDBFlush()

	needsExport := b.stats.BatchesFailed.Load() > 0
	if count, err := b.spillStore.Count(); err == nil && count > 0 {
		needsExport = true
	}
	if needsExport {
		if err := b.exportCSV(); err != nil {
			monitoring.Logf("bridge: CSV export failed: %v", err)
		}
		if err := b.exportReport(); err != nil {
			monitoring.Logf("bridge: session report failed: %v", err)
		}
	}

	b.journal.Close()
	b.spillStore.Close()
	if b.deps.Source != nil {
		b.deps.Source.Close()
	}
	b.deps.Sink.Close()
	b.deps.DB.Close()
}

func (b *Bridge) exportCSV() error {
	records, err := b.journal.Iter()
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	localNow, err := units.ConvertTime(b.deps.Clock.Now().UTC(), b.cfg.GetExportTimezone())
	if err != nil {
		localNow = b.deps.Clock.Now().UTC()
	}
	ts := localNow.Format("20060102_150405")
	path := filepath.Join(b.deps.ExportDir, fmt.Sprintf("telemetry_%s_%s.csv", b.deps.SessionID, ts))
	return journal.ExportCSV(b.deps.FS, path, b.deps.ExportDir, records, telemetry.FieldOrder)
}

func (b *Bridge) exportReport() error {
	records, err := b.journal.Iter()
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	path := filepath.Join(b.deps.ExportDir, fmt.Sprintf("session_%s.png", b.deps.SessionID))
	return report.SessionTrend(records, path, b.cfg.GetDisplaySpeedUnit())
}
