// Package config defines the tunable parameters for the telemetry bridge.
//
// The schema mirrors the runtime knobs described by the system's operating
// envelope (batch sizes, backoff timers, queue caps, rate limits). Every
// field is a pointer so a partial JSON document only overrides the values it
// names; fields left nil fall back to the documented default via the
// corresponding Get* accessor, the same pattern the upstream tuning config
// uses for lidar parameters.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/telemetry-bridge/internal/units"
)

// DefaultConfigPath is the conventional location for a bridge config file.
// Nothing loads it automatically: cmd/bridge reads a config file only when
// -config names one.
const DefaultConfigPath = "config/bridge.defaults.json"

// BridgeConfig holds every tunable named in the operating envelope.
type BridgeConfig struct {
	MockDataInterval *string `json:"mock_data_interval,omitempty"` // duration string, e.g. "200ms"

	DBBatchInterval  *string `json:"db_batch_interval,omitempty"`
	MaxBatchSize     *int    `json:"max_batch_size,omitempty"`
	RetryBaseBackoff *string `json:"retry_base_backoff,omitempty"`
	RetryBackoffMax  *string `json:"retry_backoff_max,omitempty"`
	SpillQueueCap    *int    `json:"spill_queue_cap,omitempty"`

	ConnectionTimeout   *string `json:"connection_timeout,omitempty"`
	WatchdogTimeout     *string `json:"watchdog_timeout,omitempty"`
	HealthCheckInterval *string `json:"health_check_interval,omitempty"`

	MaxQueueSize         *int    `json:"max_queue_size,omitempty"`
	ReconnectMaxAttempts *int    `json:"reconnect_max_attempts,omitempty"`
	ReconnectBaseDelay   *string `json:"reconnect_base_delay,omitempty"`

	PublishRateLimit     *float64 `json:"publish_rate_limit,omitempty"`
	PublishBurstCapacity *int     `json:"publish_burst_capacity,omitempty"`
	PublishQueueMaxSize  *int     `json:"publish_queue_max_size,omitempty"`
	PublishDrainInterval *string  `json:"publish_drain_interval,omitempty"`

	StatsInterval *string `json:"stats_interval,omitempty"`

	DisplaySpeedUnit *string `json:"display_speed_unit,omitempty"` // units.MPS/MPH/KMPH/KPH
	ExportTimezone   *string `json:"export_timezone,omitempty"`    // tz database name for export filenames, default UTC
}

// Empty returns a BridgeConfig with every field nil; Get* accessors supply
// the documented defaults.
func Empty() *BridgeConfig { return &BridgeConfig{} }

// Load reads a BridgeConfig from a JSON file. Missing fields retain their
// defaults, so a partial override file is safe.
func Load(path string) (*BridgeConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that any set fields parse to sane values.
func (c *BridgeConfig) Validate() error {
	durations := map[string]*string{
		"mock_data_interval":    c.MockDataInterval,
		"db_batch_interval":     c.DBBatchInterval,
		"retry_base_backoff":    c.RetryBaseBackoff,
		"retry_backoff_max":     c.RetryBackoffMax,
		"connection_timeout":    c.ConnectionTimeout,
		"watchdog_timeout":      c.WatchdogTimeout,
		"health_check_interval": c.HealthCheckInterval,
		"reconnect_base_delay":  c.ReconnectBaseDelay,
		"publish_drain_interval": c.PublishDrainInterval,
		"stats_interval":        c.StatsInterval,
	}
	for name, v := range durations {
		if v == nil || *v == "" {
			continue
		}
		if _, err := time.ParseDuration(*v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, *v, err)
		}
	}
	if c.MaxBatchSize != nil && *c.MaxBatchSize <= 0 {
		return fmt.Errorf("max_batch_size must be positive, got %d", *c.MaxBatchSize)
	}
	if c.PublishRateLimit != nil && *c.PublishRateLimit <= 0 {
		return fmt.Errorf("publish_rate_limit must be positive, got %f", *c.PublishRateLimit)
	}
	if c.DisplaySpeedUnit != nil && !units.IsValid(*c.DisplaySpeedUnit) {
		return fmt.Errorf("display_speed_unit must be one of %s, got %q", units.GetValidUnitsString(), *c.DisplaySpeedUnit)
	}
	if c.ExportTimezone != nil && !units.IsTimezoneValid(*c.ExportTimezone) {
		return fmt.Errorf("export_timezone %q is not a recognized tz database name", *c.ExportTimezone)
	}
	return nil
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

// GetMockDataInterval returns the synthetic-source tick period.
func (c *BridgeConfig) GetMockDataInterval() time.Duration {
	return durationOr(c.MockDataInterval, 200*time.Millisecond)
}

// GetDBBatchInterval returns the batch-flush period.
func (c *BridgeConfig) GetDBBatchInterval() time.Duration {
	return durationOr(c.DBBatchInterval, 5*time.Second)
}

// GetMaxBatchSize returns the maximum records per database insert.
func (c *BridgeConfig) GetMaxBatchSize() int {
	if c.MaxBatchSize == nil {
		return 200
	}
	return *c.MaxBatchSize
}

// GetRetryBaseBackoff returns the initial DB-write retry backoff.
func (c *BridgeConfig) GetRetryBaseBackoff() time.Duration {
	return durationOr(c.RetryBaseBackoff, 3*time.Second)
}

// GetRetryBackoffMax returns the DB-write retry backoff ceiling.
func (c *BridgeConfig) GetRetryBackoffMax() time.Duration {
	return durationOr(c.RetryBackoffMax, 60*time.Second)
}

// GetSpillQueueCap returns the configured pending retry-batch cap. The
// bridge does not consult it: every failed batch is written to the on-disk
// spill store directly, with no in-memory retry stage.
func (c *BridgeConfig) GetSpillQueueCap() int {
	if c.SpillQueueCap == nil {
		return 50
	}
	return *c.SpillQueueCap
}

// GetConnectionTimeout bounds source/sink connect attempts.
func (c *BridgeConfig) GetConnectionTimeout() time.Duration {
	return durationOr(c.ConnectionTimeout, 15*time.Second)
}

// GetWatchdogTimeout is the source staleness threshold that forces a reconnect.
func (c *BridgeConfig) GetWatchdogTimeout() time.Duration {
	return durationOr(c.WatchdogTimeout, 30*time.Second)
}

// GetHealthCheckInterval is the watchdog poll period.
func (c *BridgeConfig) GetHealthCheckInterval() time.Duration {
	return durationOr(c.HealthCheckInterval, 10*time.Second)
}

// GetMaxQueueSize returns the republish queue capacity.
func (c *BridgeConfig) GetMaxQueueSize() int {
	if c.MaxQueueSize == nil {
		return 5000
	}
	return *c.MaxQueueSize
}

// GetReconnectMaxAttempts returns the reconnect attempt cap.
func (c *BridgeConfig) GetReconnectMaxAttempts() int {
	if c.ReconnectMaxAttempts == nil {
		return 10
	}
	return *c.ReconnectMaxAttempts
}

// GetReconnectBaseDelay returns the first reconnect delay (doubles per attempt).
func (c *BridgeConfig) GetReconnectBaseDelay() time.Duration {
	return durationOr(c.ReconnectBaseDelay, 1*time.Second)
}

// GetPublishRateLimit returns the publisher token-bucket refill rate.
func (c *BridgeConfig) GetPublishRateLimit() float64 {
	if c.PublishRateLimit == nil {
		return 500
	}
	return *c.PublishRateLimit
}

// GetPublishBurstCapacity returns the publisher token-bucket capacity.
func (c *BridgeConfig) GetPublishBurstCapacity() int {
	if c.PublishBurstCapacity == nil {
		return 100
	}
	return *c.PublishBurstCapacity
}

// GetPublishQueueMaxSize returns the publisher overflow queue capacity.
func (c *BridgeConfig) GetPublishQueueMaxSize() int {
	if c.PublishQueueMaxSize == nil {
		return 10000
	}
	return *c.PublishQueueMaxSize
}

// GetPublishDrainInterval returns the sleep between drain passes.
func (c *BridgeConfig) GetPublishDrainInterval() time.Duration {
	return durationOr(c.PublishDrainInterval, 2*time.Millisecond)
}

// GetStatsInterval returns the stats-summary emission period.
func (c *BridgeConfig) GetStatsInterval() time.Duration {
	return durationOr(c.StatsInterval, 30*time.Second)
}

// GetDisplaySpeedUnit returns the unit used for the speed line in the
// session trend chart.
func (c *BridgeConfig) GetDisplaySpeedUnit() string {
	if c.DisplaySpeedUnit == nil || *c.DisplaySpeedUnit == "" {
		return units.KMPH
	}
	return *c.DisplaySpeedUnit
}

// GetExportTimezone returns the tz database name used to stamp export
// filenames, defaulting to UTC.
func (c *BridgeConfig) GetExportTimezone() string {
	if c.ExportTimezone == nil || *c.ExportTimezone == "" {
		return "UTC"
	}
	return *c.ExportTimezone
}
