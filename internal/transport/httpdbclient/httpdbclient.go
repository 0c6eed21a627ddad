// Package httpdbclient implements transport.DBClient as a single HTTP POST
// per batch, the reference database backend used when no dedicated driver
// is configured. The server is expected to be idempotent on
// (session_id, message_id).
package httpdbclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/banshee-data/telemetry-bridge/internal/httputil"
	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
)

// Config names the batch-insert endpoint.
type Config struct {
	BatchURL string
}

// Client posts each batch as a JSON array to Config.BatchURL.
type Client struct {
	cfg    Config
	client httputil.HTTPClient

	mu        sync.Mutex
	connected bool
}

func New(cfg Config, client httputil.HTTPClient) *Client {
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}
	return &Client{cfg: cfg, client: client}
}

func (c *Client) Connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BatchURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("httpdbclient: build probe request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("httpdbclient: connect: %w", err)
	}
	resp.Body.Close()

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// dbRecord mirrors the sample schema with altitude renamed to altitude_m
// and outliers serialized as a JSON string, per the external database
// batch format.
type dbRecord struct {
	SessionID   string  `json:"session_id"`
	SessionName string  `json:"session_name"`
	MessageID   uint32  `json:"message_id"`
	Timestamp   string  `json:"timestamp"`
	VoltageV    float64 `json:"voltage_v"`
	CurrentA    float64 `json:"current_a"`
	PowerW      float64 `json:"power_w"`
	EnergyJ     float64 `json:"energy_j"`
	SpeedMS     float64 `json:"speed_ms"`
	DistanceM   float64 `json:"distance_m"`
	AltitudeM   float64 `json:"altitude_m"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DataSource  string  `json:"data_source"`
	Outliers    *string `json:"outliers,omitempty"`
}

func (c *Client) InsertBatch(ctx context.Context, records []*telemetry.Sample) error {
	rows := make([]dbRecord, len(records))
	for i, s := range records {
		row := dbRecord{
			SessionID:   s.SessionID,
			SessionName: s.SessionName,
			MessageID:   s.MessageID,
			Timestamp:   s.Timestamp.Format("2006-01-02T15:04:05.000000000Z07:00"),
			VoltageV:    s.VoltageV,
			CurrentA:    s.CurrentA,
			PowerW:      s.PowerW,
			EnergyJ:     s.EnergyJ,
			SpeedMS:     s.SpeedMS,
			DistanceM:   s.DistanceM,
			AltitudeM:   s.Altitude,
			Latitude:    s.Latitude,
			Longitude:   s.Longitude,
			DataSource:  s.DataSource,
		}
		if s.Outliers != nil {
			encoded, err := json.Marshal(s.Outliers)
			if err != nil {
				return fmt.Errorf("httpdbclient: marshal outliers: %w", err)
			}
			str := string(encoded)
			row.Outliers = &str
		}
		rows[i] = row
	}

	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("httpdbclient: marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BatchURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("httpdbclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		return fmt.Errorf("httpdbclient: insert: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("httpdbclient: insert: server returned %d", resp.StatusCode)
	}
	return nil
}
