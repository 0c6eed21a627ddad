// Package journal implements the LocalJournal (C8): an append-only,
// line-delimited JSON file per session that survives process crashes, plus
// CSV export for offline analysis.
package journal

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/banshee-data/telemetry-bridge/internal/fsutil"
	"github.com/banshee-data/telemetry-bridge/internal/security"
	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
)

// Journal is an append-only record store for one session. Append calls are
// safe for concurrent use; each call reaches the OS file buffer
// synchronously before returning so a crash loses at most the in-flight
// write, never previously acknowledged records.
type Journal struct {
	mu       sync.Mutex
	fs       fsutil.FileSystem
	path     string
	spoolDir string
	file     *os.File
	size     int64
}

// Open creates or appends to <spoolDir>/<sessionID>.ndjson. spoolDir must
// already exist; callers create it via fsutil.FileSystem.MkdirAll.
func Open(fs fsutil.FileSystem, spoolDir, sessionID string) (*Journal, error) {
	path := filepath.Join(spoolDir, sessionID+".ndjson")
	if err := security.ValidatePathWithinDirectory(path, spoolDir); err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("journal: stat %s: %w", path, err)
	}

	return &Journal{
		fs:       fs,
		path:     path,
		spoolDir: spoolDir,
		file:     f,
		size:     info.Size(),
	}, nil
}

// Path returns the journal's on-disk location.
func (j *Journal) Path() string { return j.path }

// Size returns the current file size in bytes. Strictly monotonic across
// successful Append calls.
func (j *Journal) Size() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.size
}

// Append writes one sample as a JSON line, flushing to the OS before
// returning.
func (j *Journal) Append(s *telemetry.Sample) error {
	line, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("journal: marshal: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	n, err := j.file.Write(line)
	if err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("journal: sync: %w", err)
	}
	j.size += int64(n)
	return nil
}

// Close flushes and releases the underlying file handle.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

// Iter reads every well-formed record from the journal in order, skipping
// any line that fails to parse as JSON.
func (j *Journal) Iter() ([]*telemetry.Sample, error) {
	data, err := j.fs.ReadFile(j.path)
	if err != nil {
		return nil, fmt.Errorf("journal: read %s: %w", j.path, err)
	}
	return parseRecords(data), nil
}

func parseRecords(data []byte) []*telemetry.Sample {
	var out []*telemetry.Sample
	scanner := newLineScanner(data)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var s telemetry.Sample
		if err := json.Unmarshal(line, &s); err != nil {
			continue
		}
		out = append(out, &s)
	}
	return out
}

// ExportCSV writes one header row (fieldOrder) followed by one row per
// record in the journal, with missing fields emitted as empty cells.
func ExportCSV(fs fsutil.FileSystem, path string, allowedDir string, records []*telemetry.Sample, fieldOrder []string) error {
	if err := security.ValidateExportPath(path); err != nil {
		if allowedDir == "" || security.ValidatePathWithinDirectory(path, allowedDir) != nil {
			return fmt.Errorf("journal: export: %w", err)
		}
	}

	w, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("journal: export: create %s: %w", path, err)
	}
	defer w.Close()

	buf := bufio.NewWriter(w)
	cw := csv.NewWriter(buf)

	if err := cw.Write(fieldOrder); err != nil {
		return fmt.Errorf("journal: export: header: %w", err)
	}
	for _, rec := range records {
		row := make([]string, len(fieldOrder))
		fields := recordFields(rec)
		for i, name := range fieldOrder {
			row[i] = fields[name]
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("journal: export: row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("journal: export: flush: %w", err)
	}
	return buf.Flush()
}

// recordFields flattens a Sample into a name->cell map following the wire
// field names; fields not present in this record type are simply absent,
// which ExportCSV renders as an empty cell.
func recordFields(s *telemetry.Sample) map[string]string {
	f := map[string]string{
		"session_id":   s.SessionID,
		"session_name": s.SessionName,
		"message_id":     strconv.FormatUint(uint64(s.MessageID), 10),
		"timestamp":      s.Timestamp.Format("2006-01-02T15:04:05.000000000Z07:00"),
		"uptime_seconds": formatFloat(s.UptimeSeconds),

		"voltage_v":  formatFloat(s.VoltageV),
		"current_a":  formatFloat(s.CurrentA),
		"power_w":    formatFloat(s.PowerW),
		"energy_j":   formatFloat(s.EnergyJ),
		"speed_ms":   formatFloat(s.SpeedMS),
		"distance_m": formatFloat(s.DistanceM),

		"throttle":     formatFloat(s.Throttle),
		"brake":        formatFloat(s.Brake),
		"throttle_pct": formatFloat(s.ThrottlePct),
		"brake_pct":    formatFloat(s.BrakePct),

		"latitude":  formatFloat(s.Latitude),
		"longitude": formatFloat(s.Longitude),
		"altitude":  formatFloat(s.Altitude),

		"gyro_x": formatFloat(s.GyroX),
		"gyro_y": formatFloat(s.GyroY),
		"gyro_z": formatFloat(s.GyroZ),

		"accel_x":            formatFloat(s.AccelX),
		"accel_y":            formatFloat(s.AccelY),
		"accel_z":            formatFloat(s.AccelZ),
		"total_acceleration": formatFloat(s.TotalAcceleration),

		"data_source": s.DataSource,
	}
	return f
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// lineScanner splits data on '\n' without pulling in bufio.Scanner's token
// size limits, which matter once records exceed 64KiB.
type lineScanner struct {
	data []byte
	pos  int
	cur  []byte
}

func newLineScanner(data []byte) *lineScanner {
	return &lineScanner{data: data}
}

func (s *lineScanner) Scan() bool {
	if s.pos >= len(s.data) {
		return false
	}
	idx := indexByte(s.data[s.pos:], '\n')
	if idx < 0 {
		s.cur = s.data[s.pos:]
		s.pos = len(s.data)
	} else {
		s.cur = s.data[s.pos : s.pos+idx]
		s.pos += idx + 1
	}
	return true
}

func (s *lineScanner) Bytes() []byte { return s.cur }

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
