package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/telemetry-bridge/internal/fsutil"
	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
)

func newTestJournal(t *testing.T) (*Journal, string) {
	t.Helper()
	dir := t.TempDir()
	j, err := Open(fsutil.OSFileSystem{}, dir, "session-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j, dir
}

func TestAppendGrowsSizeMonotonically(t *testing.T) {
	j, _ := newTestJournal(t)
	var last int64
	for i := 0; i < 10; i++ {
		s := &telemetry.Sample{SessionID: "session-1", MessageID: uint32(i), Timestamp: time.Now()}
		if err := j.Append(s); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if j.Size() <= last {
			t.Fatalf("Size did not grow: %d -> %d", last, j.Size())
		}
		last = j.Size()
	}
}

func TestIterSkipsMalformedLines(t *testing.T) {
	j, dir := newTestJournal(t)
	for i := 0; i < 3; i++ {
		j.Append(&telemetry.Sample{SessionID: "session-1", MessageID: uint32(i)})
	}
	j.Close()

	path := filepath.Join(dir, "session-1.ndjson")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open for corrupt append: %v", err)
	}
	f.WriteString("{not valid json\n")
	f.Close()

	j2, err := Open(fsutil.OSFileSystem{}, dir, "session-1")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j2.Close()

	records, err := j2.Iter()
	if err != nil {
		t.Fatalf("Iter: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("len(records) = %d, want 3 (malformed line skipped)", len(records))
	}
}

func TestExportCSVRoundTrip(t *testing.T) {
	j, dir := newTestJournal(t)
	const n = 1000
	for i := 0; i < n; i++ {
		j.Append(&telemetry.Sample{
			SessionID: "session-1",
			MessageID: uint32(i),
			SpeedMS:   float64(i) * 0.1,
			VoltageV:  48,
		})
	}
	records, err := j.Iter()
	if err != nil {
		t.Fatalf("Iter: %v", err)
	}
	if len(records) != n {
		t.Fatalf("len(records) = %d, want %d", len(records), n)
	}

	fieldOrder := []string{
		"session_id", "message_id", "speed_ms", "voltage_v", "current_a",
		"power_w", "energy_j", "distance_m", "latitude", "longitude",
	}
	outPath := filepath.Join(dir, "export.csv")
	if err := ExportCSV(fsutil.OSFileSystem{}, outPath, dir, records, fieldOrder); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != n+1 {
		t.Errorf("lines = %d, want %d (1 header + %d rows)", lines, n+1, n)
	}
}
