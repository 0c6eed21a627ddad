// Command bridge runs the telemetry bridge: it ingests vehicle sensor
// samples from a serial source (or a synthetic generator), detects
// outliers, republishes updates at a bounded rate, journals every sample,
// and uploads batches to a database with durable retry.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/telemetry-bridge/internal/admin"
	"github.com/banshee-data/telemetry-bridge/internal/bridge"
	"github.com/banshee-data/telemetry-bridge/internal/config"
	"github.com/banshee-data/telemetry-bridge/internal/fsutil"
	"github.com/banshee-data/telemetry-bridge/internal/httputil"
	"github.com/banshee-data/telemetry-bridge/internal/mockgen"
	"github.com/banshee-data/telemetry-bridge/internal/timeutil"
	"github.com/banshee-data/telemetry-bridge/internal/transport"
	"github.com/banshee-data/telemetry-bridge/internal/transport/httpdbclient"
	"github.com/banshee-data/telemetry-bridge/internal/transport/httpsink"
	"github.com/banshee-data/telemetry-bridge/internal/transport/serialsource"
	"github.com/banshee-data/telemetry-bridge/internal/version"
)

var scenarios = map[string]mockgen.Scenario{
	"normal":   mockgen.ScenarioNormal,
	"sensor":   mockgen.ScenarioSensorFailures,
	"stalls":   mockgen.ScenarioDataStalls,
	"intermit": mockgen.ScenarioIntermittent,
	"gps":      mockgen.ScenarioGPSIssues,
	"chaos":    mockgen.ScenarioChaos,
}

func main() {
	mock := flag.Bool("mock", false, "use the synthetic generator instead of a live serial source")
	real := flag.Bool("real", false, "use a live serial source (mutually exclusive with -mock)")
	scenario := flag.String("scenario", "normal", "mock fault scenario: normal|sensor|stalls|intermit|gps|chaos")
	session := flag.String("session", "", "session label (defaults to a generated UUID)")
	port := flag.String("port", "", "serial port path, required with -real")
	sinkURL := flag.String("sink-url", "", "base URL of the HTTP republish sink (empty disables republish)")
	dbURL := flag.String("db-url", "", "batch-upload URL of the HTTP database client (empty disables DB writes)")
	configPath := flag.String("config", "", "path to a bridge config JSON file")
	spoolDir := flag.String("spool-dir", "spool", "directory for the append-only journal and retry queue")
	exportDir := flag.String("export-dir", "export", "directory for CSV/PNG exports on a dirty shutdown")
	listen := flag.String("listen", ":8090", "HTTP listen address for the debug/admin routes")
	speedUnit := flag.String("speed-unit", "", "display speed unit for the session chart: mps|mph|kmph|kph (overrides -config)")
	timezone := flag.String("timezone", "", "tz database name used to stamp export filenames, default UTC (overrides -config)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("bridge %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *mock == *real {
		log.Fatal("exactly one of -mock or -real must be set")
	}
	if *real && *port == "" {
		log.Fatal("-port is required with -real")
	}

	sessionID := *session
	if sessionID == "" && isInteractive() {
		if entered := promptLine("session label (blank to auto-generate): "); entered != "" {
			sessionID = entered
		}
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	cfg := config.Empty()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *speedUnit != "" {
		cfg.DisplaySpeedUnit = speedUnit
	}
	if *timezone != "" {
		cfg.ExportTimezone = timezone
	}

	deps := bridge.Deps{
		SessionID:   sessionID,
		SessionName: sessionID,
		SpoolDir:    *spoolDir,
		ExportDir:   *exportDir,
		Config:      cfg,
		Clock:       timeutil.RealClock{},
		FS:          fsutil.OSFileSystem{},
	}

	if *mock {
		sc, ok := scenarios[strings.ToLower(*scenario)]
		if !ok {
			log.Fatalf("unknown scenario %q (want one of normal|sensor|stalls|intermit|gps|chaos)", *scenario)
		}
		deps.Generator = mockgen.New(sc, time.Now().UnixNano())
		log.Printf("using synthetic generator, scenario=%s session=%s", sc, sessionID)
	} else {
		deps.Source = serialsource.New(serialsource.DefaultConfig(*port))
		log.Printf("using serial source port=%s session=%s", *port, sessionID)
	}

	httpClient := httputil.NewStandardClient(&http.Client{Timeout: 10 * time.Second})

	if *sinkURL != "" {
		deps.Sink = httpsink.New(httpsink.Config{BaseURL: *sinkURL}, httpClient)
	} else {
		deps.Sink = transport.NewMemorySink()
		log.Print("no -sink-url given, republish is a no-op in-memory sink")
	}

	if *dbURL != "" {
		deps.DB = httpdbclient.New(httpdbclient.Config{BatchURL: *dbURL}, httpClient)
	} else {
		deps.DB = transport.NewMemoryDBClient()
		log.Print("no -db-url given, database writes are a no-op in-memory client")
	}

	b, err := bridge.New(deps)
	if err != nil {
		log.Fatalf("failed to construct bridge: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	if err := admin.AttachRoutes(mux, b, nil); err != nil {
		log.Fatalf("failed to attach admin routes: %v", err)
	}
	server := &http.Server{Addr: *listen, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("debug server listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("debug server error: %v", err)
		}
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- b.Run(ctx) }()

	select {
	case <-ctx.Done():
		log.Print("shutdown signal received")
		if err := <-runErr; err != nil {
			log.Printf("bridge exited with error: %v", err)
		}
	case err := <-runErr:
		if err != nil {
			log.Fatalf("bridge exited with error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		server.Close()
	}
	log.Print("bridge stopped cleanly")
}

// promptLine reads one line of operator input when a flag was left at its
// default and stdin is a terminal.
func promptLine(prompt string) string {
	fmt.Print(prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}

// isInteractive reports whether stdin looks like a terminal rather than a
// pipe or redirected file, so batch/CI invocations never block on a prompt.
func isInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
