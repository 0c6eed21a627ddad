// Package admin attaches debug HTTP routes to a *http.ServeMux: live stats
// and a tailsql console against the spill database.
package admin

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"tailscale.com/tsweb"

	"github.com/tailscale/tailsql"
)

// StatsProvider supplies the JSON-encodable snapshot for the stats route.
type StatsProvider interface {
	StatsSnapshot() any
}

// AttachRoutes mounts /debug/bridge-stats and (if spillDB is non-nil) a
// tailsql console over the retry-queue database.
func AttachRoutes(mux *http.ServeMux, stats StatsProvider, spillDB *sql.DB) error {
	debug := tsweb.Debugger(mux)

	debug.Handle("bridge-stats", "Bridge and channel statistics (JSON)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats.StatsSnapshot()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))

	if spillDB != nil {
		tsql, err := tailsql.NewServer(tailsql.Options{RoutePrefix: "/debug/tailsql/"})
		if err != nil {
			return err
		}
		tsql.SetDB("sqlite://spill.db", spillDB, &tailsql.DBOptions{Label: "Retry queue"})
		debug.Handle("tailsql/", "SQL live debugging of the retry queue", tsql.NewMux())
	}

	return nil
}
