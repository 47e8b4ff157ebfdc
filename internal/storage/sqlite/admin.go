package sqlite

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

// Stats is the payload of the /debug/db-stats page.
type Stats struct {
	Path          string         `json:"path"`
	SchemaVersion uint           `json:"schema_version"`
	Dirty         bool           `json:"dirty"`
	RunsByKind    map[string]int `json:"runs_by_kind"`
}

// Stats collects schema and row-count information.
func (db *DB) Stats() (Stats, error) {
	version, dirty, err := db.MigrateVersion()
	if err != nil {
		return Stats{}, err
	}
	counts, err := db.Runs().CountByKind()
	if err != nil {
		return Stats{}, err
	}
	return Stats{Path: db.path, SchemaVersion: version, Dirty: dirty, RunsByKind: counts}, nil
}

// AttachAdminRoutes mounts the tsweb debug index, a live SQL console and
// a stats page under /debug/.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://"+db.path, db.DB, &tailsql.DBOptions{
		Label: "Pose analysis DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("db-stats", "Schema version and stored analysis runs", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := db.Stats()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			log.Printf("failed to encode db stats: %v", err)
		}
	}))
}
