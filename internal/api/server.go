package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/pose.report/internal/analysis"
	"github.com/banshee-data/pose.report/internal/config"
	"github.com/banshee-data/pose.report/internal/fsutil"
	"github.com/banshee-data/pose.report/internal/storage/sqlite"
	"github.com/banshee-data/pose.report/internal/trajectory"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Logf is the package logger. It defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Server serves one trajectory store over HTTP. Handlers read the store
// under a read lock; Reload swaps its contents under the write lock.
type Server struct {
	cfg  *config.AnalyzerConfig
	fsys fsutil.FileSystem
	db   *sqlite.DB
	runs *sqlite.RunStore

	mu    sync.RWMutex
	store *trajectory.Store
}

// NewServer wraps store. db may be nil, which disables run persistence and
// the /debug/ routes.
func NewServer(cfg *config.AnalyzerConfig, fsys fsutil.FileSystem, store *trajectory.Store, db *sqlite.DB) *Server {
	s := &Server{cfg: cfg, fsys: fsys, store: store, db: db}
	if db != nil {
		s.runs = db.Runs()
	}
	return s
}

// Reload rescans the configured log directory.
func (s *Server) Reload() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.store.LoadDir(s.fsys, s.cfg.LogPath(), s.cfg.GetLandmarks())
	if err != nil {
		return 0, err
	}
	st := s.store.Stats()
	Logf("reloaded %s: %d trajectories, %d poses, %d files skipped", s.cfg.LogPath(), n, st.Poses, st.FilesSkipped)
	return n, nil
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/trajectories", s.listTrajectories)
	mux.HandleFunc("/api/reload", s.reloadHandler)
	mux.HandleFunc("/api/frame", s.showFrame)
	mux.HandleFunc("/api/nearest", s.findNearest)
	mux.HandleFunc("/api/range", s.showRange)
	mux.HandleFunc("/api/export", s.exportRange)
	mux.HandleFunc("/api/linefit", s.fitLine)
	mux.HandleFunc("/api/stats", s.staticStats)
	mux.HandleFunc("/api/evaluate", s.evaluate)
	mux.HandleFunc("/api/step", s.step)
	mux.HandleFunc("/api/runs", s.runsHandler)
	mux.HandleFunc("/charts/trajectories", s.trajectoryChart)
	mux.HandleFunc("/charts/trajectories.png", s.trajectoryPNG)
	mux.HandleFunc("/charts/linefit.png", s.lineFitPNG)
	mux.HandleFunc("/charts/evaluate.png", s.evaluatePNG)
	if s.db != nil {
		s.db.AttachAdminRoutes(mux)
	}
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Logf("failed to encode json response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, trajectory.ErrInvalidSelection), errors.Is(err, errBadParam):
		status = http.StatusBadRequest
	case errors.Is(err, analysis.ErrInsufficientData):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, trajectory.ErrDirectoryUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, sqlite.ErrRunNotFound):
		status = http.StatusNotFound
	}
	s.writeJSONError(w, status, err.Error())
}

func (s *Server) requireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}
