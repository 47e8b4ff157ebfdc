package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pose.report/internal/config"
	"github.com/banshee-data/pose.report/internal/fsutil"
	"github.com/banshee-data/pose.report/internal/poselog"
	"github.com/banshee-data/pose.report/internal/storage/sqlite"
	"github.com/banshee-data/pose.report/internal/trajectory"
)

var baseTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func poseLine(sec, typ int, x, y, theta float64) string {
	return fmt.Sprintf("%s Location_state = RealTimeLocation type = %d (%g %g 0 0 0 %g)\n",
		poselog.FormatTimestamp(baseTime.Add(time.Duration(sec)*time.Second)), typ, x, y, theta)
}

func testFS() *fsutil.MemoryFileSystem {
	mfs := fsutil.NewMemoryFileSystem()
	mfs.AddFile("root/logs/a.log", []byte(
		poseLine(0, 1, 0, 0, 0)+
			poseLine(1, 1, 1, 0, 0)+
			poseLine(2, 2, 2, 0, 0)+
			"2024-01-02 03:04:08,000 QRCode seen 1.5 2.5\n"))
	mfs.AddFile("root/logs/b.log", []byte(
		poseLine(0, 1, 0, 1, 0)+
			poseLine(1, 1, 1, 1, 0)))
	return mfs
}

func testConfig() *config.AnalyzerConfig {
	cfg := config.DefaultAnalyzerConfig()
	root := "root"
	cfg.RootDir = &root
	cfg.Landmarks = []config.Landmark{{Keyword: "QRCode", Indices: [2]int{7, 8}, Color: "y", Symbol: "s"}}
	return cfg
}

// testServer builds the mux once so admin routes are attached a single time.
type testServer struct {
	*Server
	mux *http.ServeMux
}

func newTestServer(s *Server) *testServer {
	return &testServer{Server: s, mux: s.ServeMux()}
}

func setupTestServer(t *testing.T, withDB bool) (*testServer, *fsutil.MemoryFileSystem) {
	t.Helper()
	SetLogger(nil)
	t.Cleanup(func() { SetLogger(nil) })

	mfs := testFS()
	var db *sqlite.DB
	if withDB {
		var err error
		db, err = sqlite.Open(filepath.Join(t.TempDir(), "runs.db"))
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
	}
	cfg := testConfig()
	s := NewServer(cfg, mfs, trajectory.NewStore(cfg.GetStateKeyword()), db)
	n, err := s.Reload()
	require.NoError(t, err)
	require.Equal(t, 2, n)
	return newTestServer(s), mfs
}

func do(t *testing.T, s *testServer, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v), "body: %s", w.Body.String())
}

func TestListTrajectories(t *testing.T) {
	s, _ := setupTestServer(t, false)
	w := do(t, s, http.MethodGet, "/api/trajectories")
	require.Equal(t, http.StatusOK, w.Code)

	var resp trajectoriesResponse
	decode(t, w, &resp)
	require.Len(t, resp.Trajectories, 2)
	assert.Equal(t, "a.log", resp.Trajectories[0].Name)
	assert.Equal(t, 3, resp.Trajectories[0].Len)
	assert.Equal(t, 3, resp.Trajectories[1].Offset)
	assert.Equal(t, []int{1, 2}, resp.Trajectories[0].Types)
	assert.Equal(t, []string{"2024-01-02 03:04:05", "2024-01-02 03:04:06", "2024-01-02 03:04:07"}, resp.Trajectories[0].Times)
	assert.Len(t, resp.Trajectories[1].Times, 2)
	assert.Equal(t, 5, resp.Total)
	assert.Equal(t, []string{"a.log"}, resp.LandmarkFiles)
	assert.Equal(t, 2, resp.Stats.FilesScanned)

	w = do(t, s, http.MethodPost, "/api/trajectories")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestReload(t *testing.T) {
	s, mfs := setupTestServer(t, false)
	mfs.AddFile("root/logs/c.log", []byte(poseLine(5, 1, 9, 9, 0)))

	w := do(t, s, http.MethodPost, "/api/reload")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Loaded int               `json:"loaded"`
		Stats  poselog.ScanStats `json:"stats"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 3, resp.Loaded)
	assert.Equal(t, 6, resp.Stats.Poses)

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, s, http.MethodGet, "/api/reload").Code)
}

func TestReloadMissingDirectory(t *testing.T) {
	SetLogger(nil)
	cfg := testConfig()
	s := newTestServer(NewServer(cfg, fsutil.NewMemoryFileSystem(), trajectory.NewStore(""), nil))
	w := do(t, s, http.MethodPost, "/api/reload")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestShowFrame(t *testing.T) {
	s, _ := setupTestServer(t, false)
	tests := []struct {
		idx       string
		wantIndex int
		wantName  string
		wantLocal int
	}{
		{"0", 0, "a.log", 0},
		{"3", 3, "b.log", 0},
		{"99", 4, "b.log", 1},
		{"-3", 0, "a.log", 0},
	}
	for _, tt := range tests {
		t.Run(tt.idx, func(t *testing.T) {
			w := do(t, s, http.MethodGet, "/api/frame?idx="+tt.idx)
			require.Equal(t, http.StatusOK, w.Code)
			var f frameResponse
			decode(t, w, &f)
			assert.Equal(t, tt.wantIndex, f.Index)
			assert.Equal(t, tt.wantName, f.Name)
			assert.Equal(t, tt.wantLocal, f.Local)
			assert.True(t, f.Pose.RealTime)
			assert.Equal(t, "RealTimeLocation", f.Pose.State)
		})
	}

	tag := "Manual"
	s.cfg.RealTimeTag = &tag
	var f frameResponse
	decode(t, do(t, s, http.MethodGet, "/api/frame?idx=0"), &f)
	assert.False(t, f.Pose.RealTime)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/frame?idx=abc").Code)
}

func TestFindNearest(t *testing.T) {
	s, _ := setupTestServer(t, false)

	w := do(t, s, http.MethodGet, "/api/nearest?x=1.1&y=0.9")
	require.Equal(t, http.StatusOK, w.Code)
	var resp nearestResponse
	decode(t, w, &resp)
	require.True(t, resp.Found)
	assert.Equal(t, "b.log", resp.Name)
	assert.Equal(t, 1, resp.Index)
	assert.Equal(t, 4, resp.Global)
	require.NotNil(t, resp.Pose)
	assert.InDelta(t, 1.0, resp.Pose.X, 1e-9)
	assert.True(t, resp.Pose.RealTime)

	w = do(t, s, http.MethodGet, "/api/nearest?x=1.1&y=0.9&names=a.log")
	decode(t, w, &resp)
	assert.Equal(t, "a.log", resp.Name)
	assert.Equal(t, 1, resp.Global)

	w = do(t, s, http.MethodGet, "/api/nearest?x=100&y=100")
	require.Equal(t, http.StatusOK, w.Code)
	resp = nearestResponse{}
	decode(t, w, &resp)
	assert.False(t, resp.Found)
	assert.Nil(t, resp.Pose)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/nearest?x=1").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/nearest?x=1&y=1&names=nope.log").Code)
}

func TestShowRange(t *testing.T) {
	s, _ := setupTestServer(t, false)

	w := do(t, s, http.MethodGet, "/api/range?start=3&end=1")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Range trajectory.Range `json:"range"`
		Poses []poselog.Pose   `json:"poses"`
	}
	decode(t, w, &resp)
	assert.True(t, resp.Range.Adjusted)
	assert.Equal(t, 1, resp.Range.Start)
	assert.Equal(t, 1, resp.Range.End)
	assert.Len(t, resp.Poses, 1)

	w = do(t, s, http.MethodGet, "/api/range?name=a.log")
	decode(t, w, &resp)
	assert.False(t, resp.Range.Adjusted)
	assert.Len(t, resp.Poses, 3)
}

func TestExportRange(t *testing.T) {
	s, mfs := setupTestServer(t, false)

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, s, http.MethodGet, "/api/export").Code)

	w := do(t, s, http.MethodPost, "/api/export?start=0&end=2")
	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Path string `json:"path"`
	}
	decode(t, w, &resp)
	assert.True(t, strings.HasPrefix(resp.Path, filepath.Join("root", "out")), resp.Path)

	data, err := mfs.ReadFile(resp.Path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	p, ok := poselog.ParseExportLine(lines[2])
	require.True(t, ok)
	assert.InDelta(t, 2.0, p.X, 1e-9)
}

func TestFitLine(t *testing.T) {
	s, _ := setupTestServer(t, true)

	w := do(t, s, http.MethodGet, "/api/linefit?names=a.log")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Selection selectionInfo `json:"selection"`
		Fit       struct {
			Count int     `json:"count"`
			Angle float64 `json:"angle"`
		} `json:"fit"`
		RunID string `json:"run_id"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 3, resp.Selection.Count)
	assert.Equal(t, 3, resp.Fit.Count)
	assert.InDelta(t, 0.0, resp.Fit.Angle, 1e-9)
	assert.NotEmpty(t, resp.RunID)

	w = do(t, s, http.MethodGet, "/api/linefit?type=2")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, s, http.MethodGet, "/api/linefit?from=bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/runs?kind=linefit")
	require.Equal(t, http.StatusOK, w.Code)
	var runs []sqlite.AnalysisRun
	decode(t, w, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, resp.RunID, runs[0].RunID)
	assert.Equal(t, "a.log", runs[0].Source)
}

func TestStaticStats(t *testing.T) {
	s, _ := setupTestServer(t, false)
	w := do(t, s, http.MethodGet, "/api/stats?names=b.log")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Summary struct {
			Count int `json:"count"`
			Y     struct {
				Mean  float64 `json:"mean"`
				Range float64 `json:"range"`
			} `json:"y"`
		} `json:"summary"`
		RunID string `json:"run_id"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 2, resp.Summary.Count)
	assert.InDelta(t, 1.0, resp.Summary.Y.Mean, 1e-9)
	assert.InDelta(t, 0.0, resp.Summary.Y.Range, 1e-9)
	assert.Empty(t, resp.RunID)
}

func TestEvaluate(t *testing.T) {
	s, _ := setupTestServer(t, false)

	w := do(t, s, http.MethodGet, "/api/evaluate?ref=a.log&est=b.log")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Report struct {
			Compared  int       `json:"compared"`
			Truncated bool      `json:"truncated"`
			APE       []float64 `json:"ape"`
		} `json:"report"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 2, resp.Report.Compared)
	assert.True(t, resp.Report.Truncated)
	require.Len(t, resp.Report.APE, 2)
	assert.InDelta(t, 1.0, resp.Report.APE[0], 1e-9)

	tests := []struct {
		target string
		want   int
	}{
		{"/api/evaluate", http.StatusBadRequest},
		{"/api/evaluate?ref=a.log&est=zzz.log", http.StatusBadRequest},
		{"/api/evaluate?ref=a.log&est=b.log&step=5", http.StatusUnprocessableEntity},
		{"/api/evaluate?ref=a.log&est=b.log&step=-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, do(t, s, http.MethodGet, tt.target).Code)
		})
	}
}

func TestStep(t *testing.T) {
	s, _ := setupTestServer(t, false)

	w := do(t, s, http.MethodGet, "/api/step?ref=a.log&est=b.log&idx=2")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Step struct {
			Cursor  int `json:"cursor"`
			Offsets []struct {
				Index    int     `json:"index"`
				Distance float64 `json:"distance"`
			} `json:"offsets"`
		} `json:"step"`
		MaxLen int `json:"max_len"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 2, resp.Step.Cursor)
	require.Len(t, resp.Step.Offsets, 1)
	assert.Equal(t, 1, resp.Step.Offsets[0].Index)
	assert.InDelta(t, 1.4142135623730951, resp.Step.Offsets[0].Distance, 1e-9)
	assert.Equal(t, 3, resp.MaxLen)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/step?idx=1").Code)
}

func TestRunsDisabled(t *testing.T) {
	s, _ := setupTestServer(t, false)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/runs").Code)
}

func TestRunsGetAndDelete(t *testing.T) {
	s, _ := setupTestServer(t, true)
	w := do(t, s, http.MethodGet, "/api/evaluate?ref=a.log&est=b.log")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		RunID string `json:"run_id"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.RunID)

	w = do(t, s, http.MethodGet, "/api/runs?id="+resp.RunID)
	require.Equal(t, http.StatusOK, w.Code)
	var run sqlite.AnalysisRun
	decode(t, w, &run)
	assert.Equal(t, sqlite.KindEvaluation, run.Kind)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/runs?kind=bogus").Code)
	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/api/runs?id="+resp.RunID).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, "/api/runs?id="+resp.RunID).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/runs?id="+resp.RunID).Code)
}

func TestCharts(t *testing.T) {
	s, _ := setupTestServer(t, false)

	w := do(t, s, http.MethodGet, "/charts/trajectories?idx=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "a.log")
	assert.Contains(t, w.Body.String(), "QRCode")

	for _, target := range []string{
		"/charts/trajectories.png",
		"/charts/linefit.png?names=a.log",
		"/charts/evaluate.png?ref=a.log&est=b.log",
	} {
		t.Run(target, func(t *testing.T) {
			w := do(t, s, http.MethodGet, target)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
			assert.True(t, strings.HasPrefix(w.Body.String(), "\x89PNG"))
		})
	}
}

func TestChartsEmptyStore(t *testing.T) {
	SetLogger(nil)
	s := newTestServer(NewServer(testConfig(), fsutil.NewMemoryFileSystem(), trajectory.NewStore(""), nil))
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/charts/trajectories").Code)
}

func TestDebugRoutesWithDB(t *testing.T) {
	s, _ := setupTestServer(t, true)
	w := do(t, s, http.MethodGet, "/debug/db-stats")
	assert.NotEqual(t, http.StatusNotFound, w.Code)

	s2, _ := setupTestServer(t, false)
	assert.Equal(t, http.StatusNotFound, do(t, s2, http.MethodGet, "/debug/db-stats").Code)
}

func TestLoggingMiddleware(t *testing.T) {
	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { SetLogger(nil) })

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/frame?idx=1", nil))

	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "418")
	assert.Contains(t, lines[0], "/api/frame?idx=1")
	assert.Contains(t, lines[0], "GET")
}

func TestStatusCodeColor(t *testing.T) {
	assert.Contains(t, statusCodeColor(200), colorBoldGreen)
	assert.Contains(t, statusCodeColor(302), colorYellow)
	assert.Contains(t, statusCodeColor(404), colorBoldRed)
	assert.Contains(t, statusCodeColor(503), colorBoldRed)
	assert.Equal(t, "100", statusCodeColor(100))
}
