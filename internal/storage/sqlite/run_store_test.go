package sqlite

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_MigratesToLatest(t *testing.T) {
	db := openTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Reopening an up-to-date database is a no-op migration.
	again, err := Open(db.Path())
	require.NoError(t, err)
	again.Close()
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.MigrateDown())

	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)

	require.NoError(t, db.MigrateUp())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestRunStore_InsertGetDelete(t *testing.T) {
	store := openTestDB(t).Runs()

	run := &AnalysisRun{
		Kind:       KindEvaluation,
		Source:     "ref.log vs est.log",
		ParamsJSON: json.RawMessage(`{"step":1}`),
		ResultJSON: json.RawMessage(`{"ape_rmse":0.08}`),
	}
	require.NoError(t, store.Insert(run))
	assert.NotEmpty(t, run.RunID)
	assert.NotZero(t, run.CreatedAt)

	got, err := store.Get(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.Kind, got.Kind)
	assert.Equal(t, run.Source, got.Source)
	assert.JSONEq(t, `{"step":1}`, string(got.ParamsJSON))
	assert.JSONEq(t, `{"ape_rmse":0.08}`, string(got.ResultJSON))
	assert.Equal(t, run.CreatedAt, got.CreatedAt)

	require.NoError(t, store.Delete(run.RunID))
	_, err = store.Get(run.RunID)
	assert.True(t, errors.Is(err, ErrRunNotFound), "got %v", err)
	assert.ErrorIs(t, store.Delete(run.RunID), ErrRunNotFound)
}

func TestRunStore_NullJSON(t *testing.T) {
	store := openTestDB(t).Runs()

	run := &AnalysisRun{RunID: "fixed-id", Kind: KindSummary, CreatedAt: 42}
	require.NoError(t, store.Insert(run))

	got, err := store.Get("fixed-id")
	require.NoError(t, err)
	assert.Nil(t, got.ParamsJSON)
	assert.Nil(t, got.ResultJSON)
	assert.Equal(t, int64(42), got.CreatedAt)

	assert.Error(t, store.Insert(&AnalysisRun{RunID: "fixed-id", Kind: KindSummary}), "duplicate id")
}

func TestRunStore_RejectsUnknownKind(t *testing.T) {
	store := openTestDB(t).Runs()
	assert.Error(t, store.Insert(&AnalysisRun{Kind: "bogus"}))
}

func TestRunStore_List(t *testing.T) {
	store := openTestDB(t).Runs()

	for i, kind := range []string{KindLineFit, KindEvaluation, KindLineFit, KindSummary} {
		require.NoError(t, store.Insert(&AnalysisRun{Kind: kind, CreatedAt: int64(100 + i)}))
	}

	all, err := store.List("", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, int64(103), all[0].CreatedAt, "newest first")

	fits, err := store.List(KindLineFit, 0)
	require.NoError(t, err)
	require.Len(t, fits, 2)
	assert.Equal(t, int64(102), fits[0].CreatedAt)

	limited, err := store.List("", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	counts, err := store.CountByKind()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{KindLineFit: 2, KindEvaluation: 1, KindSummary: 1}, counts)
}

func TestStats(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Runs().Insert(&AnalysisRun{Kind: KindLineFit}))

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint(1), stats.SchemaVersion)
	assert.Equal(t, 1, stats.RunsByKind[KindLineFit])
	assert.Equal(t, db.Path(), stats.Path)
}

func TestAttachAdminRoutes(t *testing.T) {
	db := openTestDB(t)
	mux := http.NewServeMux()
	db.AttachAdminRoutes(mux)

	// Routes may answer 403 to non-local callers, but must be registered.
	for _, endpoint := range []string{"/debug/", "/debug/db-stats", "/debug/tailsql/"} {
		t.Run(endpoint, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, endpoint, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			if w.Code == http.StatusNotFound {
				t.Errorf("Endpoint %s should be registered, got 404", endpoint)
			}
		})
	}
}
