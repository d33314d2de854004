package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaredboynton/postman-probe-sub001/internal/collector"
	"github.com/jaredboynton/postman-probe-sub001/internal/governance"
	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/config"
	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/database"
	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/logging"
	"github.com/jaredboynton/postman-probe-sub001/internal/snapshot"
	_ "github.com/jaredboynton/postman-probe-sub001/migrations"
)

// stubTrigger records trigger calls and returns a canned error.
type stubTrigger struct {
	err    error
	called bool
}

func (s *stubTrigger) Trigger(_ context.Context) error {
	s.called = true
	return s.err
}

type testServer struct {
	server  *Server
	scores  *governance.SQLiteRepository
	snaps   *snapshot.SQLiteRepository
	runs    *collector.SQLiteRunRepository
	trigger *stubTrigger
	router  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "probe.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	ts := &testServer{
		scores:  governance.NewSQLiteRepository(db.DB),
		snaps:   snapshot.NewSQLiteRepository(db.DB),
		runs:    collector.NewSQLiteRunRepository(db.DB),
		trigger: &stubTrigger{},
	}

	server, err := New(Deps{
		Config:    config.APIConfig{Host: "127.0.0.1", Port: 0},
		Logger:    logging.New(config.LoggingConfig{Level: "error", Output: "none"}, "test"),
		Scores:    ts.scores,
		Snapshots: ts.snaps,
		Runs:      ts.runs,
		Collector: ts.trigger,
		Database:  db,
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts.server = server
	ts.router = server.buildRouter()
	return ts
}

func (ts *testServer) request(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return body
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("expected error for missing dependencies")
	}
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["database"] != "ok" {
		t.Errorf("database field = %v, want ok", body["database"])
	}
	if _, ok := body["last_run"]; !ok {
		t.Error("expected last_run field")
	}
}

func TestHandleLatestScore_NoRuns(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/v1/scores/latest")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleLatestScore(t *testing.T) {
	ts := newTestServer(t)

	report := &governance.Report{
		Score: governance.Score{
			RunID:      "run-1",
			Overall:    0.82,
			Categories: map[string]float64{"naming": 0.9},
		},
	}
	if err := ts.scores.SaveReport(context.Background(), report); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}

	rec := ts.request(t, http.MethodGet, "/api/v1/scores/latest")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["run_id"] != "run-1" {
		t.Errorf("run_id = %v, want run-1", body["run_id"])
	}
	if body["overall"] != 0.82 {
		t.Errorf("overall = %v, want 0.82", body["overall"])
	}
}

func TestHandleListScores_BadLimit(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/v1/scores?limit=abc")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleListViolations(t *testing.T) {
	ts := newTestServer(t)

	report := &governance.Report{
		Score: governance.Score{RunID: "run-1", Categories: map[string]float64{}},
		Violations: []governance.Violation{
			{
				RunID: "run-1", Rule: "collection_tags",
				Category: governance.CategoryTagging, Severity: governance.SeverityInfo,
				EntityType: "collection", EntityID: "col-1", Message: "no tags",
			},
			{
				RunID: "run-1", Rule: "collection_workspace",
				Category: governance.CategoryOrganization, Severity: governance.SeverityError,
				EntityType: "collection", EntityID: "col-2", Message: "orphaned",
			},
		},
	}
	if err := ts.scores.SaveReport(context.Background(), report); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}

	rec := ts.request(t, http.MethodGet, "/api/v1/violations?severity=error")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["total"] != float64(1) {
		t.Errorf("total = %v, want 1", body["total"])
	}

	rec = ts.request(t, http.MethodGet, "/api/v1/violations?offset=-1")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for negative offset", rec.Code)
	}
}

func TestHandleListSnapshots(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		snap := &snapshot.Snapshot{
			RunID:      "run-1",
			Overall:    0.8,
			Categories: map[string]float64{},
			CreatedAt:  base.AddDate(0, 0, i),
		}
		if err := ts.snaps.Record(ctx, snap); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	rec := ts.request(t, http.MethodGet, "/api/v1/snapshots?since="+base.AddDate(0, 0, 1).Format(time.RFC3339))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["count"] != float64(2) {
		t.Errorf("count = %v, want 2", body["count"])
	}

	rec = ts.request(t, http.MethodGet, "/api/v1/snapshots?since=yesterday")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for bad since", rec.Code)
	}
}

func TestHandleListRuns(t *testing.T) {
	ts := newTestServer(t)

	run := &collector.Run{Trigger: collector.TriggerCron, Status: collector.StatusCompleted}
	if err := ts.runs.Record(context.Background(), run); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	rec := ts.request(t, http.MethodGet, "/api/v1/runs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["count"] != float64(1) {
		t.Errorf("count = %v, want 1", body["count"])
	}
}

func TestHandleTriggerRun(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodPost, "/api/v1/runs/trigger")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if !ts.trigger.called {
		t.Error("expected collector trigger to be called")
	}
}

func TestHandleTriggerRun_InProgress(t *testing.T) {
	ts := newTestServer(t)
	ts.trigger.err = collector.ErrRunInProgress

	rec := ts.request(t, http.MethodPost, "/api/v1/runs/trigger")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/v1/health")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://dashboard.local" {
		t.Errorf("Allow-Origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestServerLifecycle(t *testing.T) {
	ts := newTestServer(t)

	if err := ts.server.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := ts.server.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := ts.server.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
