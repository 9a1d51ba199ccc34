package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dgallion1/tripgenie/internal/config"
	"github.com/dgallion1/tripgenie/internal/generate"
	"github.com/dgallion1/tripgenie/internal/pipeline"
	"github.com/dgallion1/tripgenie/internal/segment"
	"github.com/dgallion1/tripgenie/internal/store"
)

const (
	testAPIKey = "secret"
	planText   = "1. Lodging\nStay in Alfama.\n2. Dining\nTry pastel de nata."
)

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, string) (string, error) { return planText, nil }
func (stubGenerator) Model() string                                  { return "stub-model" }

type testEnv struct {
	srv   *Server
	plans *store.Store
}

func newTestEnv(t *testing.T, start bool, tweak func(*config.Config)) *testEnv {
	t.Helper()
	cfg := config.Defaults()
	cfg.APIKey = testAPIKey
	cfg.WorkerCount = 1
	cfg.MaxQueueSize = 4
	cfg.MaxUploadBytes = 1 << 20
	if tweak != nil {
		tweak(&cfg)
	}

	plans, err := store.Open(filepath.Join(t.TempDir(), "plans.db"), 8)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { plans.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	orch := pipeline.NewOrchestrator(cfg, stubGenerator{}, plans, pipeline.MustNewMetrics(reg), log)
	if start {
		orch.Start(context.Background())
		t.Cleanup(orch.Stop)
	}

	return &testEnv{
		srv:   NewServer(orch, plans, generate.NewLLMStats(0), reg, log, cfg),
		plans: plans,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if v != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(raw)
	}
	return e.do(t, method, path, body, "application/json")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func multipartBody(t *testing.T, field string, files map[string]string, order []string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range order {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(fw, files[name])
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func tripRequest() map[string]any {
	return map[string]any{
		"source":      "Boston",
		"destination": "Lisbon",
		"start_date":  "2026-05-01",
		"end_date":    "2026-05-06",
		"budget":      "$3000",
		"travelers":   "2",
		"interests":   "food",
	}
}

func (e *testEnv) waitForPlan(t *testing.T, planID string) pipeline.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := e.do(t, http.MethodGet, "/api/plans/"+planID+"/status", nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status: %d %s", rec.Code, rec.Body.String())
		}
		if snap := decode[pipeline.JobSnapshot](t, rec); snap.Done() {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("plan %s never finished", planID)
	return pipeline.JobSnapshot{}
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t, false, nil)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[map[string]any](t, rec)["status"]; got != "ok" {
		t.Errorf("unexpected status %v", got)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, false, nil)
	for _, auth := range []string{"", "Bearer wrong", "secret"} {
		req := httptest.NewRequest(http.MethodGet, "/api/plans", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		env.srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("auth %q: expected 401, got %d", auth, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("auth %q: expected JSON error, got %q", auth, ct)
		}
	}
}

func TestSegmentText(t *testing.T) {
	env := newTestEnv(t, false, nil)
	rec := env.doJSON(t, http.MethodPost, "/api/segment", map[string]string{"text": planText})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[segmentResponse](t, rec)
	want := segmentResponse{
		Strategy: segment.StrategyHeaders,
		Sections: []segment.Section{
			{Title: "Lodging", Content: "Stay in Alfama."},
			{Title: "Dining", Content: "Try pastel de nata."},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestSegmentBlankTextReturnsEmptyArray(t *testing.T) {
	env := newTestEnv(t, false, nil)
	rec := env.doJSON(t, http.MethodPost, "/api/segment", map[string]string{"text": "  \n\t "})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"sections":[]`) {
		t.Errorf("expected empty sections array, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"strategy":"none"`) {
		t.Errorf("expected strategy none, got %s", rec.Body.String())
	}
}

func TestSegmentRequiresText(t *testing.T) {
	env := newTestEnv(t, false, nil)
	if rec := env.doJSON(t, http.MethodPost, "/api/segment", map[string]string{}); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing text, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/segment", strings.NewReader("{"), "application/json"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad JSON, got %d", rec.Code)
	}
}

func TestSegmentUpload(t *testing.T) {
	env := newTestEnv(t, false, nil)
	body, ct := multipartBody(t, "file", map[string]string{
		"plan.md": "# Lodging\n\nStay in Alfama.\n\n# Dining\n\nTry pastel de nata.\n",
	}, []string{"plan.md"})

	rec := env.do(t, http.MethodPost, "/api/segment", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[segmentResponse](t, rec)
	if got.Filename != "plan.md" || got.Strategy != segment.StrategyHeaders {
		t.Errorf("unexpected response %+v", got)
	}
	if len(got.Sections) != 2 || got.Sections[0].Title != "Lodging" || got.Sections[1].Content != "Try pastel de nata." {
		t.Errorf("unexpected sections %+v", got.Sections)
	}
}

func TestSegmentUploadRejectsUnsupportedType(t *testing.T) {
	env := newTestEnv(t, false, nil)
	body, ct := multipartBody(t, "file", map[string]string{"plan.exe": "MZ"}, []string{"plan.exe"})
	if rec := env.do(t, http.MethodPost, "/api/segment", body, ct); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSegmentBatchKeepsUploadOrder(t *testing.T) {
	env := newTestEnv(t, false, nil)
	files := map[string]string{
		"a.txt": "Lodging\nStay in Alfama.\n",
		"b.exe": "MZ",
		"c.md":  "## Dining\nTry pastel de nata.\n",
		"d.txt": "   ",
	}
	body, ct := multipartBody(t, "files", files, []string{"a.txt", "b.exe", "c.md", "d.txt"})

	rec := env.do(t, http.MethodPost, "/api/segment/batch", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[struct {
		Results []segmentResponse `json:"results"`
	}](t, rec).Results

	if len(got) != 4 {
		t.Fatalf("expected 4 results, got %d", len(got))
	}
	var names []string
	for _, r := range got {
		names = append(names, r.Filename)
	}
	if diff := cmp.Diff([]string{"a.txt", "b.exe", "c.md", "d.txt"}, names); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if got[0].Strategy != segment.StrategyLines || len(got[0].Sections) != 1 {
		t.Errorf("unexpected text result %+v", got[0])
	}
	if got[1].Error == "" {
		t.Errorf("expected error for unsupported file, got %+v", got[1])
	}
	if got[2].Strategy != segment.StrategyHeaders || got[2].Sections[0].Title != "Dining" {
		t.Errorf("unexpected markdown result %+v", got[2])
	}
	if got[3].Strategy != segment.StrategyNone || got[3].Sections == nil {
		t.Errorf("expected empty result for blank file, got %+v", got[3])
	}
}

func TestCreatePlanValidation(t *testing.T) {
	env := newTestEnv(t, false, nil)
	req := tripRequest()
	delete(req, "budget")

	rec := env.doJSON(t, http.MethodPost, "/api/plans", req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	got := decode[map[string]string](t, rec)
	if got["field"] != "budget" || got["error"] != "Please enter your budget" {
		t.Errorf("unexpected validation error %v", got)
	}
}

func TestCreatePlanQueueFull(t *testing.T) {
	env := newTestEnv(t, false, func(c *config.Config) { c.MaxQueueSize = 1 })
	if rec := env.doJSON(t, http.MethodPost, "/api/plans", tripRequest()); rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if rec := env.doJSON(t, http.MethodPost, "/api/plans", tripRequest()); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestPlanLifecycle(t *testing.T) {
	env := newTestEnv(t, true, nil)

	rec := env.doJSON(t, http.MethodPost, "/api/plans", tripRequest())
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[map[string]string](t, rec)
	planID := created["plan_id"]
	if planID == "" || created["job_id"] == "" || created["poll_url"] != "/api/plans/"+planID+"/status" {
		t.Fatalf("unexpected create response %v", created)
	}

	snap := env.waitForPlan(t, planID)
	if snap.Status != pipeline.StatusCompleted || snap.Progress.Sections != 2 {
		t.Fatalf("unexpected final snapshot %+v", snap)
	}

	rec = env.do(t, http.MethodGet, "/api/plans/"+planID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}
	plan := decode[store.Plan](t, rec)
	if plan.Model != "stub-model" || plan.RawText != planText || len(plan.Sections) != 2 {
		t.Errorf("unexpected plan %+v", plan)
	}

	rec = env.do(t, http.MethodGet, "/api/plans?limit=10", nil, "")
	list := decode[struct {
		Plans []planSummary `json:"plans"`
	}](t, rec).Plans
	if len(list) != 1 || list[0].ID != planID || list[0].Title != "Boston to Lisbon" || list[0].Sections != 2 {
		t.Errorf("unexpected list %+v", list)
	}

	rec = env.do(t, http.MethodGet, "/api/plans/"+planID+"/export?format=markdown", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/markdown") {
		t.Errorf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "# Boston to Lisbon") || !strings.Contains(rec.Body.String(), "## Dining") {
		t.Errorf("unexpected markdown %q", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "plan-"+planID+".md") {
		t.Errorf("unexpected disposition %q", cd)
	}

	rec = env.do(t, http.MethodGet, "/api/plans/"+planID+"/export?format=docx", nil, "")
	if rec.Code != http.StatusOK || rec.Body.Len() == 0 {
		t.Errorf("docx export: %d (%d bytes)", rec.Code, rec.Body.Len())
	}
	if rec := env.do(t, http.MethodGet, "/api/plans/"+planID+"/export?format=pdf", nil, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unsupported format, got %d", rec.Code)
	}

	if rec := env.do(t, http.MethodDelete, "/api/plans/"+planID, nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/plans/"+planID, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/plans/"+planID, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestDuplicateRequestResolvesToExistingPlan(t *testing.T) {
	env := newTestEnv(t, true, nil)

	first := decode[map[string]string](t, env.doJSON(t, http.MethodPost, "/api/plans", tripRequest()))
	env.waitForPlan(t, first["plan_id"])

	second := decode[map[string]string](t, env.doJSON(t, http.MethodPost, "/api/plans", tripRequest()))
	snap := env.waitForPlan(t, second["plan_id"])
	if snap.Status != pipeline.StatusDupSkipped || snap.PlanID != first["plan_id"] {
		t.Fatalf("expected duplicate of %s, got %+v", first["plan_id"], snap)
	}

	rec := env.do(t, http.MethodGet, "/api/plans/"+second["plan_id"], nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected duplicate to resolve, got %d", rec.Code)
	}
	if got := decode[store.Plan](t, rec); got.ID != first["plan_id"] {
		t.Errorf("expected existing plan, got %s", got.ID)
	}

	forced := tripRequest()
	forced["force"] = true
	third := decode[map[string]string](t, env.doJSON(t, http.MethodPost, "/api/plans", forced))
	if snap := env.waitForPlan(t, third["plan_id"]); snap.Status != pipeline.StatusCompleted {
		t.Errorf("expected forced request to generate, got %q", snap.Status)
	}
}

func TestPlanStatusFromStoreAndMissing(t *testing.T) {
	env := newTestEnv(t, false, nil)
	err := env.plans.Put(context.Background(), &store.Plan{
		ID:        "stored",
		Strategy:  segment.StrategyFallback,
		Sections:  []segment.Section{{Title: segment.DefaultTitle, Content: "x"}},
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/api/plans/stored/status", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if snap := decode[pipeline.JobSnapshot](t, rec); snap.Status != pipeline.StatusCompleted || snap.Progress.Sections != 1 {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	if rec := env.do(t, http.MethodGet, "/api/plans/missing/status", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/plans?limit=zero", nil, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestMetricsAndStats(t *testing.T) {
	env := newTestEnv(t, true, nil)
	created := decode[map[string]string](t, env.doJSON(t, http.MethodPost, "/api/plans", tripRequest()))
	env.waitForPlan(t, created["plan_id"])

	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
	for _, name := range []string{"tripgenie_pipeline_job_duration_seconds", "tripgenie_segment_results_total"} {
		if !strings.Contains(rec.Body.String(), name) {
			t.Errorf("expected %s in metrics output", name)
		}
	}

	rec = env.do(t, http.MethodGet, "/api/stats/llm", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: %d", rec.Code)
	}
	if got := decode[map[string]any](t, rec)["model"]; got != "stub-model" {
		t.Errorf("unexpected model %v", got)
	}
}
