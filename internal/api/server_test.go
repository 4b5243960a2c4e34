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
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/clausecheck/internal/classify"
	"github.com/dgallion1/clausecheck/internal/completion"
	"github.com/dgallion1/clausecheck/internal/config"
	"github.com/dgallion1/clausecheck/internal/metrics"
	"github.com/dgallion1/clausecheck/internal/pipeline"
	"github.com/dgallion1/clausecheck/internal/sheet"
)

const testAPIKey = "test-key"

const leasesCSV = `LOCATION,Critical Clause Type,Critical Clause Language
A,Use,May not sell coffee
A,Prohibited Use,No food service
B,Use,Tenant may operate a coffee cart
`

// echoClassifier labels clauses by policy name without a completion service.
type echoClassifier struct{}

func (echoClassifier) Classify(_ context.Context, p classify.Policy, text string) classify.Result {
	if p.Name == classify.PolicyCoffeeAllowed {
		return classify.Result{Policy: p.Name, Label: classify.LabelYes}
	}
	return classify.Result{Policy: p.Name, Label: classify.Label(p.Name + " <" + text + ">")}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Config {
	return config.Config{
		APIKey:         testAPIKey,
		WorkerCount:    1,
		MaxQueueSize:   4,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
	}
}

// newTestServer returns a server whose orchestrator is running unless
// started is false.
func newTestServer(t *testing.T, started bool) *Server {
	t.Helper()
	cfg := testConfig()
	log := discardLogger()
	orch := pipeline.NewOrchestrator(cfg, pipeline.NewRunner(echoClassifier{}, log), nil, log)
	if started {
		orch.Start(context.Background())
		t.Cleanup(orch.Stop)
	}
	stats := completion.NewStats(time.Hour)
	stats.Record(20*time.Millisecond, false)
	return NewServer(orch, Options{
		Stats:   stats,
		Model:   "gpt-4o",
		Metrics: metrics.New().Handler(),
	}, log, cfg)
}

func uploadRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	return req
}

func authed(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func submit(t *testing.T, srv *Server, fields map[string]string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, "leases.csv", leasesCSV, fields))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	return decode(t, rec)["job_id"].(string)
}

func waitDone(t *testing.T, srv *Server, jobID string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, authed(http.MethodGet, "/api/analyze/"+jobID+"/status"))
		if rec.Code != http.StatusOK {
			t.Fatalf("status: %d %s", rec.Code, rec.Body.String())
		}
		snap := decode(t, rec)
		if s := snap["status"]; s == string(pipeline.StatusCompleted) || s == string(pipeline.StatusFailed) {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s did not finish: %v", jobID, snap)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, false)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, false)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, false)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing header: expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: expected 401, got %d", rec.Code)
	}
}

func TestAnalyze_RowsEndToEnd(t *testing.T) {
	srv := newTestServer(t, true)
	jobID := submit(t, srv, map[string]string{"search_keyword": "coffee"})

	snap := waitDone(t, srv, jobID)
	if snap["status"] != string(pipeline.StatusCompleted) {
		t.Fatalf("job failed: %v", snap)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(http.MethodGet, "/api/analyze/"+jobID+"/results"))
	if rec.Code != http.StatusOK {
		t.Fatalf("results: %d %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	cols := body["columns"].([]any)
	if len(cols) != 3 || cols[1] != "Coffee Allowed" {
		t.Errorf("unexpected columns %v", cols)
	}
	if rows := body["rows"].([]any); len(rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(rows))
	}
}

func TestAnalyze_GroupsHTMLAndDownload(t *testing.T) {
	srv := newTestServer(t, true)
	jobID := submit(t, srv, map[string]string{"mode": "groups"})
	waitDone(t, srv, jobID)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(http.MethodGet, "/api/analyze/"+jobID+"/results?format=html"))
	if rec.Code != http.StatusOK {
		t.Fatalf("html results: %d %s", rec.Code, rec.Body.String())
	}
	page := rec.Body.String()
	if !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	for _, want := range []string{"<table>", "<th>Prohibited Use</th>", "<td>Not Found</td>"} {
		if !strings.Contains(page, want) {
			t.Errorf("html missing %q:\n%s", want, page)
		}
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(http.MethodGet, "/api/analyze/"+jobID+"/download"))
	if rec.Code != http.StatusOK {
		t.Fatalf("download: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), sheet.DefaultOutputName) {
		t.Errorf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}
	tbl, err := sheet.Load(bytes.NewReader(rec.Body.Bytes()), sheet.DefaultOutputName)
	if err != nil {
		t.Fatalf("reload workbook: %v", err)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(tbl.Rows))
	}
	if got := tbl.Rows[1].Text("Prohibited Use"); got != "Not Found" {
		t.Errorf("group B prohibited use = %q", got)
	}
}

func TestAnalyze_MissingColumnsFailsJob(t *testing.T) {
	srv := newTestServer(t, true)
	jobID := submit(t, srv, map[string]string{"location_column": "Site"})
	snap := waitDone(t, srv, jobID)
	if snap["status"] != string(pipeline.StatusFailed) || snap["phase"] != "configure" {
		t.Fatalf("expected configure failure, got %v", snap)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(http.MethodGet, "/api/analyze/"+jobID+"/results"))
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for failed job, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Site") {
		t.Errorf("expected missing column in error, got %s", rec.Body.String())
	}
}

func TestAnalyze_BadRequests(t *testing.T) {
	srv := newTestServer(t, false)
	cases := []struct {
		name     string
		filename string
		fields   map[string]string
	}{
		{"no file", "", nil},
		{"unsupported type", "leases.pdf", nil},
		{"bad mode", "leases.csv", map[string]string{"mode": "diagonal"}},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, uploadRequest(t, tc.filename, leasesCSV, tc.fields))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d: %s", tc.name, rec.Code, rec.Body.String())
		}
	}
}

func TestAnalyze_QueuedJobHasNoResults(t *testing.T) {
	srv := newTestServer(t, false)
	jobID := submit(t, srv, nil)

	for _, path := range []string{"/results", "/download"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, authed(http.MethodGet, "/api/analyze/"+jobID+path))
		if rec.Code != http.StatusConflict {
			t.Errorf("%s: expected 409, got %d", path, rec.Code)
		}
	}
}

func TestAnalyze_UnknownJob(t *testing.T) {
	srv := newTestServer(t, false)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(http.MethodGet, "/api/analyze/nope/status"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLLMStats(t *testing.T) {
	srv := newTestServer(t, false)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(http.MethodGet, "/api/stats/llm"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["model"] != "gpt-4o" {
		t.Errorf("unexpected model %v", body["model"])
	}
	stats := body["stats"].(map[string]any)
	if stats["count"] != float64(1) {
		t.Errorf("expected one sample, got %v", stats["count"])
	}
}

func TestRequestSettings_Overrides(t *testing.T) {
	srv := newTestServer(t, false)
	srv.defaults.SearchKeyword = "coffee"
	req := uploadRequest(t, "x.csv", "a\n", map[string]string{
		"mode":           "groups",
		"clause_column":  "Text",
		"subject":        "tea",
		"search_keyword": "",
	})
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatal(err)
	}
	s, err := srv.requestSettings(req)
	if err != nil {
		t.Fatalf("requestSettings: %v", err)
	}
	if s.Mode != pipeline.ModeGroups || s.ClauseColumn != "Text" || s.Prompts.Subject != "tea" {
		t.Errorf("overrides not applied: %+v", s)
	}
	if s.SearchKeyword != "" {
		t.Errorf("explicit empty keyword should clear the default, got %q", s.SearchKeyword)
	}
	if s.LocationColumn != pipeline.DefaultLocationColumn {
		t.Errorf("unexpected location column %q", s.LocationColumn)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd.csv": "passwd.csv",
		"leases.xlsx":          "leases.xlsx",
		"":                     "unnamed",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
