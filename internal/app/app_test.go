package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgallion1/clausecheck/internal/config"
	"github.com/dgallion1/clausecheck/internal/pipeline"
	"github.com/dgallion1/clausecheck/internal/sheet"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeOpenAI answers "Yes" to every chat completion, or 500 when failing.
func fakeOpenAI(t *testing.T, failing bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if failing {
			http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": " Yes."}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) config.Config {
	return config.Config{
		LLMProvider:   "openai",
		OpenAIAPIKey:  "sk-test",
		OpenAIBaseURL: baseURL,
		LLMTimeout:    5 * time.Second,
		StatsWindow:   time.Hour,
	}
}

const leasesCSV = `LOCATION,Critical Clause Language
Store 1,Tenant may operate a coffee cart
Store 2,Books only
`

func TestNew_RunsAgainstOpenAI(t *testing.T) {
	srv := fakeOpenAI(t, false)
	a, err := New(testConfig(srv.URL), discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	var buf bytes.Buffer
	res, err := a.Runner.Run(context.Background(),
		pipeline.UploadSource{Name: "leases.csv", Data: []byte(leasesCSV)},
		pipeline.Sink{W: &buf, Format: sheet.FormatCSV}, a.Settings, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Report.Calls != 4 || res.Report.Failures != 0 {
		t.Errorf("unexpected report %+v", res.Report)
	}
	if v, _ := res.Output.Rows[0].Get(pipeline.ColCoffeeAllowed); v != "Yes" {
		t.Errorf("expected Yes, got %v", v)
	}
	if snap := a.Stats.Snapshot(); snap.Count != 4 {
		t.Errorf("expected 4 stats samples, got %d", snap.Count)
	}
}

func TestNew_BreakerTurnsOutageIntoErrorLabels(t *testing.T) {
	srv := fakeOpenAI(t, true)
	cfg := testConfig(srv.URL)
	cfg.Breaker = config.Breaker{Enabled: true, MinRequests: 1, FailureRatio: 0.5, OpenTimeout: time.Minute}
	a, err := New(cfg, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	res, err := a.Runner.Run(context.Background(),
		pipeline.UploadSource{Name: "leases.csv", Data: []byte(leasesCSV)},
		pipeline.Sink{}, a.Settings, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Report.Failures != res.Report.Calls {
		t.Errorf("expected every call to fail, got %+v", res.Report)
	}
	for _, row := range res.Output.Rows {
		if v, _ := row.Get(pipeline.ColCoffeeAllowed); v != "Error" {
			t.Errorf("expected Error, got %v", v)
		}
	}
	// Only the first call reaches the server before the circuit opens.
	if snap := a.Stats.Snapshot(); snap.Count != 1 {
		t.Errorf("expected 1 call through the breaker, got %d", snap.Count)
	}
}

func TestNew_BadMode(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Analysis.Mode = "sideways"
	if _, err := New(cfg, discardLogger()); err == nil {
		t.Fatal("expected error for bad mode")
	}
}
