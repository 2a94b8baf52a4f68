package ragscore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/datar-psa/ragscore/api"
	"github.com/datar-psa/ragscore/config"
)

type cannedProvider struct {
	content string
}

func (p *cannedProvider) Generate(ctx context.Context, req api.GenerateRequest) (*api.GenerateResponse, error) {
	return &api.GenerateResponse{Content: p.content}, nil
}

func testConfig(t *testing.T, endpointURL string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Endpoint.URL = endpointURL
	cfg.Judge.APIKey = "test-key"
	cfg.Run.DatasetPath = filepath.Join(t.TempDir(), "qas.jsonl")
	cfg.Run.SummaryPath = filepath.Join(t.TempDir(), "summary.json")
	return cfg
}

func writeDataset(t *testing.T, path string, lines string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewPipeline_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default() // no endpoint url, no api key
	_, err := NewPipeline(context.Background(), cfg)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewPipeline() error = %v, want ErrInvalidConfig", err)
	}
}

func TestPipeline_Run(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"answer": "Paris is the capital of France.",
		})
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	writeDataset(t, cfg.Run.DatasetPath,
		`{"id": "qa-1", "question": "What is the capital of France?", "answer": "Paris"}
`)

	pipeline, err := NewPipeline(context.Background(), cfg,
		WithProvider(&cannedProvider{content: `{"score": 5, "reason": "exact match"}`}))
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	summary, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Total != 1 || summary.Correct != 1 {
		t.Errorf("summary = %+v, want 1 correct", summary)
	}

	data, err := os.ReadFile(cfg.Run.SummaryPath)
	if err != nil {
		t.Fatalf("summary report not written: %v", err)
	}
	var report struct {
		Summary struct {
			Total int `json:"total"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("summary report not valid JSON: %v", err)
	}
	if report.Summary.Total != 1 {
		t.Errorf("report total = %d, want 1", report.Summary.Total)
	}
}

func TestPipeline_RunMissingDataset(t *testing.T) {
	cfg := testConfig(t, "http://localhost:9/query")
	pipeline, err := NewPipeline(context.Background(), cfg,
		WithProvider(&cannedProvider{content: `{}`}))
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	if _, err := pipeline.Run(context.Background()); err == nil {
		t.Fatal("Run() with missing dataset succeeded")
	}
}

func TestPipeline_EvaluateSkipsDatasetLoading(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"answer": "blue"})
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	cfg.Run.DatasetPath = "" // not used by Evaluate
	cfg.Run.SummaryPath = ""

	pipeline, err := NewPipeline(context.Background(), cfg,
		WithProvider(&cannedProvider{content: `{"score": 2, "reason": "incomplete"}`}))
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	summary, err := pipeline.Evaluate(context.Background(), []QAPair{
		{ID: "qa-1", Question: "What color is the sky?", Answer: "Blue, due to Rayleigh scattering"},
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if summary.Total != 1 || summary.Correct != 0 {
		t.Errorf("summary = %+v, want 1 incorrect", summary)
	}
	if summary.Results[0].Score != 2 {
		t.Errorf("score = %d, want 2", summary.Results[0].Score)
	}
}
