package llmjudge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/datar-psa/ragscore/api"
)

// mockProvider is a scripted completion provider for unit tests.
type mockProvider struct {
	content string
	err     error
	calls   int
}

func (m *mockProvider) Generate(ctx context.Context, req api.GenerateRequest) (*api.GenerateResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &api.GenerateResponse{Content: m.content}, nil
}

func TestJudge(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		response      string
		providerErr   error
		detailed      bool
		wantScore     int
		wantCorrect   bool
		wantReason    string
		wantDims      map[string]int
		reasonPrefix  bool
	}{
		{
			name:        "perfect match",
			response:    `{"score": 5, "reason": "match"}`,
			wantScore:   5,
			wantCorrect: true,
			wantReason:  "match",
		},
		{
			name:        "threshold boundary",
			response:    `{"score": 4, "reason": "mostly correct"}`,
			wantScore:   4,
			wantCorrect: true,
			wantReason:  "mostly correct",
		},
		{
			name:        "below threshold",
			response:    `{"score": 3, "reason": "partial"}`,
			wantScore:   3,
			wantCorrect: false,
			wantReason:  "partial",
		},
		{
			name:        "out of range clamps high",
			response:    `{"score": 7, "reason": "overenthusiastic judge"}`,
			wantScore:   5,
			wantCorrect: true,
			wantReason:  "overenthusiastic judge",
		},
		{
			name:        "zero clamps low",
			response:    `{"score": 0, "reason": "harsh"}`,
			wantScore:   1,
			wantCorrect: false,
			wantReason:  "harsh",
		},
		{
			name:        "quoted fractional score truncates then clamps",
			response:    `{"score": "4.5", "reason": "close"}`,
			wantScore:   4,
			wantCorrect: true,
			wantReason:  "close",
		},
		{
			name:        "reason containing a lone brace is kept intact",
			response:    `{"score": 5, "reason": "the answer included a stray { character"}`,
			wantScore:   5,
			wantCorrect: true,
			wantReason:  "the answer included a stray { character",
		},
		{
			name:        "missing reason gets default",
			response:    `{"score": 5}`,
			wantScore:   5,
			wantCorrect: true,
			wantReason:  "No reason provided",
		},
		{
			name:         "provider error degrades",
			providerErr:  errors.New("connection refused"),
			wantScore:    1,
			wantCorrect:  false,
			wantReason:   "Evaluation error: ",
			reasonPrefix: true,
		},
		{
			name:         "unparsable response degrades to minimum",
			response:     "I think the answer deserves a solid four.",
			wantScore:    1,
			wantCorrect:  false,
			wantReason:   "No reason provided",
		},
		{
			name:        "detailed extracts dimensions",
			response:    `{"score": 4, "reason": "good", "correctness": 5, "completeness": 4, "relevance": 9, "conciseness": 3, "faithfulness": 4}`,
			detailed:    true,
			wantScore:   4,
			wantCorrect: true,
			wantReason:  "good",
			wantDims: map[string]int{
				"correctness":  5,
				"completeness": 4,
				"relevance":    5, // clamped from 9
				"conciseness":  3,
				"faithfulness": 4,
			},
		},
		{
			name:        "detailed leaves omitted dimensions unset",
			response:    `{"score": 4, "reason": "good", "correctness": 4}`,
			detailed:    true,
			wantScore:   4,
			wantCorrect: true,
			wantReason:  "good",
			wantDims:    map[string]int{"correctness": 4},
		},
		{
			name:        "basic mode ignores dimension keys",
			response:    `{"score": 5, "reason": "match", "correctness": 5}`,
			wantScore:   5,
			wantCorrect: true,
			wantReason:  "match",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mockProvider{content: tt.response, err: tt.providerErr}
			judge := New(provider)

			got := judge.Judge(ctx, "What is the capital of France?", "Paris", "Paris is the capital of France.", tt.detailed)

			if got.Score != tt.wantScore {
				t.Errorf("Judge() score = %d, want %d", got.Score, tt.wantScore)
			}
			if got.IsCorrect != tt.wantCorrect {
				t.Errorf("Judge() is_correct = %v, want %v", got.IsCorrect, tt.wantCorrect)
			}
			if tt.reasonPrefix {
				if !strings.HasPrefix(got.Reason, tt.wantReason) {
					t.Errorf("Judge() reason = %q, want prefix %q", got.Reason, tt.wantReason)
				}
			} else if got.Reason != tt.wantReason {
				t.Errorf("Judge() reason = %q, want %q", got.Reason, tt.wantReason)
			}
			if len(got.Dimensions) != len(tt.wantDims) {
				t.Fatalf("Judge() dimensions = %v, want %v", got.Dimensions, tt.wantDims)
			}
			for dim, want := range tt.wantDims {
				if got.Dimensions[dim] != want {
					t.Errorf("Judge() dimension %q = %d, want %d", dim, got.Dimensions[dim], want)
				}
			}
		})
	}
}

// An empty candidate must resolve deterministically without a provider call.
func TestJudge_EmptyCandidateShortCircuits(t *testing.T) {
	provider := &mockProvider{content: `{"score": 5, "reason": "should not be used"}`}
	judge := New(provider)

	got := judge.Judge(context.Background(), "Q", "golden", "", false)

	if provider.calls != 0 {
		t.Errorf("provider called %d times for empty candidate, want 0", provider.calls)
	}
	if got.Score != 1 || got.IsCorrect {
		t.Errorf("Judge() = score %d is_correct %v, want score 1 is_correct false", got.Score, got.IsCorrect)
	}
}

func TestJudge_CustomThreshold(t *testing.T) {
	provider := &mockProvider{content: `{"score": 3, "reason": "partial"}`}
	judge := New(provider, WithCorrectThreshold(3))

	got := judge.Judge(context.Background(), "Q", "golden", "candidate", false)

	if !got.IsCorrect {
		t.Errorf("Judge() with threshold 3 marked score 3 incorrect")
	}
}
