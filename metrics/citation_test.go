package metrics

import (
	"context"
	"errors"
	"testing"
)

func TestHasCitations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "bracketed number", text: "The sky is blue [1].", want: true},
		{name: "parenthesized number", text: "See (2) for details.", want: true},
		{name: "bracketed reference", text: "As noted [Smith 2020].", want: true},
		{name: "according to", text: "According to the manual, restart first.", want: true},
		{name: "source prefix", text: "Source: internal wiki", want: true},
		{name: "from the document", text: "From the document we learn X.", want: true},
		{name: "plain prose", text: "The sky is blue and water is wet.", want: false},
		{name: "empty", text: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasCitations(tt.text); got != tt.want {
				t.Errorf("HasCitations(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestCitationScorer_Score(t *testing.T) {
	provider := &stubProvider{content: `{"citation_quality_score": 85, "has_citations": true, "citation_analysis": "consistent numeric style"}`}
	scorer := NewCitationScorer(provider)

	got := scorer.Score(context.Background(), "q", "answer [1]", "context")
	if got.Score != 85 || !got.HasCitations {
		t.Errorf("result = %+v, want score 85 with citations", got)
	}
	if got.Analysis != "consistent numeric style" {
		t.Errorf("Analysis = %q", got.Analysis)
	}
}

func TestCitationScorer_EmptyAnswer(t *testing.T) {
	provider := &stubProvider{err: errors.New("must not be called")}
	scorer := NewCitationScorer(provider)

	got := scorer.Score(context.Background(), "q", "", "context")
	if got.Score != 0 || got.HasCitations {
		t.Errorf("result = %+v, want score 0 without citations", got)
	}
	if provider.calls.Load() != 0 {
		t.Errorf("provider called %d times for empty answer, want 0", provider.calls.Load())
	}
}

// Provider failure falls back to the marker heuristic: half credit when
// markers exist, zero when they do not.
func TestCitationScorer_HeuristicFallback(t *testing.T) {
	tests := []struct {
		name      string
		answer    string
		wantScore int
		wantHas   bool
	}{
		{name: "markers present", answer: "claim [3]", wantScore: 50, wantHas: true},
		{name: "no markers", answer: "bare claim", wantScore: 0, wantHas: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &stubProvider{err: errors.New("down")}
			scorer := NewCitationScorer(provider)

			got := scorer.Score(context.Background(), "q", tt.answer, "context")
			if got.Score != tt.wantScore || got.HasCitations != tt.wantHas {
				t.Errorf("result = %+v, want score %d has %v", got, tt.wantScore, tt.wantHas)
			}
			if got.Analysis != "Evaluation error: down" {
				t.Errorf("Analysis = %q", got.Analysis)
			}
		})
	}
}
