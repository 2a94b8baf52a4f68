package metrics

import "testing"

func TestLatencyScorer_Boundaries(t *testing.T) {
	scorer := NewLatencyScorer()

	tests := []struct {
		name      string
		latencyMS float64
		wantScore int
		wantSlow  bool
	}{
		{name: "zero", latencyMS: 0, wantScore: 100},
		{name: "at excellent threshold", latencyMS: 500, wantScore: 100},
		{name: "just over excellent", latencyMS: 875, wantScore: 95},
		{name: "at good threshold", latencyMS: 2000, wantScore: 80},
		{name: "mid acceptable band", latencyMS: 3500, wantScore: 70},
		{name: "at acceptable threshold", latencyMS: 5000, wantScore: 60},
		{name: "one second over acceptable", latencyMS: 6000, wantScore: 50, wantSlow: true},
		{name: "far over acceptable floors at zero", latencyMS: 20000, wantScore: 0, wantSlow: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Score(tt.latencyMS)
			if got.Score != tt.wantScore {
				t.Errorf("Score(%v) = %d, want %d", tt.latencyMS, got.Score, tt.wantScore)
			}
			if got.IsSlow != tt.wantSlow {
				t.Errorf("Score(%v).IsSlow = %v, want %v", tt.latencyMS, got.IsSlow, tt.wantSlow)
			}
			if got.Description == "" {
				t.Errorf("Score(%v) has empty description", tt.latencyMS)
			}
		})
	}
}

func TestLatencyScorer_CustomThresholds(t *testing.T) {
	scorer := NewLatencyScorer(WithThresholds(100, 200, 300))

	if got := scorer.Score(100); got.Score != 100 {
		t.Errorf("Score(100) = %d, want 100", got.Score)
	}
	if got := scorer.Score(200); got.Score != 80 {
		t.Errorf("Score(200) = %d, want 80", got.Score)
	}
	if got := scorer.Score(300); got.Score != 60 {
		t.Errorf("Score(300) = %d, want 60", got.Score)
	}
	if got := scorer.Score(1300); got.Score != 50 || !got.IsSlow {
		t.Errorf("Score(1300) = %+v, want score 50 and slow", got)
	}
}
