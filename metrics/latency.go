// Package metrics provides the advanced evaluation path: hallucination
// detection, citation quality, latency scoring, and a weighted composite
// over all dimensions.
package metrics

import "fmt"

// Default latency thresholds in milliseconds.
const (
	DefaultExcellentMS  = 500
	DefaultGoodMS       = 2000
	DefaultAcceptableMS = 5000
)

// LatencyScore is the outcome of scoring one response time.
type LatencyScore struct {
	// Score is 0-100; 100 means at or under the excellent threshold.
	Score int
	// IsSlow is set when latency exceeded the acceptable threshold.
	IsSlow bool
	// Description is a short human-readable classification.
	Description string
}

// LatencyScorerOptions configures LatencyScorer creation.
type LatencyScorerOptions struct {
	excellentMS  float64
	goodMS       float64
	acceptableMS float64
}

// WithThresholds sets the excellent/good/acceptable latency thresholds.
func WithThresholds(excellentMS, goodMS, acceptableMS float64) func(*LatencyScorerOptions) {
	return func(opts *LatencyScorerOptions) {
		opts.excellentMS = excellentMS
		opts.goodMS = goodMS
		opts.acceptableMS = acceptableMS
	}
}

// LatencyScorer converts response times into 0-100 scores. It is a pure
// closed-form function of its thresholds: deterministic and side-effect
// free, no LLM involved.
type LatencyScorer struct {
	excellent  float64
	good       float64
	acceptable float64
}

// NewLatencyScorer creates a LatencyScorer using functional options.
func NewLatencyScorer(opts ...func(*LatencyScorerOptions)) *LatencyScorer {
	options := &LatencyScorerOptions{
		excellentMS:  DefaultExcellentMS,
		goodMS:       DefaultGoodMS,
		acceptableMS: DefaultAcceptableMS,
	}
	for _, opt := range opts {
		opt(options)
	}
	return &LatencyScorer{
		excellent:  options.excellentMS,
		good:       options.goodMS,
		acceptable: options.acceptableMS,
	}
}

// Score maps latencyMS onto 0-100: 100 at or under the excellent threshold,
// linear 100 to 80 up to the good threshold, linear 80 to 60 up to the
// acceptable threshold, then dropping 10 points per second over it, floored
// at 0 and flagged slow.
func (s *LatencyScorer) Score(latencyMS float64) LatencyScore {
	switch {
	case latencyMS <= s.excellent:
		return LatencyScore{
			Score:       100,
			Description: fmt.Sprintf("Excellent (%.0fms)", latencyMS),
		}
	case latencyMS <= s.good:
		score := 100 - (latencyMS-s.excellent)/(s.good-s.excellent)*20
		return LatencyScore{
			Score:       int(score),
			Description: fmt.Sprintf("Good (%.0fms)", latencyMS),
		}
	case latencyMS <= s.acceptable:
		score := 80 - (latencyMS-s.good)/(s.acceptable-s.good)*20
		return LatencyScore{
			Score:       int(score),
			Description: fmt.Sprintf("Acceptable (%.0fms)", latencyMS),
		}
	default:
		score := 60 - (latencyMS-s.acceptable)/1000*10
		if score < 0 {
			score = 0
		}
		return LatencyScore{
			Score:       int(score),
			IsSlow:      true,
			Description: fmt.Sprintf("Slow (%.0fms)", latencyMS),
		}
	}
}
