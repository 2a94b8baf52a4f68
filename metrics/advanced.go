package metrics

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/datar-psa/ragscore/api"
	"github.com/datar-psa/ragscore/jsonrepair"
)

// Weights distributes the composite score over the six dimensions. Callers
// supply weights that express their intent; the library uses them exactly as
// given and never normalizes, so whether they sum to 1.0 is the caller's
// responsibility.
type Weights struct {
	Accuracy      float64 `json:"accuracy" yaml:"accuracy"`
	Relevance     float64 `json:"relevance" yaml:"relevance"`
	Completeness  float64 `json:"completeness" yaml:"completeness"`
	Hallucination float64 `json:"hallucination" yaml:"hallucination"`
	Citation      float64 `json:"citation" yaml:"citation"`
	Latency       float64 `json:"latency" yaml:"latency"`
}

// DefaultWeights is the stock emphasis: answer quality first, then
// hallucination, then attribution and speed.
var DefaultWeights = Weights{
	Accuracy:      0.25,
	Relevance:     0.20,
	Completeness:  0.20,
	Hallucination: 0.20,
	Citation:      0.10,
	Latency:       0.05,
}

// Composite folds the six dimension scores into one weighted sum.
func (w Weights) Composite(accuracy, relevance, completeness, hallucination, citation, latency float64) float64 {
	return w.Accuracy*accuracy +
		w.Relevance*relevance +
		w.Completeness*completeness +
		w.Hallucination*hallucination +
		w.Citation*citation +
		w.Latency*latency
}

// AdvancedResult is the extended per-item evaluation over all dimensions.
// All dimension scores are 0-100.
type AdvancedResult struct {
	Accuracy      int `json:"accuracy_score"`
	Relevance     int `json:"relevance_score"`
	Completeness  int `json:"completeness_score"`
	Hallucination int `json:"hallucination_score"`
	Citation      int `json:"citation_quality_score"`
	Latency       int `json:"latency_score"`

	// BasicOverall averages accuracy, relevance and completeness.
	BasicOverall float64 `json:"basic_overall"`
	// AdvancedOverall is the weighted composite over all six dimensions.
	AdvancedOverall float64 `json:"advanced_overall"`

	Reasoning            string   `json:"reasoning"`
	HallucinationDetails []string `json:"hallucination_details,omitempty"`
	CitationAnalysis     string   `json:"citation_analysis"`
	LatencyMS            float64  `json:"latency_ms"`

	HasHallucinations bool `json:"has_hallucinations"`
	HasCitations      bool `json:"has_citations"`
	IsSlow            bool `json:"is_slow"`
}

const basicSystemPrompt = `You are an expert evaluator for RAG systems.

Evaluate on three dimensions:
1. **Accuracy** (0-100): Factual correctness
2. **Relevance** (0-100): Addresses the question
3. **Completeness** (0-100): Covers key points

Return JSON:
{
  "accuracy_score": <int 0-100>,
  "relevance_score": <int 0-100>,
  "completeness_score": <int 0-100>,
  "reasoning": "<brief explanation>"
}`

const basicUserPrompt = `Question:
%s

Expected Answer:
%s

Target Response:
%s

Evaluate the target response.`

// Evaluator combines the basic 0-100 triple with the optional add-on
// scorers into one weighted per-item result.
type Evaluator struct {
	provider      api.CompletionProvider
	hallucination *HallucinationScorer
	citation      *CitationScorer
	latency       *LatencyScorer
	weights       Weights
	logger        *zap.Logger
	parser        *jsonrepair.Parser
}

// EvaluatorOptions configures Evaluator creation.
type EvaluatorOptions struct {
	hallucinationEnabled bool
	citationEnabled      bool
	latencyEnabled       bool
	latencyOpts          []func(*LatencyScorerOptions)
	weights              Weights
	logger               *zap.Logger
}

// WithWeights sets the composite weights.
func WithWeights(weights Weights) func(*EvaluatorOptions) {
	return func(opts *EvaluatorOptions) {
		opts.weights = weights
	}
}

// WithoutHallucinationDetection disables the hallucination scorer; its
// dimension then contributes a neutral 100 (no hallucinations assumed).
func WithoutHallucinationDetection() func(*EvaluatorOptions) {
	return func(opts *EvaluatorOptions) {
		opts.hallucinationEnabled = false
	}
}

// WithoutCitationEvaluation disables the citation scorer; its dimension then
// contributes a neutral 50.
func WithoutCitationEvaluation() func(*EvaluatorOptions) {
	return func(opts *EvaluatorOptions) {
		opts.citationEnabled = false
	}
}

// WithoutLatencyScoring disables the latency scorer; its dimension then
// contributes a neutral 100.
func WithoutLatencyScoring() func(*EvaluatorOptions) {
	return func(opts *EvaluatorOptions) {
		opts.latencyEnabled = false
	}
}

// WithLatencyThresholds forwards threshold options to the latency scorer.
func WithLatencyThresholds(opts ...func(*LatencyScorerOptions)) func(*EvaluatorOptions) {
	return func(o *EvaluatorOptions) {
		o.latencyOpts = opts
	}
}

// WithEvaluatorLogger sets the evaluator's diagnostic logger.
func WithEvaluatorLogger(logger *zap.Logger) func(*EvaluatorOptions) {
	return func(opts *EvaluatorOptions) {
		opts.logger = logger
	}
}

// NewEvaluator creates an Evaluator with every add-on scorer enabled.
func NewEvaluator(provider api.CompletionProvider, opts ...func(*EvaluatorOptions)) *Evaluator {
	options := &EvaluatorOptions{
		hallucinationEnabled: true,
		citationEnabled:      true,
		latencyEnabled:       true,
		weights:              DefaultWeights,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}

	e := &Evaluator{
		provider: provider,
		weights:  options.weights,
		logger:   options.logger,
		parser:   jsonrepair.NewParser(jsonrepair.WithLogger(options.logger)),
	}
	if options.hallucinationEnabled {
		e.hallucination = NewHallucinationScorer(provider, WithHallucinationLogger(options.logger))
	}
	if options.citationEnabled {
		e.citation = NewCitationScorer(provider, WithCitationLogger(options.logger))
	}
	if options.latencyEnabled {
		e.latency = NewLatencyScorer(options.latencyOpts...)
	}
	return e
}

// Evaluate scores answer on every enabled dimension and folds them into the
// weighted composite. Scorer failures degrade their own dimension; they
// never fail the item.
func (e *Evaluator) Evaluate(ctx context.Context, question, expectedAnswer, answer, retrievedContext string, latencyMS float64) AdvancedResult {
	basic := e.basicScores(ctx, question, expectedAnswer, answer)

	hallucination := HallucinationResult{Score: 100, Reasoning: "Not evaluated"}
	if e.hallucination != nil {
		hallucination = e.hallucination.Score(ctx, question, answer, retrievedContext)
	}

	citation := CitationResult{Score: 50, Analysis: "Not evaluated"}
	if e.citation != nil {
		citation = e.citation.Score(ctx, question, answer, retrievedContext)
	}

	latency := LatencyScore{Score: 100, Description: "Not evaluated"}
	if e.latency != nil {
		latency = e.latency.Score(latencyMS)
	}

	basicOverall := float64(basic.accuracy+basic.relevance+basic.completeness) / 3.0
	advancedOverall := e.weights.Composite(
		float64(basic.accuracy),
		float64(basic.relevance),
		float64(basic.completeness),
		float64(hallucination.Score),
		float64(citation.Score),
		float64(latency.Score),
	)

	reasoning := fmt.Sprintf("Basic: %s\nHallucination: %s\nCitation: %s\nLatency: %s",
		basic.reasoning, hallucination.Reasoning, citation.Analysis, latency.Description)

	return AdvancedResult{
		Accuracy:             basic.accuracy,
		Relevance:            basic.relevance,
		Completeness:         basic.completeness,
		Hallucination:        hallucination.Score,
		Citation:             citation.Score,
		Latency:              latency.Score,
		BasicOverall:         basicOverall,
		AdvancedOverall:      advancedOverall,
		Reasoning:            reasoning,
		HallucinationDetails: hallucination.Details,
		CitationAnalysis:     citation.Analysis,
		LatencyMS:            latencyMS,
		HasHallucinations:    hallucination.HasHallucinations,
		HasCitations:         citation.HasCitations,
		IsSlow:               latency.IsSlow,
	}
}

type basicTriple struct {
	accuracy     int
	relevance    int
	completeness int
	reasoning    string
}

func (e *Evaluator) basicScores(ctx context.Context, question, expectedAnswer, answer string) basicTriple {
	if answer == "" {
		return basicTriple{reasoning: "Target response is empty"}
	}
	if expectedAnswer == "" {
		return basicTriple{
			accuracy:     50,
			relevance:    50,
			completeness: 50,
			reasoning:    "No expected answer provided for comparison",
		}
	}

	data, err := judgeJSON(ctx, e.provider, basicSystemPrompt,
		basicUserPrompt, e.parser, question, expectedAnswer, answer)
	if err != nil {
		e.logger.Warn("basic evaluation failed",
			zap.String("kind", "judge_failure"),
			zap.Error(err),
		)
		return basicTriple{
			accuracy:     50,
			relevance:    50,
			completeness: 50,
			reasoning:    "Evaluation error: " + err.Error(),
		}
	}

	result := basicTriple{
		accuracy:     50,
		relevance:    50,
		completeness: 50,
		reasoning:    "No reasoning provided",
	}
	if v, ok := intValue(data["accuracy_score"]); ok {
		result.accuracy = clamp100(v)
	}
	if v, ok := intValue(data["relevance_score"]); ok {
		result.relevance = clamp100(v)
	}
	if v, ok := intValue(data["completeness_score"]); ok {
		result.completeness = clamp100(v)
	}
	if v, ok := data["reasoning"].(string); ok && v != "" {
		result.reasoning = v
	}
	return result
}

// judgeJSON issues one JSON-mode judge call and repairs-parses the reply.
// The three format arguments fill the user prompt template in order.
func judgeJSON(ctx context.Context, provider api.CompletionProvider, system, userTmpl string,
	parser *jsonrepair.Parser, a, b, c string) (map[string]any, error) {
	temp := 0.0
	resp, err := provider.Generate(ctx, api.GenerateRequest{
		Messages: []api.Message{
			{Role: api.RoleSystem, Content: system},
			{Role: api.RoleUser, Content: fmt.Sprintf(userTmpl, a, b, c)},
		},
		Temperature: &temp,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}
	return parser.Parse(resp.Content), nil
}

// intValue reads a numeric JSON value, accepting quoted numbers and
// truncating fractions.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return int(f), true
		}
	}
	return 0, false
}

func clamp100(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
