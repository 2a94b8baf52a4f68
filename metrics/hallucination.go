package metrics

import (
	"context"

	"go.uber.org/zap"

	"github.com/datar-psa/ragscore/api"
	"github.com/datar-psa/ragscore/jsonrepair"
)

// HallucinationResult reports claims in a candidate answer that the
// retrieved context does not support.
type HallucinationResult struct {
	// Score is 0-100 where 100 means no hallucinations.
	Score int
	// HasHallucinations is the judge's boolean verdict.
	HasHallucinations bool
	// Details lists the offending claims verbatim.
	Details []string
	// Reasoning is the judge's explanation.
	Reasoning string
}

const hallucinationSystemPrompt = `You are an expert at detecting hallucinations in RAG system responses.

A hallucination is information in the response that:
1. Is NOT supported by the provided context
2. Makes claims beyond what the context states
3. Contradicts the context
4. Invents facts, dates, names, or numbers not in the context

Your task: Identify ALL hallucinations in the response.

Return JSON:
{
  "hallucination_score": <0-100, where 100=no hallucinations, 0=severe hallucinations>,
  "has_hallucinations": <true/false>,
  "hallucination_details": [<list of specific hallucinated claims>],
  "reasoning": "<brief explanation>"
}`

const hallucinationUserPrompt = `Question:
%s

Retrieved Context (Ground Truth):
%s

RAG System Response:
%s

Analyze the response for hallucinations. Every claim must be verifiable in the context.`

// HallucinationScorer asks a completion provider to find unsupported claims.
type HallucinationScorer struct {
	provider api.CompletionProvider
	logger   *zap.Logger
	parser   *jsonrepair.Parser
}

// HallucinationScorerOptions configures HallucinationScorer creation.
type HallucinationScorerOptions struct {
	logger *zap.Logger
}

// WithHallucinationLogger sets the scorer's diagnostic logger.
func WithHallucinationLogger(logger *zap.Logger) func(*HallucinationScorerOptions) {
	return func(opts *HallucinationScorerOptions) {
		opts.logger = logger
	}
}

// NewHallucinationScorer creates a scorer backed by the given provider.
func NewHallucinationScorer(provider api.CompletionProvider, opts ...func(*HallucinationScorerOptions)) *HallucinationScorer {
	options := &HallucinationScorerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}
	return &HallucinationScorer{
		provider: provider,
		logger:   options.logger,
		parser:   jsonrepair.NewParser(jsonrepair.WithLogger(options.logger)),
	}
}

// Score checks answer against the retrieved context. An empty answer
// short-circuits to the worst score without a provider call; a provider
// failure degrades to a neutral score with a diagnostic reasoning string.
func (s *HallucinationScorer) Score(ctx context.Context, question, answer, retrievedContext string) HallucinationResult {
	if answer == "" {
		return HallucinationResult{
			Score:             0,
			HasHallucinations: true,
			Details:           []string{"Empty response"},
			Reasoning:         "Response is empty",
		}
	}

	data, err := judgeJSON(ctx, s.provider, hallucinationSystemPrompt,
		hallucinationUserPrompt, s.parser, question, retrievedContext, answer)
	if err != nil {
		s.logger.Warn("hallucination detection failed",
			zap.String("kind", "judge_failure"),
			zap.Error(err),
		)
		return HallucinationResult{
			Score:     50,
			Reasoning: "Detection error: " + err.Error(),
		}
	}

	result := HallucinationResult{
		Score:     50,
		Reasoning: "No reasoning provided",
	}
	if v, ok := intValue(data["hallucination_score"]); ok {
		result.Score = clamp100(v)
	}
	if v, ok := data["has_hallucinations"].(bool); ok {
		result.HasHallucinations = v
	}
	if items, ok := data["hallucination_details"].([]any); ok {
		for _, item := range items {
			if s, ok := item.(string); ok {
				result.Details = append(result.Details, s)
			}
		}
	}
	if v, ok := data["reasoning"].(string); ok && v != "" {
		result.Reasoning = v
	}
	return result
}
