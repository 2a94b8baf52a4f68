package metrics

import (
	"context"
	"regexp"

	"go.uber.org/zap"

	"github.com/datar-psa/ragscore/api"
	"github.com/datar-psa/ragscore/jsonrepair"
)

// CitationResult reports how well a candidate answer attributes its claims.
type CitationResult struct {
	// Score is 0-100 over presence, accuracy, completeness and traceability.
	Score int
	// HasCitations reports whether citation markers were found.
	HasCitations bool
	// Analysis is the judge's explanation.
	Analysis string
}

// citationPatterns are the markers the fast heuristic looks for.
var citationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[\d+\]`),
	regexp.MustCompile(`\(\d+\)`),
	regexp.MustCompile(`\[.*?\]`),
	regexp.MustCompile(`(?i)according to`),
	regexp.MustCompile(`(?i)as stated in`),
	regexp.MustCompile(`(?i)source:`),
	regexp.MustCompile(`(?i)reference:`),
	regexp.MustCompile(`(?i)from the document`),
	regexp.MustCompile(`(?i)the text states`),
}

// HasCitations is the fast heuristic pre-check: it reports whether the text
// contains any known citation marker, without calling a judge.
func HasCitations(text string) bool {
	for _, p := range citationPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

const citationSystemPrompt = `You are an expert at evaluating citation quality in RAG responses.

Evaluate citations on:
1. **Presence**: Are sources cited?
2. **Accuracy**: Do citations match the context?
3. **Completeness**: Are all key claims cited?
4. **Format**: Are citations clear and consistent?
5. **Traceability**: Can claims be traced to sources?

Return JSON:
{
  "citation_quality_score": <0-100>,
  "has_citations": <true/false>,
  "citation_analysis": "<detailed analysis of citation quality>"
}`

const citationUserPrompt = `Question:
%s

Retrieved Context:
%s

RAG System Response:
%s

Evaluate the citation quality. Consider:
- Are important claims backed by citations?
- Are citations accurate and traceable?
- Is the citation format clear?`

// CitationScorer rates source attribution with a completion provider,
// falling back to the HasCitations heuristic when the provider fails.
type CitationScorer struct {
	provider api.CompletionProvider
	logger   *zap.Logger
	parser   *jsonrepair.Parser
}

// CitationScorerOptions configures CitationScorer creation.
type CitationScorerOptions struct {
	logger *zap.Logger
}

// WithCitationLogger sets the scorer's diagnostic logger.
func WithCitationLogger(logger *zap.Logger) func(*CitationScorerOptions) {
	return func(opts *CitationScorerOptions) {
		opts.logger = logger
	}
}

// NewCitationScorer creates a scorer backed by the given provider.
func NewCitationScorer(provider api.CompletionProvider, opts ...func(*CitationScorerOptions)) *CitationScorer {
	options := &CitationScorerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}
	return &CitationScorer{
		provider: provider,
		logger:   options.logger,
		parser:   jsonrepair.NewParser(jsonrepair.WithLogger(options.logger)),
	}
}

// Score rates citation quality of answer given the retrieved context. An
// empty answer scores 0 without a provider call. When the provider fails,
// the heuristic verdict decides the fallback: 50 with markers present, 0
// without.
func (s *CitationScorer) Score(ctx context.Context, question, answer, retrievedContext string) CitationResult {
	if answer == "" {
		return CitationResult{
			Score:    0,
			Analysis: "Empty response",
		}
	}

	heuristic := HasCitations(answer)

	data, err := judgeJSON(ctx, s.provider, citationSystemPrompt,
		citationUserPrompt, s.parser, question, retrievedContext, answer)
	if err != nil {
		s.logger.Warn("citation evaluation failed",
			zap.String("kind", "judge_failure"),
			zap.Error(err),
		)
		score := 0
		if heuristic {
			score = 50
		}
		return CitationResult{
			Score:        score,
			HasCitations: heuristic,
			Analysis:     "Evaluation error: " + err.Error(),
		}
	}

	result := CitationResult{
		Score:        50,
		HasCitations: heuristic,
		Analysis:     "No analysis provided",
	}
	if v, ok := intValue(data["citation_quality_score"]); ok {
		result.Score = clamp100(v)
	}
	if v, ok := data["has_citations"].(bool); ok {
		result.HasCitations = v
	}
	if v, ok := data["citation_analysis"].(string); ok && v != "" {
		result.Analysis = v
	}
	return result
}
