// Package llmjudge scores candidate answers against golden answers with an
// LLM acting as judge.
package llmjudge

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/datar-psa/ragscore/api"
	"github.com/datar-psa/ragscore/jsonrepair"
)

// Score bounds for judge output.
const (
	minScore = 1
	maxScore = 5
)

// DefaultCorrectThreshold is the overall score at or above which an answer
// counts as correct.
const DefaultCorrectThreshold = 4

// defaultTemperature keeps judge sampling near-deterministic.
const defaultTemperature = 0.3

// emptyAnswerReason is reported when the candidate answer is empty and the
// judge short-circuits without a provider call.
const emptyAnswerReason = "Candidate answer is empty"

// Judge evaluates candidate answers using a completion provider.
type Judge struct {
	provider    api.CompletionProvider
	threshold   int
	temperature float64
	logger      *zap.Logger
	parser      *jsonrepair.Parser
}

// JudgeOptions configures Judge creation.
type JudgeOptions struct {
	threshold   int
	temperature float64
	logger      *zap.Logger
}

// WithCorrectThreshold sets the score threshold for is_correct.
func WithCorrectThreshold(threshold int) func(*JudgeOptions) {
	return func(opts *JudgeOptions) {
		opts.threshold = threshold
	}
}

// WithTemperature sets the sampling temperature for judge calls.
func WithTemperature(temperature float64) func(*JudgeOptions) {
	return func(opts *JudgeOptions) {
		opts.temperature = temperature
	}
}

// WithLogger sets the logger for judge diagnostics.
func WithLogger(logger *zap.Logger) func(*JudgeOptions) {
	return func(opts *JudgeOptions) {
		opts.logger = logger
	}
}

// New creates a Judge backed by the given completion provider.
func New(provider api.CompletionProvider, opts ...func(*JudgeOptions)) *Judge {
	options := &JudgeOptions{
		threshold:   DefaultCorrectThreshold,
		temperature: defaultTemperature,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}
	return &Judge{
		provider:    provider,
		threshold:   options.threshold,
		temperature: options.temperature,
		logger:      options.logger,
		parser:      jsonrepair.NewParser(jsonrepair.WithLogger(options.logger)),
	}
}

// Judge scores candidateAnswer against goldenAnswer. With detailed set it
// additionally extracts the five per-dimension scores the detailed prompt
// requests, leaving omitted dimensions unset.
//
// Judging never fails: an empty candidate short-circuits to the minimum
// score without a provider call, and any provider or parse failure degrades
// to the minimum score with a diagnostic reason so the failure is visible in
// the report instead of aborting the batch.
func (j *Judge) Judge(ctx context.Context, question, goldenAnswer, candidateAnswer string, detailed bool) api.JudgeScore {
	if candidateAnswer == "" {
		return api.JudgeScore{
			Score:     minScore,
			Reason:    emptyAnswerReason,
			IsCorrect: false,
		}
	}

	lang := DetectLanguage(question)
	system, user := BuildPrompts(question, goldenAnswer, candidateAnswer, lang, detailed)

	temp := j.temperature
	resp, err := j.provider.Generate(ctx, api.GenerateRequest{
		Messages: []api.Message{
			{Role: api.RoleSystem, Content: system},
			{Role: api.RoleUser, Content: user},
		},
		Temperature: &temp,
		JSONMode:    true,
	})
	if err != nil {
		j.logger.Warn("judge call failed",
			zap.String("kind", "judge_failure"),
			zap.Error(err),
		)
		return api.JudgeScore{
			Score:     minScore,
			Reason:    "Evaluation error: " + err.Error(),
			IsCorrect: false,
		}
	}

	data := j.parser.Parse(resp.Content)

	score := minScore
	if v, ok := intField(data, "score"); ok {
		score = clamp(v)
	}
	reason, _ := data["reason"].(string)
	if reason == "" {
		reason = "No reason provided"
	}

	result := api.JudgeScore{
		Score:     score,
		Reason:    reason,
		IsCorrect: score >= j.threshold,
	}
	if detailed {
		for _, dim := range api.DetailedDimensions {
			if v, ok := intField(data, dim); ok {
				if result.Dimensions == nil {
					result.Dimensions = make(map[string]int, len(api.DetailedDimensions))
				}
				result.Dimensions[dim] = clamp(v)
			}
		}
	}
	return result
}

// intField reads a numeric field from repaired JSON. JSON numbers arrive as
// float64 and some judges quote them; both are accepted. Fractional values
// are truncated before clamping.
func intField(data map[string]any, key string) (int, bool) {
	switch v := data[key].(type) {
	case float64:
		return int(v), true
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return int(f), true
		}
	}
	return 0, false
}

func clamp(v int) int {
	if v < minScore {
		return minScore
	}
	if v > maxScore {
		return maxScore
	}
	return v
}
