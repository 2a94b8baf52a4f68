// Package ragscore evaluates RAG (retrieval-augmented generation) systems
// against golden question/answer datasets: it queries a live endpoint, scores
// each answer with an LLM judge, and aggregates the batch into a summary.
//
// The root package wires configuration into the subpackages; the building
// blocks (endpoint, llmjudge, assess, metrics, qagen, qaset) are usable on
// their own.
package ragscore

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/datar-psa/ragscore/api"
	"github.com/datar-psa/ragscore/assess"
	"github.com/datar-psa/ragscore/config"
	"github.com/datar-psa/ragscore/endpoint"
	"github.com/datar-psa/ragscore/gemini"
	"github.com/datar-psa/ragscore/llmjudge"
	"github.com/datar-psa/ragscore/openai"
	"github.com/datar-psa/ragscore/qaset"
)

type QAPair = api.QAPair
type EndpointResponse = api.EndpointResponse
type JudgeScore = api.JudgeScore
type EvaluationRecord = api.EvaluationRecord
type EvaluationSummary = api.EvaluationSummary
type CompletionProvider = api.CompletionProvider
type GenerateRequest = api.GenerateRequest
type GenerateResponse = api.GenerateResponse
type Message = api.Message

// NewOpenAIProvider creates a judge provider for OpenAI or any
// OpenAI-compatible server (empty baseURL means api.openai.com).
func NewOpenAIProvider(apiKey, model, baseURL string) *openai.Provider {
	if baseURL != "" {
		return openai.NewProvider(apiKey, model, openai.WithBaseURL(baseURL))
	}
	return openai.NewProvider(apiKey, model)
}

// NewGeminiProvider creates a judge provider backed by the Gemini API.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*gemini.Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return gemini.NewProvider(client, model), nil
}

// Pipeline is a fully wired evaluation run: dataset in, summary out.
type Pipeline struct {
	cfg      config.Config
	provider api.CompletionProvider
	logger   *zap.Logger
}

// PipelineOptions configures Pipeline creation.
type PipelineOptions struct {
	provider api.CompletionProvider
	logger   *zap.Logger
}

// WithProvider overrides the judge provider the config would build. Useful
// for custom providers and for tests.
func WithProvider(provider api.CompletionProvider) func(*PipelineOptions) {
	return func(opts *PipelineOptions) {
		opts.provider = provider
	}
}

// WithLogger sets the pipeline's diagnostic logger, shared with every
// component it builds.
func WithLogger(logger *zap.Logger) func(*PipelineOptions) {
	return func(opts *PipelineOptions) {
		opts.logger = logger
	}
}

// NewPipeline validates cfg and builds the judge provider it names.
func NewPipeline(ctx context.Context, cfg config.Config, opts ...func(*PipelineOptions)) (*Pipeline, error) {
	options := &PipelineOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		var err error
		switch cfg.Judge.Provider {
		case config.ProviderGemini:
			provider, err = NewGeminiProvider(ctx, cfg.Judge.APIKey, cfg.Judge.Model)
			if err != nil {
				return nil, err
			}
		default:
			provider = NewOpenAIProvider(cfg.Judge.APIKey, cfg.Judge.Model, cfg.Judge.BaseURL)
		}
	}

	return &Pipeline{
		cfg:      cfg,
		provider: provider,
		logger:   options.logger,
	}, nil
}

// Run loads the dataset, evaluates every pair, and writes the summary report
// when the config names one. On cancellation the partial summary is still
// written and returned alongside the context error.
func (p *Pipeline) Run(ctx context.Context) (api.EvaluationSummary, error) {
	pairs, err := qaset.Load(p.cfg.Run.DatasetPath, qaset.WithLogger(p.logger))
	if err != nil {
		return api.EvaluationSummary{}, err
	}
	return p.Evaluate(ctx, pairs)
}

// Evaluate runs the batch over caller-supplied pairs, bypassing dataset
// loading.
func (p *Pipeline) Evaluate(ctx context.Context, pairs []api.QAPair) (api.EvaluationSummary, error) {
	client, err := p.endpointClient()
	if err != nil {
		return api.EvaluationSummary{}, err
	}

	judge := llmjudge.New(p.provider,
		llmjudge.WithCorrectThreshold(p.cfg.Judge.CorrectThreshold),
		llmjudge.WithTemperature(p.cfg.Judge.Temperature),
		llmjudge.WithLogger(p.logger),
	)

	runner := assess.NewRunner(client, judge,
		assess.WithConcurrency(p.cfg.Run.Concurrency),
		assess.WithDispatchGap(p.cfg.Run.DispatchGap()),
		assess.WithDetailed(p.cfg.Judge.Detailed),
		assess.WithExtraParams(p.cfg.Endpoint.ExtraParams),
		assess.WithLogger(p.logger),
	)

	summary, runErr := runner.Run(ctx, pairs)

	if path := p.cfg.Run.SummaryPath; path != "" && summary.Total > 0 {
		if err := qaset.WriteSummary(path, summary); err != nil {
			p.logger.Warn("failed to write summary report",
				zap.String("path", path),
				zap.Error(err),
			)
		}
	}
	return summary, runErr
}

func (p *Pipeline) endpointClient() (*endpoint.Client, error) {
	opts := []func(*endpoint.ClientOptions){
		endpoint.WithMethod(p.cfg.Endpoint.Method),
		endpoint.WithTimeout(p.cfg.Endpoint.Timeout()),
		endpoint.WithMaxRetries(p.cfg.Endpoint.MaxRetries),
		endpoint.WithLogger(p.logger),
	}
	if p.cfg.Endpoint.QuestionField != "" {
		opts = append(opts, endpoint.WithQuestionField(p.cfg.Endpoint.QuestionField))
	}
	if len(p.cfg.Endpoint.Headers) > 0 {
		opts = append(opts, endpoint.WithHeaders(p.cfg.Endpoint.Headers))
	}
	if p.cfg.Endpoint.LoginURL != "" {
		opts = append(opts, endpoint.WithLogin(
			p.cfg.Endpoint.LoginURL, p.cfg.Endpoint.Username, p.cfg.Endpoint.Password))
	}
	return endpoint.NewClient(p.cfg.Endpoint.URL, opts...)
}
