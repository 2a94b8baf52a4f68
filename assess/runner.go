// Package assess runs the evaluation pipeline: it fans questions out to the
// RAG endpoint under test, judges each answer against its golden answer, and
// aggregates the batch into a summary.
package assess

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/datar-psa/ragscore/api"
	"github.com/datar-psa/ragscore/llmjudge"
)

// DefaultConcurrency bounds the number of items in flight at once.
const DefaultConcurrency = 5

// EndpointClient is the query capability the runner needs from the endpoint
// package. It must be safe for concurrent use.
type EndpointClient interface {
	Query(ctx context.Context, question string, extraParams map[string]any) api.EndpointResponse
}

// AnswerJudge is the judging capability the runner needs from the llmjudge
// package. It must be safe for concurrent use.
type AnswerJudge interface {
	Judge(ctx context.Context, question, goldenAnswer, candidateAnswer string, detailed bool) api.JudgeScore
}

// Runner evaluates batches of QA pairs against a RAG endpoint.
type Runner struct {
	client      EndpointClient
	judge       AnswerJudge
	concurrency int
	dispatchGap time.Duration
	detailed    bool
	extraParams map[string]any
	logger      *zap.Logger
}

// RunnerOptions configures Runner creation.
type RunnerOptions struct {
	concurrency int
	dispatchGap time.Duration
	detailed    bool
	extraParams map[string]any
	logger      *zap.Logger
}

// WithConcurrency bounds the number of concurrently in-flight items.
func WithConcurrency(n int) func(*RunnerOptions) {
	return func(opts *RunnerOptions) {
		opts.concurrency = n
	}
}

// WithDispatchGap inserts a delay between dispatch of successive items, for
// endpoints with coarse rate limits. Items already in flight are unaffected.
func WithDispatchGap(gap time.Duration) func(*RunnerOptions) {
	return func(opts *RunnerOptions) {
		opts.dispatchGap = gap
	}
}

// WithDetailed enables the five-dimension detailed judge.
func WithDetailed(detailed bool) func(*RunnerOptions) {
	return func(opts *RunnerOptions) {
		opts.detailed = detailed
	}
}

// WithExtraParams merges additional fields into every endpoint request.
func WithExtraParams(params map[string]any) func(*RunnerOptions) {
	return func(opts *RunnerOptions) {
		opts.extraParams = params
	}
}

// WithLogger sets the logger for run progress and diagnostics.
func WithLogger(logger *zap.Logger) func(*RunnerOptions) {
	return func(opts *RunnerOptions) {
		opts.logger = logger
	}
}

// NewRunner creates a Runner over an endpoint client and a judge.
func NewRunner(client EndpointClient, judge AnswerJudge, opts ...func(*RunnerOptions)) *Runner {
	options := &RunnerOptions{
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.concurrency <= 0 {
		options.concurrency = DefaultConcurrency
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}
	return &Runner{
		client:      client,
		judge:       judge,
		concurrency: options.concurrency,
		dispatchGap: options.dispatchGap,
		detailed:    options.detailed,
		extraParams: options.extraParams,
		logger:      options.logger,
	}
}

// Run evaluates every QA pair and returns the batch summary. Each item walks
// the same pipeline: query the endpoint, then judge the answer, back to back
// under one concurrency slot, so endpoint and judge calls combined never
// exceed the configured bound.
//
// Per-item failures never abort the batch: a failed query is judged as an
// empty answer and a failed judge call degrades to the minimum score, so N
// input pairs always yield N records. Cancelling ctx stops dispatching new
// items; records already resolved are kept and summarized, and ctx.Err() is
// returned alongside the partial summary.
//
// Records appear in completion order, which concurrency makes
// non-deterministic; every record names its QA pair id.
func (r *Runner) Run(ctx context.Context, pairs []api.QAPair) (api.EvaluationSummary, error) {
	var (
		mu      sync.Mutex
		records = make([]api.EvaluationRecord, 0, len(pairs))
	)

	g := &errgroup.Group{}
	g.SetLimit(r.concurrency)

dispatch:
	for i, qa := range pairs {
		select {
		case <-ctx.Done():
			break dispatch
		default:
		}
		if r.dispatchGap > 0 && i > 0 {
			select {
			case <-ctx.Done():
				break dispatch
			case <-time.After(r.dispatchGap):
			}
		}
		g.Go(func() error {
			record := r.evaluateOne(ctx, qa)
			mu.Lock()
			records = append(records, record)
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors; Wait only fences completion.
	g.Wait()

	summary := api.Summarize(records)
	r.logger.Info("evaluation batch complete",
		zap.Int("total", summary.Total),
		zap.Int("correct", summary.Correct),
		zap.Float64("accuracy", summary.Accuracy),
	)
	return summary, ctx.Err()
}

// evaluateOne runs the query-then-judge pipeline for a single QA pair.
func (r *Runner) evaluateOne(ctx context.Context, qa api.QAPair) api.EvaluationRecord {
	resp := r.client.Query(ctx, qa.Question, r.extraParams)
	if resp.ErrorKind != "" {
		r.logger.Warn("endpoint query degraded",
			zap.String("kind", resp.ErrorKind),
			zap.String("item", qa.ID),
		)
	}

	score := r.judge.Judge(ctx, qa.Question, qa.Answer, resp.Answer, r.detailed)

	return api.EvaluationRecord{
		ID:           qa.ID,
		Question:     qa.Question,
		GoldenAnswer: qa.Answer,
		RAGAnswer:    resp.Answer,
		Score:        score.Score,
		Reason:       score.Reason,
		IsCorrect:    score.IsCorrect,
		Dimensions:   score.Dimensions,
		ElapsedMS:    resp.ElapsedMS,
		ErrorKind:    resp.ErrorKind,
	}
}

// compile-time check that the llmjudge type satisfies the runner contract.
var _ AnswerJudge = (*llmjudge.Judge)(nil)
