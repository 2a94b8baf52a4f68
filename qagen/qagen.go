// Package qagen generates golden question/answer pairs from document chunks
// with a completion provider.
package qagen

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/datar-psa/ragscore/api"
	"github.com/datar-psa/ragscore/jsonrepair"
	"github.com/datar-psa/ragscore/llmjudge"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 4096
)

var difficultyZH = map[string]string{
	"easy":   "简单",
	"medium": "中等",
	"hard":   "困难",
}

const generatorSystemPromptEN = "You are a careful dataset generator. " +
	"Generate questions strictly answerable from the provided context. " +
	"Focus on substantive concepts, facts, and technical details. " +
	"Generate questions and answers in the SAME language as the context. " +
	"Return a JSON object with an 'items' array."

const generatorSystemPromptZH = "你是一个细心的数据集生成器。" +
	"生成的问题必须严格基于提供的上下文来回答。" +
	"关注核心概念、事实和技术细节。" +
	"返回一个包含'items'数组的JSON对象。"

const generatorUserPromptEN = `Context:
"""%s"""

Task:
- Generate %d %s question-answer pairs.
- Each answer must be fully supported by the context.
- Provide a short rationale (1-2 sentences) and a quoted supporting span.
- Do NOT generate trivial questions about URLs, repo links, install commands, or example output/sample code.
- Focus on core concepts, factual claims, and technical details in the context.
- Each question should test genuine understanding of the content, not surface-level details.
- Output a JSON object: {"items": [{"question": "...", "answer": "...", "rationale": "...", "support_span": "..."}]}.`

const generatorUserPromptZH = `上下文：
"""%s"""

任务：
- 生成 %d 个%s难度的问答对。
- 每个答案必须完全基于上下文支持。
- 提供简短的理由（1-2句话）和引用的支持片段。
- 不要生成关于URL、仓库链接、安装命令或示例输出/示例代码的琐碎问题。
- 关注上下文中的核心概念、事实和技术细节。
- 每个问题应测试对内容的真正理解，而不仅仅是表面细节。
- 输出JSON对象：{"items": [{"question": "...", "answer": "...", "rationale": "...", "support_span": "..."}]}。`

// Generator produces QA pairs from chunk text.
type Generator struct {
	provider    api.CompletionProvider
	temperature float64
	maxTokens   int
	logger      *zap.Logger
	parser      *jsonrepair.Parser
}

// GeneratorOptions configures Generator creation.
type GeneratorOptions struct {
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

// WithTemperature sets the sampling temperature. Generation keeps some
// variety by default, unlike judging.
func WithTemperature(temperature float64) func(*GeneratorOptions) {
	return func(opts *GeneratorOptions) {
		opts.temperature = temperature
	}
}

// WithMaxTokens caps the provider's output length.
func WithMaxTokens(maxTokens int) func(*GeneratorOptions) {
	return func(opts *GeneratorOptions) {
		opts.maxTokens = maxTokens
	}
}

// WithLogger sets the generator's diagnostic logger.
func WithLogger(logger *zap.Logger) func(*GeneratorOptions) {
	return func(opts *GeneratorOptions) {
		opts.logger = logger
	}
}

// New creates a Generator backed by the given provider.
func New(provider api.CompletionProvider, opts ...func(*GeneratorOptions)) *Generator {
	options := &GeneratorOptions{
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}
	return &Generator{
		provider:    provider,
		temperature: options.temperature,
		maxTokens:   options.maxTokens,
		logger:      options.logger,
		parser:      jsonrepair.NewParser(jsonrepair.WithLogger(options.logger)),
	}
}

// buildPrompts picks the prompt pair matching the chunk's language.
func buildPrompts(chunkText, difficulty string, n int) (system, user string) {
	if llmjudge.DetectLanguage(chunkText) == llmjudge.LanguageChinese {
		diff, ok := difficultyZH[difficulty]
		if !ok {
			diff = difficulty
		}
		return generatorSystemPromptZH, fmt.Sprintf(generatorUserPromptZH, chunkText, n, diff)
	}
	return generatorSystemPromptEN, fmt.Sprintf(generatorUserPromptEN, chunkText, n, difficulty)
}

// GenerateForChunk asks the provider for n QA pairs grounded in chunkText.
// Items without both a question and an answer are dropped; every kept pair
// gets a fresh id. The provider may return fewer pairs than requested.
func (g *Generator) GenerateForChunk(ctx context.Context, chunkText, difficulty string, n int) ([]api.QAPair, error) {
	system, user := buildPrompts(chunkText, difficulty, n)

	temp := g.temperature
	resp, err := g.provider.Generate(ctx, api.GenerateRequest{
		Messages: []api.Message{
			{Role: api.RoleSystem, Content: system},
			{Role: api.RoleUser, Content: user},
		},
		Temperature: &temp,
		JSONMode:    true,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrGenerationFailed, err)
	}

	data := g.parser.Parse(resp.Content)
	items, _ := data["items"].([]any)

	pairs := make([]api.QAPair, 0, len(items))
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		question := trimmedString(item["question"])
		answer := trimmedString(item["answer"])
		if question == "" || answer == "" {
			g.logger.Warn("dropping generated item without question or answer",
				zap.String("kind", "incomplete_item"),
			)
			continue
		}
		pairs = append(pairs, api.QAPair{
			ID:          uuid.NewString(),
			Question:    question,
			Answer:      answer,
			Rationale:   trimmedString(item["rationale"]),
			SupportSpan: trimmedString(item["support_span"]),
			Difficulty:  difficulty,
		})
	}
	return pairs, nil
}

func trimmedString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
