// Package openai adapts the official OpenAI client to the CompletionProvider
// capability. With a custom base URL it also reaches OpenAI-compatible
// servers (DashScope, Ollama, vLLM and similar).
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/datar-psa/ragscore/api"
)

// Provider wraps an openai.Client to implement the CompletionProvider interface
type Provider struct {
	client    openai.Client
	modelName string
}

// ProviderOptions configures Provider creation.
type ProviderOptions struct {
	baseURL       string
	requestOption []option.RequestOption
}

// WithBaseURL points the client at an OpenAI-compatible server.
func WithBaseURL(baseURL string) func(*ProviderOptions) {
	return func(opts *ProviderOptions) {
		opts.baseURL = baseURL
	}
}

// WithRequestOptions passes extra client options through to the underlying
// openai client (custom headers, http client, retry policy).
func WithRequestOptions(requestOpts ...option.RequestOption) func(*ProviderOptions) {
	return func(opts *ProviderOptions) {
		opts.requestOption = requestOpts
	}
}

// NewProvider creates a completion provider for the given model.
func NewProvider(apiKey, modelName string, opts ...func(*ProviderOptions)) *Provider {
	options := &ProviderOptions{}
	for _, opt := range opts {
		opt(options)
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if options.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(options.baseURL))
	}
	clientOpts = append(clientOpts, options.requestOption...)

	return &Provider{
		client:    openai.NewClient(clientOpts...),
		modelName: modelName,
	}
}

// Generate implements CompletionProvider.Generate
func (p *Provider) Generate(ctx context.Context, req api.GenerateRequest) (*api.GenerateResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case api.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case api.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.modelName),
		Messages: messages,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}

	return &api.GenerateResponse{
		Content: completion.Choices[0].Message.Content,
		Usage: api.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}, nil
}

// Verify that Provider implements CompletionProvider
var _ api.CompletionProvider = (*Provider)(nil)
