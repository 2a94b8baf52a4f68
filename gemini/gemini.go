// Package gemini adapts google.golang.org/genai clients to the
// CompletionProvider capability.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/datar-psa/ragscore/api"
)

// Provider wraps a genai.Client to implement the CompletionProvider interface
type Provider struct {
	client    *genai.Client
	modelName string
}

// NewProvider creates a new Gemini completion provider
// client: genai.Client from google.golang.org/genai
// modelName: the model to use (e.g., "gemini-2.5-flash")
func NewProvider(client *genai.Client, modelName string) *Provider {
	return &Provider{
		client:    client,
		modelName: modelName,
	}
}

// Generate implements CompletionProvider.Generate
func (p *Provider) Generate(ctx context.Context, req api.GenerateRequest) (*api.GenerateResponse, error) {
	config := &genai.GenerateContentConfig{}

	var contents []*genai.Content
	for _, msg := range req.Messages {
		switch msg.Role {
		case api.RoleSystem:
			// Gemini takes system text as a config-level instruction, not a turn
			config.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: msg.Content}},
			}
		case api.RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("no user messages in request")
	}

	if req.Temperature != nil {
		t := float32(*req.Temperature)
		config.Temperature = &t
	}
	if req.JSONMode {
		config.ResponseMIMEType = "application/json"
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.modelName, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned")
	}
	if resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no parts in response")
	}

	out := &api.GenerateResponse{
		Content: resp.Candidates[0].Content.Parts[0].Text,
	}
	if resp.UsageMetadata != nil {
		out.Usage = api.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

// Verify that Provider implements CompletionProvider
var _ api.CompletionProvider = (*Provider)(nil)
