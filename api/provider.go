package api

import "context"

// Message roles accepted by completion providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateRequest carries everything the pipeline asks of a completion
// provider. Zero-valued optional fields mean "provider default".
type GenerateRequest struct {
	Messages []Message
	// Temperature is the sampling temperature; nil leaves the provider default.
	Temperature *float64
	// JSONMode asks the provider to return a single JSON object.
	JSONMode bool
	// MaxTokens bounds the completion length; 0 leaves the provider default.
	MaxTokens int
}

// Usage reports provider token accounting for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerateResponse is the provider's completion output.
type GenerateResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// CompletionProvider turns role-tagged messages into generated text.
// This interface must be implemented by library consumers; Gemini and
// OpenAI-compatible implementations are provided in the gemini and openai
// subpackages. Implementations must be safe for concurrent use.
type CompletionProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// GenerateResult pairs a completion with its error for asynchronous delivery.
type GenerateResult struct {
	Response *GenerateResponse
	Err      error
}

// GenerateAsync is the non-blocking variant of CompletionProvider.Generate:
// it issues the call in its own goroutine and delivers the outcome on the
// returned channel. The channel is buffered, so an abandoned result never
// leaks the goroutine.
func GenerateAsync(ctx context.Context, p CompletionProvider, req GenerateRequest) <-chan GenerateResult {
	ch := make(chan GenerateResult, 1)
	go func() {
		resp, err := p.Generate(ctx, req)
		ch <- GenerateResult{Response: resp, Err: err}
		close(ch)
	}()
	return ch
}
