package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrMalformedReply marks a 2xx provider reply whose envelope could not be used.
var ErrMalformedReply = errors.New("malformed provider reply")

// CompletionRequest is a single chat-completion call: one user message plus
// sampling parameters. Schema is nil for free-form output.
type CompletionRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	TopP        float64
	Schema      *ResponseSchema
}

// ResponseSchema asks the provider for strict JSON output matching Definition.
type ResponseSchema struct {
	Name       string
	Definition map[string]any
}

// CompletionBackend sends a completion request to an LLM provider and returns
// the message content. Non-2xx replies must surface as *ProviderError.
type CompletionBackend interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Model() string
}

// ProviderError carries the HTTP status and body of a rejected provider call.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}
