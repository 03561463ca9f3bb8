// Package llm defines the model-caller contract used by the execution engine.
//
// Concrete providers live outside this module; the engine only depends on
// this narrow request/response shape. Callers must be stateless per call.
package llm

import "context"

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"` // system, user, assistant, tool
	Content string `json:"content"`
}

// Usage reports token counts for a single generation, when the provider
// supplies them. Zero values mean "not reported".
type Usage struct {
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// Total returns the combined token count.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Add returns the element-wise sum of two usage records.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}

// Request is a single generation request.
type Request struct {
	Messages     []Message
	SystemPrompt string
	Temperature  float64
	Model        string
}

// Response is the result of a generation request.
type Response struct {
	Text  string
	Usage Usage
}

// Caller generates text for a conversation. Implementations must be safe for
// concurrent use; every call is independent (no server-side session).
type Caller interface {
	Generate(ctx context.Context, req Request) (Response, error)
}
