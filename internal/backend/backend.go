// Package backend defines the contract between the document processor
// and AI providers, a registry keyed by model identifier, and a
// deterministic mock used by tests and the mock! tag.
package backend

import (
	"context"

	"github.com/inkwell-ai/inkwell/internal/convo"
	"github.com/inkwell-ai/inkwell/internal/tools"
)

// Request carries one turn's worth of conversation to a provider.
type Request struct {
	Messages       []convo.Message
	SystemPrompt   string
	Model          string
	MaxTokens      int
	Temperature    float64
	Tools          []tools.Definition
	Thinking       bool
	ThinkingBudget int
}

// Response is a provider's reply: visible text, any tool calls the
// model wants executed before continuing, and optional reasoning.
type Response struct {
	Content   string
	ToolCalls []convo.ToolCall
	Reasoning string
}

// Backend sends one request and blocks until the provider replies. The
// turn loop issues calls strictly sequentially, so implementations are
// never asked to handle concurrent requests for the same block.
type Backend interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}
