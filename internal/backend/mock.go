package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/inkwell-ai/inkwell/internal/convo"
)

// DefaultMockContent is what an unscripted Mock answers.
const DefaultMockContent = "This is a mock response."

// Mock is a deterministic backend. Scripted responses play back in
// order and the last one repeats; with no script every call returns
// DefaultMockContent. Every request is recorded for inspection.
type Mock struct {
	mu        sync.Mutex
	responses []*Response
	callIndex int
	requests  []*Request
}

// NewMock returns a mock that plays back the given responses.
func NewMock(responses ...*Response) *Mock {
	return &Mock{responses: responses}
}

// Send records the request and returns the next scripted response.
func (m *Mock) Send(_ context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if len(m.responses) == 0 {
		return &Response{Content: DefaultMockContent}, nil
	}
	i := m.callIndex
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	m.callIndex++
	return m.responses[i], nil
}

// Requests returns a copy of the requests observed so far.
func (m *Mock) Requests() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// MockToolCall builds a tool call with a fresh UUID, the way providers
// assign call IDs.
func MockToolCall(name string, args map[string]any) convo.ToolCall {
	return convo.ToolCall{
		ID:        fmt.Sprintf("call_%s", uuid.NewString()),
		Name:      name,
		Arguments: args,
	}
}
