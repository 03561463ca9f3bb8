package llm

import (
	"context"
	"sync"
)

// MockCaller is a scripted Caller for tests and dry runs. Responses are
// consumed in order; the last one repeats once the script is exhausted.
type MockCaller struct {
	mu        sync.Mutex
	responses []Response
	errs      []error
	requests  []Request
	callCount int

	// GenerateFunc, when set, overrides the scripted responses entirely.
	GenerateFunc func(ctx context.Context, req Request) (Response, error)
}

// NewMockCaller creates a mock that answers every request with text.
func NewMockCaller(text string) *MockCaller {
	return &MockCaller{responses: []Response{{Text: text}}}
}

// Script replaces the response script. Each entry answers one call.
func (m *MockCaller) Script(texts ...string) *MockCaller {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = m.responses[:0]
	for _, t := range texts {
		m.responses = append(m.responses, Response{Text: t})
	}
	return m
}

// ScriptResponses replaces the response script with full responses.
func (m *MockCaller) ScriptResponses(responses ...Response) *MockCaller {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses[:0], responses...)
	return m
}

// FailWith makes every call return err.
func (m *MockCaller) FailWith(err error) *MockCaller {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = []error{err}
	return m
}

// Generate implements Caller.
func (m *MockCaller) Generate(ctx context.Context, req Request) (Response, error) {
	if m.GenerateFunc != nil {
		m.mu.Lock()
		m.requests = append(m.requests, req)
		m.callCount++
		m.mu.Unlock()
		return m.GenerateFunc(ctx, req)
	}

	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	idx := m.callCount
	m.callCount++

	if len(m.errs) > 0 {
		return Response{}, m.errs[0]
	}
	if len(m.responses) == 0 {
		return Response{}, nil
	}
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

// CallCount returns the number of Generate calls made.
func (m *MockCaller) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastRequest returns the most recent request, or a zero request if none.
func (m *MockCaller) LastRequest() Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return Request{}
	}
	return m.requests[len(m.requests)-1]
}

// Requests returns a copy of all captured requests.
func (m *MockCaller) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}
