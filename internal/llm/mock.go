package llm

import (
	"context"
	"fmt"
)

// MockCompleter implements Completer for tests. Responses are returned
// in order; when exhausted it repeats the last one. A non-nil Err is
// returned from every call instead.
type MockCompleter struct {
	Responses []string
	Err       error
	Calls     int
	LastReq   CompletionRequest
}

func (m *MockCompleter) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.Calls++
	m.LastReq = req
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return nil, fmt.Errorf("mock completer has no responses")
	}
	idx := m.Calls - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return &CompletionResponse{Content: m.Responses[idx], StopReason: "stop"}, nil
}

func (m *MockCompleter) Model() string { return "mock" }
