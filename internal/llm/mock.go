package llm

import (
	"context"
	"sync"
)

// MockClient is a test double for Client. CompleteFunc wins when set;
// otherwise queued Responses are returned in order, and the last one
// repeats once the queue is drained.
type MockClient struct {
	ProviderName string
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Responses    []string

	mu       sync.Mutex
	requests []CompletionRequest
}

// Scripted returns a mock that replies with the given texts in order.
func Scripted(responses ...string) *MockClient {
	return &MockClient{ProviderName: "mock", Responses: responses}
}

func (m *MockClient) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	n := len(m.requests)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	if len(m.Responses) == 0 {
		return &CompletionResponse{Content: "mock response", Model: "mock"}, nil
	}
	i := min(n-1, len(m.Responses)-1)
	return &CompletionResponse{Content: m.Responses[i], Model: "mock"}, nil
}

// Requests returns a copy of every request seen so far.
func (m *MockClient) Requests() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.requests...)
}
