package testutil

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"relaychat/model"
)

// MockProvider implements model.Provider for testing
type MockProvider struct {
	// Configurable responses
	GenerateFunc  func(ctx context.Context, message string, history []model.Message) (string, error)
	AvailableFunc func() bool

	id string

	mu          sync.Mutex
	calls       int
	lastMessage string
	lastHistory []model.Message
}

// NewMockProvider creates a mock provider with default implementations
func NewMockProvider(id string) *MockProvider {
	mock := &MockProvider{id: id}
	mock.GenerateFunc = mock.defaultGenerate
	mock.AvailableFunc = func() bool { return true }
	return mock
}

// NewFailingProvider returns an available mock whose Generate always fails with err.
func NewFailingProvider(id string, err error) *MockProvider {
	mock := NewMockProvider(id)
	mock.GenerateFunc = func(context.Context, string, []model.Message) (string, error) {
		return "", err
	}
	return mock
}

func (m *MockProvider) defaultGenerate(ctx context.Context, message string, history []model.Message) (string, error) {
	// Default: echo back a mock response
	return "Mock response to: " + message, nil
}

func (m *MockProvider) ID() string {
	return m.id
}

func (m *MockProvider) IsAvailable() bool {
	return m.AvailableFunc()
}

func (m *MockProvider) Generate(ctx context.Context, message string, history []model.Message) (string, error) {
	m.mu.Lock()
	m.calls++
	m.lastMessage = message
	m.lastHistory = append([]model.Message(nil), history...)
	m.mu.Unlock()
	return m.GenerateFunc(ctx, message, history)
}

// Calls returns how many times Generate was invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the arguments of the most recent Generate call.
func (m *MockProvider) LastRequest() (string, []model.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastMessage, m.lastHistory
}

// CountingTransport counts round trips and delegates to Base
// (http.DefaultTransport when nil).
type CountingTransport struct {
	Base  http.RoundTripper
	count atomic.Int64
}

func (t *CountingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.count.Add(1)
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// Count returns the number of requests sent through the transport.
func (t *CountingTransport) Count() int {
	return int(t.count.Load())
}

// Client returns an *http.Client using this transport.
func (t *CountingTransport) Client() *http.Client {
	return &http.Client{Transport: t}
}
