package llm

import (
	"context"
	"errors"
	"sync"
	"time"
)

// errMockFailure is returned by MockCoreLLM when a failure is simulated and
// no explicit Error is configured.
var errMockFailure = errors.New("simulated failure")

// MockCoreLLM is a configurable CoreLLM for tests of middleware and clients.
type MockCoreLLM struct {
	mu sync.Mutex

	Response      string
	TokensIn      int
	TokensOut     int
	Error         error
	Model         string
	ResponseDelay time.Duration

	// FailUntilAttempt makes the first N calls fail.
	FailUntilAttempt int

	CallCount      int
	LastRequest    Request
	LastContext    context.Context
	CallTimestamps []time.Time
}

// NewMockCoreLLM creates a mock that succeeds with fixed content and usage.
func NewMockCoreLLM() *MockCoreLLM {
	return &MockCoreLLM{
		Response:  "test response",
		TokensIn:  10,
		TokensOut: 20,
		Model:     "test-model",
	}
}

// DoRequest records the call and returns the configured outcome.
func (m *MockCoreLLM) DoRequest(ctx context.Context, req Request) (Response, error) {
	m.mu.Lock()
	m.CallCount++
	call := m.CallCount
	m.LastRequest = req
	m.LastContext = ctx
	m.CallTimestamps = append(m.CallTimestamps, time.Now())
	delay := m.ResponseDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailUntilAttempt > 0 && call <= m.FailUntilAttempt {
		if m.Error != nil {
			return Response{}, m.Error
		}
		return Response{}, errMockFailure
	}

	if m.Error != nil {
		return Response{}, m.Error
	}

	return Response{Content: m.Response, TokensIn: m.TokensIn, TokensOut: m.TokensOut}, nil
}

// GetModel returns the configured model name.
func (m *MockCoreLLM) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Model
}

// SetModel updates the model name.
func (m *MockCoreLLM) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Model = model
}

// GetCallCount returns the number of DoRequest calls.
func (m *MockCoreLLM) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}
