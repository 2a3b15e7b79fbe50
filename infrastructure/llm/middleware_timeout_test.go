package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeoutMiddleware_AppliesDeadline(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.ResponseDelay = time.Second

	_, err := TimeoutMiddleware(20*time.Millisecond)(mock).DoRequest(context.Background(), Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTimeoutMiddleware_SetsContextDeadline(t *testing.T) {
	mock := NewMockCoreLLM()

	_, err := TimeoutMiddleware(time.Minute)(mock).DoRequest(context.Background(), Request{})
	require.NoError(t, err)

	deadline, ok := mock.LastContext.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestTimeoutMiddleware_DisabledForNonPositive(t *testing.T) {
	mock := NewMockCoreLLM()
	core := TimeoutMiddleware(0)(mock)

	assert.Same(t, mock, core)
}
