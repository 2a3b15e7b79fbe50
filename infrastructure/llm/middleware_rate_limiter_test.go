package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestRateLimitMiddleware_AllowsBurst(t *testing.T) {
	mock := NewMockCoreLLM()
	core := RateLimitMiddleware(rate.Limit(1), 3)(mock)

	for range 3 {
		_, err := core.DoRequest(context.Background(), Request{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, mock.GetCallCount())
}

func TestRateLimitMiddleware_HonoursContext(t *testing.T) {
	mock := NewMockCoreLLM()
	core := RateLimitMiddleware(rate.Every(time.Hour), 1)(mock)

	_, err := core.DoRequest(context.Background(), Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = core.DoRequest(ctx, Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
	assert.Equal(t, 1, mock.GetCallCount(), "request over the limit must not reach the provider")
}

func TestRateLimitMiddleware_SharedAcrossClients(t *testing.T) {
	mw := RateLimitMiddleware(rate.Every(time.Hour), 1)
	a := mw(NewMockCoreLLM())
	b := mw(NewMockCoreLLM())

	_, err := a.DoRequest(context.Background(), Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = b.DoRequest(ctx, Request{})
	assert.Error(t, err)
}
