package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

type anthropicMessagesRequest struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	System      []struct {
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

func newAnthropicTestServer(t *testing.T, status int, body string, captured *anthropicMessagesRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

const anthropicOKBody = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-3-5-haiku-latest",
  "content": [{"type": "text", "text": "The claim "}, {"type": "text", "text": "mutates the fact."}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 55, "output_tokens": 9}
}`

func TestAnthropicProvider_DoRequest(t *testing.T) {
	var captured anthropicMessagesRequest
	server := newAnthropicTestServer(t, http.StatusOK, anthropicOKBody, &captured)

	provider, err := newAnthropicProvider(ClientConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, AnthropicDefaultModel, provider.GetModel())

	resp, err := provider.DoRequest(context.Background(), Request{
		System: "You are the Sceptic.",
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "FACT: a\nCLAIM: b"},
			{Role: domain.RoleAssistant, Content: "[Defender]: fine"},
			{Role: domain.RoleUser, Content: "Respond to Defender's points."},
		},
		Options: map[string]any{"temperature": 1.7},
	})
	require.NoError(t, err)

	assert.Equal(t, Response{Content: "The claim mutates the fact.", TokensIn: 55, TokensOut: 9}, resp)

	assert.Equal(t, AnthropicDefaultModel, captured.Model)
	assert.Equal(t, DefaultMaxTokens, captured.MaxTokens)
	assert.InDelta(t, 1.0, captured.Temperature, 1e-9, "temperature is clamped to the provider range")
	require.Len(t, captured.System, 1)
	assert.Equal(t, "You are the Sceptic.", captured.System[0].Text)

	require.Len(t, captured.Messages, 3)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Equal(t, "assistant", captured.Messages[1].Role)
	assert.Equal(t, "[Defender]: fine", captured.Messages[1].Content[0].Text)
}

func TestAnthropicProvider_AuthError(t *testing.T) {
	server := newAnthropicTestServer(t, http.StatusUnauthorized,
		`{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`, nil)

	provider, err := newAnthropicProvider(ClientConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = provider.DoRequest(context.Background(), Request{Messages: []domain.Message{{Role: domain.RoleUser, Content: "x"}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrAuthenticationFailed)
}

func TestAnthropicProvider_EmptyContent(t *testing.T) {
	server := newAnthropicTestServer(t, http.StatusOK,
		`{"id": "msg_1", "type": "message", "role": "assistant", "content": [], "usage": {"input_tokens": 1, "output_tokens": 0}}`, nil)

	provider, err := newAnthropicProvider(ClientConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = provider.DoRequest(context.Background(), Request{Messages: []domain.Message{{Role: domain.RoleUser, Content: "x"}}})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestAnthropicProvider_ContextCancelled(t *testing.T) {
	server := newAnthropicTestServer(t, http.StatusOK, anthropicOKBody, nil)
	provider, err := newAnthropicProvider(ClientConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = provider.DoRequest(ctx, Request{Messages: []domain.Message{{Role: domain.RoleUser, Content: "x"}}})
	require.Error(t, err)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrorTypeNetwork, perr.Type)
}
