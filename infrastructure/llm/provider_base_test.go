package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tribunal/internal/domain"
)

func TestParseRequestOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts := ParseRequestOptions(nil, "gpt-4.1-mini")

		assert.Equal(t, DefaultMaxTokens, opts.MaxTokens)
		assert.Equal(t, "gpt-4.1-mini", opts.Model)
		assert.Nil(t, opts.Temperature)
		assert.Nil(t, opts.TopP)
		assert.Empty(t, opts.ResponseFormat)
		assert.Empty(t, opts.Extra)
	})

	t.Run("recognised and extra keys", func(t *testing.T) {
		opts := ParseRequestOptions(map[string]any{
			"max_tokens":        300,
			"model":             "gpt-4o",
			"temperature":       float32(0.5),
			"top_p":             0.8,
			"response_format":   ResponseFormatJSON,
			"frequency_penalty": 0.2,
		}, "gpt-4.1-mini")

		assert.Equal(t, 300, opts.MaxTokens)
		assert.Equal(t, "gpt-4o", opts.Model)
		require.NotNil(t, opts.Temperature)
		assert.InDelta(t, 0.5, *opts.Temperature, 1e-6)
		require.NotNil(t, opts.TopP)
		assert.InDelta(t, 0.8, *opts.TopP, 1e-9)
		assert.Equal(t, ResponseFormatJSON, opts.ResponseFormat)
		assert.Equal(t, map[string]any{"frequency_penalty": 0.2}, opts.Extra)
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		opts := ParseRequestOptions(map[string]any{
			"max_tokens":  -5,
			"model":       "",
			"temperature": 9.0,
			"top_p":       "high",
		}, "m")

		assert.Equal(t, DefaultMaxTokens, opts.MaxTokens)
		assert.Equal(t, "m", opts.Model)
		assert.Nil(t, opts.Temperature)
		assert.Nil(t, opts.TopP)
	})
}

func TestTokenCounter_GetTokenCount(t *testing.T) {
	tc := NewTokenCounter()

	assert.Equal(t, 17, tc.GetTokenCount(17, "ignored"))
	assert.Equal(t, tc.EstimateTokens("twelve chars"), tc.GetTokenCount(0, "twelve chars"))
}

func TestFlattenRequest(t *testing.T) {
	got := flattenRequest("sys", []domain.Message{
		{Role: domain.RoleUser, Content: "a"},
		{Role: domain.RoleAssistant, Content: "b"},
	})
	assert.Equal(t, "sys\nuser: a\nassistant: b", got)
}

func TestValidationHelpers(t *testing.T) {
	assert.True(t, IsValidTemperature(0))
	assert.True(t, IsValidTemperature(2))
	assert.False(t, IsValidTemperature(2.1))
	assert.True(t, IsValidTopP(1))
	assert.False(t, IsValidTopP(-0.1))

	v, ok := SafeInt(int64(42))
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = SafeInt("42")
	assert.False(t, ok)

	assert.Equal(t, 1.0, ClampFloat64(1.7, 0, 1))
	assert.Equal(t, 40, ClampInt(100, 1, 40))

	_, err := ValidateBaseURL("http://")
	assert.Error(t, err)
	u, err := ValidateBaseURL("https://api.example.com/v1")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1", u)
}
