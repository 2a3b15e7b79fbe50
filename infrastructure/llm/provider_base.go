package llm

import (
	"strings"
	"sync"

	"github.com/ahrav/go-tribunal/internal/domain"
)

// DefaultMaxTokens bounds completion length when the caller sets no limit.
const DefaultMaxTokens = 1024

// ResponseFormatJSON asks providers that support it to return a JSON object.
const ResponseFormatJSON = "json"

// BaseProvider provides common, thread-safe model name management.
type BaseProvider struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the name of the model currently configured for the provider.
func (b *BaseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// SetModel updates the model name for the provider.
func (b *BaseProvider) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}

// RequestOptions is the standardized set of request parameters shared by
// all providers.
type RequestOptions struct {
	// MaxTokens specifies the maximum number of tokens to generate.
	MaxTokens int
	// Model is the model identifier to use for the request.
	Model string
	// Temperature controls randomness. Nil means provider default.
	Temperature *float64
	// TopP is nucleus sampling. Nil means provider default.
	TopP *float64
	// ResponseFormat is "" for free text or ResponseFormatJSON.
	ResponseFormat string
	// Extra holds provider-specific options.
	Extra map[string]any
}

// ParseRequestOptions extracts request parameters from a map, using
// defaults for missing or invalid entries. Unrecognized keys land in Extra.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		MaxTokens:      ExtractOptionalInt(opts, "max_tokens", DefaultMaxTokens, IsPositiveInt),
		Model:          ExtractOptionalString(opts, "model", defaultModel, IsNonEmptyString),
		ResponseFormat: ExtractOptionalString(opts, "response_format", "", nil),
		Extra:          make(map[string]any),
	}

	if temp := ExtractOptionalFloat64(opts, "temperature", -1, IsValidTemperature); temp != -1 {
		options.Temperature = &temp
	}

	if topP := ExtractOptionalFloat64(opts, "top_p", -1, IsValidTopP); topP != -1 {
		options.TopP = &topP
	}

	for k, v := range opts {
		switch k {
		case "max_tokens", "model", "response_format", "temperature", "top_p":
		default:
			options.Extra[k] = v
		}
	}

	return options
}

// ExtractOptionalInt extracts an int from opts. It returns defaultVal if the
// key is missing, has another type, or fails validator.
func ExtractOptionalInt(opts map[string]any, key string, defaultVal int, validator func(int) bool) int {
	val, ok := opts[key]
	if !ok {
		return defaultVal
	}

	intVal, ok := SafeInt(val)
	if !ok {
		return defaultVal
	}

	if validator != nil && !validator(intVal) {
		return defaultVal
	}

	return intVal
}

// ExtractOptionalString extracts a string from opts with the same fallback
// rules as ExtractOptionalInt.
func ExtractOptionalString(opts map[string]any, key string, defaultVal string, validator func(string) bool) string {
	val, ok := opts[key]
	if !ok {
		return defaultVal
	}

	strVal, ok := val.(string)
	if !ok {
		return defaultVal
	}

	if validator != nil && !validator(strVal) {
		return defaultVal
	}

	return strVal
}

// ExtractOptionalFloat64 extracts a float64 from opts. float32 values are
// widened.
func ExtractOptionalFloat64(opts map[string]any, key string, defaultVal float64, validator func(float64) bool) float64 {
	val, ok := opts[key]
	if !ok {
		return defaultVal
	}

	var floatVal float64
	switch v := val.(type) {
	case float64:
		floatVal = v
	case float32:
		floatVal = float64(v)
	default:
		return defaultVal
	}

	if validator != nil && !validator(floatVal) {
		return defaultVal
	}

	return floatVal
}

// TokenCounter estimates token counts from text.
type TokenCounter struct {
	// CharactersPerToken is the average number of characters per token.
	CharactersPerToken float64
}

// NewTokenCounter creates a TokenCounter using 4 characters per token.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{CharactersPerToken: 4.0}
}

// EstimateTokens returns len(text) / CharactersPerToken.
func (tc *TokenCounter) EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return int(float64(len(text)) / tc.CharactersPerToken)
}

// GetTokenCount returns actualCount when positive and an estimate otherwise.
func (tc *TokenCounter) GetTokenCount(actualCount int, text string) int {
	if actualCount > 0 {
		return actualCount
	}
	return tc.EstimateTokens(text)
}

// flattenRequest renders a system prompt and conversation as plain text for
// token estimation.
func flattenRequest(system string, messages []domain.Message) string {
	var b strings.Builder
	b.WriteString(system)
	for _, m := range messages {
		b.WriteByte('\n')
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}
