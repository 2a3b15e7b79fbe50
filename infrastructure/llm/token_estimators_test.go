package llm

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordBasedTokenEstimator_EstimatesBasedOnWordCount(t *testing.T) {
	tests := []struct {
		name           string
		text           string
		tokensPerWord  float64
		expectedTokens int
	}{
		{"simple sentence", "Hello world how are you", 0.75, 3},
		{"single word", "Hello", 1.0, 1},
		{"empty text", "", 0.75, 0},
		{"whitespace only", "   \t\n  ", 0.75, 0},
		{"multiple spaces", "word1    word2     word3", 1.0, 3},
		{"high ratio", "one two three", 2.0, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			estimator := NewWordBasedTokenEstimator(tt.tokensPerWord)
			assert.Equal(t, tt.expectedTokens, estimator.EstimateTokens(tt.text))
		})
	}
}

func TestWordBasedTokenEstimator_UsesDefaultRatio(t *testing.T) {
	text := "test sentence with four words"
	assert.Equal(t, 3, NewWordBasedTokenEstimator(0).EstimateTokens(text))
	assert.Equal(t, 3, NewWordBasedTokenEstimator(-1.5).EstimateTokens(text))
}

func TestCharacterBasedTokenEstimator_RoundsUp(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		ratio    float64
		expected int
	}{
		{"exact multiple", "12345678", 4, 2},
		{"partial token", "123456789", 4, 3},
		{"empty", "", 4, 0},
		{"default ratio", "abcde", 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewCharacterBasedTokenEstimator(tt.ratio).EstimateTokens(tt.text))
		})
	}
}

type countingEstimator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingEstimator) EstimateTokens(text string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return len(text)
}

func TestCachingTokenEstimator_CachesResults(t *testing.T) {
	base := &countingEstimator{}
	cached := NewCachingTokenEstimator(base, 10)

	assert.Equal(t, 5, cached.EstimateTokens("hello"))
	assert.Equal(t, 5, cached.EstimateTokens("hello"))
	assert.Equal(t, 1, base.calls)
	assert.Equal(t, 1, cached.CacheSize())
}

func TestCachingTokenEstimator_RespectsMaxSize(t *testing.T) {
	base := &countingEstimator{}
	cached := NewCachingTokenEstimator(base, 2)

	for i := range 5 {
		cached.EstimateTokens(fmt.Sprintf("text-%d", i))
	}
	assert.Equal(t, 2, cached.CacheSize())

	cached.EstimateTokens("text-4")
	assert.Equal(t, 6, base.calls, "entries past the limit are recomputed")
}

func TestCachingTokenEstimator_ConcurrentUse(t *testing.T) {
	cached := NewCachingTokenEstimator(NewCharacterBasedTokenEstimator(4), 100)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cached.EstimateTokens(fmt.Sprintf("text-%d", i%5))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, cached.CacheSize())
}

func TestNewTokenEstimator(t *testing.T) {
	chars, err := NewTokenEstimator("")
	require.NoError(t, err)
	assert.Equal(t, 3, chars.EstimateTokens("123456789"))

	words, err := NewTokenEstimator(EstimatorWords)
	require.NoError(t, err)
	assert.Equal(t, 3, words.EstimateTokens("one two three four"))

	_, err = NewTokenEstimator("tiktoken")
	assert.Error(t, err)
}
