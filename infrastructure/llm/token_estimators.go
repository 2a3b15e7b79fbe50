package llm

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// Estimator kinds accepted by NewTokenEstimator.
const (
	EstimatorCharacters = "characters"
	EstimatorWords      = "words"
)

// NewTokenEstimator returns a cached estimator of the given kind. An empty
// kind selects the character-based estimator.
func NewTokenEstimator(kind string) (TokenEstimator, error) {
	var base TokenEstimator
	switch kind {
	case "", EstimatorCharacters:
		base = NewCharacterBasedTokenEstimator(0)
	case EstimatorWords:
		base = NewWordBasedTokenEstimator(0)
	default:
		return nil, fmt.Errorf("unknown token estimator %q", kind)
	}
	return NewCachingTokenEstimator(base, 0), nil
}

// WordBasedTokenEstimator estimates tokens from whitespace-separated words.
type WordBasedTokenEstimator struct{ TokensPerWord float64 }

// NewWordBasedTokenEstimator uses 0.75 tokens per word when tokensPerWord is
// not positive.
func NewWordBasedTokenEstimator(tokensPerWord float64) *WordBasedTokenEstimator {
	if tokensPerWord <= 0 {
		tokensPerWord = 0.75
	}
	return &WordBasedTokenEstimator{TokensPerWord: tokensPerWord}
}

// EstimateTokens returns floor(words * TokensPerWord).
func (e *WordBasedTokenEstimator) EstimateTokens(text string) int {
	return int(float64(len(strings.Fields(text))) * e.TokensPerWord)
}

// CharacterBasedTokenEstimator estimates tokens from byte length.
type CharacterBasedTokenEstimator struct{ charsPerToken float64 }

// NewCharacterBasedTokenEstimator uses 4 characters per token when
// charactersPerToken is not positive.
func NewCharacterBasedTokenEstimator(charactersPerToken float64) *CharacterBasedTokenEstimator {
	if charactersPerToken <= 0 {
		charactersPerToken = 4.0
	}
	return &CharacterBasedTokenEstimator{charsPerToken: charactersPerToken}
}

// EstimateTokens returns ceil(len(text) / charsPerToken).
func (e *CharacterBasedTokenEstimator) EstimateTokens(text string) int {
	return int(math.Ceil(float64(len(text)) / e.charsPerToken))
}

// CachingTokenEstimator memoises another estimator. Once maxSize entries are
// stored new texts are estimated but not cached. Safe for concurrent use.
type CachingTokenEstimator struct {
	underlying TokenEstimator
	maxSize    int

	mu    sync.Mutex
	cache map[string]int
}

// NewCachingTokenEstimator wraps underlying. maxSize defaults to 1000.
func NewCachingTokenEstimator(underlying TokenEstimator, maxSize int) *CachingTokenEstimator {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &CachingTokenEstimator{
		underlying: underlying,
		cache:      make(map[string]int),
		maxSize:    maxSize,
	}
}

// EstimateTokens returns the cached estimate or computes and stores it.
func (e *CachingTokenEstimator) EstimateTokens(text string) int {
	e.mu.Lock()
	if tokens, ok := e.cache[text]; ok {
		e.mu.Unlock()
		return tokens
	}
	e.mu.Unlock()

	tokens := e.underlying.EstimateTokens(text)

	e.mu.Lock()
	if len(e.cache) < e.maxSize {
		e.cache[text] = tokens
	}
	e.mu.Unlock()
	return tokens
}

// CacheSize returns the number of cached estimates.
func (e *CachingTokenEstimator) CacheSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}
