package domain

import "fmt"

// tokensPerMillion is the pricing unit: rates are quoted per million tokens.
const tokensPerMillion = 1_000_000

// Usage is the token accounting reported for a single generation call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewUsage builds a Usage whose total is the sum of its parts.
func NewUsage(promptTokens, completionTokens int) Usage {
	return Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}

// Add returns the element-wise sum of two usage records.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

// Cost is a monetary amount in the pricing currency (dollars by default).
type Cost float64

// String renders the cost with micro-dollar precision.
func (c Cost) String() string { return fmt.Sprintf("$%.6f", float64(c)) }

// Pricing is a two-rate linear cost model, quoted per million tokens.
type Pricing struct {
	InputPerMillion  float64 `json:"input_per_million" yaml:"input" validate:"gte=0"`
	OutputPerMillion float64 `json:"output_per_million" yaml:"output" validate:"gte=0"`
}

// Cost converts a usage record into money:
// (prompt*input + completion*output) / 1e6.
func (p Pricing) Cost(u Usage) Cost {
	return Cost((float64(u.PromptTokens)*p.InputPerMillion + float64(u.CompletionTokens)*p.OutputPerMillion) / tokensPerMillion)
}

// Accumulate adds cost to a running total.
func Accumulate(total, cost Cost) Cost { return total + cost }

// SumCosts folds Accumulate over costs starting from zero.
func SumCosts(costs ...Cost) Cost {
	var total Cost
	for _, c := range costs {
		total = Accumulate(total, c)
	}
	return total
}
