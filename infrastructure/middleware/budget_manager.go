// Package middleware provides decorators and observers that sit around the
// agent invoker and the session event stream: budget enforcement, budget
// tracing, Prometheus metrics and a metrics event sink.
package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

// Budget defines resource limits for one session. Zero means unlimited.
type Budget struct {
	// MaxCost limits the summed dollar cost of all invocations.
	MaxCost domain.Cost

	// MaxTokens limits the total number of tokens consumed.
	MaxTokens int64

	// MaxCalls limits the number of invocations attempted.
	MaxCalls int64
}

// Unlimited reports whether no limit is set.
func (b Budget) Unlimited() bool {
	return b.MaxCost <= 0 && b.MaxTokens <= 0 && b.MaxCalls <= 0
}

// BudgetUsage is consumption so far.
type BudgetUsage struct {
	Cost   domain.Cost
	Tokens int64
	Calls  int64
}

// BudgetObserver provides observability hooks for budget operations.
type BudgetObserver interface {
	// PreCheck is called before an invocation is admitted. The returned
	// context is used for the invocation and passed to PostCheck.
	PreCheck(ctx context.Context, persona string, usage BudgetUsage, budget Budget) context.Context

	// PostCheck is called after the invocation, or after a refusal, with
	// the updated usage.
	PostCheck(ctx context.Context, persona string, usage BudgetUsage, budget Budget, elapsed time.Duration, err error)
}

// BudgetManager is a ports.AgentInvoker decorator that refuses invocations
// once a session's budget is spent. A call that crosses a limit completes
// and is paid for; the next call is refused with a
// *domain.BudgetExceededError wrapped in a *ports.InvocationError.
//
// A BudgetManager tracks one session and is safe for concurrent use.
type BudgetManager struct {
	budget   Budget
	pricing  domain.Pricing
	next     ports.AgentInvoker
	observer BudgetObserver

	mu    sync.Mutex
	usage BudgetUsage
}

var _ ports.AgentInvoker = (*BudgetManager)(nil)

// NewBudgetManager wraps next. pricing converts reported usage into cost;
// observer may be nil.
func NewBudgetManager(budget Budget, pricing domain.Pricing, next ports.AgentInvoker, observer BudgetObserver) *BudgetManager {
	if next == nil {
		panic("budget manager: next invoker is required")
	}
	return &BudgetManager{
		budget:   budget,
		pricing:  pricing,
		next:     next,
		observer: observer,
	}
}

// Invoke checks the budget, forwards the call and records its usage.
// Failed calls count towards MaxCalls but add no tokens or cost.
func (bm *BudgetManager) Invoke(ctx context.Context, persona domain.Persona, messages []domain.Message) (ports.Invocation, error) {
	bm.mu.Lock()
	usage := bm.usage
	err := bm.checkBudgetLimits(usage, persona.Name)
	if err == nil {
		bm.usage.Calls++
	}
	bm.mu.Unlock()

	if bm.observer != nil {
		ctx = bm.observer.PreCheck(ctx, persona.Name, usage, bm.budget)
	}

	if err != nil {
		if bm.observer != nil {
			bm.observer.PostCheck(ctx, persona.Name, usage, bm.budget, 0, err)
		}
		return ports.Invocation{}, ports.NewInvocationError(persona.Name, "", err)
	}

	start := time.Now()
	inv, err := bm.next.Invoke(ctx, persona, messages)
	elapsed := time.Since(start)

	bm.mu.Lock()
	if err == nil {
		bm.usage.Tokens += int64(inv.Usage.TotalTokens)
		bm.usage.Cost = domain.Accumulate(bm.usage.Cost, bm.pricing.Cost(inv.Usage))
	}
	usage = bm.usage
	bm.mu.Unlock()

	if bm.observer != nil {
		bm.observer.PostCheck(ctx, persona.Name, usage, bm.budget, elapsed, err)
	}

	return inv, err
}

// Usage returns consumption so far.
func (bm *BudgetManager) Usage() BudgetUsage {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return bm.usage
}

// Validate checks that no limit is negative.
func (bm *BudgetManager) Validate() error {
	if bm.budget.MaxCost < 0 {
		return fmt.Errorf("budget manager: max_cost cannot be negative, got %v", bm.budget.MaxCost)
	}
	if bm.budget.MaxTokens < 0 {
		return fmt.Errorf("budget manager: max_tokens cannot be negative, got %d", bm.budget.MaxTokens)
	}
	if bm.budget.MaxCalls < 0 {
		return fmt.Errorf("budget manager: max_calls cannot be negative, got %d", bm.budget.MaxCalls)
	}
	return nil
}

// checkBudgetLimits reports whether another call may start given usage.
func (bm *BudgetManager) checkBudgetLimits(usage BudgetUsage, persona string) error {
	if bm.budget.MaxCalls > 0 && usage.Calls >= bm.budget.MaxCalls {
		return domain.NewBudgetExceededError("calls", float64(bm.budget.MaxCalls), float64(usage.Calls), persona)
	}

	if bm.budget.MaxTokens > 0 && usage.Tokens >= bm.budget.MaxTokens {
		return domain.NewBudgetExceededError("tokens", float64(bm.budget.MaxTokens), float64(usage.Tokens), persona)
	}

	if bm.budget.MaxCost > 0 && usage.Cost >= bm.budget.MaxCost {
		return domain.NewBudgetExceededError("cost", float64(bm.budget.MaxCost), float64(usage.Cost), persona)
	}

	return nil
}
