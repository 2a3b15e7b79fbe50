package testutils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

func TestScriptedInvoker_ReplaysScriptThenFallback(t *testing.T) {
	inv := NewScriptedInvoker(nil).
		Script("Sceptic", Turn{Content: "first"}, Turn{Content: "second"}).
		Fallback(Turn{Usage: domain.NewUsage(1, 1)})
	p := domain.Persona{Name: "Sceptic"}

	var got []string
	for range 3 {
		out, err := inv.Invoke(context.Background(), p, nil)
		require.NoError(t, err)
		got = append(got, out.Content)
	}

	assert.Equal(t, []string{"first", "second", "Sceptic turn 3"}, got)
	assert.Equal(t, []string{"Sceptic", "Sceptic", "Sceptic"}, inv.Personas())
}

func TestScriptedInvoker_AdvancesClock(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)
	inv := NewScriptedInvoker(clock).Fallback(Turn{Latency: 3 * time.Second})

	_, err := inv.Invoke(context.Background(), domain.Persona{Name: "Defender"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, clock.Since(start))
}

func TestScriptedInvoker_ErrorsAreInvocationErrors(t *testing.T) {
	boom := errors.New("boom")
	inv := NewScriptedInvoker(nil).Script("Jury", Turn{Err: boom})

	_, err := inv.Invoke(context.Background(), domain.Persona{Name: "Jury"}, nil)

	var ie *ports.InvocationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "Jury", ie.Persona)
	assert.ErrorIs(t, err, boom)
}

func TestScriptedInvoker_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScriptedInvoker(nil).Invoke(ctx, domain.Persona{Name: "Sceptic"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScriptedInvoker_RecordsMessageCopies(t *testing.T) {
	inv := NewScriptedInvoker(nil)
	msgs := []domain.Message{{Role: domain.RoleUser, Content: "hello"}}

	_, err := inv.Invoke(context.Background(), domain.Persona{Name: "Sceptic"}, msgs)
	require.NoError(t, err)
	msgs[0].Content = "changed"

	calls := inv.CallsFor("Sceptic")
	require.Len(t, calls, 1)
	assert.Equal(t, "hello", calls[0].Messages[0].Content)
}
