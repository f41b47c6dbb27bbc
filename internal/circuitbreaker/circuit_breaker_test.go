package circuitbreaker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(clock *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker(&Config{
		Name:             "jobs.example.com",
		MaxFailures:      2,
		Timeout:          time.Minute,
		HalfOpenMaxCalls: 1,
	})
	cb.now = func() time.Time { return *clock }
	return cb
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&clock)
	ctx := context.Background()

	require.NoError(t, cb.Execute(ctx, func() bool { return true }))
	assert.Equal(t, StateClosed, cb.GetState())

	require.NoError(t, cb.Execute(ctx, func() bool { return true }))
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(ctx, func() bool { called = true; return false })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResetsFailureStreak(t *testing.T) {
	clock := time.Now()
	cb := newTestBreaker(&clock)
	ctx := context.Background()

	_ = cb.Execute(ctx, func() bool { return true })
	_ = cb.Execute(ctx, func() bool { return false })
	_ = cb.Execute(ctx, func() bool { return true })

	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&clock)
	ctx := context.Background()

	_ = cb.Execute(ctx, func() bool { return true })
	_ = cb.Execute(ctx, func() bool { return true })
	require.Equal(t, StateOpen, cb.GetState())

	clock = clock.Add(2 * time.Minute)
	assert.True(t, cb.Allow())

	require.NoError(t, cb.Execute(ctx, func() bool { return false }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&clock)
	ctx := context.Background()

	_ = cb.Execute(ctx, func() bool { return true })
	_ = cb.Execute(ctx, func() bool { return true })

	clock = clock.Add(2 * time.Minute)
	require.NoError(t, cb.Execute(ctx, func() bool { return true }))
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(&Config{MaxFailures: 1, Timeout: time.Hour, HalfOpenMaxCalls: 1})

	a := reg.Get("a.example.com")
	assert.Same(t, a, reg.Get("a.example.com"))
	assert.NotSame(t, a, reg.Get("b.example.com"))

	_ = a.Execute(context.Background(), func() bool { return true })

	stats := reg.Stats()
	require.Contains(t, stats, "a.example.com")
	assert.Equal(t, StateOpen, stats["a.example.com"].State)
	assert.NotContains(t, stats, "b.example.com")
}
