package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenLimiterSpendsBudget(t *testing.T) {
	l := NewTokenLimiter(10)

	require.NoError(t, l.Wait(context.Background(), 4))
	require.NoError(t, l.Wait(context.Background(), 6))
	assert.Equal(t, 0, l.GetRemaining())
}

func TestTokenLimiterBlocksUntilContextEnds(t *testing.T) {
	l := NewTokenLimiter(5)
	l.pollInterval = time.Millisecond
	require.NoError(t, l.Wait(context.Background(), 5))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx, 1), context.DeadlineExceeded)
}

func TestTokenLimiterRefills(t *testing.T) {
	l := NewTokenLimiter(3)
	l.refillPeriod = 10 * time.Millisecond
	l.pollInterval = time.Millisecond
	require.NoError(t, l.Wait(context.Background(), 3))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.Wait(ctx, 2))
	assert.Equal(t, 1, l.GetRemaining())
}

func TestTokenLimiterRejectsOversizedRequest(t *testing.T) {
	l := NewTokenLimiter(3)
	assert.Error(t, l.Wait(context.Background(), 4))
}
