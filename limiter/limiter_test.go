package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJitter_Range(t *testing.T) {
	j := NewJitter(10*time.Millisecond, 20*time.Millisecond)
	for i := 0; i < 100; i++ {
		d := j.next()
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.Less(t, d, 20*time.Millisecond)
	}

	fixed := NewJitter(5*time.Millisecond, time.Millisecond)
	assert.Equal(t, 5*time.Millisecond, fixed.next())
}

func TestJitter_Wait(t *testing.T) {
	j := NewJitter(5*time.Millisecond, 10*time.Millisecond)
	start := time.Now()
	require.NoError(t, j.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestJitter_Cancel(t *testing.T) {
	j := NewJitter(time.Hour, 2*time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := j.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestToken(t *testing.T) {
	unlimited := NewToken(0, 0)
	for i := 0; i < 10; i++ {
		require.NoError(t, unlimited.Wait(context.Background()))
	}

	slow := NewToken(0.001, 1)
	require.NoError(t, slow.Wait(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, slow.Wait(ctx))
}

type countLimiter struct {
	n   int
	err error
}

func (c *countLimiter) Wait(context.Context) error {
	c.n++
	return c.err
}

func TestChain(t *testing.T) {
	a, b := &countLimiter{}, &countLimiter{}
	require.NoError(t, Chain{a, nil, b}.Wait(context.Background()))
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)

	boom := errors.New("boom")
	failing := &countLimiter{err: boom}
	after := &countLimiter{}
	assert.ErrorIs(t, Chain{failing, after}.Wait(context.Background()), boom)
	assert.Equal(t, 0, after.n)
}

func TestNop(t *testing.T) {
	require.NoError(t, Nop().Wait(context.Background()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Nop().Wait(ctx), context.Canceled)
}
