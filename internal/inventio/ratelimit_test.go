package inventio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenBucket_Disabled(t *testing.T) {
	tb := NewTokenBucket(0, 5)
	assert.Nil(t, tb)
	assert.NoError(t, tb.Wait(context.Background()))
}

func TestTokenBucket_Burst(t *testing.T) {
	now := time.Unix(0, 0)
	tb := NewTokenBucket(2, 3)
	tb.now = func() time.Time { return now }
	tb.lastRefill = now

	for i := 0; i < 3; i++ {
		assert.Zero(t, tb.reserve(), "request %d", i)
	}
	assert.Equal(t, 500*time.Millisecond, tb.reserve())

	now = now.Add(500 * time.Millisecond)
	assert.Zero(t, tb.reserve())
}

func TestTokenBucket_WaitHonoursContext(t *testing.T) {
	tb := NewTokenBucket(0.001, 1)
	require.NoError(t, tb.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tb.Wait(ctx), context.DeadlineExceeded)
}
