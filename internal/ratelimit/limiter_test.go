package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledLimiterAllows(t *testing.T) {
	var l *Limiter
	res, err := l.AllowOTP(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	called := false
	err = (&Limiter{}).WithOrderLock(context.Background(), "order_1", func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestWithOrderLockPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := (&Limiter{}).WithOrderLock(context.Background(), "order_1", func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestOrderLockRequiresClient(t *testing.T) {
	assert.Nil(t, newOrderLock(nil, time.Second))
	_, err := (*orderLock)(nil).acquire(context.Background(), "order_1")
	assert.ErrorIs(t, err, errOrderLockUnavailable)

	// An enabled limiter without a lock backend must not run fn unguarded.
	called := false
	err = (&Limiter{enabled: true}).WithOrderLock(context.Background(), "order_1", func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, errOrderLockUnavailable)
	assert.False(t, called)
}

func TestOrderLockKey(t *testing.T) {
	key, err := orderLockKey(" order_Nx12 ")
	require.NoError(t, err)
	assert.Equal(t, "payment:verify:lock:order_Nx12", key)

	_, err = orderLockKey("  ")
	assert.Error(t, err)
}

func TestTokenBucketRequiresClient(t *testing.T) {
	assert.Nil(t, NewTokenBucket(nil))
	res, err := (*TokenBucket)(nil).Allow(context.Background(), "k", 1, 1)
	assert.Error(t, err)
	assert.False(t, res.Allowed)
}

func TestRetryAfter(t *testing.T) {
	assert.Zero(t, retryAfter(true, 0, 1))
	assert.Equal(t, 2*time.Second, retryAfter(false, 0, 0.5))
	assert.Equal(t, 500*time.Millisecond, retryAfter(false, 0.5, 1))
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, time.Second, defaultBucketTTL(0, 1))
	// Three sends per minute with a burst of three refill in a minute.
	assert.Equal(t, 120*time.Second, defaultBucketTTL(0.05, 3))
}

func TestCasts(t *testing.T) {
	assert.Equal(t, int64(3), castToInt(int64(3)))
	assert.Equal(t, int64(2), castToInt(2.9))
	assert.Equal(t, 1.5, castToFloat("1.5"))
	assert.Zero(t, castToFloat("x"))
	assert.Zero(t, castToInt(nil))
}
