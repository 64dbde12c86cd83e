package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterPerKeyBudget(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter().WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < LoginRule.Limit; i++ {
		ok, err := limiter.Allow(ctx, LoginRule, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}

	ok, _ := limiter.Allow(ctx, LoginRule, "10.0.0.1")
	assert.False(t, ok)

	ok, _ = limiter.Allow(ctx, LoginRule, "10.0.0.2")
	assert.True(t, ok, "other addresses keep their own budget")

	ok, _ = limiter.Allow(ctx, PanicRule, "10.0.0.1")
	assert.True(t, ok, "rules are independent")

	now = now.Add(LoginRule.Window - time.Second)
	ok, _ = limiter.Allow(ctx, LoginRule, "10.0.0.1")
	assert.False(t, ok, "no refill inside the window")

	now = now.Add(time.Second)
	ok, _ = limiter.Allow(ctx, LoginRule, "10.0.0.1")
	assert.True(t, ok, "budget resets with the next window")
}

func TestMemoryLimiterRegisterBudgetPerHour(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter().WithClock(func() time.Time { return now })
	ctx := context.Background()

	allowed := 0
	for i := 0; i < 6; i++ {
		now = now.Add(9 * time.Minute)
		if ok, _ := limiter.Allow(ctx, RegisterRule, "10.0.0.1"); ok {
			allowed++
		}
	}
	assert.Equal(t, RegisterRule.Limit, allowed)
}

func TestMemoryLimiterSweepKeepsLongerWindows(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter().WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < RegisterRule.Limit; i++ {
		ok, _ := limiter.Allow(ctx, RegisterRule, "10.0.0.1")
		require.True(t, ok)
	}

	now = now.Add(11 * time.Minute)
	ok, _ := limiter.Allow(ctx, LoginRule, "10.0.0.9")
	require.True(t, ok)

	for i := 0; i < RegisterRule.Limit; i++ {
		ok, _ := limiter.Allow(ctx, RegisterRule, "10.0.0.1")
		assert.False(t, ok, "register budget survives a sweep triggered by another rule")
	}

	now = now.Add(time.Hour)
	ok, _ = limiter.Allow(ctx, RegisterRule, "10.0.0.1")
	assert.True(t, ok)
}

func TestMemoryLimiterSweepsIdleKeys(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter().WithClock(func() time.Time { return now })
	ctx := context.Background()

	_, _ = limiter.Allow(ctx, LoginRule, "a")
	_, _ = limiter.Allow(ctx, LoginRule, "b")
	assert.Equal(t, 2, limiter.size())

	now = now.Add(time.Hour)
	_, _ = limiter.Allow(ctx, LoginRule, "c")
	assert.Equal(t, 1, limiter.size())
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewRedisLimiter(client)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	rule := Rule{Name: "login", Limit: 2, Window: time.Minute}
	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, rule, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, rule, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(time.Minute)
	ok, err = limiter.Allow(ctx, rule, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiterReportsBackendErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	mr.SetError("READONLY")
	_, err := NewRedisLimiter(client).Allow(context.Background(), LoginRule, "k")
	assert.Error(t, err)
}

func TestUnlimited(t *testing.T) {
	for i := 0; i < 100; i++ {
		ok, err := Unlimited{}.Allow(context.Background(), LoginRule, "k")
		require.NoError(t, err)
		require.True(t, ok)
	}
}
