package submitlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Locker) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, New(rdb, 45*time.Second)
}

func TestAcquire_Exclusive(t *testing.T) {
	_, l := setupTestRedis(t)
	ctx := context.Background()

	held, err := l.Held(ctx, "form-1")
	require.NoError(t, err)
	assert.False(t, held)

	lk, err := l.Acquire(ctx, "form-1")
	require.NoError(t, err)

	held, err = l.Held(ctx, "form-1")
	require.NoError(t, err)
	assert.True(t, held)

	_, err = l.Acquire(ctx, "form-1")
	assert.ErrorIs(t, err, ErrHeld)

	other, err := l.Acquire(ctx, "form-2")
	require.NoError(t, err)
	_, _ = other.Release(ctx)

	ok, err := lk.Release(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	again, err := l.Acquire(ctx, "form-1")
	require.NoError(t, err)
	_, _ = again.Release(ctx)
}

func TestAcquire_SetsTTL(t *testing.T) {
	mr, l := setupTestRedis(t)
	_, err := l.Acquire(context.Background(), "form-1")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, mr.TTL(keyPrefix+"form-1"))
}

func TestRelease_AfterExpiryDoesNotFreeNewHolder(t *testing.T) {
	mr, l := setupTestRedis(t)
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "form-1")
	require.NoError(t, err)

	mr.FastForward(time.Minute)

	fresh, err := l.Acquire(ctx, "form-1")
	require.NoError(t, err)

	ok, err := stale.Release(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = l.Acquire(ctx, "form-1")
	assert.ErrorIs(t, err, ErrHeld)

	ok, err = fresh.Release(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}
