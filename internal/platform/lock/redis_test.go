package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testJob = "http://example.org/jobs/1"

func newTestLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := ConnectRedis(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })
	return NewRedisLocker(rdb, time.Minute, zap.NewNop().Sugar()), mr
}

func TestNoopLocker_AlwaysGrants(t *testing.T) {
	release, acquired, err := NoopLocker{}.Acquire(context.Background(), "http://example.org/jobs/1")
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.NotPanics(t, release)
}

func TestConnectRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := ConnectRedis(ctx, "127.0.0.1:1", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not connect to Redis at 127.0.0.1:1")
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	release, acquired, err := locker.Acquire(ctx, testJob)
	require.NoError(t, err)
	require.True(t, acquired)
	assert.True(t, mr.Exists(keyPrefix+testJob))
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+testJob))

	_, again, err := locker.Acquire(ctx, testJob)
	require.NoError(t, err)
	assert.False(t, again)

	release()
	assert.False(t, mr.Exists(keyPrefix+testJob))

	_, reacquired, err := locker.Acquire(ctx, testJob)
	require.NoError(t, err)
	assert.True(t, reacquired)
}

func TestRedisLocker_ReleaseLeavesNewHolderAlone(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	release, acquired, err := locker.Acquire(ctx, testJob)
	require.NoError(t, err)
	require.True(t, acquired)

	mr.FastForward(2 * time.Minute)
	_, taken, err := locker.Acquire(ctx, testJob)
	require.NoError(t, err)
	require.True(t, taken)
	holder, err := mr.Get(keyPrefix + testJob)
	require.NoError(t, err)

	release()
	current, err := mr.Get(keyPrefix + testJob)
	require.NoError(t, err)
	assert.Equal(t, holder, current)
}

func TestRedisLocker_StoreErrorIsReturned(t *testing.T) {
	locker, mr := newTestLocker(t)
	mr.Close()

	release, acquired, err := locker.Acquire(context.Background(), testJob)
	require.Error(t, err)
	assert.False(t, acquired)
	assert.NotPanics(t, release)
}
