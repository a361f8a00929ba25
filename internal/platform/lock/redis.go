// Package lock provides the advisory per-job lock that can guard alert
// creation across service instances.
package lock

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "job-alert-service:lock:"

// releaseScript deletes the key only if it still holds our value.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, errors.Wrapf(err, "could not connect to Redis at %s", addr)
	}
	return rdb, nil
}

// RedisLocker hands out SET NX PX locks with a TTL so a crashed holder never
// blocks a job forever.
type RedisLocker struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.SugaredLogger
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration, log *zap.SugaredLogger) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl, log: log}
}

// Acquire tries once to take the lock for key. When acquired is false another
// holder owns it; release is then a no-op.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (release func(), acquired bool, err error) {
	lockKey := keyPrefix + key
	lockValue := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, lockKey, lockValue, l.ttl).Result()
	if err != nil {
		return noop, false, errors.Wrapf(err, "failed to attempt lock acquisition for %s", key)
	}
	if !ok {
		return noop, false, nil
	}

	release = func() {
		// The caller's context may already be done; releasing must still happen.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		deleted, err := releaseScript.Run(ctx, l.rdb, []string{lockKey}, lockValue).Int64()
		if err != nil {
			l.log.Errorw("Failed to release alert lock", "key", lockKey, "error", err)
		} else if deleted != 1 {
			l.log.Warnw("Alert lock expired or was taken over before release", "key", lockKey)
		}
	}
	return release, true, nil
}

// NoopLocker always grants the lock. It keeps the accepted-risk behaviour
// when no Redis is configured.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string) (func(), bool, error) {
	return noop, true, nil
}

func noop() {}
