package guard

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	defaultRedisLockTTL = 30 * time.Second
	redisRetryMin       = 10 * time.Millisecond
	redisRetryMax       = 250 * time.Millisecond
)

// Redis is a SETNX token lock shared by every process pointing at the same
// Redis. The TTL bounds how long a crashed holder blocks the key.
type Redis struct {
	client *redis.Client
	script *redis.Script
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, log *zap.Logger) *Redis {
	if ttl <= 0 {
		ttl = defaultRedisLockTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		ttl:    ttl,
		log:    log,
	}
}

func (l *Redis) TryLock(ctx context.Context, key string) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *Redis) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil || key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

// Lock retries TryLock with capped exponential backoff until ctx ends.
func (l *Redis) Lock(ctx context.Context, key string) (func(), error) {
	wait := redisRetryMin
	for {
		token, ok, err := l.TryLock(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// The caller's ctx may already be done; release on a fresh one.
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := l.Release(releaseCtx, key, token); err != nil {
					l.log.Warn("release booking lock failed", zap.String("key", key), zap.Error(err))
				}
			}, nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.Join(ErrLockUnavailable, ctx.Err())
		case <-timer.C:
		}
		wait *= 2
		if wait > redisRetryMax {
			wait = redisRetryMax
		}
	}
}
