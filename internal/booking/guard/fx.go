package guard

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/slotwise/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("booking.guard",
	fx.Provide(NewLocker),
)

// NewLocker uses Redis when REDIS_ADDR is set so cancellations serialize
// across instances, and an in-process keyed mutex otherwise.
func NewLocker(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Locker {
	log = log.Named("booking.guard")
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		log.Info("using in-process booking lock")
		return NewInProcess()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	log.Info("using redis booking lock", zap.String("addr", addr))
	return NewRedis(client, 0, log)
}
