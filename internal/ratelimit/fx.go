package ratelimit

import (
	"github.com/redis/go-redis/v9"
	"github.com/wellspringhq/foundation/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("ratelimit",
	fx.Provide(provideRedis),
	fx.Provide(NewLocker),
)

func provideRedis(cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	log.Info("redis lock enabled", zap.String("addr", cfg.RedisAddr))
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}
