package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/dohanimedicare/medicare-platform/internal/config"
	httpmiddleware "github.com/dohanimedicare/medicare-platform/internal/http/middleware"
	"github.com/dohanimedicare/medicare-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildRateLimiter picks the shared Redis window when Redis is reachable and
// the in-process token bucket otherwise. The returned loop must be run for the
// in-process limiter to evict idle visitors; it is a no-op for Redis.
func BuildRateLimiter(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) (httpmiddleware.Limiter, func(context.Context)) {
	if logger == nil {
		logger = logging.Default()
	}
	rps, burst := 2.0, 10
	if cfg != nil {
		if cfg.RateLimitRPS > 0 {
			rps = cfg.RateLimitRPS
		}
		if cfg.RateLimitBurst > 0 {
			burst = cfg.RateLimitBurst
		}
	}

	if redisClient != nil {
		perMinute := int(rps * 60)
		if perMinute < burst {
			perMinute = burst
		}
		logger.Info("rate limiter: redis fixed window", "limit_per_minute", perMinute)
		return httpmiddleware.NewRedisRateLimiter(redisClient, perMinute, time.Minute), func(context.Context) {}
	}

	logger.Info("rate limiter: in-process token bucket", "rps", rps, "burst", burst)
	limiter := httpmiddleware.NewIPRateLimiter(rps, burst)
	return limiter, limiter.Run
}
