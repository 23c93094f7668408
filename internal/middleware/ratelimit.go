package middleware

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"shopassist/internal/utils"
)

// RateLimiterConfig describes one fixed-window Redis rate limit.
type RateLimiterConfig struct {
	Redis        *redis.Client
	Max          int
	Window       time.Duration
	KeyPrefix    string
	Message      string
	StatusCode   int
	KeyGenerator func(c *fiber.Ctx) string
}

// RateLimiter enforces a fixed-window counter in Redis. Redis being down
// fails open: a chat widget should degrade, not lock everyone out.
func RateLimiter(cfg RateLimiterConfig) fiber.Handler {
	if cfg.StatusCode == 0 {
		cfg.StatusCode = fiber.StatusTooManyRequests
	}
	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = func(c *fiber.Ctx) string { return c.IP() }
	}

	return func(c *fiber.Ctx) error {
		key := cfg.KeyPrefix + cfg.KeyGenerator(c)
		ctx := c.UserContext()

		count, err := cfg.Redis.Incr(ctx, key).Result()
		if err != nil {
			utils.LogWarn(ctx, "rate limiter unavailable, allowing request",
				slog.String("key_prefix", cfg.KeyPrefix),
				slog.Any("error", err),
			)
			return c.Next()
		}
		if count == 1 {
			cfg.Redis.Expire(ctx, key, cfg.Window)
		}
		if count > int64(cfg.Max) {
			ttl, _ := cfg.Redis.TTL(ctx, key).Result()
			c.Set("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			return c.Status(cfg.StatusCode).JSON(fiber.Map{
				"error":   "rate_limit_exceeded",
				"message": cfg.Message,
			})
		}
		return c.Next()
	}
}

// AdminRateLimiter guards the admin console endpoints per client IP.
func AdminRateLimiter(rdb *redis.Client, max int, window time.Duration) fiber.Handler {
	return RateLimiter(RateLimiterConfig{
		Redis:     rdb,
		Max:       max,
		Window:    window,
		KeyPrefix: "admin_limit:",
		Message:   "Too many admin requests, please slow down",
	})
}

// WebSocketRateLimiter caps new WebSocket upgrades per IP per minute.
func WebSocketRateLimiter(rdb *redis.Client, maxPerMinute int) fiber.Handler {
	return RateLimiter(RateLimiterConfig{
		Redis:     rdb,
		Max:       maxPerMinute,
		Window:    time.Minute,
		KeyPrefix: "ws_limit:",
		Message:   "Too many connection attempts, please try again later",
	})
}
