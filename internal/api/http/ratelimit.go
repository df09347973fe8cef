package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/release-queue/pkg/util/errorutil"
)

const rateLimitWindow = time.Minute

// RateLimiter throttles clients by IP with a fixed one minute window kept in
// Redis.
type RateLimiter struct {
	redis     *redis.Client
	perMinute int64
	logger    *zap.Logger
}

// NewRateLimiter returns a limiter. A nil client or non-positive limit
// disables throttling.
func NewRateLimiter(client *redis.Client, perMinute int, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{redis: client, perMinute: int64(perMinute), logger: logger}
}

// Handle rejects requests beyond the limit with 429. Redis failures let the
// request through.
func (r *RateLimiter) Handle(c *fiber.Ctx) error {
	if r == nil || r.redis == nil || r.perMinute <= 0 {
		return c.Next()
	}
	key := fmt.Sprintf("ratelimit:%s", c.IP())
	ctx := c.UserContext()

	// EXPIRE NX rides with every INCR so a key never outlives a lost TTL.
	var incr *redis.IntCmd
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, rateLimitWindow)
		return nil
	})
	if err != nil {
		r.logger.Warn("rate limiter unavailable", zap.Error(err))
		return c.Next()
	}
	count := incr.Val()
	if count > r.perMinute {
		c.Set(fiber.HeaderRetryAfter, "60")
		return apperrors.NewTooManyRequests("Too many requests")
	}
	return c.Next()
}
