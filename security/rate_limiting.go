package security

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis *redis.Client
	store *redisStore
}

// NewRateLimiter allows perMinute requests per client in each one minute
// window.
func NewRateLimiter(redisClient *redis.Client, perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &RateLimiter{
		redis: redisClient,
		store: &redisStore{
			redis:  redisClient,
			limit:  int64(perMinute),
			window: time.Minute,
			now:    time.Now,
		},
	}
}

// PaymentRateLimit throttles the payment functions per client IP.
func (r *RateLimiter) PaymentRateLimit() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: r.store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return "ip:" + c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{
				"error": "Unable to identify client",
			})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
		},
	})
}

// Anti-bot protection
func (r *RateLimiter) AntiBotMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if r.isSuspiciousUserAgent(c.Request().Header.Get("User-Agent")) {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "Access denied",
				})
			}
			return next(c)
		}
	}
}

func (r *RateLimiter) isSuspiciousUserAgent(ua string) bool {
	if strings.TrimSpace(ua) == "" {
		return true
	}
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}

// redisStore counts requests per identifier in fixed windows. Redis being
// down lets requests through; payments must not fail because the limiter
// cannot count.
type redisStore struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
}

func (s *redisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	bucket := s.now().Unix() / int64(s.window/time.Second)
	key := fmt.Sprintf("ratelimit:%s:%d", identifier, bucket)

	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		slog.Error("s.redis.Incr()", "key", key, "error", err)
		return true, nil
	}
	if count == 1 {
		if err := s.redis.Expire(ctx, key, s.window).Err(); err != nil {
			slog.Error("s.redis.Expire()", "key", key, "error", err)
		}
	}

	return count <= s.limit, nil
}
