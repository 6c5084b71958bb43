package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pzklab/dietetics-api/internal/config"
	"github.com/pzklab/dietetics-api/internal/ratelimit"
)

// RateLimit returns a middleware that takes one token from the injected
// limiter per request.  The limiter backing (in-memory or Redis) is the
// caller's choice; this middleware only consumes the Limiter interface.
// Limiter errors fail open: throttling is an abuse guard, not a
// security boundary, and a broken counter store must not take the API
// down with it.
func RateLimit(cfg config.RateLimitConfig, limiter ratelimit.Limiter) echo.MiddlewareFunc {
	if !cfg.Enabled || limiter == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)

			dec, err := limiter.Take(c.Request().Context(), key)
			if err != nil {
				if cfg.Debug {
					c.Logger().Warnf("[ratelimit] limiter error for key=%s: %v", key, err)
				}
				return next(c)
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(dec.Remaining, 10))

			if !dec.Allowed {
				secs := int(math.Ceil(dec.RetryAfter.Seconds()))
				if secs < 0 {
					secs = 0
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				if cfg.Debug {
					c.Logger().Infof("[ratelimit] block key=%s remaining=%d retry=%ds", key, dec.Remaining, secs)
				}
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"data": nil,
					"error": echo.Map{
						"code":        "rate_limited",
						"message":     "rate limit exceeded",
						"retry_after": secs,
					},
				})
			}

			if cfg.Debug {
				c.Response().Header().Set("X-RateLimit-Key", key)
			}
			return next(c)
		}
	}
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix}
	strategy := strings.ToLower(cfg.KeyStrategy)
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := currentUserID(c)
	route := c.Request().Method + " " + c.Path()

	switch strategy {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", uid)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", uid)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "user_route":
		parts = append(parts, "user", uid, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	}
	return strings.Join(parts, ":")
}

func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	}
	return "anon"
}
