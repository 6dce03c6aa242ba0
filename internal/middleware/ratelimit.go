package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/manicinc/synthstack-gateway/internal/ratelimit"
	"github.com/manicinc/synthstack-gateway/internal/tier"
)

// RateLimitClass returns a pre-handler enforcing the tier's request cap for
// one limit class. It runs before any cost calculation: denial is the fast
// path. Every response carries X-RateLimit-* headers so clients can track
// their remaining budget.
func RateLimitClass(limiter *ratelimit.TieredLimiter, class tier.LimitClass) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := TierFromContext(c)
		identifier := IdentifierFromContext(c)

		result, err := limiter.CheckAndIncrement(c.Request.Context(), identifier, class, t)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "RATE_LIMIT_UNAVAILABLE",
					"message": "Rate limit check failed",
				},
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetAt.Unix()))
		c.Header("X-RateLimit-Policy", fmt.Sprintf("%d;w=%d", result.Limit, int(limiter.Window().Seconds())))

		if !result.Allowed {
			retryAfter := int(time.Until(result.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":       "RATE_LIMIT_EXCEEDED",
					"message":    fmt.Sprintf("Too many %s requests for the %s tier. Try again in %d seconds.", class, t, retryAfter),
					"retryAfter": retryAfter,
					"limit":      result.Limit,
					"type":       string(class),
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// TierFromContext resolves the request's subscription tier, set earlier in
// the chain by the API key validator or the JWT auth middleware. Requests
// with no resolved tier price and limit as free.
func TierFromContext(c *gin.Context) tier.Tier {
	if v, ok := c.Get("tier"); ok {
		if t, ok := v.(tier.Tier); ok {
			return t
		}
		if s, ok := v.(string); ok {
			return tier.Parse(s)
		}
	}
	return tier.Free
}

// IdentifierFromContext picks the rate-limit key: the authenticated user,
// then the API key, then the client IP.
func IdentifierFromContext(c *gin.Context) string {
	if id := c.GetString("user_id"); id != "" {
		return "user:" + id
	}
	if id := c.GetString("api_key_id"); id != "" {
		return "key:" + id
	}
	return "ip:" + c.ClientIP()
}
