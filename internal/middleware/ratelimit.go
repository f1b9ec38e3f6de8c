package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/linucb-fashion/internal/metrics"
	"github.com/temcen/linucb-fashion/internal/ratelimit"
	"github.com/temcen/linucb-fashion/pkg/models"
)

// RateLimit enforces the per-source-IP, per-endpoint-class sliding
// windows. On rejection it responds 429 with Retry-After and the
// X-RateLimit-* headers, echoing the same numbers in the JSON body.
func RateLimit(limiter *ratelimit.Limiter, collector *metrics.Collector, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		class := ratelimit.ClassOf(c.Request.URL.Path)
		decision := limiter.Allow(c.ClientIP(), class, time.Now())

		if decision.Limit >= 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			c.Header("X-RateLimit-Reset", decision.ResetAt.UTC().Format(time.RFC3339))
		}

		if decision.Allowed {
			c.Next()
			return
		}

		retryAfter := int(decision.RetryAfter.Seconds() + 0.5)
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))

		if collector != nil {
			collector.IncRateLimitRejection(string(class))
		}
		logger.WithFields(logrus.Fields{
			"client_ip": c.ClientIP(),
			"class":     class,
			"path":      c.Request.URL.Path,
		}).Warn("rate limit exceeded")

		c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
			Success:           false,
			Error:             "rate_limited",
			Message:           "rate limit exceeded for class " + string(class),
			RetryAfterSeconds: &retryAfter,
			Details: gin.H{
				"limit":     decision.Limit,
				"remaining": 0,
				"reset_at":  decision.ResetAt.UTC().Format(time.RFC3339),
			},
		})
	}
}
