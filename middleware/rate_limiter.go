package middleware

import (
	"github.com/aurora-shield/aurora-shield/ratelimit"
	"github.com/aurora-shield/aurora-shield/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit applies rule per client address. Backend errors let the request
// through.
func RateLimit(limiter ratelimit.Limiter, rule ratelimit.Rule, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := limiter.Allow(c.Request.Context(), rule, c.ClientIP())
		if err != nil {
			logger.Error("rate limiter unavailable", zap.String("rule", rule.Name), zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			logger.Warn("rate limit exceeded", zap.String("rule", rule.Name), zap.String("ip", c.ClientIP()))
			response.Fail(c, response.CodeTooManyRequests)
			return
		}
		c.Next()
	}
}
