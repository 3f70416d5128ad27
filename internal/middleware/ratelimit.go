package middleware

import (
	"rentbook/pkg/logger"
	"rentbook/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// NewLimiter 按 "20-M" 格式创建内存限流器
func NewLimiter(formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	return limiter.New(memory.NewStore(), rate), nil
}

// RateLimit 按客户端IP限流
func RateLimit(limiterInstance *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		context, err := limiterInstance.Get(c.Request.Context(), ip)
		if err != nil {
			logger.GetLogger().WithError(err).WithField("ip", ip).Error("Failed to get rate limit context")
			response.ServerError(c, "internal server error")
			c.Abort()
			return
		}

		if context.Reached {
			logger.GetLogger().WithFields(logrus.Fields{
				"ip":    ip,
				"limit": context.Limit,
			}).Warn("Rate limit exceeded")
			response.TooManyRequests(c, "too many requests, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
