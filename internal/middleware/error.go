package middleware

import (
	"rentbook/pkg/logger"
	"rentbook/pkg/response"

	"github.com/gin-gonic/gin"
)

// ErrorHandler 错误处理中间件 - 主要处理panic
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				appLogger := logger.GetLogger()
				appLogger.WithField("path", c.Request.URL.Path).Errorf("Panic recovered: %v", err)
				response.ServerError(c, "internal server error")
				c.Abort()
			}
		}()

		c.Next()
	}
}
