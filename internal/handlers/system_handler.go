package handlers

import (
	"context"
	"net/http"
	"time"

	"rentbook/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SystemHandler 健康检查
type SystemHandler struct {
	db      *gorm.DB
	started time.Time
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(db *gorm.DB) *SystemHandler {
	return &SystemHandler{db: db, started: time.Now()}
}

// Health 数据库可用时返回 ok
func (h *SystemHandler) Health(c *gin.Context) {
	status := gin.H{
		"status":   "ok",
		"database": "ok",
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	}

	sqlDB, err := h.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, response.Response{
			Code:    http.StatusServiceUnavailable,
			Message: "database unavailable",
			Data:    status,
		})
		return
	}
	response.Success(c, status)
}
