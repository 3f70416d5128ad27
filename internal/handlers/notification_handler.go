package handlers

import (
	"rentbook/internal/models"
	"rentbook/internal/services"
	"rentbook/pkg/pagination"
	"rentbook/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	service *services.NotificationService
	rules   *services.NotificationRules
}

func NewNotificationHandler(service *services.NotificationService, rules *services.NotificationRules) *NotificationHandler {
	return &NotificationHandler{service: service, rules: rules}
}

// NotificationUpdateRequest 仅允许修改已读状态
type NotificationUpdateRequest struct {
	IsRead *bool `json:"is_read" binding:"required"`
}

// SweepRequest 手工触发通知规则，date 缺省为今天
type SweepRequest struct {
	Date *string `json:"date"`
}

// List 当前用户的通知
func (h *NotificationHandler) List(c *gin.Context) {
	isRead, err := queryBool(c, "is_read")
	if err != nil {
		bindFailed(c, err)
		return
	}
	page := pagination.ParsePageParams(c)

	items, total, err := h.service.List(currentUser(c).ID, services.NotificationFilter{
		IsRead:           isRead,
		NotificationType: c.Query("notification_type"),
	}, page)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithPage(c, items, pagination.NewPageInfo(page.Page, page.PageSize, total))
}

// Get 通知详情
func (h *NotificationHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	n, err := h.service.Get(currentUser(c).ID, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, n)
}

// Update 修改已读状态
func (h *NotificationHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req NotificationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	n, err := h.service.SetRead(currentUser(c).ID, id, *req.IsRead)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, n)
}

// Delete 删除通知
func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(currentUser(c).ID, id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

// MarkAsRead 标记单条已读
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	n, err := h.service.MarkAsRead(currentUser(c).ID, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, n)
}

// MarkAllAsRead 全部标记已读
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	updated, err := h.service.MarkAllAsRead(currentUser(c).ID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"updated": updated})
}

// UnreadCount 未读数量
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.service.UnreadCount(currentUser(c).ID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"unread_count": count})
}

// Sweep 立即执行通知规则（管理员）
func (h *NotificationHandler) Sweep(c *gin.Context) {
	var req SweepRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindFailed(c, err)
			return
		}
	}

	today := services.Today()
	if req.Date != nil {
		d, err := parseDateField("date", req.Date)
		if err != nil {
			bindFailed(c, err)
			return
		}
		today = models.DateOf(*d)
	}

	report, err := h.rules.Sweep(c.Request.Context(), today)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, report)
}
