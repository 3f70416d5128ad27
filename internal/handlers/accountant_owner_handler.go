package handlers

import (
	"rentbook/internal/services"
	"rentbook/pkg/pagination"
	"rentbook/pkg/response"

	"github.com/gin-gonic/gin"
)

type AccountantOwnerHandler struct {
	service *services.AccountantOwnerService
}

func NewAccountantOwnerHandler(service *services.AccountantOwnerService) *AccountantOwnerHandler {
	return &AccountantOwnerHandler{service: service}
}

// AccountantOwnerRequest 创建授权请求
type AccountantOwnerRequest struct {
	AccountantID uint `json:"accountant_id" binding:"required"`
	OwnerID      uint `json:"owner_id" binding:"required"`
}

type AccountantOwnerUpdateRequest struct {
	AccountantID *uint `json:"accountant_id"`
	OwnerID      *uint `json:"owner_id"`
}

// List 授权关系列表
func (h *AccountantOwnerHandler) List(c *gin.Context) {
	page := pagination.ParsePageParams(c)
	rows, total, err := h.service.List(currentUser(c), page)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, pagination.NewPageInfo(page.Page, page.PageSize, total))
}

// Get 授权关系详情
func (h *AccountantOwnerHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	row, err := h.service.Get(currentUser(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, row)
}

// Create 创建授权
func (h *AccountantOwnerHandler) Create(c *gin.Context) {
	var req AccountantOwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	row, err := h.service.Create(currentUser(c), req.AccountantID, req.OwnerID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, row)
}

// Update 修改授权（PUT 与 PATCH）
func (h *AccountantOwnerHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req AccountantOwnerUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	row, err := h.service.Update(currentUser(c), id, req.AccountantID, req.OwnerID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, row)
}

// Delete 撤销授权
func (h *AccountantOwnerHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(currentUser(c), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}
