package handlers

import (
	"rentbook/internal/services"
	"rentbook/pkg/pagination"
	"rentbook/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ApartmentHandler struct {
	service *services.ApartmentService
}

func NewApartmentHandler(service *services.ApartmentService) *ApartmentHandler {
	return &ApartmentHandler{service: service}
}

// ApartmentRequest 创建/更新房源请求，未提供的字段保持不变
type ApartmentRequest struct {
	OwnerID      *uint            `json:"owner_id"`
	Title        *string          `json:"title" binding:"omitempty,max=150"`
	Address      *string          `json:"address" binding:"omitempty,max=255"`
	SquareMeters *int             `json:"square_meters" binding:"omitempty,gte=0"`
	PropertyType *string          `json:"property_type"`
	Status       *string          `json:"status"`
	Floor        *int             `json:"floor"`
	YearBuilt    *int             `json:"year_built"`
	Notes        *string          `json:"notes"`
	Area         *string          `json:"area" binding:"omitempty,max=120"`
	City         *string          `json:"city" binding:"omitempty,max=120"`
	Region       *string          `json:"region" binding:"omitempty,max=120"`
	Lat          *decimal.Decimal `json:"lat"`
	Lng          *decimal.Decimal `json:"lng"`
}

func (r *ApartmentRequest) input() services.ApartmentInput {
	return services.ApartmentInput{
		OwnerID:      r.OwnerID,
		Title:        r.Title,
		Address:      r.Address,
		SquareMeters: r.SquareMeters,
		PropertyType: r.PropertyType,
		Status:       r.Status,
		Floor:        r.Floor,
		YearBuilt:    r.YearBuilt,
		Notes:        r.Notes,
		Area:         r.Area,
		City:         r.City,
		Region:       r.Region,
		Lat:          r.Lat,
		Lng:          r.Lng,
	}
}

// List 房源列表
func (h *ApartmentHandler) List(c *gin.Context) {
	filter := services.ApartmentFilter{
		Status: c.Query("status"),
		City:   c.Query("city"),
		Search: c.Query("search"),
	}
	page := pagination.ParsePageParams(c)

	apartments, total, err := h.service.List(currentScope(c), filter, page)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithPage(c, apartments, pagination.NewPageInfo(page.Page, page.PageSize, total))
}

// Get 房源详情
func (h *ApartmentHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	apartment, err := h.service.Get(currentScope(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, apartment)
}

// Create 创建房源
func (h *ApartmentHandler) Create(c *gin.Context) {
	var req ApartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	apartment, err := h.service.Create(currentActor(c), req.input())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, apartment)
}

// Update 更新房源（PUT/PATCH）
func (h *ApartmentHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ApartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	apartment, err := h.service.Update(currentActor(c), id, req.input())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, apartment)
}

// Delete 删除房源，级联删除租客、账单与文档
func (h *ApartmentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(currentScope(c), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}
