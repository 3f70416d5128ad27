package handlers

import (
	"rentbook/internal/services"
	"rentbook/pkg/pagination"
	"rentbook/pkg/response"

	"github.com/gin-gonic/gin"
)

type TenantHistoryHandler struct {
	service *services.TenantHistoryService
}

func NewTenantHistoryHandler(service *services.TenantHistoryService) *TenantHistoryHandler {
	return &TenantHistoryHandler{service: service}
}

// List 租客及账单
func (h *TenantHistoryHandler) List(c *gin.Context) {
	page := pagination.ParsePageParams(c)
	tenants, total, err := h.service.List(currentScope(c), page)
	if err != nil {
		response.FromError(c, err)
		return
	}
	today := services.Today()
	out := make([]TenantHistoryResponse, 0, len(tenants))
	for i := range tenants {
		out = append(out, toTenantHistoryResponse(&tenants[i], today))
	}
	response.SuccessWithPage(c, out, pagination.NewPageInfo(page.Page, page.PageSize, total))
}

// Get 单个租客及其账单
func (h *TenantHistoryHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	tenant, err := h.service.Get(currentScope(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, toTenantHistoryResponse(tenant, services.Today()))
}

// Summary 汇总统计
func (h *TenantHistoryHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(currentScope(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, toSummaryResponse(summary))
}
