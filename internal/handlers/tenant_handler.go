package handlers

import (
	"rentbook/internal/services"
	"rentbook/pkg/pagination"
	"rentbook/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type TenantHandler struct {
	service *services.TenantService
}

func NewTenantHandler(service *services.TenantService) *TenantHandler {
	return &TenantHandler{service: service}
}

// TenantRequest 创建/更新租客请求
type TenantRequest struct {
	ApartmentID   *uint            `json:"apartment_id"`
	FullName      *string          `json:"full_name" binding:"omitempty,max=150"`
	Phone         *string          `json:"phone" binding:"omitempty,max=20"`
	Email         *string          `json:"email" binding:"omitempty,max=254"`
	ContractStart *string          `json:"contract_start"`
	ContractEnd   NullableString   `json:"contract_end"`
	MonthlyRent   *decimal.Decimal `json:"monthly_rent"`
	PaymentDueDay *int             `json:"payment_due_day"`
	Deposit       *decimal.Decimal `json:"deposit"`
	Notes         *string          `json:"notes"`
}

func (r *TenantRequest) input() (services.TenantInput, error) {
	in := services.TenantInput{
		ApartmentID:   r.ApartmentID,
		FullName:      r.FullName,
		Phone:         r.Phone,
		Email:         r.Email,
		MonthlyRent:   r.MonthlyRent,
		PaymentDueDay: r.PaymentDueDay,
		Deposit:       r.Deposit,
		Notes:         r.Notes,
	}

	start, err := parseDateField("contract_start", r.ContractStart)
	if err != nil {
		return in, err
	}
	in.ContractStart = start

	if r.ContractEnd.Set {
		if r.ContractEnd.Value == nil || *r.ContractEnd.Value == "" {
			in.ClearContractEnd = true
		} else {
			end, err := parseDateField("contract_end", r.ContractEnd.Value)
			if err != nil {
				return in, err
			}
			in.ContractEnd = end
		}
	}
	return in, nil
}

// List 租客列表，支持 apartment_id 与 current 过滤
func (h *TenantHandler) List(c *gin.Context) {
	apartmentID, err := queryUint(c, "apartment_id")
	if err != nil {
		bindFailed(c, err)
		return
	}
	current, err := queryBool(c, "current")
	if err != nil {
		bindFailed(c, err)
		return
	}
	page := pagination.ParsePageParams(c)

	tenants, total, err := h.service.List(currentScope(c), services.TenantFilter{
		ApartmentID: apartmentID,
		Current:     current,
	}, page)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithPage(c, toTenantResponses(tenants), pagination.NewPageInfo(page.Page, page.PageSize, total))
}

// Get 租客详情
func (h *TenantHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	tenant, err := h.service.Get(currentScope(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, toTenantResponse(tenant))
}

// Create 创建租客并生成租约期内的月租账单
func (h *TenantHandler) Create(c *gin.Context) {
	in, ok := h.bind(c)
	if !ok {
		return
	}
	result, err := h.service.Create(currentScope(c), in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, tenantResult(result))
}

// Update 更新租客并补齐账单
func (h *TenantHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	in, ok := h.bind(c)
	if !ok {
		return
	}
	result, err := h.service.Update(currentScope(c), id, in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, tenantResult(result))
}

// Delete 删除租客及其账单、文档
func (h *TenantHandler) Delete(c *gin.Context) {
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

func (h *TenantHandler) bind(c *gin.Context) (services.TenantInput, bool) {
	var req TenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return services.TenantInput{}, false
	}
	in, err := req.input()
	if err != nil {
		bindFailed(c, err)
		return in, false
	}
	return in, true
}

func tenantResult(result *services.TenantResult) TenantResponse {
	resp := toTenantResponse(result.Tenant)
	created := result.PaymentsCreated
	resp.PaymentsCreated = &created
	return resp
}
