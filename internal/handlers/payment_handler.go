package handlers

import (
	"rentbook/internal/services"
	"rentbook/pkg/pagination"
	"rentbook/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	service *services.PaymentService
}

func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// PaymentRequest 创建/更新账单请求，paid 只能通过 mark_paid/mark_unpaid 修改
type PaymentRequest struct {
	TenantID      *uint            `json:"tenant_id"`
	Month         *int             `json:"month" binding:"omitempty,gte=1,lte=12"`
	Year          *int             `json:"year" binding:"omitempty,gte=1900,lte=9999"`
	Amount        *decimal.Decimal `json:"amount"`
	DueDate       *string          `json:"due_date"`
	PaymentMethod *string          `json:"payment_method"`
	ReceiptNumber *string          `json:"receipt_number" binding:"omitempty,max=100"`
	Notes         *string          `json:"notes"`
}

// MarkPaidRequest 标记已付请求，所有字段可选
type MarkPaidRequest struct {
	PaymentMethod *string `json:"payment_method" form:"payment_method"`
	ReceiptNumber *string `json:"receipt_number" form:"receipt_number" binding:"omitempty,max=100"`
	Notes         *string `json:"notes" form:"notes"`
}

func (r *PaymentRequest) input() (services.PaymentInput, error) {
	due, err := parseDateField("due_date", r.DueDate)
	if err != nil {
		return services.PaymentInput{}, err
	}
	return services.PaymentInput{
		TenantID:      r.TenantID,
		Month:         r.Month,
		Year:          r.Year,
		Amount:        r.Amount,
		DueDate:       due,
		PaymentMethod: r.PaymentMethod,
		ReceiptNumber: r.ReceiptNumber,
		Notes:         r.Notes,
	}, nil
}

// List 账单列表
func (h *PaymentHandler) List(c *gin.Context) {
	var filter services.PaymentFilter
	var err error
	if filter.TenantID, err = queryUint(c, "tenant_id"); err != nil {
		bindFailed(c, err)
		return
	}
	if filter.Paid, err = queryBool(c, "paid"); err != nil {
		bindFailed(c, err)
		return
	}
	if filter.Year, err = queryInt(c, "year"); err != nil {
		bindFailed(c, err)
		return
	}
	if filter.Month, err = queryInt(c, "month"); err != nil {
		bindFailed(c, err)
		return
	}
	overdue, err := queryBool(c, "overdue")
	if err != nil {
		bindFailed(c, err)
		return
	}
	filter.Overdue = overdue != nil && *overdue
	page := pagination.ParsePageParams(c)

	payments, total, err := h.service.List(currentScope(c), filter, page)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithPage(c, toPaymentResponses(payments, services.Today()), pagination.NewPageInfo(page.Page, page.PageSize, total))
}

// Get 账单详情
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	payment, err := h.service.Get(currentScope(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, toPaymentResponse(payment, services.Today()))
}

// Create 手工创建账单
func (h *PaymentHandler) Create(c *gin.Context) {
	in, ok := h.bind(c)
	if !ok {
		return
	}
	payment, err := h.service.Create(currentScope(c), in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, toPaymentResponse(payment, services.Today()))
}

// Update 更新账单
func (h *PaymentHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	in, ok := h.bind(c)
	if !ok {
		return
	}
	payment, err := h.service.Update(currentScope(c), id, in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, toPaymentResponse(payment, services.Today()))
}

// Delete 删除账单
func (h *PaymentHandler) Delete(c *gin.Context) {
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

// MarkPaid 标记已付，支持 JSON 或表单，空请求体也可
func (h *PaymentHandler) MarkPaid(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req MarkPaidRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			bindFailed(c, err)
			return
		}
	}

	payment, err := h.service.MarkPaid(currentScope(c), id, services.MarkPaidInput{
		PaymentMethod: req.PaymentMethod,
		ReceiptNumber: req.ReceiptNumber,
		Notes:         req.Notes,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, toPaymentResponse(payment, services.Today()))
}

// MarkUnpaid 恢复未付
func (h *PaymentHandler) MarkUnpaid(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	payment, err := h.service.MarkUnpaid(currentScope(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, toPaymentResponse(payment, services.Today()))
}

func (h *PaymentHandler) bind(c *gin.Context) (services.PaymentInput, bool) {
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return services.PaymentInput{}, false
	}
	in, err := req.input()
	if err != nil {
		bindFailed(c, err)
		return in, false
	}
	return in, true
}
