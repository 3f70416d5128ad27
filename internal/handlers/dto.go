package handlers

import (
	"fmt"
	"time"

	"rentbook/internal/models"
	"rentbook/internal/services"

	"github.com/shopspring/decimal"
)

// UserInfo 用户信息
type UserInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func toUserInfo(u *models.User) UserInfo {
	return UserInfo{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// TenantResponse 租客
type TenantResponse struct {
	ID             uint            `json:"id"`
	ApartmentID    uint            `json:"apartment_id"`
	ApartmentTitle string          `json:"apartment_title,omitempty"`
	FullName       string          `json:"full_name"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email"`
	ContractStart  string          `json:"contract_start"`
	ContractEnd    *string         `json:"contract_end"`
	MonthlyRent    decimal.Decimal `json:"monthly_rent"`
	PaymentDueDay  int             `json:"payment_due_day"`
	Deposit        decimal.Decimal `json:"deposit"`
	Notes          string          `json:"notes"`
	IsCurrent      bool            `json:"is_current"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	PaymentsCreated *int `json:"payments_created,omitempty"`
}

func toTenantResponse(t *models.Tenant) TenantResponse {
	resp := TenantResponse{
		ID:            t.ID,
		ApartmentID:   t.ApartmentID,
		FullName:      t.FullName,
		Phone:         t.Phone,
		Email:         t.Email,
		ContractStart: models.FormatDate(t.ContractStart),
		ContractEnd:   models.FormatDatePtr(t.ContractEnd),
		MonthlyRent:   t.MonthlyRent,
		PaymentDueDay: t.PaymentDueDay,
		Deposit:       t.Deposit,
		Notes:         t.Notes,
		IsCurrent:     t.IsCurrent(),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	if t.Apartment != nil {
		resp.ApartmentTitle = t.Apartment.Title
	}
	return resp
}

func toTenantResponses(tenants []models.Tenant) []TenantResponse {
	out := make([]TenantResponse, 0, len(tenants))
	for i := range tenants {
		out = append(out, toTenantResponse(&tenants[i]))
	}
	return out
}

// PaymentResponse 月租账单，is_overdue 按当天计算
type PaymentResponse struct {
	ID                   uint            `json:"id"`
	TenantID             uint            `json:"tenant_id"`
	TenantName           string          `json:"tenant_name,omitempty"`
	Month                int             `json:"month"`
	Year                 int             `json:"year"`
	Amount               decimal.Decimal `json:"amount"`
	DueDate              string          `json:"due_date"`
	Paid                 bool            `json:"paid"`
	PaidDate             *string         `json:"paid_date"`
	PaymentMethod        *string         `json:"payment_method"`
	PaymentMethodDisplay string          `json:"payment_method_display"`
	ReceiptNumber        string          `json:"receipt_number"`
	Notes                string          `json:"notes"`
	IsOverdue            bool            `json:"is_overdue"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func toPaymentResponse(p *models.RentPayment, today time.Time) PaymentResponse {
	resp := PaymentResponse{
		ID:                   p.ID,
		TenantID:             p.TenantID,
		Month:                p.Month,
		Year:                 p.Year,
		Amount:               p.Amount,
		DueDate:              models.FormatDate(p.DueDate),
		Paid:                 p.Paid,
		PaidDate:             models.FormatDatePtr(p.PaidDate),
		PaymentMethod:        p.PaymentMethod,
		PaymentMethodDisplay: p.PaymentMethodDisplay(),
		ReceiptNumber:        p.ReceiptNumber,
		Notes:                p.Notes,
		IsOverdue:            p.IsOverdue(today),
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	if p.Tenant != nil {
		resp.TenantName = p.Tenant.FullName
	}
	return resp
}

func toPaymentResponses(payments []models.RentPayment, today time.Time) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, toPaymentResponse(&payments[i], today))
	}
	return out
}

// DocumentResponse 文档元数据，file_url 指向下载接口
type DocumentResponse struct {
	ID           uint      `json:"id"`
	TenantID     *uint     `json:"tenant_id"`
	ApartmentID  *uint     `json:"apartment_id"`
	DocumentType string    `json:"document_type"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	FileName     string    `json:"file_name"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	FileURL      string    `json:"file_url"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

func toDocumentResponse(d *models.Document, apiPrefix string) DocumentResponse {
	return DocumentResponse{
		ID:           d.ID,
		TenantID:     d.TenantID,
		ApartmentID:  d.ApartmentID,
		DocumentType: d.DocumentType,
		Title:        d.Title,
		Description:  d.Description,
		FileName:     d.FileName,
		ContentType:  d.ContentType,
		Size:         d.Size,
		FileURL:      fmt.Sprintf("%s/documents/%d/download", apiPrefix, d.ID),
		UploadedAt:   d.CreatedAt,
	}
}

// TenantHistoryResponse 租客及其全部账单
type TenantHistoryResponse struct {
	TenantResponse
	Payments []PaymentResponse `json:"payments"`
}

func toTenantHistoryResponse(t *models.Tenant, today time.Time) TenantHistoryResponse {
	return TenantHistoryResponse{
		TenantResponse: toTenantResponse(t),
		Payments:       toPaymentResponses(t.Payments, today),
	}
}

// TenantHistoryEntryResponse 汇总中的单个租客
type TenantHistoryEntryResponse struct {
	ID            uint            `json:"id"`
	FullName      string          `json:"full_name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Apartment     string          `json:"apartment"`
	ApartmentID   uint            `json:"apartment_id"`
	ContractStart string          `json:"contract_start"`
	ContractEnd   *string         `json:"contract_end"`
	MonthlyRent   decimal.Decimal `json:"monthly_rent"`
	Deposit       decimal.Decimal `json:"deposit"`
	Status        string          `json:"status"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	TotalUnpaid   decimal.Decimal `json:"total_unpaid"`
	TotalPayments int             `json:"total_payments"`
	PaidCount     int             `json:"paid_count"`
	UnpaidCount   int             `json:"unpaid_count"`
}

// TenantHistorySummaryResponse 租客历史汇总
type TenantHistorySummaryResponse struct {
	TotalTenants          int                          `json:"total_tenants"`
	CurrentTenants        int                          `json:"current_tenants"`
	PastTenants           int                          `json:"past_tenants"`
	TotalRentCollected    decimal.Decimal              `json:"total_rent_collected"`
	TotalPaymentsReceived decimal.Decimal              `json:"total_payments_received"`
	PendingPayments       decimal.Decimal              `json:"pending_payments"`
	Tenants               []TenantHistoryEntryResponse `json:"tenants"`
}

func toSummaryResponse(s *services.TenantHistorySummary) TenantHistorySummaryResponse {
	resp := TenantHistorySummaryResponse{
		TotalTenants:          s.TotalTenants,
		CurrentTenants:        s.CurrentTenants,
		PastTenants:           s.PastTenants,
		TotalRentCollected:    s.TotalRentCollected,
		TotalPaymentsReceived: s.TotalPaymentsReceived,
		PendingPayments:       s.PendingPayments,
		Tenants:               make([]TenantHistoryEntryResponse, 0, len(s.Tenants)),
	}
	for _, e := range s.Tenants {
		entry := TenantHistoryEntryResponse{
			ID:            e.Tenant.ID,
			FullName:      e.Tenant.FullName,
			Email:         e.Tenant.Email,
			Phone:         e.Tenant.Phone,
			ApartmentID:   e.Tenant.ApartmentID,
			ContractStart: models.FormatDate(e.Tenant.ContractStart),
			ContractEnd:   models.FormatDatePtr(e.Tenant.ContractEnd),
			MonthlyRent:   e.Tenant.MonthlyRent,
			Deposit:       e.Tenant.Deposit,
			Status:        e.Status,
			TotalPaid:     e.TotalPaid,
			TotalUnpaid:   e.TotalUnpaid,
			TotalPayments: e.TotalPayments,
			PaidCount:     e.PaidCount,
			UnpaidCount:   e.UnpaidCount,
		}
		if e.Tenant.Apartment != nil {
			entry.Apartment = e.Tenant.Apartment.Title
		}
		resp.Tenants = append(resp.Tenants, entry)
	}
	return resp
}
