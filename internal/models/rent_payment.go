package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// 付款方式
const (
	PaymentMethodCash         = "cash"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCheck        = "check"
	PaymentMethodCard         = "card"
	PaymentMethodOther        = "other"
)

var paymentMethodLabels = map[string]string{
	PaymentMethodCash:         "Cash",
	PaymentMethodBankTransfer: "Bank transfer",
	PaymentMethodCheck:        "Check",
	PaymentMethodCard:         "Card",
	PaymentMethodOther:        "Other",
}

// RentPayment 月租账单，(tenant, month, year) 唯一
type RentPayment struct {
	BaseModel
	TenantID      uint            `gorm:"not null;uniqueIndex:idx_rent_payment_period" json:"tenant_id"`
	Month         int             `gorm:"not null;uniqueIndex:idx_rent_payment_period" json:"month"`
	Year          int             `gorm:"not null;uniqueIndex:idx_rent_payment_period" json:"year"`
	Amount        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	DueDate       time.Time       `gorm:"type:date;not null;index" json:"due_date"`
	Paid          bool            `gorm:"not null;default:false;index" json:"paid"`
	PaidDate      *time.Time      `gorm:"type:date" json:"paid_date"`
	PaymentMethod *string         `gorm:"size:20" json:"payment_method"`
	ReceiptNumber string          `gorm:"size:100" json:"receipt_number"`
	Notes         string          `gorm:"type:text" json:"notes"`

	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
}

// TableName 指定表名
func (RentPayment) TableName() string {
	return "rent_payments"
}

// IsOverdue 未付且到期日早于 today，读取时计算，不落库
func (p *RentPayment) IsOverdue(today time.Time) bool {
	if p.Paid {
		return false
	}
	return p.DueDate.Before(DateOf(today))
}

// PaymentMethodDisplay 付款方式显示名
func (p *RentPayment) PaymentMethodDisplay() string {
	if p.PaymentMethod == nil {
		return ""
	}
	if label, ok := paymentMethodLabels[*p.PaymentMethod]; ok {
		return label
	}
	return *p.PaymentMethod
}

// ValidPaymentMethod 是否为合法付款方式
func ValidPaymentMethod(method string) bool {
	_, ok := paymentMethodLabels[method]
	return ok
}
