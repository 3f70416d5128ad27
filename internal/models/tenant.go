package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPaymentDueDay 默认每月交租日
const DefaultPaymentDueDay = 5

// Tenant 租客及其租约
type Tenant struct {
	BaseModel
	ApartmentID   uint            `gorm:"not null;index" json:"apartment_id"`
	FullName      string          `gorm:"size:150;not null" json:"full_name"`
	Phone         string          `gorm:"size:20" json:"phone"`
	Email         string          `gorm:"size:254" json:"email"`
	ContractStart time.Time       `gorm:"type:date;not null;index" json:"contract_start"`
	ContractEnd   *time.Time      `gorm:"type:date;index" json:"contract_end"` // 为空表示长期/当前租约
	MonthlyRent   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"monthly_rent"`
	PaymentDueDay int             `gorm:"not null;default:5" json:"payment_due_day"`
	Deposit       decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"deposit"`
	Notes         string          `gorm:"type:text" json:"notes"`

	Apartment *Apartment    `gorm:"foreignKey:ApartmentID" json:"apartment,omitempty"`
	Payments  []RentPayment `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`
	Documents []Document    `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 表名
func (t *Tenant) TableName() string {
	return "tenants"
}

// IsCurrent 无结束日期的租约视为当前租约
func (t *Tenant) IsCurrent() bool {
	return t.ContractEnd == nil
}

// LedgerWindowEnd 账单生成窗口的结束日期：合同结束日，长期租约为开始日后12个月
func (t *Tenant) LedgerWindowEnd() time.Time {
	if t.ContractEnd != nil {
		return *t.ContractEnd
	}
	return AddMonths(t.ContractStart, 12)
}
