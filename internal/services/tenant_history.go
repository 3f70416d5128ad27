package services

import (
	"rentbook/internal/models"
	"rentbook/pkg/pagination"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TenantHistoryService 租客历史与收款汇总（只读）
type TenantHistoryService struct {
	db *gorm.DB
}

// TenantHistoryEntry 单个租客的汇总
type TenantHistoryEntry struct {
	Tenant        *models.Tenant
	Status        string
	TotalPaid     decimal.Decimal
	TotalUnpaid   decimal.Decimal
	TotalPayments int
	PaidCount     int
	UnpaidCount   int
}

// TenantHistorySummary 可见租客的整体汇总
type TenantHistorySummary struct {
	TotalTenants          int
	CurrentTenants        int
	PastTenants           int
	TotalRentCollected    decimal.Decimal // 当前租客月租合计
	TotalPaymentsReceived decimal.Decimal
	PendingPayments       decimal.Decimal
	Tenants               []TenantHistoryEntry
}

const (
	TenantStatusCurrent = "Current"
	TenantStatusPast    = "Past"
)

func NewTenantHistoryService(db *gorm.DB) *TenantHistoryService {
	return &TenantHistoryService{db: db}
}

func (s *TenantHistoryService) withPayments(db *gorm.DB) *gorm.DB {
	return db.Preload("Apartment").Preload("Payments", func(db *gorm.DB) *gorm.DB {
		return db.Order("year DESC").Order("month DESC")
	})
}

// List 分页查询租客及其账单
func (s *TenantHistoryService) List(scope OwnerScope, page *pagination.PageParams) ([]models.Tenant, int64, error) {
	query := s.db.Model(&models.Tenant{}).Scopes(scope.Tenants)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tenants []models.Tenant
	err := query.Scopes(s.withPayments).
		Order("tenants.contract_start DESC").Order("tenants.id DESC").
		Scopes(page.Scope()).
		Find(&tenants).Error
	return tenants, total, err
}

// Get 获取租客及其账单
func (s *TenantHistoryService) Get(scope OwnerScope, id uint) (*models.Tenant, error) {
	return findTenant(s.db.Scopes(s.withPayments), scope, id)
}

// Summary 汇总全部可见租客
func (s *TenantHistoryService) Summary(scope OwnerScope) (*TenantHistorySummary, error) {
	var tenants []models.Tenant
	err := s.db.Scopes(scope.Tenants, s.withPayments).
		Order("tenants.contract_start DESC").Order("tenants.id DESC").
		Find(&tenants).Error
	if err != nil {
		return nil, err
	}

	summary := &TenantHistorySummary{
		TotalTenants:          len(tenants),
		TotalRentCollected:    decimal.Zero,
		TotalPaymentsReceived: decimal.Zero,
		PendingPayments:       decimal.Zero,
		Tenants:               make([]TenantHistoryEntry, 0, len(tenants)),
	}
	for i := range tenants {
		entry := summarizeTenant(&tenants[i])
		if tenants[i].IsCurrent() {
			summary.CurrentTenants++
			summary.TotalRentCollected = summary.TotalRentCollected.Add(tenants[i].MonthlyRent)
		} else {
			summary.PastTenants++
		}
		summary.TotalPaymentsReceived = summary.TotalPaymentsReceived.Add(entry.TotalPaid)
		summary.PendingPayments = summary.PendingPayments.Add(entry.TotalUnpaid)
		summary.Tenants = append(summary.Tenants, entry)
	}
	return summary, nil
}

func summarizeTenant(t *models.Tenant) TenantHistoryEntry {
	entry := TenantHistoryEntry{
		Tenant:        t,
		Status:        TenantStatusPast,
		TotalPaid:     decimal.Zero,
		TotalUnpaid:   decimal.Zero,
		TotalPayments: len(t.Payments),
	}
	if t.IsCurrent() {
		entry.Status = TenantStatusCurrent
	}
	for _, p := range t.Payments {
		if p.Paid {
			entry.PaidCount++
			entry.TotalPaid = entry.TotalPaid.Add(p.Amount)
		} else {
			entry.UnpaidCount++
			entry.TotalUnpaid = entry.TotalUnpaid.Add(p.Amount)
		}
	}
	return entry
}
