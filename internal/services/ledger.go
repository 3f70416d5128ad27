package services

import (
	"errors"
	"fmt"
	"time"

	"rentbook/internal/metrics"
	"rentbook/internal/models"
	apperrors "rentbook/pkg/errors"
	"rentbook/pkg/logger"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 首月以外的账单到期日
const ledgerDueDay = 5

type period struct {
	month int
	year  int
}

// GenerateRentPayments 为租约窗口内的每个自然月补齐一条月租记录，已存在的月份不做任何修改。
// 返回新建的记录数。tx 可以是事务，调用方负责提交。
func GenerateRentPayments(tx *gorm.DB, tenant *models.Tenant) (int, error) {
	if tenant.ID == 0 {
		return 0, fmt.Errorf("tenant must be saved before generating payments")
	}

	var existing []models.RentPayment
	if err := tx.Select("month", "year").Where("tenant_id = ?", tenant.ID).Find(&existing).Error; err != nil {
		return 0, err
	}
	seen := make(map[period]bool, len(existing))
	for _, p := range existing {
		seen[period{month: p.Month, year: p.Year}] = true
	}

	start := models.DateOf(tenant.ContractStart)
	end := models.DateOf(tenant.LedgerWindowEnd())

	created := 0
	first := true
	for current := start; !current.After(end); current = models.AddMonths(current, 1) {
		key := period{month: int(current.Month()), year: current.Year()}
		dueDate := time.Date(current.Year(), current.Month(), ledgerDueDay, 0, 0, 0, 0, time.UTC)
		if first {
			dueDate = start
			first = false
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		payment := models.RentPayment{
			TenantID: tenant.ID,
			Month:    key.month,
			Year:     key.year,
			Amount:   tenant.MonthlyRent,
			DueDate:  dueDate,
			Paid:     false,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&payment)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				continue
			}
			return created, fmt.Errorf("create payment %d/%d: %w", key.month, key.year, res.Error)
		}
		if res.RowsAffected > 0 {
			created++
		}
	}

	if created > 0 {
		metrics.LedgerPaymentsCreated.Add(float64(created))
		logger.GetLogger().WithFields(logrus.Fields{
			"tenant_id": tenant.ID,
			"created":   created,
		}).Info("Rent payments generated")
	}
	return created, nil
}

// LedgerService 账单批量重建
type LedgerService struct {
	db *gorm.DB
}

// NewLedgerService 创建服务
func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// Regenerate 对指定租客（tenantID 为0时为全部租客）重新执行账单生成，返回新建总数
func (s *LedgerService) Regenerate(tenantID uint) (int, error) {
	var tenants []models.Tenant
	query := s.db.Order("id")
	if tenantID != 0 {
		query = query.Where("id = ?", tenantID)
	}
	if err := query.Find(&tenants).Error; err != nil {
		return 0, err
	}
	if tenantID != 0 && len(tenants) == 0 {
		return 0, apperrors.NotFound("tenant")
	}

	total := 0
	for i := range tenants {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			n, err := GenerateRentPayments(tx, &tenants[i])
			total += n
			return err
		})
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
