package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rentbook/internal/metrics"
	"rentbook/internal/models"
	"rentbook/pkg/lock"
	"rentbook/pkg/logger"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	sweepLockKey       = "notification-sweep"
	defaultSweepTTL    = 10 * time.Minute
	contractEndingDays = 7
)

// SweepReport 一次规则执行的结果
type SweepReport struct {
	Date             string `json:"date"`
	Skipped          bool   `json:"skipped"`
	ContractStarting int    `json:"contract_starting"`
	ContractEnding   int    `json:"contract_ending"`
	OverduePayments  int    `json:"overdue_payments"`
}

// Total 新建通知总数
func (r *SweepReport) Total() int {
	return r.ContractStarting + r.ContractEnding + r.OverduePayments
}

// NotificationRules 周期性通知规则：租约开始、租约即将结束、逾期账单
type NotificationRules struct {
	db        *gorm.DB
	locker    lock.Locker
	publisher Publisher
	lockTTL   time.Duration
}

// NewNotificationRules 创建规则引擎，locker 为空时不加锁
func NewNotificationRules(db *gorm.DB, locker lock.Locker, publisher Publisher, lockTTL time.Duration) *NotificationRules {
	if lockTTL <= 0 {
		lockTTL = defaultSweepTTL
	}
	return &NotificationRules{
		db:        db,
		locker:    locker,
		publisher: publisher,
		lockTTL:   lockTTL,
	}
}

// Sweep 以 today 为基准执行全部规则，未获取到锁时跳过
func (r *NotificationRules) Sweep(ctx context.Context, today time.Time) (*SweepReport, error) {
	today = models.DateOf(today)
	report := &SweepReport{Date: models.FormatDate(today)}
	log := logger.GetLogger().WithField("date", report.Date)

	if r.locker != nil {
		release, acquired, err := r.locker.TryLock(ctx, sweepLockKey, r.lockTTL)
		if err != nil {
			metrics.SweepRuns.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !acquired {
			log.Info("Notification sweep already running elsewhere, skipping")
			metrics.SweepRuns.WithLabelValues("skipped").Inc()
			report.Skipped = true
			return report, nil
		}
		defer release()
	}

	var created []*models.Notification
	var err error
	if report.ContractStarting, created, err = r.contractStarting(today, created); err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	if report.ContractEnding, created, err = r.contractEnding(today, created); err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	if report.OverduePayments, created, err = r.overduePayments(today, created); err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	for _, n := range created {
		metrics.NotificationsCreated.WithLabelValues(n.NotificationType).Inc()
		if r.publisher != nil {
			r.publisher.Publish(n)
		}
	}
	metrics.SweepRuns.WithLabelValues("ok").Inc()
	log.WithFields(logrus.Fields{
		"contract_starting": report.ContractStarting,
		"contract_ending":   report.ContractEnding,
		"overdue_payments":  report.OverduePayments,
	}).Info("Notification sweep finished")
	return report, nil
}

// contractStarting 今日开始的租约，每个业主每种类型只保留一条
func (r *NotificationRules) contractStarting(today time.Time, created []*models.Notification) (int, []*models.Notification, error) {
	var tenants []models.Tenant
	if err := r.db.Preload("Apartment").Where("contract_start = ?", today).Order("id").Find(&tenants).Error; err != nil {
		return 0, created, err
	}

	count := 0
	for i := range tenants {
		t := &tenants[i]
		if t.Apartment == nil {
			continue
		}
		n, isNew, err := r.getOrCreate(&models.Notification{
			UserID:           t.Apartment.OwnerID,
			NotificationType: models.NotificationContractStarting,
			Title:            fmt.Sprintf("Contract Starting - %s", t.FullName),
			Message:          fmt.Sprintf("Contract for %s at %s starts today", t.FullName, t.Apartment.Title),
		}, map[string]uint{"tenant_id": t.ID, "apartment_id": t.ApartmentID})
		if err != nil {
			return count, created, err
		}
		if isNew {
			count++
			created = append(created, n)
		}
	}
	return count, created, nil
}

// contractEnding 七天后结束的租约
func (r *NotificationRules) contractEnding(today time.Time, created []*models.Notification) (int, []*models.Notification, error) {
	target := today.AddDate(0, 0, contractEndingDays)

	var tenants []models.Tenant
	if err := r.db.Preload("Apartment").Where("contract_end = ?", target).Order("id").Find(&tenants).Error; err != nil {
		return 0, created, err
	}

	count := 0
	for i := range tenants {
		t := &tenants[i]
		if t.Apartment == nil {
			continue
		}
		n, isNew, err := r.getOrCreate(&models.Notification{
			UserID:           t.Apartment.OwnerID,
			NotificationType: models.NotificationContractEnding,
			Title:            fmt.Sprintf("Contract Ending Soon - %s", t.FullName),
			Message:          fmt.Sprintf("Contract for %s at %s ends in %d days", t.FullName, t.Apartment.Title, contractEndingDays),
		}, map[string]uint{"tenant_id": t.ID, "apartment_id": t.ApartmentID})
		if err != nil {
			return count, created, err
		}
		if isNew {
			count++
			created = append(created, n)
		}
	}
	return count, created, nil
}

// overduePayments 逾期账单：业主已有任意 overdue_payment 通知时不再新建
func (r *NotificationRules) overduePayments(today time.Time, created []*models.Notification) (int, []*models.Notification, error) {
	var payments []models.RentPayment
	err := r.db.Preload("Tenant.Apartment").
		Where("paid = ? AND due_date < ?", false, today).
		Order("due_date").Order("id").
		Find(&payments).Error
	if err != nil {
		return 0, created, err
	}

	count := 0
	for i := range payments {
		p := &payments[i]
		if p.Tenant == nil || p.Tenant.Apartment == nil {
			continue
		}
		n, isNew, err := r.getOrCreate(&models.Notification{
			UserID:           p.Tenant.Apartment.OwnerID,
			NotificationType: models.NotificationOverduePayment,
			Title:            fmt.Sprintf("Overdue Payment - %s", p.Tenant.FullName),
			Message:          fmt.Sprintf("Payment for %s (%d/%d) is overdue", p.Tenant.FullName, p.Year, p.Month),
		}, map[string]uint{"payment_id": p.ID, "tenant_id": p.TenantID})
		if err != nil {
			return count, created, err
		}
		if isNew {
			count++
			created = append(created, n)
		}
	}
	return count, created, nil
}

// getOrCreate 以 (user, type) 为键查找，不存在时创建
func (r *NotificationRules) getOrCreate(n *models.Notification, payload map[string]uint) (*models.Notification, bool, error) {
	var existing models.Notification
	err := r.db.Where("user_id = ? AND notification_type = ?", n.UserID, n.NotificationType).
		Order("id").First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, false, err
	}
	n.Payload = datatypes.JSON(raw)
	if err := r.db.Create(n).Error; err != nil {
		return nil, false, err
	}
	return n, true, nil
}
