package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rentbook/internal/metrics"
	"rentbook/internal/models"
	apperrors "rentbook/pkg/errors"
	"rentbook/pkg/logger"
	"rentbook/pkg/pagination"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentService 月租账单
type PaymentService struct {
	db        *gorm.DB
	publisher Publisher
}

// PaymentFilter 列表过滤条件
type PaymentFilter struct {
	TenantID uint
	Paid     *bool
	Year     int
	Month    int
	Overdue  bool
}

// PaymentInput 手工创建/更新参数；paid 状态只能通过 MarkPaid/MarkUnpaid 改变
type PaymentInput struct {
	TenantID      *uint
	Month         *int
	Year          *int
	Amount        *decimal.Decimal
	DueDate       *time.Time
	PaymentMethod *string
	ReceiptNumber *string
	Notes         *string
}

// MarkPaidInput 标记已付时可选更新的字段，nil 表示保持不变
type MarkPaidInput struct {
	PaymentMethod *string
	ReceiptNumber *string
	Notes         *string
}

func NewPaymentService(db *gorm.DB, publisher Publisher) *PaymentService {
	return &PaymentService{db: db, publisher: publisher}
}

// List 分页查询可见账单，按年月倒序
func (s *PaymentService) List(scope OwnerScope, filter PaymentFilter, page *pagination.PageParams) ([]models.RentPayment, int64, error) {
	query := s.db.Model(&models.RentPayment{}).Scopes(scope.Payments)
	if filter.TenantID != 0 {
		query = query.Where("rent_payments.tenant_id = ?", filter.TenantID)
	}
	if filter.Paid != nil {
		query = query.Where("rent_payments.paid = ?", *filter.Paid)
	}
	if filter.Year != 0 {
		query = query.Where("rent_payments.year = ?", filter.Year)
	}
	if filter.Month != 0 {
		query = query.Where("rent_payments.month = ?", filter.Month)
	}
	if filter.Overdue {
		query = query.Where("rent_payments.paid = ? AND rent_payments.due_date < ?", false, Today())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []models.RentPayment
	err := query.Preload("Tenant").
		Order("rent_payments.year DESC").Order("rent_payments.month DESC").Order("rent_payments.id").
		Scopes(page.Scope()).
		Find(&payments).Error
	return payments, total, err
}

// Get 获取可见账单
func (s *PaymentService) Get(scope OwnerScope, id uint) (*models.RentPayment, error) {
	return findPayment(s.db.Preload("Tenant"), scope, id)
}

// Create 手工创建账单，同一租客同一月份只能有一条
func (s *PaymentService) Create(scope OwnerScope, in PaymentInput) (*models.RentPayment, error) {
	verr := &apperrors.ValidationError{}
	if in.TenantID == nil {
		verr.Add("tenant_id", "this field is required")
	}
	if in.Month == nil {
		verr.Add("month", "this field is required")
	}
	if in.Year == nil {
		verr.Add("year", "this field is required")
	}
	if in.Amount == nil {
		verr.Add("amount", "this field is required")
	}
	if in.DueDate == nil {
		verr.Add("due_date", "this field is required")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	payment := &models.RentPayment{TenantID: *in.TenantID}
	applyPaymentInput(payment, in)
	if err := validatePayment(payment); err != nil {
		return nil, err
	}

	if _, err := visibleTenant(s.db, scope, payment.TenantID); err != nil {
		return nil, err
	}
	if err := s.db.Create(payment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflict("payment for %d/%d already exists for this tenant", payment.Month, payment.Year)
		}
		return nil, err
	}
	return s.Get(scope, payment.ID)
}

// Update 更新金额、到期日、付款方式、收据号与备注
func (s *PaymentService) Update(scope OwnerScope, id uint, in PaymentInput) (*models.RentPayment, error) {
	payment, err := findPayment(s.db, scope, id)
	if err != nil {
		return nil, err
	}

	applyPaymentInput(payment, PaymentInput{
		Amount:        in.Amount,
		DueDate:       in.DueDate,
		PaymentMethod: in.PaymentMethod,
		ReceiptNumber: in.ReceiptNumber,
		Notes:         in.Notes,
	})
	if err := validatePayment(payment); err != nil {
		return nil, err
	}
	if err := s.db.Save(payment).Error; err != nil {
		return nil, err
	}
	return s.Get(scope, payment.ID)
}

// Delete 删除账单
func (s *PaymentService) Delete(scope OwnerScope, id uint) error {
	payment, err := findPayment(s.db, scope, id)
	if err != nil {
		return err
	}
	return s.db.Delete(&models.RentPayment{}, payment.ID).Error
}

// MarkPaid 标记已付并为业主生成 payment_received 通知，二者在同一事务内
func (s *PaymentService) MarkPaid(scope OwnerScope, id uint, in MarkPaidInput) (*models.RentPayment, error) {
	if in.PaymentMethod != nil && *in.PaymentMethod != "" && !models.ValidPaymentMethod(*in.PaymentMethod) {
		return nil, apperrors.NewValidationError("payment_method", "invalid choice")
	}

	var (
		payment      *models.RentPayment
		notification *models.Notification
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = findPayment(tx.Preload("Tenant.Apartment"), scope, id)
		if err != nil {
			return err
		}

		today := Today()
		payment.Paid = true
		payment.PaidDate = &today
		if in.PaymentMethod != nil {
			payment.PaymentMethod = nullIfEmpty(*in.PaymentMethod)
		}
		if in.ReceiptNumber != nil {
			payment.ReceiptNumber = *in.ReceiptNumber
		}
		if in.Notes != nil {
			payment.Notes = *in.Notes
		}

		if err := tx.Omit("Tenant").Save(payment).Error; err != nil {
			return err
		}

		notification, err = paymentReceivedNotification(payment)
		if err != nil {
			return err
		}
		return tx.Create(notification).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.PaymentsMarked.WithLabelValues("paid").Inc()
	metrics.NotificationsCreated.WithLabelValues(notification.NotificationType).Inc()
	if s.publisher != nil {
		s.publisher.Publish(notification)
	}
	logger.GetLogger().WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"tenant_id":  payment.TenantID,
		"period":     fmt.Sprintf("%d/%d", payment.Month, payment.Year),
	}).Info("Payment marked paid")
	return payment, nil
}

// MarkUnpaid 恢复未付状态，其余字段不变，不产生通知
func (s *PaymentService) MarkUnpaid(scope OwnerScope, id uint) (*models.RentPayment, error) {
	payment, err := findPayment(s.db, scope, id)
	if err != nil {
		return nil, err
	}
	payment.Paid = false
	payment.PaidDate = nil
	if err := s.db.Save(payment).Error; err != nil {
		return nil, err
	}
	metrics.PaymentsMarked.WithLabelValues("unpaid").Inc()
	return s.Get(scope, payment.ID)
}

func paymentReceivedNotification(p *models.RentPayment) (*models.Notification, error) {
	if p.Tenant == nil || p.Tenant.Apartment == nil {
		return nil, fmt.Errorf("payment %d has no tenant apartment loaded", p.ID)
	}
	payload, err := json.Marshal(map[string]uint{
		"payment_id":   p.ID,
		"tenant_id":    p.TenantID,
		"apartment_id": p.Tenant.ApartmentID,
	})
	if err != nil {
		return nil, err
	}
	return &models.Notification{
		UserID:           p.Tenant.Apartment.OwnerID,
		NotificationType: models.NotificationPaymentReceived,
		Title:            fmt.Sprintf("Rent Received - %s", p.Tenant.FullName),
		Message: fmt.Sprintf("Received rent from %s for %d/%d, amount %s€",
			p.Tenant.FullName, p.Month, p.Year, p.Amount.StringFixed(2)),
		Payload: datatypes.JSON(payload),
	}, nil
}

func findPayment(db *gorm.DB, scope OwnerScope, id uint) (*models.RentPayment, error) {
	var payment models.RentPayment
	if err := db.Scopes(scope.Payments).First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("payment")
		}
		return nil, err
	}
	return &payment, nil
}

// visibleTenant 子记录引用的租客须可见，不可见按字段错误处理
func visibleTenant(db *gorm.DB, scope OwnerScope, id uint) (*models.Tenant, error) {
	tenant, err := findTenant(db, scope, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NewValidationError("tenant_id", "tenant not found")
	}
	return tenant, err
}

func applyPaymentInput(p *models.RentPayment, in PaymentInput) {
	if in.Month != nil {
		p.Month = *in.Month
	}
	if in.Year != nil {
		p.Year = *in.Year
	}
	if in.Amount != nil {
		p.Amount = *in.Amount
	}
	if in.DueDate != nil {
		p.DueDate = models.DateOf(*in.DueDate)
	}
	if in.PaymentMethod != nil {
		p.PaymentMethod = nullIfEmpty(*in.PaymentMethod)
	}
	if in.ReceiptNumber != nil {
		p.ReceiptNumber = *in.ReceiptNumber
	}
	if in.Notes != nil {
		p.Notes = *in.Notes
	}
}

func validatePayment(p *models.RentPayment) error {
	verr := &apperrors.ValidationError{}
	if p.Month < 1 || p.Month > 12 {
		verr.Add("month", "must be between 1 and 12")
	}
	if p.Year < 1900 || p.Year > 9999 {
		verr.Add("year", "invalid year")
	}
	if p.Amount.IsNegative() {
		verr.Add("amount", "must not be negative")
	}
	if p.PaymentMethod != nil && !models.ValidPaymentMethod(*p.PaymentMethod) {
		verr.Add("payment_method", "invalid choice")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
