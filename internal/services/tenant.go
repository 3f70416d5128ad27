package services

import (
	"errors"
	"strings"
	"time"

	"rentbook/internal/models"
	"rentbook/internal/storage"
	apperrors "rentbook/pkg/errors"
	"rentbook/pkg/pagination"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TenantService 租客与租约管理
type TenantService struct {
	db    *gorm.DB
	store storage.Store
}

// TenantFilter 列表过滤条件
type TenantFilter struct {
	ApartmentID uint
	Current     *bool
}

// TenantInput 创建/更新参数，nil 字段表示不修改；ClearContractEnd 将结束日期置空
type TenantInput struct {
	ApartmentID      *uint
	FullName         *string
	Phone            *string
	Email            *string
	ContractStart    *time.Time
	ContractEnd      *time.Time
	ClearContractEnd bool
	MonthlyRent      *decimal.Decimal
	PaymentDueDay    *int
	Deposit          *decimal.Decimal
	Notes            *string
}

// TenantResult 写操作结果，附带本次新建的账单数
type TenantResult struct {
	Tenant          *models.Tenant
	PaymentsCreated int
}

func NewTenantService(db *gorm.DB, store storage.Store) *TenantService {
	return &TenantService{db: db, store: store}
}

// List 分页查询可见租客
func (s *TenantService) List(scope OwnerScope, filter TenantFilter, page *pagination.PageParams) ([]models.Tenant, int64, error) {
	query := s.db.Model(&models.Tenant{}).Scopes(scope.Tenants)
	if filter.ApartmentID != 0 {
		query = query.Where("tenants.apartment_id = ?", filter.ApartmentID)
	}
	if filter.Current != nil {
		if *filter.Current {
			query = query.Where("tenants.contract_end IS NULL")
		} else {
			query = query.Where("tenants.contract_end IS NOT NULL")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tenants []models.Tenant
	err := query.Preload("Apartment").
		Order("tenants.contract_start DESC").Order("tenants.id DESC").
		Scopes(page.Scope()).
		Find(&tenants).Error
	return tenants, total, err
}

// Get 获取可见租客
func (s *TenantService) Get(scope OwnerScope, id uint) (*models.Tenant, error) {
	return findTenant(s.db.Preload("Apartment"), scope, id)
}

// Create 创建租客并在同一事务内生成账单
func (s *TenantService) Create(scope OwnerScope, in TenantInput) (*TenantResult, error) {
	if in.ApartmentID == nil {
		return nil, apperrors.NewValidationError("apartment_id", "this field is required")
	}

	tenant := &models.Tenant{
		PaymentDueDay: models.DefaultPaymentDueDay,
		Deposit:       decimal.Zero,
	}
	applyTenantInput(tenant, in)

	result := &TenantResult{Tenant: tenant}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		apartment, err := visibleApartment(tx, scope, *in.ApartmentID)
		if err != nil {
			return err
		}
		if err := validateTenant(tenant); err != nil {
			return err
		}
		if err := tx.Create(tenant).Error; err != nil {
			return err
		}
		tenant.Apartment = apartment

		result.PaymentsCreated, err = GenerateRentPayments(tx, tenant)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Update 更新租客并在同一事务内补齐账单，已有账单不变
func (s *TenantService) Update(scope OwnerScope, id uint, in TenantInput) (*TenantResult, error) {
	result := &TenantResult{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		tenant, err := findTenant(tx, scope, id)
		if err != nil {
			return err
		}

		if in.ApartmentID != nil && *in.ApartmentID != tenant.ApartmentID {
			if _, err := visibleApartment(tx, scope, *in.ApartmentID); err != nil {
				return err
			}
		}
		applyTenantInput(tenant, in)
		if err := validateTenant(tenant); err != nil {
			return err
		}

		// Save 会连带保存已加载的关联，这里只写租客本身
		tenant.Apartment = nil
		if err := tx.Save(tenant).Error; err != nil {
			return err
		}

		result.PaymentsCreated, err = GenerateRentPayments(tx, tenant)
		if err != nil {
			return err
		}
		result.Tenant, err = findTenant(tx.Preload("Apartment"), scope, tenant.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete 删除租客及其账单、文档
func (s *TenantService) Delete(scope OwnerScope, id uint) error {
	var blobs []string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		tenant, err := findTenant(tx, scope, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Document{}).Where("tenant_id = ?", tenant.ID).Pluck("file_path", &blobs).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ?", tenant.ID).Delete(&models.Document{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ?", tenant.ID).Delete(&models.RentPayment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Tenant{}, tenant.ID).Error
	})
	if err != nil {
		return err
	}

	removeBlobs(s.store, blobs)
	return nil
}

func findTenant(db *gorm.DB, scope OwnerScope, id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := db.Scopes(scope.Tenants).First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("tenant")
		}
		return nil, err
	}
	return &tenant, nil
}

// visibleApartment 子记录引用的房源须可见，不可见按字段错误处理
func visibleApartment(db *gorm.DB, scope OwnerScope, id uint) (*models.Apartment, error) {
	apartment, err := findApartment(db, scope, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NewValidationError("apartment_id", "apartment not found")
	}
	return apartment, err
}

func applyTenantInput(t *models.Tenant, in TenantInput) {
	if in.ApartmentID != nil {
		t.ApartmentID = *in.ApartmentID
	}
	if in.FullName != nil {
		t.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Phone != nil {
		t.Phone = *in.Phone
	}
	if in.Email != nil {
		t.Email = *in.Email
	}
	if in.ContractStart != nil {
		t.ContractStart = models.DateOf(*in.ContractStart)
	}
	if in.ClearContractEnd {
		t.ContractEnd = nil
	} else if in.ContractEnd != nil {
		end := models.DateOf(*in.ContractEnd)
		t.ContractEnd = &end
	}
	if in.MonthlyRent != nil {
		t.MonthlyRent = *in.MonthlyRent
	}
	if in.PaymentDueDay != nil {
		t.PaymentDueDay = *in.PaymentDueDay
	}
	if in.Deposit != nil {
		t.Deposit = *in.Deposit
	}
	if in.Notes != nil {
		t.Notes = *in.Notes
	}
}

func validateTenant(t *models.Tenant) error {
	verr := &apperrors.ValidationError{}
	if t.FullName == "" {
		verr.Add("full_name", "this field is required")
	}
	if t.ContractStart.IsZero() {
		verr.Add("contract_start", "this field is required")
	}
	if t.ContractEnd != nil && t.ContractEnd.Before(t.ContractStart) {
		verr.Add("contract_end", "must not be before contract_start")
	}
	if t.MonthlyRent.IsNegative() {
		verr.Add("monthly_rent", "must not be negative")
	}
	if t.Deposit.IsNegative() {
		verr.Add("deposit", "must not be negative")
	}
	if t.PaymentDueDay < 1 || t.PaymentDueDay > 31 {
		verr.Add("payment_due_day", "must be between 1 and 31")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}
