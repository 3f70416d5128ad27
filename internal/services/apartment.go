package services

import (
	"context"
	"errors"
	"strings"

	"rentbook/internal/models"
	"rentbook/internal/storage"
	apperrors "rentbook/pkg/errors"
	"rentbook/pkg/logger"
	"rentbook/pkg/pagination"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ApartmentService 房源管理
type ApartmentService struct {
	db    *gorm.DB
	store storage.Store
}

// ApartmentFilter 列表过滤条件
type ApartmentFilter struct {
	Status string
	City   string
	Search string
}

// ApartmentInput 创建/更新参数，nil 字段表示不修改
type ApartmentInput struct {
	OwnerID      *uint
	Title        *string
	Address      *string
	SquareMeters *int
	PropertyType *string
	Status       *string
	Floor        *int
	YearBuilt    *int
	Notes        *string
	Area         *string
	City         *string
	Region       *string
	Lat          *decimal.Decimal
	Lng          *decimal.Decimal
}

func NewApartmentService(db *gorm.DB, store storage.Store) *ApartmentService {
	return &ApartmentService{db: db, store: store}
}

// List 分页查询可见房源
func (s *ApartmentService) List(scope OwnerScope, filter ApartmentFilter, page *pagination.PageParams) ([]models.Apartment, int64, error) {
	query := s.db.Model(&models.Apartment{}).Scopes(scope.Apartments)
	if filter.Status != "" {
		query = query.Where("apartments.status = ?", filter.Status)
	}
	if filter.City != "" {
		query = query.Where("LOWER(apartments.city) = ?", strings.ToLower(filter.City))
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("(LOWER(apartments.title) LIKE ? OR LOWER(apartments.address) LIKE ?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var apartments []models.Apartment
	err := query.Order("apartments.id DESC").Scopes(page.Scope()).Find(&apartments).Error
	return apartments, total, err
}

// Get 获取可见房源，不可见时返回 NotFound
func (s *ApartmentService) Get(scope OwnerScope, id uint) (*models.Apartment, error) {
	return findApartment(s.db, scope, id)
}

// Create 创建房源
func (s *ApartmentService) Create(actor *Actor, in ApartmentInput) (*models.Apartment, error) {
	ownerID, err := s.resolveOwner(actor, in.OwnerID, true)
	if err != nil {
		return nil, err
	}

	apartment := &models.Apartment{
		OwnerID:      ownerID,
		PropertyType: models.PropertyTypeApartment,
		Status:       models.ApartmentStatusVacant,
	}
	applyApartmentInput(apartment, in)
	if err := validateApartment(apartment); err != nil {
		return nil, err
	}

	if err := s.db.Create(apartment).Error; err != nil {
		return nil, err
	}
	return apartment, nil
}

// Update 更新房源，owner 仅管理员/会计可变更
func (s *ApartmentService) Update(actor *Actor, id uint, in ApartmentInput) (*models.Apartment, error) {
	apartment, err := findApartment(s.db, actor.Scope, id)
	if err != nil {
		return nil, err
	}

	if in.OwnerID != nil && actor.User.Role != models.RoleOwner {
		ownerID, err := s.resolveOwner(actor, in.OwnerID, false)
		if err != nil {
			return nil, err
		}
		apartment.OwnerID = ownerID
	}
	applyApartmentInput(apartment, in)
	if err := validateApartment(apartment); err != nil {
		return nil, err
	}

	if err := s.db.Save(apartment).Error; err != nil {
		return nil, err
	}
	return apartment, nil
}

// Delete 删除房源及其租客、账单、文档
func (s *ApartmentService) Delete(scope OwnerScope, id uint) error {
	var blobs []string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		apartment, err := findApartment(tx, scope, id)
		if err != nil {
			return err
		}

		var tenantIDs []uint
		if err := tx.Model(&models.Tenant{}).Where("apartment_id = ?", apartment.ID).Pluck("id", &tenantIDs).Error; err != nil {
			return err
		}

		docs := tx.Model(&models.Document{}).Where("apartment_id = ?", apartment.ID)
		if len(tenantIDs) > 0 {
			docs = tx.Model(&models.Document{}).Where("apartment_id = ? OR tenant_id IN ?", apartment.ID, tenantIDs)
		}
		if err := docs.Pluck("file_path", &blobs).Error; err != nil {
			return err
		}

		if len(tenantIDs) > 0 {
			if err := tx.Where("tenant_id IN ?", tenantIDs).Delete(&models.Document{}).Error; err != nil {
				return err
			}
			if err := tx.Where("tenant_id IN ?", tenantIDs).Delete(&models.RentPayment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", tenantIDs).Delete(&models.Tenant{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("apartment_id = ?", apartment.ID).Delete(&models.Document{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Apartment{}, apartment.ID).Error
	})
	if err != nil {
		return err
	}

	removeBlobs(s.store, blobs)
	return nil
}

// resolveOwner 业主总是为自己创建；管理员/会计必须指定角色为 owner 的用户，会计还须在授权范围内
func (s *ApartmentService) resolveOwner(actor *Actor, requested *uint, required bool) (uint, error) {
	switch actor.User.Role {
	case models.RoleOwner:
		return actor.User.ID, nil
	case models.RoleAdmin, models.RoleAccountant:
	default:
		return 0, apperrors.Forbidden("role %q cannot manage apartments", actor.User.Role)
	}

	if requested == nil || *requested == 0 {
		if required {
			return 0, apperrors.NewValidationError("owner_id", "this field is required")
		}
		return 0, nil
	}

	var owner models.User
	if err := s.db.Select("id", "role").First(&owner, *requested).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.NewValidationError("owner_id", "user not found")
		}
		return 0, err
	}
	if owner.Role != models.RoleOwner {
		return 0, apperrors.NewValidationError("owner_id", "user must have role owner")
	}
	if actor.User.Role == models.RoleAccountant && !actor.Scope.Allows(owner.ID) {
		return 0, apperrors.Forbidden("you are not allowed to manage owner %d", owner.ID)
	}
	return owner.ID, nil
}

func findApartment(db *gorm.DB, scope OwnerScope, id uint) (*models.Apartment, error) {
	var apartment models.Apartment
	if err := db.Scopes(scope.Apartments).First(&apartment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("apartment")
		}
		return nil, err
	}
	return &apartment, nil
}

func applyApartmentInput(a *models.Apartment, in ApartmentInput) {
	if in.Title != nil {
		a.Title = strings.TrimSpace(*in.Title)
	}
	if in.Address != nil {
		a.Address = strings.TrimSpace(*in.Address)
	}
	if in.SquareMeters != nil {
		a.SquareMeters = *in.SquareMeters
	}
	if in.PropertyType != nil {
		a.PropertyType = *in.PropertyType
	}
	if in.Status != nil {
		a.Status = *in.Status
	}
	if in.Floor != nil {
		a.Floor = in.Floor
	}
	if in.YearBuilt != nil {
		a.YearBuilt = in.YearBuilt
	}
	if in.Notes != nil {
		a.Notes = *in.Notes
	}
	if in.Area != nil {
		a.Area = *in.Area
	}
	if in.City != nil {
		a.City = *in.City
	}
	if in.Region != nil {
		a.Region = *in.Region
	}
	if in.Lat != nil {
		a.Lat = decimal.NewNullDecimal(*in.Lat)
	}
	if in.Lng != nil {
		a.Lng = decimal.NewNullDecimal(*in.Lng)
	}
}

func validateApartment(a *models.Apartment) error {
	verr := &apperrors.ValidationError{}
	if a.Title == "" {
		verr.Add("title", "this field is required")
	}
	if a.Address == "" {
		verr.Add("address", "this field is required")
	}
	if a.SquareMeters <= 0 {
		verr.Add("square_meters", "must be a positive integer")
	}
	if !models.ValidPropertyType(a.PropertyType) {
		verr.Add("property_type", "invalid choice")
	}
	if !models.ValidApartmentStatus(a.Status) {
		verr.Add("status", "invalid choice")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// removeBlobs 事务提交后尽力删除文件，失败只记录日志
func removeBlobs(store storage.Store, keys []string) {
	if store == nil {
		return
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := store.Delete(context.Background(), key); err != nil {
			logger.GetLogger().WithError(err).WithField("key", key).Warn("Failed to delete document file")
		}
	}
}
