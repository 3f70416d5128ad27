package services

import (
	"rentbook/internal/models"

	"gorm.io/gorm"
)

// OwnerScope 调用者可见的业务主（owner）集合：不受限，或限定为一组 owner id
type OwnerScope struct {
	unrestricted bool
	ownerIDs     []uint
}

// Unrestricted 可见全部数据
func Unrestricted() OwnerScope {
	return OwnerScope{unrestricted: true}
}

// RestrictedTo 仅可见给定 owner 的数据，空集合表示不可见任何数据
func RestrictedTo(ownerIDs ...uint) OwnerScope {
	ids := make([]uint, len(ownerIDs))
	copy(ids, ownerIDs)
	return OwnerScope{ownerIDs: ids}
}

// IsUnrestricted 是否不受限
func (s OwnerScope) IsUnrestricted() bool {
	return s.unrestricted
}

// OwnerIDs 受限时的 owner id 列表
func (s OwnerScope) OwnerIDs() []uint {
	return s.ownerIDs
}

// Allows 是否可见指定 owner 的数据
func (s OwnerScope) Allows(ownerID uint) bool {
	if s.unrestricted {
		return true
	}
	for _, id := range s.ownerIDs {
		if id == ownerID {
			return true
		}
	}
	return false
}

// Apartments 房源查询范围
func (s OwnerScope) Apartments(db *gorm.DB) *gorm.DB {
	if s.unrestricted {
		return db
	}
	if len(s.ownerIDs) == 0 {
		return db.Where("1 = 0")
	}
	return db.Where("apartments.owner_id IN ?", s.ownerIDs)
}

// Tenants 租客查询范围：Tenant -> Apartment -> owner
func (s OwnerScope) Tenants(db *gorm.DB) *gorm.DB {
	if s.unrestricted {
		return db
	}
	if len(s.ownerIDs) == 0 {
		return db.Where("1 = 0")
	}
	return db.Where("tenants.apartment_id IN (?)", s.apartmentIDs(db))
}

// Payments 账单查询范围：RentPayment -> Tenant -> Apartment -> owner
func (s OwnerScope) Payments(db *gorm.DB) *gorm.DB {
	if s.unrestricted {
		return db
	}
	if len(s.ownerIDs) == 0 {
		return db.Where("1 = 0")
	}
	return db.Where("rent_payments.tenant_id IN (?)", s.tenantIDs(db))
}

// Documents 文档查询范围：经租客或直接经房源归属
func (s OwnerScope) Documents(db *gorm.DB) *gorm.DB {
	if s.unrestricted {
		return db
	}
	if len(s.ownerIDs) == 0 {
		return db.Where("1 = 0")
	}
	return db.Where("(documents.tenant_id IN (?) OR documents.apartment_id IN (?))",
		s.tenantIDs(db), s.apartmentIDs(db))
}

func (s OwnerScope) apartmentIDs(db *gorm.DB) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Apartment{}).
		Select("apartments.id").
		Where("apartments.owner_id IN ?", s.ownerIDs)
}

func (s OwnerScope) tenantIDs(db *gorm.DB) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Tenant{}).
		Select("tenants.id").
		Where("tenants.apartment_id IN (?)", s.apartmentIDs(db))
}

// AccessResolver 根据角色计算可见范围
type AccessResolver struct {
	db *gorm.DB
}

// NewAccessResolver 创建解析器
func NewAccessResolver(db *gorm.DB) *AccessResolver {
	return &AccessResolver{db: db}
}

// Resolve 管理员不受限；业主仅自己；会计为被授权的业主集合；其他角色不可见任何数据
func (r *AccessResolver) Resolve(user *models.User) (OwnerScope, error) {
	switch user.Role {
	case models.RoleAdmin:
		return Unrestricted(), nil
	case models.RoleOwner:
		return RestrictedTo(user.ID), nil
	case models.RoleAccountant:
		var ownerIDs []uint
		err := r.db.Model(&models.AccountantOwner{}).
			Where("accountant_id = ?", user.ID).
			Order("owner_id").
			Pluck("owner_id", &ownerIDs).Error
		if err != nil {
			return OwnerScope{}, err
		}
		return RestrictedTo(ownerIDs...), nil
	default:
		return RestrictedTo(), nil
	}
}

// Actor 当前请求的调用者及其可见范围
type Actor struct {
	User  *models.User
	Scope OwnerScope
}

// NewActor 组装调用者
func NewActor(user *models.User, scope OwnerScope) *Actor {
	return &Actor{User: user, Scope: scope}
}
