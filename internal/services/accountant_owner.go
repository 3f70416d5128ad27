package services

import (
	"errors"

	"rentbook/internal/models"
	apperrors "rentbook/pkg/errors"
	"rentbook/pkg/pagination"

	"gorm.io/gorm"
)

// AccountantOwnerService 会计授权关系管理
type AccountantOwnerService struct {
	db *gorm.DB
}

func NewAccountantOwnerService(db *gorm.DB) *AccountantOwnerService {
	return &AccountantOwnerService{db: db}
}

// scope 管理员可见全部；业主可见授权给自己的；会计可见自己被授权的
func (s *AccountantOwnerService) scope(user *models.User) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch user.Role {
		case models.RoleAdmin:
			return db
		case models.RoleOwner:
			return db.Where("owner_id = ?", user.ID)
		case models.RoleAccountant:
			return db.Where("accountant_id = ?", user.ID)
		default:
			return db.Where("1 = 0")
		}
	}
}

// List 分页查询
func (s *AccountantOwnerService) List(user *models.User, page *pagination.PageParams) ([]models.AccountantOwner, int64, error) {
	var total int64
	query := s.db.Model(&models.AccountantOwner{}).Scopes(s.scope(user))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.AccountantOwner
	err := query.Preload("Accountant").Preload("Owner").
		Order("id").
		Scopes(page.Scope()).
		Find(&rows).Error
	return rows, total, err
}

// Get 获取单条授权
func (s *AccountantOwnerService) Get(user *models.User, id uint) (*models.AccountantOwner, error) {
	var row models.AccountantOwner
	err := s.db.Scopes(s.scope(user)).Preload("Accountant").Preload("Owner").First(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("accountant-owner link")
		}
		return nil, err
	}
	return &row, nil
}

// Create 建立授权：管理员任意；业主只能授权自己；会计禁止
func (s *AccountantOwnerService) Create(user *models.User, accountantID, ownerID uint) (*models.AccountantOwner, error) {
	if err := s.checkPair(user, accountantID, ownerID, 0); err != nil {
		return nil, err
	}

	row := &models.AccountantOwner{AccountantID: accountantID, OwnerID: ownerID}
	if err := s.db.Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflict("accountant %d is already linked to owner %d", accountantID, ownerID)
		}
		return nil, err
	}
	return s.Get(user, row.ID)
}

// Update 修改可见范围内的授权，新的组合按创建规则重新校验；未提供的一侧保持不变
func (s *AccountantOwnerService) Update(user *models.User, id uint, accountantID, ownerID *uint) (*models.AccountantOwner, error) {
	row, err := s.Get(user, id)
	if err != nil {
		return nil, err
	}
	nextAccountant, nextOwner := row.AccountantID, row.OwnerID
	if accountantID != nil {
		nextAccountant = *accountantID
	}
	if ownerID != nil {
		nextOwner = *ownerID
	}
	if err := s.checkPair(user, nextAccountant, nextOwner, row.ID); err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.AccountantOwner{}).Where("id = ?", row.ID).
		Updates(map[string]interface{}{"accountant_id": nextAccountant, "owner_id": nextOwner}).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflict("accountant %d is already linked to owner %d", nextAccountant, nextOwner)
		}
		return nil, err
	}
	return s.Get(user, row.ID)
}

// checkPair 校验调用者权限、双方角色以及组合唯一性；excludeID 为正在修改的记录
func (s *AccountantOwnerService) checkPair(user *models.User, accountantID, ownerID, excludeID uint) error {
	switch user.Role {
	case models.RoleAdmin:
	case models.RoleOwner:
		if ownerID != user.ID {
			return apperrors.Forbidden("owners can only delegate their own data")
		}
	default:
		return apperrors.Forbidden("only admins and owners can create delegations")
	}

	verr := &apperrors.ValidationError{}
	if err := s.checkRole(accountantID, models.RoleAccountant); err != nil {
		verr.Add("accountant_id", err.Error())
	}
	if err := s.checkRole(ownerID, models.RoleOwner); err != nil {
		verr.Add("owner_id", err.Error())
	}
	if verr.HasErrors() {
		return verr
	}

	var count int64
	if err := s.db.Model(&models.AccountantOwner{}).
		Where("accountant_id = ? AND owner_id = ? AND id <> ?", accountantID, ownerID, excludeID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperrors.Conflict("accountant %d is already linked to owner %d", accountantID, ownerID)
	}
	return nil
}

// Delete 删除可见范围内的授权
func (s *AccountantOwnerService) Delete(user *models.User, id uint) error {
	row, err := s.Get(user, id)
	if err != nil {
		return err
	}
	return s.db.Delete(&models.AccountantOwner{}, row.ID).Error
}

func (s *AccountantOwnerService) checkRole(userID uint, role string) error {
	var u models.User
	if err := s.db.Select("id", "role").First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("user not found")
		}
		return err
	}
	if u.Role != role {
		return errors.New("user must have role " + role)
	}
	return nil
}
