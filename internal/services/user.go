package services

import (
	"errors"
	"fmt"
	"strings"

	"rentbook/internal/models"
	apperrors "rentbook/pkg/errors"
	"rentbook/pkg/jwt"

	"gorm.io/gorm"
)

// UserService 用户注册与认证
type UserService struct {
	db         *gorm.DB
	jwtManager *jwt.JWTManager
}

// RegisterInput 注册参数
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

func NewUserService(db *gorm.DB, jwtManager *jwt.JWTManager) *UserService {
	return &UserService{
		db:         db,
		jwtManager: jwtManager,
	}
}

// Register 自助注册，只允许 owner 或 accountant，管理员只能通过初始化创建
func (s *UserService) Register(in RegisterInput) (*models.User, error) {
	role := in.Role
	if role == "" {
		role = models.RoleOwner
	}

	verr := &apperrors.ValidationError{}
	if !s.ValidateUsername(in.Username) {
		verr.Add("username", "must be 3-150 characters of letters, digits and @.+-_")
	}
	if in.Email != "" && !s.ValidateEmail(in.Email) {
		verr.Add("email", "invalid email address")
	}
	if err := s.ValidatePassword(in.Password); err != nil {
		verr.Add("password", err.Error())
	}
	if role != models.RoleOwner && role != models.RoleAccountant {
		verr.Add("role", "must be owner or accountant")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperrors.NewValidationError("username", "a user with that username already exists")
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Role:     role,
		IsActive: true,
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.NewValidationError("username", "a user with that username already exists")
		}
		return nil, err
	}
	return user, nil
}

// Authenticate 校验用户名密码并签发令牌对
func (s *UserService) Authenticate(username, password string) (*jwt.TokenPair, *models.User, error) {
	user, err := s.GetByUsername(username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: no active account found with the given credentials", apperrors.ErrUnauthorized)
		}
		return nil, nil, err
	}
	if !user.IsActive || !user.CheckPassword(password) {
		return nil, nil, fmt.Errorf("%w: no active account found with the given credentials", apperrors.ErrUnauthorized)
	}

	pair, err := s.jwtManager.GenerateTokenPair(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, nil, err
	}
	if err := s.UpdateLastLogin(user.ID); err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// Refresh 用刷新令牌换取新的访问令牌，用户须仍然有效
func (s *UserService) Refresh(refreshToken string) (string, error) {
	access, claims, err := s.jwtManager.RefreshToken(refreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: token is invalid or expired", apperrors.ErrUnauthorized)
	}
	user, err := s.GetByID(claims.UserID)
	if err != nil || !user.IsActive {
		return "", fmt.Errorf("%w: user is inactive or deleted", apperrors.ErrUnauthorized)
	}
	return access, nil
}

// GetByID 根据ID获取用户
func (s *UserService) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user")
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsername 根据用户名获取用户
func (s *UserService) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user")
		}
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin 更新最后登录时间
func (s *UserService) UpdateLastLogin(id uint) error {
	return s.db.Model(&models.User{}).Where("id = ?", id).Update("last_login_at", now().UTC()).Error
}

// EnsureAdmin 不存在管理员时创建，返回是否新建
func (s *UserService) EnsureAdmin(username, email, password string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if password == "" {
		return false, fmt.Errorf("admin password is empty")
	}

	admin := &models.User{
		Username: username,
		Email:    email,
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := admin.SetPassword(password); err != nil {
		return false, err
	}
	if err := s.db.Create(admin).Error; err != nil {
		return false, err
	}
	return true, nil
}

// IsActive 用户是否可用
func (s *UserService) IsActive(user *models.User) bool {
	return user != nil && user.IsActive
}

// ========== 验证相关方法 ==========

// ValidateUsername 验证用户名
func (s *UserService) ValidateUsername(username string) bool {
	if len(username) < 3 || len(username) > 150 {
		return false
	}
	for _, r := range username {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || strings.ContainsRune("@.+-_", r)) {
			return false
		}
	}
	return true
}

// ValidateEmail 验证邮箱
func (s *UserService) ValidateEmail(email string) bool {
	return strings.Contains(email, "@") && strings.Contains(email, ".") && len(email) >= 5 && len(email) <= 254
}

// ValidatePassword 验证密码
func (s *UserService) ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("must be at least 8 characters")
	}
	if len(password) > 128 {
		return fmt.Errorf("must be at most 128 characters")
	}
	return nil
}
