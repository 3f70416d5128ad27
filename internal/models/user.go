package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// 用户角色
const (
	RoleOwner      = "owner"
	RoleAdmin      = "admin"
	RoleAccountant = "accountant"
)

// User 用户模型
type User struct {
	BaseModel
	Username     string     `json:"username" gorm:"unique;not null;size:150;index"`
	Email        string     `json:"email" gorm:"size:254"`
	PasswordHash string     `json:"-" gorm:"not null;size:255"`
	Role         string     `json:"role" gorm:"not null;size:20;default:'owner';index"`
	IsActive     bool       `json:"is_active" gorm:"not null;default:true"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

// TableName 表名
func (u *User) TableName() string {
	return "users"
}

// IsAdmin 是否为管理员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SetPassword 设置密码
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword 验证密码
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// ValidRole 是否为已知角色
func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleAccountant:
		return true
	}
	return false
}
