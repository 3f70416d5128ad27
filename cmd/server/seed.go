package main

import (
	"fmt"

	"rentbook/internal/services"
	"rentbook/pkg/config"
	"rentbook/pkg/jwt"
	"rentbook/pkg/logger"

	"gorm.io/gorm"
)

// seedData 初始化种子数据
func seedData(db *gorm.DB, jwtManager *jwt.JWTManager, cfg *config.Config) error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting seed data initialization...")

	// 1. 创建默认管理员用户
	if err := createDefaultAdmin(db, jwtManager, &cfg.Admin); err != nil {
		return fmt.Errorf("创建默认管理员失败: %v", err)
	}

	appLogger.Info("Seed data initialization completed successfully")
	return nil
}

// createDefaultAdmin 不存在管理员时按配置创建；未配置密码时跳过
func createDefaultAdmin(db *gorm.DB, jwtManager *jwt.JWTManager, admin *config.AdminConfig) error {
	if admin.Password == "" {
		logger.GetLogger().Warn("ADMIN_PASSWORD 未设置，跳过默认管理员创建")
		return nil
	}

	created, err := services.NewUserService(db, jwtManager).EnsureAdmin(admin.Username, admin.Email, admin.Password)
	if err != nil {
		return err
	}
	if created {
		logger.GetLogger().WithField("username", admin.Username).Info("Default admin created")
	} else {
		logger.GetLogger().Info("管理员已存在，跳过创建")
	}
	return nil
}
