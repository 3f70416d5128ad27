package database

import (
	"rentbook/internal/models"
	"rentbook/pkg/logger"

	"gorm.io/gorm"
)

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting database migration...")

	// 按依赖顺序：用户 -> 房源 -> 租客 -> 账单/文档 -> 通知
	err := db.AutoMigrate(
		&models.User{},
		&models.AccountantOwner{},
		&models.Apartment{},
		&models.Tenant{},
		&models.RentPayment{},
		&models.Document{},
		&models.Notification{},
	)
	if err != nil {
		appLogger.Errorf("Database migration failed: %v", err)
		return err
	}

	appLogger.Info("Database migration completed successfully")
	return nil
}
