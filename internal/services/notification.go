package services

import (
	"errors"

	"rentbook/internal/models"
	apperrors "rentbook/pkg/errors"
	"rentbook/pkg/pagination"

	"gorm.io/gorm"
)

// NotificationService 当前用户自己的通知
type NotificationService struct {
	db *gorm.DB
}

// NotificationFilter 列表过滤条件
type NotificationFilter struct {
	IsRead           *bool
	NotificationType string
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// List 分页查询，按创建时间倒序
func (s *NotificationService) List(userID uint, filter NotificationFilter, page *pagination.PageParams) ([]models.Notification, int64, error) {
	query := s.db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if filter.IsRead != nil {
		query = query.Where("is_read = ?", *filter.IsRead)
	}
	if filter.NotificationType != "" {
		query = query.Where("notification_type = ?", filter.NotificationType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	err := query.Order("created_at DESC").Order("id DESC").Scopes(page.Scope()).Find(&notifications).Error
	return notifications, total, err
}

// Get 获取通知
func (s *NotificationService) Get(userID, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.Where("user_id = ?", userID).First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("notification")
		}
		return nil, err
	}
	return &n, nil
}

// SetRead 设置已读状态，通知其余字段不可修改
func (s *NotificationService) SetRead(userID, id uint, isRead bool) (*models.Notification, error) {
	n, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(n).Update("is_read", isRead).Error; err != nil {
		return nil, err
	}
	n.IsRead = isRead
	return n, nil
}

// MarkAsRead 标记已读
func (s *NotificationService) MarkAsRead(userID, id uint) (*models.Notification, error) {
	return s.SetRead(userID, id, true)
}

// MarkAllAsRead 全部标记已读，返回更新条数
func (s *NotificationService) MarkAllAsRead(userID uint) (int64, error) {
	res := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// UnreadCount 未读数量
func (s *NotificationService) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&count).Error
	return count, err
}

// Delete 删除通知
func (s *NotificationService) Delete(userID, id uint) error {
	n, err := s.Get(userID, id)
	if err != nil {
		return err
	}
	return s.db.Delete(&models.Notification{}, n.ID).Error
}
