package models

import (
	"time"

	"gorm.io/datatypes"
)

// 通知类型
const (
	NotificationOverduePayment   = "overdue_payment"
	NotificationContractEnding   = "contract_ending"
	NotificationContractStarting = "contract_starting"
	NotificationPaymentDue       = "payment_due"
	NotificationPaymentReceived  = "payment_received"
	NotificationOther            = "other"
)

// Notification 用户通知，created_at 创建后不可修改
type Notification struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	UserID           uint           `gorm:"not null;index:idx_notification_user_type" json:"user_id"`
	NotificationType string         `gorm:"size:30;not null;index:idx_notification_user_type" json:"notification_type"`
	Title            string         `gorm:"size:200;not null" json:"title"`
	Message          string         `gorm:"type:text" json:"message"`
	Payload          datatypes.JSON `json:"payload"`
	IsRead           bool           `gorm:"not null;default:false;index" json:"is_read"`
	CreatedAt        time.Time      `gorm:"<-:create;index" json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}
