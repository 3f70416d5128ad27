package models

import "time"

// AccountantOwner 会计-业主授权关系，会计可读写该业主的全部数据
type AccountantOwner struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	AccountantID uint      `gorm:"not null;uniqueIndex:idx_accountant_owner" json:"accountant_id"`
	OwnerID      uint      `gorm:"not null;uniqueIndex:idx_accountant_owner;index" json:"owner_id"`
	CreatedAt    time.Time `json:"created_at"`

	Accountant *User `gorm:"foreignKey:AccountantID;constraint:OnDelete:CASCADE" json:"accountant,omitempty"`
	Owner      *User `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
}

// TableName 指定表名
func (AccountantOwner) TableName() string {
	return "accountant_owners"
}
