package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 房源状态
const (
	ApartmentStatusVacant      = "vacant"
	ApartmentStatusRented      = "rented"
	ApartmentStatusMaintenance = "maintenance"
)

// 房产类型
const (
	PropertyTypeApartment = "apartment"
	PropertyTypeHouse     = "house"
	PropertyTypeDetached  = "detached"
	PropertyTypeOffice    = "office"
	PropertyTypeLand      = "land"
)

// Apartment 房源
type Apartment struct {
	BaseModel
	OwnerID      uint                `gorm:"not null;index" json:"owner_id"`
	Title        string              `gorm:"size:150;not null" json:"title"`
	Address      string              `gorm:"size:255;not null" json:"address"`
	SquareMeters int                 `gorm:"not null" json:"square_meters"`
	PropertyType string              `gorm:"size:30;not null;default:'apartment'" json:"property_type"`
	Status       string              `gorm:"size:20;not null;default:'vacant';index" json:"status"`
	IsRented     bool                `gorm:"not null;default:false" json:"is_rented"`
	Floor        *int                `json:"floor"`
	YearBuilt    *int                `json:"year_built"`
	Notes        string              `gorm:"type:text" json:"notes"`
	Area         string              `gorm:"size:120" json:"area"`
	City         string              `gorm:"size:120;index" json:"city"`
	Region       string              `gorm:"size:120" json:"region"`
	Lat          decimal.NullDecimal `gorm:"type:numeric(9,6)" json:"lat"`
	Lng          decimal.NullDecimal `gorm:"type:numeric(9,6)" json:"lng"`

	Owner     *User      `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	Tenants   []Tenant   `gorm:"foreignKey:ApartmentID;constraint:OnDelete:CASCADE" json:"-"`
	Documents []Document `gorm:"foreignKey:ApartmentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 指定表名
func (Apartment) TableName() string {
	return "apartments"
}

// BeforeSave is_rented 始终由 status 推导
func (a *Apartment) BeforeSave(tx *gorm.DB) error {
	a.IsRented = a.Status == ApartmentStatusRented
	return nil
}

// ValidApartmentStatus 是否为合法状态
func ValidApartmentStatus(status string) bool {
	switch status {
	case ApartmentStatusVacant, ApartmentStatusRented, ApartmentStatusMaintenance:
		return true
	}
	return false
}

// ValidPropertyType 是否为合法房产类型
func ValidPropertyType(t string) bool {
	switch t {
	case PropertyTypeApartment, PropertyTypeHouse, PropertyTypeDetached, PropertyTypeOffice, PropertyTypeLand:
		return true
	}
	return false
}
