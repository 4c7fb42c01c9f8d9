package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryDetail is a reusable delivery-address record. Guest rows carry no
// owner and are never listed; at most one row per owner is the default.
type DeliveryDetail struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    *uuid.UUID `gorm:"column:user_id;type:uuid;index" json:"userId,omitempty"`
	Name      string     `gorm:"column:name;not null" json:"name"`
	Email     string     `gorm:"column:email;not null" json:"email"`
	Phone     string     `gorm:"column:phone;not null" json:"phone"`
	Address   string     `gorm:"column:address;not null" json:"address"`
	IsDefault bool       `gorm:"column:is_default;not null;default:false" json:"isDefault"`
	IsGuest   bool       `gorm:"column:is_guest;not null;default:false" json:"isGuest"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
