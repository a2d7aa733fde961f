package models

import (
	"time"

	"gorm.io/gorm"
)

// SellerRole defines local account roles
const (
	RoleSeller   = "seller"
	RoleReviewer = "reviewer"
)

// SellerAccount is a locally cached seller identity so login keeps working
// while the ledger is unreachable.
// Standardized: Go (PascalCase) -> DB (snake_case) -> JSON (camelCase)
type SellerAccount struct {
	ID                  string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Username            string     `gorm:"unique;not null" json:"username"`
	Password            string     `gorm:"not null" json:"-"`
	Name                string     `json:"name,omitempty"`
	Role                string     `gorm:"default:'seller'" json:"role"`
	WarehouseID         string     `gorm:"type:varchar(64)" json:"warehouseId,omitempty"`
	IsActive            bool       `gorm:"default:true" json:"isActive"`
	LastLogin           *time.Time `json:"lastLogin,omitempty"`
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for SellerAccount
func (SellerAccount) TableName() string {
	return "seller_accounts"
}

// IsReviewer reports whether this account may resolve conflicts for other sellers
func (s *SellerAccount) IsReviewer() bool {
	return s.Role == RoleReviewer
}
