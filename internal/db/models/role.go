package models

import (
	"time"

	"gorm.io/gorm"
)

// Role represents a role in the role-based access control (RBAC) system.
// Its permissions live exclusively in Grants; a grant without MenuID holds
// the permissions that are not tied to a menu.
type Role struct {
	// ID is the unique identifier for the role.
	ID uint `gorm:"primaryKey" json:"id"`
	// Code is the unique upper case identifier of the role (e.g. "ADMIN").
	Code string `gorm:"uniqueIndex;size:20;not null" json:"code"`
	// Name is the display name of the role.
	Name string `gorm:"size:32;not null" json:"name"`
	// Description provides a human-readable description of the role's purpose.
	Description string `gorm:"size:200" json:"desc,omitempty"`
	// IsSystem indicates a system role that cannot be deleted.
	IsSystem bool `json:"isSystem"`
	// IsDefault roles are attached to newly registered users.
	IsDefault bool `json:"isDefault"`
	// IsActive is false for disabled roles, which grant nothing.
	IsActive bool `json:"isActive"`
	// Grants holds the menu scoped permission grants of the role.
	Grants []RoleMenuGrant `gorm:"foreignKey:RoleID" json:"menus"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
	// DeletedAt is the soft delete timestamp (managed by GORM).
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}
