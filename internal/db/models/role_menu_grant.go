package models

import "time"

// RoleMenuGrant holds the permissions a role has on a single menu.
// MenuID is nil for the grant carrying permissions without menu scope.
type RoleMenuGrant struct {
	// ID is the unique identifier for the grant.
	ID uint `gorm:"primaryKey" json:"-"`
	// RoleID is the owning role.
	RoleID uint `gorm:"uniqueIndex:idx_role_menu;not null" json:"-"`
	// MenuID is the menu the permissions apply to.
	MenuID *uint `gorm:"uniqueIndex:idx_role_menu" json:"menu"`
	// Permissions are the granted permission strings.
	Permissions []string `gorm:"serializer:json;type:text" json:"permissions"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// TableName specifies the database table name for the RoleMenuGrant model.
func (RoleMenuGrant) TableName() string {
	return "role_menu_grants"
}

// Unscoped reports whether the grant carries permissions without menu scope.
func (g *RoleMenuGrant) Unscoped() bool {
	return g.MenuID == nil
}
