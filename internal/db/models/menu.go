package models

import (
	"time"

	"gorm.io/gorm"
)

// Menu HTTP methods. MenuMethodAny matches every method.
const (
	MenuMethodAny = "*"
)

// Menu is a node of the navigation tree.
type Menu struct {
	// ID is the unique identifier for the menu.
	ID uint `gorm:"primaryKey" json:"id"`
	// Name is the unique upper case code of the menu.
	Name string `gorm:"uniqueIndex;size:20;not null" json:"name"`
	// Title is the display title.
	Title string `gorm:"size:20;not null" json:"title"`
	// Path is the frontend route, empty for pure groups.
	Path string `gorm:"size:255;index" json:"path,omitempty"`
	// Icon is the frontend icon name.
	Icon string `gorm:"size:64" json:"icon,omitempty"`
	// Component is the frontend component to render.
	Component string `gorm:"size:255" json:"component,omitempty"`
	// Redirect is an optional redirect target.
	Redirect string `gorm:"size:255" json:"redirect,omitempty"`
	// ParentID references the parent menu, nil for roots.
	ParentID *uint `gorm:"index" json:"parentId,omitempty"`
	// Order sorts siblings ascending.
	Order int `gorm:"column:sort_order" json:"order"`
	// Visible hides the menu from user menus when false.
	Visible bool `json:"visible"`
	// Permissions required to see the menu, any one of them suffices.
	Permissions []string `gorm:"serializer:json;type:text" json:"permissions"`
	// Method and APIPath tie the menu to a backend route.
	Method  string `gorm:"size:8" json:"method"`
	APIPath string `gorm:"column:api_path;size:255" json:"apiPath,omitempty"`
	// Affix pins the menu tab in the frontend.
	Affix bool `json:"affix"`
	// NoCache disables frontend view caching.
	NoCache bool `json:"noCache"`
	// MenuType is a free form frontend classifier (e.g. "menu", "button").
	MenuType string `gorm:"size:20" json:"menuType,omitempty"`
	// CreatedAt is the timestamp when the menu was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the menu was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
	// DeletedAt is the soft delete timestamp (managed by GORM).
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the database table name for the Menu model.
func (Menu) TableName() string {
	return "menus"
}

// MenuRole restricts the visibility of a menu to a role.
// A menu without rows and without permissions is public.
type MenuRole struct {
	MenuID uint `gorm:"primaryKey;column:menu_id"`
	RoleID uint `gorm:"primaryKey;column:role_id;index"`
}

// TableName specifies the database table name for the MenuRole model.
func (MenuRole) TableName() string {
	return "menu_roles"
}
