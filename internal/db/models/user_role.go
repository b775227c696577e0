package models

import "time"

// UserRole links a user to a role.
// Inactive rows are kept for auditing but grant nothing.
type UserRole struct {
	// UserID is the ID of the user in this assignment.
	UserID uint64 `gorm:"primaryKey;column:user_id" json:"userId"`
	// RoleID is the ID of the role in this assignment.
	RoleID uint `gorm:"primaryKey;column:role_id;index" json:"roleId"`
	// IsActive marks the assignment as effective.
	IsActive bool `json:"isActive"`
	// AssignedBy is the ID of the user who made the assignment, 0 for the system.
	AssignedBy uint64 `json:"assignedBy"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName specifies the database table name for the UserRole model.
func (UserRole) TableName() string {
	return "user_roles"
}
