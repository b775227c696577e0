package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account of the admin console.
// A user reaches roles in two ways: the optional direct RoleID and any
// number of UserRole rows. Both are honoured when permissions are resolved.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey" json:"id"`
	// Active indicates whether the user account is active and can log in.
	Active bool `json:"isActive"`
	// Username is the unique username for login.
	Username string `gorm:"uniqueIndex;size:100;not null" json:"userName"`
	// Email is the user's email address.
	Email string `gorm:"size:255" json:"email"`
	// Phone is an optional phone number.
	Phone string `gorm:"size:32" json:"phone,omitempty"`
	// Avatar is an optional avatar url.
	Avatar string `gorm:"size:255" json:"avatar,omitempty"`
	// Password is the hashed credential digest.
	Password string `gorm:"size:255" json:"-"`
	// RoleID is the optional direct role of the user.
	RoleID *uint `gorm:"column:role_id;index" json:"roleId,omitempty"`
	// FailedLoginAttempts counts consecutive failed logins since the last success or lock.
	FailedLoginAttempts int `json:"-"`
	// LockUntil blocks logins until the given time.
	LockUntil *time.Time `json:"lockUntil,omitempty"`
	// LastLoginAt is the time of the last successful login.
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	// LastLoginIP is the client address of the last successful login.
	LastLoginIP string `gorm:"column:last_login_ip;size:64" json:"lastLoginIp,omitempty"`
	// TOTPSecret is the base32 secret of the confirmed second factor.
	TOTPSecret string `gorm:"column:totp_secret;size:64" json:"-"`
	// TOTPPending holds an enrolled secret until it is confirmed and swapped in.
	TOTPPending string `gorm:"column:totp_pending;size:64" json:"-"`
	// TOTPEnabled is set once an enrollment has been confirmed with a valid code.
	TOTPEnabled bool `gorm:"column:totp_enabled" json:"totpEnabled"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
	// DeletedAt is the soft delete timestamp (managed by GORM).
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// Locked reports whether logins are blocked at now.
func (u *User) Locked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}
