package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/go-rbac-admin/go-rbac-admin/internal/config"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/models"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/paginate"
	"github.com/go-rbac-admin/go-rbac-admin/internal/validation"
)

// UserListOptions exposes the searchable and sortable user columns.
var UserListOptions = paginate.Options{ //nolint:gochecknoglobals
	SearchColumns: []string{"username", "email", "phone"},
	SortColumns: map[string]string{
		"userName":    "username",
		"createdAt":   "created_at",
		"lastLoginAt": "last_login_at",
	},
	DefaultSort:  "created_at",
	ActiveColumn: "active",
}

// RoleStore is what local accounts need from the role service.
type RoleStore interface {
	RoleValidator
	DefaultRoles(ctx context.Context) ([]models.Role, error)
}

// LoginInput are the credentials of a login.
type LoginInput struct {
	Username string `json:"userName" validate:"required"`
	Password string `json:"password" validate:"required"`
	TOTPCode string `json:"totpCode"`
	IP       string `json:"-"`
}

// RegisterInput creates an account. RoleIDs are only honoured for admin
// created accounts; without them the default roles are attached.
type RegisterInput struct {
	Username string `json:"userName" validate:"required,min=3,max=100"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	RoleIDs  []uint `json:"roles"`
}

// UpdateUserInput changes profile fields, nil fields are untouched.
type UpdateUserInput struct {
	Email  *string `json:"email" validate:"omitempty,email"`
	Phone  *string `json:"phone" validate:"omitempty,max=32"`
	Avatar *string `json:"avatar" validate:"omitempty,url"`
	Active *bool   `json:"isActive"`
}

type changePasswordInput struct {
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

// LocalProvider handles local database accounts.
type LocalProvider struct {
	db         *gorm.DB
	hasher     PasswordHasher
	roles      RoleStore
	lockout    config.Lockout
	totpIssuer string
	validate   *validator.Validate
	now        func() time.Time
}

// NewLocalProvider creates a new local authentication provider.
func NewLocalProvider(db *gorm.DB, hasher PasswordHasher, roles RoleStore, cfg config.Auth) *LocalProvider {
	return &LocalProvider{
		db:         db,
		hasher:     hasher,
		roles:      roles,
		lockout:    cfg.Lockout,
		totpIssuer: cfg.TOTPIssuer,
		validate:   validation.New(),
		now:        time.Now,
	}
}

// Authenticate checks credentials, lockout and the second factor.
// Consecutive failures lock the account for the configured duration.
func (p *LocalProvider) Authenticate(ctx context.Context, in LoginInput) (*models.User, error) {
	if err := validation.Struct(p.validate, in); err != nil {
		return nil, err
	}

	db := p.db.WithContext(ctx)

	var user models.User

	err := db.Where("username = ?", strings.TrimSpace(in.Username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if !user.Active {
		return nil, ErrUserAccountDisabled
	}

	now := p.now()
	if user.Locked(now) {
		return nil, ErrUserAccountLocked
	}

	if !p.hasher.Compare(in.Password, user.Password) {
		if err := p.registerFailure(db, user.ID, now); err != nil {
			return nil, err
		}

		return nil, ErrInvalidCredentials
	}

	if err := verifyTOTP(&user, in.TOTPCode, now); err != nil {
		if errors.Is(err, ErrInvalidTOTP) {
			if ferr := p.registerFailure(db, user.ID, now); ferr != nil {
				return nil, ferr
			}
		}

		return nil, err
	}

	updates := map[string]any{
		"failed_login_attempts": 0,
		"lock_until":            nil,
		"last_login_at":         now,
		"last_login_ip":         in.IP,
	}
	if err := db.Model(&models.User{}).Where(whereID, user.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	user.FailedLoginAttempts = 0
	user.LockUntil = nil
	user.LastLoginAt = &now
	user.LastLoginIP = in.IP

	return &user, nil
}

// registerFailure counts a failed login and locks the account at the limit.
func (p *LocalProvider) registerFailure(db *gorm.DB, userID uint64, now time.Time) error {
	if err := db.Model(&models.User{}).Where(whereID, userID).
		Update("failed_login_attempts", gorm.Expr("failed_login_attempts + ?", 1)).Error; err != nil {
		return fmt.Errorf("failed to count login failure: %w", err)
	}

	if p.lockout.MaxAttempts <= 0 {
		return nil
	}

	res := db.Model(&models.User{}).
		Where("id = ? AND failed_login_attempts >= ?", userID, p.lockout.MaxAttempts).
		Updates(map[string]any{
			"failed_login_attempts": 0,
			"lock_until":            now.Add(p.lockout.Duration),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to lock user: %w", res.Error)
	}

	return nil
}

// Register creates an account with the default roles.
func (p *LocalProvider) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.RoleIDs = nil

	return p.CreateUser(ctx, in, 0)
}

// CreateUser creates an account. The given roles are validated before
// anything is written; without roles the default roles are attached.
func (p *LocalProvider) CreateUser(ctx context.Context, in RegisterInput, createdBy uint64) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)

	if err := validation.Struct(p.validate, in); err != nil {
		return nil, err
	}

	roleIDs := in.RoleIDs
	if len(roleIDs) > 0 {
		if err := p.roles.ValidateRolesExist(ctx, roleIDs); err != nil {
			return nil, err //nolint:wrapcheck
		}
	} else {
		defaults, err := p.roles.DefaultRoles(ctx)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		for _, r := range defaults {
			roleIDs = append(roleIDs, r.ID)
		}
	}

	digest, err := p.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Active:   true,
		Username: in.Username,
		Email:    in.Email,
		Phone:    in.Phone,
		Password: digest,
	}

	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Unscoped().Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check existing user: %w", err)
		}

		if count > 0 {
			return ErrUserNameExists
		}

		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUserNameExists
			}

			return fmt.Errorf("failed to create user: %w", err)
		}

		rows := make([]models.UserRole, 0, len(roleIDs))
		for _, id := range uniqueRoleIDs(roleIDs) {
			rows = append(rows, models.UserRole{UserID: user.ID, RoleID: id, IsActive: true, AssignedBy: createdBy})
		}

		if len(rows) == 0 {
			return nil
		}

		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to assign user roles: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// UpdateUser applies the non nil fields of in.
func (p *LocalProvider) UpdateUser(ctx context.Context, userID uint64, in UpdateUserInput) (*models.User, error) {
	if err := validation.Struct(p.validate, in); err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if in.Email != nil {
		updates["email"] = *in.Email
	}

	if in.Phone != nil {
		updates["phone"] = *in.Phone
	}

	if in.Avatar != nil {
		updates["avatar"] = *in.Avatar
	}

	if in.Active != nil {
		updates["active"] = *in.Active
	}

	if _, err := p.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		if err := p.db.WithContext(ctx).Model(&models.User{}).Where(whereID, userID).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}

	return p.GetUserByID(ctx, userID)
}

// ChangePassword changes a user's password after checking the old one.
func (p *LocalProvider) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	if err := validation.Struct(p.validate, changePasswordInput{NewPassword: newPassword}); err != nil {
		return err
	}

	user, err := p.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if !p.hasher.Compare(oldPassword, user.Password) {
		return ErrInvalidOldPassword
	}

	digest, err := p.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := p.db.WithContext(ctx).Model(&models.User{}).
		Where(whereID, userID).
		Update("password", digest).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// DeleteUser soft deletes a user and removes its role assignments.
func (p *LocalProvider) DeleteUser(ctx context.Context, userID uint64) error {
	return p.DeleteUsers(ctx, []uint64{userID})
}

// DeleteUsers soft deletes users and removes their role assignments.
// Unknown ids fail the whole batch.
func (p *LocalProvider) DeleteUsers(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check users: %w", err)
		}

		if int(count) != len(uniqueUserIDs(ids)) {
			return ErrUserNotFound
		}

		if err := tx.Where("user_id IN ?", ids).Delete(&models.UserRole{}).Error; err != nil {
			return fmt.Errorf("failed to delete user roles: %w", err)
		}

		if err := tx.Where("id IN ?", ids).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("failed to delete users: %w", err)
		}

		return nil
	})
}

// GetUserByID retrieves a user by ID.
func (p *LocalProvider) GetUserByID(ctx context.Context, userID uint64) (*models.User, error) {
	var user models.User

	err := p.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return &user, nil
}

// ListUsers returns a page of users.
func (p *LocalProvider) ListUsers(ctx context.Context, f paginate.Filter) (paginate.Result[models.User], error) {
	page, err := paginate.Find[models.User](p.db.WithContext(ctx), f, UserListOptions)
	if err != nil {
		return page, fmt.Errorf("failed to list users: %w", err)
	}

	return page, nil
}

func uniqueRoleIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))

	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	return out
}

func uniqueUserIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))

	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	return out
}
