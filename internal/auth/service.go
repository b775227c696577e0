package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"github.com/go-rbac-admin/go-rbac-admin/internal/db/models"
)

const (
	whereID            = "id = ?"
	whereUserID        = "user_id = ?"
	whereUserAndRoleID = "user_id = ? AND role_id = ?"
)

// RoleValidator checks role ids before they are assigned to a user.
type RoleValidator interface {
	ValidateRolesExist(ctx context.Context, ids []uint) error
}

// PermissionCheckResult is the answer for one permission of CheckPermissions.
type PermissionCheckResult struct {
	Permission    string `json:"permission"`
	HasPermission bool   `json:"hasPermission"`
}

// Resolution is the effective access of a user.
type Resolution struct {
	UserID      uint64
	Active      bool
	Roles       []models.Role
	Permissions PermissionSet
}

// RoleIDs returns the ids of the resolved roles.
func (r *Resolution) RoleIDs() []uint {
	ids := make([]uint, 0, len(r.Roles))
	for _, role := range r.Roles {
		ids = append(ids, role.ID)
	}

	return ids
}

// RoleCodes returns the codes of the resolved roles.
func (r *Resolution) RoleCodes() []string {
	codes := make([]string, 0, len(r.Roles))
	for _, role := range r.Roles {
		codes = append(codes, role.Code)
	}

	return codes
}

// HasAnyRole reports whether one of the resolved roles has one of codes.
func (r *Resolution) HasAnyRole(codes []string) bool {
	return slices.ContainsFunc(r.Roles, func(role models.Role) bool {
		return slices.Contains(codes, role.Code)
	})
}

// Service resolves the roles and permissions of users.
type Service struct {
	db    *gorm.DB
	roles RoleValidator
}

// NewService creates a new auth service.
func NewService(db *gorm.DB, roles RoleValidator) *Service {
	return &Service{db: db, roles: roles}
}

// ResolveRoles returns the active roles of a user ordered by id. Roles are
// reached through the direct role of the user and through its active
// user_roles rows; deleted and disabled roles are skipped.
func (s *Service) ResolveRoles(ctx context.Context, userID uint64) ([]models.Role, error) {
	_, roles, err := s.resolveRoles(ctx, userID)

	return roles, err
}

func (s *Service) resolveRoles(ctx context.Context, userID uint64) (*models.User, []models.Role, error) {
	db := s.db.WithContext(ctx)

	var user models.User

	err := db.Select("id", "role_id", "active").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrUserNotFound
	}

	if err != nil {
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}

	var ids []uint
	if err := db.Model(&models.UserRole{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Pluck("role_id", &ids).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load user roles: %w", err)
	}

	if user.RoleID != nil {
		ids = append(ids, *user.RoleID)
	}

	roles := []models.Role{}
	if len(ids) == 0 {
		return &user, roles, nil
	}

	if err := db.Where("id IN ? AND is_active = ?", ids, true).Order("id").Find(&roles).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load roles: %w", err)
	}

	return &user, roles, nil
}

// Resolve returns the roles and the union of all their grants for a user.
func (s *Service) Resolve(ctx context.Context, userID uint64) (*Resolution, error) {
	user, roles, err := s.resolveRoles(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := &Resolution{UserID: userID, Active: user.Active, Roles: roles, Permissions: NewPermissionSet()}
	if len(roles) == 0 {
		return res, nil
	}

	var grants []models.RoleMenuGrant
	if err := s.db.WithContext(ctx).Where("role_id IN ?", res.RoleIDs()).Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("failed to load role grants: %w", err)
	}

	for _, g := range grants {
		res.Permissions.Add(g.Permissions...)
	}

	return res, nil
}

// ResolvePermissions returns the deduplicated permissions of a user.
func (s *Service) ResolvePermissions(ctx context.Context, userID uint64) (PermissionSet, error) {
	res, err := s.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	return res.Permissions, nil
}

// GetUserPermissions returns the permissions of a user sorted.
func (s *Service) GetUserPermissions(ctx context.Context, userID uint64) ([]string, error) {
	perms, err := s.ResolvePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	return perms.Sorted(), nil
}

// CheckPermission checks if a user satisfies a permission, wildcards included.
func (s *Service) CheckPermission(ctx context.Context, userID uint64, permission string) (bool, error) {
	perms, err := s.ResolvePermissions(ctx, userID)
	if err != nil {
		return false, err
	}

	return perms.Allows(permission), nil
}

// CheckPermissions answers every permission of the list, in input order.
func (s *Service) CheckPermissions(
	ctx context.Context,
	userID uint64,
	permissions []string,
) ([]PermissionCheckResult, error) {
	perms, err := s.ResolvePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]PermissionCheckResult, len(permissions))
	for i, p := range permissions {
		out[i] = PermissionCheckResult{Permission: p, HasPermission: perms.Allows(p)}
	}

	return out, nil
}

// HasAnyPermission checks if a user has at least one of the given permissions.
func (s *Service) HasAnyPermission(ctx context.Context, userID uint64, permissions []string) (bool, error) {
	if len(permissions) == 0 {
		return false, nil
	}

	perms, err := s.ResolvePermissions(ctx, userID)
	if err != nil {
		return false, err
	}

	return perms.AllowsAny(permissions), nil
}

// HasAllPermissions checks if a user has all of the given permissions.
func (s *Service) HasAllPermissions(ctx context.Context, userID uint64, permissions []string) (bool, error) {
	if len(permissions) == 0 {
		return true, nil
	}

	perms, err := s.ResolvePermissions(ctx, userID)
	if err != nil {
		return false, err
	}

	return perms.AllowsAll(permissions), nil
}

// GetUserRoleIDs returns the roles linked to a user by active user_roles rows.
func (s *Service) GetUserRoleIDs(ctx context.Context, userID uint64) ([]uint, error) {
	if err := s.ensureUser(s.db.WithContext(ctx), userID); err != nil {
		return nil, err
	}

	ids := []uint{}
	if err := s.db.WithContext(ctx).Model(&models.UserRole{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("role_id").
		Pluck("role_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load user roles: %w", err)
	}

	return ids, nil
}

// AssignRolesToUser replaces the user_roles rows of a user with roleIDs.
// Every role is validated before anything is written.
func (s *Service) AssignRolesToUser(ctx context.Context, userID uint64, roleIDs []uint, assignedBy uint64) error {
	db := s.db.WithContext(ctx)

	if err := s.ensureUser(db, userID); err != nil {
		return err
	}

	if err := s.roles.ValidateRolesExist(ctx, roleIDs); err != nil {
		return err //nolint:wrapcheck
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(whereUserID, userID).Delete(&models.UserRole{}).Error; err != nil {
			return fmt.Errorf("failed to clear user roles: %w", err)
		}

		rows := make([]models.UserRole, 0, len(roleIDs))
		for _, id := range roleIDs {
			if slices.ContainsFunc(rows, func(r models.UserRole) bool { return r.RoleID == id }) {
				continue
			}

			rows = append(rows, models.UserRole{UserID: userID, RoleID: id, IsActive: true, AssignedBy: assignedBy})
		}

		if len(rows) == 0 {
			return nil
		}

		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to assign user roles: %w", err)
		}

		return nil
	})
}

// AddRoleToUser links one more role to a user.
func (s *Service) AddRoleToUser(ctx context.Context, userID uint64, roleID uint, assignedBy uint64) error {
	db := s.db.WithContext(ctx)

	if err := s.ensureUser(db, userID); err != nil {
		return err
	}

	if err := s.roles.ValidateRolesExist(ctx, []uint{roleID}); err != nil {
		return err //nolint:wrapcheck
	}

	var count int64
	if err := db.Model(&models.UserRole{}).Where(whereUserAndRoleID, userID, roleID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check user role: %w", err)
	}

	if count > 0 {
		return ErrUserRoleExists
	}

	err := db.Create(&models.UserRole{UserID: userID, RoleID: roleID, IsActive: true, AssignedBy: assignedBy}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUserRoleExists
	}

	if err != nil {
		return fmt.Errorf("failed to add user role: %w", err)
	}

	return nil
}

// RemoveRoleFromUser unlinks a role from a user.
func (s *Service) RemoveRoleFromUser(ctx context.Context, userID uint64, roleID uint) error {
	res := s.db.WithContext(ctx).Where(whereUserAndRoleID, userID, roleID).Delete(&models.UserRole{})
	if res.Error != nil {
		return fmt.Errorf("failed to remove user role: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrUserRoleNotFound
	}

	return nil
}

// AssignRoleToUser sets the direct role of a user, nil clears it.
func (s *Service) AssignRoleToUser(ctx context.Context, userID uint64, roleID *uint) error {
	db := s.db.WithContext(ctx)

	if err := s.ensureUser(db, userID); err != nil {
		return err
	}

	if roleID != nil {
		if err := s.roles.ValidateRolesExist(ctx, []uint{*roleID}); err != nil {
			return err //nolint:wrapcheck
		}
	}

	if err := db.Model(&models.User{}).Where(whereID, userID).Update("role_id", roleID).Error; err != nil {
		return fmt.Errorf("failed to set user role: %w", err)
	}

	return nil
}

func (s *Service) ensureUser(db *gorm.DB, userID uint64) error {
	var count int64
	if err := db.Model(&models.User{}).Where(whereID, userID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}

	if count == 0 {
		return ErrUserNotFound
	}

	return nil
}
