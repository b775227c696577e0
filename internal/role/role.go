// Package role manages roles and their menu scoped permission grants.
//
// A role carries its permissions only as grants. The grant without a menu
// holds the permissions that are not bound to a menu (the former flat list);
// every other grant scopes its permissions to one menu. The effective
// permissions of a role are the union of all its grants.
package role

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/go-rbac-admin/go-rbac-admin/internal/auth"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/models"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/paginate"
	"github.com/go-rbac-admin/go-rbac-admin/internal/validation"
)

const (
	whereID            = "id = ?"
	whereRoleID        = "role_id = ?"
	whereRoleUnscoped  = "role_id = ? AND menu_id IS NULL"
	whereRoleAndMenuID = "role_id = ? AND menu_id = ?"
)

// ListOptions exposes the searchable and sortable role columns.
var ListOptions = paginate.Options{ //nolint:gochecknoglobals
	SearchColumns: []string{"code", "name"},
	SortColumns: map[string]string{
		"code":      "code",
		"name":      "name",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	},
	DefaultSort:  "created_at",
	ActiveColumn: "is_active",
}

// CreateInput describes a new role. Permissions become the unscoped grant.
type CreateInput struct {
	Code        string   `json:"code" validate:"required,min=2,max=20,code"`
	Name        string   `json:"name" validate:"required,max=32"`
	Description string   `json:"desc" validate:"max=200"`
	Permissions []string `json:"permissions" validate:"dive,permission"`
	IsDefault   bool     `json:"isDefault"`
	IsSystem    bool     `json:"isSystem"`
}

// UpdateInput changes a role. Nil fields are left untouched; a non nil
// Permissions replaces the unscoped grant.
type UpdateInput struct {
	Name        *string  `json:"name" validate:"omitempty,max=32"`
	Description *string  `json:"desc" validate:"omitempty,max=200"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,permission"`
	IsDefault   *bool    `json:"isDefault"`
	Disabled    *bool    `json:"disabled"`
}

// GrantInput is one row of a role's menu permission matrix.
type GrantInput struct {
	MenuID      uint     `json:"menuId" validate:"required"`
	Permissions []string `json:"permissions" validate:"dive,permission"`
}

type grantsInput struct {
	Grants []GrantInput `validate:"dive"`
}

type permissionsInput struct {
	Permissions []string `json:"permissions" validate:"dive,permission"`
}

// Service manages roles and their grants.
type Service struct {
	db       *gorm.DB
	validate *validator.Validate
}

// NewService creates a new role service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, validate: validation.New()}
}

// Create stores a new active role. The code is trimmed and upper cased.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Role, error) {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)

	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}

	role := models.Role{
		Code:        in.Code,
		Name:        in.Name,
		Description: in.Description,
		IsDefault:   in.IsDefault,
		IsSystem:    in.IsSystem,
		IsActive:    true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Unscoped().Model(&models.Role{}).Where("code = ?", in.Code).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check role code: %w", err)
		}

		if count > 0 {
			return ErrRoleCodeExists
		}

		if err := tx.Create(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrRoleCodeExists
			}

			return fmt.Errorf("failed to create role: %w", err)
		}

		if perms := validation.NormalizePermissions(in.Permissions); len(perms) > 0 {
			return replaceUnscoped(tx, role.ID, perms)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, role.ID)
}

// Get returns a role with its grants.
func (s *Service) Get(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role

	err := s.db.WithContext(ctx).
		Preload("Grants", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&role, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load role: %w", err)
	}

	return &role, nil
}

// List returns a page of roles with their grants.
func (s *Service) List(ctx context.Context, f paginate.Filter) (paginate.Result[models.Role], error) {
	page, err := paginate.Find[models.Role](s.db.WithContext(ctx), f, ListOptions)
	if err != nil {
		return page, fmt.Errorf("failed to list roles: %w", err)
	}

	if len(page.Data) == 0 {
		return page, nil
	}

	ids := make([]uint, 0, len(page.Data))
	for _, r := range page.Data {
		ids = append(ids, r.ID)
	}

	var grants []models.RoleMenuGrant
	if err := s.db.WithContext(ctx).Where("role_id IN ?", ids).Order("id").Find(&grants).Error; err != nil {
		return page, fmt.Errorf("failed to load role grants: %w", err)
	}

	for i := range page.Data {
		page.Data[i].Grants = []models.RoleMenuGrant{}

		for _, g := range grants {
			if g.RoleID == page.Data[i].ID {
				page.Data[i].Grants = append(page.Data[i].Grants, g)
			}
		}
	}

	return page, nil
}

// Update applies the non nil fields of in.
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.Role, error) {
	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}

	if in.Description != nil {
		updates["description"] = *in.Description
	}

	if in.IsDefault != nil {
		updates["is_default"] = *in.IsDefault
	}

	if in.Disabled != nil {
		updates["is_active"] = !*in.Disabled
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRole(tx, id); err != nil {
			return err
		}

		if len(updates) > 0 {
			if err := tx.Model(&models.Role{}).Where(whereID, id).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update role: %w", err)
			}
		}

		if in.Permissions != nil {
			return replaceUnscoped(tx, id, validation.NormalizePermissions(in.Permissions))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// AssignPermissions adds perms to the unscoped grant of a role, keeping the
// permissions it already has.
func (s *Service) AssignPermissions(ctx context.Context, roleID uint, perms []string) (*models.Role, error) {
	if err := validation.Struct(s.validate, permissionsInput{Permissions: perms}); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRole(tx, roleID); err != nil {
			return err
		}

		var current models.RoleMenuGrant

		err := tx.Where(whereRoleUnscoped, roleID).First(&current).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load role permissions: %w", err)
		}

		return replaceUnscoped(tx, roleID, validation.NormalizePermissions(append(current.Permissions, perms...)))
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, roleID)
}

// SetGrant sets the permissions of a role on one menu. An existing grant
// for the pair is replaced, otherwise a new one is added.
func (s *Service) SetGrant(ctx context.Context, roleID, menuID uint, perms []string) (*models.Role, error) {
	if err := validation.Struct(s.validate, GrantInput{MenuID: menuID, Permissions: perms}); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRole(tx, roleID); err != nil {
			return err
		}

		if err := ensureMenus(tx, []uint{menuID}); err != nil {
			return err
		}

		grant := models.RoleMenuGrant{
			RoleID:      roleID,
			MenuID:      &menuID,
			Permissions: validation.NormalizePermissions(perms),
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "role_id"}, {Name: "menu_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"permissions", "updated_at"}),
		}).Create(&grant).Error; err != nil {
			return fmt.Errorf("failed to save grant: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, roleID)
}

// SetGrantsBatch replaces the whole grant list of a role with grants.
//
// This is destructive: every grant the role had before, including the
// unscoped one, is removed first, so an empty list clears the role. When a
// menu appears more than once the last entry wins. Nothing is written if
// the role or any menu is missing.
func (s *Service) SetGrantsBatch(ctx context.Context, roleID uint, grants []GrantInput) (*models.Role, error) {
	if err := validation.Struct(s.validate, grantsInput{Grants: grants}); err != nil {
		return nil, err
	}

	rows := collapseGrants(roleID, grants)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRole(tx, roleID); err != nil {
			return err
		}

		menuIDs := make([]uint, 0, len(rows))
		for _, r := range rows {
			menuIDs = append(menuIDs, *r.MenuID)
		}

		if err := ensureMenus(tx, menuIDs); err != nil {
			return err
		}

		if err := tx.Where(whereRoleID, roleID).Delete(&models.RoleMenuGrant{}).Error; err != nil {
			return fmt.Errorf("failed to clear grants: %w", err)
		}

		if len(rows) == 0 {
			return nil
		}

		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to save grants: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, roleID)
}

// GetEffectivePermissions returns the sorted union of all grants of a role.
// A missing role has no permissions.
func (s *Service) GetEffectivePermissions(ctx context.Context, roleID uint) ([]string, error) {
	var grants []models.RoleMenuGrant
	if err := s.db.WithContext(ctx).Where(whereRoleID, roleID).Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("failed to load grants: %w", err)
	}

	set := auth.NewPermissionSet()
	for _, g := range grants {
		set.Add(g.Permissions...)
	}

	return set.Sorted(), nil
}

// GetMenuPermissions returns the permissions a role holds on a menu, empty
// when there is no grant.
func (s *Service) GetMenuPermissions(ctx context.Context, roleID, menuID uint) ([]string, error) {
	var grant models.RoleMenuGrant

	err := s.db.WithContext(ctx).Where(whereRoleAndMenuID, roleID, menuID).First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []string{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load grant: %w", err)
	}

	if grant.Permissions == nil {
		return []string{}, nil
	}

	return grant.Permissions, nil
}

// ValidateRolesExist fails with ErrInvalidRoles naming every id that does
// not reference a role. Duplicates are ignored.
func (s *Service) ValidateRolesExist(ctx context.Context, ids []uint) error {
	want := uniqueIDs(ids)
	if len(want) == 0 {
		return nil
	}

	var found []uint
	if err := s.db.WithContext(ctx).Model(&models.Role{}).Where("id IN ?", want).Pluck("id", &found).Error; err != nil {
		return fmt.Errorf("failed to check roles: %w", err)
	}

	if missing := missingIDs(want, found); len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRoles, missing)
	}

	return nil
}

// Delete soft deletes a role together with its grants and menu visibility rows.
// System roles and roles referenced by users are refused.
func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role models.Role

		err := tx.First(&role, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoleNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to load role: %w", err)
		}

		if role.IsSystem {
			return ErrSystemRole
		}

		var direct, linked int64
		if err := tx.Model(&models.User{}).Where(whereRoleID, id).Count(&direct).Error; err != nil {
			return fmt.Errorf("failed to count role users: %w", err)
		}

		if err := tx.Model(&models.UserRole{}).Where(whereRoleID, id).Count(&linked).Error; err != nil {
			return fmt.Errorf("failed to count role assignments: %w", err)
		}

		if direct+linked > 0 {
			return ErrRoleInUse
		}

		if err := tx.Where(whereRoleID, id).Delete(&models.RoleMenuGrant{}).Error; err != nil {
			return fmt.Errorf("failed to delete role grants: %w", err)
		}

		if err := tx.Where(whereRoleID, id).Delete(&models.MenuRole{}).Error; err != nil {
			return fmt.Errorf("failed to delete role menus: %w", err)
		}

		if err := tx.Delete(&role).Error; err != nil {
			return fmt.Errorf("failed to delete role: %w", err)
		}

		return nil
	})
}

// DefaultRoles returns the active roles attached to new users.
func (s *Service) DefaultRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role

	if err := s.db.WithContext(ctx).
		Where("is_default = ? AND is_active = ?", true, true).
		Order("id").
		Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to load default roles: %w", err)
	}

	return roles, nil
}

func ensureRole(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.Role{}).Where(whereID, id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check role: %w", err)
	}

	if count == 0 {
		return ErrRoleNotFound
	}

	return nil
}

func ensureMenus(tx *gorm.DB, ids []uint) error {
	want := uniqueIDs(ids)
	if len(want) == 0 {
		return nil
	}

	var found []uint
	if err := tx.Model(&models.Menu{}).Where("id IN ?", want).Pluck("id", &found).Error; err != nil {
		return fmt.Errorf("failed to check menus: %w", err)
	}

	if missing := missingIDs(want, found); len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMenuNotFound, missing)
	}

	return nil
}

// replaceUnscoped swaps the unscoped grant of a role for perms.
// NULL menu ids never collide in the unique index, so this is a delete and insert.
func replaceUnscoped(tx *gorm.DB, roleID uint, perms []string) error {
	if err := tx.Where(whereRoleUnscoped, roleID).Delete(&models.RoleMenuGrant{}).Error; err != nil {
		return fmt.Errorf("failed to clear role permissions: %w", err)
	}

	if len(perms) == 0 {
		return nil
	}

	if err := tx.Create(&models.RoleMenuGrant{RoleID: roleID, Permissions: perms}).Error; err != nil {
		return fmt.Errorf("failed to save role permissions: %w", err)
	}

	return nil
}

// collapseGrants turns the batch input into rows, one per menu, last entry wins.
func collapseGrants(roleID uint, in []GrantInput) []models.RoleMenuGrant {
	rows := make([]models.RoleMenuGrant, 0, len(in))
	index := make(map[uint]int, len(in))

	for _, g := range in {
		perms := validation.NormalizePermissions(g.Permissions)

		if i, ok := index[g.MenuID]; ok {
			rows[i].Permissions = perms

			continue
		}

		menuID := g.MenuID
		index[menuID] = len(rows)
		rows = append(rows, models.RoleMenuGrant{RoleID: roleID, MenuID: &menuID, Permissions: perms})
	}

	return rows
}

func uniqueIDs(ids []uint) []uint {
	out := make([]uint, 0, len(ids))

	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}

	return out
}

func missingIDs(want, found []uint) []uint {
	var missing []uint

	for _, id := range want {
		if !slices.Contains(found, id) {
			missing = append(missing, id)
		}
	}

	return missing
}
