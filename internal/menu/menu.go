// Package menu manages the navigation menus and assembles the menu trees
// shown to users.
//
// A menu is visible to a user when it is public (no roles and no
// permissions), when the user has one of its roles, when the user holds
// one of its permissions or when one of the user's roles has a grant on it.
package menu

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/go-rbac-admin/go-rbac-admin/internal/auth"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/models"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/paginate"
	"github.com/go-rbac-admin/go-rbac-admin/internal/validation"
	"github.com/go-rbac-admin/go-rbac-admin/internal/web/navigation"
)

const (
	whereID       = "id = ?"
	whereMenuID   = "menu_id = ?"
	whereParentID = "parent_id = ?"
)

// ListOptions exposes the searchable and sortable menu columns.
var ListOptions = paginate.Options{ //nolint:gochecknoglobals
	SearchColumns: []string{"name", "title", "path"},
	SortColumns: map[string]string{
		"name":      "name",
		"title":     "title",
		"order":     "sort_order",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	},
	DefaultSort:  "sort_order",
	ActiveColumn: "visible",
}

// CreateInput describes a new menu. Visible defaults to true and Method to "*".
type CreateInput struct {
	Name        string   `json:"name" validate:"required,min=2,max=20,code"`
	Title       string   `json:"title" validate:"required,min=2,max=20"`
	Path        string   `json:"path" validate:"omitempty,max=255,menupath"`
	Icon        string   `json:"icon" validate:"max=64"`
	Component   string   `json:"component" validate:"max=255"`
	Redirect    string   `json:"redirect" validate:"max=255"`
	ParentID    *uint    `json:"parentId"`
	Order       int      `json:"order" validate:"min=0,max=999"`
	Visible     *bool    `json:"visible"`
	Permissions []string `json:"permissions" validate:"dive,permission"`
	Method      string   `json:"method" validate:"omitempty,oneof=GET POST PUT DELETE *"`
	APIPath     string   `json:"apiPath" validate:"max=255"`
	Affix       bool     `json:"affix"`
	NoCache     bool     `json:"noCache"`
	MenuType    string   `json:"menuType" validate:"max=20"`
	Roles       []uint   `json:"roles"`
}

// UpdateInput changes a menu. Nil fields are left untouched. ParentID 0
// turns the menu into a root; non nil Roles replaces the visibility roles.
type UpdateInput struct {
	Title       *string  `json:"title" validate:"omitempty,min=2,max=20"`
	Path        *string  `json:"path" validate:"omitempty,max=255,menupath"`
	Icon        *string  `json:"icon" validate:"omitempty,max=64"`
	Component   *string  `json:"component" validate:"omitempty,max=255"`
	Redirect    *string  `json:"redirect" validate:"omitempty,max=255"`
	ParentID    *uint    `json:"parentId"`
	Order       *int     `json:"order" validate:"omitempty,min=0,max=999"`
	Visible     *bool    `json:"visible"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,permission"`
	Method      *string  `json:"method" validate:"omitempty,oneof=GET POST PUT DELETE *"`
	APIPath     *string  `json:"apiPath" validate:"omitempty,max=255"`
	Affix       *bool    `json:"affix"`
	NoCache     *bool    `json:"noCache"`
	MenuType    *string  `json:"menuType" validate:"omitempty,max=20"`
	Roles       []uint   `json:"roles"`
}

// Detail is a menu with the ids of its visibility roles.
type Detail struct {
	models.Menu
	Roles []uint `json:"roles"`
}

// Service manages menus.
type Service struct {
	db       *gorm.DB
	roles    auth.RoleValidator
	resolver auth.Resolver
	validate *validator.Validate
}

// NewService creates a new menu service. roles validates visibility roles,
// resolver resolves the access of the user a tree is built for.
func NewService(db *gorm.DB, roles auth.RoleValidator, resolver auth.Resolver) *Service {
	return &Service{db: db, roles: roles, resolver: resolver, validate: validation.New()}
}

// Create stores a new menu.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Detail, error) {
	in.Name = strings.ToUpper(strings.TrimSpace(in.Name))
	in.Title = strings.TrimSpace(in.Title)

	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}

	if err := s.roles.ValidateRolesExist(ctx, in.Roles); err != nil {
		return nil, err
	}

	menu := models.Menu{
		Name:        in.Name,
		Title:       in.Title,
		Path:        in.Path,
		Icon:        in.Icon,
		Component:   in.Component,
		Redirect:    in.Redirect,
		ParentID:    in.ParentID,
		Order:       in.Order,
		Visible:     in.Visible == nil || *in.Visible,
		Permissions: validation.NormalizePermissions(in.Permissions),
		Method:      in.Method,
		APIPath:     in.APIPath,
		Affix:       in.Affix,
		NoCache:     in.NoCache,
		MenuType:    in.MenuType,
	}

	if menu.Method == "" {
		menu.Method = models.MenuMethodAny
	}

	if menu.ParentID != nil && *menu.ParentID == 0 {
		menu.ParentID = nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if menu.ParentID != nil {
			if err := ensureMenu(tx, *menu.ParentID, ErrParentNotFound); err != nil {
				return err
			}
		}

		var count int64
		if err := tx.Unscoped().Model(&models.Menu{}).Where("name = ?", menu.Name).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check menu name: %w", err)
		}

		if count > 0 {
			return ErrMenuNameExists
		}

		if err := ensurePathFree(tx, menu.Path, 0); err != nil {
			return err
		}

		if err := tx.Create(&menu).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrMenuNameExists
			}

			return fmt.Errorf("failed to create menu: %w", err)
		}

		return replaceRoles(tx, menu.ID, in.Roles)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, menu.ID)
}

// Get returns a menu with its visibility roles.
func (s *Service) Get(ctx context.Context, id uint) (*Detail, error) {
	var menu models.Menu

	err := s.db.WithContext(ctx).First(&menu, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMenuNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load menu: %w", err)
	}

	roles, err := menuRoles(s.db.WithContext(ctx), []uint{id})
	if err != nil {
		return nil, err
	}

	return &Detail{Menu: menu, Roles: orEmpty(roles[id])}, nil
}

// List returns a page of menus.
func (s *Service) List(ctx context.Context, f paginate.Filter) (paginate.Result[models.Menu], error) {
	page, err := paginate.Find[models.Menu](s.db.WithContext(ctx), f, ListOptions)
	if err != nil {
		return page, fmt.Errorf("failed to list menus: %w", err)
	}

	return page, nil
}

// Update applies the non nil fields of in. Moving a menu below itself or
// one of its descendants is refused.
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*Detail, error) {
	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}

	if in.Roles != nil {
		if err := s.roles.ValidateRolesExist(ctx, in.Roles); err != nil {
			return nil, err
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var menu models.Menu

		err := tx.First(&menu, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMenuNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to load menu: %w", err)
		}

		if in.Path != nil {
			if err := ensurePathFree(tx, strings.TrimSpace(*in.Path), id); err != nil {
				return err
			}
		}

		if in.ParentID != nil {
			if menu.ParentID, err = checkParent(tx, id, *in.ParentID); err != nil {
				return err
			}
		}

		apply(&menu, in)

		if err := tx.Save(&menu).Error; err != nil {
			return fmt.Errorf("failed to update menu: %w", err)
		}

		if in.Roles != nil {
			return replaceRoles(tx, id, in.Roles)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

func apply(m *models.Menu, in UpdateInput) {
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}

	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}

	setString(&m.Title, in.Title)
	setString(&m.Path, in.Path)
	setString(&m.Icon, in.Icon)
	setString(&m.Component, in.Component)
	setString(&m.Redirect, in.Redirect)
	setString(&m.Method, in.Method)
	setString(&m.APIPath, in.APIPath)
	setString(&m.MenuType, in.MenuType)
	setBool(&m.Visible, in.Visible)
	setBool(&m.Affix, in.Affix)
	setBool(&m.NoCache, in.NoCache)

	if in.Order != nil {
		m.Order = *in.Order
	}

	if in.Permissions != nil {
		m.Permissions = validation.NormalizePermissions(in.Permissions)
	}
}

// Delete soft deletes a menu together with the grants and visibility rows
// referencing it. Menus that still have children are refused.
func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var menu models.Menu

		err := tx.First(&menu, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMenuNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to load menu: %w", err)
		}

		var children int64
		if err := tx.Model(&models.Menu{}).Where(whereParentID, id).Count(&children).Error; err != nil {
			return fmt.Errorf("failed to count menu children: %w", err)
		}

		if children > 0 {
			return ErrMenuHasChildren
		}

		if err := tx.Where(whereMenuID, id).Delete(&models.RoleMenuGrant{}).Error; err != nil {
			return fmt.Errorf("failed to delete menu grants: %w", err)
		}

		if err := tx.Where(whereMenuID, id).Delete(&models.MenuRole{}).Error; err != nil {
			return fmt.Errorf("failed to delete menu roles: %w", err)
		}

		if err := tx.Delete(&menu).Error; err != nil {
			return fmt.Errorf("failed to delete menu: %w", err)
		}

		return nil
	})
}

// SetMenuRoles replaces the roles a menu is visible to. An empty list
// makes the menu public unless it requires permissions.
func (s *Service) SetMenuRoles(ctx context.Context, menuID uint, roleIDs []uint) (*Detail, error) {
	if err := s.roles.ValidateRolesExist(ctx, roleIDs); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureMenu(tx, menuID, ErrMenuNotFound); err != nil {
			return err
		}

		return replaceRoles(tx, menuID, roleIDs)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, menuID)
}

func ensureMenu(tx *gorm.DB, id uint, notFound error) error {
	var count int64
	if err := tx.Model(&models.Menu{}).Where(whereID, id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check menu: %w", err)
	}

	if count == 0 {
		return notFound
	}

	return nil
}

// ensurePathFree fails when a live menu other than self uses path.
func ensurePathFree(tx *gorm.DB, path string, self uint) error {
	if path == "" {
		return nil
	}

	var count int64
	if err := tx.Model(&models.Menu{}).Where("path = ? AND id <> ?", path, self).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check menu path: %w", err)
	}

	if count > 0 {
		return ErrMenuPathExists
	}

	return nil
}

// checkParent validates parentID as the new parent of id and returns the
// value to store, nil for a root.
func checkParent(tx *gorm.DB, id, parentID uint) (*uint, error) {
	if parentID == 0 {
		return nil, nil //nolint:nilnil
	}

	if parentID == id {
		return nil, ErrInvalidParent
	}

	if err := ensureMenu(tx, parentID, ErrParentNotFound); err != nil {
		return nil, err
	}

	var menus []models.Menu
	if err := tx.Select("id", "parent_id").Find(&menus).Error; err != nil {
		return nil, fmt.Errorf("failed to load menus: %w", err)
	}

	items := make([]navigation.Item, 0, len(menus))
	for _, m := range menus {
		items = append(items, navigation.Item{ID: m.ID, ParentID: m.ParentID})
	}

	if slices.Contains(navigation.Descendants(items, id), parentID) {
		return nil, ErrInvalidParent
	}

	return &parentID, nil
}

func replaceRoles(tx *gorm.DB, menuID uint, roleIDs []uint) error {
	if err := tx.Where(whereMenuID, menuID).Delete(&models.MenuRole{}).Error; err != nil {
		return fmt.Errorf("failed to clear menu roles: %w", err)
	}

	rows := make([]models.MenuRole, 0, len(roleIDs))

	for _, id := range roleIDs {
		if !slices.ContainsFunc(rows, func(r models.MenuRole) bool { return r.RoleID == id }) {
			rows = append(rows, models.MenuRole{MenuID: menuID, RoleID: id})
		}
	}

	if len(rows) == 0 {
		return nil
	}

	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to save menu roles: %w", err)
	}

	return nil
}

// menuRoles returns the visibility role ids of menus keyed by menu id.
func menuRoles(db *gorm.DB, menuIDs []uint) (map[uint][]uint, error) {
	q := db.Model(&models.MenuRole{}).Order("menu_id, role_id")
	if menuIDs != nil {
		q = q.Where("menu_id IN ?", menuIDs)
	}

	var rows []models.MenuRole
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load menu roles: %w", err)
	}

	out := make(map[uint][]uint, len(rows))
	for _, r := range rows {
		out[r.MenuID] = append(out[r.MenuID], r.RoleID)
	}

	return out, nil
}

func orEmpty(ids []uint) []uint {
	if ids == nil {
		return []uint{}
	}

	return ids
}
