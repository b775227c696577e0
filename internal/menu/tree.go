package menu

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"github.com/go-rbac-admin/go-rbac-admin/internal/auth"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/models"
	"github.com/go-rbac-admin/go-rbac-admin/internal/web/navigation"
)

// access is what a tree is filtered by.
type access struct {
	roleIDs     []uint
	permissions auth.PermissionSet
	granted     map[uint]bool
}

// catalog is every live menu with its visibility roles.
type catalog struct {
	items []navigation.Item
	roles map[uint][]uint
}

// FullTree returns every menu, hidden ones included.
func (s *Service) FullTree(ctx context.Context) ([]*navigation.Item, error) {
	cat, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	return navigation.BuildTree(cat.items, nil), nil
}

// UserTree returns the visible menus of a user.
func (s *Service) UserTree(ctx context.Context, userID uint64) ([]*navigation.Item, error) {
	res, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.tree(ctx, res.RoleIDs(), res.Permissions)
}

// TreeByRoles returns the visible menus of the given roles. Missing and
// disabled roles are ignored.
func (s *Service) TreeByRoles(ctx context.Context, roleIDs []uint) ([]*navigation.Item, error) {
	var active []uint

	if len(roleIDs) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Role{}).
			Where("id IN ? AND is_active = ?", roleIDs, true).
			Pluck("id", &active).Error; err != nil {
			return nil, fmt.Errorf("failed to load roles: %w", err)
		}
	}

	perms := auth.NewPermissionSet()

	if len(active) > 0 {
		var grants []models.RoleMenuGrant
		if err := s.db.WithContext(ctx).Where("role_id IN ?", active).Find(&grants).Error; err != nil {
			return nil, fmt.Errorf("failed to load grants: %w", err)
		}

		for _, g := range grants {
			perms.Add(g.Permissions...)
		}
	}

	return s.tree(ctx, active, perms)
}

func (s *Service) tree(ctx context.Context, roleIDs []uint, perms auth.PermissionSet) ([]*navigation.Item, error) {
	cat, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	granted, err := grantedMenus(s.db.WithContext(ctx), roleIDs)
	if err != nil {
		return nil, err
	}

	acc := access{roleIDs: roleIDs, permissions: perms, granted: granted}

	return navigation.BuildTree(cat.items, func(it *navigation.Item) bool {
		return !it.Meta.Hidden && acc.sees(it, cat.roles[it.ID])
	}), nil
}

func (a access) sees(it *navigation.Item, menuRoles []uint) bool {
	if len(menuRoles) == 0 && len(it.Permissions) == 0 {
		return true
	}

	if slices.ContainsFunc(menuRoles, func(id uint) bool { return slices.Contains(a.roleIDs, id) }) {
		return true
	}

	return a.permissions.AllowsAny(it.Permissions) || a.granted[it.ID]
}

// load reads every live menu in sibling order.
func (s *Service) load(ctx context.Context) (*catalog, error) {
	db := s.db.WithContext(ctx)

	var menus []models.Menu
	if err := db.Order("sort_order, id").Find(&menus).Error; err != nil {
		return nil, fmt.Errorf("failed to load menus: %w", err)
	}

	roles, err := menuRoles(db, nil)
	if err != nil {
		return nil, err
	}

	var live []models.Role
	if err := db.Select("id", "code").Find(&live).Error; err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	codes := make(map[uint]string, len(live))
	for _, r := range live {
		codes[r.ID] = r.Code
	}

	items := make([]navigation.Item, 0, len(menus))

	for _, m := range menus {
		var roleCodes []string

		for _, id := range roles[m.ID] {
			if code, ok := codes[id]; ok {
				roleCodes = append(roleCodes, code)
			}
		}

		items = append(items, toItem(m, roleCodes))
	}

	return &catalog{items: items, roles: roles}, nil
}

// grantedMenus returns the menus on which one of roleIDs holds a non empty grant.
func grantedMenus(db *gorm.DB, roleIDs []uint) (map[uint]bool, error) {
	out := map[uint]bool{}

	if len(roleIDs) == 0 {
		return out, nil
	}

	var grants []models.RoleMenuGrant
	if err := db.Where("role_id IN ? AND menu_id IS NOT NULL", roleIDs).Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("failed to load grants: %w", err)
	}

	for _, g := range grants {
		if len(g.Permissions) > 0 {
			out[*g.MenuID] = true
		}
	}

	return out, nil
}

func toItem(m models.Menu, roleCodes []string) navigation.Item {
	return navigation.Item{
		ID:          m.ID,
		ParentID:    m.ParentID,
		Name:        m.Name,
		Path:        m.Path,
		Component:   m.Component,
		Redirect:    m.Redirect,
		Order:       m.Order,
		Permissions: m.Permissions,
		Method:      m.Method,
		APIPath:     m.APIPath,
		MenuType:    m.MenuType,
		Meta: navigation.Meta{
			Title:   m.Title,
			Icon:    m.Icon,
			Hidden:  !m.Visible,
			Roles:   roleCodes,
			Affix:   m.Affix,
			NoCache: m.NoCache,
		},
	}
}
