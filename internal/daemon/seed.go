package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/go-rbac-admin/go-rbac-admin/internal/auth"
	"github.com/go-rbac-admin/go-rbac-admin/internal/config"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/models"
	"github.com/go-rbac-admin/go-rbac-admin/internal/menu"
	"github.com/go-rbac-admin/go-rbac-admin/internal/role"
	"github.com/go-rbac-admin/go-rbac-admin/internal/uniuri"
)

// Seeded role codes.
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleUser       = "USER"
)

// seedMenu is a base menu, children follow their parent.
type seedMenu struct {
	menu.CreateInput

	superAdminOnly bool
	children       []seedMenu
}

func baseMenus() []seedMenu {
	return []seedMenu{
		{CreateInput: menu.CreateInput{
			Name: "DASHBOARD", Title: "Dashboard", Path: "/dashboard", Icon: "dashboard",
			Component: "dashboard/index", Affix: true,
		}},
		{
			CreateInput: menu.CreateInput{
				Name: "SYSTEM", Title: "System", Path: "/system", Icon: "setting",
				Component: "Layout", Redirect: "/system/users", Order: 100,
			},
			superAdminOnly: true,
			children: []seedMenu{
				{CreateInput: menu.CreateInput{
					Name: "SYSTEM_USERS", Title: "Users", Path: "/system/users", Icon: "user",
					Component: "system/user/index", Order: 1, Permissions: []string{auth.PermUserRead},
					Method: "GET", APIPath: "/api/users",
				}},
				{CreateInput: menu.CreateInput{
					Name: "SYSTEM_ROLES", Title: "Roles", Path: "/system/roles", Icon: "peoples",
					Component: "system/role/index", Order: 2, Permissions: []string{auth.PermRoleRead},
					Method: "GET", APIPath: "/api/roles",
				}},
				{CreateInput: menu.CreateInput{
					Name: "SYSTEM_MENUS", Title: "Menus", Path: "/system/menus", Icon: "tree-table",
					Component: "system/menu/index", Order: 3, Permissions: []string{auth.PermMenuRead},
					Method: "GET", APIPath: "/api/menus/tree",
				}},
			},
		},
	}
}

// seed creates the system roles, the base menus and the administrator
// when they are missing. It returns the generated administrator password,
// empty when the password came from the config or the admin existed.
func seed(ctx context.Context, cfg *config.Config, db *gorm.DB) (string, error) {
	roles := role.NewService(db)
	menus := menu.NewService(db, roles, auth.NewService(db, roles))

	superAdmin, err := seedRole(ctx, db, roles, role.CreateInput{
		Code:        RoleSuperAdmin,
		Name:        "Super administrator",
		Description: "Holds every permission",
		Permissions: []string{auth.PermAll},
		IsSystem:    true,
	})
	if err != nil {
		return "", err
	}

	if _, err = seedRole(ctx, db, roles, role.CreateInput{
		Code:        RoleUser,
		Name:        "User",
		Description: "Attached to every new account",
		IsDefault:   true,
		IsSystem:    true,
	}); err != nil {
		return "", err
	}

	var count int64
	if err = db.WithContext(ctx).Unscoped().Model(&models.Menu{}).Count(&count).Error; err != nil {
		return "", fmt.Errorf("failed to count menus: %w", err)
	}

	if count == 0 {
		if err = seedMenus(ctx, menus, baseMenus(), nil, superAdmin.ID); err != nil {
			return "", err
		}
	}

	return seedAdmin(ctx, cfg, db, roles, superAdmin.ID)
}

// seedRole returns the role with the code of in, creating it when missing.
func seedRole(ctx context.Context, db *gorm.DB, roles *role.Service, in role.CreateInput) (*models.Role, error) {
	var existing models.Role

	err := db.WithContext(ctx).Where("code = ?", in.Code).First(&existing).Error
	if err == nil {
		return &existing, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load role %s: %w", in.Code, err)
	}

	r, err := roles.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to seed role %s: %w", in.Code, err)
	}

	log.Info().Str("code", r.Code).Msg("seeded role")

	return r, nil
}

func seedMenus(ctx context.Context, menus *menu.Service, items []seedMenu, parentID *uint, superAdminID uint) error {
	for _, item := range items {
		in := item.CreateInput
		in.ParentID = parentID

		if item.superAdminOnly {
			in.Roles = []uint{superAdminID}
		}

		m, err := menus.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("failed to seed menu %s: %w", in.Name, err)
		}

		if err := seedMenus(ctx, menus, item.children, &m.ID, superAdminID); err != nil {
			return err
		}
	}

	return nil
}

func seedAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB, roles *role.Service, superAdminID uint) (string, error) {
	var count int64
	if err := db.WithContext(ctx).Unscoped().Model(&models.User{}).
		Where("username = ?", cfg.Seed.AdminUsername).Count(&count).Error; err != nil {
		return "", fmt.Errorf("failed to check admin user: %w", err)
	}

	if count > 0 {
		return "", nil
	}

	password := cfg.Seed.AdminPassword
	generated := ""

	if password == "" {
		var err error
		if generated, err = uniuri.NewLenChars(uniuri.StdLen, uniuri.PasswordChars); err != nil {
			return "", fmt.Errorf("failed to generate admin password: %w", err)
		}

		password = generated
	}

	local := auth.NewLocalProvider(db, auth.NewPasswordHasher(cfg.Auth.Password), roles, cfg.Auth)

	admin, err := local.CreateUser(ctx, auth.RegisterInput{
		Username: cfg.Seed.AdminUsername,
		Password: password,
		Email:    cfg.Seed.AdminEmail,
		RoleIDs:  []uint{superAdminID},
	}, 0)
	if err != nil {
		return "", fmt.Errorf("failed to seed admin user: %w", err)
	}

	event := log.Warn().Uint64("user_id", admin.ID).Str("username", admin.Username)
	if generated != "" {
		event = event.Str("password", generated)
	}

	event.Msg("seeded administrator account, change the password after the first login")

	return generated, nil
}
