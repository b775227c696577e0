package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-rbac-admin/go-rbac-admin/internal/auth"
	"github.com/go-rbac-admin/go-rbac-admin/internal/config"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/controller/kv"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/dbtest"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/models"
	"github.com/go-rbac-admin/go-rbac-admin/internal/menu"
	"github.com/go-rbac-admin/go-rbac-admin/internal/role"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Title:     "rbac-test",
		DB:        config.DB{GormEngine: config.EngineSQLite, Name: filepath.Join(t.TempDir(), "rbac.db")},
		Webserver: config.Webserver{Port: 8080, URL: "http://localhost", ShutDownTime: 1},
		Auth: config.Auth{
			AccessSecret:  "access",
			RefreshSecret: "refresh",
			Password:      config.Password{Algorithm: config.PasswordBcrypt, Cost: 4},
			BypassPaths:   config.DefaultBypassPaths,
		},
		Seed: config.Seed{AdminUsername: "admin"},
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	db := dbtest.New(t)
	cfg := testConfig(t)
	ctx := context.Background()

	password, err := seed(ctx, cfg, db)
	require.NoError(t, err)
	assert.NotEmpty(t, password, "a missing admin password is generated")

	again, err := seed(ctx, cfg, db)
	require.NoError(t, err)
	assert.Empty(t, again)

	var roles, menus, users int64
	require.NoError(t, db.Model(&models.Role{}).Count(&roles).Error)
	require.NoError(t, db.Model(&models.Menu{}).Count(&menus).Error)
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, int64(2), roles)
	assert.Equal(t, int64(5), menus)
	assert.Equal(t, int64(1), users)

	roleService := role.NewService(db)
	access := auth.NewService(db, roleService)

	var admin models.User
	require.NoError(t, db.Where("username = ?", "admin").First(&admin).Error)

	perms, err := access.ResolvePermissions(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, perms.IsSuperAdmin())

	local := auth.NewLocalProvider(db, auth.NewPasswordHasher(cfg.Auth.Password), roleService, cfg.Auth)
	_, err = local.Authenticate(ctx, auth.LoginInput{Username: "admin", Password: password})
	require.NoError(t, err)

	tree, err := menu.NewService(db, roleService, access).UserTree(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "SYSTEM", tree[1].Name)
	assert.Len(t, tree[1].Children, 3)
}

func TestSeedConfiguredPassword(t *testing.T) {
	db := dbtest.New(t)
	cfg := testConfig(t)
	cfg.Seed.AdminPassword = "configured123"

	password, err := seed(context.Background(), cfg, db)
	require.NoError(t, err)
	assert.Empty(t, password)

	local := auth.NewLocalProvider(db, auth.NewPasswordHasher(cfg.Auth.Password), role.NewService(db), cfg.Auth)
	_, err = local.Authenticate(context.Background(), auth.LoginInput{Username: "admin", Password: "configured123"})
	assert.NoError(t, err)
}

func TestNewWithSQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.Seed.AdminPassword = "configured123"

	d, err := New(cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := d.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	assert.IsType(t, &kv.Storage{}, d.revoked)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"userName":"admin","password":"configured123"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.webService.App.Test(req, -1)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOpenUnknownEngine(t *testing.T) {
	cfg := testConfig(t)
	cfg.DB.GormEngine = "oracle"

	_, err := Open(cfg)
	assert.ErrorIs(t, err, config.ErrUnknownEngine)
}
