package menu_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/go-rbac-admin/go-rbac-admin/internal/apperror"
	"github.com/go-rbac-admin/go-rbac-admin/internal/auth"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/dbtest"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/models"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/paginate"
	"github.com/go-rbac-admin/go-rbac-admin/internal/menu"
	"github.com/go-rbac-admin/go-rbac-admin/internal/role"
	"github.com/go-rbac-admin/go-rbac-admin/internal/web/navigation"
)

type fixture struct {
	db    *gorm.DB
	menus *menu.Service
	roles *role.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.New(t)
	roles := role.NewService(db)

	return &fixture{
		db:    db,
		menus: menu.NewService(db, roles, auth.NewService(db, roles)),
		roles: roles,
	}
}

func (f *fixture) menu(t *testing.T, in menu.CreateInput) uint {
	t.Helper()

	if in.Title == "" {
		in.Title = in.Name
	}

	m, err := f.menus.Create(context.Background(), in)
	require.NoError(t, err)

	return m.ID
}

func (f *fixture) role(t *testing.T, code string, perms ...string) uint {
	t.Helper()

	r, err := f.roles.Create(context.Background(), role.CreateInput{Code: code, Name: code, Permissions: perms})
	require.NoError(t, err)

	return r.ID
}

func (f *fixture) user(t *testing.T, name string, roleID uint) uint64 {
	t.Helper()

	u := models.User{Username: name, Active: true, RoleID: &roleID}
	require.NoError(t, f.db.Create(&u).Error)

	return u.ID
}

func ptr[T any](v T) *T {
	return &v
}

func names(items []*navigation.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}

	return out
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.menus.Create(ctx, menu.CreateInput{Name: " dashboard ", Title: "Dashboard", Path: "/dashboard"})
	require.NoError(t, err)

	assert.Equal(t, "DASHBOARD", m.Name)
	assert.True(t, m.Visible)
	assert.Equal(t, models.MenuMethodAny, m.Method)
	assert.Nil(t, m.ParentID)
	assert.Empty(t, m.Roles)

	_, err = f.menus.Create(ctx, menu.CreateInput{Name: "DASHBOARD", Title: "Again"})
	assert.ErrorIs(t, err, menu.ErrMenuNameExists)

	_, err = f.menus.Create(ctx, menu.CreateInput{Name: "OTHER", Title: "Other", Path: "/dashboard"})
	assert.ErrorIs(t, err, menu.ErrMenuPathExists)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = f.menus.Create(ctx, menu.CreateInput{Name: "ORPHAN", Title: "Orphan", ParentID: ptr(uint(99))})
	assert.ErrorIs(t, err, menu.ErrParentNotFound)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.menus.Create(ctx, menu.CreateInput{Name: "BADPATH", Title: "Bad", Path: "no-slash"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.menus.Create(ctx, menu.CreateInput{Name: "ROLES", Title: "Roles", Roles: []uint{7}})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	adminID := f.role(t, "ADMIN")

	child, err := f.menus.Create(ctx, menu.CreateInput{
		Name:        "CHILD",
		Title:       "Child",
		ParentID:    &m.ID,
		Visible:     ptr(false),
		Permissions: []string{"user:read", "user:read"},
		Roles:       []uint{adminID, adminID},
	})
	require.NoError(t, err)

	assert.Equal(t, &m.ID, child.ParentID)
	assert.False(t, child.Visible)
	assert.Equal(t, []string{"user:read"}, child.Permissions)
	assert.Equal(t, []uint{adminID}, child.Roles)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.menu(t, menu.CreateInput{Name: "ROOT", Path: "/root"})
	mid := f.menu(t, menu.CreateInput{Name: "MID", ParentID: &root})
	leaf := f.menu(t, menu.CreateInput{Name: "LEAF", ParentID: &mid, Path: "/leaf"})

	_, err := f.menus.Update(ctx, root, menu.UpdateInput{ParentID: &root})
	assert.ErrorIs(t, err, menu.ErrInvalidParent)

	_, err = f.menus.Update(ctx, root, menu.UpdateInput{ParentID: &leaf})
	assert.ErrorIs(t, err, menu.ErrInvalidParent)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.menus.Update(ctx, leaf, menu.UpdateInput{ParentID: ptr(uint(404))})
	assert.ErrorIs(t, err, menu.ErrParentNotFound)

	_, err = f.menus.Update(ctx, leaf, menu.UpdateInput{Path: ptr("/root")})
	assert.ErrorIs(t, err, menu.ErrMenuPathExists)

	_, err = f.menus.Update(ctx, 404, menu.UpdateInput{Title: ptr("Nope")})
	assert.ErrorIs(t, err, menu.ErrMenuNotFound)

	m, err := f.menus.Update(ctx, leaf, menu.UpdateInput{
		ParentID:    &root,
		Title:       ptr("Leaf page"),
		Path:        ptr("/leaf"),
		Order:       ptr(5),
		Visible:     ptr(false),
		Permissions: []string{"report:export"},
	})
	require.NoError(t, err)

	assert.Equal(t, &root, m.ParentID)
	assert.Equal(t, "Leaf page", m.Title)
	assert.Equal(t, 5, m.Order)
	assert.False(t, m.Visible)
	assert.Equal(t, []string{"report:export"}, m.Permissions)

	m, err = f.menus.Update(ctx, mid, menu.UpdateInput{ParentID: ptr(uint(0))})
	require.NoError(t, err)
	assert.Nil(t, m.ParentID)
	assert.Equal(t, "MID", m.Title, "untouched fields are kept")
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parent := f.menu(t, menu.CreateInput{Name: "PARENT"})
	adminID := f.role(t, "ADMIN")
	child := f.menu(t, menu.CreateInput{Name: "CHILD", ParentID: &parent, Roles: []uint{adminID}})

	_, err := f.roles.SetGrant(ctx, adminID, child, []string{"user:read"})
	require.NoError(t, err)

	err = f.menus.Delete(ctx, parent)
	assert.ErrorIs(t, err, menu.ErrMenuHasChildren)

	require.NoError(t, f.menus.Delete(ctx, child))

	_, err = f.menus.Get(ctx, child)
	assert.ErrorIs(t, err, menu.ErrMenuNotFound)

	var grants, visibility, soft int64
	require.NoError(t, f.db.Model(&models.RoleMenuGrant{}).Where("menu_id = ?", child).Count(&grants).Error)
	require.NoError(t, f.db.Model(&models.MenuRole{}).Where("menu_id = ?", child).Count(&visibility).Error)
	require.NoError(t, f.db.Unscoped().Model(&models.Menu{}).Where("id = ?", child).Count(&soft).Error)
	assert.Zero(t, grants)
	assert.Zero(t, visibility)
	assert.Equal(t, int64(1), soft, "menus are soft deleted")

	require.NoError(t, f.menus.Delete(ctx, parent), "a parent without live children can go")

	err = f.menus.Delete(ctx, parent)
	assert.ErrorIs(t, err, menu.ErrMenuNotFound)
}

func TestSetMenuRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.menu(t, menu.CreateInput{Name: "REPORTS"})
	a := f.role(t, "ROLE_A")
	b := f.role(t, "ROLE_B")

	m, err := f.menus.SetMenuRoles(ctx, id, []uint{b, a})
	require.NoError(t, err)
	assert.Equal(t, []uint{a, b}, m.Roles)

	_, err = f.menus.SetMenuRoles(ctx, id, []uint{a, 99})
	assert.ErrorIs(t, err, role.ErrInvalidRoles)

	m, err = f.menus.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []uint{a, b}, m.Roles, "a failed update keeps the old roles")

	m, err = f.menus.SetMenuRoles(ctx, id, nil)
	require.NoError(t, err)
	assert.Empty(t, m.Roles)

	_, err = f.menus.SetMenuRoles(ctx, 404, []uint{a})
	assert.ErrorIs(t, err, menu.ErrMenuNotFound)
}

func TestList(t *testing.T) {
	f := newFixture(t)

	f.menu(t, menu.CreateInput{Name: "USERS", Title: "Users", Order: 2})
	f.menu(t, menu.CreateInput{Name: "ROLES", Title: "Roles", Order: 1})
	f.menu(t, menu.CreateInput{Name: "HIDDEN", Title: "Hidden", Visible: ptr(false)})

	page, err := f.menus.List(context.Background(), paginate.Filter{IsActive: ptr(true), SortOrder: "ASC"})
	require.NoError(t, err)

	assert.Equal(t, int64(2), page.Meta.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "ROLES", page.Data[0].Name)

	page, err = f.menus.List(context.Background(), paginate.Filter{Search: "use"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "USERS", page.Data[0].Name)
}
