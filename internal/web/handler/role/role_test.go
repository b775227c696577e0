package role

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-rbac-admin/go-rbac-admin/internal/auth"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/models"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/paginate"
	"github.com/go-rbac-admin/go-rbac-admin/internal/web/handler/handlertest"
)

func newEnv(t *testing.T) *handlertest.Env {
	t.Helper()

	env := handlertest.New(t)
	new(Service).Init(env.App, env.Guard, env.Roles)

	return env
}

func createMenu(t *testing.T, env *handlertest.Env, name string) uint {
	t.Helper()

	m := models.Menu{Name: name, Title: name, Visible: true, Method: models.MenuMethodAny}
	require.NoError(t, env.DB.Create(&m).Error)

	return m.ID
}

func TestCRUD(t *testing.T) {
	env := newEnv(t)
	_, admin := env.User(t, "root", "SUPER_ADMIN", auth.PermAll)
	_, reader := env.User(t, "reader", "READER", auth.PermRoleRead)

	reply := env.Do(t, fiber.MethodPost, Path, fiber.Map{"code": "auditor", "name": "Auditor"}, reader)
	assert.Equal(t, http.StatusForbidden, reply.Status)

	var r models.Role
	env.Do(t, fiber.MethodPost, Path,
		fiber.Map{"code": "auditor", "name": "Auditor", "permissions": []string{"report:export"}}, admin).Decode(t, &r)
	assert.Equal(t, "AUDITOR", r.Code)

	reply = env.Do(t, fiber.MethodPost, Path, fiber.Map{"code": "AUDITOR", "name": "Again"}, admin)
	assert.Equal(t, http.StatusConflict, reply.Status)

	var page paginate.Result[models.Role]
	env.Do(t, fiber.MethodGet, Path+"?search=audit", nil, reader).Decode(t, &page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, r.ID, page.Data[0].ID)

	base := fmt.Sprintf("%s/%d", Path, r.ID)

	env.Do(t, fiber.MethodPut, base, fiber.Map{"name": "Auditors", "disabled": true}, admin).Decode(t, &r)
	assert.Equal(t, "Auditors", r.Name)
	assert.False(t, r.IsActive)

	env.Do(t, fiber.MethodGet, base, nil, reader).Decode(t, &r)
	assert.Equal(t, "Auditors", r.Name)

	reply = env.Do(t, fiber.MethodDelete, base, nil, admin)
	require.Equal(t, http.StatusOK, reply.Status, reply.Message)

	reply = env.Do(t, fiber.MethodGet, base, nil, reader)
	assert.Equal(t, http.StatusNotFound, reply.Status)
}

func TestDeleteRefused(t *testing.T) {
	env := newEnv(t)
	root, admin := env.User(t, "root", "SUPER_ADMIN", auth.PermAll)

	reply := env.Do(t, fiber.MethodDelete, fmt.Sprintf("%s/%d", Path, *root.RoleID), nil, admin)
	assert.Equal(t, http.StatusConflict, reply.Status, "a role in use cannot be deleted")
}

func TestGrants(t *testing.T) {
	env := newEnv(t)
	_, admin := env.User(t, "root", "SUPER_ADMIN", auth.PermAll)

	var r models.Role
	env.Do(t, fiber.MethodPost, Path, fiber.Map{"code": "EDITOR", "name": "Editor"}, admin).Decode(t, &r)

	users := createMenu(t, env, "USERS")
	orders := createMenu(t, env, "ORDERS")
	base := fmt.Sprintf("%s/%d", Path, r.ID)

	env.Do(t, fiber.MethodPut, base+"/permissions", fiber.Map{"permissions": []string{"report:export"}}, admin).Decode(t, &r)
	require.Len(t, r.Grants, 1)

	env.Do(t, fiber.MethodPut, fmt.Sprintf("%s/menus/%d", base, users),
		fiber.Map{"permissions": []string{"user:read"}}, admin).Decode(t, &r)
	require.Len(t, r.Grants, 2)

	var perms []string
	env.Do(t, fiber.MethodGet, fmt.Sprintf("%s/menus/%d", base, users), nil, admin).Decode(t, &perms)
	assert.Equal(t, []string{"user:read"}, perms)

	env.Do(t, fiber.MethodGet, base+"/effective-permissions", nil, admin).Decode(t, &perms)
	assert.Equal(t, []string{"report:export", "user:read"}, perms)

	reply := env.Do(t, fiber.MethodPut, base+"/menus", fiber.Map{"menus": []fiber.Map{
		{"menuId": orders, "permissions": []string{"order:*"}},
		{"menuId": 404, "permissions": []string{"order:read"}},
	}}, admin)
	assert.Equal(t, http.StatusNotFound, reply.Status)

	env.Do(t, fiber.MethodPut, base+"/menus", fiber.Map{"menus": []fiber.Map{
		{"menuId": orders, "permissions": []string{"order:*"}},
	}}, admin).Decode(t, &r)
	require.Len(t, r.Grants, 1, "the batch replaces every grant")

	env.Do(t, fiber.MethodGet, base+"/effective-permissions", nil, admin).Decode(t, &perms)
	assert.Equal(t, []string{"order:*"}, perms)

	env.Do(t, fiber.MethodGet, fmt.Sprintf("%s/menus/%d", base, users), nil, admin).Decode(t, &perms)
	assert.Empty(t, perms)
}
