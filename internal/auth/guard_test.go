package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-rbac-admin/go-rbac-admin/internal/apperror"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/models"
)

type fakeVerifier map[string]uint64

func (f fakeVerifier) VerifyAccess(token string) (*Claims, error) {
	id, ok := f[token]
	if !ok {
		return nil, ErrInvalidToken
	}

	return &Claims{UserID: id, Type: TokenTypeAccess}, nil
}

type fakeResolver map[uint64]*Resolution

func (f fakeResolver) Resolve(_ context.Context, userID uint64) (*Resolution, error) {
	if userID == 500 {
		return nil, errors.New("store down") //nolint:err113
	}

	res, ok := f[userID]
	if !ok {
		return nil, ErrUserNotFound
	}

	return res, nil
}

func newGuardApp() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(apperror.Status(err)).SendString(err.Error())
		},
	})

	verifier := fakeVerifier{"reader": 1, "admin": 2, "ghost": 3, "disabled": 4, "broken": 500}
	resolver := fakeResolver{
		1: {UserID: 1, Active: true, Roles: []models.Role{{ID: 1, Code: "USER"}}, Permissions: NewPermissionSet("user:read")},
		2: {UserID: 2, Active: true, Roles: []models.Role{{ID: 2, Code: "SUPER_ADMIN"}}, Permissions: NewPermissionSet()},
		4: {UserID: 4, Active: false, Permissions: NewPermissionSet(PermAll)},
	}

	ok := func(c *fiber.Ctx) error {
		if id, found := IdentityFromCtx(c); found {
			return c.SendString("hello " + id.Claims.Subject + c.Path())
		}

		return c.SendString("hello anonymous")
	}

	NewGuard(verifier, resolver, []string{"/health"}).Register(app,
		Route{Method: fiber.MethodGet, Path: "/health", Public: true, Permissions: []string{"system:health"}, Handler: ok},
		Route{Method: fiber.MethodGet, Path: "/public", Public: true, Handler: ok},
		Route{Method: fiber.MethodGet, Path: "/public-guarded", Public: true, Permissions: []string{"user:read"}, Handler: ok},
		Route{Method: fiber.MethodGet, Path: "/me", Handler: ok},
		Route{Method: fiber.MethodGet, Path: "/users", Permissions: []string{"user:read", "user:*"}, Handler: ok},
		Route{Method: fiber.MethodDelete, Path: "/users", Permissions: []string{"user:delete"}, Handler: ok},
		Route{
			Method: fiber.MethodGet, Path: "/admin",
			Roles: []string{"ADMIN", "SUPER_ADMIN"}, Permissions: []string{"admin:view"}, Handler: ok,
		},
	)

	return app
}

func TestGuard(t *testing.T) {
	app := newGuardApp()

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{name: "public without token", method: http.MethodGet, path: "/public", want: http.StatusOK},
		{name: "bypass ignores requirement", method: http.MethodGet, path: "/health", want: http.StatusOK},
		{name: "public route with requirement", method: http.MethodGet, path: "/public-guarded", want: http.StatusForbidden},
		{name: "protected without token", method: http.MethodGet, path: "/me", want: http.StatusUnauthorized},
		{name: "protected with bad token", method: http.MethodGet, path: "/me", token: "nope", want: http.StatusUnauthorized},
		{name: "authenticated only", method: http.MethodGet, path: "/me", token: "reader", want: http.StatusOK},
		{name: "any permission", method: http.MethodGet, path: "/users", token: "reader", want: http.StatusOK},
		{name: "missing permission", method: http.MethodDelete, path: "/users", token: "reader", want: http.StatusForbidden},
		{name: "role satisfies", method: http.MethodGet, path: "/admin", token: "admin", want: http.StatusOK},
		{name: "role missing", method: http.MethodGet, path: "/admin", token: "reader", want: http.StatusForbidden},
		{name: "deleted user", method: http.MethodGet, path: "/me", token: "ghost", want: http.StatusUnauthorized},
		{name: "disabled user", method: http.MethodGet, path: "/users", token: "disabled", want: http.StatusUnauthorized},
		{name: "resolver failure", method: http.MethodGet, path: "/me", token: "broken", want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set(fiber.HeaderAuthorization, "Bearer "+tt.token)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)

			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestGuardForbiddenNamesRequirement(t *testing.T) {
	app := newGuardApp()

	req := httptest.NewRequest(http.MethodDelete, "/users", nil)
	req.Header.Set(fiber.HeaderAuthorization, "bearer reader")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, string(body), "user:delete")
}
