// Package handlertest wires the services behind the API handlers on a
// throw-away database for handler tests.
package handlertest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/go-rbac-admin/go-rbac-admin/internal/auth"
	"github.com/go-rbac-admin/go-rbac-admin/internal/config"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/controller/kv"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/dbtest"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/models"
	"github.com/go-rbac-admin/go-rbac-admin/internal/menu"
	"github.com/go-rbac-admin/go-rbac-admin/internal/role"
	"github.com/go-rbac-admin/go-rbac-admin/internal/web/handler"
)

// Password is the password of every user created by Env.User.
const Password = "secret123"

// Env is a fiber app with every service on one sqlite database.
type Env struct {
	DB     *gorm.DB
	App    *fiber.App
	Guard  *auth.Guard
	Roles  *role.Service
	Access *auth.Service
	Local  *auth.LocalProvider
	Tokens *auth.TokenIssuer
	Menus  *menu.Service
}

// Reply is a decoded response envelope.
type Reply struct {
	Status  int
	Success *bool           `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Config returns the auth configuration used by Env.
func Config() config.Auth {
	return config.Auth{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
		Issuer:        "rbac-test",
		Lockout:       config.Lockout{MaxAttempts: 3, Duration: time.Minute},
		TOTPIssuer:    "rbac-test",
		BypassPaths:   config.DefaultBypassPaths,
	}
}

// New creates an Env. Handlers still have to be initialised on App.
func New(t *testing.T) *Env {
	t.Helper()

	db := dbtest.New(t)

	store, err := kv.New(db)
	require.NoError(t, err)

	cfg := Config()

	tokens, err := auth.NewTokenIssuer(cfg, store)
	require.NoError(t, err)

	roles := role.NewService(db)
	access := auth.NewService(db, roles)

	return &Env{
		DB:     db,
		App:    fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler}),
		Guard:  auth.NewGuard(tokens, access, cfg.BypassPaths),
		Roles:  roles,
		Access: access,
		Local:  auth.NewLocalProvider(db, auth.BcryptHasher{Cost: bcrypt.MinCost}, roles, cfg),
		Tokens: tokens,
		Menus:  menu.NewService(db, roles, access),
	}
}

// User creates a user whose direct role holds perms and returns it with a
// valid access token. code names the role.
func (e *Env) User(t *testing.T, name, code string, perms ...string) (*models.User, string) {
	t.Helper()

	ctx := context.Background()

	r, err := e.Roles.Create(ctx, role.CreateInput{Code: code, Name: code, Permissions: perms})
	require.NoError(t, err)

	u, err := e.Local.CreateUser(ctx, auth.RegisterInput{Username: name, Password: Password}, 0)
	require.NoError(t, err)

	require.NoError(t, e.Access.AssignRoleToUser(ctx, u.ID, &r.ID))

	pair, err := e.Tokens.Issue(u)
	require.NoError(t, err)

	return u, pair.AccessToken
}

// Do sends a JSON request and decodes the envelope of the response.
func (e *Env) Do(t *testing.T, method, path string, body any, token string) *Reply {
	t.Helper()

	var reader io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := e.App.Test(req, -1)
	require.NoError(t, err)

	defer resp.Body.Close()

	reply := &Reply{Status: resp.StatusCode}

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, reply), string(raw))
	}

	return reply
}

// Decode unmarshals the data of r into out.
func (r *Reply) Decode(t *testing.T, out any) {
	t.Helper()

	require.Equal(t, http.StatusOK/100, r.Status/100, r.Message)
	require.NoError(t, json.Unmarshal(r.Data, out))
}
