package auth

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/go-rbac-admin/go-rbac-admin/internal/apperror"
)

const (
	identityKey  = "identity"
	bearerPrefix = "Bearer "
)

// Guard decisions, used as metric label.
const (
	DecisionAllow        = "allow"
	DecisionBypass       = "bypass"
	DecisionUnauthorized = "unauthorized"
	DecisionForbidden    = "forbidden"
	DecisionError        = "error"
)

var guardDecisions = promauto.NewCounterVec( //nolint:gochecknoglobals
	prometheus.CounterOpts{
		Name: "rbac_guard_decisions_total",
		Help: "Number of guard decisions, differentiated by outcome.",
	},
	[]string{"decision"},
)

// Route declares a handler and its access requirement.
//
// Public routes skip authentication. Roles and Permissions are alternatives:
// the caller needs any one of the roles or any one of the permissions. A
// route without either only requires authentication.
type Route struct {
	Method      string
	Path        string
	Public      bool
	Roles       []string
	Permissions []string
	Handler     fiber.Handler
}

// AccessVerifier verifies access tokens.
type AccessVerifier interface {
	VerifyAccess(token string) (*Claims, error)
}

// Resolver resolves the effective access of a user.
type Resolver interface {
	Resolve(ctx context.Context, userID uint64) (*Resolution, error)
}

// Identity is the authenticated caller of a request.
type Identity struct {
	Claims     *Claims
	Resolution *Resolution
}

// UserID of the caller.
func (i *Identity) UserID() uint64 {
	return i.Claims.UserID
}

// Guard authenticates and authorizes requests of declared routes.
type Guard struct {
	tokens   AccessVerifier
	resolver Resolver
	bypass   []string
}

// NewGuard creates a guard. Requests to a bypass path are never refused
// for lack of roles or permissions.
func NewGuard(tokens AccessVerifier, resolver Resolver, bypass []string) *Guard {
	return &Guard{tokens: tokens, resolver: resolver, bypass: bypass}
}

// Register installs every route on router with the guard in front of it.
func (g *Guard) Register(router fiber.Router, routes ...Route) {
	for _, r := range routes {
		router.Add(r.Method, r.Path, g.Handler(r), r.Handler)
	}
}

// Handler returns the middleware enforcing r. Authentication always runs
// before authorization.
func (g *Guard) Handler(r Route) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var identity *Identity

		if !r.Public {
			var err error
			if identity, err = g.authenticate(c); err != nil {
				return g.refuse(c, err)
			}

			c.Locals(identityKey, identity)
		}

		if slices.Contains(g.bypass, c.Path()) {
			guardDecisions.WithLabelValues(DecisionBypass).Inc()

			return c.Next()
		}

		if len(r.Roles) == 0 && len(r.Permissions) == 0 {
			guardDecisions.WithLabelValues(DecisionAllow).Inc()

			return c.Next()
		}

		if identity != nil {
			res := identity.Resolution
			if res.HasAnyRole(r.Roles) || res.Permissions.AllowsAny(r.Permissions) {
				guardDecisions.WithLabelValues(DecisionAllow).Inc()

				return c.Next()
			}
		}

		event := log.Warn().Str("path", c.Path()).Strs("roles", r.Roles).Strs("permissions", r.Permissions)
		if identity != nil {
			event = event.Uint64("user_id", identity.UserID())
		}

		event.Msg("caller lacks required role or permission")

		return g.refuse(c, &apperror.ForbiddenError{Roles: r.Roles, Permissions: r.Permissions})
	}
}

// authenticate verifies the bearer token and resolves the caller. A user
// deleted or disabled after the token was issued is unauthorized.
func (g *Guard) authenticate(c *fiber.Ctx) (*Identity, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return nil, ErrInvalidToken
	}

	claims, err := g.tokens.VerifyAccess(strings.TrimSpace(header[len(bearerPrefix):]))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	res, err := g.resolver.Resolve(c.UserContext(), claims.UserID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, ErrInvalidToken
	}

	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if !res.Active {
		return nil, ErrUserAccountDisabled
	}

	return &Identity{Claims: claims, Resolution: res}, nil
}

func (g *Guard) refuse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, apperror.ErrUnauthorized):
		guardDecisions.WithLabelValues(DecisionUnauthorized).Inc()
		log.Debug().Err(err).Str("path", c.Path()).Msg("request not authenticated")
	case errors.Is(err, apperror.ErrForbidden):
		guardDecisions.WithLabelValues(DecisionForbidden).Inc()
	default:
		guardDecisions.WithLabelValues(DecisionError).Inc()
		log.Error().Err(err).Str("path", c.Path()).Msg("failed to resolve caller")
	}

	return err
}

// IdentityFromCtx returns the authenticated caller, false on public routes.
func IdentityFromCtx(c *fiber.Ctx) (*Identity, bool) {
	identity, ok := c.Locals(identityKey).(*Identity)

	return identity, ok && identity != nil
}
