// Package account provides the authentication endpoints: registration,
// login, token refresh, logout and the caller's own profile.
package account

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/go-rbac-admin/go-rbac-admin/internal/apperror"
	"github.com/go-rbac-admin/go-rbac-admin/internal/auth"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/models"
	"github.com/go-rbac-admin/go-rbac-admin/internal/web/handler"
)

const (
	// Path is the base path of the authentication endpoints.
	Path = handler.APIPath + "/auth"
)

// Session is returned by login and refresh.
type Session struct {
	User  *models.User    `json:"user"`
	Token *auth.TokenPair `json:"token"`
}

// Profile is the caller's account with its effective access.
type Profile struct {
	User        *models.User `json:"user"`
	Roles       []string     `json:"roles"`
	Permissions []string     `json:"permissions"`
}

type refreshInput struct {
	RefreshToken string `json:"refreshToken"`
}

type passwordInput struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type totpInput struct {
	Code string `json:"code"`
}

// Service is the authentication handler service.
type Service struct {
	local  *auth.LocalProvider
	tokens *auth.TokenIssuer
}

// Init registers the routes on app.
func (s *Service) Init(app fiber.Router, guard *auth.Guard, local *auth.LocalProvider, tokens *auth.TokenIssuer) {
	if app == nil || guard == nil || local == nil || tokens == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)

		return
	}

	s.local = local
	s.tokens = tokens

	guard.Register(app.Group(Path),
		auth.Route{Method: fiber.MethodPost, Path: "/register", Public: true, Handler: s.Register},
		auth.Route{Method: fiber.MethodPost, Path: "/login", Public: true, Handler: s.Login},
		auth.Route{Method: fiber.MethodPost, Path: "/refresh", Public: true, Handler: s.Refresh},
		auth.Route{Method: fiber.MethodPost, Path: "/logout", Public: true, Handler: s.Logout},
		auth.Route{Method: fiber.MethodGet, Path: "/profile", Handler: s.Profile},
		auth.Route{Method: fiber.MethodPost, Path: "/password", Handler: s.ChangePassword},
		auth.Route{Method: fiber.MethodPost, Path: "/totp/enroll", Handler: s.EnrollTOTP},
		auth.Route{Method: fiber.MethodPost, Path: "/totp/confirm", Handler: s.ConfirmTOTP},
	)
}

// Register creates an account with the default roles.
func (s *Service) Register(c *fiber.Ctx) error {
	var in auth.RegisterInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	user, err := s.local.Register(c.UserContext(), in)
	if err != nil {
		return err
	}

	log.Info().Uint64("user_id", user.ID).Str("username", user.Username).Msg("user registered")

	return handler.Created(c, user)
}

// Login checks the credentials and issues a token pair.
func (s *Service) Login(c *fiber.Ctx) error {
	var in auth.LoginInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	in.IP = c.IP()

	user, err := s.local.Authenticate(c.UserContext(), in)
	if err != nil {
		log.Info().Err(err).Str("username", in.Username).Str("ip", in.IP).Msg("login failed")

		return err
	}

	pair, err := s.tokens.Issue(user)
	if err != nil {
		return err
	}

	log.Info().Uint64("user_id", user.ID).Str("ip", in.IP).Msg("user logged in")

	return handler.OK(c, Session{User: user, Token: pair})
}

// Refresh swaps a refresh token for a new pair. The old refresh token is used up.
func (s *Service) Refresh(c *fiber.Ctx) error {
	var in refreshInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	claims, err := s.tokens.Consume(in.RefreshToken)
	if err != nil {
		return err
	}

	user, err := s.local.GetUserByID(c.UserContext(), claims.UserID)
	if errors.Is(err, apperror.ErrNotFound) {
		return auth.ErrInvalidToken
	}

	if err != nil {
		return err
	}

	if !user.Active {
		return auth.ErrUserAccountDisabled
	}

	pair, err := s.tokens.Issue(user)
	if err != nil {
		return err
	}

	return handler.OK(c, Session{User: user, Token: pair})
}

// Logout revokes a refresh token.
func (s *Service) Logout(c *fiber.Ctx) error {
	var in refreshInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	if err := s.tokens.Revoke(in.RefreshToken); err != nil {
		return err
	}

	return handler.Message(c, "logged out")
}

// Profile returns the caller with its roles and permissions.
func (s *Service) Profile(c *fiber.Ctx) error {
	id, _ := auth.IdentityFromCtx(c)

	user, err := s.local.GetUserByID(c.UserContext(), id.UserID())
	if err != nil {
		return err
	}

	return handler.OK(c, Profile{
		User:        user,
		Roles:       id.Resolution.RoleCodes(),
		Permissions: id.Resolution.Permissions.Sorted(),
	})
}

// ChangePassword changes the caller's password.
func (s *Service) ChangePassword(c *fiber.Ctx) error {
	var in passwordInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	id, _ := auth.IdentityFromCtx(c)

	if err := s.local.ChangePassword(c.UserContext(), id.UserID(), in.OldPassword, in.NewPassword); err != nil {
		return err
	}

	return handler.Message(c, "password changed")
}

// EnrollTOTP starts the second factor enrollment of the caller.
func (s *Service) EnrollTOTP(c *fiber.Ctx) error {
	id, _ := auth.IdentityFromCtx(c)

	enrollment, err := s.local.EnrollTOTP(c.UserContext(), id.UserID())
	if err != nil {
		return err
	}

	return handler.OK(c, enrollment)
}

// ConfirmTOTP enables the second factor with a first valid code.
func (s *Service) ConfirmTOTP(c *fiber.Ctx) error {
	var in totpInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	id, _ := auth.IdentityFromCtx(c)

	if err := s.local.ConfirmTOTP(c.UserContext(), id.UserID(), in.Code); err != nil {
		return err
	}

	return handler.Message(c, "totp enabled")
}
