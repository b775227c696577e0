// Package role provides the role and grant administration endpoints.
package role

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/go-rbac-admin/go-rbac-admin/internal/auth"
	"github.com/go-rbac-admin/go-rbac-admin/internal/role"
	"github.com/go-rbac-admin/go-rbac-admin/internal/web/handler"
)

const (
	// Path is the base path for role management.
	Path = handler.APIPath + "/roles"

	paramID     = "id"
	paramMenuID = "menuId"
)

type permissionsInput struct {
	Permissions []string `json:"permissions"`
}

type grantsInput struct {
	Menus []role.GrantInput `json:"menus"`
}

// Service provides the role administration handlers.
type Service struct {
	roles *role.Service
}

// Init registers routes.
func (s *Service) Init(app fiber.Router, guard *auth.Guard, roles *role.Service) {
	if app == nil || guard == nil || roles == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)

		return
	}

	s.roles = roles

	read := []string{auth.PermRoleRead}
	manage := []string{auth.PermRoleManagePermissions}

	guard.Register(app.Group(Path),
		auth.Route{
			Method: fiber.MethodPost, Path: handler.RouterRootPath,
			Permissions: []string{auth.PermRoleCreate}, Handler: s.Create,
		},
		auth.Route{Method: fiber.MethodGet, Path: handler.RouterRootPath, Permissions: read, Handler: s.List},
		auth.Route{Method: fiber.MethodGet, Path: "/:id", Permissions: read, Handler: s.Get},
		auth.Route{
			Method: fiber.MethodPut, Path: "/:id",
			Permissions: []string{auth.PermRoleUpdate}, Handler: s.Update,
		},
		auth.Route{
			Method: fiber.MethodDelete, Path: "/:id",
			Permissions: []string{auth.PermRoleDelete}, Handler: s.Delete,
		},
		auth.Route{Method: fiber.MethodPut, Path: "/:id/permissions", Permissions: manage, Handler: s.AssignPermissions},
		auth.Route{Method: fiber.MethodGet, Path: "/:id/effective-permissions", Permissions: read, Handler: s.Effective},
		auth.Route{Method: fiber.MethodPut, Path: "/:id/menus", Permissions: manage, Handler: s.SetGrants},
		auth.Route{Method: fiber.MethodPut, Path: "/:id/menus/:menuId", Permissions: manage, Handler: s.SetGrant},
		auth.Route{Method: fiber.MethodGet, Path: "/:id/menus/:menuId", Permissions: read, Handler: s.MenuPermissions},
	)
}

// Create creates a role.
func (s *Service) Create(c *fiber.Ctx) error {
	var in role.CreateInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	r, err := s.roles.Create(c.UserContext(), in)
	if err != nil {
		return err
	}

	log.Info().Uint("role_id", r.ID).Str("code", r.Code).Msg("role created")

	return handler.Created(c, r)
}

// List returns a page of roles.
func (s *Service) List(c *fiber.Ctx) error {
	f, err := handler.Filter(c)
	if err != nil {
		return err
	}

	page, err := s.roles.List(c.UserContext(), f)
	if err != nil {
		return err
	}

	return handler.OK(c, page)
}

// Get returns a role with its grants.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := handler.ID(c, paramID)
	if err != nil {
		return err
	}

	r, err := s.roles.Get(c.UserContext(), id)
	if err != nil {
		return err
	}

	return handler.OK(c, r)
}

// Update changes a role.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ID(c, paramID)
	if err != nil {
		return err
	}

	var in role.UpdateInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	r, err := s.roles.Update(c.UserContext(), id, in)
	if err != nil {
		return err
	}

	return handler.OK(c, r)
}

// Delete soft deletes a role.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ID(c, paramID)
	if err != nil {
		return err
	}

	if err := s.roles.Delete(c.UserContext(), id); err != nil {
		return err
	}

	log.Info().Uint("role_id", id).Msg("role deleted")

	return handler.Message(c, "role deleted")
}

// AssignPermissions adds permissions that are not bound to a menu.
func (s *Service) AssignPermissions(c *fiber.Ctx) error {
	id, err := handler.ID(c, paramID)
	if err != nil {
		return err
	}

	var in permissionsInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	r, err := s.roles.AssignPermissions(c.UserContext(), id, in.Permissions)
	if err != nil {
		return err
	}

	return handler.OK(c, r)
}

// Effective returns the union of all grants of a role.
func (s *Service) Effective(c *fiber.Ctx) error {
	id, err := handler.ID(c, paramID)
	if err != nil {
		return err
	}

	perms, err := s.roles.GetEffectivePermissions(c.UserContext(), id)
	if err != nil {
		return err
	}

	return handler.OK(c, perms)
}

// SetGrants replaces every grant of a role.
func (s *Service) SetGrants(c *fiber.Ctx) error {
	id, err := handler.ID(c, paramID)
	if err != nil {
		return err
	}

	var in grantsInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	r, err := s.roles.SetGrantsBatch(c.UserContext(), id, in.Menus)
	if err != nil {
		return err
	}

	log.Info().Uint("role_id", id).Int("grants", len(r.Grants)).Msg("role grants replaced")

	return handler.OK(c, r)
}

// SetGrant sets the permissions of a role on one menu.
func (s *Service) SetGrant(c *fiber.Ctx) error {
	id, menuID, err := roleAndMenu(c)
	if err != nil {
		return err
	}

	var in permissionsInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	r, err := s.roles.SetGrant(c.UserContext(), id, menuID, in.Permissions)
	if err != nil {
		return err
	}

	return handler.OK(c, r)
}

// MenuPermissions returns the permissions a role holds on one menu.
func (s *Service) MenuPermissions(c *fiber.Ctx) error {
	id, menuID, err := roleAndMenu(c)
	if err != nil {
		return err
	}

	perms, err := s.roles.GetMenuPermissions(c.UserContext(), id, menuID)
	if err != nil {
		return err
	}

	return handler.OK(c, perms)
}

func roleAndMenu(c *fiber.Ctx) (uint, uint, error) {
	id, err := handler.ID(c, paramID)
	if err != nil {
		return 0, 0, err
	}

	menuID, err := handler.ID(c, paramMenuID)
	if err != nil {
		return 0, 0, err
	}

	return id, menuID, nil
}
