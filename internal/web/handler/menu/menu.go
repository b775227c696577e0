// Package menu provides the menu administration endpoints and the menu
// tree of the caller.
package menu

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/go-rbac-admin/go-rbac-admin/internal/auth"
	"github.com/go-rbac-admin/go-rbac-admin/internal/menu"
	"github.com/go-rbac-admin/go-rbac-admin/internal/web/handler"
)

const (
	// Path is the base path for menu management.
	Path = handler.APIPath + "/menus"

	paramID = "id"
)

type rolesInput struct {
	Roles []uint `json:"roles"`
}

// Service provides the menu handlers.
type Service struct {
	menus *menu.Service
}

// Init registers routes.
func (s *Service) Init(app fiber.Router, guard *auth.Guard, menus *menu.Service) {
	if app == nil || guard == nil || menus == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)

		return
	}

	s.menus = menus

	read := []string{auth.PermMenuRead}

	guard.Register(app.Group(Path),
		auth.Route{
			Method: fiber.MethodPost, Path: handler.RouterRootPath,
			Permissions: []string{auth.PermMenuCreate}, Handler: s.Create,
		},
		auth.Route{Method: fiber.MethodGet, Path: handler.RouterRootPath, Permissions: read, Handler: s.List},
		auth.Route{Method: fiber.MethodGet, Path: "/tree", Permissions: read, Handler: s.FullTree},
		auth.Route{Method: fiber.MethodPost, Path: "/tree/roles", Permissions: read, Handler: s.TreeByRoles},
		auth.Route{Method: fiber.MethodGet, Path: "/user", Handler: s.UserTree},
		auth.Route{Method: fiber.MethodGet, Path: "/:id", Permissions: read, Handler: s.Get},
		auth.Route{
			Method: fiber.MethodPut, Path: "/:id",
			Permissions: []string{auth.PermMenuUpdate}, Handler: s.Update,
		},
		auth.Route{
			Method: fiber.MethodPut, Path: "/:id/roles",
			Permissions: []string{auth.PermMenuManageVisibility}, Handler: s.SetRoles,
		},
		auth.Route{
			Method: fiber.MethodDelete, Path: "/:id",
			Permissions: []string{auth.PermMenuDelete}, Handler: s.Delete,
		},
	)
}

// Create creates a menu.
func (s *Service) Create(c *fiber.Ctx) error {
	var in menu.CreateInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	m, err := s.menus.Create(c.UserContext(), in)
	if err != nil {
		return err
	}

	return handler.Created(c, m)
}

// List returns a page of menus.
func (s *Service) List(c *fiber.Ctx) error {
	f, err := handler.Filter(c)
	if err != nil {
		return err
	}

	page, err := s.menus.List(c.UserContext(), f)
	if err != nil {
		return err
	}

	return handler.OK(c, page)
}

// FullTree returns every menu as a tree.
func (s *Service) FullTree(c *fiber.Ctx) error {
	tree, err := s.menus.FullTree(c.UserContext())
	if err != nil {
		return err
	}

	return handler.OK(c, tree)
}

// TreeByRoles returns the menu tree the given roles see.
func (s *Service) TreeByRoles(c *fiber.Ctx) error {
	var in rolesInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	tree, err := s.menus.TreeByRoles(c.UserContext(), in.Roles)
	if err != nil {
		return err
	}

	return handler.OK(c, tree)
}

// UserTree returns the menu tree of the caller.
func (s *Service) UserTree(c *fiber.Ctx) error {
	id, _ := auth.IdentityFromCtx(c)

	tree, err := s.menus.UserTree(c.UserContext(), id.UserID())
	if err != nil {
		return err
	}

	return handler.OK(c, tree)
}

// Get returns a menu.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := handler.ID(c, paramID)
	if err != nil {
		return err
	}

	m, err := s.menus.Get(c.UserContext(), id)
	if err != nil {
		return err
	}

	return handler.OK(c, m)
}

// Update changes a menu.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ID(c, paramID)
	if err != nil {
		return err
	}

	var in menu.UpdateInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	m, err := s.menus.Update(c.UserContext(), id, in)
	if err != nil {
		return err
	}

	return handler.OK(c, m)
}

// SetRoles replaces the roles a menu is visible to.
func (s *Service) SetRoles(c *fiber.Ctx) error {
	id, err := handler.ID(c, paramID)
	if err != nil {
		return err
	}

	var in rolesInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	m, err := s.menus.SetMenuRoles(c.UserContext(), id, in.Roles)
	if err != nil {
		return err
	}

	return handler.OK(c, m)
}

// Delete soft deletes a menu.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ID(c, paramID)
	if err != nil {
		return err
	}

	if err := s.menus.Delete(c.UserContext(), id); err != nil {
		return err
	}

	log.Info().Uint("menu_id", id).Msg("menu deleted")

	return handler.Message(c, "menu deleted")
}
