// Package user provides the user administration endpoints.
package user

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/go-rbac-admin/go-rbac-admin/internal/auth"
	"github.com/go-rbac-admin/go-rbac-admin/internal/web/handler"
)

const (
	// Path is the base path for user management.
	Path = handler.APIPath + "/users"

	paramID     = "id"
	paramRoleID = "roleId"
)

// Permissions is the effective access of a user.
type Permissions struct {
	Roles       []uint   `json:"roles"`
	Permissions []string `json:"permissions"`
}

type idsInput struct {
	IDs []uint64 `json:"ids"`
}

type rolesInput struct {
	Roles []uint `json:"roles"`
}

type checkInput struct {
	Permissions []string `json:"permissions"`
}

// Service provides the user administration handlers.
type Service struct {
	local  *auth.LocalProvider
	access *auth.Service
}

// Init registers routes.
func (s *Service) Init(app fiber.Router, guard *auth.Guard, local *auth.LocalProvider, access *auth.Service) {
	if app == nil || guard == nil || local == nil || access == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)

		return
	}

	s.local = local
	s.access = access

	read := []string{auth.PermUserRead}
	manageRoles := []string{auth.PermUserManageRoles}

	guard.Register(app.Group(Path),
		auth.Route{
			Method: fiber.MethodPost, Path: handler.RouterRootPath,
			Permissions: []string{auth.PermUserCreate}, Handler: s.Create,
		},
		auth.Route{
			Method: fiber.MethodGet, Path: handler.RouterRootPath,
			Roles: []string{"ADMIN", "SUPER_ADMIN"}, Permissions: read, Handler: s.List,
		},
		auth.Route{
			Method: fiber.MethodPost, Path: "/delete",
			Permissions: []string{auth.PermUserDelete}, Handler: s.DeleteBatch,
		},
		auth.Route{Method: fiber.MethodGet, Path: "/:id", Permissions: read, Handler: s.Get},
		auth.Route{
			Method: fiber.MethodPut, Path: "/:id",
			Permissions: []string{auth.PermUserUpdate}, Handler: s.Update,
		},
		auth.Route{
			Method: fiber.MethodDelete, Path: "/:id",
			Permissions: []string{auth.PermUserDelete}, Handler: s.Delete,
		},
		auth.Route{Method: fiber.MethodPut, Path: "/:id/roles", Permissions: manageRoles, Handler: s.SetRoles},
		auth.Route{Method: fiber.MethodPost, Path: "/:id/roles/:roleId", Permissions: manageRoles, Handler: s.AddRole},
		auth.Route{Method: fiber.MethodDelete, Path: "/:id/roles/:roleId", Permissions: manageRoles, Handler: s.RemoveRole},
		auth.Route{Method: fiber.MethodGet, Path: "/:id/permissions", Permissions: read, Handler: s.Permissions},
		auth.Route{Method: fiber.MethodPost, Path: "/:id/permissions/check", Permissions: read, Handler: s.Check},
	)
}

// Create creates a user with the given roles, the default roles otherwise.
func (s *Service) Create(c *fiber.Ctx) error {
	var in auth.RegisterInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	caller, _ := auth.IdentityFromCtx(c)

	user, err := s.local.CreateUser(c.UserContext(), in, caller.UserID())
	if err != nil {
		return err
	}

	log.Info().Uint64("user_id", user.ID).Uint64("created_by", caller.UserID()).Msg("user created")

	return handler.Created(c, user)
}

// List returns a page of users.
func (s *Service) List(c *fiber.Ctx) error {
	f, err := handler.Filter(c)
	if err != nil {
		return err
	}

	page, err := s.local.ListUsers(c.UserContext(), f)
	if err != nil {
		return err
	}

	return handler.OK(c, page)
}

// Get returns a user.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := handler.UserID(c, paramID)
	if err != nil {
		return err
	}

	user, err := s.local.GetUserByID(c.UserContext(), id)
	if err != nil {
		return err
	}

	return handler.OK(c, user)
}

// Update changes the profile fields of a user.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.UserID(c, paramID)
	if err != nil {
		return err
	}

	var in auth.UpdateUserInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	user, err := s.local.UpdateUser(c.UserContext(), id, in)
	if err != nil {
		return err
	}

	return handler.OK(c, user)
}

// Delete soft deletes a user.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.UserID(c, paramID)
	if err != nil {
		return err
	}

	if err := s.local.DeleteUser(c.UserContext(), id); err != nil {
		return err
	}

	return handler.Message(c, "user deleted")
}

// DeleteBatch soft deletes several users at once.
func (s *Service) DeleteBatch(c *fiber.Ctx) error {
	var in idsInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	if err := s.local.DeleteUsers(c.UserContext(), in.IDs); err != nil {
		return err
	}

	return handler.Message(c, "users deleted")
}

// SetRoles replaces the role assignments of a user.
func (s *Service) SetRoles(c *fiber.Ctx) error {
	id, err := handler.UserID(c, paramID)
	if err != nil {
		return err
	}

	var in rolesInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	caller, _ := auth.IdentityFromCtx(c)

	if err := s.access.AssignRolesToUser(c.UserContext(), id, in.Roles, caller.UserID()); err != nil {
		return err
	}

	return s.permissions(c, id)
}

// AddRole assigns one more role to a user.
func (s *Service) AddRole(c *fiber.Ctx) error {
	id, roleID, err := userAndRole(c)
	if err != nil {
		return err
	}

	caller, _ := auth.IdentityFromCtx(c)

	if err := s.access.AddRoleToUser(c.UserContext(), id, roleID, caller.UserID()); err != nil {
		return err
	}

	return s.permissions(c, id)
}

// RemoveRole removes a role assignment of a user.
func (s *Service) RemoveRole(c *fiber.Ctx) error {
	id, roleID, err := userAndRole(c)
	if err != nil {
		return err
	}

	if err := s.access.RemoveRoleFromUser(c.UserContext(), id, roleID); err != nil {
		return err
	}

	return s.permissions(c, id)
}

// Permissions returns the roles and effective permissions of a user.
func (s *Service) Permissions(c *fiber.Ctx) error {
	id, err := handler.UserID(c, paramID)
	if err != nil {
		return err
	}

	return s.permissions(c, id)
}

// Check answers, for each given permission, whether the user holds it.
func (s *Service) Check(c *fiber.Ctx) error {
	id, err := handler.UserID(c, paramID)
	if err != nil {
		return err
	}

	var in checkInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	results, err := s.access.CheckPermissions(c.UserContext(), id, in.Permissions)
	if err != nil {
		return err
	}

	return handler.OK(c, results)
}

func (s *Service) permissions(c *fiber.Ctx, id uint64) error {
	res, err := s.access.Resolve(c.UserContext(), id)
	if err != nil {
		return err
	}

	return handler.OK(c, Permissions{Roles: res.RoleIDs(), Permissions: res.Permissions.Sorted()})
}

func userAndRole(c *fiber.Ctx) (uint64, uint, error) {
	id, err := handler.UserID(c, paramID)
	if err != nil {
		return 0, 0, err
	}

	roleID, err := handler.ID(c, paramRoleID)
	if err != nil {
		return 0, 0, err
	}

	return id, roleID, nil
}
