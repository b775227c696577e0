package role

import (
	"fmt"

	"github.com/go-rbac-admin/go-rbac-admin/internal/apperror"
)

var (
	// ErrRoleNotFound is returned when a role id does not exist.
	ErrRoleNotFound = fmt.Errorf("role not found: %w", apperror.ErrNotFound)

	// ErrMenuNotFound is returned when a grant references a missing menu.
	ErrMenuNotFound = fmt.Errorf("menu not found: %w", apperror.ErrNotFound)

	// ErrRoleCodeExists is returned when a role code is already taken.
	ErrRoleCodeExists = fmt.Errorf("role code already exists: %w", apperror.ErrConflict)

	// ErrSystemRole is returned when deleting a system role.
	ErrSystemRole = fmt.Errorf("system role cannot be deleted: %w", apperror.ErrConflict)

	// ErrRoleInUse is returned when deleting a role that users still reference.
	ErrRoleInUse = fmt.Errorf("role is still assigned to users: %w", apperror.ErrConflict)

	// ErrInvalidRoles is returned when role ids to assign do not exist.
	ErrInvalidRoles = fmt.Errorf("invalid role ids: %w", apperror.ErrValidation)
)
