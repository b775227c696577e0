package menu

import (
	"fmt"

	"github.com/go-rbac-admin/go-rbac-admin/internal/apperror"
)

var (
	// ErrMenuNotFound is returned when a menu id does not exist.
	ErrMenuNotFound = fmt.Errorf("menu not found: %w", apperror.ErrNotFound)

	// ErrParentNotFound is returned when the parent of a menu does not exist.
	ErrParentNotFound = fmt.Errorf("parent menu not found: %w", apperror.ErrNotFound)

	// ErrMenuNameExists is returned when a menu name is already taken.
	ErrMenuNameExists = fmt.Errorf("menu name already exists: %w", apperror.ErrConflict)

	// ErrMenuPathExists is returned when another menu already uses the route path.
	ErrMenuPathExists = fmt.Errorf("menu path already exists: %w", apperror.ErrConflict)

	// ErrMenuHasChildren is returned when deleting a menu that still has children.
	ErrMenuHasChildren = fmt.Errorf("menu has children: %w", apperror.ErrConflict)

	// ErrInvalidParent is returned when a menu would become its own ancestor.
	ErrInvalidParent = fmt.Errorf("menu cannot be moved below itself: %w", apperror.ErrValidation)
)
