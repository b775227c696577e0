package auth

import (
	"slices"
	"strings"
)

// PermAll is the global wildcard, a role holding it is granted everything.
// It is only interpreted by PermissionSet.
const PermAll = "*"

const permSeparator = ":"

// Permission constants define the permissions known to the admin console.
// Permissions have the form "resource:action"; "resource:*" grants every
// action on the resource.
const (
	// PermUserCreate allows creating user accounts.
	PermUserCreate = "user:create"
	// PermUserRead allows listing and viewing user accounts and their permissions.
	PermUserRead = "user:read"
	// PermUserUpdate allows editing user accounts.
	PermUserUpdate = "user:update"
	// PermUserDelete allows deleting user accounts.
	PermUserDelete = "user:delete"
	// PermUserManageRoles allows assigning and removing roles of users.
	PermUserManageRoles = "user:manage_roles"

	// PermRoleCreate allows creating roles.
	PermRoleCreate = "role:create"
	// PermRoleRead allows listing and viewing roles and their grants.
	PermRoleRead = "role:read"
	// PermRoleUpdate allows editing roles.
	PermRoleUpdate = "role:update"
	// PermRoleDelete allows deleting roles.
	PermRoleDelete = "role:delete"
	// PermRoleManagePermissions allows changing the permissions and menu grants of roles.
	PermRoleManagePermissions = "role:manage_permissions"

	// PermMenuCreate allows creating menus.
	PermMenuCreate = "menu:create"
	// PermMenuRead allows viewing the full menu tree.
	PermMenuRead = "menu:read"
	// PermMenuUpdate allows editing menus.
	PermMenuUpdate = "menu:update"
	// PermMenuDelete allows deleting menus.
	PermMenuDelete = "menu:delete"
	// PermMenuManageVisibility allows restricting menus to roles.
	PermMenuManageVisibility = "menu:manage_visibility"

	// PermOrderManage grants every order action.
	PermOrderManage = "order:*"
	// PermReportExport allows exporting reports.
	PermReportExport = "report:export"
)

// Catalog lists every named permission, used to seed the system roles.
func Catalog() []string {
	return []string{
		PermUserCreate, PermUserRead, PermUserUpdate, PermUserDelete, PermUserManageRoles,
		PermRoleCreate, PermRoleRead, PermRoleUpdate, PermRoleDelete, PermRoleManagePermissions,
		PermMenuCreate, PermMenuRead, PermMenuUpdate, PermMenuDelete, PermMenuManageVisibility,
		PermOrderManage, PermReportExport,
	}
}

// PermissionSet is a deduplicated set of granted permissions.
type PermissionSet map[string]struct{}

// NewPermissionSet returns a set holding perms.
func NewPermissionSet(perms ...string) PermissionSet {
	s := make(PermissionSet, len(perms))
	s.Add(perms...)

	return s
}

// Add grants perms, empty strings are ignored.
func (s PermissionSet) Add(perms ...string) {
	for _, p := range perms {
		if p = strings.TrimSpace(p); p != "" {
			s[p] = struct{}{}
		}
	}
}

// Has reports whether p was granted literally.
func (s PermissionSet) Has(p string) bool {
	_, ok := s[p]

	return ok
}

// IsSuperAdmin reports whether the global wildcard was granted.
func (s PermissionSet) IsSuperAdmin() bool {
	return s.Has(PermAll)
}

// Allows reports whether the set satisfies the required permission.
//
// A requirement "resource:action" is met by the literal grant, by
// "resource:*" or by the global wildcard. A wildcard requirement
// "resource:*" is also met by any single grant on that resource.
func (s PermissionSet) Allows(required string) bool {
	if required == "" || len(s) == 0 {
		return false
	}

	if s.Has(required) || s.IsSuperAdmin() {
		return true
	}

	resource, action, found := strings.Cut(required, permSeparator)
	if !found {
		return false
	}

	if s.Has(resource + permSeparator + PermAll) {
		return true
	}

	if action == PermAll {
		prefix := resource + permSeparator
		for p := range s {
			if strings.HasPrefix(p, prefix) {
				return true
			}
		}
	}

	return false
}

// AllowsAny reports whether at least one of required is satisfied.
// An empty requirement list is never satisfied.
func (s PermissionSet) AllowsAny(required []string) bool {
	return slices.ContainsFunc(required, s.Allows)
}

// AllowsAll reports whether every one of required is satisfied.
// An empty requirement list is always satisfied.
func (s PermissionSet) AllowsAll(required []string) bool {
	for _, p := range required {
		if !s.Allows(p) {
			return false
		}
	}

	return true
}

// Sorted returns the granted permissions in lexical order.
func (s PermissionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}

	slices.Sort(out)

	return out
}
