// Package auth provides authentication and authorization for the admin console.
//
// # Authorization model
//
// Users reach roles through an optional direct role and through user_roles
// rows. Every role owns a list of grants; a grant scopes a list of
// permission strings to one menu, or to no menu at all. The effective
// permissions of a user are the deduplicated union of the grants of all
// its active roles.
//
// Permissions have the form "resource:action". PermissionSet.Allows
// understands two wildcards:
//   - "resource:*" grants every action on the resource
//   - PermAll ("*") grants everything
//
// # Permission Checking
//
// The Service type resolves users:
//   - Resolve: roles and permissions of a user in one call
//   - ResolvePermissions / GetUserPermissions: the permission set
//   - CheckPermission / CheckPermissions: wildcard aware checks
//   - HasAnyPermission / HasAllPermissions
//   - AssignRolesToUser / AddRoleToUser / RemoveRoleFromUser
//
// # Authentication
//
// LocalProvider authenticates accounts stored in the database. Passwords
// are hashed by a PasswordHasher (argon2id or bcrypt), consecutive failures
// lock the account and an optional TOTP second factor can be enrolled.
// TokenIssuer signs an access and a refresh token per login, each with its
// own secret; revoked refresh tokens are kept in a RevocationStore.
//
// # Guard
//
// Routes are declared with Route and installed with Guard.Register. The
// guard first authenticates the bearer token (unless the route is public),
// then checks that the caller holds any one of the declared roles or
// permissions. Paths on the bypass list skip the second step.
//
// Example usage:
//
//	roles := role.NewService(db)
//	authService := auth.NewService(db, roles)
//	guard := auth.NewGuard(tokens, authService, cfg.Auth.BypassPaths)
//
//	guard.Register(app,
//	    auth.Route{Method: fiber.MethodGet, Path: "/api/users",
//	        Permissions: []string{auth.PermUserRead}, Handler: listUsers},
//	)
package auth
