// Package main provides the entry point of go-rbac-admin, a role based
// access control backend for admin consoles. It serves a JSON API built
// on fiber that manages users, roles, menu scoped permission grants and
// the navigation menu tree, and issues JWT access and refresh tokens.
// Persistence uses gorm on mysql, postgres or sqlite.
package main
