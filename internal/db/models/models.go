package models

// All lists every model for auto migration.
func All() []any {
	return []any{
		&User{},
		&Role{},
		&UserRole{},
		&Menu{},
		&MenuRole{},
		&RoleMenuGrant{},
		&KV{},
	}
}
