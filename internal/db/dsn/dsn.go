// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/go-rbac-admin/go-rbac-admin/internal/config"
)

// MySQL builds the go-sql-driver DSN.
func MySQL(db config.DB) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		db.User,
		db.Password,
		db.Host,
		db.Port,
		db.Name,
		db.Extras,
	)
}

// Postgres builds a key value pgx DSN. Extras are appended verbatim,
// e.g. "sslmode=disable TimeZone=UTC".
func Postgres(db config.DB) string {
	parts := []string{
		"host=" + db.Host,
		fmt.Sprintf("port=%d", db.Port),
		"user=" + db.User,
		"password=" + db.Password,
		"dbname=" + db.Name,
	}

	if db.Extras != "" {
		parts = append(parts, db.Extras)
	}

	return strings.Join(parts, " ")
}

// PostgresURL builds the url form used by the gofiber postgres storage.
func PostgresURL(db config.DB) string {
	out := fmt.Sprintf("postgres://%s:%s@%s:%d/%s", db.User, db.Password, db.Host, db.Port, db.Name)
	if db.Extras != "" {
		out += "?" + strings.ReplaceAll(db.Extras, " ", "&")
	}

	return out
}

// SQLite returns the database file, Name defaults to rbac.db.
func SQLite(db config.DB) string {
	if db.Name == "" {
		return "rbac.db"
	}

	if db.Extras != "" {
		return db.Name + "?" + db.Extras
	}

	return db.Name
}

// Dialector returns the gorm dialector of the configured engine.
func Dialector(db config.DB) (gorm.Dialector, error) {
	switch db.GormEngine {
	case config.EngineMySQL, "":
		return mysql.Open(MySQL(db)), nil
	case config.EnginePostgres:
		return postgres.Open(Postgres(db)), nil
	case config.EngineSQLite:
		return sqlite.Open(SQLite(db)), nil
	default:
		return nil, config.ErrUnknownEngine
	}
}
