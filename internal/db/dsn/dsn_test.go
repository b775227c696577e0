package dsn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-rbac-admin/go-rbac-admin/internal/config"
)

func testDB(engine string) config.DB {
	return config.DB{
		Host:       "db",
		Port:       5432,
		User:       "rbac",
		Password:   "secret",
		Name:       "rbac",
		GormEngine: engine,
	}
}

func TestMySQL(t *testing.T) {
	db := testDB(config.EngineMySQL)
	db.Port = 3306
	db.Extras = "parseTime=True"

	assert.Equal(t, "rbac:secret@tcp(db:3306)/rbac?parseTime=True", MySQL(db))
}

func TestPostgres(t *testing.T) {
	db := testDB(config.EnginePostgres)
	db.Extras = "sslmode=disable TimeZone=UTC"

	assert.Equal(t, "host=db port=5432 user=rbac password=secret dbname=rbac sslmode=disable TimeZone=UTC", Postgres(db))
	assert.Equal(t, "postgres://rbac:secret@db:5432/rbac?sslmode=disable&TimeZone=UTC", PostgresURL(db))
}

func TestSQLite(t *testing.T) {
	assert.Equal(t, "rbac.db", SQLite(config.DB{}))
	assert.Equal(t, "/tmp/x.db?_pragma=foreign_keys(1)", SQLite(config.DB{Name: "/tmp/x.db", Extras: "_pragma=foreign_keys(1)"}))
}

func TestDialector(t *testing.T) {
	for _, engine := range []string{config.EngineMySQL, config.EnginePostgres, config.EngineSQLite} {
		d, err := Dialector(testDB(engine))
		require.NoError(t, err, engine)
		assert.Equal(t, engine, d.Name())
	}

	_, err := Dialector(testDB("oracle"))
	assert.ErrorIs(t, err, config.ErrUnknownEngine)
}
