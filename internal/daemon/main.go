// Package daemon wires the database, the seed data and the web service.
package daemon

import (
	"context"
	"fmt"

	storagemysql "github.com/gofiber/storage/mysql/v2"
	storagepostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/go-rbac-admin/go-rbac-admin/internal/auth"
	"github.com/go-rbac-admin/go-rbac-admin/internal/config"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/controller/kv"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/dsn"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/models"
	"github.com/go-rbac-admin/go-rbac-admin/internal/web"
)

// RevokedTokensTable holds revoked refresh tokens on mysql and postgres.
const RevokedTokensTable = "revoked_tokens"

// revocationBackend is a revocation store owning a connection.
type revocationBackend interface {
	auth.RevocationStore
	Close() error
}

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	revoked    revocationBackend
	webService *web.Service
}

// Start serves until a termination signal arrives and the service drained.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	err := d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))

	if cerr := d.revoked.Close(); cerr != nil {
		log.Error().Err(cerr).Msg("failed to close revocation store")
	}

	if sqlDB, derr := d.db.DB(); derr == nil {
		_ = sqlDB.Close()
	}

	return err
}

// New opens and migrates the database, seeds it and creates the web service.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		log.Fatal().Msg("config is nil")

		return nil, nil //nolint:nilnil
	}

	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	if err = db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if _, err = seed(context.Background(), cfg, db); err != nil {
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	revoked, err := revocationStore(cfg, db)
	if err != nil {
		return nil, err
	}

	webService, err := web.New(cfg, db, revoked)
	if err != nil {
		_ = revoked.Close()

		return nil, err
	}

	return &Daemon{cfg: cfg, db: db, revoked: revoked, webService: webService}, nil
}

// Open connects to the configured database engine. Unique constraint
// violations surface as gorm.ErrDuplicatedKey.
func Open(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dsn.Dialector(cfg.DB)
	if err != nil {
		return nil, err
	}

	level := gormlogger.Silent
	if cfg.DevMode {
		level = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	return db, nil
}

// revocationStore picks the gofiber storage of the engine; sqlite keeps
// revoked tokens in the kv table of the main database.
func revocationStore(cfg *config.Config, db *gorm.DB) (revocationBackend, error) {
	switch cfg.DB.GormEngine {
	case config.EngineMySQL:
		return storagemysql.New(storagemysql.Config{
			ConnectionURI: dsn.MySQL(cfg.DB),
			Table:         RevokedTokensTable,
		}), nil
	case config.EnginePostgres:
		return storagepostgres.New(storagepostgres.Config{
			ConnectionURI: dsn.PostgresURL(cfg.DB),
			Table:         RevokedTokensTable,
		}), nil
	default:
		store, err := kv.New(db)
		if err != nil {
			return nil, err
		}

		if n, err := store.GC(); err != nil {
			log.Warn().Err(err).Msg("failed to drop expired kv entries")
		} else if n > 0 {
			log.Info().Int64("count", n).Msg("dropped expired kv entries")
		}

		return store, nil
	}
}
