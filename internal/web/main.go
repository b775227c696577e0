// Package web serves the JSON API.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/go-rbac-admin/go-rbac-admin/internal/auth"
	"github.com/go-rbac-admin/go-rbac-admin/internal/config"
	"github.com/go-rbac-admin/go-rbac-admin/internal/db/controller/kv"
	fiberlogger "github.com/go-rbac-admin/go-rbac-admin/internal/logger/adapter/fiber"
	"github.com/go-rbac-admin/go-rbac-admin/internal/menu"
	"github.com/go-rbac-admin/go-rbac-admin/internal/role"
	"github.com/go-rbac-admin/go-rbac-admin/internal/web/handler"
	"github.com/go-rbac-admin/go-rbac-admin/internal/web/handler/account"
	menuhandler "github.com/go-rbac-admin/go-rbac-admin/internal/web/handler/menu"
	rolehandler "github.com/go-rbac-admin/go-rbac-admin/internal/web/handler/role"
	userhandler "github.com/go-rbac-admin/go-rbac-admin/internal/web/handler/user"
)

const (
	// HealthPath answers 503 while the service drains.
	HealthPath = "/health"

	// MetricsPath exposes the prometheus metrics.
	MetricsPath = "/metrics"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for a termination signal and stops the service gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so the health check returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service. Revoked refresh tokens are kept in revoked,
// refresh rotation claims used tokens in the kv table of db.
func New(cfg *config.Config, db *gorm.DB, revoked auth.RevocationStore) (*Service, error) {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	claims, err := kv.New(db)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth, revoked, auth.WithRefreshClaimer(claims))
	if err != nil {
		return nil, err
	}

	roles := role.NewService(db)
	access := auth.NewService(db, roles)
	local := auth.NewLocalProvider(db, auth.NewPasswordHasher(cfg.Auth.Password), roles, cfg.Auth)
	menus := menu.NewService(db, roles, access)
	guard := auth.NewGuard(tokens, access, cfg.Auth.BypassPaths)

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			BodyLimit:      cfg.Webserver.BodyLimit,
			ErrorHandler:   handler.ErrorHandler,
		},
	)

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:    cfg.Log,
		HealthURI: HealthPath,
		UserID: func(c *fiber.Ctx) (uint64, bool) {
			if id, ok := auth.IdentityFromCtx(c); ok {
				return id.UserID(), true
			}

			return 0, false
		},
	}))
	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))

	service := &Service{
		cfg: cfg,
		App: app,
	}

	guard.Register(app,
		auth.Route{Method: fiber.MethodGet, Path: HealthPath, Public: true, Handler: service.health},
		auth.Route{
			Method: fiber.MethodGet, Path: MetricsPath, Public: true,
			Handler: adaptor.HTTPHandler(promhttp.Handler()),
		},
	)

	// init handlers (they register their own routes with the guard in front)
	new(account.Service).Init(app, guard, local, tokens)
	new(userhandler.Service).Init(app, guard, local, access)
	new(rolehandler.Service).Init(app, guard, roles)
	new(menuhandler.Service).Init(app, guard, menus)

	service.alive.Store(true)

	return service, nil
}

func (s *Service) health(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendString("OK")
}
