// Package app assembles the service from configuration: storage backends,
// the session authority, core services, the notification worker and the
// fiber application.
package app

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// App holds the assembled service.
type App struct {
	HTTP    *fiber.App
	Metrics *observability.Metrics

	Auth    *service.AuthService
	Tickets *service.TicketService
	Users   *service.UserService

	logger   *zap.Logger
	postgres *persistence.Postgres
	sessions *persistence.SessionStore
	worker   *worker.NotificationWorker
}

// New connects the configured backends and wires every component. The
// bootstrap admin is created before New returns; failing to do so aborts
// startup.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{logger: logger, Metrics: observability.NewMetrics()}

	users, tickets, err := a.openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	sessions, err := a.openSessions(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	authority := auth.NewSessionAuthority(auth.SessionDependencies{
		Sessions: sessions,
		Tokens:   auth.NewTokenManager(cfg.Auth.JWTSecret, nil),
		Logger:   logger,
	}, cfg.Auth.SessionTTL)

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(logger, cfg.Notification)
	a.worker = worker.StartNotificationWorker(ctx, dispatcher, notifications, logger)

	if _, err := service.Bootstrap(ctx, service.BootstrapDependencies{
		Users:  users,
		Hasher: hasher,
		Logger: logger,
	}, service.BootstrapConfig{
		Username: cfg.Auth.BootstrapAdminUsername,
		Password: cfg.Auth.BootstrapAdminPassword,
	}); err != nil {
		a.Close()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	a.Auth = service.NewAuthService(service.AuthDependencies{
		UserRepo:   users,
		Hasher:     hasher,
		Sessions:   authority,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	a.Tickets = service.NewTicketService(service.TicketDependencies{
		TicketRepo: tickets,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	a.Users = service.NewUserService(service.UserDependencies{
		UserRepo:   users,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	// Immutable: route params and bodies end up in the stores and must
	// outlive fasthttp's request buffers.
	a.HTTP = fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		Immutable:             true,
		ErrorHandler:          fallbackErrorHandler,
	})
	httptransport.RegisterMiddlewares(a.HTTP, logger, a.Metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(a.HTTP, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, a.healthChecks(), a.Metrics),
		Auth:    handlers.NewAuthHandler(a.Auth),
		Tickets: handlers.NewTicketsHandler(a.Tickets, a.Auth),
		Users:   handlers.NewUsersHandler(a.Users, a.Auth),
	})
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (repository.UserRepository, repository.TicketRepository, error) {
	if cfg.Storage.Backend == config.BackendMemory {
		a.logger.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemoryUserRepository(), repository.NewMemoryTicketRepository(), nil
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, a.logger)
	if err != nil {
		return nil, nil, err
	}
	a.postgres = pg

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.DB, a.logger); err != nil {
			return nil, nil, err
		}
	}
	return repository.NewUserRepository(pg.DB, a.logger), repository.NewTicketRepository(pg.DB, a.logger), nil
}

func (a *App) openSessions(ctx context.Context, cfg *config.Config) (repository.SessionRepository, error) {
	if cfg.Storage.SessionBackend == config.BackendMemory {
		return repository.NewMemorySessionRepository(), nil
	}
	store, err := persistence.NewSessionStore(ctx, cfg.Redis, a.logger)
	if err != nil {
		return nil, err
	}
	a.sessions = store
	return store.Repository(), nil
}

func (a *App) healthChecks() map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{}
	if a.postgres != nil {
		checks["postgres"] = a.postgres
	}
	if a.sessions != nil {
		checks["sessions"] = a.sessions
	}
	return checks
}

// Close stops the worker and releases store connections.
func (a *App) Close() {
	a.worker.Stop()
	a.sessions.Close()
	a.postgres.Close()
}

// fallbackErrorHandler only sees errors that escaped the error middleware.
func fallbackErrorHandler(c *fiber.Ctx, err error) error {
	domainErr := apperrors.ToDomainError(err)
	return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}})
}
