package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// BootstrapDependencies bundles collaborators for Bootstrap.
type BootstrapDependencies struct {
	Users  repository.UserRepository
	Hasher *auth.PasswordHasher
	Logger *zap.Logger
}

// BootstrapConfig names the administrator created on an empty system.
type BootstrapConfig struct {
	Username string
	Password string
}

// Bootstrap guarantees at least one administrator exists. It is a no-op when
// one already does and returns the created admin otherwise. Any error means
// the process must not start.
func Bootstrap(ctx context.Context, deps BootstrapDependencies, cfg BootstrapConfig) (*domain.User, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	exists, err := deps.Users.ExistsWithRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: check for admin: %w", err)
	}
	if exists {
		logger.Info("admin already exists; bootstrap skipped")
		return nil, nil
	}

	if details := validateUsername(cfg.Username); details != nil {
		return nil, fmt.Errorf("bootstrap: invalid admin username %q: %v", cfg.Username, details["username"])
	}
	if cfg.Password == "" {
		return nil, errors.New("bootstrap: no admin exists and AUTH_BOOTSTRAP_ADMIN_PASSWORD is empty")
	}

	_, err = deps.Users.GetByUsername(ctx, cfg.Username)
	switch {
	case err == nil:
		return nil, fmt.Errorf("bootstrap: username %q already belongs to a non-admin user", cfg.Username)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("bootstrap: look up %q: %w", cfg.Username, err)
	}

	digest, err := deps.Hasher.Hash(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: hash admin password: %w", err)
	}

	admin := &domain.User{
		ID:           newID(),
		Username:     cfg.Username,
		PasswordHash: digest,
		Role:         domain.RoleAdmin,
	}
	if err := deps.Users.Create(ctx, admin); err != nil {
		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("bootstrap: create admin: %w", err)
		}
		// another instance may have won the race
		exists, checkErr := deps.Users.ExistsWithRole(ctx, domain.RoleAdmin)
		if checkErr != nil {
			return nil, fmt.Errorf("bootstrap: re-check for admin: %w", checkErr)
		}
		if exists {
			logger.Info("admin created concurrently; bootstrap skipped")
			return nil, nil
		}
		return nil, fmt.Errorf("bootstrap: username %q already belongs to a non-admin user", cfg.Username)
	}

	logger.Info("bootstrap admin created", zap.String("user_id", admin.ID), zap.String("username", admin.Username))
	return admin, nil
}
