package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// UserService exposes admin-only user management.
type UserService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// UserDependencies bundles collaborators for user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// ListUsers returns every account in creation order.
func (s *UserService) ListUsers(ctx context.Context, principal *domain.User) ([]domain.User, error) {
	if err := auth.Authorize(principal, "", auth.ActionUserList); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	return users, nil
}

// SetRole changes the role of userID.
func (s *UserService) SetRole(ctx context.Context, principal *domain.User, userID, newRole string) (*domain.User, error) {
	if err := auth.Authorize(principal, "", auth.ActionUserSetRole); err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(newRole)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": "must be one of admin, user"})
	}

	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translateStoreError(err, "user", map[string]any{"id": userID})
	}
	updated, err := s.users.UpdateRole(ctx, userID, role)
	if err != nil {
		return nil, translateStoreError(err, "user", map[string]any{"id": userID})
	}

	s.logger.Info("user role changed",
		zap.String("user_id", updated.ID),
		zap.String("actor_id", principal.ID),
		zap.String("old_role", string(current.Role)),
		zap.String("new_role", string(updated.Role)))
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventUserRoleChanged,
		SubjectID: updated.ID,
		ActorID:   principal.ID,
		Payload:   events.UserRoleChangedPayload{OldRole: current.Role, NewRole: updated.Role},
	})
	return updated, nil
}
