package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// dummyPassword is hashed once and verified against when a login names an
// unknown user, so both failure paths cost one bcrypt comparison.
const dummyPassword = "helpdesk-timing-equaliser"

// AuthService coordinates registration, login and session resolution.
type AuthService struct {
	users      repository.UserRepository
	hasher     *auth.PasswordHasher
	sessions   *auth.SessionAuthority
	dispatcher events.Dispatcher
	logger     *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Hasher     *auth.PasswordHasher
	Sessions   *auth.SessionAuthority
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// AuthResult is returned by a successful login.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		hasher:     deps.Hasher,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Register creates a new account with the user role.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	if details := validateUsername(username); details != nil {
		return nil, apperrors.NewValidationError("invalid username", details)
	}
	if details := validatePassword(password); details != nil {
		return nil, apperrors.NewValidationError("invalid password", details)
	}

	_, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, apperrors.NewConflict("username already taken", map[string]any{"username": username})
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.NewStoreError(err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		ID:           newID(),
		Username:     username,
		PasswordHash: digest,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.NewConflict("username already taken", map[string]any{"username": username})
		}
		return nil, apperrors.NewStoreError(err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventUserRegistered,
		SubjectID: user.ID,
		ActorID:   user.ID,
		Payload:   events.UserRegisteredPayload{Username: user.Username, Role: user.Role},
	})
	return user, nil
}

// Authenticate verifies credentials and issues a session token. Unknown
// usernames and wrong passwords fail identically.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewStoreError(err)
		}
		s.hasher.Verify(password, s.timingHash())
		s.logger.Info("login failed", zap.String("username", username))
		return nil, apperrors.NewInvalidCredentials()
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.Info("login failed", zap.String("username", username))
		return nil, apperrors.NewInvalidCredentials()
	}

	token, expiresAt, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	s.logger.Info("login succeeded", zap.String("user_id", user.ID), zap.String("token_fp", auth.Fingerprint(token)))
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// EndSession revokes the session behind token. Unknown tokens are ignored.
func (s *AuthService) EndSession(ctx context.Context, token string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return apperrors.NewStoreError(err)
	}
	return nil
}

// ResolvePrincipal maps a session token to the user it authenticates.
func (s *AuthService) ResolvePrincipal(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			return nil, apperrors.NewUnauthenticated("invalid or expired session")
		}
		return nil, apperrors.NewStoreError(err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthenticated("invalid or expired session")
		}
		return nil, apperrors.NewStoreError(err)
	}
	return user, nil
}

func (s *AuthService) timingHash() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Warn("failed to prepare timing hash", zap.Error(err))
			return
		}
		s.dummyHash = digest
	})
	return s.dummyHash
}
