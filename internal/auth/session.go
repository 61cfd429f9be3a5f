package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

const sessionIDBytes = 32

// ErrUnauthenticated is returned when a token does not resolve to a live session.
var ErrUnauthenticated = errors.New("unauthenticated")

// SessionAuthority issues, resolves and revokes session tokens.
type SessionAuthority struct {
	sessions repository.SessionRepository
	tokens   *TokenManager
	ttl      time.Duration
	clock    Clock
	logger   *zap.Logger
}

// SessionDependencies bundles collaborators for the session authority.
type SessionDependencies struct {
	Sessions repository.SessionRepository
	Tokens   *TokenManager
	Clock    Clock
	Logger   *zap.Logger
}

// NewSessionAuthority constructs the authority. A non-positive ttl falls back to 24h.
func NewSessionAuthority(deps SessionDependencies, ttl time.Duration) *SessionAuthority {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionAuthority{
		sessions: deps.Sessions,
		tokens:   deps.Tokens,
		ttl:      ttl,
		clock:    deps.Clock,
		logger:   logger,
	}
}

// Issue creates a session for userID and returns its signed token.
func (a *SessionAuthority) Issue(ctx context.Context, userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("user id required")
	}
	id, err := newSessionID()
	if err != nil {
		return "", time.Time{}, err
	}

	now := a.clock.now()
	session := &domain.Session{
		ID:        id,
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(a.ttl),
	}
	token, err := a.tokens.Sign(session)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	if err := a.sessions.Save(ctx, session, a.ttl); err != nil {
		return "", time.Time{}, err
	}

	a.logger.Debug("session issued",
		zap.String("user_id", userID),
		zap.String("token_fp", Fingerprint(token)),
		zap.Time("expires_at", session.ExpiresAt))
	return token, session.ExpiresAt, nil
}

// Resolve returns the user id bound to token, or ErrUnauthenticated.
func (a *SessionAuthority) Resolve(ctx context.Context, token string) (string, error) {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return "", ErrUnauthenticated
	}

	session, err := a.sessions.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return "", ErrUnauthenticated
		}
		return "", err
	}
	if session.UserID != claims.Subject {
		a.logger.Warn("session subject mismatch", zap.String("token_fp", Fingerprint(token)))
		return "", ErrUnauthenticated
	}
	if session.Expired(a.clock.now()) {
		if err := a.sessions.Delete(ctx, session.ID); err != nil {
			a.logger.Warn("failed to drop expired session", zap.Error(err))
		}
		return "", ErrUnauthenticated
	}
	return session.UserID, nil
}

// Revoke removes the session behind token. Unknown, malformed or expired
// tokens are a no-op.
func (a *SessionAuthority) Revoke(ctx context.Context, token string) error {
	claims, err := a.tokens.ParseIgnoringExpiry(token)
	if err != nil {
		a.logger.Debug("revoke ignored unparseable token", zap.String("token_fp", Fingerprint(token)))
		return nil
	}
	if err := a.sessions.Delete(ctx, claims.ID); err != nil {
		return err
	}
	a.logger.Debug("session revoked", zap.String("user_id", claims.Subject), zap.String("token_fp", Fingerprint(token)))
	return nil
}

func newSessionID() (string, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
