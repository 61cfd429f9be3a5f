package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 64
	// bcrypt ignores input past 72 bytes, so longer passwords are rejected.
	maxPasswordBytes = 72
)

// newID returns a time-ordered UUIDv7, falling back to a random v4.
func newID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// translateStoreError maps repository sentinels to domain errors. Anything
// else is a store failure.
func translateStoreError(err error, resource string, details map[string]any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, details)
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewConflict(resource+" already exists", details)
	case errors.Is(err, repository.ErrInvalidRef):
		return apperrors.NewNotFound("referenced "+resource, details)
	default:
		return apperrors.NewStoreError(err)
	}
}

func requirePrincipal(principal *domain.User) error {
	if principal == nil || principal.ID == "" {
		return apperrors.NewUnauthenticated("authentication required")
	}
	return nil
}

func validateUsername(username string) map[string]any {
	switch n := utf8.RuneCountInString(username); {
	case n == 0:
		return map[string]any{"username": "required"}
	case n < minUsernameLength || n > maxUsernameLength:
		return map[string]any{"username": "must be between 3 and 64 characters"}
	}
	if strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		return map[string]any{"username": "must not contain whitespace"}
	}
	return nil
}

func validatePassword(password string) map[string]any {
	switch {
	case password == "":
		return map[string]any{"password": "required"}
	case len(password) > maxPasswordBytes:
		return map[string]any{"password": "must be at most 72 bytes"}
	}
	return nil
}

func validateTicketText(title, description string) map[string]any {
	details := map[string]any{}
	if strings.TrimSpace(title) == "" {
		details["title"] = "required"
	}
	if strings.TrimSpace(description) == "" {
		details["description"] = "required"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// publishEvent stamps and dispatches an event. Handler failures are logged
// and never fail the operation that produced the event.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = newID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
