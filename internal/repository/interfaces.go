//go:generate mockgen -source=interfaces.go -destination=../mock/repository_mock.go -package=mock

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Sentinel errors shared by every store implementation. Any other error a
// repository returns is a store failure.
var (
	ErrNotFound        = errors.New("record not found")
	ErrConflict        = errors.New("record already exists")
	ErrInvalidRef      = errors.New("referenced record does not exist")
	ErrSessionNotFound = errors.New("session not found")
)

// UserRepository is the credential store.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	ExistsWithRole(ctx context.Context, role domain.Role) (bool, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error)
}

// TicketFilter narrows ticket scans. Nil fields match everything.
type TicketFilter struct {
	AuthorID *string
	Status   *domain.TicketStatus
}

// TicketRepository is the ticket store. Update overwrites title, description
// and status in one atomic write and never touches AuthorID.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
}

// SessionRepository maps session ids to sessions. Delete of an unknown id
// is not an error.
type SessionRepository interface {
	Save(ctx context.Context, session *domain.Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}
