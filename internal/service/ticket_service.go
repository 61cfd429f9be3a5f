package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows. Every operation passes
// through auth.Authorize before touching the store.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketInput describes ticket creation payload.
type TicketInput struct {
	Title       string
	Description string
}

// TicketUpdateInput carries the full set of mutable fields. Status is the
// raw wire value and is validated by Update.
type TicketUpdateInput struct {
	Title       string
	Description string
	Status      string
}

// TicketListFilter narrows List. A nil Status matches every status.
type TicketListFilter struct {
	Status *domain.TicketStatus
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Create opens a new ticket authored by principal.
func (s *TicketService) Create(ctx context.Context, principal *domain.User, input TicketInput) (*domain.Ticket, error) {
	if err := auth.Authorize(principal, "", auth.ActionTicketCreate); err != nil {
		return nil, err
	}
	if details := validateTicketText(input.Title, input.Description); details != nil {
		return nil, apperrors.NewValidationError("invalid ticket", details)
	}

	ticket := &domain.Ticket{
		ID:          newID(),
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
		AuthorID:    principal.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrInvalidRef) {
			return nil, translateStoreError(err, "user", map[string]any{"author_id": principal.ID})
		}
		return nil, translateStoreError(err, "ticket", map[string]any{"id": ticket.ID})
	}

	s.logger.Info("ticket created", zap.String("ticket_id", ticket.ID), zap.String("author_id", ticket.AuthorID))
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventTicketCreated,
		SubjectID: ticket.ID,
		ActorID:   principal.ID,
		Payload:   events.TicketCreatedPayload{AuthorID: ticket.AuthorID, Title: ticket.Title},
	})
	return ticket, nil
}

// Get returns a ticket the principal may read.
func (s *TicketService) Get(ctx context.Context, principal *domain.User, id string) (*domain.Ticket, error) {
	return s.load(ctx, principal, id, auth.ActionTicketRead)
}

// List returns every ticket for principals allowed to list all tickets and
// only their own tickets for everyone else, in creation order.
func (s *TicketService) List(ctx context.Context, principal *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": string(*filter.Status)})
	}

	storeFilter := repository.TicketFilter{Status: filter.Status}
	if auth.Authorize(principal, "", auth.ActionTicketListAll) != nil {
		authorID := principal.ID
		storeFilter.AuthorID = &authorID
	}

	tickets, err := s.tickets.List(ctx, storeFilter)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	return tickets, nil
}

// Update overwrites title, description and status in one write.
func (s *TicketService) Update(ctx context.Context, principal *domain.User, id string, input TicketUpdateInput) (*domain.Ticket, error) {
	current, err := s.load(ctx, principal, id, auth.ActionTicketUpdate)
	if err != nil {
		return nil, err
	}

	details := validateTicketText(input.Title, input.Description)
	status, statusErr := domain.ParseTicketStatus(input.Status)
	if statusErr != nil {
		if details == nil {
			details = map[string]any{}
		}
		details["status"] = "must be one of open, in_progress, closed"
	}
	if details != nil {
		return nil, apperrors.NewValidationError("invalid ticket", details)
	}

	updated := &domain.Ticket{
		ID:          current.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      status,
	}
	if err := s.tickets.Update(ctx, updated); err != nil {
		return nil, translateStoreError(err, "ticket", map[string]any{"id": id})
	}

	s.logger.Info("ticket updated",
		zap.String("ticket_id", updated.ID),
		zap.String("actor_id", principal.ID),
		zap.String("status", string(updated.Status)))
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventTicketUpdated,
		SubjectID: updated.ID,
		ActorID:   principal.ID,
		Payload:   events.TicketUpdatedPayload{OldStatus: current.Status, NewStatus: updated.Status},
	})
	return updated, nil
}

// Delete removes a ticket permanently.
func (s *TicketService) Delete(ctx context.Context, principal *domain.User, id string) error {
	current, err := s.load(ctx, principal, id, auth.ActionTicketDelete)
	if err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, current.ID); err != nil {
		return translateStoreError(err, "ticket", map[string]any{"id": id})
	}

	s.logger.Info("ticket deleted", zap.String("ticket_id", current.ID), zap.String("actor_id", principal.ID))
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventTicketDeleted,
		SubjectID: current.ID,
		ActorID:   principal.ID,
		Payload:   events.TicketDeletedPayload{AuthorID: current.AuthorID},
	})
	return nil
}

// load fetches a ticket and checks action against its author. An absent
// ticket is NOT_FOUND for every principal; an existing one the principal
// may not touch is FORBIDDEN.
func (s *TicketService) load(ctx context.Context, principal *domain.User, id string, action auth.Action) (*domain.Ticket, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, apperrors.NewStoreError(err)
	}
	if err := auth.Authorize(principal, ticket.AuthorID, action); err != nil {
		s.logger.Info("ticket access denied",
			zap.String("ticket_id", id),
			zap.String("actor_id", principal.ID),
			zap.String("action", string(action)))
		return nil, err
	}
	return ticket, nil
}
