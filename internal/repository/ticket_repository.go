package repository

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var ticketColumns = []string{"id", "title", "description", "status", "author_id", "created_at", "updated_at"}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type ticketRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db *sql.DB, logger *zap.Logger) TicketRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ticketRepository{db: db, logger: logger}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	query, args, err := psql.Insert("tickets").
		Columns("id", "title", "description", "status", "author_id").
		Values(ticket.ID, ticket.Title, ticket.Description, ticket.Status, ticket.AuthorID).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert ticket: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		r.logger.Debug("insert ticket failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return classify("insert ticket", err)
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query, args, err := psql.Select(ticketColumns...).From("tickets").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get ticket: %w", err)
	}

	ticket, err := scanTicket(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, classify("get ticket", err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query, args, err := buildListTicketsQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("build list tickets: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list tickets", err)
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, classify("scan ticket", err)
		}
		tickets = append(tickets, *ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list tickets", err)
	}
	return tickets, nil
}

// Update writes title, description and status in a single statement and
// refreshes ticket with the stored row.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	query, args, err := psql.Update("tickets").
		Set("title", ticket.Title).
		Set("description", ticket.Description).
		Set("status", ticket.Status).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": ticket.ID}).
		Suffix("RETURNING id, title, description, status, author_id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update ticket: %w", err)
	}

	stored, err := scanTicket(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return classify("update ticket", err)
	}
	*ticket = *stored
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete("tickets").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete ticket: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify("delete ticket", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return classify("delete ticket", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func buildListTicketsQuery(filter TicketFilter) (string, []any, error) {
	builder := psql.Select(ticketColumns...).From("tickets")
	if filter.AuthorID != nil {
		builder = builder.Where(sq.Eq{"author_id": *filter.AuthorID})
	}
	if filter.Status != nil {
		builder = builder.Where(sq.Eq{"status": *filter.Status})
	}
	return builder.OrderBy("created_at ASC", "id ASC").ToSql()
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.AuthorID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
