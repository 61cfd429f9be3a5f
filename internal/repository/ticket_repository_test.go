package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var ticketRowColumns = []string{"id", "title", "description", "status", "author_id", "created_at", "updated_at"}

func newTestTicketRepo(t *testing.T) (TicketRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewTicketRepository(db, nil), mock
}

func TestBuildListTicketsQuery(t *testing.T) {
	author := "u-1"
	status := domain.TicketStatusOpen

	tests := []struct {
		name     string
		filter   TicketFilter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "no filter",
			filter:   TicketFilter{},
			wantSQL:  "SELECT id, title, description, status, author_id, created_at, updated_at FROM tickets ORDER BY created_at ASC, id ASC",
			wantArgs: nil,
		},
		{
			name:     "author only",
			filter:   TicketFilter{AuthorID: &author},
			wantSQL:  "SELECT id, title, description, status, author_id, created_at, updated_at FROM tickets WHERE author_id = $1 ORDER BY created_at ASC, id ASC",
			wantArgs: []any{"u-1"},
		},
		{
			name:     "author and status",
			filter:   TicketFilter{AuthorID: &author, Status: &status},
			wantSQL:  "SELECT id, title, description, status, author_id, created_at, updated_at FROM tickets WHERE author_id = $1 AND status = $2 ORDER BY created_at ASC, id ASC",
			wantArgs: []any{"u-1", domain.TicketStatusOpen},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := buildListTicketsQuery(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, query)
			assert.Equal(t, len(tt.wantArgs), len(args))
			for i := range tt.wantArgs {
				assert.Equal(t, tt.wantArgs[i], args[i])
			}
		})
	}
}

func TestTicketRepository_Create(t *testing.T) {
	repo, mock := newTestTicketRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO tickets").
		WithArgs("t-1", "Printer", "Jammed", domain.TicketStatusOpen, "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	ticket := &domain.Ticket{ID: "t-1", Title: "Printer", Description: "Jammed", Status: domain.TicketStatusOpen, AuthorID: "u-1"}
	require.NoError(t, repo.Create(context.Background(), ticket))
	assert.Equal(t, now, ticket.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_CreateUnknownAuthor(t *testing.T) {
	repo, mock := newTestTicketRepo(t)

	mock.ExpectQuery("INSERT INTO tickets").WillReturnError(pgError(pgerrcode.ForeignKeyViolation))

	err := repo.Create(context.Background(), &domain.Ticket{ID: "t-1", AuthorID: "ghost"})
	assert.ErrorIs(t, err, ErrInvalidRef)
}

func TestTicketRepository_GetByID(t *testing.T) {
	repo, mock := newTestTicketRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM tickets WHERE id").
		WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows(ticketRowColumns).AddRow("t-1", "Printer", "Jammed", "in_progress", "u-1", now, now))

	ticket, err := repo.GetByID(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	assert.Equal(t, "u-1", ticket.AuthorID)
}

func TestTicketRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := newTestTicketRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM tickets WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTicketRepository_List(t *testing.T) {
	repo, mock := newTestTicketRepo(t)
	now := time.Now().UTC()
	author := "u-1"

	mock.ExpectQuery("SELECT (.+) FROM tickets WHERE author_id").
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(ticketRowColumns).
			AddRow("t-1", "A", "a", "open", "u-1", now, now).
			AddRow("t-2", "B", "b", "closed", "u-1", now.Add(time.Second), now.Add(time.Second)))

	tickets, err := repo.List(context.Background(), TicketFilter{AuthorID: &author})
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, "t-1", tickets[0].ID)
	assert.Equal(t, domain.TicketStatusClosed, tickets[1].Status)
}

func TestTicketRepository_ListEmpty(t *testing.T) {
	repo, mock := newTestTicketRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM tickets").WillReturnRows(sqlmock.NewRows(ticketRowColumns))

	tickets, err := repo.List(context.Background(), TicketFilter{})
	require.NoError(t, err)
	assert.NotNil(t, tickets)
	assert.Empty(t, tickets)
}

func TestTicketRepository_Update(t *testing.T) {
	repo, mock := newTestTicketRepo(t)
	created := time.Now().UTC().Add(-time.Hour)
	updated := time.Now().UTC()

	mock.ExpectQuery("UPDATE tickets SET title").
		WithArgs("New", "Desc", domain.TicketStatusClosed, "t-1").
		WillReturnRows(sqlmock.NewRows(ticketRowColumns).AddRow("t-1", "New", "Desc", "closed", "u-1", created, updated))

	ticket := &domain.Ticket{ID: "t-1", Title: "New", Description: "Desc", Status: domain.TicketStatusClosed}
	require.NoError(t, repo.Update(context.Background(), ticket))
	assert.Equal(t, "u-1", ticket.AuthorID)
	assert.Equal(t, created, ticket.CreatedAt)
	assert.Equal(t, updated, ticket.UpdatedAt)
}

func TestTicketRepository_UpdateMissing(t *testing.T) {
	repo, mock := newTestTicketRepo(t)

	mock.ExpectQuery("UPDATE tickets SET title").WillReturnRows(sqlmock.NewRows(ticketRowColumns))

	err := repo.Update(context.Background(), &domain.Ticket{ID: "ghost", Title: "x", Description: "y", Status: domain.TicketStatusOpen})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTicketRepository_Delete(t *testing.T) {
	repo, mock := newTestTicketRepo(t)

	mock.ExpectExec("DELETE FROM tickets WHERE id").
		WithArgs("t-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "t-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_DeleteMissing(t *testing.T) {
	repo, mock := newTestTicketRepo(t)

	mock.ExpectExec("DELETE FROM tickets WHERE id").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "ghost"), ErrNotFound)
}
