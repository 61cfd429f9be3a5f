package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var userRowColumns = []string{"id", "username", "password_hash", "role", "created_at", "updated_at"}

func newTestUserRepo(t *testing.T) (UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepository(db, nil), mock
}

func pgError(code string) error {
	return &pgconn.PgError{Code: code}
}

func TestUserRepository_Create(t *testing.T) {
	repo, mock := newTestUserRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("u-1", "alice", "digest", domain.RoleUser).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	user := &domain.User{ID: "u-1", Username: "alice", PasswordHash: "digest", Role: domain.RoleUser}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.Equal(t, now, user.CreatedAt)
	assert.Equal(t, now, user.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	repo, mock := newTestUserRepo(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(pgError(pgerrcode.UniqueViolation))

	err := repo.Create(context.Background(), &domain.User{ID: "u-1", Username: "alice", Role: domain.RoleUser})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUserRepository_CreateUnexpectedError(t *testing.T) {
	repo, mock := newTestUserRepo(t)
	cause := errors.New("connection reset")

	mock.ExpectQuery("INSERT INTO users").WillReturnError(cause)

	err := repo.Create(context.Background(), &domain.User{ID: "u-1", Username: "alice"})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrConflict)
}

func TestUserRepository_GetByUsername(t *testing.T) {
	repo, mock := newTestUserRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, username, password_hash, role, created_at, updated_at FROM users WHERE username").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow("u-1", "alice", "digest", "admin", now, now))

	user, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, domain.RoleAdmin, user.Role)
	assert.Equal(t, "digest", user.PasswordHash)
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := newTestUserRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_GetByIDMalformedID(t *testing.T) {
	repo, mock := newTestUserRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("not-a-uuid").
		WillReturnError(pgError(pgerrcode.InvalidTextRepresentation))

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_List(t *testing.T) {
	repo, mock := newTestUserRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM users ORDER BY created_at, id").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u-1", "admin", "d1", "admin", now, now).
			AddRow("u-2", "bob", "d2", "user", now, now))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "admin", users[0].Username)
	assert.Equal(t, domain.RoleUser, users[1].Role)
}

func TestUserRepository_ExistsWithRole(t *testing.T) {
	repo, mock := newTestUserRepo(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(domain.RoleAdmin).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsWithRole(context.Background(), domain.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUserRepository_UpdateRole(t *testing.T) {
	repo, mock := newTestUserRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("UPDATE users SET role").
		WithArgs(domain.RoleAdmin, "u-2").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow("u-2", "bob", "d2", "admin", now, now))

	user, err := repo.UpdateRole(context.Background(), "u-2", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}

func TestUserRepository_UpdateRoleMissing(t *testing.T) {
	repo, mock := newTestUserRepo(t)

	mock.ExpectQuery("UPDATE users SET role").
		WithArgs(domain.RoleAdmin, "ghost").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := repo.UpdateRole(context.Background(), "ghost", domain.RoleAdmin)
	assert.ErrorIs(t, err, ErrNotFound)
}
