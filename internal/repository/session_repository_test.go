package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func testSession() *domain.Session {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Session{
		ID:        "sid-1",
		UserID:    "u-1",
		IssuedAt:  issued,
		ExpiresAt: issued.Add(time.Hour),
	}
}

func TestSessionCodec_RoundTrip(t *testing.T) {
	session := testSession()

	data, err := encodeSession(session)
	require.NoError(t, err)

	again, err := encodeSession(session)
	require.NoError(t, err)
	assert.Equal(t, data, again, "encoding must be deterministic")

	decoded, err := decodeSession(session.ID, data)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, decoded.UserID)
	assert.True(t, session.IssuedAt.Equal(decoded.IssuedAt))
	assert.True(t, session.ExpiresAt.Equal(decoded.ExpiresAt))
}

func TestDecodeSession_Garbage(t *testing.T) {
	_, err := decodeSession("sid", []byte{0xff, 0x00})
	assert.Error(t, err)
}

func TestRedisSessionRepository_Save(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewRedisSessionRepository(client, "test:")
	session := testSession()

	data, err := encodeSession(session)
	require.NoError(t, err)
	mock.ExpectSet("test:sid-1", data, time.Hour).SetVal("OK")

	require.NoError(t, repo.Save(context.Background(), session, time.Hour))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSessionRepository_SaveFailure(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewRedisSessionRepository(client, "test:")
	session := testSession()

	data, err := encodeSession(session)
	require.NoError(t, err)
	mock.ExpectSet("test:sid-1", data, time.Hour).SetErr(errors.New("connection refused"))

	assert.Error(t, repo.Save(context.Background(), session, time.Hour))
}

func TestRedisSessionRepository_Get(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewRedisSessionRepository(client, "test:")
	session := testSession()

	data, err := encodeSession(session)
	require.NoError(t, err)
	mock.ExpectGet("test:sid-1").SetVal(string(data))

	got, err := repo.Get(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "sid-1", got.ID)
	assert.Equal(t, "u-1", got.UserID)
	assert.True(t, session.ExpiresAt.Equal(got.ExpiresAt))
}

func TestRedisSessionRepository_GetMissing(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewRedisSessionRepository(client, "test:")

	mock.ExpectGet("test:gone").RedisNil()

	_, err := repo.Get(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionRepository_GetStoreFailure(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewRedisSessionRepository(client, "test:")

	mock.ExpectGet("test:sid-1").SetErr(errors.New("i/o timeout"))

	_, err := repo.Get(context.Background(), "sid-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionRepository_Delete(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewRedisSessionRepository(client, "")

	mock.ExpectDel(DefaultSessionKeyPrefix + "sid-1").SetVal(0)

	require.NoError(t, repo.Delete(context.Background(), "sid-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
