package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions(config.RedisConfig{Addr: "cache:6379", Password: "pw", DB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = redisOptions(config.RedisConfig{Addr: "redis://:urlpw@cache:6380/3"})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "urlpw", opts.Password)
	assert.Equal(t, 3, opts.DB)

	opts, err = redisOptions(config.RedisConfig{Addr: "redis://:urlpw@cache:6380/3", Password: "override"})
	require.NoError(t, err)
	assert.Equal(t, "override", opts.Password)

	_, err = redisOptions(config.RedisConfig{Addr: "http://cache:6379"})
	assert.Error(t, err)
}

func TestSessionStore_Ping(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	store := &SessionStore{Client: client, prefix: "helpdesk:session:"}

	mock.ExpectSet("helpdesk:session:readiness", "1", time.Second).SetVal("OK")
	assert.NoError(t, store.Ping(ctx))

	mock.ExpectSet("helpdesk:session:readiness", "1", time.Second).SetErr(errors.New("READONLY You can't write against a read only replica."))
	err := store.Ping(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not writable")

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NotNil(t, store.Repository())
}
