package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

const readinessKey = "readiness"

// SessionStore is the Redis connection that holds user sessions.
type SessionStore struct {
	Client *redis.Client
	prefix string
}

// NewSessionStore connects to Redis. An unreachable server is logged, not
// fatal; session calls fail with a store error until it comes back.
func NewSessionStore(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*SessionStore, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach session store", zap.String("addr", opts.Addr), zap.Error(err))
	} else {
		logger.Info("connected to session store", zap.String("addr", opts.Addr), zap.String("prefix", cfg.KeyPrefix))
	}

	return &SessionStore{Client: client, prefix: cfg.KeyPrefix}, nil
}

// redisOptions accepts REDIS_ADDR as host:port or as a redis:// or
// rediss:// URL. An explicit REDIS_PASSWORD wins over one in the URL.
func redisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	if !strings.Contains(cfg.Addr, "://") {
		return &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}, nil
	}
	opts, err := redis.ParseURL(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_ADDR: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	return opts, nil
}

// Repository returns the session repository backed by this connection.
func (s *SessionStore) Repository() repository.SessionRepository {
	return repository.NewRedisSessionRepository(s.Client, s.prefix)
}

// Ping reports readiness. A replica that answers PING but rejects writes
// cannot issue sessions, so readiness writes a short-lived key under the
// session prefix.
func (s *SessionStore) Ping(ctx context.Context) error {
	if s == nil || s.Client == nil {
		return errors.New("session store not configured")
	}
	if err := s.Client.Set(ctx, s.prefix+readinessKey, "1", time.Second).Err(); err != nil {
		return fmt.Errorf("session store not writable: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *SessionStore) Close() {
	if s != nil && s.Client != nil {
		_ = s.Client.Close()
	}
}
