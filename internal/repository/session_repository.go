package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// DefaultSessionKeyPrefix namespaces session keys in a shared redis.
const DefaultSessionKeyPrefix = "helpdesk:session:"

var (
	sessionEncMode cbor.EncMode
	sessionDecMode cbor.DecMode
)

func init() {
	var err error
	sessionEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("repository: cbor encoder initialization failed: " + err.Error())
	}
	sessionDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("repository: cbor decoder initialization failed: " + err.Error())
	}
}

// sessionRecord is the value stored under a session key. Times are unix
// nanoseconds in UTC.
type sessionRecord struct {
	UserID    string `cbor:"1,keyasint"`
	IssuedAt  int64  `cbor:"2,keyasint"`
	ExpiresAt int64  `cbor:"3,keyasint"`
}

func encodeSession(session *domain.Session) ([]byte, error) {
	return sessionEncMode.Marshal(sessionRecord{
		UserID:    session.UserID,
		IssuedAt:  session.IssuedAt.UnixNano(),
		ExpiresAt: session.ExpiresAt.UnixNano(),
	})
}

func decodeSession(id string, data []byte) (*domain.Session, error) {
	var record sessionRecord
	if err := sessionDecMode.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	if record.UserID == "" {
		return nil, errors.New("session record has no user")
	}
	return &domain.Session{
		ID:        id,
		UserID:    record.UserID,
		IssuedAt:  time.Unix(0, record.IssuedAt).UTC(),
		ExpiresAt: time.Unix(0, record.ExpiresAt).UTC(),
	}, nil
}

type redisSessionRepository struct {
	client redis.Cmdable
	prefix string
}

// NewRedisSessionRepository stores sessions as cbor blobs with a native TTL.
func NewRedisSessionRepository(client redis.Cmdable, prefix string) SessionRepository {
	if prefix == "" {
		prefix = DefaultSessionKeyPrefix
	}
	return &redisSessionRepository{client: client, prefix: prefix}
}

func (r *redisSessionRepository) key(id string) string {
	return r.prefix + id
}

func (r *redisSessionRepository) Save(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	data, err := encodeSession(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	session, err := decodeSession(id, data)
	if err != nil {
		// an unreadable record cannot authenticate anyone
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (r *redisSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
