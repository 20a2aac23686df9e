package session

import (
	"context"
	"fmt"
	"time"

	"github.com/ikramzafar0343/style-sathi/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func NewRedisStore(client *redis.Client, sessionID string, ttl time.Duration, log logrus.FieldLogger) *RedisStore {
	return &RedisStore{
		client:    client,
		sessionID: sessionID,
		ttl:       ttl,
		log:       log.WithField("session_id", sessionID),
	}
}

// RedisStore keeps each session field under its own key. The TTL slides on
// every save; a zero TTL keeps keys forever.
type RedisStore struct {
	client    *redis.Client
	sessionID string
	ttl       time.Duration
	log       logrus.FieldLogger
}

func (r *RedisStore) Load(ctx context.Context) (*domain.Session, error) {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = r.key(f)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: redis mget failed: %v", domain.ErrPersistence, err)
	}

	raw := make(map[string][]byte, len(fields))
	for i, f := range fields {
		if s, ok := values[i].(string); ok {
			raw[f] = []byte(s)
		}
	}
	return decodeFields(raw, r.log), nil
}

func (r *RedisStore) Save(ctx context.Context, s *domain.Session) error {
	encoded, err := encodeFields(s)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, f := range fields {
			if v := encoded[f]; v != nil {
				pipe.Set(ctx, r.key(f), string(v), r.ttl)
			} else {
				pipe.Del(ctx, r.key(f))
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: redis save failed: %v", domain.ErrPersistence, err)
	}
	return nil
}

// Close is a no-op; the client is shared between sessions and owned by main.
func (r *RedisStore) Close() error {
	return nil
}

func (r *RedisStore) key(field string) string {
	return fmt.Sprintf("session:%s:%s", r.sessionID, field)
}
