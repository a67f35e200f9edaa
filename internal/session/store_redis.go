package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps records as two string keys per client:
// <prefix>:<clientID>:token and <prefix>:<clientID>:user.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a store. A zero ttl keeps keys until logout.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "tp"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(clientID, name string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, clientID, name)
}

func (s *RedisStore) Load(ctx context.Context, clientID string) (Record, error) {
	vals, err := s.client.MGet(ctx, s.key(clientID, KeyToken), s.key(clientID, KeyUser)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("load session: %w", err)
	}
	var rec Record
	if v, ok := vals[0].(string); ok {
		rec.Token = v
	}
	if v, ok := vals[1].(string); ok {
		rec.User = v
	}
	return rec, nil
}

// Save writes both keys in a MULTI/EXEC transaction.
func (s *RedisStore) Save(ctx context.Context, clientID string, rec Record) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(clientID, KeyToken), rec.Token, s.ttl)
		pipe.Set(ctx, s.key(clientID, KeyUser), rec.User, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, clientID string) error {
	if err := s.client.Del(ctx, s.key(clientID, KeyToken), s.key(clientID, KeyUser)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
