package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// RedisStore はセッションを Redis に JSON で保存します。
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Load はセッションを取得します。
func (s *RedisStore) Load(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, nil
	}
	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: failed to load: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
	}
	return &rec, nil
}

// Save はセッションを保存し、有効期限を ttl に設定します。
func (s *RedisStore) Save(ctx context.Context, id string, rec Record, ttl time.Duration) error {
	if id == "" {
		return fmt.Errorf("session: missing session id")
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: failed to marshal: %w", err)
	}
	return s.rdb.Set(ctx, sessionKey(id), payload, ttl).Err()
}

// Touch は有効期限だけを延長します。
func (s *RedisStore) Touch(ctx context.Context, id string, ttl time.Duration) error {
	return s.rdb.Expire(ctx, sessionKey(id), ttl).Err()
}

// Delete はセッションを削除します。
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, sessionKey(id)).Err()
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}
