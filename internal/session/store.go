package session

import (
	"context"
	"time"
)

// Store はセッションの保存先を抽象化します。
// Load は存在しないIDに対して (nil, nil) を返します。
type Store interface {
	Load(ctx context.Context, id string) (*Record, error)
	Save(ctx context.Context, id string, rec Record, ttl time.Duration) error
	Touch(ctx context.Context, id string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}
