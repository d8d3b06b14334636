package session

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore はプロセス内メモリにセッションを保持します（開発・テスト用）。
type MemoryStore struct {
	records *cache.Cache
}

// NewMemoryStore は期限切れエントリを cleanupInterval ごとに掃除する MemoryStore を作成します。
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		records: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Record, error) {
	v, found := m.records.Get(id)
	if !found {
		return nil, nil
	}
	rec := v.(Record)
	return &rec, nil
}

func (m *MemoryStore) Save(_ context.Context, id string, rec Record, ttl time.Duration) error {
	m.records.Set(id, rec, ttl)
	return nil
}

func (m *MemoryStore) Touch(_ context.Context, id string, ttl time.Duration) error {
	v, found := m.records.Get(id)
	if !found {
		return nil
	}
	m.records.Set(id, v, ttl)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.records.Delete(id)
	return nil
}

// Len は保持しているセッション数を返します。
func (m *MemoryStore) Len() int {
	return m.records.ItemCount()
}
