package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() Record {
	return Record{
		CreatedAt: time.Date(2025, 11, 7, 12, 0, 0, 0, time.UTC),
		Data: Data{
			AdminValid:     true,
			AdminID:        3,
			AdminFirstName: "Lindsey",
			CSRFToken:      "abc",
		},
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	rec, err := store.Load(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, store.Save(ctx, "s1", sampleRecord(), time.Minute))
	rec, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, sampleRecord(), *rec)

	// 取得したレコードはコピー
	rec.Data.CSRFToken = "changed"
	again, _ := store.Load(ctx, "s1")
	assert.Equal(t, "abc", again.Data.CSRFToken)

	require.NoError(t, store.Touch(ctx, "s1", time.Minute))
	require.NoError(t, store.Touch(ctx, "missing", time.Minute))

	require.NoError(t, store.Delete(ctx, "s1"))
	rec, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", sampleRecord(), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	rec, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	rec, err := store.Load(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, store.Save(ctx, "s1", sampleRecord(), 30*time.Minute))
	assert.True(t, mr.Exists("session:s1"))
	assert.Equal(t, 30*time.Minute, mr.TTL("session:s1"))

	rec, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.CreatedAt.Equal(sampleRecord().CreatedAt))
	assert.Equal(t, sampleRecord().Data, rec.Data)

	require.NoError(t, store.Delete(ctx, "s1"))
	assert.False(t, mr.Exists("session:s1"))
}

func TestRedisStoreTouchExtendsTTL(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", sampleRecord(), time.Minute))
	require.NoError(t, store.Touch(ctx, "s1", time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("session:s1"))
}

func TestRedisStoreIdleExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", sampleRecord(), time.Minute))
	mr.FastForward(2 * time.Minute)

	rec, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRedisStoreCorruptPayload(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set("session:bad", "not-json"))

	_, err := store.Load(context.Background(), "bad")
	assert.Error(t, err)
}
