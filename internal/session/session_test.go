package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &Session{
		UserID:    7,
		ChatID:    70,
		Scene:     "withdraw",
		Cursor:    2,
		State:     json.RawMessage(`{"amount":"150"}`),
		StartedAt: now,
		UpdatedAt: now,
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)

	in := sample()
	require.NoError(t, s.Put(ctx, in))
	got, err := s.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, in.Scene, got.Scene)
	assert.Equal(t, in.Cursor, got.Cursor)
	assert.JSONEq(t, string(in.State), string(got.State))
	assert.True(t, in.StartedAt.Equal(got.StartedAt))

	require.NoError(t, s.Delete(ctx, 7))
	_, err = s.Get(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(0))
}

func TestMemoryStoreExpiresIdleSessions(t *testing.T) {
	m := NewMemoryStore(time.Hour)
	clock := time.Now()
	m.now = func() time.Time { return clock }
	s := sample()
	s.UpdatedAt = clock
	require.NoError(t, m.Put(context.Background(), s))

	clock = clock.Add(2 * time.Hour)
	_, err := m.Get(context.Background(), s.UserID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewRedisStore(rdb, time.Hour)
	exerciseStore(t, store)

	require.NoError(t, store.Put(context.Background(), sample()))
	assert.Equal(t, time.Hour, mr.TTL("session:7"))
	mr.FastForward(2 * time.Hour)
	_, err := store.Get(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreRejectsCorruptPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	require.NoError(t, mr.Set("session:9", "{not json"))

	_, err := NewRedisStore(rdb, 0).Get(context.Background(), 9)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
