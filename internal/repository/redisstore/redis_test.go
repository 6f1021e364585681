package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autodocvision/internal/repository"
)

func setupStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := New(client, opts...)
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func TestStore_GetMissing(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.Get(context.Background(), "detectionHistory")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_SetUsesPrefix(t *testing.T) {
	store, mr := setupStore(t, WithPrefix("test"))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "detectionHistory", []byte(`[]`)))

	raw, err := mr.Get("test:detectionHistory")
	require.NoError(t, err)
	assert.Equal(t, `[]`, raw)

	got, err := store.Get(ctx, "detectionHistory")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestStore_Remove(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	require.NoError(t, store.Remove(ctx, "k"))
	require.NoError(t, store.Remove(ctx, "k"))

	assert.False(t, mr.Exists("autodoc:k"))
}

func TestStore_TTL(t *testing.T) {
	store, mr := setupStore(t, WithTTL(time.Minute))

	require.NoError(t, store.Set(context.Background(), "k", []byte("v")))
	assert.Equal(t, time.Minute, mr.TTL("autodoc:k"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(context.Background(), "k")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := Dial(context.Background(), mr.Addr())
	require.NoError(t, err)
	defer store.Close()

	_, err = Dial(context.Background(), "127.0.0.1:1")
	assert.Error(t, err)
}
