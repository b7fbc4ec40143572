package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisTokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisTokenStore(rdb, "test:token", ttl), mr
}

func TestMemoryTokenStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTokenStore()

	token, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.SetToken(ctx, "abc"))
	token, _ = store.Token(ctx)
	assert.Equal(t, "abc", token)

	require.NoError(t, store.Clear(ctx))
	token, _ = store.Token(ctx)
	assert.Empty(t, token)
}

func TestRedisTokenStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Hour)

	token, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.SetToken(ctx, "abc"))
	stored, err := mr.Get("test:token")
	require.NoError(t, err)
	assert.Equal(t, "abc", stored)

	token, err = store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	require.NoError(t, store.SetToken(ctx, ""))
	assert.False(t, mr.Exists("test:token"))
}

func TestRedisTokenStoreExpires(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Minute)

	require.NoError(t, store.SetToken(ctx, "abc"))
	mr.FastForward(2 * time.Minute)

	token, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestClientReadsTokenFromRedis(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store, _ := newRedisStore(t, time.Hour)
	require.NoError(t, store.SetToken(context.Background(), "shared-token"))

	c := newTestClient(t, server, WithTokenStore(store))
	require.NoError(t, c.Get(context.Background(), "/test", nil))
	assert.Equal(t, "Bearer shared-token", gotAuth)
}
