package cart

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "cart_u1", UserKey("u1"))
	id := uuid.New()
	assert.Equal(t, "guest_cart_"+id.String(), GuestKey(id))
	assert.True(t, strings.HasPrefix(NewGuestKey(), "guest_cart_"))
	assert.NotEqual(t, NewGuestKey(), NewGuestKey())
}

func exerciseStorage(t *testing.T, s Storage, key string) {
	ctx := context.Background()

	items, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, items)

	want := []Item{{ID: "a", Name: "Lamp", Price: 10, Quantity: 2, IsFeatured: true, ActualProductID: "p"}}
	require.NoError(t, s.Save(ctx, key, want))
	got, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, s.Delete(ctx, key))
	got, err = s.Load(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage()
	exerciseStorage(t, s, NewGuestKey())

	// callers cannot mutate stored lines
	items := []Item{{ID: "a", Quantity: 1}}
	require.NoError(t, s.Save(context.Background(), "k", items))
	items[0].Quantity = 9
	got, _ := s.Load(context.Background(), "k")
	assert.Equal(t, 1, got[0].Quantity)
}

func TestRedisStorage(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	key := NewGuestKey()
	s := NewRedisStorage(client, time.Minute)
	exerciseStorage(t, s, key)

	require.NoError(t, s.Save(context.Background(), key, []Item{{ID: "a", Quantity: 1}}))
	ttl, err := client.TTL(context.Background(), key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	require.NoError(t, s.Delete(context.Background(), key))
}
