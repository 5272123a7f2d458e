package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a stored cart survives without being touched.
const DefaultTTL = 30 * 24 * time.Hour

// UserKey is the storage key of a signed-in user's cart.
func UserKey(userID string) string {
	return "cart_" + userID
}

// GuestKey is the storage key of an anonymous cart.
func GuestKey(guestID uuid.UUID) string {
	return "guest_cart_" + guestID.String()
}

// NewGuestKey returns a key for a fresh anonymous cart.
func NewGuestKey() string {
	return GuestKey(uuid.New())
}

// Storage persists cart lines by key. Load returns no items and no error
// for an unknown key.
type Storage interface {
	Load(ctx context.Context, key string) ([]Item, error)
	Save(ctx context.Context, key string, items []Item) error
	Delete(ctx context.Context, key string) error
}

// MemoryStorage keeps carts in process memory.
type MemoryStorage struct {
	mu    sync.RWMutex
	carts map[string][]Item
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{carts: make(map[string][]Item)}
}

func (s *MemoryStorage) Load(_ context.Context, key string) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Item(nil), s.carts[key]...), nil
}

func (s *MemoryStorage) Save(_ context.Context, key string, items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[key] = append([]Item(nil), items...)
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, key)
	return nil
}

// RedisStorage stores each cart as a JSON value with a sliding TTL.
type RedisStorage struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStorage(client redis.Cmdable, ttl time.Duration) *RedisStorage {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStorage{client: client, ttl: ttl}
}

func (s *RedisStorage) Load(ctx context.Context, key string) ([]Item, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart %s: %w", key, err)
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", key, err)
	}
	return items, nil
}

func (s *RedisStorage) Save(ctx context.Context, key string, items []Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save cart %s: %w", key, err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete cart %s: %w", key, err)
	}
	return nil
}
