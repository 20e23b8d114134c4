package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	apperrors "nagarbot/internal/errors"
)

// UserStore keeps users keyed by session token.
type UserStore interface {
	Save(ctx context.Context, token string, u User, ttl time.Duration) error
	Load(ctx context.Context, token string) (User, error)
	Delete(ctx context.Context, token string) error
}

// MemoryStore is the default in-process store.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]memoryEntry
	now   func() time.Time
}

type memoryEntry struct {
	user    User
	expires time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, token string, u User, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[token] = memoryEntry{user: u, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Load(_ context.Context, token string) (User, error) {
	m.mu.RLock()
	entry, ok := m.users[token]
	m.mu.RUnlock()

	if !ok {
		return User{}, apperrors.NewNotFoundError("session", token)
	}
	if m.now().After(entry.expires) {
		m.mu.Lock()
		delete(m.users, token)
		m.mu.Unlock()
		return User{}, apperrors.NewNotFoundError("session", token)
	}
	return entry.user, nil
}

func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, token)
	return nil
}

const userKeyPrefix = "nagarbot:user:"

// RedisStore keeps users as JSON values with a TTL.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisClient connects and pings with a 3 second timeout.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis address required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisStore wraps a connected client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (r *RedisStore) Save(ctx context.Context, token string, u User, ttl time.Duration) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	if err := r.rdb.Set(ctx, userKeyPrefix+token, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, token string) (User, error) {
	raw, err := r.rdb.Get(ctx, userKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return User{}, apperrors.NewNotFoundError("session", token)
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to load user: %w", err)
	}

	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return User{}, fmt.Errorf("failed to decode user: %w", err)
	}
	return u, nil
}

func (r *RedisStore) Delete(ctx context.Context, token string) error {
	return r.rdb.Del(ctx, userKeyPrefix+token).Err()
}
