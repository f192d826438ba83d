package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrNotFound         = errors.New("session not found")
	ErrVersionConflict  = errors.New("session version conflict")
	ErrInvalidConfig    = errors.New("invalid store config")
	ErrInvalidStoreType = errors.New("invalid store type")
)

// Store is a keyed session container. Mutate applies fn under per-session
// mutual exclusion; the session is created on first use with zero turns,
// empty indicator sets and Finalized false.
type Store interface {
	// Mutate runs fn against the session for id, creating it first if needed.
	// fn's error aborts the mutation and is returned unchanged. On success the
	// returned session is a copy safe for the caller to read.
	Mutate(ctx context.Context, id string, fn func(*Session) error) (*Session, error)

	// Get returns a copy of the session, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Close releases store resources (eviction janitor, connections).
	Close() error
}

// StoreType selects a driver.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

// StoreOption configures a store built by NewStore.
type StoreOption func(*storeConfig)

type storeConfig struct {
	ttl         time.Duration
	redisClient *redis.Client
}

// WithTTL sets the idle eviction TTL. Zero keeps the driver default.
func WithTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) { c.ttl = ttl }
}

// WithRedisClient sets the client used by the Redis driver.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) { c.redisClient = client }
}

// NewStore builds a session store for the given driver type.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	cfg := &storeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	ttl := cfg.ttl
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	switch storeType {
	case StoreTypeMemory:
		return newMemoryStore(ttl), nil
	case StoreTypeRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return &redisStore{client: cfg.redisClient, ttl: ttl}, nil
	default:
		return nil, ErrInvalidStoreType
	}
}

func newSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, CreatedAt: now, UpdatedAt: now, Version: 1}
}
