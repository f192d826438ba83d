package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "honeypot:session:"

// mutateAttempts bounds optimistic-locking retries when concurrent requests
// for the same session race on the watched key.
const mutateAttempts = 5

// redisStore persists sessions in Redis with native key TTL for eviction.
// Per-session serialization uses WATCH-based optimistic locking, so fn may
// run more than once for a single Mutate call when a concurrent writer wins.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func (s *redisStore) Mutate(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	key := redisKeyPrefix + id

	var result *Session
	for attempt := 0; attempt < mutateAttempts; attempt++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			sess, err := s.load(ctx, tx, id)
			if err != nil {
				return err
			}

			if err := fn(sess); err != nil {
				return err
			}
			sess.Version++
			sess.UpdatedAt = time.Now().UTC()

			val, err := json.Marshal(sess)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, val, s.ttl)
				return nil
			})
			if err != nil {
				return err
			}
			result = sess
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, ErrVersionConflict
}

func (s *redisStore) Get(ctx context.Context, id string) (*Session, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+id).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, err
	}

	// Refresh TTL on read so active engagements are not evicted mid-flight.
	_ = s.client.Expire(ctx, redisKeyPrefix+id, s.ttl).Err()
	return &sess, nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

func (s *redisStore) load(ctx context.Context, tx *redis.Tx, id string) (*Session, error) {
	val, err := tx.Get(ctx, redisKeyPrefix+id).Result()
	if err == redis.Nil {
		return newSession(id), nil
	}
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}
