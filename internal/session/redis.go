// internal/session/redis.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"scheme-matcher/internal/models"
)

const defaultMaxAttempts = 10

// RedisStore keeps each session's state as one JSON value with a TTL that is
// refreshed on every write. Update runs under WATCH/MULTI on the session key.
type RedisStore struct {
	client      *redis.Client
	prefix      string
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

type RedisOption func(*RedisStore)

func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// WithMaxAttempts bounds how often Update retries after a concurrent write.
func WithMaxAttempts(n int) RedisOption {
	return func(s *RedisStore) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithClock replaces time.Now for UpdatedAt stamps.
func WithClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) { s.now = now }
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:      client,
		ttl:         DefaultTTL,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (models.PaginationState, error) {
	if err := validID(sessionID); err != nil {
		return models.PaginationState{}, err
	}
	state, found, err := read(ctx, s.client, key(s.prefix, sessionID))
	if err != nil {
		return models.PaginationState{}, err
	}
	if !found {
		return models.PaginationState{}, ErrNotFound
	}
	return state, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, state models.PaginationState) error {
	if err := validID(sessionID); err != nil {
		return err
	}
	state.UpdatedAt = s.now().UTC()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	if err := s.client.Set(ctx, key(s.prefix, sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session state: %w", err)
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, sessionID string, fn UpdateFunc) (models.PaginationState, error) {
	if err := validID(sessionID); err != nil {
		return models.PaginationState{}, err
	}
	k := key(s.prefix, sessionID)

	var next models.PaginationState
	txf := func(tx *redis.Tx) error {
		current, found, err := read(ctx, tx, k)
		if err != nil {
			return err
		}
		updated, err := fn(current, found)
		if err != nil {
			return err
		}
		updated.UpdatedAt = s.now().UTC()
		data, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("encode session state: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, data, s.ttl)
			return nil
		})
		if err == nil {
			next = updated
		}
		return err
	}

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, k)
		if err == nil {
			return next, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return models.PaginationState{}, err
	}
	return models.PaginationState{}, ErrConflict
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := validID(sessionID); err != nil {
		return err
	}
	if err := s.client.Del(ctx, key(s.prefix, sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del session state: %w", err)
	}
	return nil
}

func read(ctx context.Context, c redis.Cmdable, k string) (models.PaginationState, bool, error) {
	data, err := c.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.PaginationState{}, false, nil
	}
	if err != nil {
		return models.PaginationState{}, false, fmt.Errorf("redis get session state: %w", err)
	}
	var state models.PaginationState
	if err := json.Unmarshal(data, &state); err != nil {
		return models.PaginationState{}, false, fmt.Errorf("decode session state: %w", err)
	}
	return state, true, nil
}
