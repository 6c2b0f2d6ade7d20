package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domerrors "github.com/garyellow/travel-linebot-go/internal/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStateStore keeps conversation state in Redis with an expiry, so an
// abandoned flow falls back to ModeNone on its own.
type RedisStateStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStateStore wraps client. A ttl of 0 keeps keys forever.
func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	if client == nil {
		panic("storage: redis client cannot be nil")
	}
	return &RedisStateStore{client: client, ttl: ttl, prefix: "travel:state:"}
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (s *RedisStateStore) key(userID string) string {
	return s.prefix + userID
}

// LoadState returns ModeNone for unknown or expired users.
func (s *RedisStateStore) LoadState(ctx context.Context, userID string) (ConversationState, error) {
	empty := ConversationState{UserID: userID, Mode: ModeNone}

	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return empty, nil
	}
	if err != nil {
		return empty, fmt.Errorf("storage: failed to load state: %w: %w", domerrors.ErrStorage, err)
	}

	var state ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return empty, fmt.Errorf("storage: failed to decode state: %w", err)
	}
	state.UserID = userID
	return state.Normalize(), nil
}

// SaveState overwrites the stored state. ModeNone deletes the key.
func (s *RedisStateStore) SaveState(ctx context.Context, state ConversationState) error {
	if state.UserID == "" {
		return errors.New("storage: state without user id")
	}
	state = state.Normalize()

	if state.Mode == ModeNone {
		if err := s.client.Del(ctx, s.key(state.UserID)).Err(); err != nil {
			return fmt.Errorf("storage: failed to clear state: %w: %w", domerrors.ErrStorage, err)
		}
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("storage: failed to marshal state: %w", err)
	}
	if err := s.client.Set(ctx, s.key(state.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("storage: failed to persist state: %w: %w", domerrors.ErrStorage, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisStateStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisStateStore) Close() error {
	return s.client.Close()
}
