package poller

import (
	"context"
	"fmt"
	"strconv"

	"github.com/moznion/go-optional"
	"github.com/redis/go-redis/v9"
)

// CursorStore persists dedup cursors so a restart does not re-announce the
// latest trade of every bot. The poll task stays the sole owner of the live
// cursor; the store only mirrors it.
type CursorStore interface {
	Load(ctx context.Context, entity string) (optional.Option[uint64], error)
	Save(ctx context.Context, entity string, ts uint64) error
	Delete(ctx context.Context, entity string) error
}

// NopCursorStore keeps nothing; cursors live only in memory.
type NopCursorStore struct{}

func (NopCursorStore) Load(context.Context, string) (optional.Option[uint64], error) {
	return optional.None[uint64](), nil
}
func (NopCursorStore) Save(context.Context, string, uint64) error { return nil }
func (NopCursorStore) Delete(context.Context, string) error       { return nil }

// RedisCursorStore keeps all cursors in one Redis hash.
type RedisCursorStore struct {
	client *redis.Client
	key    string
}

// NewRedisCursorStore connects to Redis and verifies the connection.
func NewRedisCursorStore(ctx context.Context, addr, password string, db int) (*RedisCursorStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisCursorStore{client: client, key: "botherald:cursors"}, nil
}

func (s *RedisCursorStore) Load(ctx context.Context, entity string) (optional.Option[uint64], error) {
	v, err := s.client.HGet(ctx, s.key, entity).Result()
	if err == redis.Nil {
		return optional.None[uint64](), nil
	}
	if err != nil {
		return optional.None[uint64](), fmt.Errorf("failed to load cursor from redis: %w", err)
	}
	ts, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return optional.None[uint64](), fmt.Errorf("corrupt cursor %q for %s: %w", v, entity, err)
	}
	return optional.Some(ts), nil
}

func (s *RedisCursorStore) Save(ctx context.Context, entity string, ts uint64) error {
	if err := s.client.HSet(ctx, s.key, entity, strconv.FormatUint(ts, 10)).Err(); err != nil {
		return fmt.Errorf("failed to save cursor in redis: %w", err)
	}
	return nil
}

func (s *RedisCursorStore) Delete(ctx context.Context, entity string) error {
	if err := s.client.HDel(ctx, s.key, entity).Err(); err != nil {
		return fmt.Errorf("failed to delete cursor from redis: %w", err)
	}
	return nil
}

func (s *RedisCursorStore) Close() error {
	return s.client.Close()
}
