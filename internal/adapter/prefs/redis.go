package prefs

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	redis "github.com/redis/go-redis/v9"
)

// RedisStore keeps preferences as string values under <prefix>:<key>.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a RedisStore. The caller owns client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisStore) GetBool(ctx context.Context, key string) (bool, bool, error) {
	k := s.key(key)
	raw, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("redis GET %s: %w", k, err)
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("parse %s value %q: %w", k, raw, err)
	}
	return v, true, nil
}

func (s *RedisStore) SetBool(ctx context.Context, key string, value bool) error {
	k := s.key(key)
	if err := s.client.Set(ctx, k, strconv.FormatBool(value), 0).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", k, err)
	}
	return nil
}

// CheckReadiness pings the server.
func (s *RedisStore) CheckReadiness(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
