package credential

import (
	"context"
	"errors"
	"fmt"

	redisv9 "github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redisv9.Client
	prefix string
}

func NewRedisStore(client *redisv9.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redisv9.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get credential failed: %w", err)
	}
	return raw, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set credential failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis delete credential failed: %w", err)
	}
	return nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}
