package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sentinel-ledger/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 2 * time.Second

// RedisStore 多端共享设置时使用 Redis 作为存储
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore 创建 Redis 存储并做一次连通性检查
func NewRedisStore(addr, password string, db int, prefix string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 4,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{rdb: rdb, prefix: prefix}, nil
}

func (s *RedisStore) key(k string) string {
	return utils.StorageKey(s.prefix, k)
}

func (s *RedisStore) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	v, err := s.rdb.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis GET failed: %w", err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.rdb.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis DEL failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
