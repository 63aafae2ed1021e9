package storage

import (
	"github.com/patrickmn/go-cache"
)

// MemoryStore 进程内存储，测试和 ephemeral 模式使用
type MemoryStore struct {
	c *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, 0)}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return "", false, nil
	}
	str, _ := v.(string)
	return str, true, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.c.Set(key, value, cache.NoExpiration)
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.c.Delete(key)
	return nil
}

func (s *MemoryStore) Close() error {
	s.c.Flush()
	return nil
}
