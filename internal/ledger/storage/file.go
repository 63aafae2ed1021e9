package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
)

// FileStore 将全部键值写入单个 JSON 文件
type FileStore struct {
	mu     sync.Mutex
	path   string
	data   map[string]string
	closed bool
}

// NewFileStore 打开或创建存储文件，文件损坏时以空内容启动
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	s := &FileStore{path: path, data: make(map[string]string)}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read storage file: %w", err)
	}
	if len(raw) > 0 {
		if err := sonic.Unmarshal(raw, &s.data); err != nil {
			s.data = make(map[string]string)
		}
	}
	return s, nil
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	prev, existed := s.data[key]
	s.data[key] = value
	if err := s.flush(); err != nil {
		// 写盘失败时回滚内存，保证文件与内存一致
		if existed {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flush()
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// flush 先写临时文件再 rename，避免半写入
func (s *FileStore) flush() error {
	raw, err := sonic.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encode storage: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return fmt.Errorf("write storage file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace storage file: %w", err)
	}
	return nil
}
