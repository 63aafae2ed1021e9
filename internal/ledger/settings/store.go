package settings

import (
	"encoding/json"
	"fmt"
	"sync"

	"sentinel-ledger/internal/ledger/notify"
	"sentinel-ledger/internal/ledger/storage"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Observer 设置变更回调
type Observer func(s Settings)

// Store 持久化设置：读取时与默认值浅合并，每次修改同步写回
type Store struct {
	// writeMu 串行化 修改-写回-通知，保证存储与内存一致
	writeMu   sync.Mutex
	mu        sync.RWMutex
	kv        storage.KV
	tl        *zap.Logger
	notifier  notify.Notifier
	current   Settings
	observers map[int]Observer
	nextID    int
}

func NewStore(kv storage.KV, notifier notify.Notifier, tl *zap.Logger) *Store {
	if notifier == nil {
		notifier = notify.Nop
	}
	return &Store{
		kv:        kv,
		tl:        tl,
		notifier:  notifier,
		current:   Defaults(),
		observers: make(map[int]Observer),
	}
}

// Load 读取持久化内容；缺失或损坏时返回默认值，不会失败
func (s *Store) Load() Settings {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	loaded := s.read()

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()
	return loaded.Clone()
}

func (s *Store) read() Settings {
	defaults := Defaults()

	raw, ok, err := s.kv.Get(storage.KeySettings)
	if err != nil {
		s.tl.Warn("read settings failed, using defaults", zap.Error(err))
		return defaults
	}
	if !ok || raw == "" {
		return defaults
	}

	var persisted map[string]json.RawMessage
	if err := sonic.UnmarshalString(raw, &persisted); err != nil || persisted == nil {
		s.tl.Warn("persisted settings malformed, using defaults", zap.Error(err))
		return defaults
	}

	merged, err := merge(defaults, persisted)
	if err != nil {
		s.tl.Warn("persisted settings malformed, using defaults", zap.Error(err))
		return defaults
	}
	return normalize(merged)
}

// Current 当前内存中的设置
func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Update 顶层合并 patch，同步写回并通知观察者。
// 观察者回调中不能再调用 Update 或 Reset
func (s *Store) Update(p Patch) (Settings, error) {
	if p.DefaultChain != nil && !validChain(*p.DefaultChain) {
		return s.Current(), fmt.Errorf("invalid chain: %s", *p.DefaultChain)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	next := normalize(p.apply(s.current.Clone()))
	s.current = next
	s.mu.Unlock()

	s.persist(next)
	s.publish(next)
	return next.Clone(), nil
}

// Reset 恢复默认值并写回
func (s *Store) Reset() Settings {
	defaults := Defaults()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.current = defaults
	s.mu.Unlock()

	s.persist(defaults)
	s.publish(defaults)
	return defaults.Clone()
}

// Subscribe 注册观察者，返回取消函数
func (s *Store) Subscribe(fn Observer) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// persist 写入失败只提示，内存状态仍然有效
func (s *Store) persist(next Settings) {
	raw, err := encode(next)
	if err == nil {
		err = s.kv.Set(storage.KeySettings, string(raw))
	}
	if err != nil {
		s.tl.Warn("persist settings failed", zap.Error(err))
		s.notifier.Notify(notify.Notice{
			Level:   notify.LevelWarning,
			Code:    "SETTINGS_NOT_SAVED",
			Message: "Settings could not be saved; changes apply to this session only",
		})
	}
}

func (s *Store) publish(next Settings) {
	s.mu.RLock()
	observers := make([]Observer, 0, len(s.observers))
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.observers[i]; ok {
			observers = append(observers, fn)
		}
	}
	s.mu.RUnlock()

	for _, fn := range observers {
		fn(next.Clone())
	}
}
