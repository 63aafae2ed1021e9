package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice 面向用户的提示，对应前端的 toast
type Notice struct {
	Level   Level     `json:"level"`
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc 允许普通函数作为 Notifier
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Nop 丢弃所有提示
var Nop Notifier = NotifierFunc(func(Notice) {})

// Hub 记录最近的提示并转发给所有下游
type Hub struct {
	mu     sync.RWMutex
	tl     *zap.Logger
	sinks  []Notifier
	recent []Notice
	limit  int
}

func NewHub(tl *zap.Logger, limit int) *Hub {
	if limit <= 0 {
		limit = 50
	}
	return &Hub{tl: tl, limit: limit}
}

// Add 注册下游
func (h *Hub) Add(n Notifier) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks = append(h.sinks, n)
}

func (h *Hub) Notify(n Notice) {
	if n.At.IsZero() {
		n.At = time.Now()
	}

	fields := []zap.Field{zap.String("code", n.Code), zap.String("message", n.Message)}
	switch n.Level {
	case LevelError:
		h.tl.Error("notice", fields...)
	case LevelWarning:
		h.tl.Warn("notice", fields...)
	default:
		h.tl.Info("notice", fields...)
	}

	h.mu.Lock()
	h.recent = append(h.recent, n)
	if len(h.recent) > h.limit {
		h.recent = h.recent[len(h.recent)-h.limit:]
	}
	sinks := make([]Notifier, len(h.sinks))
	copy(sinks, h.sinks)
	h.mu.Unlock()

	for _, s := range sinks {
		s.Notify(n)
	}
}

// Recent 返回最近的提示，旧的在前
func (h *Hub) Recent() []Notice {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Notice, len(h.recent))
	copy(out, h.recent)
	return out
}
