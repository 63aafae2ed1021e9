package query

import (
	"context"
	"time"
)

// Status 缓存条目状态
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusSuccess Status = "success"
)

type fetchFunc func(ctx context.Context) (any, error)

type entry struct {
	key         Key
	value       any
	hasValue    bool
	err         error
	status      Status
	updatedAt   time.Time
	staleTime   time.Duration
	invalidated bool
	inFlight    bool
	fetch       fetchFunc
	subscribers map[uint64]chan struct{}
}

func newEntry(key Key) *entry {
	return &entry{
		key:         key,
		status:      StatusIdle,
		subscribers: make(map[uint64]chan struct{}),
	}
}

func (e *entry) stale(now time.Time) bool {
	if !e.hasValue || e.invalidated {
		return true
	}
	return now.Sub(e.updatedAt) >= e.staleTime
}

// signal 合并通知，订阅方只需知道“有变化”
func (e *entry) signal() {
	for _, ch := range e.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
