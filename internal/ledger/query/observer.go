package query

import (
	"context"
	"sync"
	"time"
)

// Result 观察者看到的快照
type Result[T any] struct {
	Data       T
	HasData    bool
	Err        error
	Status     Status
	IsFetching bool
	IsStale    bool
	UpdatedAt  time.Time
}

func (r Result[T]) IsError() bool   { return r.Status == StatusError }
func (r Result[T]) IsLoading() bool { return r.Status == StatusLoading }
func (r Result[T]) IsSuccess() bool { return r.Status == StatusSuccess }

// Observer 对一个 key 的订阅。Close 只停止自己的轮询，不取消已发出的请求
type Observer[T any] struct {
	c        *Client
	k        string
	resource string
	id       uint64
	disabled bool
	changes  chan struct{}

	mu       sync.Mutex
	interval time.Duration
	stop     chan struct{}
	closed   bool
}

// Watch 订阅查询：立即返回缓存，缺失或过期时后台刷新，按 RefetchInterval 轮询
func Watch[T any](c *Client, def Definition[T]) *Observer[T] {
	o := &Observer[T]{
		c:        c,
		k:        def.Key.String(),
		resource: def.Key.Resource,
		disabled: def.Disabled,
		changes:  make(chan struct{}, 1),
	}
	if def.Disabled {
		return o
	}

	c.register(def.Key, c.staleTime(def.StaleTime), wrap(def.Fetch))
	o.id = c.subscribe(o.k, o.changes)

	if _, fresh := c.fresh(o.k); fresh {
		c.opts.Metrics.Hit(o.resource)
	} else {
		c.opts.Metrics.Miss(o.resource)
		c.refresh(context.Background(), o.k)
	}
	o.SetInterval(def.RefetchInterval)
	return o
}

// State 当前快照
func (o *Observer[T]) State() Result[T] {
	if o.disabled {
		return Result[T]{Status: StatusIdle}
	}

	o.c.mu.Lock()
	defer o.c.mu.Unlock()
	e, ok := o.c.entries[o.k]
	if !ok {
		return Result[T]{Status: StatusIdle}
	}
	r := Result[T]{
		HasData:    e.hasValue,
		Err:        e.err,
		Status:     e.status,
		IsFetching: e.inFlight,
		IsStale:    e.stale(o.c.opts.Now()),
		UpdatedAt:  e.updatedAt,
	}
	if e.hasValue {
		if v, ok := e.value.(T); ok {
			r.Data = v
		}
	}
	return r
}

// Changes 条目变化时收到信号，多次变化可能合并为一次
func (o *Observer[T]) Changes() <-chan struct{} {
	return o.changes
}

// Refetch 强制刷新并等待结果
func (o *Observer[T]) Refetch(ctx context.Context) (T, error) {
	var zero T
	if o.disabled {
		return zero, ErrDisabled
	}
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-o.c.refresh(ctx, o.k):
		if res.Err != nil {
			return zero, res.Err
		}
		return cast[T](res.Val)
	}
}

// Interval 当前轮询间隔，0 表示不轮询
func (o *Observer[T]) Interval() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.interval
}

// SetInterval 重新设定轮询间隔，d <= 0 停止轮询
func (o *Observer[T]) SetInterval(d time.Duration) {
	if o.disabled {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	if o.stop != nil {
		close(o.stop)
		o.stop = nil
	}
	o.interval = d
	if d <= 0 {
		return
	}
	o.stop = make(chan struct{})
	go o.poll(o.stop, d)
}

func (o *Observer[T]) poll(stop <-chan struct{}, d time.Duration) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// 上一次请求未完成时跳过本轮
			if o.c.inFlight(o.k) {
				continue
			}
			o.c.refresh(context.Background(), o.k)
		}
	}
}

// Close 取消订阅；可重复调用
func (o *Observer[T]) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	if o.stop != nil {
		close(o.stop)
		o.stop = nil
	}
	o.mu.Unlock()

	if !o.disabled {
		o.c.unsubscribe(o.k, o.id)
	}
}
