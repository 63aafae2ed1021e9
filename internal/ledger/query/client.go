package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sentinel-ledger/pkg/logger"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrDisabled     = errors.New("query disabled")
	ErrTypeMismatch = errors.New("cached value has unexpected type")
	errNoFetcher    = errors.New("no fetcher registered for key")
)

// Metrics 由 monitor 包实现
type Metrics interface {
	Hit(resource string)
	Miss(resource string)
	Fetched(resource string, elapsed time.Duration, err error)
}

type nopMetrics struct{}

func (nopMetrics) Hit(string)                           {}
func (nopMetrics) Miss(string)                          {}
func (nopMetrics) Fetched(string, time.Duration, error) {}

type Options struct {
	StaleTime time.Duration // 默认 0，即取回后立即过期
	GCTime    time.Duration // 无订阅者的条目保留时长，默认 5 分钟
	Metrics   Metrics
	Now       func() time.Time
}

// Definition 描述一个查询：怎么取、何时算过期、多久轮询一次
type Definition[T any] struct {
	Key             Key
	Fetch           func(ctx context.Context) (T, error)
	Disabled        bool
	StaleTime       time.Duration
	RefetchInterval time.Duration
}

// Client 进程内查询缓存。相同 key 的并发请求合并为一次
type Client struct {
	mu      sync.Mutex
	entries map[string]*entry
	idle    *cache.Cache
	group   singleflight.Group
	opts    Options
	tl      *zap.Logger
	tracer  trace.Tracer
	nextSub uint64
}

func NewClient(opts Options, tl *zap.Logger) *Client {
	if opts.GCTime <= 0 {
		opts.GCTime = 5 * time.Minute
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Client{
		entries: make(map[string]*entry),
		idle:    cache.New(opts.GCTime, opts.GCTime),
		opts:    opts,
		tl:      tl,
		tracer:  otel.Tracer("sentinel-ledger/query"),
	}
	c.idle.OnEvicted(c.evict)
	return c
}

// evict go-cache 过期回调；仍有订阅者或请求未完成的条目保留
func (c *Client) evict(k string, _ interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if !ok || len(e.subscribers) > 0 || e.inFlight {
		return
	}
	delete(c.entries, k)
	c.tl.Debug("query entry collected", zap.String("key", k))
}

// GC 立即清理已到期的空闲条目
func (c *Client) GC() {
	c.idle.DeleteExpired()
}

// Len 当前缓存条目数
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear 丢弃全部缓存，未完成请求的结果也会被丢弃
func (c *Client) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
	c.idle.Flush()
}

func (c *Client) staleTime(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return c.opts.StaleTime
}

// register 确保条目存在并记录最新的取数函数
func (c *Client) register(key Key, staleTime time.Duration, fetch fetchFunc) string {
	k := key.String()

	c.mu.Lock()
	e, ok := c.entries[k]
	if !ok {
		e = newEntry(key)
		c.entries[k] = e
	}
	e.fetch = fetch
	e.staleTime = staleTime
	idle := !ok && len(e.subscribers) == 0
	c.mu.Unlock()

	if idle {
		c.idle.Set(k, struct{}{}, cache.DefaultExpiration)
	}
	return k
}

func (c *Client) fresh(k string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok || e.stale(c.opts.Now()) {
		return nil, false
	}
	return e.value, true
}

func (c *Client) inFlight(k string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	return ok && e.inFlight
}

// refresh 发起或加入 k 的在途请求
func (c *Client) refresh(ctx context.Context, k string) <-chan singleflight.Result {
	return c.group.DoChan(k, func() (interface{}, error) {
		return c.run(context.WithoutCancel(ctx), k)
	})
}

func (c *Client) run(ctx context.Context, k string) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[k]
	if !ok || e.fetch == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", errNoFetcher, k)
	}
	fetch := e.fetch
	e.inFlight = true
	if !e.hasValue {
		e.status = StatusLoading
	}
	e.signal()
	c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "query.fetch", trace.WithAttributes(
		attribute.String("query.key", k),
		attribute.String("query.resource", e.key.Resource),
	))
	start := time.Now()
	v, err := fetch(ctx)
	c.opts.Metrics.Fetched(e.key.Resource, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	c.mu.Lock()
	idle := false
	if cur, ok := c.entries[k]; ok && cur == e {
		e.inFlight = false
		if err != nil {
			// 保留上一次成功的数据
			e.err = err
			e.status = StatusError
		} else {
			e.value = v
			e.hasValue = true
			e.err = nil
			e.status = StatusSuccess
			e.updatedAt = c.opts.Now()
			e.invalidated = false
		}
		e.signal()
		idle = len(e.subscribers) == 0
	} else {
		c.tl.Debug("dropping result for collected query", zap.String("key", k))
	}
	c.mu.Unlock()

	if err != nil {
		logger.NewLoggerWithTrace(ctx, c.tl).Warn("query fetch failed", zap.String("key", k), zap.Error(err))
	}
	if idle {
		c.idle.Set(k, struct{}{}, cache.DefaultExpiration)
	}
	return v, err
}

// Invalidate 将匹配 prefix 的条目标记为过期，有订阅者的立即重新获取
func (c *Client) Invalidate(prefix Key) int {
	c.mu.Lock()
	n := 0
	var refetch []string
	for k, e := range c.entries {
		if !e.key.Matches(prefix) {
			continue
		}
		e.invalidated = true
		n++
		if len(e.subscribers) > 0 && e.fetch != nil {
			refetch = append(refetch, k)
		}
	}
	c.mu.Unlock()

	for _, k := range refetch {
		c.refresh(context.Background(), k)
	}
	return n
}

func (c *Client) subscribe(k string, ch chan struct{}) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	id := c.nextSub
	if e, ok := c.entries[k]; ok {
		e.subscribers[id] = ch
	}
	return id
}

func (c *Client) unsubscribe(k string, id uint64) {
	c.mu.Lock()
	e, ok := c.entries[k]
	idle := false
	if ok {
		delete(e.subscribers, id)
		idle = len(e.subscribers) == 0
	}
	c.mu.Unlock()

	if idle {
		c.idle.Set(k, struct{}{}, cache.DefaultExpiration)
	}
}

func wrap[T any](fetch func(ctx context.Context) (T, error)) fetchFunc {
	return func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}
}

func cast[T any](v any) (T, error) {
	if v == nil {
		var zero T
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return t, ErrTypeMismatch
	}
	return t, nil
}

// Get 一次性读取：新鲜时直接返回缓存，否则加入或发起请求并等待
func Get[T any](ctx context.Context, c *Client, def Definition[T]) (T, error) {
	var zero T
	if def.Disabled {
		return zero, ErrDisabled
	}
	k := c.register(def.Key, c.staleTime(def.StaleTime), wrap(def.Fetch))

	if v, ok := c.fresh(k); ok {
		c.opts.Metrics.Hit(def.Key.Resource)
		return cast[T](v)
	}
	c.opts.Metrics.Miss(def.Key.Resource)

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-c.refresh(ctx, k):
		if res.Err != nil {
			return zero, res.Err
		}
		return cast[T](res.Val)
	}
}
