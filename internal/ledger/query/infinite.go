package query

import (
	"context"
	"strconv"
	"sync"
)

// PageFunc 按偏移量取一页
type PageFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// Infinite 加载更多式分页：逐页获取并追加，某页不足 pageSize 时结束
type Infinite[T any] struct {
	c        *Client
	key      Key
	pageSize int
	fetch    PageFunc[T]

	mu       sync.Mutex
	pages    [][]T
	hasNext  bool
	fetching bool
	err      error
	gen      uint64 // Reset 递增，旧请求的结果被丢弃
}

func NewInfinite[T any](c *Client, key Key, pageSize int, fetch PageFunc[T]) *Infinite[T] {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Infinite[T]{
		c:        c,
		key:      key,
		pageSize: pageSize,
		fetch:    fetch,
		hasNext:  true,
	}
}

// FetchNextPage 没有下一页或已有请求在途时直接返回
func (i *Infinite[T]) FetchNextPage(ctx context.Context) error {
	i.mu.Lock()
	if !i.hasNext || i.fetching {
		i.mu.Unlock()
		return nil
	}
	i.fetching = true
	page := len(i.pages)
	gen := i.gen
	i.mu.Unlock()

	offset := page * i.pageSize
	items, err := Get(ctx, i.c, Definition[[]T]{
		Key: i.key.With("page", strconv.Itoa(page)),
		Fetch: func(ctx context.Context) ([]T, error) {
			return i.fetch(ctx, offset, i.pageSize)
		},
	})

	i.mu.Lock()
	if gen != i.gen {
		i.mu.Unlock()
		// 旧请求完成时可能刷新了缓存，再次标记过期
		i.c.Invalidate(i.key)
		return nil
	}
	defer i.mu.Unlock()
	i.fetching = false
	if err != nil {
		i.err = err
		return err
	}
	i.err = nil
	i.pages = append(i.pages, items)
	i.hasNext = len(items) >= i.pageSize
	return nil
}

func (i *Infinite[T]) HasNextPage() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.hasNext
}

func (i *Infinite[T]) IsFetching() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.fetching
}

func (i *Infinite[T]) Err() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.err
}

func (i *Infinite[T]) PageCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.pages)
}

// Items 已加载的全部数据
func (i *Infinite[T]) Items() []T {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]T, 0, len(i.pages)*i.pageSize)
	for _, p := range i.pages {
		out = append(out, p...)
	}
	return out
}

// Reset 丢弃已加载的页并使缓存过期；在途请求的结果不会再追加
func (i *Infinite[T]) Reset() {
	i.mu.Lock()
	i.gen++
	i.fetching = false
	i.pages = nil
	i.hasNext = true
	i.err = nil
	i.mu.Unlock()
	i.c.Invalidate(i.key)
}
