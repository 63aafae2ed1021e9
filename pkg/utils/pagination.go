package utils

import "sync"

// Page 一页数据及其位置
type Page[T any] struct {
	Items      []T
	Page       int // 从 1 开始，没有数据时为 1
	PageSize   int
	TotalPages int
	TotalItems int
}

func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages }
func (p Page[T]) HasPrev() bool { return p.Page > 1 }

// Paginate 页码被夹在 [1, TotalPages] 内；空输入返回空页且 TotalPages 为 0
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = 20
	}
	total := len(items)
	totalPages := (total + size - 1) / size

	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	p := Page[T]{Page: page, PageSize: size, TotalPages: totalPages, TotalItems: total, Items: []T{}}
	if total == 0 {
		return p
	}
	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	p.Items = items[start:end]
	return p
}

// Paginator 有状态的分页器，数据变化后当前页会重新夹紧
type Paginator[T any] struct {
	mu    sync.Mutex
	items []T
	page  int
	size  int
}

func NewPaginator[T any](items []T, size int) *Paginator[T] {
	if size <= 0 {
		size = 20
	}
	return &Paginator[T]{items: items, page: 1, size: size}
}

func (p *Paginator[T]) Current() Page[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current()
}

func (p *Paginator[T]) current() Page[T] {
	pg := Paginate(p.items, p.page, p.size)
	p.page = pg.Page
	return pg
}

func (p *Paginator[T]) SetItems(items []T) Page[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = items
	return p.current()
}

func (p *Paginator[T]) SetPageSize(size int) Page[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if size > 0 {
		p.size = size
	}
	p.page = 1
	return p.current()
}

func (p *Paginator[T]) GoTo(page int) Page[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.page = page
	return p.current()
}

func (p *Paginator[T]) Next() Page[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.page++
	return p.current()
}

func (p *Paginator[T]) Prev() Page[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.page--
	return p.current()
}
