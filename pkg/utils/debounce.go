package utils

import (
	"sync"
	"time"
)

// Debouncer 只在输入静默 delay 之后发出最后一个值
type Debouncer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	pending T
	seq     uint64
	fn      func(T)
	out     chan T
	stopped bool
}

// NewDebouncer fn 可以为空，此时只通过 C() 读取
func NewDebouncer[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{
		delay: delay,
		fn:    fn,
		out:   make(chan T, 1),
	}
}

// Set 每次调用都会重置计时器
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = v
	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	// 计时器已被新的 Set 替换
	if d.stopped || seq != d.seq {
		d.mu.Unlock()
		return
	}
	v := d.pending
	fn := d.fn
	d.mu.Unlock()

	if fn != nil {
		fn(v)
	}
	// 只保留最新值
	select {
	case <-d.out:
	default:
	}
	select {
	case d.out <- v:
	default:
	}
}

// C 发出防抖后的值
func (d *Debouncer[T]) C() <-chan T {
	return d.out
}

// Stop 丢弃尚未发出的值
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
