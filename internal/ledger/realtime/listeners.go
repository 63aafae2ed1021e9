package realtime

import (
	"context"
	"encoding/json"
	"runtime/debug"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// On 注册 topic 监听者，同一 topic 按注册顺序调用
func (b *Bus) On(topic string, fn Handler) ListenerID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners[topic] = append(b.listeners[topic], listener{id: id, fn: fn})
	return id
}

// Off 移除监听者，id 不存在时忽略
func (b *Bus) Off(topic string, id ListenerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ls := b.listeners[topic]
	for i, l := range ls {
		if l.id == id {
			next := make([]listener, 0, len(ls)-1)
			next = append(next, ls[:i]...)
			next = append(next, ls[i+1:]...)
			if len(next) == 0 {
				delete(b.listeners, topic)
			} else {
				b.listeners[topic] = next
			}
			return
		}
	}
}

// Use 注册监听并按需建立连接，返回取消函数
func (b *Bus) Use(topic string, fn Handler) func() {
	id := b.On(topic, fn)
	if err := b.Connect(context.Background()); err != nil {
		b.tl.Warn("realtime lazy connect failed", zap.Error(err))
	}
	return func() { b.Off(topic, id) }
}

// OnState 状态变化回调，返回取消函数
func (b *Bus) OnState(fn func(State)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.observers = append(b.observers, stateObserver{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, o := range b.observers {
			if o.id == id {
				b.observers = append(b.observers[:i:i], b.observers[i+1:]...)
				return
			}
		}
	}
}

// Emit 同步分发给 topic 的全部监听者；单个监听者 panic 不影响后续
func (b *Bus) Emit(topic string, data json.RawMessage) {
	b.mu.Lock()
	ls := append([]listener(nil), b.listeners[topic]...)
	b.mu.Unlock()

	for _, l := range ls {
		b.safeCall(func() { l.fn(data) }, topic)
	}
}

func (b *Bus) safeCall(fn func(), topic string) {
	defer func() {
		if r := recover(); r != nil {
			b.tl.Error("realtime listener panic",
				zap.String("topic", topic),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	fn()
}

// Listeners topic 当前监听者数量
func (b *Bus) Listeners(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[topic])
}

// Subscribe 请求服务端推送 id 相关事件。未连接时只记录，连接后补发
func (b *Bus) Subscribe(id string) error {
	b.mu.Lock()
	known := false
	for _, s := range b.subs {
		if s == id {
			known = true
			break
		}
	}
	if !known {
		b.subs = append(b.subs, id)
	}
	b.mu.Unlock()

	conn := b.currentConn()
	if conn == nil {
		return nil
	}
	return b.write(conn, EventSubscribe, subscribePayload{Token: id})
}

func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	for i, s := range b.subs {
		if s == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	conn := b.currentConn()
	if conn == nil {
		return nil
	}
	return b.write(conn, EventUnsubscribe, subscribePayload{Token: id})
}

// Subscriptions 当前记录的远端订阅
func (b *Bus) Subscriptions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.subs...)
}

// Decode 把 data 解码成具体事件类型
func Decode[T any](data json.RawMessage) (T, error) {
	var v T
	err := sonic.Unmarshal(data, &v)
	return v, err
}

// Handle 类型化的 On，解码失败只记日志
func Handle[T any](b *Bus, topic string, fn func(T)) ListenerID {
	return b.On(topic, func(data json.RawMessage) {
		v, err := Decode[T](data)
		if err != nil {
			b.tl.Warn("realtime payload decode failed", zap.String("topic", topic), zap.Error(err))
			return
		}
		fn(v)
	})
}
