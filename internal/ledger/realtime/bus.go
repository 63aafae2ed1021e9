package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// State 连接状态
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	// StateOffline 重连次数耗尽，直到再次调用 Connect
	StateOffline State = "offline"
)

const (
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"
)

var ErrNoURL = errors.New("realtime: websocket url is empty")

// Handler 收到 topic 消息时调用，data 为原始 JSON
type Handler func(data json.RawMessage)

type ListenerID uint64

type Config struct {
	URL               string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
	PingInterval      time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	HandshakeTimeout  time.Duration
	Header            http.Header
}

// Frame 线上格式 {"event": "...", "data": ...}
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type subscribePayload struct {
	Token string `json:"token"`
}

type listener struct {
	id ListenerID
	fn Handler
}

type stateObserver struct {
	id ListenerID
	fn func(State)
}

// session 一次 Connect 到 Disconnect/耗尽 之间的生命周期
type session struct {
	cancel context.CancelFunc
	conn   *websocket.Conn
	done   chan struct{}
}

// Bus 进程内唯一的推送连接，按 topic 分发到本地监听者
type Bus struct {
	cfg Config
	tl  *zap.Logger

	mu        sync.Mutex
	state     State
	sess      *session
	listeners map[string][]listener
	observers []stateObserver
	subs      []string
	nextID    ListenerID

	writeMu sync.Mutex
}

func NewBus(cfg Config, tl *zap.Logger) *Bus {
	if cfg.ReconnectAttempts <= 0 {
		cfg.ReconnectAttempts = 5
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	if cfg.ReconnectDelayMax < cfg.ReconnectDelay {
		cfg.ReconnectDelayMax = 5 * time.Second
		if cfg.ReconnectDelayMax < cfg.ReconnectDelay {
			cfg.ReconnectDelayMax = cfg.ReconnectDelay
		}
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.PingInterval > 0 && cfg.ReadTimeout < 2*cfg.PingInterval {
		cfg.ReadTimeout = 2 * cfg.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &Bus{
		cfg:       cfg,
		tl:        tl,
		state:     StateDisconnected,
		listeners: make(map[string][]listener),
	}
}

func (b *Bus) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bus) IsConnected() bool {
	return b.State() == StateConnected
}

// Connect 已有连接流程时直接返回；不阻塞，结果通过 OnState 观察
func (b *Bus) Connect(ctx context.Context) error {
	if b.cfg.URL == "" {
		return ErrNoURL
	}

	b.mu.Lock()
	if b.sess != nil {
		b.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s := &session{cancel: cancel, done: make(chan struct{})}
	b.sess = s
	b.mu.Unlock()

	go b.run(runCtx, s)
	return nil
}

// Disconnect 关闭连接并停止重连，本地监听者保留
func (b *Bus) Disconnect() {
	b.mu.Lock()
	s := b.sess
	b.sess = nil
	var conn *websocket.Conn
	if s != nil {
		conn = s.conn
		s.conn = nil
	}
	b.mu.Unlock()

	if s == nil {
		b.setState(nil, StateDisconnected)
		return
	}
	s.cancel()
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}
	b.setState(nil, StateDisconnected)
	b.tl.Info("realtime disconnected")
}

// Done 当前连接流程结束时关闭；没有连接流程时返回 nil
func (b *Bus) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sess == nil {
		return nil
	}
	return b.sess.done
}

func (b *Bus) run(ctx context.Context, s *session) {
	defer close(s.done)
	failures := 0

	for {
		if !b.setState(s, StateConnecting) {
			return
		}
		conn, err := b.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				b.finish(s, StateDisconnected)
				return
			}
			failures++
			if failures > b.cfg.ReconnectAttempts {
				b.tl.Error("realtime reconnect attempts exhausted, going offline",
					zap.Int("attempts", failures), zap.Error(err))
				b.finish(s, StateOffline)
				return
			}
			delay := Backoff(failures-1, b.cfg.ReconnectDelay, b.cfg.ReconnectDelayMax)
			b.tl.Warn("realtime connect failed", zap.Error(err), zap.Int("attempt", failures), zap.Duration("retry_in", delay))
			if !b.setState(s, StateDisconnected) || !sleep(ctx, delay) {
				b.finish(s, StateDisconnected)
				return
			}
			continue
		}

		failures = 0
		if !b.attach(s, conn) {
			_ = conn.Close()
			return
		}
		err = b.readLoop(ctx, conn)
		b.detach(s, conn)

		if ctx.Err() != nil {
			b.finish(s, StateDisconnected)
			return
		}
		b.tl.Warn("realtime connection dropped", zap.Error(err))
		if !b.setState(s, StateDisconnected) || !sleep(ctx, b.cfg.ReconnectDelay) {
			b.finish(s, StateDisconnected)
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (b *Bus) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: b.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, b.cfg.URL, b.cfg.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", b.cfg.URL, err)
	}
	return conn, nil
}

// attach 登记连接并重放远端订阅
func (b *Bus) attach(s *session, conn *websocket.Conn) bool {
	b.mu.Lock()
	if b.sess != s {
		b.mu.Unlock()
		return false
	}
	s.conn = conn
	subs := append([]string(nil), b.subs...)
	b.mu.Unlock()

	b.setState(s, StateConnected)
	b.tl.Info("realtime connected", zap.String("url", b.cfg.URL), zap.Int("subscriptions", len(subs)))

	for _, id := range subs {
		if err := b.write(conn, EventSubscribe, subscribePayload{Token: id}); err != nil {
			b.tl.Warn("replay subscribe failed", zap.String("id", id), zap.Error(err))
		}
	}
	return true
}

func (b *Bus) detach(s *session, conn *websocket.Conn) {
	b.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	b.mu.Unlock()
	_ = conn.Close()
}

// finish 只有当前会话才能改写状态
func (b *Bus) finish(s *session, final State) {
	b.mu.Lock()
	if b.sess != s {
		b.mu.Unlock()
		return
	}
	b.sess = nil
	b.mu.Unlock()
	b.setState(nil, final)
}

func (b *Bus) readLoop(ctx context.Context, conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(b.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(b.cfg.ReadTimeout))
	})

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	if b.cfg.PingInterval > 0 {
		go b.pingLoop(pingCtx, conn)
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(b.cfg.ReadTimeout))

		var f Frame
		if err := sonic.Unmarshal(msg, &f); err != nil || f.Event == "" {
			b.tl.Warn("realtime frame ignored", zap.ByteString("frame", msg), zap.Error(err))
			continue
		}
		b.Emit(f.Event, f.Data)
	}
}

func (b *Bus) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(b.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(b.cfg.WriteTimeout)); err != nil {
				b.tl.Warn("realtime ping failed", zap.Error(err))
				_ = conn.Close()
				return
			}
		}
	}
}

func (b *Bus) write(conn *websocket.Conn, event string, data any) error {
	payload, err := sonic.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := sonic.Marshal(Frame{Event: event, Data: payload})
	if err != nil {
		return err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(b.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (b *Bus) currentConn() *websocket.Conn {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sess == nil {
		return nil
	}
	return b.sess.conn
}

// setState s 为 nil 时无条件写入；否则 s 已失效时返回 false
func (b *Bus) setState(s *session, st State) bool {
	b.mu.Lock()
	if s != nil && b.sess != s {
		b.mu.Unlock()
		return false
	}
	changed := b.state != st
	b.state = st
	observers := append([]stateObserver(nil), b.observers...)
	b.mu.Unlock()

	if changed {
		for _, o := range observers {
			b.safeCall(func() { o.fn(st) }, "state")
		}
	}
	return true
}
