package ledger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sentinel-ledger/internal/ledger/config"
	"sentinel-ledger/internal/ledger/model"
	"sentinel-ledger/internal/ledger/notify"
	"sentinel-ledger/internal/ledger/realtime"
	"sentinel-ledger/internal/ledger/settings"
	"sentinel-ledger/pkg/httpclient"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type backend struct {
	api   *httptest.Server
	ws    *httptest.Server
	conns chan *websocket.Conn

	mu     sync.Mutex
	paths  map[string]int
	served map[string]int
	delay  time.Duration
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{
		conns:  make(chan *websocket.Conn, 4),
		paths:  make(map[string]int),
		served: make(map[string]int),
	}

	b.api = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.paths[r.URL.Path]++
		delay := b.delay
		b.mu.Unlock()
		defer func() {
			b.mu.Lock()
			b.served[r.URL.Path]++
			b.mu.Unlock()
		}()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/analytics/dashboard", "/analytics/risk-distribution":
			_, _ = w.Write([]byte(`{}`))
		case "/analytics/risk-feed":
			_, _ = w.Write([]byte(`[{"token_address":"` + tokenAddr + `","risk_score":91}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	t.Cleanup(b.api.Close)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	b.ws = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		b.conns <- conn
	}))
	t.Cleanup(b.ws.Close)
	return b
}

func (b *backend) hits(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paths[path]
}

func (b *backend) completed(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.served[path]
}

func (b *backend) slow(d time.Duration) {
	b.mu.Lock()
	b.delay = d
	b.mu.Unlock()
}

func (b *backend) config() config.Config {
	return config.Config{
		API: config.APIConfig{BaseURL: b.api.URL, Timeout: 2, UserAgent: "ledger-test"},
		Realtime: config.RealtimeConfig{
			WSURL:               "ws" + strings.TrimPrefix(b.ws.URL, "http"),
			ReconnectAttempts:   2,
			ReconnectDelayMS:    5,
			ReconnectDelayMaxMS: 20,
		},
		Query:   config.QueryConfig{GCTimeMS: 60000},
		Storage: config.StorageConfig{Driver: "memory"},
	}
}

func TestCoreStartWiresEverything(t *testing.T) {
	be := newBackend(t)
	core, err := New(be.config(), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, core.Start(ctx))
	defer core.Stop(context.Background())

	for _, p := range []string{
		"/analytics/dashboard",
		"/analytics/risk-distribution",
		"/analytics/top-risks",
		"/tokens/recent",
		"/tokens/high-risk",
		"/analytics/chain-stats",
	} {
		path := p
		assert.Eventually(t, func() bool { return be.hits(path) == 1 }, 2*time.Second, 10*time.Millisecond, path)
	}

	feed := core.RiskFeed()
	require.NotNil(t, feed)
	assert.Eventually(t, func() bool {
		st := feed.State()
		return st.IsSuccess() && len(st.Data) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, settings.Defaults().Refresh(), feed.Interval())

	var conn *websocket.Conn
	select {
	case conn = <-be.conns:
		defer conn.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("realtime bus did not connect")
	}
	assert.Eventually(t, core.Bus().IsConnected, 2*time.Second, 10*time.Millisecond)

	frame := `{"event":"` + model.EventRiskAlert + `","data":{"token_address":"` + tokenAddr + `","risk_score":95}}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
	assert.Eventually(t, func() bool {
		for _, n := range core.Notifier().Recent() {
			if n.Code == model.EventRiskAlert {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	interval := int64(60000)
	_, err = core.Settings().Update(settings.Patch{RefreshInterval: &interval})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, feed.Interval())

	assert.Error(t, core.Start(ctx))
}

func TestCoreStopDisconnects(t *testing.T) {
	be := newBackend(t)
	core, err := New(be.config(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, core.Start(context.Background()))

	select {
	case conn := <-be.conns:
		defer conn.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("realtime bus did not connect")
	}

	core.Stop(context.Background())
	assert.Equal(t, realtime.StateDisconnected, core.Bus().State())
	assert.Nil(t, core.RiskFeed())
	assert.Zero(t, core.Bus().Listeners(model.EventRiskAlert))
}

func TestCoreStartDoesNotWaitForPrefetch(t *testing.T) {
	be := newBackend(t)
	be.slow(time.Second)
	core, err := New(be.config(), zap.NewNop())
	require.NoError(t, err)

	began := time.Now()
	require.NoError(t, core.Start(context.Background()))
	assert.Less(t, time.Since(began), 300*time.Millisecond)

	select {
	case conn := <-be.conns:
		defer conn.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("realtime bus did not connect")
	}
	assert.Eventually(t, core.Bus().IsConnected, time.Second, 10*time.Millisecond)
	assert.Zero(t, be.completed("/analytics/dashboard"))
	assert.Eventually(t, func() bool { return be.hits("/analytics/dashboard") == 1 }, time.Second, 10*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		core.Stop(context.Background())
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on prefetch")
	}
	assert.Equal(t, realtime.StateDisconnected, core.Bus().State())
}

func TestUnknownStorageDriver(t *testing.T) {
	cfg := config.Config{Storage: config.StorageConfig{Driver: "sqlite"}}
	_, err := New(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestNotifyHTTPError(t *testing.T) {
	hub := notify.NewHub(zap.NewNop(), 10)

	notifyHTTPError(hub, &httpclient.Error{Kind: httpclient.KindNotFound, Code: "HTTP_404"})
	assert.Empty(t, hub.Recent())

	notifyHTTPError(hub, &httpclient.Error{Kind: httpclient.KindRateLimited, Code: "HTTP_429", Message: "slow down"})
	notifyHTTPError(hub, &httpclient.Error{Kind: httpclient.KindServer, Code: "HTTP_500", Message: "boom"})

	recent := hub.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, notify.LevelWarning, recent[0].Level)
	assert.Equal(t, "HTTP_429", recent[0].Code)
	assert.Equal(t, notify.LevelError, recent[1].Level)
}
