package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"sentinel-ledger/internal/ledger/api"
	"sentinel-ledger/internal/ledger/config"
	"sentinel-ledger/internal/ledger/job"
	"sentinel-ledger/internal/ledger/model"
	"sentinel-ledger/internal/ledger/monitor"
	"sentinel-ledger/internal/ledger/notify"
	"sentinel-ledger/internal/ledger/query"
	"sentinel-ledger/internal/ledger/realtime"
	"sentinel-ledger/internal/ledger/service"
	"sentinel-ledger/internal/ledger/settings"
	"sentinel-ledger/internal/ledger/storage"
	"sentinel-ledger/pkg/httpclient"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const riskFeedLimit = 50

var realtimeStates = []string{
	string(realtime.StateDisconnected),
	string(realtime.StateConnecting),
	string(realtime.StateConnected),
	string(realtime.StateOffline),
}

type Core struct {
	cfg       config.Config
	tl        *zap.Logger
	kv        storage.KV
	creds     *storage.Credentials
	settings  *settings.Store
	notifier  *notify.Hub
	http      *httpclient.HTTPClient
	query     *query.Client
	svc       *service.Service
	bus       *realtime.Bus
	alerts    *AlertRouter
	health    *job.HealthCheck
	scheduler *job.Scheduler
	metrics   *monitor.MetricsServer

	mu       sync.Mutex
	started  bool
	riskFeed *query.Observer[[]model.RiskFeedItem]
	cancels  []func()

	// 后台预取，Stop 时取消并等待
	prefetch       conc.WaitGroup
	cancelPrefetch context.CancelFunc
}

// New 按配置组装全部组件，不发起任何网络请求（Redis 存储除外）
func New(cfg config.Config, logger *zap.Logger) (*Core, error) {
	kv, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}

	hub := notify.NewHub(logger, 50)
	creds := storage.NewCredentials(kv, logger)
	store := settings.NewStore(kv, hub, logger)
	store.Load()

	hc := httpclient.NewHTTPClient(httpclient.HTTPClientConfig{
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.API.TimeoutDuration(),
		RateLimit:   cfg.API.RateLimit,
		UserAgent:   cfg.API.UserAgent,
		Credentials: creds,
		OnError:     func(e *httpclient.Error) { notifyHTTPError(hub, e) },
		Observe:     monitor.ObserveAPI,
	}, logger)
	apiClient := api.NewClient(hc)

	qc := query.NewClient(query.Options{
		StaleTime: cfg.Query.StaleTime(),
		GCTime:    cfg.Query.GCTime(),
		Metrics:   monitor.QueryMetrics{},
	}, logger)

	header := make(http.Header)
	if cfg.API.UserAgent != "" {
		header.Set("User-Agent", cfg.API.UserAgent)
	}
	bus := realtime.NewBus(realtime.Config{
		URL:               cfg.Realtime.WSURL,
		ReconnectAttempts: cfg.Realtime.ReconnectAttempts,
		ReconnectDelay:    cfg.Realtime.ReconnectDelay(),
		ReconnectDelayMax: cfg.Realtime.ReconnectDelayMax(),
		PingInterval:      cfg.Realtime.PingIntervalDuration(),
		Header:            header,
	}, logger)

	// 初始化作业调度器
	scheduler := job.NewScheduler(logger)
	health := job.NewHealthCheck(apiClient, hub, logger)
	if d := cfg.Job.HealthIntervalDuration(); d > 0 {
		scheduler.RegisterJob("health_check", d, health.Run)
	}
	gcInterval := cfg.Query.GCTime() / 2
	if gcInterval < time.Second {
		gcInterval = time.Second
	}
	scheduler.RegisterJob("query_cache_gc", gcInterval, job.NewCacheGC(qc, logger).Run)

	return &Core{
		cfg:       cfg,
		tl:        logger,
		kv:        kv,
		creds:     creds,
		settings:  store,
		notifier:  hub,
		http:      hc,
		query:     qc,
		svc:       service.New(apiClient, qc),
		bus:       bus,
		alerts:    NewAlertRouter(store, qc, hub, logger),
		health:    health,
		scheduler: scheduler,
		metrics:   monitor.NewMetricsServer(cfg.Monitor, logger),
	}, nil
}

func openStorage(cfg config.Config) (storage.KV, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "redis":
		return storage.NewRedisStore(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Storage.KeyPrefix)
	case "file", "":
		return storage.NewFileStore(cfg.Storage.Path)
	}
	return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
}

// notifyHTTPError 限流、鉴权、服务端与网络错误需要提示用户
func notifyHTTPError(n notify.Notifier, e *httpclient.Error) {
	var level notify.Level
	switch e.Kind {
	case httpclient.KindUnauthorized, httpclient.KindRateLimited:
		level = notify.LevelWarning
	case httpclient.KindServer, httpclient.KindUnavailable, httpclient.KindNetwork:
		level = notify.LevelError
	default:
		return
	}
	n.Notify(notify.Notice{Level: level, Code: e.Code, Message: e.Message})
}

// Start 预取首页数据、订阅风险流、连接推送并启动定时任务；不阻塞
func (c *Core) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("core already started")
	}
	c.started = true
	c.mu.Unlock()

	c.tl.Info("Starting ledger core...")
	c.metrics.Run()

	current := c.settings.Current()
	feed := query.Watch(c.query, c.svc.RiskFeed(riskFeedLimit, current.Refresh()))

	var cancels []func()
	cancels = append(cancels, c.settings.Subscribe(func(s settings.Settings) {
		feed.SetInterval(s.Refresh())
		c.tl.Info("risk feed interval updated", zap.Duration("interval", s.Refresh()))
	}))
	cancels = append(cancels, c.alerts.Register(c.bus)...)
	cancels = append(cancels, c.bus.OnState(c.onRealtimeState))

	c.mu.Lock()
	c.riskFeed = feed
	c.cancels = cancels
	c.mu.Unlock()

	if err := c.bus.Connect(ctx); err != nil {
		c.tl.Warn("realtime disabled", zap.Error(err))
	}
	c.scheduler.Start(ctx)

	prefetchCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelPrefetch = cancel
	c.mu.Unlock()
	c.prefetch.Go(func() {
		if err := c.Prefetch(prefetchCtx); err != nil {
			c.tl.Warn("dashboard prefetch incomplete", zap.Error(err))
		}
	})

	c.tl.Info("Ledger core started successfully")
	return nil
}

func (c *Core) onRealtimeState(st realtime.State) {
	monitor.SetRealtimeState(string(st), realtimeStates...)
	if st == realtime.StateOffline {
		c.notifier.Notify(notify.Notice{
			Level:   notify.LevelWarning,
			Code:    "REALTIME_OFFLINE",
			Message: "Live updates are offline; data refreshes on the polling schedule",
		})
	}
}

// Prefetch 并发拉取看板所需数据，单项失败不影响其它项
func (c *Core) Prefetch(ctx context.Context) error {
	p := pool.New().WithMaxGoroutines(4).WithErrors()

	p.Go(func() error {
		_, err := query.Get(ctx, c.query, c.svc.DashboardStats())
		return err
	})
	p.Go(func() error {
		_, err := query.Get(ctx, c.query, c.svc.RiskDistribution())
		return err
	})
	p.Go(func() error {
		_, err := query.Get(ctx, c.query, c.svc.RiskTrends("7d"))
		return err
	})
	p.Go(func() error {
		_, err := query.Get(ctx, c.query, c.svc.DeploymentTrends(30))
		return err
	})
	p.Go(func() error {
		_, err := query.Get(ctx, c.query, c.svc.TopRisks(10))
		return err
	})
	p.Go(func() error {
		_, err := query.Get(ctx, c.query, c.svc.RecentTokens(10))
		return err
	})
	p.Go(func() error {
		_, err := query.Get(ctx, c.query, c.svc.HighRiskTokens(5))
		return err
	})
	p.Go(func() error {
		_, err := query.Get(ctx, c.query, c.svc.ChainStats())
		return err
	})

	return p.Wait()
}

// Stop 优雅关闭 Core 的所有资源
func (c *Core) Stop(ctx context.Context) {
	c.tl.Info("Stopping ledger core...")

	c.mu.Lock()
	cancels := c.cancels
	feed := c.riskFeed
	c.cancels = nil
	c.riskFeed = nil
	cancelPrefetch := c.cancelPrefetch
	c.cancelPrefetch = nil
	c.mu.Unlock()

	if cancelPrefetch != nil {
		cancelPrefetch()
	}
	c.prefetch.Wait()

	for _, cancel := range cancels {
		cancel()
	}
	if feed != nil {
		feed.Close()
	}

	c.bus.Disconnect()
	c.scheduler.Stop(ctx)

	if err := c.metrics.Stop(ctx); err != nil {
		c.tl.Warn("metrics server shutdown failed", zap.Error(err))
	}
	if err := c.http.Close(); err != nil {
		c.tl.Warn("http client close failed", zap.Error(err))
	}
	if err := c.kv.Close(); err != nil {
		c.tl.Warn("storage close failed", zap.Error(err))
	}

	c.tl.Info("Ledger core stopped.")
}

func (c *Core) Settings() *settings.Store         { return c.settings }
func (c *Core) Service() *service.Service         { return c.svc }
func (c *Core) Query() *query.Client              { return c.query }
func (c *Core) Bus() *realtime.Bus                { return c.bus }
func (c *Core) Notifier() *notify.Hub             { return c.notifier }
func (c *Core) Credentials() *storage.Credentials { return c.creds }
func (c *Core) Scheduler() *job.Scheduler         { return c.scheduler }
func (c *Core) BackendUp() bool                   { return c.health.Up() }

// RiskFeed Start 之前为 nil
func (c *Core) RiskFeed() *query.Observer[[]model.RiskFeedItem] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.riskFeed
}
