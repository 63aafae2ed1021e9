package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentinel-ledger/internal/ledger"
	"sentinel-ledger/internal/ledger/config"
	"sentinel-ledger/internal/ledger/notify"
	"sentinel-ledger/pkg/logger"
	"sentinel-ledger/pkg/utils"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	fs := pflag.NewFlagSet("ledger", pflag.ExitOnError)
	fs.SortFlags = false
	fs.String("api-url", "", "REST base URL (env: SENTINEL_API_BASE_URL)")
	fs.String("ws-url", "", "realtime websocket URL (env: SENTINEL_REALTIME_WS_URL)")
	apiKey := fs.String("api-key", "", "store this API key before starting")
	logout := fs.Bool("logout", false, "clear the stored API key and exit")
	ephemeral := fs.Bool("ephemeral", false, "keep settings in memory for this run only")
	watch := fs.StringSlice("watch", nil, "token or wallet addresses to subscribe to")
	_ = fs.Parse(os.Args[1:])

	_ = viper.BindPFlag("api.base_url", fs.Lookup("api-url"))
	_ = viper.BindPFlag("realtime.ws_url", fs.Lookup("ws-url"))

	// 初始化配置文件
	cfg := config.InitConfig()
	if *ephemeral {
		cfg.Storage.Driver = "memory"
	}

	// 初始化 trace provider
	logger.InitTrace("sentinel-ledger", "ledger")
	// 启动主 span
	ctx, span := logger.StartSpan(context.Background(), "main", "main")
	defer span.End()

	// 创建 root logger 并注入 trace 上下文
	rootLogger := logger.NewLogger("ledger", cfg.Log.Dir)
	logger.SetLogLevel(cfg.Log.Level)
	tl := logger.WithTrace(ctx, rootLogger)

	// 启动配置热加载监听
	go config.WatchConfig(&cfg)

	core, err := ledger.New(cfg, tl)
	if err != nil {
		tl.Error("Failed to initialize ledger core", zap.Error(err))
		os.Exit(1)
	}

	if *logout {
		if err := core.Credentials().Clear(); err != nil {
			tl.Error("Failed to clear API key", zap.Error(err))
		}
		core.Stop(ctx)
		return
	}
	if *apiKey != "" {
		if err := core.Credentials().SetToken(*apiKey); err != nil {
			tl.Warn("API key not persisted, using it for this run only", zap.Error(err))
		}
	}

	core.Notifier().Add(notify.NotifierFunc(func(n notify.Notice) {
		fmt.Printf("%s [%s] %s\n", n.At.Format(time.TimeOnly), n.Level, n.Message)
	}))

	for _, addr := range *watch {
		if !utils.IsAddress(addr) {
			tl.Warn("Skip invalid watch address", zap.String("address", addr))
			continue
		}
		_ = core.Bus().Subscribe(utils.TopicSubscriptionID(addr))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tl.Info("Starting sentinel ledger...", zap.String("api", cfg.API.BaseURL))
	if err := core.Start(ctx); err != nil {
		tl.Error("Failed to start ledger core", zap.Error(err))
		os.Exit(1)
	}

	go printRiskFeed(ctx, core, tl)

	// 监听操作系统信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	tl.Info("Received shutdown signal, starting graceful shutdown...")
	cancel()

	// 关闭资源
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	core.Stop(stopCtx)

	tl.Info("Sentinel ledger stopped.")
}

// printRiskFeed 风险流每次更新时输出最新几条
func printRiskFeed(ctx context.Context, core *ledger.Core, tl *zap.Logger) {
	feed := core.RiskFeed()
	if feed == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-feed.Changes():
			if !ok {
				return
			}
		}

		st := feed.State()
		if st.IsError() {
			tl.Warn("Risk feed refresh failed", zap.Error(st.Err))
			continue
		}
		if !st.HasData {
			continue
		}
		items := st.Data
		if len(items) > 5 {
			items = items[:5]
		}
		for _, it := range items {
			fmt.Printf("  %-8s %5.1f  %s  %s\n", it.RiskLevel, it.RiskScore, utils.ShortAddress(it.TokenAddress), it.Message)
		}
	}
}
