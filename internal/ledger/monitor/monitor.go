package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"sentinel-ledger/internal/ledger/config"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type MetricsServer struct {
	cfg    config.MonitorConfig
	tl     *zap.Logger
	server *http.Server
}

func NewMetricsServer(cfg config.MonitorConfig, tl *zap.Logger) *MetricsServer {
	if !cfg.Enable || cfg.PrometheusAddr == "" {
		return &MetricsServer{cfg: cfg, tl: tl}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		cfg: cfg,
		tl:  tl,
		server: &http.Server{
			Addr:              cfg.PrometheusAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (s *MetricsServer) Enabled() bool {
	return s.server != nil
}

// Run 启动指标暴露服务
func (s *MetricsServer) Run() {
	if s.server == nil {
		return // disabled
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.tl.Error("metrics server stopped", zap.Error(err))
		}
	}()
	s.tl.Info("metrics server listening", zap.String("addr", s.cfg.PrometheusAddr))
}

// Stop 优雅关闭 HTTP 服务
func (s *MetricsServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil // disabled
	}

	s.server.SetKeepAlivesEnabled(false)
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}
