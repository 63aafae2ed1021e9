package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"sentinel-ledger/internal/ledger/config"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestQueryMetricsCount(t *testing.T) {
	m := QueryMetrics{}
	before := testutil.ToFloat64(QueryFetchErrors.WithLabelValues("tokens/list"))

	m.Hit("tokens/list")
	m.Miss("tokens/list")
	m.Fetched("tokens/list", 10*time.Millisecond, nil)
	m.Fetched("tokens/list", 10*time.Millisecond, errors.New("boom"))

	assert.Equal(t, before+1, testutil.ToFloat64(QueryFetchErrors.WithLabelValues("tokens/list")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(QueryFetches.WithLabelValues("tokens/list")), 2.0)
}

func TestRealtimeStateGauge(t *testing.T) {
	SetRealtimeState("connected", "disconnected", "connecting", "connected", "offline")
	assert.Equal(t, 1.0, testutil.ToFloat64(RealtimeState.WithLabelValues("connected")))
	assert.Equal(t, 0.0, testutil.ToFloat64(RealtimeState.WithLabelValues("offline")))
}

func TestDisabledMetricsServerIsNoop(t *testing.T) {
	s := NewMetricsServer(config.MonitorConfig{Enable: false, PrometheusAddr: ":0"}, zap.NewNop())
	assert.False(t, s.Enabled())
	s.Run()
	assert.NoError(t, s.Stop(context.Background()))
}
