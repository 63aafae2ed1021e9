package monitor

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// APIRequests HTTP 数据客户端
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_api_requests_total",
			Help: "Total number of REST requests by method and status code (0 = no response).",
		},
		[]string{"method", "status"},
	)
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_api_request_duration_seconds",
			Help:    "Latency of REST requests.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
		[]string{"method"},
	)

	// QueryCacheHits 查询缓存
	QueryCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_query_cache_hits_total",
			Help: "Reads served from a fresh cache entry.",
		},
		[]string{"resource"},
	)
	QueryCacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_query_cache_misses_total",
			Help: "Reads that required a fetch.",
		},
		[]string{"resource"},
	)
	QueryFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_query_fetches_total",
			Help: "Fetches executed by the query cache.",
		},
		[]string{"resource"},
	)
	QueryFetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_query_fetch_errors_total",
			Help: "Fetches that returned an error.",
		},
		[]string{"resource"},
	)
	QueryFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_query_fetch_duration_seconds",
			Help:    "Time taken by a query fetch.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"resource"},
	)
	QueryCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_query_cache_entries",
			Help: "Number of entries currently held by the query cache.",
		},
	)

	// RealtimeEvents 推送
	RealtimeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_realtime_events_total",
			Help: "Realtime events received by topic.",
		},
		[]string{"topic"},
	)
	RealtimeState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledger_realtime_state",
			Help: "1 for the current realtime connection state, 0 otherwise.",
		},
		[]string{"state"},
	)

	// AlertsRaised 告警
	AlertsRaised = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_alerts_raised_total",
			Help: "Alerts surfaced to the user by type.",
		},
		[]string{"type"},
	)
	BackendUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_backend_up",
			Help: "1 when the last health check succeeded.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		// REST 指标
		APIRequests,
		APIRequestDuration,

		// 查询缓存指标
		QueryCacheHits,
		QueryCacheMisses,
		QueryFetches,
		QueryFetchErrors,
		QueryFetchDuration,
		QueryCacheEntries,

		// 推送与告警
		RealtimeEvents,
		RealtimeState,
		AlertsRaised,
		BackendUp,
	)
}

// ObserveAPI 作为 httpclient 的 Observe 回调
func ObserveAPI(method string, status int, elapsed time.Duration) {
	APIRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// SetRealtimeState 只有当前状态为 1
func SetRealtimeState(current string, all ...string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		RealtimeState.WithLabelValues(s).Set(v)
	}
}

// QueryMetrics 实现 query.Metrics
type QueryMetrics struct{}

func (QueryMetrics) Hit(resource string) {
	QueryCacheHits.WithLabelValues(resource).Inc()
}

func (QueryMetrics) Miss(resource string) {
	QueryCacheMisses.WithLabelValues(resource).Inc()
}

func (QueryMetrics) Fetched(resource string, elapsed time.Duration, err error) {
	QueryFetches.WithLabelValues(resource).Inc()
	QueryFetchDuration.WithLabelValues(resource).Observe(elapsed.Seconds())
	if err != nil {
		QueryFetchErrors.WithLabelValues(resource).Inc()
	}
}
