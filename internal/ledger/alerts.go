package ledger

import (
	"fmt"

	"sentinel-ledger/internal/ledger/model"
	"sentinel-ledger/internal/ledger/monitor"
	"sentinel-ledger/internal/ledger/notify"
	"sentinel-ledger/internal/ledger/query"
	"sentinel-ledger/internal/ledger/realtime"
	"sentinel-ledger/internal/ledger/service"
	"sentinel-ledger/internal/ledger/settings"
	"sentinel-ledger/pkg/utils"

	"go.uber.org/zap"
)

// 新部署影响的列表缓存
var tokenListKeys = []query.Key{
	query.NewKey("tokens/list"),
	query.NewKey("tokens/infinite"),
	query.NewKey("tokens/recent"),
	query.NewKey("analytics/dashboard"),
	query.NewKey("analytics/deployment-trends"),
	query.NewKey("analytics/chain-stats"),
}

// AlertRouter 把推送事件转换为缓存失效与用户提示
type AlertRouter struct {
	settings *settings.Store
	query    *query.Client
	notifier notify.Notifier
	tl       *zap.Logger
}

func NewAlertRouter(store *settings.Store, qc *query.Client, notifier notify.Notifier, tl *zap.Logger) *AlertRouter {
	return &AlertRouter{settings: store, query: qc, notifier: notifier, tl: tl}
}

// Register 在 bus 上挂载全部处理函数，返回取消函数
func (r *AlertRouter) Register(bus *realtime.Bus) []func() {
	type reg struct {
		topic string
		id    realtime.ListenerID
	}
	regs := []reg{
		{model.EventNewToken, realtime.Handle(bus, model.EventNewToken, r.onNewToken)},
		{model.EventRiskAlert, realtime.Handle(bus, model.EventRiskAlert, r.riskHandler(model.EventRiskAlert))},
		{model.EventHighRisk, realtime.Handle(bus, model.EventHighRisk, r.riskHandler(model.EventHighRisk))},
		{model.EventRugDetected, realtime.Handle(bus, model.EventRugDetected, r.onRugDetected)},
		{model.EventLiquidityChange, realtime.Handle(bus, model.EventLiquidityChange, r.onLiquidityChange)},
		{model.EventOwnershipChange, realtime.Handle(bus, model.EventOwnershipChange, r.onOwnershipChange)},
	}

	cancels := make([]func(), 0, len(regs))
	for _, rg := range regs {
		rg := rg
		cancels = append(cancels, func() { bus.Off(rg.topic, rg.id) })
	}
	return cancels
}

func (r *AlertRouter) raise(kind string, level notify.Level, msg string) {
	monitor.AlertsRaised.WithLabelValues(kind).Inc()
	r.notifier.Notify(notify.Notice{Level: level, Code: kind, Message: msg})
}

func (r *AlertRouter) onNewToken(e model.NewTokenEvent) {
	monitor.RealtimeEvents.WithLabelValues(model.EventNewToken).Inc()
	for _, k := range tokenListKeys {
		r.query.Invalidate(k)
	}

	s := r.settings.Current()
	if !s.AlertsEnabled || !s.AlertTypes.NewDeployments {
		return
	}
	if s.DefaultChain != settings.ChainBoth && e.Chain != "" && e.Chain != s.DefaultChain {
		return
	}
	r.raise(model.EventNewToken, notify.LevelInfo,
		fmt.Sprintf("New token %s deployed on %s", utils.ShortAddress(e.Address), e.Chain))
}

// riskHandler risk_alert 与 high_risk 共用阈值判断
func (r *AlertRouter) riskHandler(topic string) func(model.RiskAlertEvent) {
	return func(e model.RiskAlertEvent) {
		monitor.RealtimeEvents.WithLabelValues(topic).Inc()
		r.onRiskAlert(e)
	}
}

func (r *AlertRouter) onRiskAlert(e model.RiskAlertEvent) {
	r.query.Invalidate(service.KeyRiskFeed)
	if e.TokenAddress != "" {
		r.query.Invalidate(service.TokenDetailKey(e.TokenAddress))
	}

	s := r.settings.Current()
	if !s.AlertsEnabled || !s.AlertTypes.HighRisk {
		return
	}
	if e.RiskScore < float64(s.RiskThreshold) {
		r.tl.Debug("risk alert below threshold",
			zap.String("token", e.TokenAddress),
			zap.Float64("score", e.RiskScore),
			zap.Int("threshold", s.RiskThreshold))
		return
	}
	level := e.RiskLevel
	if level == "" {
		level = model.RiskLevelFromScore(e.RiskScore)
	}
	r.raise(model.EventRiskAlert, notify.LevelWarning,
		fmt.Sprintf("%s risk token %s (score %.0f)", level, utils.ShortAddress(e.TokenAddress), e.RiskScore))
}

func (r *AlertRouter) onRugDetected(e model.RiskAlertEvent) {
	monitor.RealtimeEvents.WithLabelValues(model.EventRugDetected).Inc()
	r.query.Invalidate(service.KeyRiskFeed)
	if e.TokenAddress != "" {
		r.query.Invalidate(service.TokenDetailKey(e.TokenAddress))
	}

	s := r.settings.Current()
	if !s.AlertsEnabled || !s.AlertTypes.RugDetected {
		return
	}
	r.raise(model.EventRugDetected, notify.LevelError,
		fmt.Sprintf("Rug pull detected on %s", utils.ShortAddress(e.TokenAddress)))
}

func (r *AlertRouter) onLiquidityChange(e model.LiquidityChangeEvent) {
	monitor.RealtimeEvents.WithLabelValues(model.EventLiquidityChange).Inc()
	if e.TokenAddress == "" {
		return
	}
	r.query.Invalidate(service.TokenDetailKey(e.TokenAddress))
}

func (r *AlertRouter) onOwnershipChange(e model.RiskAlertEvent) {
	monitor.RealtimeEvents.WithLabelValues(model.EventOwnershipChange).Inc()
	if e.TokenAddress == "" {
		return
	}
	r.query.Invalidate(service.TokenDetailKey(e.TokenAddress))
}
