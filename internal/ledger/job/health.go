package job

import (
	"context"
	"fmt"
	"sync/atomic"

	"sentinel-ledger/internal/ledger/model"
	"sentinel-ledger/internal/ledger/monitor"
	"sentinel-ledger/internal/ledger/notify"

	"go.uber.org/zap"
)

// HealthProber 由 api.Client 实现
type HealthProber interface {
	Health(ctx context.Context) (*model.Health, error)
}

// HealthCheck 定时探测后端，状态翻转时提示一次
type HealthCheck struct {
	api      HealthProber
	notifier notify.Notifier
	tl       *zap.Logger
	up       atomic.Int32 // 0 未知，1 正常，2 异常
}

func NewHealthCheck(api HealthProber, notifier notify.Notifier, logger *zap.Logger) *HealthCheck {
	if notifier == nil {
		notifier = notify.Nop
	}
	return &HealthCheck{api: api, notifier: notifier, tl: logger}
}

func (j *HealthCheck) Up() bool {
	return j.up.Load() == 1
}

func (j *HealthCheck) Run(ctx context.Context) error {
	h, err := j.api.Health(ctx)
	if err == nil && h.Status != "" && h.Status != "ok" && h.Status != "healthy" {
		err = fmt.Errorf("backend reports status %q", h.Status)
	}

	if err != nil {
		monitor.BackendUp.Set(0)
		if j.up.Swap(2) != 2 {
			j.notifier.Notify(notify.Notice{
				Level:   notify.LevelError,
				Code:    "BACKEND_DOWN",
				Message: "Backend is unreachable",
			})
		}
		return err
	}

	monitor.BackendUp.Set(1)
	if j.up.Swap(1) == 2 {
		j.notifier.Notify(notify.Notice{
			Level:   notify.LevelSuccess,
			Code:    "BACKEND_UP",
			Message: "Backend is reachable again",
		})
	}
	j.tl.Debug("backend healthy", zap.String("status", h.Status), zap.String("version", h.Version))
	return nil
}
