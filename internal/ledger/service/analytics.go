package service

import (
	"context"
	"time"

	"sentinel-ledger/internal/ledger/model"
	"sentinel-ledger/internal/ledger/query"
)

// RiskFeed interval <= 0 时使用 30 秒
func (s *Service) RiskFeed(limit int, interval time.Duration) query.Definition[[]model.RiskFeedItem] {
	if interval <= 0 {
		interval = DefaultRiskFeedInterval
	}
	return query.Definition[[]model.RiskFeedItem]{
		Key:             KeyRiskFeed.With("limit", itoa(limit)),
		RefetchInterval: interval,
		Fetch: func(ctx context.Context) ([]model.RiskFeedItem, error) {
			return s.api.RiskFeed(ctx, limit)
		},
	}
}

func (s *Service) RiskDistribution() query.Definition[model.RiskDistribution] {
	return query.Definition[model.RiskDistribution]{
		Key:   query.NewKey("analytics/risk-distribution"),
		Fetch: s.api.RiskDistribution,
	}
}

func (s *Service) RiskTrends(timeframe string) query.Definition[[]model.RiskTrendPoint] {
	return query.Definition[[]model.RiskTrendPoint]{
		Key: query.NewKey("analytics/risk-trends", "timeframe", timeframe),
		Fetch: func(ctx context.Context) ([]model.RiskTrendPoint, error) {
			return s.api.RiskTrends(ctx, timeframe)
		},
	}
}

func (s *Service) TopRisks(limit int) query.Definition[[]model.Token] {
	return query.Definition[[]model.Token]{
		Key: query.NewKey("analytics/top-risks", "limit", itoa(limit)),
		Fetch: func(ctx context.Context) ([]model.Token, error) {
			return s.api.TopRisks(ctx, limit)
		},
	}
}

func (s *Service) DashboardStats() query.Definition[*model.DashboardStats] {
	return query.Definition[*model.DashboardStats]{
		Key:   query.NewKey("analytics/dashboard"),
		Fetch: s.api.DashboardStats,
	}
}

func (s *Service) DeploymentTrends(days int) query.Definition[[]model.DeploymentTrendPoint] {
	return query.Definition[[]model.DeploymentTrendPoint]{
		Key: query.NewKey("analytics/deployment-trends", "days", itoa(days)),
		Fetch: func(ctx context.Context) ([]model.DeploymentTrendPoint, error) {
			return s.api.DeploymentTrends(ctx, days)
		},
	}
}

func (s *Service) ChainStats() query.Definition[[]model.ChainStats] {
	return query.Definition[[]model.ChainStats]{
		Key:   query.NewKey("analytics/chain-stats"),
		Fetch: s.api.ChainStats,
	}
}
