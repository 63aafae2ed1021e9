package api

import (
	"context"

	"sentinel-ledger/internal/ledger/model"
)

func (c *Client) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	return getOne[model.DashboardStats](ctx, c, "/analytics/dashboard", nil)
}

func (c *Client) RiskDistribution(ctx context.Context) (model.RiskDistribution, error) {
	out, err := getOne[model.RiskDistribution](ctx, c, "/analytics/risk-distribution", nil)
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// RiskTrends timeframe 取值 24h/7d/30d/90d/all，空值为 7d
func (c *Client) RiskTrends(ctx context.Context, timeframe string) ([]model.RiskTrendPoint, error) {
	if timeframe == "" {
		timeframe = "7d"
	}
	return getList[model.RiskTrendPoint](ctx, c, "/analytics/risk-trends", map[string]string{"timeframe": timeframe})
}

func (c *Client) DeploymentTrends(ctx context.Context, days int) ([]model.DeploymentTrendPoint, error) {
	if days <= 0 {
		days = 30
	}
	return getList[model.DeploymentTrendPoint](ctx, c, "/analytics/deployment-trends", map[string]string{"days": itoa(days)})
}

func (c *Client) TopRisks(ctx context.Context, limit int) ([]model.Token, error) {
	return getList[model.Token](ctx, c, "/analytics/top-risks", map[string]string{"limit": itoa(clampLimit(limit, 10))})
}

func (c *Client) ChainStats(ctx context.Context) ([]model.ChainStats, error) {
	return getList[model.ChainStats](ctx, c, "/analytics/chain-stats", nil)
}

// RiskFeed 默认 50 条
func (c *Client) RiskFeed(ctx context.Context, limit int) ([]model.RiskFeedItem, error) {
	return getList[model.RiskFeedItem](ctx, c, "/analytics/risk-feed", map[string]string{"limit": itoa(clampLimit(limit, 50))})
}

func (c *Client) AnalyticsStats(ctx context.Context) (*model.AnalyticsStats, error) {
	return getOne[model.AnalyticsStats](ctx, c, "/analytics/stats", nil)
}

// Health GET /health，用于定时探活
func (c *Client) Health(ctx context.Context) (*model.Health, error) {
	return getOne[model.Health](ctx, c, "/health", nil)
}
