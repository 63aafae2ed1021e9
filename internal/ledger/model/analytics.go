package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type DashboardStats struct {
	TotalTokens     int64           `json:"total_tokens"`
	HighRiskTokens  int64           `json:"high_risk_tokens"`
	RugsDetected    int64           `json:"rugs_detected"`
	TokensToday     int64           `json:"tokens_today"`
	AverageRisk     float64         `json:"average_risk"`
	TotalLiquidity  decimal.Decimal `json:"total_liquidity_usd"`
	ActiveDeployers int64           `json:"active_deployers"`
	MonitoredChains []string        `json:"monitored_chains,omitempty"`
}

// RiskDistribution 风险等级 -> 数量
type RiskDistribution map[string]int64

type RiskTrendPoint struct {
	Date        string  `json:"date"`
	AverageRisk float64 `json:"average_risk"`
	HighRisk    int64   `json:"high_risk"`
	Total       int64   `json:"total"`
}

type DeploymentTrendPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
	Chain string `json:"chain,omitempty"`
}

type ChainStats struct {
	Chain            string           `json:"chain"`
	TotalTokens      int64            `json:"total_tokens"`
	AverageRisk      float64          `json:"average_risk"`
	RiskDistribution RiskDistribution `json:"risk_distribution"`
}

// RiskFeedItem 风险事件流中的一条
type RiskFeedItem struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	TokenAddress string    `json:"token_address"`
	Chain        string    `json:"chain"`
	RiskScore    float64   `json:"risk_score"`
	RiskLevel    string    `json:"risk_level"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
}

type AnalyticsStats struct {
	TotalTokens   int64   `json:"total_tokens"`
	TotalWallets  int64   `json:"total_wallets"`
	AverageRisk   float64 `json:"average_risk"`
	AlertsLast24h int64   `json:"alerts_last_24h"`
}

type Health struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
