package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 推送事件名
const (
	EventNewToken        = "new_token"
	EventRiskAlert       = "risk_alert"
	EventLiquidityChange = "liquidity_change"
	EventHighRisk        = "high_risk"
	EventRugDetected     = "rug_detected"
	EventOwnershipChange = "ownership_change"
)

type NewTokenEvent struct {
	Address    string    `json:"address"`
	Chain      string    `json:"chain"`
	Deployer   string    `json:"deployer"`
	Symbol     string    `json:"symbol,omitempty"`
	RiskScore  float64   `json:"risk_score"`
	DeployedAt time.Time `json:"deployed_at"`
}

type RiskAlertEvent struct {
	TokenAddress string   `json:"token_address"`
	Chain        string   `json:"chain"`
	RiskScore    float64  `json:"risk_score"`
	RiskLevel    string   `json:"risk_level"`
	Reason       string   `json:"reason,omitempty"`
	Flags        []string `json:"flags,omitempty"`
}

type LiquidityChangeEvent struct {
	TokenAddress  string          `json:"token_address"`
	PairAddress   string          `json:"pair_address,omitempty"`
	Chain         string          `json:"chain"`
	PreviousUSD   decimal.Decimal `json:"previous_usd"`
	CurrentUSD    decimal.Decimal `json:"current_usd"`
	ChangePercent float64         `json:"change_percent"`
}
