package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 风险等级
const (
	RiskLow      = "LOW"
	RiskModerate = "MODERATE"
	RiskHigh     = "HIGH"
	RiskCritical = "CRITICAL"
)

// RiskLevelFromScore 按分数区间返回风险等级
func RiskLevelFromScore(score float64) string {
	switch {
	case score < 30:
		return RiskLow
	case score < 60:
		return RiskModerate
	case score < 80:
		return RiskHigh
	default:
		return RiskCritical
	}
}

type Token struct {
	Address        string    `json:"address"`
	Chain          string    `json:"chain"`
	Name           string    `json:"name,omitempty"`
	Symbol         string    `json:"symbol,omitempty"`
	Deployer       string    `json:"deployer"`
	RiskLevel      string    `json:"risk_level"`
	FinalScore     float64   `json:"final_score"`
	ContractScore  float64   `json:"contract_score"`
	LiquidityScore float64   `json:"liquidity_score"`
	OwnershipScore float64   `json:"ownership_score"`
	DeployerScore  float64   `json:"deployer_score"`
	DeployedAt     time.Time `json:"deployed_at"`
}

// LiquidityPool 金额统一用 decimal，避免浮点误差
type LiquidityPool struct {
	PairAddress  string          `json:"pair_address"`
	Dex          string          `json:"dex"`
	LiquidityUSD decimal.Decimal `json:"liquidity_usd"`
	Locked       bool            `json:"locked"`
	LockedUntil  *time.Time      `json:"locked_until,omitempty"`
}

type RiskHistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
}

type TokenDetail struct {
	Token
	Flags          []string           `json:"flags"`
	LiquidityPools []LiquidityPool    `json:"liquidity_pools"`
	RiskHistory    []RiskHistoryPoint `json:"risk_history"`
}

type TokenStats struct {
	Address      string          `json:"address"`
	Holders      int64           `json:"holders"`
	Transactions int64           `json:"transactions"`
	VolumeUSD    decimal.Decimal `json:"volume_usd"`
	LiquidityUSD decimal.Decimal `json:"liquidity_usd"`
	PriceUSD     decimal.Decimal `json:"price_usd"`
}

type Holder struct {
	Address    string          `json:"address"`
	Balance    decimal.Decimal `json:"balance"`
	Percentage float64         `json:"percentage"`
}

type Transaction struct {
	Hash        string          `json:"hash"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Type        string          `json:"type,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	ValueUSD    decimal.Decimal `json:"value_usd"`
	BlockNumber int64           `json:"block_number"`
	Timestamp   time.Time       `json:"timestamp"`
}

// TokenFilters 列表查询条件，零值字段不会发送
type TokenFilters struct {
	Chain     string `json:"chain,omitempty"`
	RiskLevel string `json:"risk_level,omitempty"`
	MinScore  int    `json:"min_score,omitempty"`
	SortBy    string `json:"sort_by,omitempty"`
	Skip      int    `json:"skip,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// TokenComparison tokens/compare 的返回
type TokenComparison struct {
	Tokens []TokenDetail `json:"tokens"`
}
