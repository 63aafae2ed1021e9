package model

import "time"

type Wallet struct {
	Address           string     `json:"address"`
	Chain             string     `json:"chain"`
	TotalContracts    int        `json:"total_contracts"`
	SuspectedRugs     int        `json:"suspected_rugs"`
	DeployerRiskScore float64    `json:"deployer_risk_score"`
	FirstSeenAt       *time.Time `json:"first_seen_at,omitempty"`
	WalletAgeDays     int        `json:"wallet_age_days"`
	Flags             []string   `json:"flags"`
}

type WalletDetail struct {
	Wallet         Wallet  `json:"wallet"`
	DeployedTokens []Token `json:"deployed_tokens"`
}

type WalletStats struct {
	Address       string   `json:"address"`
	RiskScore     float64  `json:"risk_score"`
	TotalTokens   int      `json:"total_tokens"`
	SuspectedRugs int      `json:"suspected_rugs"`
	WalletAgeDays int      `json:"wallet_age_days"`
	Flags         []string `json:"flags"`
}

type GraphNode struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Label     string  `json:"label,omitempty"`
	RiskScore float64 `json:"risk_score,omitempty"`
}

type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// WalletGraph 部署者关系图
type WalletGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

type Deployer struct {
	Address        string  `json:"address"`
	TotalContracts int     `json:"total_contracts"`
	SuspectedRugs  int     `json:"suspected_rugs"`
	RiskScore      float64 `json:"risk_score"`
}
