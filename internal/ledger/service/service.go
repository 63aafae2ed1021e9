package service

import (
	"strconv"
	"time"

	"sentinel-ledger/internal/ledger/api"
	"sentinel-ledger/internal/ledger/query"
	"sentinel-ledger/pkg/utils"
)

// 缓存 key 前缀，失效时按前缀匹配
var (
	KeyTokens    = query.NewKey("tokens")
	KeyWallets   = query.NewKey("wallets")
	KeyAnalytics = query.NewKey("analytics")
	KeyRiskFeed  = query.NewKey("analytics/risk-feed")
)

// DefaultRiskFeedInterval 风险流默认 30 秒轮询
const DefaultRiskFeedInterval = 30 * time.Second

// Service 把 REST 资源包装成可缓存、可订阅的查询定义
type Service struct {
	api   *api.Client
	query *query.Client
}

func New(apiClient *api.Client, queryClient *query.Client) *Service {
	return &Service{api: apiClient, query: queryClient}
}

func (s *Service) API() *api.Client {
	return s.api
}

func (s *Service) Query() *query.Client {
	return s.query
}

// TokenDetailKey liquidity_change 等事件按地址失效
func TokenDetailKey(address string) query.Key {
	return query.NewKey("tokens/detail", "address", utils.NormalizeAddress(address))
}

// addressEnabled 地址为空或非法时禁用查询
func addressEnabled(address string) bool {
	return address != "" && utils.IsAddress(address)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
