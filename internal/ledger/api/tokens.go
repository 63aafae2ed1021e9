package api

import (
	"context"
	"errors"

	"sentinel-ledger/internal/ledger/model"
)

// Tokens GET /tokens
func (c *Client) Tokens(ctx context.Context, f model.TokenFilters) ([]model.Token, error) {
	return getList[model.Token](ctx, c, "/tokens", filterParams(f))
}

// Token GET /tokens/{address}
func (c *Client) Token(ctx context.Context, address string) (*model.TokenDetail, error) {
	return getOne[model.TokenDetail](ctx, c, "/tokens/"+segment(address), nil)
}

func (c *Client) RecentTokens(ctx context.Context, limit int) ([]model.Token, error) {
	return getList[model.Token](ctx, c, "/tokens/recent", map[string]string{"limit": itoa(clampLimit(limit, 10))})
}

func (c *Client) HighRiskTokens(ctx context.Context, limit int) ([]model.Token, error) {
	return getList[model.Token](ctx, c, "/tokens/high-risk", map[string]string{"limit": itoa(clampLimit(limit, 5))})
}

func (c *Client) SearchTokens(ctx context.Context, query string) ([]model.Token, error) {
	return getList[model.Token](ctx, c, "/tokens/search", map[string]string{"q": query})
}

func (c *Client) TokenStats(ctx context.Context, address string) (*model.TokenStats, error) {
	return getOne[model.TokenStats](ctx, c, "/tokens/"+segment(address)+"/stats", nil)
}

func (c *Client) TokenTransactions(ctx context.Context, address string, limit int) ([]model.Transaction, error) {
	return getList[model.Transaction](ctx, c, "/tokens/"+segment(address)+"/transactions",
		map[string]string{"limit": itoa(clampLimit(limit, DefaultPageSize))})
}

func (c *Client) TokenHolders(ctx context.Context, address string, limit int) ([]model.Holder, error) {
	return getList[model.Holder](ctx, c, "/tokens/"+segment(address)+"/holders",
		map[string]string{"limit": itoa(clampLimit(limit, 10))})
}

// CompareTokens POST /tokens/compare
func (c *Client) CompareTokens(ctx context.Context, addresses []string) ([]model.TokenDetail, error) {
	if len(addresses) == 0 {
		return nil, errors.New("compare requires at least one address")
	}
	return postList[model.TokenDetail](ctx, c, "/tokens/compare", map[string]any{"addresses": addresses})
}

// filterParams 后端按 skip/limit 偏移分页，不接受 page
func filterParams(f model.TokenFilters) map[string]string {
	params := make(map[string]string)
	if f.Chain != "" {
		params["chain"] = f.Chain
	}
	if f.RiskLevel != "" {
		params["risk_level"] = f.RiskLevel
	}
	if f.MinScore > 0 {
		params["min_score"] = itoa(f.MinScore)
	}
	if f.SortBy != "" {
		params["sort_by"] = f.SortBy
	}
	if f.Skip > 0 {
		params["skip"] = itoa(f.Skip)
	}
	params["limit"] = itoa(clampLimit(f.Limit, DefaultPageSize))
	return params
}
