package service

import (
	"context"

	"sentinel-ledger/internal/ledger/api"
	"sentinel-ledger/internal/ledger/model"
	"sentinel-ledger/internal/ledger/query"
	"sentinel-ledger/pkg/utils"
)

func filterKey(resource string, f model.TokenFilters) query.Key {
	return query.NewKey(resource,
		"chain", f.Chain,
		"risk_level", f.RiskLevel,
		"min_score", itoa(f.MinScore),
		"sort_by", f.SortBy,
		"skip", itoa(f.Skip),
		"limit", itoa(f.Limit),
	)
}

func (s *Service) Tokens(f model.TokenFilters) query.Definition[[]model.Token] {
	return query.Definition[[]model.Token]{
		Key: filterKey("tokens/list", f),
		Fetch: func(ctx context.Context) ([]model.Token, error) {
			return s.api.Tokens(ctx, f)
		},
	}
}

// InfiniteTokens 每页 20 条，按 skip 翻页
func (s *Service) InfiniteTokens(f model.TokenFilters) *query.Infinite[model.Token] {
	f.Skip = 0
	f.Limit = api.DefaultPageSize
	return query.NewInfinite(s.query, filterKey("tokens/infinite", f), api.DefaultPageSize,
		func(ctx context.Context, offset, limit int) ([]model.Token, error) {
			page := f
			page.Skip = offset
			page.Limit = limit
			return s.api.Tokens(ctx, page)
		})
}

func (s *Service) Token(address string) query.Definition[*model.TokenDetail] {
	return query.Definition[*model.TokenDetail]{
		Key:      TokenDetailKey(address),
		Disabled: !addressEnabled(address),
		Fetch: func(ctx context.Context) (*model.TokenDetail, error) {
			return s.api.Token(ctx, utils.ChecksumAddress(address))
		},
	}
}

func (s *Service) RecentTokens(limit int) query.Definition[[]model.Token] {
	return query.Definition[[]model.Token]{
		Key: query.NewKey("tokens/recent", "limit", itoa(limit)),
		Fetch: func(ctx context.Context) ([]model.Token, error) {
			return s.api.RecentTokens(ctx, limit)
		},
	}
}

func (s *Service) HighRiskTokens(limit int) query.Definition[[]model.Token] {
	return query.Definition[[]model.Token]{
		Key: query.NewKey("tokens/high-risk", "limit", itoa(limit)),
		Fetch: func(ctx context.Context) ([]model.Token, error) {
			return s.api.HighRiskTokens(ctx, limit)
		},
	}
}

// SearchTokens 空查询不发请求
func (s *Service) SearchTokens(q string) query.Definition[[]model.Token] {
	return query.Definition[[]model.Token]{
		Key:      query.NewKey("tokens/search", "q", q),
		Disabled: q == "",
		Fetch: func(ctx context.Context) ([]model.Token, error) {
			return s.api.SearchTokens(ctx, q)
		},
	}
}
