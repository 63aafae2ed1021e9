package api

import (
	"context"

	"sentinel-ledger/internal/ledger/model"
)

func (c *Client) Wallet(ctx context.Context, address string) (*model.WalletDetail, error) {
	return getOne[model.WalletDetail](ctx, c, "/wallets/"+segment(address), nil)
}

func (c *Client) WalletTokens(ctx context.Context, address string) ([]model.Token, error) {
	return getList[model.Token](ctx, c, "/wallets/"+segment(address)+"/tokens", nil)
}

func (c *Client) WalletTransactions(ctx context.Context, address string, limit int) ([]model.Transaction, error) {
	return getList[model.Transaction](ctx, c, "/wallets/"+segment(address)+"/transactions",
		map[string]string{"limit": itoa(clampLimit(limit, 10))})
}

func (c *Client) WalletStats(ctx context.Context, address string) (*model.WalletStats, error) {
	return getOne[model.WalletStats](ctx, c, "/wallets/"+segment(address)+"/stats", nil)
}

// WalletGraph depth 默认 2
func (c *Client) WalletGraph(ctx context.Context, address string, depth int) (*model.WalletGraph, error) {
	if depth <= 0 {
		depth = 2
	}
	return getOne[model.WalletGraph](ctx, c, "/wallets/"+segment(address)+"/graph",
		map[string]string{"depth": itoa(depth)})
}

func (c *Client) SearchWallets(ctx context.Context, query string) ([]model.Wallet, error) {
	return getList[model.Wallet](ctx, c, "/wallets/search", map[string]string{"q": query})
}

func (c *Client) TopDeployers(ctx context.Context, limit int) ([]model.Deployer, error) {
	return getList[model.Deployer](ctx, c, "/wallets/top-deployers", map[string]string{"limit": itoa(clampLimit(limit, 10))})
}
