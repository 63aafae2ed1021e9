package service

import (
	"context"

	"sentinel-ledger/internal/ledger/model"
	"sentinel-ledger/internal/ledger/query"
	"sentinel-ledger/pkg/utils"
)

func walletKey(resource, address string, kv ...string) query.Key {
	return query.NewKey(resource, append([]string{"address", utils.NormalizeAddress(address)}, kv...)...)
}

func (s *Service) Wallet(address string) query.Definition[*model.WalletDetail] {
	return query.Definition[*model.WalletDetail]{
		Key:      walletKey("wallets/detail", address),
		Disabled: !addressEnabled(address),
		Fetch: func(ctx context.Context) (*model.WalletDetail, error) {
			return s.api.Wallet(ctx, utils.ChecksumAddress(address))
		},
	}
}

func (s *Service) WalletTokens(address string) query.Definition[[]model.Token] {
	return query.Definition[[]model.Token]{
		Key:      walletKey("wallets/tokens", address),
		Disabled: !addressEnabled(address),
		Fetch: func(ctx context.Context) ([]model.Token, error) {
			return s.api.WalletTokens(ctx, utils.ChecksumAddress(address))
		},
	}
}

func (s *Service) WalletTransactions(address string, limit int) query.Definition[[]model.Transaction] {
	return query.Definition[[]model.Transaction]{
		Key:      walletKey("wallets/transactions", address, "limit", itoa(limit)),
		Disabled: !addressEnabled(address),
		Fetch: func(ctx context.Context) ([]model.Transaction, error) {
			return s.api.WalletTransactions(ctx, utils.ChecksumAddress(address), limit)
		},
	}
}

func (s *Service) WalletGraph(address string, depth int) query.Definition[*model.WalletGraph] {
	return query.Definition[*model.WalletGraph]{
		Key:      walletKey("wallets/graph", address, "depth", itoa(depth)),
		Disabled: !addressEnabled(address),
		Fetch: func(ctx context.Context) (*model.WalletGraph, error) {
			return s.api.WalletGraph(ctx, utils.ChecksumAddress(address), depth)
		},
	}
}
