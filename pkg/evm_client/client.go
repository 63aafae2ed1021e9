package evm_client

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

// Dial 带超时连接 RPC 节点
func Dial(ctx context.Context, rawurl string, timeout time.Duration) (*ethclient.Client, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, rawurl)
	if err != nil {
		return nil, fmt.Errorf("dial evm rpc %s: %w", rawurl, err)
	}
	return client, nil
}
