package evm_client

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	tokenHex    = "0x1111111111111111111111111111111111111111"
	deployerHex = "0x2222222222222222222222222222222222222222"
)

type fakeChain struct {
	code     []byte
	native   *big.Int
	decimals int64
	holding  *big.Int
	callErr  error
}

func (f *fakeChain) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return f.code, nil
}

func (f *fakeChain) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return f.native, nil
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	switch {
	case bytes.HasPrefix(msg.Data, decimalsSelector):
		return common.LeftPadBytes(big.NewInt(f.decimals).Bytes(), 32), nil
	case bytes.HasPrefix(msg.Data, balanceOfSelector):
		return common.LeftPadBytes(f.holding.Bytes(), 32), nil
	}
	return nil, errors.New("unexpected call")
}

func TestInspectContract(t *testing.T) {
	chain := &fakeChain{
		code:     []byte{0x60, 0x80},
		native:   new(big.Int).Mul(big.NewInt(3), big.NewInt(1e18)),
		decimals: 6,
		holding:  big.NewInt(2_500_000),
	}
	info, err := NewInspector(chain, zap.NewNop()).Inspect(context.Background(), tokenHex, deployerHex)
	require.NoError(t, err)

	assert.True(t, info.IsContract)
	assert.Equal(t, 2, info.CodeSize)
	assert.Equal(t, uint8(6), info.Decimals)
	assert.Equal(t, "3", info.DeployerNative.String())
	assert.Equal(t, "2.5", info.DeployerHolding.String())
}

func TestInspectNotAContract(t *testing.T) {
	chain := &fakeChain{native: big.NewInt(0), callErr: errors.New("should not be called")}
	info, err := NewInspector(chain, zap.NewNop()).Inspect(context.Background(), tokenHex, deployerHex)
	require.NoError(t, err)
	assert.False(t, info.IsContract)
	assert.True(t, info.DeployerHolding.IsZero())
}

func TestInspectPartialFailure(t *testing.T) {
	chain := &fakeChain{code: []byte{0x01}, native: big.NewInt(1e18), callErr: errors.New("execution reverted")}
	info, err := NewInspector(chain, zap.NewNop()).Inspect(context.Background(), tokenHex, deployerHex)
	require.Error(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "1", info.DeployerNative.String())
}

func TestInspectRejectsBadAddress(t *testing.T) {
	_, err := NewInspector(&fakeChain{}, zap.NewNop()).Inspect(context.Background(), "0x123", deployerHex)
	assert.Error(t, err)
}

func TestBalanceOfCallData(t *testing.T) {
	data := BalanceOfCallData(common.HexToAddress(deployerHex))
	require.Len(t, data, 36)
	assert.Equal(t, balanceOfSelector, data[:4])

	v, err := ParseUint256(data[4:])
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).SetBytes(common.HexToAddress(deployerHex).Bytes()), v)

	_, err = ParseUint256([]byte{1, 2})
	assert.Error(t, err)
}
