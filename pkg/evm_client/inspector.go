package evm_client

import (
	"context"
	"fmt"
	"math/big"

	"sentinel-ledger/pkg/utils"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// ERC20 方法选择器
var (
	balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}
	decimalsSelector  = []byte{0x31, 0x3c, 0xe5, 0x67}
)

// Caller ethclient.Client 的子集
type Caller interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ContractInfo 后端风险数据之外的链上核验结果
type ContractInfo struct {
	Token           common.Address
	IsContract      bool
	CodeSize        int
	Decimals        uint8
	Deployer        common.Address
	DeployerNative  decimal.Decimal // 原生币，18 位精度
	DeployerHolding decimal.Decimal // 部署者持有的该代币
}

type Inspector struct {
	client Caller
	tl     *zap.Logger
}

func NewInspector(client Caller, tl *zap.Logger) *Inspector {
	return &Inspector{client: client, tl: tl}
}

// Inspect 并发读取合约代码、部署者原生余额与代币持仓；代币不是合约时不查询持仓
func (i *Inspector) Inspect(ctx context.Context, token, deployer string) (*ContractInfo, error) {
	if !utils.IsAddress(token) {
		return nil, fmt.Errorf("invalid token address: %s", token)
	}
	info := &ContractInfo{Token: common.HexToAddress(token)}

	code, err := i.client.CodeAt(ctx, info.Token, nil)
	if err != nil {
		return nil, fmt.Errorf("get code for %s: %w", token, err)
	}
	info.CodeSize = len(code)
	info.IsContract = len(code) > 0

	if !utils.IsAddress(deployer) {
		return info, nil
	}
	info.Deployer = common.HexToAddress(deployer)

	p := pool.New().WithErrors()
	p.Go(func() error {
		bal, err := i.client.BalanceAt(ctx, info.Deployer, nil)
		if err != nil {
			return fmt.Errorf("get native balance: %w", err)
		}
		info.DeployerNative = utils.AdjustDecimals(bal, 18)
		return nil
	})

	var (
		decimals uint8
		holding  *big.Int
	)
	if info.IsContract {
		p.Go(func() error {
			d, err := i.call(ctx, info.Token, decimalsSelector)
			if err != nil {
				return fmt.Errorf("call decimals: %w", err)
			}
			decimals = uint8(d.Uint64())
			return nil
		})
		p.Go(func() error {
			b, err := i.call(ctx, info.Token, BalanceOfCallData(info.Deployer))
			if err != nil {
				return fmt.Errorf("call balanceOf: %w", err)
			}
			holding = b
			return nil
		})
	}

	// 部分失败时返回已取得的结果
	err = p.Wait()
	if holding != nil {
		info.Decimals = decimals
		info.DeployerHolding = utils.AdjustDecimals(holding, decimals)
	}
	if err != nil {
		i.tl.Warn("onchain inspect incomplete", zap.String("token", token), zap.Error(err))
	}
	return info, err
}

func (i *Inspector) call(ctx context.Context, to common.Address, data []byte) (*big.Int, error) {
	out, err := i.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return ParseUint256(out)
}

// BalanceOfCallData balanceOf(address) 调用数据
func BalanceOfCallData(holder common.Address) []byte {
	data := make([]byte, 0, 4+32)
	data = append(data, balanceOfSelector...)
	return append(data, common.LeftPadBytes(holder.Bytes(), 32)...)
}

// ParseUint256 取返回值最后 32 字节
func ParseUint256(data []byte) (*big.Int, error) {
	if len(data) < 32 {
		return nil, fmt.Errorf("invalid uint256 data length: %d", len(data))
	}
	return new(big.Int).SetBytes(data[len(data)-32:]), nil
}
