package utils

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ChecksumAddress 将 EVM 地址转换为 EIP-55 Checksum 格式，非法地址原样返回
func ChecksumAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if !IsAddress(addr) {
		return addr
	}
	return common.HexToAddress(addr).Hex()
}

// NormalizeAddress 统一小写，用作缓存 key 与订阅 id
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// ShortAddress 0x1234...abcd
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// AdjustDecimals 调整精度显示
func AdjustDecimals(value *big.Int, decimals uint8) decimal.Decimal {
	decimalValue := decimal.NewFromBigInt(value, 0)
	divisor := decimal.New(1, int32(decimals))
	return decimalValue.Div(divisor)
}

// FormatUSD 按量级缩写：$1.23M、$4.5K
func FormatUSD(v decimal.Decimal) string {
	abs := v.Abs()
	sign := ""
	if v.IsNegative() {
		sign = "-"
	}
	switch {
	case abs.GreaterThanOrEqual(decimal.NewFromInt(1_000_000_000)):
		return sign + "$" + abs.Div(decimal.NewFromInt(1_000_000_000)).StringFixed(2) + "B"
	case abs.GreaterThanOrEqual(decimal.NewFromInt(1_000_000)):
		return sign + "$" + abs.Div(decimal.NewFromInt(1_000_000)).StringFixed(2) + "M"
	case abs.GreaterThanOrEqual(decimal.NewFromInt(1_000)):
		return sign + "$" + abs.Div(decimal.NewFromInt(1_000)).StringFixed(2) + "K"
	default:
		return sign + "$" + abs.StringFixed(2)
	}
}
