package utils

import (
	"regexp"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

// IsAddress 0x 开头的 40 位十六进制
func IsAddress(addr string) bool {
	return len(addr) == 42 && common.IsHexAddress(addr)
}

// IsTxHash 0x 开头的 64 位十六进制
func IsTxHash(hash string) bool {
	if len(hash) != 66 {
		return false
	}
	b, err := hexutil.Decode(hash)
	return err == nil && len(b) == common.HashLength
}

func IsSymbol(symbol string) bool {
	return symbolPattern.MatchString(symbol)
}

func IsValidRiskScore(score float64) bool {
	return score >= 0 && score <= 100
}

func IsValidChain(chain string) bool {
	switch chain {
	case "base", "ethereum", "both":
		return true
	}
	return false
}

func IsValidTimeframe(tf string) bool {
	switch tf {
	case "24h", "7d", "30d", "90d", "all":
		return true
	}
	return false
}
