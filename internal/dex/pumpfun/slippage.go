package pumpfun

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// WithSlippageBuy raises amount by basisPoints (1 bp = 0.01%).
func WithSlippageBuy(amount, basisPoints uint64) uint64 {
	return amount + mulDivBps(amount, basisPoints)
}

// WithSlippageSell lowers amount by basisPoints, never below zero.
func WithSlippageSell(amount, basisPoints uint64) uint64 {
	cut := mulDivBps(amount, basisPoints)
	if cut > amount {
		return 0
	}
	return amount - cut
}

func mulDivBps(amount, basisPoints uint64) uint64 {
	return clampUint64(new(big.Int).Div(new(big.Int).Mul(u(amount), u(basisPoints)), big.NewInt(10_000)))
}

// FormatPercent renders a percentage with two decimals, e.g. "12.34%".
func FormatPercent(v float64) string {
	return fmt.Sprintf("%s%%", decimal.NewFromFloat(v).StringFixed(2))
}
