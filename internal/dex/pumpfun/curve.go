// ==============================================
// File: internal/dex/pumpfun/curve.go
// ==============================================
package pumpfun

import (
	"errors"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var ErrCurveComplete = errors.New("bonding curve is complete")

// BondingCurve: состояние аккаунта bonding curve токена.
type BondingCurve struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

// GlobalAccount represents the structure of the PumpFun global account data
type GlobalAccount struct {
	Initialized                 bool
	Authority                   solana.PublicKey
	FeeRecipient                solana.PublicKey
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	FeeBasisPoints              uint64
}

// DecodeBondingCurve parses raw account data (8-byte Anchor discriminator first).
func DecodeBondingCurve(data []byte) (*BondingCurve, error) {
	dec := bin.NewBorshDecoder(data)
	if err := dec.SkipBytes(8); err != nil {
		return nil, fmt.Errorf("bonding curve discriminator: %w", err)
	}

	var bc BondingCurve
	for _, field := range []*uint64{
		&bc.VirtualTokenReserves,
		&bc.VirtualSolReserves,
		&bc.RealTokenReserves,
		&bc.RealSolReserves,
		&bc.TokenTotalSupply,
	} {
		v, err := dec.ReadUint64(bin.LE)
		if err != nil {
			return nil, fmt.Errorf("bonding curve data too short: %w", err)
		}
		*field = v
	}
	complete, err := dec.ReadBool()
	if err != nil {
		return nil, fmt.Errorf("bonding curve data too short: %w", err)
	}
	bc.Complete = complete
	return &bc, nil
}

// DecodeGlobalAccount parses the Pump.fun global state account.
func DecodeGlobalAccount(data []byte) (*GlobalAccount, error) {
	dec := bin.NewBorshDecoder(data)
	if err := dec.SkipBytes(8); err != nil {
		return nil, fmt.Errorf("global account discriminator: %w", err)
	}

	var g GlobalAccount
	var err error
	if g.Initialized, err = dec.ReadBool(); err != nil {
		return nil, fmt.Errorf("global account data too short: %w", err)
	}
	for _, key := range []*solana.PublicKey{&g.Authority, &g.FeeRecipient} {
		raw, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return nil, fmt.Errorf("global account data too short: %w", err)
		}
		*key = solana.PublicKeyFromBytes(raw)
	}
	for _, field := range []*uint64{
		&g.InitialVirtualTokenReserves,
		&g.InitialVirtualSolReserves,
		&g.InitialRealTokenReserves,
		&g.TokenTotalSupply,
		&g.FeeBasisPoints,
	} {
		v, err := dec.ReadUint64(bin.LE)
		if err != nil {
			return nil, fmt.Errorf("global account data too short: %w", err)
		}
		*field = v
	}
	return &g, nil
}

func u(v uint64) *big.Int { return new(big.Int).SetUint64(v) }

// clampUint64 saturates results that do not fit.
func clampUint64(v *big.Int) uint64 {
	if v.Sign() <= 0 {
		return 0
	}
	if !v.IsUint64() {
		return ^uint64(0)
	}
	return v.Uint64()
}

// constantProductOut returns tokens received for lamports on reserves (vSol, vToken),
// capped at realToken.
func constantProductOut(vSol, vToken, realToken, lamports uint64) uint64 {
	if lamports == 0 {
		return 0
	}
	k := new(big.Int).Mul(u(vSol), u(vToken))
	r := k.Div(k, new(big.Int).Add(u(vSol), u(lamports)))
	r.Add(r, big.NewInt(1))
	out := new(big.Int).Sub(u(vToken), r)
	if out.Sign() < 0 {
		return 0
	}
	if out.Cmp(u(realToken)) > 0 {
		return realToken
	}
	return out.Uint64()
}

// BuyQuote возвращает количество токенов, получаемых за lamports SOL.
func (bc *BondingCurve) BuyQuote(lamports uint64) (uint64, error) {
	if bc.Complete {
		return 0, ErrCurveComplete
	}
	return constantProductOut(bc.VirtualSolReserves, bc.VirtualTokenReserves, bc.RealTokenReserves, lamports), nil
}

// BuyCost returns the lamports needed to buy tokens now, including the protocol fee.
func (bc *BondingCurve) BuyCost(tokens, feeBasisPoints uint64) (uint64, error) {
	if bc.Complete {
		return 0, ErrCurveComplete
	}
	if tokens == 0 {
		return 0, nil
	}
	if tokens >= bc.VirtualTokenReserves {
		return 0, fmt.Errorf("requested %d tokens exceeds virtual reserves %d", tokens, bc.VirtualTokenReserves)
	}
	cost := new(big.Int).Mul(u(tokens), u(bc.VirtualSolReserves))
	cost.Div(cost, new(big.Int).Sub(u(bc.VirtualTokenReserves), u(tokens)))
	cost.Add(cost, big.NewInt(1))
	fee := new(big.Int).Mul(cost, u(feeBasisPoints))
	fee.Div(fee, big.NewInt(10_000))
	return clampUint64(cost.Add(cost, fee)), nil
}

// SellQuote returns lamports received for selling tokens, net of the protocol fee.
func (bc *BondingCurve) SellQuote(tokens, feeBasisPoints uint64) (uint64, error) {
	if bc.Complete {
		return 0, ErrCurveComplete
	}
	if tokens == 0 {
		return 0, nil
	}
	n := new(big.Int).Mul(u(tokens), u(bc.VirtualSolReserves))
	n.Div(n, new(big.Int).Add(u(bc.VirtualTokenReserves), u(tokens)))
	fee := new(big.Int).Mul(n, u(feeBasisPoints))
	fee.Div(fee, big.NewInt(10_000))
	return clampUint64(n.Sub(n, fee)), nil
}

// Percent: прогресс кривой в процентах (0 у нового токена, 100 перед миграцией).
func (bc *BondingCurve) Percent() float64 {
	if bc.RealTokenReserves >= InitialRealTokenReserves {
		return 0
	}
	left := new(big.Float).SetUint64(bc.RealTokenReserves)
	left.Mul(left, big.NewFloat(100))
	left.Quo(left, new(big.Float).SetUint64(InitialRealTokenReserves))
	f, _ := left.Float64()
	return 100 - f
}

// InitialBuyQuote prices a buy on a curve that has not been created on chain yet.
func (g *GlobalAccount) InitialBuyQuote(lamports uint64) uint64 {
	return constantProductOut(g.InitialVirtualSolReserves, g.InitialVirtualTokenReserves, g.InitialRealTokenReserves, lamports)
}
