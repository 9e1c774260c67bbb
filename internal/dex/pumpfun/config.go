// =============================
// File: internal/dex/pumpfun/config.go
// =============================
package pumpfun

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Known PumpFun protocol addresses
var (
	// Program ID for Pump.fun protocol
	PumpFunProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

	// Global state account (PDA of "global")
	PumpFunGlobal = solana.MustPublicKeyFromBase58("4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf")

	// Protocol fee recipient
	PumpFunFeeRecipient = solana.MustPublicKeyFromBase58("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM")

	// Event authority for the Pump.fun protocol
	PumpFunEventAuth = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")

	AssociatedTokenProgramID = solana.SPLAssociatedTokenAccountProgramID
)

// Anchor instruction discriminators
var (
	BuyDiscriminator  = []byte{102, 6, 61, 18, 1, 218, 235, 234}
	SellDiscriminator = []byte{51, 230, 133, 164, 1, 127, 131, 173}
)

const (
	bondingCurveSeed = "bonding-curve"

	// Токены, доступные для покупки на кривой до миграции (6 знаков).
	InitialRealTokenReserves uint64 = 793_100_000_000_000

	TokenDecimals = 6
)

// TradeAccounts is the set of addresses one buy or sell touches.
type TradeAccounts struct {
	Global                 solana.PublicKey
	FeeRecipient           solana.PublicKey
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	AssociatedUser         solana.PublicKey
	User                   solana.PublicKey
	EventAuthority         solana.PublicKey
	Program                solana.PublicKey
}

// DeriveBondingCurve вычисляет PDA bonding curve для минта.
func DeriveBondingCurve(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(bondingCurveSeed), mint.Bytes()},
		PumpFunProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive bonding curve: %w", err)
	}
	return addr, nil
}

// NewTradeAccounts derives every account a trade on mint needs for user.
// feeRecipient falls back to PumpFunFeeRecipient when zero.
func NewTradeAccounts(mint, user, feeRecipient solana.PublicKey) (TradeAccounts, error) {
	bondingCurve, err := DeriveBondingCurve(mint)
	if err != nil {
		return TradeAccounts{}, err
	}
	associatedBondingCurve, _, err := solana.FindAssociatedTokenAddress(bondingCurve, mint)
	if err != nil {
		return TradeAccounts{}, fmt.Errorf("failed to derive associated bonding curve: %w", err)
	}
	associatedUser, _, err := solana.FindAssociatedTokenAddress(user, mint)
	if err != nil {
		return TradeAccounts{}, fmt.Errorf("failed to derive associated token account: %w", err)
	}
	if feeRecipient.IsZero() {
		feeRecipient = PumpFunFeeRecipient
	}
	return TradeAccounts{
		Global:                 PumpFunGlobal,
		FeeRecipient:           feeRecipient,
		Mint:                   mint,
		BondingCurve:           bondingCurve,
		AssociatedBondingCurve: associatedBondingCurve,
		AssociatedUser:         associatedUser,
		User:                   user,
		EventAuthority:         PumpFunEventAuth,
		Program:                PumpFunProgramID,
	}, nil
}
