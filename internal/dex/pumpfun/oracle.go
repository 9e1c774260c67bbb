// ==============================================
// File: internal/dex/pumpfun/oracle.go
// ==============================================
package pumpfun

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/blockchain"
	"go.uber.org/zap"
)

// AccountFetcher is the subset of blockchain.Client the oracle reads through.
type AccountFetcher interface {
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// Oracle prices trades against on-chain bonding curve state.
type Oracle struct {
	client AccountFetcher
	logger *zap.Logger

	mu     sync.Mutex
	global *GlobalAccount
}

func NewOracle(client AccountFetcher, logger *zap.Logger) *Oracle {
	return &Oracle{client: client, logger: logger.Named("pumpfun-oracle")}
}

func (o *Oracle) fetch(ctx context.Context, addr solana.PublicKey) ([]byte, error) {
	info, err := o.client.GetAccountInfo(ctx, addr)
	if err != nil {
		return nil, err
	}
	if info == nil || info.Value == nil {
		return nil, blockchain.ErrAccountNotFound
	}
	if !info.Value.Owner.Equals(PumpFunProgramID) {
		return nil, fmt.Errorf("account %s has incorrect owner: expected %s, got %s",
			addr, PumpFunProgramID, info.Value.Owner)
	}
	return info.Value.Data.GetBinary(), nil
}

// Global returns the protocol global account, fetched once and cached.
func (o *Oracle) Global(ctx context.Context) (*GlobalAccount, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.global != nil {
		return o.global, nil
	}

	data, err := o.fetch(ctx, PumpFunGlobal)
	if err != nil {
		return nil, fmt.Errorf("failed to get global account: %w", err)
	}
	g, err := DecodeGlobalAccount(data)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("Global account loaded",
		zap.String("fee_recipient", g.FeeRecipient.String()),
		zap.Uint64("fee_basis_points", g.FeeBasisPoints))
	o.global = g
	return g, nil
}

// Curve получает и парсит аккаунт bonding curve для минта.
func (o *Oracle) Curve(ctx context.Context, mint solana.PublicKey) (*BondingCurve, error) {
	addr, err := DeriveBondingCurve(mint)
	if err != nil {
		return nil, err
	}
	data, err := o.fetch(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get bonding curve %s: %w", addr, err)
	}
	return DecodeBondingCurve(data)
}

// BuyQuote returns the tokens lamports buys now. A curve not yet visible to the
// node is priced from the global initial reserves.
func (o *Oracle) BuyQuote(ctx context.Context, mint solana.PublicKey, lamports uint64) (uint64, error) {
	curve, err := o.Curve(ctx, mint)
	if errors.Is(err, blockchain.ErrAccountNotFound) {
		g, gerr := o.Global(ctx)
		if gerr != nil {
			return 0, gerr
		}
		o.logger.Debug("Bonding curve not visible yet, using initial reserves", zap.String("mint", mint.String()))
		return g.InitialBuyQuote(lamports), nil
	}
	if err != nil {
		return 0, err
	}
	return curve.BuyQuote(lamports)
}

// BuyCost returns the lamports required to buy tokens at the current curve state.
func (o *Oracle) BuyCost(ctx context.Context, mint solana.PublicKey, tokens uint64) (uint64, error) {
	g, err := o.Global(ctx)
	if err != nil {
		return 0, err
	}
	curve, err := o.Curve(ctx, mint)
	if err != nil {
		return 0, err
	}
	return curve.BuyCost(tokens, g.FeeBasisPoints)
}

// SellQuote returns the lamports received for selling tokens, net of fees.
func (o *Oracle) SellQuote(ctx context.Context, mint solana.PublicKey, tokens uint64) (uint64, error) {
	g, err := o.Global(ctx)
	if err != nil {
		return 0, err
	}
	curve, err := o.Curve(ctx, mint)
	if err != nil {
		return 0, err
	}
	return curve.SellQuote(tokens, g.FeeBasisPoints)
}

// CurvePercent returns bonding curve progress for mint.
func (o *Oracle) CurvePercent(ctx context.Context, mint solana.PublicKey) (float64, error) {
	curve, err := o.Curve(ctx, mint)
	if err != nil {
		return 0, err
	}
	return curve.Percent(), nil
}

// FeeRecipient returns the fee recipient recorded in the global account.
func (o *Oracle) FeeRecipient(ctx context.Context) (solana.PublicKey, error) {
	g, err := o.Global(ctx)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return g.FeeRecipient, nil
}
