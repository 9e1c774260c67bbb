// internal/transaction/fee.go
package transaction

import (
	"context"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/mr-tron/base58"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/blockchain"
	"go.uber.org/zap"
)

// MaxComputeUnitLimit is the per-transaction compute ceiling enforced by the runtime.
const MaxComputeUnitLimit = 1_400_000

// FeeEstimate is a recommended compute budget for one transaction.
type FeeEstimate struct {
	UnitLimit uint32
	UnitPrice uint64 // micro-lamports per compute unit
}

// FeeEstimator simulates the transaction for its compute usage and asks a
// fee oracle for a recommended unit price.
type FeeEstimator struct {
	client blockchain.Client
	oracle jsonrpc.RPCClient
	logger *zap.Logger
}

func NewFeeEstimator(client blockchain.Client, oracleURL string, logger *zap.Logger) *FeeEstimator {
	return &FeeEstimator{
		client: client,
		oracle: jsonrpc.NewClient(oracleURL),
		logger: logger.Named("fee-estimator"),
	}
}

// ComputeUnitCeiling returns ceil(units * 1.1) using integer math, capped at MaxComputeUnitLimit.
func ComputeUnitCeiling(units uint64) uint32 {
	ceiling := (units*11 + 9) / 10
	if ceiling > MaxComputeUnitLimit {
		return MaxComputeUnitLimit
	}
	return uint32(ceiling)
}

type priorityFeeEstimateResult struct {
	PriorityFeeEstimate *float64 `json:"priorityFeeEstimate"`
}

// Estimate returns nil without error when either the simulation or the oracle
// has nothing usable. Callers must not fall back to a zero fee.
func (f *FeeEstimator) Estimate(ctx context.Context, payer solana.PublicKey, base []solana.Instruction, limits PriorityConfig) (*FeeEstimate, error) {
	tx, err := solana.NewTransaction(AssembleInstructions(base, &limits), solana.Hash{}, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("failed to build estimation transaction: %w", err)
	}
	tx.Message.SetVersion(solana.MessageVersionV0)
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	sim, err := f.client.SimulateTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("simulation failed: %w", err)
	}
	if sim == nil || sim.UnitsConsumed == nil || *sim.UnitsConsumed == 0 {
		f.logger.Debug("Simulation reported no compute usage")
		return nil, nil
	}
	ceiling := ComputeUnitCeiling(*sim.UnitsConsumed)

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize estimation transaction: %w", err)
	}

	var out priorityFeeEstimateResult
	err = f.oracle.CallForInto(ctx, &out, "getPriorityFeeEstimate", []interface{}{
		map[string]interface{}{
			"transaction": base58.Encode(raw),
			"options":     map[string]interface{}{"recommended": true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fee oracle request failed: %w", err)
	}
	if out.PriorityFeeEstimate == nil || *out.PriorityFeeEstimate <= 0 {
		f.logger.Debug("Fee oracle returned no recommendation")
		return nil, nil
	}

	est := &FeeEstimate{UnitLimit: ceiling, UnitPrice: uint64(math.Ceil(*out.PriorityFeeEstimate))}
	f.logger.Debug("Priority fee estimated",
		zap.Uint64("units_consumed", *sim.UnitsConsumed),
		zap.Uint32("unit_limit", est.UnitLimit),
		zap.Uint64("unit_price", est.UnitPrice))
	return est, nil
}
