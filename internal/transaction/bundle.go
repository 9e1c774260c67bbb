// internal/transaction/bundle.go
package transaction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/blockchain"
	"go.uber.org/zap"
)

// AuctionExecutor races a signed transaction for inclusion and confirms it itself.
type AuctionExecutor interface {
	Execute(ctx context.Context, tx *solana.Transaction, bh blockchain.BlockhashInfo) (bool, solana.Signature, error)
}

// BundleChannel hands transactions to an AuctionExecutor. No separate confirmation poll.
type BundleChannel struct {
	executor    AuctionExecutor
	tipAccount  solana.PublicKey
	tipLamports uint64
	logger      *zap.Logger
}

func NewBundleChannel(executor AuctionExecutor, tipAccount solana.PublicKey, tipLamports uint64, logger *zap.Logger) *BundleChannel {
	return &BundleChannel{
		executor:    executor,
		tipAccount:  tipAccount,
		tipLamports: tipLamports,
		logger:      logger.Named("bundle"),
	}
}

func (b *BundleChannel) Channel() Channel { return ChannelBundle }

func (b *BundleChannel) Trailer(payer solana.PublicKey) []solana.Instruction {
	if b.tipLamports == 0 || b.tipAccount.IsZero() {
		return nil
	}
	return []solana.Instruction{TipInstruction(payer, b.tipAccount, b.tipLamports)}
}

func (b *BundleChannel) Send(ctx context.Context, tx *solana.Transaction, bh blockchain.BlockhashInfo) Result {
	confirmed, sig, err := b.executor.Execute(ctx, tx, bh)
	if err != nil {
		return Result{Signature: sig, Channel: ChannelBundle, Err: err}
	}
	if !confirmed {
		return Result{Signature: sig, Channel: ChannelBundle, Err: ErrBundleNotLanded}
	}
	return Result{Signature: sig, Channel: ChannelBundle, Confirmed: true}
}

// JitoExecutor submits single-transaction bundles to a block engine over JSON-RPC
// and polls getBundleStatuses until the bundle lands or the blockhash expires.
type JitoExecutor struct {
	engine   jsonrpc.RPCClient
	client   blockchain.Client
	interval time.Duration
	logger   *zap.Logger
}

func NewJitoExecutor(engineURL string, client blockchain.Client, interval time.Duration, logger *zap.Logger) *JitoExecutor {
	if interval <= 0 {
		interval = DefaultConfirmInterval
	}
	return &JitoExecutor{
		engine:   jsonrpc.NewClient(engineURL),
		client:   client,
		interval: interval,
		logger:   logger.Named("jito"),
	}
}

type bundleStatus struct {
	BundleID           string          `json:"bundle_id"`
	Slot               uint64          `json:"slot"`
	ConfirmationStatus string          `json:"confirmation_status"`
	Err                json.RawMessage `json:"err"`
}

type bundleStatusesResult struct {
	Value []*bundleStatus `json:"value"`
}

func (j *JitoExecutor) Execute(ctx context.Context, tx *solana.Transaction, bh blockchain.BlockhashInfo) (bool, solana.Signature, error) {
	if len(tx.Signatures) == 0 {
		return false, solana.Signature{}, ErrNoSigner
	}
	sig := tx.Signatures[0]

	encoded, err := tx.ToBase64()
	if err != nil {
		return false, sig, fmt.Errorf("failed to encode transaction: %w", err)
	}

	var bundleID string
	err = j.engine.CallForInto(ctx, &bundleID, "sendBundle", []interface{}{
		[]string{encoded},
		map[string]string{"encoding": "base64"},
	})
	if err != nil {
		return false, sig, fmt.Errorf("%w: sendBundle: %v", ErrBundleNotLanded, err)
	}
	j.logger.Info("📦 Bundle submitted", zap.String("bundle_id", bundleID), zap.String("signature", sig.String()))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		landed, err := j.status(ctx, bundleID)
		if err != nil {
			return false, sig, err
		}
		if landed {
			return true, sig, nil
		}

		if height, err := j.client.GetBlockHeight(ctx); err == nil && height > bh.LastValidBlockHeight {
			j.logger.Warn("Bundle expired", zap.String("bundle_id", bundleID))
			return false, sig, nil
		}

		select {
		case <-ctx.Done():
			return false, sig, fmt.Errorf("%w: %v", ErrConfirmationTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (j *JitoExecutor) status(ctx context.Context, bundleID string) (bool, error) {
	var out bundleStatusesResult
	if err := j.engine.CallForInto(ctx, &out, "getBundleStatuses", []interface{}{[]string{bundleID}}); err != nil {
		j.logger.Debug("getBundleStatuses failed", zap.Error(err))
		return false, nil
	}
	if len(out.Value) == 0 || out.Value[0] == nil {
		return false, nil
	}
	st := out.Value[0]
	if !bundleErrIsOk(st.Err) {
		return false, fmt.Errorf("%w: %s", ErrTransactionFailed, st.Err)
	}
	return st.ConfirmationStatus == "confirmed" || st.ConfirmationStatus == "finalized", nil
}

// bundleErrIsOk accepts null and the {"Ok":null} form block engines return.
func bundleErrIsOk(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return false
	}
	_, ok := wrapped["Ok"]
	return ok && len(wrapped) == 1
}
