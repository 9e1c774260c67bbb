package transaction

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/blockchain"
	"go.uber.org/zap"
)

// DirectChannel sends straight to the RPC node with preflight skipped and no node-side retries.
type DirectChannel struct {
	client    blockchain.Client
	confirmer *Confirmer
	logger    *zap.Logger
}

func NewDirectChannel(client blockchain.Client, confirmer *Confirmer, logger *zap.Logger) *DirectChannel {
	return &DirectChannel{client: client, confirmer: confirmer, logger: logger.Named("direct")}
}

func (d *DirectChannel) Channel() Channel { return ChannelDirect }

func (d *DirectChannel) Trailer(solana.PublicKey) []solana.Instruction { return nil }

func (d *DirectChannel) Send(ctx context.Context, tx *solana.Transaction, bh blockchain.BlockhashInfo) Result {
	maxRetries := uint(0)
	sig, err := d.client.SendTransaction(ctx, tx, blockchain.TransactionOptions{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentProcessed,
		MaxRetries:          &maxRetries,
	})
	if err != nil {
		return Result{Channel: ChannelDirect, Err: err}
	}
	d.logger.Debug("Transaction sent", zap.String("signature", sig.String()))

	slot, err := d.confirmer.Wait(ctx, sig, bh.LastValidBlockHeight)
	return Result{Signature: sig, Channel: ChannelDirect, Confirmed: err == nil, Slot: slot, Err: err}
}
