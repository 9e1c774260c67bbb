// internal/transaction/confirm.go
package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/blockchain"
	"go.uber.org/zap"
)

const DefaultConfirmInterval = 500 * time.Millisecond

// Confirmer polls signature status until the transaction is confirmed or its
// blockhash can no longer land.
type Confirmer struct {
	client   blockchain.Client
	interval time.Duration
	logger   *zap.Logger
}

func NewConfirmer(client blockchain.Client, interval time.Duration, logger *zap.Logger) *Confirmer {
	if interval <= 0 {
		interval = DefaultConfirmInterval
	}
	return &Confirmer{client: client, interval: interval, logger: logger.Named("confirmer")}
}

// Wait returns the slot of the confirmed transaction.
func (c *Confirmer) Wait(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) (uint64, error) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		status, err := c.client.GetSignatureStatus(ctx, sig)
		if err != nil {
			c.logger.Debug("Signature status unavailable", zap.String("signature", sig.String()), zap.Error(err))
		} else if status != nil {
			if status.Err != nil {
				return status.Slot, fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return status.Slot, nil
			}
		}

		height, err := c.client.GetBlockHeight(ctx)
		if err == nil && height > lastValidBlockHeight {
			return 0, ErrBlockhashExpired
		}

		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("%w: %v", ErrConfirmationTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}
