// internal/transaction/types.go
package transaction

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/blockchain"
)

// Channel определяет путь доставки транзакции в сеть.
type Channel string

const (
	ChannelDirect Channel = "direct"
	ChannelRelay  Channel = "relay"
	ChannelBundle Channel = "bundle"
)

// PriorityConfig задаёт compute budget транзакции.
// Нулевые значения означают, что соответствующая инструкция не добавляется.
type PriorityConfig struct {
	UnitLimit uint32
	UnitPrice uint64
	// Estimate asks the fee estimator to replace UnitLimit/UnitPrice.
	Estimate bool
}

// Request describes one submission attempt. The blockhash is resolved inside Submit.
type Request struct {
	Label        string
	Instructions []solana.Instruction
	Priority     *PriorityConfig
	Channel      Channel
	Payer        solana.PublicKey
	Signers      []solana.PrivateKey
}

// Result is the terminal outcome of a submission.
type Result struct {
	Signature solana.Signature
	Channel   Channel
	Confirmed bool
	Slot      uint64
	Err       error
}

// Success reports whether the transaction was confirmed without error.
func (r Result) Success() bool {
	return r.Err == nil && r.Confirmed
}

// Sender delivers a signed transaction through one channel.
type Sender interface {
	Channel() Channel
	// Trailer returns channel-specific instructions appended after the base instructions.
	Trailer(payer solana.PublicKey) []solana.Instruction
	Send(ctx context.Context, tx *solana.Transaction, bh blockchain.BlockhashInfo) Result
}

// Observer receives one call per finished submission.
type Observer interface {
	ObserveSubmission(channel string, success bool, seconds float64)
}
