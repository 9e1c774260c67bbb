// internal/transaction/instructions.go
package transaction

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
)

var (
	RelayMarkerProgramID = solana.MustPublicKeyFromBase58("HQ2UUt18uJqKaQFJhgV9zaTdQxUZjNrsKFgoEDquBkcx")
	RelayTipAccount      = solana.MustPublicKeyFromBase58("HWEoBxYs7ssKuudEjzjmpfJVX7Dvi7wescFsVx2L5yoY")
)

const relayMarkerMemo = "Powered by bloXroute Trader Api"

// AssembleInstructions orders instructions as
// [SetComputeUnitLimit?, SetComputeUnitPrice?, base..., trailer...].
func AssembleInstructions(base []solana.Instruction, p *PriorityConfig, trailer ...solana.Instruction) []solana.Instruction {
	out := make([]solana.Instruction, 0, len(base)+len(trailer)+2)
	if p != nil {
		if p.UnitLimit > 0 {
			out = append(out, computebudget.NewSetComputeUnitLimitInstruction(p.UnitLimit).Build())
		}
		if p.UnitPrice > 0 {
			out = append(out, computebudget.NewSetComputeUnitPriceInstruction(p.UnitPrice).Build())
		}
	}
	out = append(out, base...)
	return append(out, trailer...)
}

// RelayMarkerInstruction tags a transaction for relay routing.
func RelayMarkerInstruction() solana.Instruction {
	return solana.NewInstruction(RelayMarkerProgramID, solana.AccountMetaSlice{}, []byte(relayMarkerMemo))
}

// TipInstruction переводит tip (в лампортах) с payer на указанный аккаунт.
func TipInstruction(payer, to solana.PublicKey, lamports uint64) solana.Instruction {
	return system.NewTransferInstruction(lamports, payer, to).Build()
}

// BuildTransaction compiles a v0 transaction and signs it with every key it requires.
func BuildTransaction(ixs []solana.Instruction, blockhash solana.Hash, payer solana.PublicKey, signers []solana.PrivateKey) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	tx.Message.SetVersion(solana.MessageVersionV0)

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSigner, err)
	}
	return tx, nil
}
