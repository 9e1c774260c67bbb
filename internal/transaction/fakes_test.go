package transaction

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/blockchain"
	"github.com/stretchr/testify/require"
)

// fakeClient is an in-memory blockchain.Client.
type fakeClient struct {
	mu sync.Mutex

	blockhash    blockchain.BlockhashInfo
	blockhashErr error
	sendErr      error
	sendSig      solana.Signature
	sent         []*solana.Transaction
	sentOpts     []blockchain.TransactionOptions
	simulated    []*solana.Transaction
	simUnits     *uint64
	simErr       error
	statuses     []*rpc.SignatureStatusesResult // returned in order, last one repeats
	statusCalls  int
	height       uint64
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		blockhash: blockchain.BlockhashInfo{
			Blockhash:            solana.HashFromBytes(make([]byte, 32)),
			LastValidBlockHeight: 1000,
		},
		height: 900,
	}
}

func (f *fakeClient) GetLatestBlockhash(context.Context) (blockchain.BlockhashInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blockhash, f.blockhashErr
}

func (f *fakeClient) SendTransaction(_ context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	f.sentOpts = append(f.sentOpts, opts)
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	if !f.sendSig.IsZero() {
		return f.sendSig, nil
	}
	return tx.Signatures[0], nil
}

func (f *fakeClient) SimulateTransaction(_ context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simulated = append(f.simulated, tx)
	if f.simErr != nil {
		return nil, f.simErr
	}
	return &blockchain.SimulationResult{UnitsConsumed: f.simUnits}, nil
}

func (f *fakeClient) GetSignatureStatus(context.Context, solana.Signature) (*rpc.SignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return nil, nil
	}
	idx := f.statusCalls
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.statusCalls++
	return f.statuses[idx], nil
}

func (f *fakeClient) GetBlockHeight(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.height, nil
}

func (f *fakeClient) GetAccountInfo(context.Context, solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) GetTokenAccountBalance(context.Context, solana.PublicKey) (uint64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeClient) GetBalance(context.Context, solana.PublicKey) (uint64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeClient) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func confirmedStatus(slot uint64) *rpc.SignatureStatusesResult {
	return &rpc.SignatureStatusesResult{Slot: slot, ConfirmationStatus: rpc.ConfirmationStatusConfirmed}
}

func newSigner(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

func memoInstruction(data string) solana.Instruction {
	return solana.NewInstruction(solana.MemoProgramID, solana.AccountMetaSlice{}, []byte(data))
}

// programIDs lists the program of every compiled instruction in order.
func programIDs(t *testing.T, tx *solana.Transaction) []solana.PublicKey {
	t.Helper()
	out := make([]solana.PublicKey, 0, len(tx.Message.Instructions))
	for _, ix := range tx.Message.Instructions {
		pid, err := tx.Message.Program(ix.ProgramIDIndex)
		require.NoError(t, err)
		out = append(out, pid)
	}
	return out
}
