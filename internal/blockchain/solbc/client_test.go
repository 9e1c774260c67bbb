package solbc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// rpcStub answers JSON-RPC calls with canned results keyed by method.
type rpcStub struct {
	t       *testing.T
	mu      sync.Mutex
	results map[string]string
	errors  map[string]string
	calls   []string
}

func newRPCStub(t *testing.T) (*rpcStub, *httptest.Server) {
	stub := &rpcStub{t: t, results: map[string]string{}, errors: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(stub.serve))
	t.Cleanup(srv.Close)
	return stub, srv
}

func (s *rpcStub) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.calls = append(s.calls, req.Method)
	result, hasResult := s.results[req.Method]
	rpcErr, hasErr := s.errors[req.Method]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case hasErr:
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"error":` + rpcErr + `}`))
	case hasResult:
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":` + result + `}`))
	default:
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"error":{"code":-32601,"message":"method not found"}}`))
	}
}

func TestClientGetLatestBlockhash(t *testing.T) {
	stub, srv := newRPCStub(t)
	hash := solana.HashFromBytes(make([]byte, 32))
	stub.results["getLatestBlockhash"] = `{"context":{"slot":10},"value":{"blockhash":"` + hash.String() + `","lastValidBlockHeight":250}}`

	var observed []string
	c := NewClient(srv.URL, zaptest.NewLogger(t), WithLatencyObserver(func(method string, _ float64, err error) {
		observed = append(observed, method)
		assert.NoError(t, err)
	}))

	info, err := c.GetLatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hash, info.Blockhash)
	assert.Equal(t, uint64(250), info.LastValidBlockHeight)
	assert.Equal(t, []string{"getLatestBlockhash"}, observed)
}

func TestClientGetSignatureStatus(t *testing.T) {
	stub, srv := newRPCStub(t)
	c := NewClient(srv.URL, zaptest.NewLogger(t))

	stub.results["getSignatureStatuses"] = `{"context":{"slot":10},"value":[null]}`
	status, err := c.GetSignatureStatus(context.Background(), solana.Signature{})
	require.NoError(t, err)
	assert.Nil(t, status)

	stub.results["getSignatureStatuses"] = `{"context":{"slot":10},"value":[{"slot":9,"confirmations":null,"err":null,"confirmationStatus":"confirmed"}]}`
	status, err = c.GetSignatureStatus(context.Background(), solana.Signature{})
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, uint64(9), status.Slot)
	assert.Nil(t, status.Err)
}

func TestClientGetAccountInfoMissing(t *testing.T) {
	stub, srv := newRPCStub(t)
	stub.results["getAccountInfo"] = `{"context":{"slot":10},"value":null}`
	c := NewClient(srv.URL, zaptest.NewLogger(t))

	_, err := c.GetAccountInfo(context.Background(), solana.SystemProgramID)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestClientGetTokenAccountBalance(t *testing.T) {
	stub, srv := newRPCStub(t)
	stub.results["getTokenAccountBalance"] = `{"context":{"slot":10},"value":{"amount":"123456789","decimals":6,"uiAmountString":"123.456789"}}`
	c := NewClient(srv.URL, zaptest.NewLogger(t))

	amount, err := c.GetTokenAccountBalance(context.Background(), solana.SystemProgramID)
	require.NoError(t, err)
	assert.Equal(t, uint64(123456789), amount)
}

func TestClientWrapsRPCErrors(t *testing.T) {
	stub, srv := newRPCStub(t)
	stub.errors["getBlockHeight"] = `{"code":-32005,"message":"node is behind"}`
	c := NewClient(srv.URL, zaptest.NewLogger(t))

	_, err := c.GetBlockHeight(context.Background())
	require.Error(t, err)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "getBlockHeight", rpcErr.Method)
	assert.Equal(t, srv.URL, rpcErr.NodeURL)

	var jErr *jsonrpc.RPCError
	require.True(t, errors.As(err, &jErr))
	assert.Equal(t, -32005, jErr.Code)
}

func TestAnchorErrorFromLogs(t *testing.T) {
	logs := []string{
		"Program 6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P invoke [1]",
		"Program log: AnchorError occurred. Error Code: TooMuchSolRequired. Error Number: 6002. Error Message: slippage: Too much SOL required to buy the given amount of tokens..",
	}
	anchorErr, ok := AnchorErrorFromLogs(logs)
	require.True(t, ok)
	assert.Equal(t, 6002, anchorErr.Code)
	assert.Equal(t, "TooMuchSolRequired", anchorErr.Name)
	assert.Contains(t, anchorErr.Msg, "Too much SOL required")

	_, ok = AnchorErrorFromLogs([]string{"Program log: Instruction: Buy"})
	assert.False(t, ok)
}

func TestAnchorErrorFromRPC(t *testing.T) {
	err := &RPCError{Method: "sendTransaction", Err: &jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed",
		Data: map[string]interface{}{
			"logs": []interface{}{
				"Program log: AnchorError occurred. Error Code: BondingCurveComplete. Error Number: 6005. Error Message: The bonding curve has completed.",
			},
		},
	}}
	anchorErr, ok := AnchorErrorFromRPC(err)
	require.True(t, ok)
	assert.Equal(t, 6005, anchorErr.Code)
	assert.Equal(t, "BondingCurveComplete", anchorErr.Name)

	_, ok = AnchorErrorFromRPC(errors.New("plain"))
	assert.False(t, ok)
}
