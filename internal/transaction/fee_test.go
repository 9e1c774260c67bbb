package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestComputeUnitCeiling(t *testing.T) {
	cases := []struct {
		units uint64
		want  uint32
	}{
		{0, 0},
		{1, 2},
		{10, 11},
		{100_000, 110_000},
		{100_001, 110_002},
		{5_000_000, MaxComputeUnitLimit},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ComputeUnitCeiling(tc.units), "units=%d", tc.units)
	}
}

type oracleRequest struct {
	Method string `json:"method"`
	Params []struct {
		Transaction string `json:"transaction"`
		Options     struct {
			Recommended bool `json:"recommended"`
		} `json:"options"`
	} `json:"params"`
	ID json.RawMessage `json:"id"`
}

// newOracle answers getPriorityFeeEstimate with result (raw JSON).
func newOracle(t *testing.T, result string, seen *oracleRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req oracleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if seen != nil {
			*seen = req
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":` + result + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func uint64Ptr(v uint64) *uint64 { return &v }

func TestFeeEstimatorEstimate(t *testing.T) {
	client := newFakeClient()
	client.simUnits = uint64Ptr(100_000)

	var seen oracleRequest
	oracle := newOracle(t, `{"priorityFeeEstimate":1234.2}`, &seen)
	est := NewFeeEstimator(client, oracle.URL, zap.NewNop())

	payer := newSigner(t).PublicKey()
	got, err := est.Estimate(context.Background(), payer, []solana.Instruction{memoInstruction("x")},
		PriorityConfig{UnitLimit: 300_000, UnitPrice: 1})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint32(110_000), got.UnitLimit)
	assert.Equal(t, uint64(1235), got.UnitPrice)

	assert.Equal(t, "getPriorityFeeEstimate", seen.Method)
	require.Len(t, seen.Params, 1)
	assert.True(t, seen.Params[0].Options.Recommended)
	_, err = base58.Decode(seen.Params[0].Transaction)
	assert.NoError(t, err)

	require.Len(t, client.simulated, 1)
	sim := client.simulated[0]
	assert.Equal(t, solana.MessageVersionV0, sim.Message.GetVersion())
	assert.Len(t, sim.Signatures, 1)
	assert.Equal(t, []solana.PublicKey{solana.ComputeBudget, solana.ComputeBudget, solana.MemoProgramID}, programIDs(t, sim))
}

func TestFeeEstimatorUnavailableSimulation(t *testing.T) {
	for name, units := range map[string]*uint64{"missing": nil, "zero": uint64Ptr(0)} {
		t.Run(name, func(t *testing.T) {
			client := newFakeClient()
			client.simUnits = units
			oracle := newOracle(t, `{"priorityFeeEstimate":10}`, nil)

			got, err := NewFeeEstimator(client, oracle.URL, zap.NewNop()).
				Estimate(context.Background(), newSigner(t).PublicKey(), []solana.Instruction{memoInstruction("x")}, PriorityConfig{})
			assert.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestFeeEstimatorNoRecommendation(t *testing.T) {
	results := map[string]string{
		"missing":  `{}`,
		"zero":     `{"priorityFeeEstimate":0}`,
		"negative": `{"priorityFeeEstimate":-5}`,
	}
	for name, result := range results {
		t.Run(name, func(t *testing.T) {
			client := newFakeClient()
			client.simUnits = uint64Ptr(50_000)
			oracle := newOracle(t, result, nil)

			got, err := NewFeeEstimator(client, oracle.URL, zap.NewNop()).
				Estimate(context.Background(), newSigner(t).PublicKey(), []solana.Instruction{memoInstruction("x")}, PriorityConfig{})
			assert.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestFeeEstimatorSimulationError(t *testing.T) {
	client := newFakeClient()
	client.simErr = errors.New("node down")
	oracle := newOracle(t, `{"priorityFeeEstimate":10}`, nil)

	got, err := NewFeeEstimator(client, oracle.URL, zap.NewNop()).
		Estimate(context.Background(), newSigner(t).PublicKey(), []solana.Instruction{memoInstruction("x")}, PriorityConfig{})
	assert.Error(t, err)
	assert.Nil(t, got)
}
