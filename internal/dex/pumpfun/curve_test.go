package pumpfun

import (
	"bytes"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testVirtualTokens uint64 = 1_073_000_000_000_000
	testVirtualSol    uint64 = 30_000_000_000
	testFeeBps        uint64 = 100
)

func freshCurve() *BondingCurve {
	return &BondingCurve{
		VirtualTokenReserves: testVirtualTokens,
		VirtualSolReserves:   testVirtualSol,
		RealTokenReserves:    InitialRealTokenReserves,
		TokenTotalSupply:     1_000_000_000_000_000,
	}
}

func encodeCurve(t *testing.T, bc *BondingCurve) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := bin.NewBorshEncoder(&buf)
	require.NoError(t, enc.WriteBytes(make([]byte, 8), false))
	for _, v := range []uint64{bc.VirtualTokenReserves, bc.VirtualSolReserves, bc.RealTokenReserves, bc.RealSolReserves, bc.TokenTotalSupply} {
		require.NoError(t, enc.WriteUint64(v, bin.LE))
	}
	require.NoError(t, enc.WriteBool(bc.Complete))
	return buf.Bytes()
}

func encodeGlobal(t *testing.T, g *GlobalAccount) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := bin.NewBorshEncoder(&buf)
	require.NoError(t, enc.WriteBytes(make([]byte, 8), false))
	require.NoError(t, enc.WriteBool(g.Initialized))
	require.NoError(t, enc.WriteBytes(g.Authority[:], false))
	require.NoError(t, enc.WriteBytes(g.FeeRecipient[:], false))
	for _, v := range []uint64{g.InitialVirtualTokenReserves, g.InitialVirtualSolReserves, g.InitialRealTokenReserves, g.TokenTotalSupply, g.FeeBasisPoints} {
		require.NoError(t, enc.WriteUint64(v, bin.LE))
	}
	return buf.Bytes()
}

func testGlobal() *GlobalAccount {
	return &GlobalAccount{
		Initialized:                 true,
		Authority:                   solana.SystemProgramID,
		FeeRecipient:                PumpFunFeeRecipient,
		InitialVirtualTokenReserves: testVirtualTokens,
		InitialVirtualSolReserves:   testVirtualSol,
		InitialRealTokenReserves:    InitialRealTokenReserves,
		TokenTotalSupply:            1_000_000_000_000_000,
		FeeBasisPoints:              testFeeBps,
	}
}

func TestDecodeBondingCurve(t *testing.T) {
	want := freshCurve()
	want.RealSolReserves = 42
	want.Complete = true

	got, err := DecodeBondingCurve(encodeCurve(t, want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeBondingCurveTruncated(t *testing.T) {
	data := encodeCurve(t, freshCurve())
	for _, n := range []int{0, 7, 8, 20, len(data) - 1} {
		_, err := DecodeBondingCurve(data[:n])
		assert.Error(t, err, "len=%d", n)
	}
}

func TestDecodeGlobalAccount(t *testing.T) {
	want := testGlobal()
	got, err := DecodeGlobalAccount(encodeGlobal(t, want))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = DecodeGlobalAccount(encodeGlobal(t, want)[:50])
	assert.Error(t, err)
}

func TestBondingCurveQuotes(t *testing.T) {
	bc := freshCurve()

	tokens, err := bc.BuyQuote(1_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(34_612_903_225_806), tokens)

	cost, err := bc.BuyCost(tokens, testFeeBps)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_010_000_000), cost)

	proceeds, err := bc.SellQuote(tokens, testFeeBps)
	require.NoError(t, err)
	assert.Equal(t, uint64(928_125_000), proceeds)

	zero, err := bc.BuyQuote(0)
	require.NoError(t, err)
	assert.Zero(t, zero)
}

func TestBondingCurveBuyQuoteCappedByRealReserves(t *testing.T) {
	bc := freshCurve()
	bc.RealTokenReserves = 1000

	tokens, err := bc.BuyQuote(1_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), tokens)
}

func TestBondingCurveComplete(t *testing.T) {
	bc := freshCurve()
	bc.Complete = true

	_, err := bc.BuyQuote(1)
	assert.ErrorIs(t, err, ErrCurveComplete)
	_, err = bc.SellQuote(1, 0)
	assert.ErrorIs(t, err, ErrCurveComplete)
	_, err = bc.BuyCost(1, 0)
	assert.ErrorIs(t, err, ErrCurveComplete)
}

func TestBondingCurveBuyCostExceedsReserves(t *testing.T) {
	_, err := freshCurve().BuyCost(testVirtualTokens, 0)
	assert.Error(t, err)
}

func TestBondingCurvePercent(t *testing.T) {
	bc := freshCurve()
	assert.Equal(t, 0.0, bc.Percent())

	bc.RealTokenReserves = InitialRealTokenReserves - 34_612_903_225_806
	assert.InDelta(t, 4.3642546, bc.Percent(), 1e-6)

	bc.RealTokenReserves = 0
	assert.Equal(t, 100.0, bc.Percent())
}

func TestGlobalInitialBuyQuote(t *testing.T) {
	assert.Equal(t, uint64(34_612_903_225_806), testGlobal().InitialBuyQuote(1_000_000_000))
}
