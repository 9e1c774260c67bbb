package wallet

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWallet(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	w, err := NewWallet(base58.Encode(key))
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey)
	assert.Equal(t, key.PublicKey().String(), w.String())
	require.Len(t, w.Signers(), 1)
	assert.Equal(t, key, w.Signers()[0])
}

func TestNewWalletInvalid(t *testing.T) {
	_, err := NewWallet("0OIl")
	assert.ErrorContains(t, err, "failed to decode private key")

	_, err = NewWallet(base58.Encode(make([]byte, 32)))
	assert.ErrorContains(t, err, "invalid private key length")
}

func TestGetATA(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := NewWallet(base58.Encode(key))
	require.NoError(t, err)

	mint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	expected, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		ata, err := w.GetATA(mint)
		require.NoError(t, err)
		assert.Equal(t, expected, ata)
	}
	assert.Len(t, w.ataCache, 1)
}

func TestCreateATAIdempotentInstruction(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := NewWallet(base58.Encode(key))
	require.NoError(t, err)
	mint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	ix, err := w.CreateATAIdempotentInstruction(mint)
	require.NoError(t, err)
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)

	ata, err := w.GetATA(mint)
	require.NoError(t, err)
	metas := ix.Accounts()
	require.Len(t, metas, 6)
	assert.True(t, metas[0].IsSigner)
	assert.Equal(t, ata, metas[1].PublicKey)
	assert.Equal(t, mint, metas[3].PublicKey)
}
