// ==============================================
// File: internal/dex/pumpfun/instructions.go
// ==============================================
package pumpfun

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// tradeData encodes discriminator + amount + SOL bound, little-endian.
func tradeData(discriminator []byte, amount, solBound uint64) []byte {
	data := make([]byte, len(discriminator)+16)
	copy(data, discriminator)
	binary.LittleEndian.PutUint64(data[len(discriminator):], amount)
	binary.LittleEndian.PutUint64(data[len(discriminator)+8:], solBound)
	return data
}

// BuildBuyInstruction builds a buy instruction for Pump.fun protocol
func BuildBuyInstruction(accounts TradeAccounts, amount, maxSolCost uint64) solana.Instruction {
	// Account list must be in the exact order expected by the program
	insAccounts := []*solana.AccountMeta{
		{PublicKey: accounts.Global, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.FeeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.AssociatedUser, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.User, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.Program, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(accounts.Program, insAccounts, tradeData(BuyDiscriminator, amount, maxSolCost))
}

// BuildSellInstruction builds a sell instruction for Pump.fun protocol
func BuildSellInstruction(accounts TradeAccounts, amount, minSolOutput uint64) solana.Instruction {
	insAccounts := []*solana.AccountMeta{
		{PublicKey: accounts.Global, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.FeeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.AssociatedUser, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.User, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: AssociatedTokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.Program, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(accounts.Program, insAccounts, tradeData(SellDiscriminator, amount, minSolOutput))
}
