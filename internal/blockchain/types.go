// internal/blockchain/types.go
package blockchain

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrAccountNotFound is returned by Client.GetAccountInfo for accounts that do not exist.
var ErrAccountNotFound = errors.New("account not found")

// BlockhashInfo: blockhash вместе с высотой блока, после которой он истекает.
type BlockhashInfo struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// TransactionOptions определяет опции для отправки транзакций.
type TransactionOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
	MaxRetries          *uint
}

// SimulationResult представляет результат симуляции транзакции.
// UnitsConsumed is nil when the node did not report it.
type SimulationResult struct {
	Err           interface{}
	Logs          []string
	UnitsConsumed *uint64
}

// Client определяет общий интерфейс для взаимодействия с блокчейном.
type Client interface {
	// Получить последний blockhash и его срок жизни.
	GetLatestBlockhash(ctx context.Context) (BlockhashInfo, error)
	// Отправить транзакцию с опциями.
	SendTransaction(ctx context.Context, tx *solana.Transaction, opts TransactionOptions) (solana.Signature, error)
	// Симулировать транзакцию без проверки подписей.
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error)
	// Статус подписи; nil, если узел её ещё не видел.
	GetSignatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error)
	// Текущая высота блока.
	GetBlockHeight(ctx context.Context) (uint64, error)
	// Получить информацию об аккаунте.
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	// Баланс SPL токен-аккаунта в минимальных единицах.
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	// Баланс аккаунта в лампортах.
	GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error)
}
