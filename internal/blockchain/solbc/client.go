// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/blockchain"
	"go.uber.org/zap"
)

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	rpc        *rpc.Client
	endpoint   string
	commitment rpc.CommitmentType
	logger     *zap.Logger
	observe    LatencyObserver
}

// LatencyObserver receives per-method RPC latencies in seconds.
type LatencyObserver func(method string, seconds float64, err error)

// Option customises a Client.
type Option func(*Client)

// WithCommitment sets the commitment used for reads. Defaults to confirmed.
func WithCommitment(c rpc.CommitmentType) Option {
	return func(cl *Client) { cl.commitment = c }
}

// WithLatencyObserver reports the duration of every RPC call.
func WithLatencyObserver(o LatencyObserver) Option {
	return func(cl *Client) { cl.observe = o }
}

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
func NewClient(rpcURL string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		rpc:        rpc.New(rpcURL),
		endpoint:   rpcURL,
		commitment: rpc.CommitmentConfirmed,
		logger:     logger.Named("solbc-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RPC exposes the underlying solana-go client.
func (c *Client) RPC() *rpc.Client {
	return c.rpc
}

func (c *Client) wrap(method string, err error) error {
	if err == nil {
		return nil
	}
	return &RPCError{Err: err, NodeURL: c.endpoint, Method: method}
}

func (c *Client) track(method string) func(error) {
	if c.observe == nil {
		return func(error) {}
	}
	start := nowFunc()
	return func(err error) {
		c.observe(method, nowFunc().Sub(start).Seconds(), err)
	}
}

// GetLatestBlockhash получает последний blockhash вместе с lastValidBlockHeight.
func (c *Client) GetLatestBlockhash(ctx context.Context) (blockchain.BlockhashInfo, error) {
	done := c.track("getLatestBlockhash")
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentProcessed)
	done(err)
	if err != nil {
		c.logger.Error("GetLatestBlockhash error", zap.Error(err))
		return blockchain.BlockhashInfo{}, c.wrap("getLatestBlockhash", err)
	}
	if result == nil || result.Value == nil {
		return blockchain.BlockhashInfo{}, c.wrap("getLatestBlockhash", ErrInvalidResponse)
	}
	return blockchain.BlockhashInfo{
		Blockhash:            result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

// SendTransaction отправляет подписанную транзакцию.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	done := c.track("sendTransaction")
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
		MaxRetries:          opts.MaxRetries,
	})
	done(err)
	if err != nil {
		c.logger.Error("SendTransaction error", zap.Error(err))
		if anchorErr, ok := AnchorErrorFromRPC(err); ok {
			c.logger.Warn("Program rejected transaction",
				zap.Int("code", anchorErr.Code),
				zap.String("name", anchorErr.Name),
				zap.String("message", anchorErr.Msg))
		}
		return solana.Signature{}, c.wrap("sendTransaction", err)
	}
	return sig, nil
}

// SimulateTransaction simulates without signature checks and with the
// blockhash replaced by the node.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error) {
	done := c.track("simulateTransaction")
	result, err := c.rpc.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:              false,
		ReplaceRecentBlockhash: true,
		Commitment:             rpc.CommitmentProcessed,
	})
	done(err)
	if err != nil {
		c.logger.Debug("SimulateTransaction error", zap.Error(err))
		return nil, c.wrap("simulateTransaction", err)
	}
	if result == nil || result.Value == nil {
		return nil, c.wrap("simulateTransaction", ErrInvalidResponse)
	}
	return &blockchain.SimulationResult{
		Err:           result.Value.Err,
		Logs:          result.Value.Logs,
		UnitsConsumed: result.Value.UnitsConsumed,
	}, nil
}

// GetSignatureStatus returns nil without error when the signature is unknown.
func (c *Client) GetSignatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	done := c.track("getSignatureStatuses")
	result, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
	done(err)
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		c.logger.Debug("GetSignatureStatuses error", zap.Error(err))
		return nil, c.wrap("getSignatureStatuses", err)
	}
	if len(result.Value) == 0 {
		return nil, nil
	}
	return result.Value[0], nil
}

func (c *Client) GetBlockHeight(ctx context.Context) (uint64, error) {
	done := c.track("getBlockHeight")
	height, err := c.rpc.GetBlockHeight(ctx, rpc.CommitmentProcessed)
	done(err)
	if err != nil {
		c.logger.Debug("GetBlockHeight error", zap.Error(err))
		return 0, c.wrap("getBlockHeight", err)
	}
	return height, nil
}

// GetAccountInfo получает информацию об аккаунте. Missing accounts yield ErrAccountNotFound.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	done := c.track("getAccountInfo")
	result, err := c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.commitment,
	})
	done(err)
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, c.wrap("getAccountInfo", err)
	}
	return result, nil
}

// GetTokenAccountBalance returns the raw token amount held by account.
func (c *Client) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	done := c.track("getTokenAccountBalance")
	result, err := c.rpc.GetTokenAccountBalance(ctx, account, c.commitment)
	done(err)
	if err != nil {
		c.logger.Debug("GetTokenAccountBalance error",
			zap.String("account", account.String()),
			zap.Error(err))
		return 0, c.wrap("getTokenAccountBalance", err)
	}
	if result == nil || result.Value == nil {
		return 0, c.wrap("getTokenAccountBalance", ErrInvalidResponse)
	}
	amount, err := strconv.ParseUint(result.Value.Amount, 10, 64)
	if err != nil {
		return 0, c.wrap("getTokenAccountBalance", err)
	}
	return amount, nil
}

func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	done := c.track("getBalance")
	result, err := c.rpc.GetBalance(ctx, pubkey, c.commitment)
	done(err)
	if err != nil {
		c.logger.Debug("GetBalance error", zap.Error(err))
		return 0, c.wrap("getBalance", err)
	}
	return result.Value, nil
}

// Close releases idle HTTP connections.
func (c *Client) Close() error {
	return c.rpc.Close()
}

var _ blockchain.Client = (*Client)(nil)
