// =============================
// File: internal/bot/trader.go
// =============================
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/eventlistener"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/events"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/logger"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/monitor"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/transaction"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/wallet"
	"go.uber.org/zap"
)

var (
	ErrBuyFailed       = errors.New("buy failed")
	ErrSellFailed      = errors.New("sell failed")
	ErrBalanceMismatch = errors.New("token balance did not settle")

	// ErrPositionUnmonitored means a buy landed on chain but no position
	// could be built for it, so the tokens may be held without a monitor.
	ErrPositionUnmonitored = errors.New("bought position is not monitored")
)

// UnmonitoredError reports a confirmed buy whose balance or entry quote
// could not be read.
type UnmonitoredError struct {
	AssetID   string
	Signature solana.Signature
	Quantity  uint64
	Err       error
}

func (e *UnmonitoredError) Error() string {
	return fmt.Sprintf("%v: mint %s, signature %s, quantity %d: %v",
		ErrPositionUnmonitored, e.AssetID, e.Signature, e.Quantity, e.Err)
}

func (e *UnmonitoredError) Unwrap() []error {
	return []error{ErrPositionUnmonitored, e.Err}
}

const (
	DefaultBalanceTimeout  = 15 * time.Second
	DefaultBalanceInterval = 500 * time.Millisecond
)

// Submitter is the part of transaction.Pipeline the trader needs.
type Submitter interface {
	Submit(ctx context.Context, req transaction.Request) transaction.Result
}

// Pricer quotes pump.fun trades; pumpfun.Oracle implements it.
type Pricer interface {
	BuyQuote(ctx context.Context, mint solana.PublicKey, lamports uint64) (uint64, error)
	BuyCost(ctx context.Context, mint solana.PublicKey, tokens uint64) (uint64, error)
	SellQuote(ctx context.Context, mint solana.PublicKey, tokens uint64) (uint64, error)
	FeeRecipient(ctx context.Context) (solana.PublicKey, error)
}

type BalanceReader interface {
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
}

// Publisher receives trade lifecycle events; *events.Bus implements it.
type Publisher interface {
	Publish(event events.Event) error
}

// TraderConfig: параметры покупки и продажи.
type TraderConfig struct {
	BuyLamports     uint64
	BuySlippage     uint64 // bps
	SellSlippage    uint64 // bps
	Channel         transaction.Channel
	Priority        *transaction.PriorityConfig
	BalanceTimeout  time.Duration
	BalanceInterval time.Duration
}

// Trader builds pump.fun buy and sell requests, submits them and waits for
// the token balance to reflect the trade.
type Trader struct {
	cfg       TraderConfig
	wallet    *wallet.Wallet
	submitter Submitter
	pricer    Pricer
	balances  BalanceReader
	publisher Publisher
	logger    *zap.Logger
}

func NewTrader(cfg TraderConfig, w *wallet.Wallet, submitter Submitter, pricer Pricer,
	balances BalanceReader, publisher Publisher, logger *zap.Logger) *Trader {
	if cfg.BalanceTimeout <= 0 {
		cfg.BalanceTimeout = DefaultBalanceTimeout
	}
	if cfg.BalanceInterval <= 0 {
		cfg.BalanceInterval = DefaultBalanceInterval
	}
	return &Trader{
		cfg:       cfg,
		wallet:    w,
		submitter: submitter,
		pricer:    pricer,
		balances:  balances,
		publisher: publisher,
		logger:    logger.Named("trader"),
	}
}

func (t *Trader) accounts(ctx context.Context, mint solana.PublicKey) (pumpfun.TradeAccounts, error) {
	feeRecipient, err := t.pricer.FeeRecipient(ctx)
	if err != nil {
		t.logger.Warn("Fee recipient unavailable, using default", zap.Error(err))
		feeRecipient = solana.PublicKey{}
	}
	return pumpfun.NewTradeAccounts(mint, t.wallet.PublicKey, feeRecipient)
}

func (t *Trader) request(label string, ixs ...solana.Instruction) transaction.Request {
	return transaction.Request{
		Label:        label,
		Instructions: ixs,
		Priority:     t.cfg.Priority,
		Channel:      t.cfg.Channel,
		Payer:        t.wallet.PublicKey,
		Signers:      t.wallet.Signers(),
	}
}

// Buy spends the configured SOL on ev's token and returns the opened position.
func (t *Trader) Buy(ctx context.Context, ev eventlistener.CreationEvent) (*monitor.Position, error) {
	mint, err := solana.PublicKeyFromBase58(ev.AssetID)
	if err != nil {
		return nil, fmt.Errorf("invalid mint %q: %w", ev.AssetID, err)
	}
	accounts, err := t.accounts(ctx, mint)
	if err != nil {
		return nil, err
	}

	tokens, err := t.pricer.BuyQuote(ctx, mint, t.cfg.BuyLamports)
	if err != nil {
		return nil, fmt.Errorf("buy quote: %w", err)
	}
	maxSolCost := pumpfun.WithSlippageBuy(t.cfg.BuyLamports, t.cfg.BuySlippage)

	ataIx, err := t.wallet.CreateATAIdempotentInstruction(mint)
	if err != nil {
		return nil, err
	}
	buyIx := pumpfun.BuildBuyInstruction(accounts, tokens, maxSolCost)

	t.logger.Info(fmt.Sprintf("🛒 Buying %s (%s): %d tokens for max %d lamports",
		ev.Symbol, logger.ShortenAddress(ev.AssetID), tokens, maxSolCost))

	start := time.Now()
	res := t.submitter.Submit(ctx, t.request("buy", ataIx, buyIx))
	t.publishTrade(ev.AssetID, events.SideBuy, res, t.cfg.BuyLamports, tokens, time.Since(start))
	if !res.Success() {
		return nil, fmt.Errorf("%w: %v", ErrBuyFailed, res.Err)
	}

	// From here on the buy has landed; failures must not look like a failed buy.
	balance, err := t.waitBalance(ctx, accounts.AssociatedUser, func(b uint64) bool { return b > 0 })
	if err != nil {
		return nil, &UnmonitoredError{AssetID: ev.AssetID, Signature: res.Signature, Err: err}
	}
	entry, err := t.pricer.BuyCost(ctx, mint, balance)
	if err != nil {
		return nil, &UnmonitoredError{AssetID: ev.AssetID, Signature: res.Signature, Quantity: balance,
			Err: fmt.Errorf("entry quote: %w", err)}
	}

	pos := monitor.NewPosition(ev.AssetID, mint, balance, entry)
	t.publish(&events.PositionOpenedEvent{
		BaseEvent:  events.NewBase(events.PositionOpened),
		AssetID:    ev.AssetID,
		Quantity:   balance,
		EntryQuote: entry,
	})
	return pos, nil
}

// Exit sells the whole position; it implements monitor.Exiter.
func (t *Trader) Exit(ctx context.Context, pos *monitor.Position) (solana.Signature, error) {
	accounts, err := t.accounts(ctx, pos.Mint)
	if err != nil {
		return solana.Signature{}, err
	}
	quote, err := t.pricer.SellQuote(ctx, pos.Mint, pos.EntryQuantity)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sell quote: %w", err)
	}
	minOut := pumpfun.WithSlippageSell(quote, t.cfg.SellSlippage)
	sellIx := pumpfun.BuildSellInstruction(accounts, pos.EntryQuantity, minOut)

	start := time.Now()
	res := t.submitter.Submit(ctx, t.request("sell", sellIx))
	t.publishTrade(pos.AssetID, events.SideSell, res, quote, pos.EntryQuantity, time.Since(start))
	if !res.Success() {
		return solana.Signature{}, fmt.Errorf("%w: %v", ErrSellFailed, res.Err)
	}

	if _, err := t.waitBalance(ctx, accounts.AssociatedUser, func(b uint64) bool { return b == 0 }); err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %v", ErrSellFailed, err)
	}
	return res.Signature, nil
}

// waitBalance polls the token account until settled accepts its balance.
// Token accounts lag confirmation, so lookup errors are retried too.
func (t *Trader) waitBalance(ctx context.Context, account solana.PublicKey, settled func(uint64) bool) (uint64, error) {
	return backoff.Retry(ctx, func() (uint64, error) {
		b, err := t.balances.GetTokenAccountBalance(ctx, account)
		if err != nil {
			return 0, err
		}
		if !settled(b) {
			return b, fmt.Errorf("%w: balance %d", ErrBalanceMismatch, b)
		}
		return b, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(t.cfg.BalanceInterval)),
		backoff.WithMaxElapsedTime(t.cfg.BalanceTimeout),
	)
}

func (t *Trader) publishTrade(assetID string, side events.Side, res transaction.Result, lamports, tokens uint64, latency time.Duration) {
	ev := &events.TradeExecutedEvent{
		BaseEvent: events.NewBase(events.TradeExecuted),
		AssetID:   assetID,
		Side:      side,
		Channel:   string(res.Channel),
		Lamports:  lamports,
		Tokens:    tokens,
		Success:   res.Success(),
		Latency:   latency,
	}
	if !res.Signature.IsZero() {
		ev.Signature = res.Signature.String()
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	t.publish(ev)
}

func (t *Trader) publish(ev events.Event) {
	if t.publisher == nil {
		return
	}
	if err := t.publisher.Publish(ev); err != nil {
		t.logger.Debug("Event not published", zap.String("event_type", string(ev.Type())), zap.Error(err))
	}
}
