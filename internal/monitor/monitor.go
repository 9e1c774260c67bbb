// ==============================================
// File: internal/monitor/monitor.go
// ==============================================
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultInterval = time.Second

var hundred = decimal.NewFromInt(100)

// Config holds exit thresholds in percent; zero disables a threshold.
type Config struct {
	Interval   time.Duration
	TakeProfit float64
	StopLoss   float64
}

// PnLObserver receives the profit/loss percentage computed on every tick.
type PnLObserver interface {
	ObservePnL(percent float64)
}

type Option func(*Monitor)

// WithTicker overrides the ticker constructor.
func WithTicker(f func(time.Duration) Ticker) Option {
	return func(m *Monitor) { m.newTicker = f }
}

func WithPnLObserver(o PnLObserver) Option {
	return func(m *Monitor) { m.observer = o }
}

// Monitor polls a Quoter for one position and exits it through an Exiter
// when take-profit, stop-loss or a manual command fires.
type Monitor struct {
	cfg       Config
	quoter    Quoter
	exiter    Exiter
	newTicker func(time.Duration) Ticker
	observer  PnLObserver
	logger    *zap.Logger
}

func New(cfg Config, quoter Quoter, exiter Exiter, log *zap.Logger, opts ...Option) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	m := &Monitor{
		cfg:       cfg,
		quoter:    quoter,
		exiter:    exiter,
		newTicker: newRealTicker,
		logger:    log.Named("monitor"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Evaluate compares a sell quote against the entry quote.
// Take-profit is checked first; thresholds <= 0 are disabled.
func Evaluate(entry, sell decimal.Decimal, takeProfit, stopLoss float64) Trigger {
	if takeProfit > 0 {
		target := entry.Mul(hundred.Add(decimal.NewFromFloat(takeProfit))).Div(hundred)
		if sell.GreaterThanOrEqual(target) {
			return TriggerTakeProfit
		}
	}
	if stopLoss > 0 {
		floor := entry.Mul(hundred.Sub(decimal.NewFromFloat(stopLoss))).Div(hundred)
		if sell.LessThanOrEqual(floor) {
			return TriggerStopLoss
		}
	}
	return TriggerNone
}

// ChangePercent returns (current-entry)/entry*100, or zero for a zero entry.
func ChangePercent(entry, current decimal.Decimal) float64 {
	if entry.IsZero() {
		return 0
	}
	return current.Sub(entry).Div(entry).Mul(hundred).InexactFloat64()
}

func lamportsToSOL(v uint64) decimal.Decimal {
	return decimal.NewFromUint64(v).Shift(-9)
}

// run holds the per-position loop state.
type run struct {
	m       *Monitor
	pos     *Position
	ticker  Ticker
	ticking bool
	last    uint64
}

func (r *run) stopTicker() {
	if r.ticking {
		r.ticker.Stop()
		r.ticking = false
	}
}

func (r *run) finish(status Status, reason Reason, err error) Outcome {
	r.stopTicker()
	r.pos.setStatus(status)
	return Outcome{Status: status, Reason: reason, ExitQuote: r.last, Err: err}
}

// Run watches pos until it reaches a terminal state and returns how it ended.
// The ticker is stopped before an exit is dispatched, so ticks never overlap an
// exit in flight; a failed exit resumes polling.
func (m *Monitor) Run(ctx context.Context, pos *Position, commands <-chan Command) Outcome {
	r := &run{m: m, pos: pos, ticker: m.newTicker(m.cfg.Interval), ticking: true}
	pos.setStatus(StatusOpen)

	m.logger.Info(fmt.Sprintf("🚀 Monitoring %s: %d tokens, entry %s SOL",
		logger.ShortenAddress(pos.Mint.String()), pos.EntryQuantity, lamportsToSOL(pos.EntryQuote).String()),
		zap.Float64("take_profit", m.cfg.TakeProfit),
		zap.Float64("stop_loss", m.cfg.StopLoss),
		zap.Duration("interval", m.cfg.Interval))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Monitoring cancelled")
			return r.finish(StatusClosed, ReasonCancelled, ctx.Err())

		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			m.logger.Debug("Command received", zap.Stringer("command", cmd))
			switch cmd {
			case CommandSell:
				if out, done := r.exit(ctx, ReasonManual); done {
					return out
				}
			case CommandExit:
				m.logger.Info("👋 Exit requested, leaving position unsold")
				return r.finish(StatusClosed, ReasonOperatorExit, nil)
			}

		case <-r.ticker.C():
			trigger, err := r.tick(ctx)
			if err != nil {
				m.logger.Error("❌ Price quote unavailable, monitoring stopped", zap.Error(err))
				return r.finish(StatusFailed, ReasonQuoteUnavailable, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err))
			}
			if trigger == TriggerNone {
				continue
			}
			if out, done := r.exit(ctx, trigger.reason()); done {
				return out
			}
		}
	}
}

func (r *run) tick(ctx context.Context) (Trigger, error) {
	m, pos := r.m, r.pos

	buy, err := m.quoter.BuyCost(ctx, pos.Mint, pos.EntryQuantity)
	if err != nil {
		return TriggerNone, fmt.Errorf("buy quote: %w", err)
	}
	sell, err := m.quoter.SellQuote(ctx, pos.Mint, pos.EntryQuantity)
	if err != nil {
		return TriggerNone, fmt.Errorf("sell quote: %w", err)
	}
	r.last = sell

	entry := decimal.NewFromUint64(pos.EntryQuote)
	current := decimal.NewFromUint64(sell)
	change := ChangePercent(entry, current)
	if m.observer != nil {
		m.observer.ObservePnL(change)
	}

	trigger := Evaluate(entry, current, m.cfg.TakeProfit, m.cfg.StopLoss)
	switch trigger {
	case TriggerTakeProfit:
		m.logger.Info(fmt.Sprintf("🎯 Take profit reached %s", logger.Percent(change)))
	case TriggerStopLoss:
		m.logger.Info(fmt.Sprintf("🛑 Stop loss reached %s", logger.Percent(change)))
	default:
		m.logger.Info(fmt.Sprintf("📊 Buy %s SOL | Sell %s SOL | %s",
			lamportsToSOL(buy).StringFixed(6), lamportsToSOL(sell).StringFixed(6), logger.Percent(change)))
	}
	return trigger, nil
}

// exit runs the exit path. It returns done=false when the exit failed and
// polling has resumed.
func (r *run) exit(ctx context.Context, reason Reason) (Outcome, bool) {
	m, pos := r.m, r.pos

	r.stopTicker()
	pos.setStatus(StatusExitPending)
	m.logger.Info("💸 Selling position", zap.String("reason", string(reason)))

	sig, err := m.exiter.Exit(ctx, pos)
	if err != nil {
		if ctx.Err() != nil {
			return r.finish(StatusClosed, ReasonCancelled, ctx.Err()), true
		}
		m.logger.Error("❌ Exit failed, resuming monitoring", zap.Error(err))
		pos.setStatus(StatusOpen)
		r.ticker.Reset(m.cfg.Interval)
		r.ticking = true
		return Outcome{}, false
	}

	pos.setStatus(StatusClosed)
	m.logger.Info("✅ Position closed",
		zap.String("reason", string(reason)),
		zap.String("signature", logger.ShortenSignature(sig.String())))
	return Outcome{Status: StatusClosed, Reason: reason, Signature: sig, ExitQuote: r.last}, true
}
