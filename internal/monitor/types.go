// internal/monitor/types.go
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
)

// ErrQuoteUnavailable is carried by an Outcome when a price quote could not be obtained.
var ErrQuoteUnavailable = errors.New("price quote unavailable")

// Status: состояние позиции.
type Status int

const (
	StatusOpen Status = iota
	StatusExitPending
	StatusClosed
	// StatusFailed is Closed with an unrecoverable polling error; the tokens are still held.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusExitPending:
		return "exit_pending"
	case StatusClosed:
		return "closed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusFailed
}

// Position is the single held asset being watched.
type Position struct {
	AssetID       string
	Mint          solana.PublicKey
	EntryQuantity uint64 // raw token units
	EntryQuote    uint64 // lamports
	OpenedAt      time.Time

	mu     sync.Mutex
	status Status
}

func NewPosition(assetID string, mint solana.PublicKey, quantity, entryQuote uint64) *Position {
	return &Position{
		AssetID:       assetID,
		Mint:          mint,
		EntryQuantity: quantity,
		EntryQuote:    entryQuote,
		OpenedAt:      time.Now(),
		status:        StatusOpen,
	}
}

func (p *Position) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Position) setStatus(s Status) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

// Command is an operator instruction delivered outside the polling schedule.
type Command int

const (
	// CommandSell exits immediately through the normal exit path.
	CommandSell Command = iota
	// CommandExit stops monitoring without selling.
	CommandExit
)

func (c Command) String() string {
	if c == CommandSell {
		return "sell"
	}
	return "exit"
}

// Reason describes why monitoring ended.
type Reason string

const (
	ReasonTakeProfit       Reason = "take_profit"
	ReasonStopLoss         Reason = "stop_loss"
	ReasonManual           Reason = "manual_sell"
	ReasonOperatorExit     Reason = "operator_exit"
	ReasonQuoteUnavailable Reason = "quote_unavailable"
	ReasonCancelled        Reason = "cancelled"
)

// Outcome is the terminal result of Monitor.Run.
type Outcome struct {
	Status    Status
	Reason    Reason
	Signature solana.Signature
	ExitQuote uint64 // last sell quote seen, lamports
	Err       error
}

// Sold reports whether the position was closed by a confirmed exit transaction.
func (o Outcome) Sold() bool {
	return o.Status == StatusClosed && !o.Signature.IsZero()
}

// Trigger is the result of evaluating exit thresholds.
type Trigger int

const (
	TriggerNone Trigger = iota
	TriggerTakeProfit
	TriggerStopLoss
)

func (t Trigger) reason() Reason {
	if t == TriggerTakeProfit {
		return ReasonTakeProfit
	}
	return ReasonStopLoss
}

// Quoter prices the held tokens.
type Quoter interface {
	// BuyCost: сколько лампортов стоит купить tokens сейчас.
	BuyCost(ctx context.Context, mint solana.PublicKey, tokens uint64) (uint64, error)
	// SellQuote: сколько лампортов принесёт продажа tokens сейчас.
	SellQuote(ctx context.Context, mint solana.PublicKey, tokens uint64) (uint64, error)
}

// Exiter submits and confirms the disposal of a position.
type Exiter interface {
	Exit(ctx context.Context, pos *Position) (solana.Signature, error)
}

// Ticker abstracts time.Ticker so tests can drive the schedule.
type Ticker interface {
	C() <-chan time.Time
	Stop()
	Reset(d time.Duration)
}

type realTicker struct{ *time.Ticker }

func (t realTicker) C() <-chan time.Time { return t.Ticker.C }

func newRealTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }
