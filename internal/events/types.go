// internal/events/types.go
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event.
type EventType string

const (
	TokenDetected  EventType = "token.detected"
	TokenRejected  EventType = "token.rejected"
	TradeExecuted  EventType = "trade.executed"
	PositionOpened EventType = "position.opened"
	PositionClosed EventType = "position.closed"
	ListenerState  EventType = "listener.state"

	// All subscribes a handler to every event type.
	All EventType = "*"
)

// Event is the base interface for all events.
type Event interface {
	ID() string
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventID   string
	EventType EventType
	EventTime time.Time
}

// NewBase stamps a new event of type t with a fresh id and the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventID: uuid.NewString(), EventType: t, EventTime: time.Now().UTC()}
}

func (e BaseEvent) ID() string           { return e.EventID }
func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.EventTime }

// TokenDetectedEvent is emitted for every creation event the session sees.
type TokenDetectedEvent struct {
	BaseEvent
	AssetID   string
	Name      string
	Symbol    string
	Creator   string
	Signature string
}

// TokenRejectedEvent is emitted when an admitted token is abandoned before a buy.
type TokenRejectedEvent struct {
	BaseEvent
	AssetID string
	Reason  string
}

// Side: направление сделки.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TradeExecutedEvent is emitted after every submission attempt, successful or not.
type TradeExecutedEvent struct {
	BaseEvent
	AssetID   string
	Side      Side
	Channel   string
	Signature string
	Lamports  uint64 // SOL spent (buy) or expected out (sell)
	Tokens    uint64
	Success   bool
	Error     string
	Latency   time.Duration
}

// PositionOpenedEvent is emitted once the bought tokens are visible on chain.
type PositionOpenedEvent struct {
	BaseEvent
	AssetID    string
	Quantity   uint64
	EntryQuote uint64
}

// PositionClosedEvent is emitted when monitoring ends, whatever the reason.
type PositionClosedEvent struct {
	BaseEvent
	AssetID    string
	Status     string
	Reason     string
	Signature  string
	EntryQuote uint64
	ExitQuote  uint64
	PnLPercent float64
}

// ListenerStateEvent mirrors event listener state transitions.
type ListenerStateEvent struct {
	BaseEvent
	State string
}

// Handler processes events of a specific type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc is an adapter to allow the use of ordinary functions as event handlers.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription represents a subscription to events.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id  string
	bus *Bus
	typ EventType
}

func (s *subscription) Unsubscribe() {
	s.bus.unsubscribe(s.id, s.typ)
}
