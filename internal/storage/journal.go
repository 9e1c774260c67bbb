package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/events"
	"go.uber.org/zap"
)

// Journal records trade lifecycle events from the bus into a Store.
type Journal struct {
	store  Store
	logger *zap.Logger
	subs   []events.Subscription
}

func NewJournal(store Store, logger *zap.Logger) *Journal {
	return &Journal{store: store, logger: logger.Named("journal")}
}

// Attach subscribes the journal to the events it records.
func (j *Journal) Attach(bus *events.Bus) {
	for _, t := range []events.EventType{events.TradeExecuted, events.PositionOpened, events.PositionClosed} {
		j.subs = append(j.subs, bus.Subscribe(t, j))
	}
}

func (j *Journal) Detach() {
	for _, s := range j.subs {
		s.Unsubscribe()
	}
	j.subs = nil
}

// Handle implements events.Handler.
func (j *Journal) Handle(ctx context.Context, e events.Event) error {
	var err error
	switch ev := e.(type) {
	case *events.TradeExecutedEvent:
		err = j.store.SaveTrade(ctx, &Trade{
			ID:        ev.ID(),
			AssetID:   ev.AssetID,
			Side:      string(ev.Side),
			Channel:   ev.Channel,
			Signature: ev.Signature,
			Lamports:  ev.Lamports,
			Tokens:    ev.Tokens,
			Success:   ev.Success,
			Error:     ev.Error,
			LatencyMs: ev.Latency.Milliseconds(),
			CreatedAt: ev.Timestamp(),
		})
	case *events.PositionOpenedEvent:
		err = j.store.SavePosition(ctx, &Position{
			ID:         ev.ID(),
			AssetID:    ev.AssetID,
			Status:     "open",
			Quantity:   ev.Quantity,
			EntryQuote: ev.EntryQuote,
			OpenedAt:   ev.Timestamp(),
		})
	case *events.PositionClosedEvent:
		err = j.closePosition(ctx, ev)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("journal %s: %w", e.Type(), err)
	}
	j.logger.Debug("Event recorded", zap.String("event_type", string(e.Type())), zap.String("event_id", e.ID()))
	return nil
}

func (j *Journal) closePosition(ctx context.Context, ev *events.PositionClosedEvent) error {
	p, err := j.store.GetPosition(ctx, ev.AssetID)
	switch {
	case errors.Is(err, ErrNotFound):
		p = &Position{ID: ev.ID(), AssetID: ev.AssetID, EntryQuote: ev.EntryQuote, OpenedAt: ev.Timestamp()}
	case err != nil:
		return err
	}
	p.Status = ev.Status
	p.Reason = ev.Reason
	p.Signature = ev.Signature
	p.ExitQuote = ev.ExitQuote
	p.PnLPercent = ev.PnLPercent
	p.ClosedAt = ev.Timestamp()
	if p.ClosedAt.IsZero() {
		p.ClosedAt = time.Now().UTC()
	}
	return j.store.SavePosition(ctx, p)
}
