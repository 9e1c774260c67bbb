package storage

import (
	"context"
	"testing"
	"time"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestJournalRecordsLifecycle(t *testing.T) {
	store := NewMemoryStore()
	bus := events.NewBus(zaptest.NewLogger(t), 16)
	j := NewJournal(store, zaptest.NewLogger(t))
	j.Attach(bus)

	require.NoError(t, bus.Publish(&events.TokenDetectedEvent{BaseEvent: events.NewBase(events.TokenDetected), AssetID: "mint1"}))
	require.NoError(t, bus.Publish(&events.TradeExecutedEvent{
		BaseEvent: events.NewBase(events.TradeExecuted),
		AssetID:   "mint1", Side: events.SideBuy, Channel: "relay",
		Signature: "sig1", Lamports: 1000, Tokens: 50, Success: true, Latency: 1500 * time.Millisecond,
	}))
	require.NoError(t, bus.Publish(&events.PositionOpenedEvent{
		BaseEvent: events.NewBase(events.PositionOpened), AssetID: "mint1", Quantity: 50, EntryQuote: 1010,
	}))
	require.NoError(t, bus.Publish(&events.PositionClosedEvent{
		BaseEvent: events.NewBase(events.PositionClosed), AssetID: "mint1",
		Status: "closed", Reason: "take_profit", Signature: "sig2", ExitQuote: 2020, PnLPercent: 100,
	}))
	require.NoError(t, bus.Shutdown(context.Background()))

	trades, err := store.ListTrades(context.Background(), "mint1", 0)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "buy", trades[0].Side)
	assert.Equal(t, int64(1500), trades[0].LatencyMs)
	assert.True(t, trades[0].Success)

	pos, err := store.GetPosition(context.Background(), "mint1")
	require.NoError(t, err)
	assert.Equal(t, "closed", pos.Status)
	assert.Equal(t, uint64(50), pos.Quantity)
	assert.Equal(t, uint64(1010), pos.EntryQuote)
	assert.Equal(t, uint64(2020), pos.ExitQuote)
	assert.Equal(t, "take_profit", pos.Reason)
	assert.False(t, pos.OpenedAt.IsZero())
	assert.False(t, pos.ClosedAt.Before(pos.OpenedAt))
}

func TestJournalClosedWithoutOpen(t *testing.T) {
	store := NewMemoryStore()
	j := NewJournal(store, zaptest.NewLogger(t))

	err := j.Handle(context.Background(), &events.PositionClosedEvent{
		BaseEvent: events.NewBase(events.PositionClosed), AssetID: "m", Status: "failed", Reason: "quote_unavailable",
	})
	require.NoError(t, err)

	pos, err := store.GetPosition(context.Background(), "m")
	require.NoError(t, err)
	assert.Equal(t, "failed", pos.Status)
	assert.NotEmpty(t, pos.ID)
}

func TestMemoryStoreListTrades(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.SaveTrade(ctx, &Trade{ID: id, AssetID: "x"}))
	}
	require.NoError(t, store.SaveTrade(ctx, &Trade{ID: "d", AssetID: "y"}))

	all, err := store.ListTrades(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "d", all[0].ID)

	limited, err := store.ListTrades(ctx, "x", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "c", limited[0].ID)
	assert.Equal(t, "b", limited[1].ID)

	_, err = store.GetPosition(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
