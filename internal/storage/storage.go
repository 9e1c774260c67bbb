// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("record not found")

// Trade: одна попытка покупки или продажи.
type Trade struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	AssetID   string    `gorm:"index;size:64" json:"asset_id"`
	Side      string    `gorm:"size:8" json:"side"`
	Channel   string    `gorm:"size:16" json:"channel"`
	Signature string    `gorm:"index;size:128" json:"signature"`
	Lamports  uint64    `json:"lamports"`
	Tokens    uint64    `json:"tokens"`
	Success   bool      `json:"success"`
	Error     string    `gorm:"type:text" json:"error,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Position: итог одной позиции, записывается при закрытии.
type Position struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	AssetID    string    `gorm:"uniqueIndex;size:64" json:"asset_id"`
	Status     string    `gorm:"size:16" json:"status"`
	Reason     string    `gorm:"size:32" json:"reason"`
	Signature  string    `gorm:"size:128" json:"signature,omitempty"`
	Quantity   uint64    `json:"quantity"`
	EntryQuote uint64    `json:"entry_quote"`
	ExitQuote  uint64    `json:"exit_quote"`
	PnLPercent float64   `gorm:"column:pnl_percent" json:"pnl_percent"`
	OpenedAt   time.Time `json:"opened_at"`
	ClosedAt   time.Time `json:"closed_at"`
}

// Store persists the trade journal.
type Store interface {
	SaveTrade(ctx context.Context, t *Trade) error
	ListTrades(ctx context.Context, assetID string, limit int) ([]*Trade, error)
	// SavePosition inserts or updates the row for p.AssetID.
	SavePosition(ctx context.Context, p *Position) error
	GetPosition(ctx context.Context, assetID string) (*Position, error)
	ListPositions(ctx context.Context, limit int) ([]*Position, error)
	Close() error
}
