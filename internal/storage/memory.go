package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps the journal in process memory; it is the default when no
// database is configured.
type MemoryStore struct {
	mu        sync.RWMutex
	trades    []*Trade
	positions map[string]*Position
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{positions: make(map[string]*Position)}
}

func (m *MemoryStore) SaveTrade(_ context.Context, t *Trade) error {
	cp := *t
	m.mu.Lock()
	m.trades = append(m.trades, &cp)
	m.mu.Unlock()
	return nil
}

// ListTrades returns trades newest first; empty assetID matches all, limit <= 0 means no limit.
func (m *MemoryStore) ListTrades(_ context.Context, assetID string, limit int) ([]*Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Trade
	for i := len(m.trades) - 1; i >= 0; i-- {
		t := m.trades[i]
		if assetID != "" && t.AssetID != assetID {
			continue
		}
		cp := *t
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) SavePosition(_ context.Context, p *Position) error {
	cp := *p
	m.mu.Lock()
	if prev, ok := m.positions[p.AssetID]; ok && cp.ID == "" {
		cp.ID = prev.ID
	}
	m.positions[p.AssetID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) GetPosition(_ context.Context, assetID string) (*Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.positions[assetID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ListPositions returns positions ordered by open time, newest first.
func (m *MemoryStore) ListPositions(_ context.Context, limit int) ([]*Position, error) {
	m.mu.RLock()
	out := make([]*Position, 0, len(m.positions))
	for _, p := range m.positions {
		cp := *p
		out = append(out, &cp)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
