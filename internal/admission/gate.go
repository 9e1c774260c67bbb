// Package admission decides which creation events may start a trade.
package admission

import "sync"

// Gate admits at most one asset at a time and never admits the same asset
// twice. The processing flag and the seen set change together under one lock.
type Gate struct {
	mu         sync.Mutex
	processing bool
	seen       map[string]struct{}
}

func NewGate() *Gate {
	return &Gate{seen: make(map[string]struct{})}
}

// Admit records assetID and marks the gate busy. It returns false when a
// trade is already in flight or the asset was admitted before.
func (g *Gate) Admit(assetID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.processing {
		return false
	}
	if _, ok := g.seen[assetID]; ok {
		return false
	}
	g.seen[assetID] = struct{}{}
	g.processing = true
	return true
}

// Release clears the busy flag. Seen assets stay recorded.
func (g *Gate) Release() {
	g.mu.Lock()
	g.processing = false
	g.mu.Unlock()
}

func (g *Gate) Processing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.processing
}

func (g *Gate) Seen(assetID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.seen[assetID]
	return ok
}

// Len returns how many distinct assets have been admitted.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
