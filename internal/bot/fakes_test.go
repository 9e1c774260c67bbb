package bot

import (
	"context"
	"errors"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/eventlistener"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/events"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/monitor"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/transaction"
)

const testMint = "So11111111111111111111111111111111111111112"

type fakeSubmitter struct {
	mu       sync.Mutex
	requests []transaction.Request
	results  []transaction.Result
}

func (f *fakeSubmitter) Submit(_ context.Context, req transaction.Request) transaction.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.results) == 0 {
		return transaction.Result{Channel: req.Channel, Err: errors.New("no result queued")}
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res
}

type fakePricer struct {
	buyQuote  uint64
	buyCost   uint64
	sellQuote  uint64
	quoteErr   error
	buyCostErr error
	feeErr     error
}

func (f *fakePricer) BuyQuote(context.Context, solana.PublicKey, uint64) (uint64, error) {
	return f.buyQuote, f.quoteErr
}

func (f *fakePricer) BuyCost(context.Context, solana.PublicKey, uint64) (uint64, error) {
	if f.buyCostErr != nil {
		return 0, f.buyCostErr
	}
	return f.buyCost, f.quoteErr
}

func (f *fakePricer) SellQuote(context.Context, solana.PublicKey, uint64) (uint64, error) {
	return f.sellQuote, f.quoteErr
}

func (f *fakePricer) FeeRecipient(context.Context) (solana.PublicKey, error) {
	return solana.PublicKey{}, f.feeErr
}

// fakeBalances returns the queued balances in order, then repeats the last one.
type fakeBalances struct {
	mu       sync.Mutex
	balances []uint64
	err      error
	calls    int
}

func (f *fakeBalances) GetTokenAccountBalance(context.Context, solana.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	if len(f.balances) == 0 {
		return 0, nil
	}
	b := f.balances[0]
	if len(f.balances) > 1 {
		f.balances = f.balances[1:]
	}
	return b, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(e events.Event) error {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type())
	}
	return out
}

func (p *recordingPublisher) find(t events.EventType) events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e.Type() == t {
			return e
		}
	}
	return nil
}

type fakeSource struct {
	events chan eventlistener.CreationEvent
	errs   chan error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		events: make(chan eventlistener.CreationEvent, 8),
		errs:   make(chan error, 8),
	}
}

func (s *fakeSource) Events() <-chan eventlistener.CreationEvent { return s.events }
func (s *fakeSource) Errors() <-chan error                       { return s.errs }

type fakeBuyer struct {
	mu     sync.Mutex
	bought []string
	err    error
	// during runs while the buy is in flight.
	during func()
}

func (b *fakeBuyer) Buy(_ context.Context, ev eventlistener.CreationEvent) (*monitor.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bought = append(b.bought, ev.AssetID)
	if b.during != nil {
		b.during()
	}
	if b.err != nil {
		return nil, b.err
	}
	mint, err := solana.PublicKeyFromBase58(ev.AssetID)
	if err != nil {
		return nil, err
	}
	return monitor.NewPosition(ev.AssetID, mint, 1_000, 1_000_000_000), nil
}

func (b *fakeBuyer) calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.bought...)
}

type fakeWatcher struct {
	outcome monitor.Outcome
	runs    int
}

func (w *fakeWatcher) Run(context.Context, *monitor.Position, <-chan monitor.Command) monitor.Outcome {
	w.runs++
	return w.outcome
}

type fakeCurve struct {
	percent float64
	err     error
}

func (c *fakeCurve) CurvePercent(context.Context, solana.PublicKey) (float64, error) {
	return c.percent, c.err
}

type fakeObserver struct {
	mu        sync.Mutex
	decisions []string
	decodes   int
}

func (o *fakeObserver) ObserveToken(decision string) {
	o.mu.Lock()
	o.decisions = append(o.decisions, decision)
	o.mu.Unlock()
}

func (o *fakeObserver) seen() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.decisions...)
}

func (o *fakeObserver) IncDecodeErrors() {
	o.mu.Lock()
	o.decodes++
	o.mu.Unlock()
}
