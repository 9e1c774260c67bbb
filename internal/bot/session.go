// =============================
// File: internal/bot/session.go
// =============================
package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/admission"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/config"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/eventlistener"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/events"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/logger"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/monitor"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrSourceClosed is returned when the event stream ends before a trade completes.
var ErrSourceClosed = errors.New("event source closed")

// Token decisions reported to the observer.
const (
	DecisionAdmitted  = "admitted"
	DecisionDuplicate = "duplicate"
	DecisionFiltered  = "filtered"
	DecisionBuyFailed = "buy_failed"
	DecisionBusy      = "busy"
)

// step is what handle did with one event.
type step int

const (
	stepSkipped  step = iota // gate refused the event
	stepReleased             // admitted, then rejected and the gate released
	stepDone                 // the session is over
)

// Source is a stream of creation events; *eventlistener.Subscription implements it.
type Source interface {
	Events() <-chan eventlistener.CreationEvent
	Errors() <-chan error
}

type Buyer interface {
	Buy(ctx context.Context, ev eventlistener.CreationEvent) (*monitor.Position, error)
}

type PositionWatcher interface {
	Run(ctx context.Context, pos *monitor.Position, commands <-chan monitor.Command) monitor.Outcome
}

type CurveChecker interface {
	CurvePercent(ctx context.Context, mint solana.PublicKey) (float64, error)
}

// SessionObserver receives per-token decisions and decode failures.
type SessionObserver interface {
	ObserveToken(decision string)
	IncDecodeErrors()
}

// SessionConfig: режим слушателя и границы фильтра кривой.
type SessionConfig struct {
	Mode       string
	MinPercent float64
	MaxPercent float64
}

type SessionOption func(*Session)

func WithCurveChecker(c CurveChecker) SessionOption {
	return func(s *Session) { s.curve = c }
}

func WithSessionObserver(o SessionObserver) SessionOption {
	return func(s *Session) { s.observer = o }
}

// Session drives one trade: it admits the first acceptable creation event,
// buys it, watches the position and returns once monitoring ends.
type Session struct {
	cfg       SessionConfig
	gate      *admission.Gate
	buyer     Buyer
	watcher   PositionWatcher
	curve     CurveChecker
	observer  SessionObserver
	publisher Publisher
	commands  <-chan monitor.Command
	logger    *zap.Logger
}

func NewSession(cfg SessionConfig, gate *admission.Gate, buyer Buyer, watcher PositionWatcher,
	publisher Publisher, commands <-chan monitor.Command, logger *zap.Logger, opts ...SessionOption) *Session {
	s := &Session{
		cfg:       cfg,
		gate:      gate,
		buyer:     buyer,
		watcher:   watcher,
		publisher: publisher,
		commands:  commands,
		logger:    logger.Named("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run consumes src until a position has been watched to completion, the
// operator exits, src closes or ctx is cancelled. Events arriving while a
// trade is in flight are dropped: the gate refuses them while it is held,
// and whatever queued up behind a rejected token is discarded on release.
func (s *Session) Run(ctx context.Context, src Source) (monitor.Outcome, error) {
	s.logger.Info("👀 Waiting for new pump.fun tokens", zap.String("mode", s.cfg.Mode))

	errs := src.Errors()
	for {
		select {
		case <-ctx.Done():
			return monitor.Outcome{Status: monitor.StatusClosed, Reason: monitor.ReasonCancelled}, ctx.Err()

		case cmd := <-s.commands:
			if cmd == monitor.CommandExit {
				s.logger.Info("🚪 Exit requested before any position was opened")
				return monitor.Outcome{Status: monitor.StatusClosed, Reason: monitor.ReasonOperatorExit}, nil
			}
			s.logger.Info("Nothing to sell yet")

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.reportError(err)

		case ev, ok := <-src.Events():
			if !ok {
				return monitor.Outcome{}, ErrSourceClosed
			}
			outcome, st := s.handle(ctx, ev)
			switch st {
			case stepDone:
				return outcome, outcome.Err
			case stepReleased:
				if !s.dropQueued(src.Events()) {
					return monitor.Outcome{}, ErrSourceClosed
				}
			}
		}
	}
}

// dropQueued discards events buffered while the gate was held. It reports
// false once events is closed.
func (s *Session) dropQueued(queued <-chan eventlistener.CreationEvent) bool {
	for {
		select {
		case ev, ok := <-queued:
			if !ok {
				return false
			}
			s.observe(DecisionBusy)
			s.logger.Debug("Token arrived while busy, dropped", zap.String("mint", ev.AssetID))
		default:
			return true
		}
	}
}

func (s *Session) reportError(err error) {
	var decodeErr *eventlistener.DecodeError
	if errors.As(err, &decodeErr) {
		if s.observer != nil {
			s.observer.IncDecodeErrors()
		}
		s.logger.Debug("Undecodable event", zap.Error(err))
		return
	}
	s.logger.Warn("Listener error", zap.Error(err))
}

// handle runs one creation event through the gate, the optional curve filter
// and the buy.
func (s *Session) handle(ctx context.Context, ev eventlistener.CreationEvent) (monitor.Outcome, step) {
	s.publish(&events.TokenDetectedEvent{
		BaseEvent: events.NewBase(events.TokenDetected),
		AssetID:   ev.AssetID,
		Name:      ev.Name,
		Symbol:    ev.Symbol,
		Creator:   ev.Creator,
		Signature: ev.Signature,
	})

	if !s.gate.Admit(ev.AssetID) {
		s.observe(DecisionDuplicate)
		s.logger.Debug("Token skipped", zap.String("mint", ev.AssetID))
		return monitor.Outcome{}, stepSkipped
	}
	log := s.logger.With(zap.String("mint", ev.AssetID))
	log.Info(fmt.Sprintf("🎯 New token %s (%s) by %s",
		ev.Name, ev.Symbol, logger.ShortenAddress(ev.Creator)))

	if s.cfg.Mode == config.ListenerTradeEvent {
		if reason, ok := s.checkCurve(ctx, ev); !ok {
			log.Info("⏭️  " + reason)
			s.observe(DecisionFiltered)
			s.reject(ev.AssetID, reason)
			return monitor.Outcome{}, stepReleased
		}
	}

	pos, err := s.buyer.Buy(ctx, ev)
	if errors.Is(err, ErrPositionUnmonitored) {
		// The gate stays held: tokens may be in the wallet.
		log.Error("💥 Bought but not monitored, inspect the wallet", zap.Error(err))
		s.observe(DecisionBuyFailed)
		outcome := monitor.Outcome{Status: monitor.StatusFailed, Reason: monitor.ReasonQuoteUnavailable, Err: err}
		s.publishUnmonitored(ev.AssetID)
		return outcome, stepDone
	}
	if err != nil {
		log.Error("❌ Buy failed", zap.Error(err))
		s.observe(DecisionBuyFailed)
		s.reject(ev.AssetID, err.Error())
		if ctx.Err() != nil {
			return monitor.Outcome{Status: monitor.StatusClosed, Reason: monitor.ReasonCancelled, Err: ctx.Err()}, stepDone
		}
		return monitor.Outcome{}, stepReleased
	}
	s.observe(DecisionAdmitted)
	log.Info(fmt.Sprintf("✅ Position opened: %d tokens, entry %s SOL",
		pos.EntryQuantity, lamportsToSOL(pos.EntryQuote)))

	outcome := s.watcher.Run(ctx, pos, s.commands)
	s.publishClosed(pos, outcome)
	s.logOutcome(log, outcome)
	return outcome, stepDone
}

func (s *Session) checkCurve(ctx context.Context, ev eventlistener.CreationEvent) (string, bool) {
	if s.curve == nil {
		return "", true
	}
	mint, err := solana.PublicKeyFromBase58(ev.AssetID)
	if err != nil {
		return fmt.Sprintf("invalid mint: %v", err), false
	}
	percent, err := s.curve.CurvePercent(ctx, mint)
	if err != nil {
		return fmt.Sprintf("bonding curve unavailable: %v", err), false
	}
	res := pumpfun.CheckBondingCurve(percent, s.cfg.MinPercent, s.cfg.MaxPercent)
	return res.Message, res.OK
}

// reject releases the gate; the asset stays in the dedup set.
func (s *Session) reject(assetID, reason string) {
	s.gate.Release()
	s.publish(&events.TokenRejectedEvent{
		BaseEvent: events.NewBase(events.TokenRejected),
		AssetID:   assetID,
		Reason:    reason,
	})
}

func (s *Session) publishClosed(pos *monitor.Position, outcome monitor.Outcome) {
	ev := &events.PositionClosedEvent{
		BaseEvent:  events.NewBase(events.PositionClosed),
		AssetID:    pos.AssetID,
		Status:     outcome.Status.String(),
		Reason:     string(outcome.Reason),
		EntryQuote: pos.EntryQuote,
		ExitQuote:  outcome.ExitQuote,
	}
	if !outcome.Signature.IsZero() {
		ev.Signature = outcome.Signature.String()
	}
	if outcome.ExitQuote > 0 {
		ev.PnLPercent = monitor.ChangePercent(lamportsToSOL(pos.EntryQuote), lamportsToSOL(outcome.ExitQuote))
	}
	s.publish(ev)
}

func (s *Session) publishUnmonitored(assetID string) {
	s.publish(&events.PositionClosedEvent{
		BaseEvent: events.NewBase(events.PositionClosed),
		AssetID:   assetID,
		Status:    monitor.StatusFailed.String(),
		Reason:    string(monitor.ReasonQuoteUnavailable),
	})
}

func (s *Session) logOutcome(log *zap.Logger, outcome monitor.Outcome) {
	switch {
	case outcome.Sold():
		log.Info("💰 Position sold",
			zap.String("reason", string(outcome.Reason)),
			zap.String("signature", logger.ShortenSignature(outcome.Signature.String())))
	case outcome.Status == monitor.StatusFailed:
		log.Error("💥 Monitoring failed, tokens still held",
			zap.String("reason", string(outcome.Reason)), zap.Error(outcome.Err))
	default:
		log.Info("🏁 Monitoring stopped", zap.String("reason", string(outcome.Reason)))
	}
}

func (s *Session) observe(decision string) {
	if s.observer != nil {
		s.observer.ObserveToken(decision)
	}
}

func (s *Session) publish(ev events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ev); err != nil {
		s.logger.Debug("Event not published", zap.String("event_type", string(ev.Type())), zap.Error(err))
	}
}

func lamportsToSOL(v uint64) decimal.Decimal {
	return decimal.NewFromUint64(v).Shift(-9)
}
