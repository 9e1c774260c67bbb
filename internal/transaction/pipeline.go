// internal/transaction/pipeline.go
package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/blockchain"
	"go.uber.org/zap"
)

// Pipeline собирает, подписывает и отправляет транзакции через зарегистрированные каналы.
type Pipeline struct {
	client    blockchain.Client
	senders   map[Channel]Sender
	estimator *FeeEstimator
	observer  Observer
	logger    *zap.Logger
}

type PipelineOption func(*Pipeline)

func WithEstimator(e *FeeEstimator) PipelineOption {
	return func(p *Pipeline) { p.estimator = e }
}

func WithObserver(o Observer) PipelineOption {
	return func(p *Pipeline) { p.observer = o }
}

func NewPipeline(client blockchain.Client, logger *zap.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		client:  client,
		senders: make(map[Channel]Sender),
		logger:  logger.Named("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register adds or replaces the sender for its channel.
func (p *Pipeline) Register(s Sender) {
	p.senders[s.Channel()] = s
}

// Submit runs one attempt. There is no automatic retry: the caller decides
// what to do with a failed Result.
func (p *Pipeline) Submit(ctx context.Context, req Request) Result {
	start := time.Now()
	res := p.submit(ctx, req)
	if p.observer != nil {
		p.observer.ObserveSubmission(string(req.Channel), res.Success(), time.Since(start).Seconds())
	}

	fields := []zap.Field{
		zap.String("label", req.Label),
		zap.String("channel", string(req.Channel)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if !res.Signature.IsZero() {
		fields = append(fields, zap.String("signature", res.Signature.String()))
	}
	if res.Success() {
		p.logger.Info("✅ Transaction confirmed", append(fields, zap.Uint64("slot", res.Slot))...)
	} else {
		p.logger.Error("❌ Submission failed", append(fields, zap.Error(res.Err))...)
	}
	return res
}

func (p *Pipeline) submit(ctx context.Context, req Request) Result {
	sender, ok := p.senders[req.Channel]
	if !ok {
		return Result{Channel: req.Channel, Err: fmt.Errorf("%w: %q", ErrUnknownChannel, req.Channel)}
	}

	priority, err := p.resolvePriority(ctx, req)
	if err != nil {
		return Result{Channel: req.Channel, Err: err}
	}

	bh, err := backoff.Retry(ctx, func() (blockchain.BlockhashInfo, error) {
		return p.client.GetLatestBlockhash(ctx)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(100*time.Millisecond)),
		backoff.WithMaxTries(3),
	)
	if err != nil {
		return Result{Channel: req.Channel, Err: fmt.Errorf("failed to get latest blockhash: %w", err)}
	}

	ixs := AssembleInstructions(req.Instructions, priority, sender.Trailer(req.Payer)...)
	tx, err := BuildTransaction(ixs, bh.Blockhash, req.Payer, req.Signers)
	if err != nil {
		return Result{Channel: req.Channel, Err: err}
	}

	p.logger.Debug("Dispatching transaction",
		zap.String("label", req.Label),
		zap.Int("instructions", len(ixs)),
		zap.Uint64("last_valid_block_height", bh.LastValidBlockHeight))

	res := sender.Send(ctx, tx, bh)
	res.Channel = req.Channel
	return res
}

// resolvePriority replaces the requested limits with an estimate when asked to.
// An unusable estimate aborts the attempt instead of defaulting to zero.
func (p *Pipeline) resolvePriority(ctx context.Context, req Request) (*PriorityConfig, error) {
	if req.Priority == nil || !req.Priority.Estimate {
		return req.Priority, nil
	}
	if p.estimator == nil {
		return nil, fmt.Errorf("%w: no estimator configured", ErrEstimationUnavailable)
	}

	est, err := p.estimator.Estimate(ctx, req.Payer, req.Instructions, *req.Priority)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEstimationUnavailable, err)
	}
	if est == nil {
		return nil, ErrEstimationUnavailable
	}
	return &PriorityConfig{UnitLimit: est.UnitLimit, UnitPrice: est.UnitPrice}, nil
}
