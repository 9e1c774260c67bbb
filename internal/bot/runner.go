// internal/bot/runner.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/admission"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/config"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/eventlistener"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/events"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/export"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/license"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/monitor"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/storage"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/storage/postgres"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/transaction"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/utils/metrics"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/wallet"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	licenseHeartbeatInterval = time.Hour
	eventBusBuffer           = 256
)

type Runner struct {
	cfg      *config.Config
	logger   *zap.Logger
	input    io.Reader
	shutdown *ShutdownHandler
}

// NewRunner принимает неизменяемый cfg и логгер.
func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		logger:   logger,
		input:    os.Stdin,
		shutdown: NewShutdownHandler(logger, DefaultShutdownTimeout),
	}
}

// Run wires every component, trades at most one token and shuts down. A
// cancelled ctx is a clean exit.
func (r *Runner) Run(ctx context.Context) error {
	defer func() {
		// Свежий контекст: ctx к этому моменту может быть уже отменён.
		if err := r.shutdown.Shutdown(context.Background()); err != nil {
			r.logger.Warn("Shutdown finished with errors", zap.Error(err))
		}
	}()

	validator, err := r.validateLicense(ctx)
	if err != nil {
		return fmt.Errorf("license validation failed: %w", err)
	}

	w, err := wallet.NewWallet(r.cfg.WalletPrivateKey)
	if err != nil {
		return err
	}
	r.logger.Info("👛 Wallet loaded: " + w.String())

	collector := metrics.NewCollector()

	eventsClient := solbc.NewClient(r.cfg.EventsRPC, r.logger, solbc.WithLatencyObserver(collector.ObserveRPC))
	txClient := solbc.NewClient(r.cfg.TransactionRPC, r.logger, solbc.WithLatencyObserver(collector.ObserveRPC))
	r.shutdown.Add("events-rpc", eventsClient)
	r.shutdown.Add("transaction-rpc", txClient)

	oracle := pumpfun.NewOracle(eventsClient, r.logger)

	pipeline, err := r.buildPipeline(txClient, collector)
	if err != nil {
		return err
	}

	bus, err := r.startJournal()
	if err != nil {
		return err
	}

	listener := eventlistener.New(eventlistener.Config{
		URL:               r.cfg.EventsWSS,
		HeartbeatInterval: r.cfg.HeartbeatIntervalDuration(),
		ReconnectDelay:    r.cfg.ReconnectDelayDuration(),
		MaxReconnectDelay: r.cfg.MaxReconnectDelayDuration(),
		Policy:            eventlistener.ReconnectPolicy(r.cfg.ReconnectPolicy),
		OnStateChange: func(s eventlistener.State) {
			collector.SetListenerState(s.String())
			_ = bus.Publish(&events.ListenerStateEvent{
				BaseEvent: events.NewBase(events.ListenerState),
				State:     s.String(),
			})
		},
		OnDecodeError: func(error) { collector.IncDecodeErrors() },
	}, r.logger)
	r.shutdown.Add("listener", listener)

	sub := listener.Subscribe()
	defer sub.Unsubscribe()
	if err := listener.Connect(ctx); err != nil {
		// Переподключение уже запланировано слушателем.
		r.logger.Warn("Initial connect failed", zap.Error(err))
	}

	trader := NewTrader(TraderConfig{
		BuyLamports:  r.cfg.BuyAmountLamports(),
		BuySlippage:  r.cfg.BuySlippage,
		SellSlippage: r.cfg.SellSlippage,
		Channel:      transaction.Channel(r.cfg.SubmissionChannel),
		Priority:     r.priority(),
	}, w, pipeline, oracle, txClient, bus, r.logger)

	mon := monitor.New(monitor.Config{
		Interval:   r.cfg.CheckIntervalDuration(),
		TakeProfit: r.cfg.TakeProfitPercentage,
		StopLoss:   r.cfg.StopLossPercentage,
	}, oracle, trader, r.logger, monitor.WithPnLObserver(collector))

	keys := monitor.NewKeyReader(r.input, r.logger)

	session := NewSession(SessionConfig{
		Mode:       r.cfg.EventListener,
		MinPercent: r.cfg.BondingCurveMinPercent,
		MaxPercent: r.cfg.BondingCurveMaxPercent,
	}, admission.NewGate(), trader, mon, bus, keys.Commands(), r.logger,
		WithCurveChecker(oracle),
		WithSessionObserver(collector),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if r.cfg.MetricsAddr != "" {
		g.Go(func() error {
			return collector.Serve(gctx, r.cfg.MetricsAddr, r.logger)
		})
	}
	if validator != nil {
		g.Go(func() error {
			return validator.Heartbeat(gctx, licenseHeartbeatInterval)
		})
	}
	g.Go(func() error {
		return keys.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		outcome, err := session.Run(gctx, sub)
		if err != nil {
			return err
		}
		r.logger.Info("✅ Session finished",
			zap.Stringer("status", outcome.Status),
			zap.String("reason", string(outcome.Reason)))
		return nil
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		r.logger.Info("📡 Stopped by signal")
		return nil
	}
	return err
}

func (r *Runner) validateLicense(ctx context.Context) (*license.KeygenValidator, error) {
	if r.cfg.KeygenAccount == "" || r.cfg.KeygenProduct == "" {
		r.logger.Debug("License check disabled")
		return nil, nil
	}
	validator := license.NewKeygenValidator(license.Config{
		Account: r.cfg.KeygenAccount,
		Product: r.cfg.KeygenProduct,
		Token:   r.cfg.KeygenToken,
		Key:     r.cfg.LicenseKey,
	}, r.logger)
	if err := validator.Validate(ctx); err != nil {
		return nil, err
	}
	return validator, nil
}

// buildPipeline registers Direct always, and Relay / Bundle when configured.
func (r *Runner) buildPipeline(client *solbc.Client, collector *metrics.Collector) (*transaction.Pipeline, error) {
	opts := []transaction.PipelineOption{transaction.WithObserver(collector)}
	if r.cfg.PriorityFeeEstimate {
		oracleURL := r.cfg.FeeOracleURL
		if oracleURL == "" {
			oracleURL = r.cfg.TransactionRPC
		}
		opts = append(opts, transaction.WithEstimator(transaction.NewFeeEstimator(client, oracleURL, r.logger)))
	}
	pipeline := transaction.NewPipeline(client, r.logger, opts...)

	confirmer := transaction.NewConfirmer(client, transaction.DefaultConfirmInterval, r.logger)
	pipeline.Register(transaction.NewDirectChannel(client, confirmer, r.logger))

	if r.cfg.BloxrouteAuth != "" {
		pipeline.Register(transaction.NewRelayChannel(transaction.RelayConfig{
			URL:         r.cfg.BloxrouteURL,
			AuthHeader:  r.cfg.BloxrouteAuth,
			TipLamports: r.cfg.BloxrouteTipLamports(),
		}, confirmer, r.logger))
	}

	if r.cfg.BundleEngineURL != "" {
		// No account means no tip; the channel then sends the bundle untipped.
		var tipAccount solana.PublicKey
		if r.cfg.BundleTipAccount != "" {
			parsed, err := solana.PublicKeyFromBase58(r.cfg.BundleTipAccount)
			if err != nil {
				return nil, fmt.Errorf("invalid bundle tip account: %w", err)
			}
			tipAccount = parsed
		}
		executor := transaction.NewJitoExecutor(r.cfg.BundleEngineURL, client, transaction.DefaultConfirmInterval, r.logger)
		pipeline.Register(transaction.NewBundleChannel(executor, tipAccount, r.cfg.BundleTipLamports(), r.logger))
	}

	r.logger.Info("📨 Submission channel: " + r.cfg.SubmissionChannel)
	return pipeline, nil
}

func (r *Runner) priority() *transaction.PriorityConfig {
	if r.cfg.ComputeUnitLimit == 0 && r.cfg.ComputeUnitPrice == 0 && !r.cfg.PriorityFeeEstimate {
		return nil
	}
	return &transaction.PriorityConfig{
		UnitLimit: r.cfg.ComputeUnitLimit,
		UnitPrice: r.cfg.ComputeUnitPrice,
		Estimate:  r.cfg.PriorityFeeEstimate,
	}
}

// startJournal opens the store, attaches the journal to a new bus and
// registers their shutdown so the bus drains before export and the store
// closes last.
func (r *Runner) startJournal() (*events.Bus, error) {
	var store storage.Store = storage.NewMemoryStore()
	if r.cfg.PostgresURL != "" {
		pg, err := postgres.Open(r.cfg.PostgresURL, r.logger)
		if err != nil {
			return nil, err
		}
		store = pg
		r.logger.Info("🗄️  Trade journal: postgres")
	}
	r.shutdown.Add("store", store)

	if r.cfg.ExportDir != "" {
		exporter := export.NewTradeExporter(r.logger)
		r.shutdown.AddFunc("export", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			path, err := exporter.ExportJournal(ctx, store, export.ExportOptions{
				Format:    export.FormatCSV,
				OutputDir: r.cfg.ExportDir,
			})
			if err != nil {
				r.logger.Warn("Trade export skipped", zap.Error(err))
				return nil
			}
			r.logger.Info("📄 Trades exported to " + path)
			return nil
		})
	}

	bus := events.NewBus(r.logger, eventBusBuffer)
	journal := storage.NewJournal(store, r.logger)
	journal.Attach(bus)
	r.shutdown.AddFunc("event-bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return bus.Shutdown(ctx)
	})
	return bus, nil
}
