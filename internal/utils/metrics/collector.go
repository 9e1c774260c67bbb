// internal/utils/metrics/collector.go
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "pumpfun_sniper"

// Collector owns the process metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	submissions        *prometheus.CounterVec
	submissionDuration *prometheus.HistogramVec
	rpcLatency         *prometheus.HistogramVec
	listenerState      *prometheus.GaugeVec
	decodeErrors       prometheus.Counter
	tokensSeen         *prometheus.CounterVec
	positionPnL        prometheus.Gauge
}

// NewCollector создает коллектор и регистрирует все метрики.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Transaction submissions by channel and outcome",
			},
			[]string{"channel", "status"},
		),
		submissionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "submission_duration_seconds",
				Help:      "Time from submit to confirmation or failure",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"channel"},
		),
		rpcLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_latency_seconds",
				Help:      "RPC request latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"method", "status"},
		),
		listenerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "listener_state",
				Help:      "Event listener state, 1 for the current state",
			},
			[]string{"state"},
		),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Log payloads that failed to decode",
		}),
		tokensSeen: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_total",
				Help:      "Creation events by admission decision",
			},
			[]string{"decision"},
		),
		positionPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "position_pnl_percent",
			Help:      "Profit or loss of the open position in percent",
		}),
	}
	c.registry.MustRegister(
		c.submissions,
		c.submissionDuration,
		c.rpcLatency,
		c.listenerState,
		c.decodeErrors,
		c.tokensSeen,
		c.positionPnL,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// ObserveSubmission records one pipeline submission.
func (c *Collector) ObserveSubmission(channel string, success bool, seconds float64) {
	c.submissions.WithLabelValues(channel, status(success)).Inc()
	c.submissionDuration.WithLabelValues(channel).Observe(seconds)
}

// ObserveRPC records RPC latency; its signature matches solbc.LatencyObserver.
func (c *Collector) ObserveRPC(method string, seconds float64, err error) {
	c.rpcLatency.WithLabelValues(method, status(err == nil)).Observe(seconds)
}

// SetListenerState marks state as the only active listener state.
func (c *Collector) SetListenerState(state string) {
	c.listenerState.Reset()
	c.listenerState.WithLabelValues(state).Set(1)
}

func (c *Collector) IncDecodeErrors() { c.decodeErrors.Inc() }

// ObserveToken counts a creation event as admitted, skipped or rejected.
func (c *Collector) ObserveToken(decision string) {
	c.tokensSeen.WithLabelValues(decision).Inc()
}

// ObservePnL implements monitor.PnLObserver.
func (c *Collector) ObservePnL(percent float64) { c.positionPnL.Set(percent) }

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("📈 Metrics server started", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
