// internal/eventlistener/listener.go
package eventlistener

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 5 * time.Second
)

var heartbeatFrame = []byte(`{"type":"heartbeat"}`)

// Listener keeps one websocket subscription to program logs alive and fans
// decoded creation events out to subscribers in arrival order.
type Listener struct {
	cfg    Config
	logger *zap.Logger
	dialer ws.Dialer

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	conn     net.Conn
	connDone chan struct{}
	timer    *time.Timer
	policy   backoff.BackOff
	closed   bool

	writeMu sync.Mutex

	subsMu     sync.RWMutex
	subs       map[*Subscription]struct{}
	subsClosed bool

	wg sync.WaitGroup
}

// New creates a listener in StateDisconnected. No socket is opened until Connect.
func New(cfg Config, logger *zap.Logger) *Listener {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		cfg:    cfg,
		logger: logger.Named("listener"),
		dialer: ws.Dialer{Timeout: dialTimeout},
		ctx:    ctx,
		cancel: cancel,
		policy: newReconnectPolicy(cfg),
		subs:   make(map[*Subscription]struct{}),
	}
}

func newReconnectPolicy(cfg Config) backoff.BackOff {
	if cfg.Policy == PolicyExponential {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = cfg.ReconnectDelay
		b.MaxInterval = cfg.MaxReconnectDelay
		b.Reset()
		return b
	}
	return backoff.NewConstantBackOff(cfg.ReconnectDelay)
}

// State returns the current session state.
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Connect opens the socket and subscribes. It is a no-op unless the session
// is disconnected. A failed dial schedules a reconnect and returns a
// *TransportError.
func (l *Listener) Connect(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrListenerClosed
	}
	if l.state != StateDisconnected {
		state := l.state
		l.mu.Unlock()
		l.logger.Debug("Connect skipped", zap.Stringer("state", state))
		return nil
	}
	l.stopTimerLocked()
	l.setStateLocked(StateConnecting)
	l.mu.Unlock()

	l.logger.Info("🔌 Connecting to " + l.cfg.URL)
	conn, br, _, err := l.dialer.Dial(ctx, l.cfg.URL)
	if err != nil {
		terr := &TransportError{Op: "dial", URL: l.cfg.URL, Err: err}
		l.mu.Lock()
		l.setStateLocked(StateDisconnected)
		if !l.closed {
			l.scheduleReconnectLocked()
		}
		l.mu.Unlock()
		l.logger.Warn("Websocket dial failed", zap.Error(err))
		l.publishError(terr)
		return terr
	}
	if br != nil {
		conn = &bufferedConn{Conn: conn, r: br}
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		_ = conn.Close()
		return ErrListenerClosed
	}
	done := make(chan struct{})
	l.conn = conn
	l.connDone = done
	l.mu.Unlock()

	req, err := l.subscribeRequest()
	if err == nil {
		err = l.send(conn, req)
	}
	if err != nil {
		terr := &TransportError{Op: "subscribe", URL: l.cfg.URL, Err: err}
		l.teardown(conn, terr)
		return terr
	}

	l.mu.Lock()
	if l.conn != conn {
		l.mu.Unlock()
		return nil
	}
	l.policy.Reset()
	l.setStateLocked(StateSubscribed)
	l.wg.Add(2)
	l.mu.Unlock()

	go l.readLoop(conn, done)
	go l.heartbeatLoop(conn, done)

	l.logger.Info("📡 Subscribed to program logs",
		zap.String("program", l.cfg.ProgramID),
		zap.String("commitment", l.cfg.Commitment))
	return nil
}

func (l *Listener) subscribeRequest() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "logsSubscribe",
		"params": []interface{}{
			map[string][]string{"mentions": {l.cfg.ProgramID}},
			map[string]string{"commitment": l.cfg.Commitment},
		},
	})
}

func (l *Listener) send(conn net.Conn, payload []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return wsutil.WriteClientText(conn, payload)
}

func (l *Listener) readLoop(conn net.Conn, done <-chan struct{}) {
	defer l.wg.Done()
	for {
		data, op, err := wsutil.ReadServerData(conn)
		if err != nil {
			select {
			case <-done:
				return
			default:
			}
			l.teardown(conn, &TransportError{Op: "read", URL: l.cfg.URL, Err: err})
			return
		}
		if op != ws.OpText && op != ws.OpBinary {
			continue
		}

		events, errs := Dispatch(data)
		for _, derr := range errs {
			l.logger.Debug("Undecodable program data", zap.Error(derr))
			if l.cfg.OnDecodeError != nil {
				l.cfg.OnDecodeError(derr)
			}
			l.publishError(derr)
		}
		now := time.Now()
		for _, ev := range events {
			ev.ReceivedAt = now
			l.deliver(ev)
		}
	}
}

func (l *Listener) heartbeatLoop(conn net.Conn, done <-chan struct{}) {
	defer l.wg.Done()
	ticker := time.NewTicker(l.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := l.send(conn, heartbeatFrame); err != nil {
				l.teardown(conn, &TransportError{Op: "heartbeat", URL: l.cfg.URL, Err: err})
				return
			}
		}
	}
}

// teardown drops conn if it is still current and schedules a reconnect.
func (l *Listener) teardown(conn net.Conn, cause error) {
	l.mu.Lock()
	if l.conn != conn {
		l.mu.Unlock()
		return
	}
	l.conn = nil
	close(l.connDone)
	l.connDone = nil
	_ = conn.Close()
	l.setStateLocked(StateDisconnected)
	if !l.closed {
		l.scheduleReconnectLocked()
	}
	l.mu.Unlock()

	if cause != nil {
		l.logger.Warn("⚠️ Websocket connection lost", zap.Error(cause))
		l.publishError(cause)
	}
}

func (l *Listener) scheduleReconnectLocked() {
	delay := l.policy.NextBackOff()
	if delay == backoff.Stop || delay > l.cfg.MaxReconnectDelay {
		delay = l.cfg.MaxReconnectDelay
	}
	l.stopTimerLocked()
	l.logger.Info("🔄 Reconnecting in " + delay.String())
	l.timer = time.AfterFunc(delay, func() {
		if err := l.Connect(l.ctx); err != nil && !errors.Is(err, ErrListenerClosed) {
			l.logger.Debug("Reconnect attempt failed", zap.Error(err))
		}
	})
}

func (l *Listener) stopTimerLocked() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

// setStateLocked must be called with l.mu held. OnStateChange must not call
// back into the listener.
func (l *Listener) setStateLocked(s State) {
	if l.state == s {
		return
	}
	l.state = s
	if l.cfg.OnStateChange != nil {
		l.cfg.OnStateChange(s)
	}
}

// Subscribe registers a new consumer of creation events.
func (l *Listener) Subscribe() *Subscription {
	s := &Subscription{
		events:   make(chan CreationEvent, l.cfg.SubscriberBuffer),
		errs:     make(chan error, l.cfg.SubscriberBuffer),
		listener: l,
	}

	l.subsMu.Lock()
	defer l.subsMu.Unlock()
	if l.subsClosed {
		close(s.events)
		close(s.errs)
		return s
	}
	l.subs[s] = struct{}{}
	return s
}

func (l *Listener) unsubscribe(s *Subscription) {
	l.subsMu.Lock()
	defer l.subsMu.Unlock()
	if _, ok := l.subs[s]; !ok {
		return
	}
	delete(l.subs, s)
	close(s.events)
	close(s.errs)
}

func (l *Listener) deliver(ev CreationEvent) {
	l.subsMu.RLock()
	defer l.subsMu.RUnlock()
	for s := range l.subs {
		select {
		case s.events <- ev:
		default:
			l.logger.Warn("Subscriber buffer full, dropping event", zap.String("mint", ev.AssetID))
		}
	}
}

func (l *Listener) publishError(err error) {
	l.subsMu.RLock()
	defer l.subsMu.RUnlock()
	for s := range l.subs {
		select {
		case s.errs <- err:
		default:
		}
	}
}

// Close stops the heartbeat, closes the socket, cancels any pending
// reconnect and closes every subscription.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.stopTimerLocked()
	conn := l.conn
	l.conn = nil
	if l.connDone != nil {
		close(l.connDone)
		l.connDone = nil
	}
	l.setStateLocked(StateDisconnected)
	l.mu.Unlock()

	l.cancel()
	var err error
	if conn != nil {
		err = conn.Close()
	}
	l.wg.Wait()

	l.subsMu.Lock()
	for s := range l.subs {
		delete(l.subs, s)
		close(s.events)
		close(s.errs)
	}
	l.subsClosed = true
	l.subsMu.Unlock()

	l.logger.Info("Listener closed")
	return err
}

// Subscription is one consumer's view of the event stream.
type Subscription struct {
	events   chan CreationEvent
	errs     chan error
	listener *Listener
	once     sync.Once
}

// Events delivers decoded creation events in arrival order.
func (s *Subscription) Events() <-chan CreationEvent { return s.events }

// Errors delivers non-fatal transport and decode diagnostics.
func (s *Subscription) Errors() <-chan error { return s.errs }

// Unsubscribe detaches the subscription and closes its channels. Safe to call twice.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() { s.listener.unsubscribe(s) })
}

type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}
