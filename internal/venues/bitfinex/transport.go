package bitfinex

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"golang.org/x/time/rate"

	"github.com/venuesync/venuesync/config"
	"github.com/venuesync/venuesync/errs"
	"github.com/venuesync/venuesync/internal/observability"
	"github.com/venuesync/venuesync/internal/schema"
	"github.com/venuesync/venuesync/internal/telemetry"
)

const (
	// The venue throttles authenticated connections; pace outbound frames
	// and keep bursts small.
	writeInterval        = 100 * time.Millisecond
	writeBurst           = 5
	writeTimeout         = 5 * time.Second
	pingInterval         = 30 * time.Second
	pingTimeout          = 5 * time.Second
	requestTimeout       = 10 * time.Second
	maxReconnectInterval = 30 * time.Second
	readLimit            = 2 * 1024 * 1024
)

// Intake receives decoded events on the transport's read pump.
type Intake func(ctx context.Context, evt schema.Event)

// Transport maintains the authenticated websocket session: dial, auth
// handshake, reconnection with exponential backoff, the read pump feeding the
// intake, and correlated outbound commands.
type Transport struct {
	cfg     config.VenueSettings
	intake  Intake
	codec   *Codec
	limiter *rate.Limiter
	metrics *telemetry.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	conn   *websocket.Conn
	connMu sync.RWMutex

	ready     chan struct{}
	readyOnce sync.Once

	subsMu sync.Mutex
	subs   map[string]struct{}

	pendMu  sync.Mutex
	submits map[int64]chan Notification
	cancels map[int64]chan Notification

	nonce    atomic.Int64
	sessions atomic.Int64
}

// TransportOption configures optional transport dependencies.
type TransportOption func(*Transport)

// WithTransportMetrics attaches the telemetry instrument set.
func WithTransportMetrics(metrics *telemetry.Metrics) TransportOption {
	return func(t *Transport) {
		t.metrics = metrics
	}
}

// NewTransport constructs a transport delivering decoded events to intake.
// Open must be called before any command method.
func NewTransport(cfg config.VenueSettings, intake Intake, opts ...TransportOption) *Transport {
	t := new(Transport)
	t.cfg = cfg
	t.intake = intake
	t.codec = NewCodec()
	t.limiter = rate.NewLimiter(rate.Every(writeInterval), writeBurst)
	t.ready = make(chan struct{})
	t.subs = make(map[string]struct{})
	t.submits = make(map[int64]chan Notification)
	t.cancels = make(map[int64]chan Notification)
	t.nonce.Store(time.Now().UnixMicro())
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Open starts the connection loop and blocks until the first session is
// established or the handshake timeout elapses.
func (t *Transport) Open(ctx context.Context) error {
	t.ctx, t.cancel = context.WithCancel(context.Background())
	go t.run()

	timeout := t.cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = requestTimeout
	}
	select {
	case <-t.ready:
		return nil
	case <-time.After(timeout):
		t.cancel()
		return errs.Transport(t.cfg.Name, errors.New("timeout establishing websocket session"))
	case <-ctx.Done():
		t.cancel()
		return fmt.Errorf("open transport: %w", ctx.Err())
	}
}

// Close tears the session down. Safe to call once after Open.
func (t *Transport) Close(context.Context) error {
	if t.cancel != nil {
		t.cancel()
	}
	t.connMu.Lock()
	conn := t.conn
	t.conn = nil
	t.connMu.Unlock()
	if conn == nil {
		return nil
	}
	if err := conn.Close(websocket.StatusNormalClosure, "shutdown"); err != nil &&
		!errors.Is(err, net.ErrClosed) {
		return errs.Termination(t.cfg.Name, err)
	}
	return nil
}

// SubscribeTicker subscribes the public ticker channel for the symbol. The
// subscription is replayed on every reconnect.
func (t *Transport) SubscribeTicker(ctx context.Context, symbol string) error {
	t.subsMu.Lock()
	t.subs[symbol] = struct{}{}
	t.subsMu.Unlock()

	frame, err := encodeSubscribeTicker(symbol)
	if err != nil {
		return err
	}
	return t.write(ctx, frame)
}

// RequestCalculation asks the venue to recompute the given balance keys.
func (t *Transport) RequestCalculation(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	frame, err := encodeCalculation(keys)
	if err != nil {
		return err
	}
	return t.write(ctx, frame)
}

// SubmitOrder sends an order command and waits for the venue's
// acknowledgement, correlated by client order id.
func (t *Transport) SubmitOrder(ctx context.Context, spec schema.OrderSpec) (schema.RawOrder, error) {
	ch := make(chan Notification, 1)
	t.pendMu.Lock()
	t.submits[spec.ClientID] = ch
	t.pendMu.Unlock()
	defer func() {
		t.pendMu.Lock()
		delete(t.submits, spec.ClientID)
		t.pendMu.Unlock()
	}()

	frame, err := encodeNewOrder(spec)
	if err != nil {
		return schema.RawOrder{}, err
	}
	if err := t.write(ctx, frame); err != nil {
		return schema.RawOrder{}, err
	}

	note, err := t.await(ctx, ch)
	if err != nil {
		return schema.RawOrder{}, fmt.Errorf("submit order cid=%d: %w", spec.ClientID, err)
	}
	if !note.Succeeded() {
		return schema.RawOrder{}, errs.New(t.cfg.Name, errs.CodeExchange,
			errs.WithMessage("order rejected"),
			errs.WithRawMessage(note.Text),
		)
	}
	return note.Order, nil
}

// CancelOrder sends a cancel command and waits for the venue's
// acknowledgement, correlated by venue order id.
func (t *Transport) CancelOrder(ctx context.Context, id int64) error {
	ch := make(chan Notification, 1)
	t.pendMu.Lock()
	t.cancels[id] = ch
	t.pendMu.Unlock()
	defer func() {
		t.pendMu.Lock()
		delete(t.cancels, id)
		t.pendMu.Unlock()
	}()

	frame, err := encodeCancelOrder(id)
	if err != nil {
		return err
	}
	if err := t.write(ctx, frame); err != nil {
		return err
	}

	note, err := t.await(ctx, ch)
	if err != nil {
		return fmt.Errorf("cancel order %d: %w", id, err)
	}
	if !note.Succeeded() {
		return errs.New(t.cfg.Name, errs.CodeExchange,
			errs.WithMessage("cancel rejected"),
			errs.WithRawMessage(note.Text),
		)
	}
	return nil
}

func (t *Transport) await(ctx context.Context, ch <-chan Notification) (Notification, error) {
	timer := time.NewTimer(requestTimeout)
	defer timer.Stop()
	select {
	case note, ok := <-ch:
		if !ok {
			return Notification{}, errs.Transport(t.cfg.Name, errors.New("connection lost"))
		}
		return note, nil
	case <-timer.C:
		return Notification{}, errs.Transport(t.cfg.Name, errors.New("acknowledgement timeout"))
	case <-ctx.Done():
		return Notification{}, ctx.Err()
	}
}

func (t *Transport) write(ctx context.Context, data []byte) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("pace outbound frame: %w", err)
	}
	t.connMu.RLock()
	conn := t.conn
	t.connMu.RUnlock()
	if conn == nil {
		return errs.Transport(t.cfg.Name, errors.New("not connected"))
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return errs.Transport(t.cfg.Name, err)
	}
	return nil
}

// run keeps a single websocket session alive until Close: dial, authenticate,
// replay ticker subscriptions, then pump frames until the session drops.
func (t *Transport) run() {
	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.MaxInterval = maxReconnectInterval

	for {
		select {
		case <-t.ctx.Done():
			t.emit(schema.Event{Type: schema.EventTypeClosed, ReceivedAt: time.Now()})
			return
		default:
		}

		conn, _, err := websocket.Dial(t.ctx, t.cfg.WSURL, nil)
		if err != nil {
			t.emit(schema.Event{
				Type:       schema.EventTypeError,
				Err:        errs.Transport(t.cfg.Name, fmt.Errorf("dial %s: %w", t.cfg.WSURL, err)),
				ReceivedAt: time.Now(),
			})
			t.sleep(backoffCfg.NextBackOff())
			continue
		}
		conn.SetReadLimit(readLimit)

		t.connMu.Lock()
		t.conn = conn
		t.connMu.Unlock()

		t.codec.Reset()
		if t.sessions.Add(1) > 1 {
			t.metrics.Reconnected(t.ctx)
		}
		backoffCfg.Reset()

		if err := t.handshake(); err != nil {
			observability.Log().Error("session handshake failed",
				observability.F("error", err),
			)
		}
		t.readyOnce.Do(func() { close(t.ready) })

		err = t.readLoop(conn)
		t.dropConn(conn)
		t.failPending()

		if err != nil && !errors.Is(err, context.Canceled) {
			t.emit(schema.Event{
				Type:       schema.EventTypeError,
				Err:        errs.Transport(t.cfg.Name, err),
				ReceivedAt: time.Now(),
			})
		}
		t.sleep(backoffCfg.NextBackOff())
	}
}

// handshake sends the auth frame and replays ticker subscriptions. The auth
// confirmation arrives asynchronously through the read pump.
func (t *Transport) handshake() error {
	auth, err := encodeAuth(t.cfg.Credentials.APIKey, t.cfg.Credentials.APISecret, t.nonce.Add(1))
	if err != nil {
		return err
	}
	if err := t.write(t.ctx, auth); err != nil {
		return err
	}

	t.subsMu.Lock()
	symbols := make([]string, 0, len(t.subs))
	for symbol := range t.subs {
		symbols = append(symbols, symbol)
	}
	t.subsMu.Unlock()

	for _, symbol := range symbols {
		frame, err := encodeSubscribeTicker(symbol)
		if err != nil {
			return err
		}
		if err := t.write(t.ctx, frame); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) readLoop(conn *websocket.Conn) error {
	pingCtx, stopPing := context.WithCancel(t.ctx)
	defer stopPing()
	go t.pingLoop(pingCtx, conn)

	for {
		msgType, data, err := conn.Read(t.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) {
				return context.Canceled
			}
			if status := websocket.CloseStatus(err); status != -1 {
				if status == websocket.StatusNormalClosure {
					return context.Canceled
				}
				return fmt.Errorf("read: remote closed with status %d", status)
			}
			return fmt.Errorf("read: %w", err)
		}
		if msgType != websocket.MessageText {
			continue
		}

		evt, note, err := t.codec.Decode(data, time.Now())
		if err != nil {
			observability.Log().Error("frame decode failed", observability.F("error", err))
			continue
		}
		if note != nil {
			t.resolve(*note)
		}
		if evt != nil {
			t.emit(*evt)
		}
	}
}

func (t *Transport) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (t *Transport) resolve(note Notification) {
	t.pendMu.Lock()
	var ch chan Notification
	switch note.Kind {
	case "on-req":
		ch = t.submits[note.CID]
	case "oc-req":
		ch = t.cancels[note.OrderID]
	}
	t.pendMu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- note:
	default:
	}
}

// failPending closes every outstanding acknowledgement channel so waiting
// callers fail fast instead of running into the request timeout.
func (t *Transport) failPending() {
	t.pendMu.Lock()
	for cid, ch := range t.submits {
		close(ch)
		delete(t.submits, cid)
	}
	for id, ch := range t.cancels {
		close(ch)
		delete(t.cancels, id)
	}
	t.pendMu.Unlock()
}

func (t *Transport) dropConn(conn *websocket.Conn) {
	t.connMu.Lock()
	if t.conn == conn {
		t.conn = nil
	}
	t.connMu.Unlock()
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func (t *Transport) emit(evt schema.Event) {
	if t.intake == nil {
		return
	}
	t.intake(t.ctx, evt)
}

func (t *Transport) sleep(d time.Duration) bool {
	if d == backoff.Stop {
		d = maxReconnectInterval
	}
	select {
	case <-t.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
