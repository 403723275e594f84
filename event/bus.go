// Package event broadcasts cache invalidations between datalink instances
// over NATS. The bus is best effort: a lost connection degrades dispatch to
// local-only invalidation, it never blocks or fails a write.
package event

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/c360/datalink/errors"
	"github.com/c360/datalink/logging"
	"github.com/c360/datalink/metric"
	"github.com/c360/datalink/pkg/timestamp"
)

// DefaultSubjectPrefix is the subject prefix invalidations publish on when no
// override is configured.
const DefaultSubjectPrefix = "datalink"

// invalidateSuffix completes the invalidation subject: <prefix>.cache.invalidate.
const invalidateSuffix = "cache.invalidate"

// Error sentinels
var (
	ErrNotConnected = stderrors.New("not connected to invalidation bus")
	ErrBusClosed    = stderrors.New("invalidation bus is closed")
)

// Conn is the slice of a NATS connection the bus needs. Dial wraps a real
// *nats.Conn; unit tests install an in-process fake.
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler nats.MsgHandler) (Subscription, error)
	IsConnected() bool
	Drain() error
}

// Subscription is an active subject subscription.
type Subscription interface {
	Unsubscribe() error
}

// natsConn adapts *nats.Conn to Conn.
type natsConn struct {
	conn *nats.Conn
}

func (c natsConn) Publish(subject string, data []byte) error {
	return c.conn.Publish(subject, data)
}

func (c natsConn) Subscribe(subject string, handler nats.MsgHandler) (Subscription, error) {
	return c.conn.Subscribe(subject, handler)
}

func (c natsConn) IsConnected() bool {
	return c.conn.IsConnected()
}

func (c natsConn) Drain() error {
	return c.conn.Drain()
}

// Invalidation is the wire form of one tag invalidation.
type Invalidation struct {
	Tag       string `json:"tag"`
	Origin    string `json:"origin"`    // bus instance that published the event
	Timestamp int64  `json:"timestamp"` // milliseconds since epoch
}

// Bus publishes and receives cache invalidation events. Each instance
// carries a unique origin ID so subscribers can drop their own broadcasts
// instead of re-invalidating what they already removed locally.
type Bus struct {
	conn    Conn
	subject string
	origin  string
	logger  *logging.Logger
	metrics *metric.Metrics

	mu     sync.Mutex
	subs   []Subscription
	closed atomic.Bool
}

// Option configures a Bus.
type Option func(*Bus)

// WithSubjectPrefix overrides the invalidation subject prefix.
func WithSubjectPrefix(prefix string) Option {
	return func(b *Bus) {
		if prefix != "" {
			b.subject = prefix + "." + invalidateSuffix
		}
	}
}

// WithMetrics records bus connectivity, reconnects, and publish counts.
func WithMetrics(m *metric.Metrics) Option {
	return func(b *Bus) {
		b.metrics = m
	}
}

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// New wraps an established connection in a Bus. Use Dial to let the bus own
// the connection and its reconnect handling.
func New(conn Conn, opts ...Option) (*Bus, error) {
	if conn == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Bus", "New", "nil connection")
	}

	b := newBus(opts)
	b.conn = conn
	b.setConnected(conn.IsConnected())
	return b, nil
}

// Dial connects to a NATS server and wraps the connection in a Bus. The
// connection reconnects indefinitely; connectivity changes feed the bus
// metrics and the service log.
func Dial(url string, opts ...Option) (*Bus, error) {
	b := newBus(opts)

	conn, err := nats.Connect(url,
		nats.Name("datalink-invalidation-bus"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			b.setConnected(false)
			b.logger.Warn(fmt.Sprintf("invalidation bus disconnected: %v", err))
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			b.setConnected(true)
			if b.metrics != nil {
				b.metrics.RecordBusReconnect()
			}
			b.logger.Info("invalidation bus reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			b.setConnected(false)
		}),
	)
	if err != nil {
		return nil, errors.WrapTransient(err, "Bus", "Dial", "connect")
	}

	b.conn = natsConn{conn: conn}
	b.setConnected(true)
	return b, nil
}

func newBus(opts []Option) *Bus {
	b := &Bus{
		subject: DefaultSubjectPrefix + "." + invalidateSuffix,
		origin:  uuid.New().String(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		// Local-only sink; callers wire a real logger through WithLogger
		b.logger = logging.NewLogger("event-bus", nil, nil)
	}
	return b
}

// Subject returns the subject invalidations publish on.
func (b *Bus) Subject() string {
	return b.subject
}

// Connected reports whether the underlying connection is currently up.
func (b *Bus) Connected() bool {
	return !b.closed.Load() && b.conn.IsConnected()
}

// PublishInvalidation broadcasts one tag. A down connection returns a
// Transient error; the dispatcher logs it and carries on with local-only
// invalidation.
func (b *Bus) PublishInvalidation(ctx context.Context, tag string) error {
	if tag == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "Bus", "PublishInvalidation", "empty tag")
	}
	if b.closed.Load() {
		return errors.WrapInvalid(ErrBusClosed, "Bus", "PublishInvalidation", "publish tag")
	}

	select {
	case <-ctx.Done():
		return errors.WrapTransient(ctx.Err(), "Bus", "PublishInvalidation", "publish tag")
	default:
	}

	if !b.conn.IsConnected() {
		return errors.WrapTransient(ErrNotConnected, "Bus", "PublishInvalidation", "publish tag")
	}

	data, err := json.Marshal(Invalidation{
		Tag:       tag,
		Origin:    b.origin,
		Timestamp: timestamp.Now(),
	})
	if err != nil {
		return errors.Wrap(err, "Bus", "PublishInvalidation", "encode event")
	}

	if err := b.conn.Publish(b.subject, data); err != nil {
		return errors.WrapTransient(err, "Bus", "PublishInvalidation", "publish tag")
	}
	if b.metrics != nil {
		b.metrics.RecordInvalidationPublished()
	}
	return nil
}

// SubscribeInvalidations delivers remotely published tags to handler,
// typically cache.InvalidateTag. The bus's own broadcasts are filtered out
// by origin. Undecodable events are dropped with a warning.
func (b *Bus) SubscribeInvalidations(handler func(tag string)) error {
	if handler == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Bus", "SubscribeInvalidations", "nil handler")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed.Load() {
		return errors.WrapInvalid(ErrBusClosed, "Bus", "SubscribeInvalidations", "subscribe")
	}

	sub, err := b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		var ev Invalidation
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			b.logger.Warn(fmt.Sprintf("dropping undecodable invalidation event: %v", err))
			return
		}
		if ev.Tag == "" || ev.Origin == b.origin {
			return
		}
		handler(ev.Tag)
	})
	if err != nil {
		return errors.WrapTransient(err, "Bus", "SubscribeInvalidations", "subscribe")
	}

	b.subs = append(b.subs, sub)
	return nil
}

// Close unsubscribes and drains the connection. The context bounds the
// drain; on timeout the in-flight drain is abandoned. Close is idempotent.
func (b *Bus) Close(ctx context.Context) error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			errs = append(errs, errors.Wrap(err, "Bus", "Close", "unsubscribe"))
		}
	}

	drainDone := make(chan error, 1)
	go func() {
		drainDone <- b.conn.Drain()
	}()
	select {
	case err := <-drainDone:
		if err != nil {
			errs = append(errs, errors.Wrap(err, "Bus", "Close", "drain connection"))
		}
	case <-ctx.Done():
		errs = append(errs, errors.WrapTransient(ctx.Err(), "Bus", "Close", "drain abandoned"))
	}

	b.setConnected(false)
	return stderrors.Join(errs...)
}

func (b *Bus) setConnected(connected bool) {
	if b.metrics != nil {
		b.metrics.RecordBusStatus(connected)
	}
}
