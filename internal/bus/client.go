package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var errNotConnected = errors.New("bus: not connected")

// Lifecycle is the Up/Down signal the network-status broadcaster watches.
type Lifecycle string

const (
	Up   Lifecycle = "up"
	Down Lifecycle = "down"
)

// Disposition tells Subscribe's handler loop what to do with a delivery.
type Disposition struct {
	ack     bool
	requeue bool
}

func Ack() Disposition               { return Disposition{ack: true} }
func Reject(requeue bool) Disposition { return Disposition{ack: false, requeue: requeue} }

// Handler processes one delivery body and says how it should be acked.
type Handler func(body []byte) Disposition

// subscription is replayed against every fresh channel after a reconnect.
// bindExchange/bindKey are empty for queues whose binding is already part
// of the fixed topology (e.g. the confirmations queue); ws-delivery's own
// notification queue sets them to declare+bind itself on every reconnect.
type subscription struct {
	queue       string
	bindExchange string
	bindKey      string
	durable      bool
	prefetch     int
	handler      Handler
}

// Client owns one logical AMQP connection. On disconnect it reconnects on
// a fixed interval, re-declares topology, and re-subscribes every queue
// registered through Subscribe. Modeled on the teacher's db.Connect/
// Migrate pair (connect, verify, then hand the live resource to callers)
// generalised with a supervising goroutine, since unlike a DB pool the
// AMQP connection itself (not just its interface) must be rebuilt after
// a broker-side close.
type Client struct {
	url             string
	reconnectEvery  time.Duration
	logger          *zap.Logger

	mu            sync.RWMutex
	conn          *amqp.Connection
	publishCh     *amqp.Channel

	subsMu sync.Mutex
	subs   []*subscription

	signal chan Lifecycle
}

func New(url string, reconnectEvery time.Duration, logger *zap.Logger) *Client {
	return &Client{
		url:            url,
		reconnectEvery: reconnectEvery,
		logger:         logger,
		signal:         make(chan Lifecycle, 8),
	}
}

// Signal returns the channel the netstatus broadcaster watches for Up/Down.
func (c *Client) Signal() <-chan Lifecycle { return c.signal }

// Run connects, declares topology, and supervises the connection until
// ctx is cancelled. It never returns until ctx.Done() fires; reconnects
// happen in place.
func (c *Client) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.connectOnce(ctx); err != nil {
			c.logger.Warn("bus connect failed, will retry", zap.Error(err), zap.Duration("retry_in", c.reconnectEvery))
			c.emit(Down)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.reconnectEvery):
				continue
			}
		}

		c.emit(Up)
		closeNotify := c.watchClose(ctx)

		select {
		case <-ctx.Done():
			c.closeConn()
			return
		case <-closeNotify:
			c.logger.Warn("bus connection lost, reconnecting", zap.Duration("retry_in", c.reconnectEvery))
			c.emit(Down)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.reconnectEvery):
			}
		}
	}
}

func (c *Client) emit(state Lifecycle) {
	select {
	case c.signal <- state:
	default:
		// Signal channel is a small buffer for a slow-moving lifecycle
		// event; a full buffer means nobody is listening yet, safe to drop.
	}
}

func (c *Client) connectOnce(ctx context.Context) error {
	conn, err := amqp.DialConfig(c.url, amqp.Config{})
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close() //nolint:errcheck
		return fmt.Errorf("open publish channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()   //nolint:errcheck
		conn.Close() //nolint:errcheck
		return fmt.Errorf("declare topology: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.publishCh = ch
	c.mu.Unlock()

	c.subsMu.Lock()
	subs := append([]*subscription(nil), c.subs...)
	c.subsMu.Unlock()
	for _, s := range subs {
		if err := c.startConsumer(ctx, s); err != nil {
			c.logger.Error("failed to resume subscription", zap.String("queue", s.queue), zap.Error(err))
		}
	}

	return nil
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeNotifications, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(ExchangeConfirmations, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	q, err := ch.QueueDeclare(QueueConfirmations, true, false, false, false, nil)
	if err != nil {
		return err
	}
	return ch.QueueBind(q.Name, "", ExchangeConfirmations, false, nil)
}

func (c *Client) watchClose(ctx context.Context) <-chan struct{} {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	done := make(chan struct{})
	notify := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		select {
		case <-notify:
			close(done)
		case <-ctx.Done():
		}
	}()
	return done
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishCh != nil {
		c.publishCh.Close() //nolint:errcheck
	}
	if c.conn != nil {
		c.conn.Close() //nolint:errcheck
	}
}

// Publish sends one message. Caller tolerates loss or retries at its own
// layer, per spec §4.2.
func (c *Client) Publish(ctx context.Context, exchange, routingKey string, payload []byte) error {
	c.mu.RLock()
	ch := c.publishCh
	c.mu.RUnlock()

	if ch == nil {
		return fmt.Errorf("%w: no publish channel", errNotConnected)
	}

	return ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        payload,
		Timestamp:   time.Now(),
	})
}

// Subscribe registers the confirmations-queue consumer (topology-bound
// already by declareTopology). prefetch mirrors the Qos(prefetch, 0,
// false) pattern seen in the pack's AMQP consumers (manual ack, one
// unacked message in flight per channel by default).
func (c *Client) Subscribe(ctx context.Context, queue string, prefetch int, handler Handler) {
	c.subscribe(ctx, &subscription{queue: queue, prefetch: prefetch, handler: handler})
}

// SubscribeTopic registers (and rebinds on every reconnect) a durable
// queue against the notifications topic exchange for the given binding
// key — used by ws-delivery, which owns its own queue bound to every
// routing key.
func (c *Client) SubscribeTopic(ctx context.Context, queue, bindKey string, prefetch int, handler Handler) {
	c.subscribe(ctx, &subscription{
		queue:        queue,
		bindExchange: ExchangeNotifications,
		bindKey:      bindKey,
		durable:      true,
		prefetch:     prefetch,
		handler:      handler,
	})
}

func (c *Client) subscribe(ctx context.Context, s *subscription) {
	c.subsMu.Lock()
	c.subs = append(c.subs, s)
	c.subsMu.Unlock()

	c.mu.RLock()
	connected := c.conn != nil
	c.mu.RUnlock()
	if connected {
		if err := c.startConsumer(ctx, s); err != nil {
			c.logger.Error("failed to start subscription", zap.String("queue", s.queue), zap.Error(err))
		}
	}
}

func (c *Client) startConsumer(ctx context.Context, s *subscription) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	if err := ch.Qos(s.prefetch, 0, false); err != nil {
		ch.Close() //nolint:errcheck
		return fmt.Errorf("set qos: %w", err)
	}

	if s.bindExchange != "" {
		if _, err := ch.QueueDeclare(s.queue, s.durable, false, false, false, nil); err != nil {
			ch.Close() //nolint:errcheck
			return fmt.Errorf("declare queue: %w", err)
		}
		if err := ch.QueueBind(s.queue, s.bindKey, s.bindExchange, false, nil); err != nil {
			ch.Close() //nolint:errcheck
			return fmt.Errorf("bind queue: %w", err)
		}
	}

	deliveries, err := ch.Consume(s.queue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close() //nolint:errcheck
		return fmt.Errorf("consume: %w", err)
	}

	go func() {
		defer ch.Close() //nolint:errcheck
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				disp := s.handler(d.Body)
				if disp.ack {
					_ = d.Ack(false)
				} else {
					_ = d.Reject(disp.requeue)
				}
			}
		}
	}()

	return nil
}
