package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"kharcha/internal/core"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures      = 5
	openTimeout      = 30 * time.Second
	maxBackoff       = 30 * time.Second
	publishTimeout   = 5 * time.Second
	reconnectRetries = 3
)

// brokerConn and brokerChannel are the parts of *amqp091.Connection and
// *amqp091.Channel the client uses.
type brokerConn interface {
	IsClosed() bool
	Close() error
}

type brokerChannel interface {
	IsClosed() bool
	Close() error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
}

// Client publishes ledger events to a durable direct exchange. A broken
// connection is redialled on the next publish; after maxFailures consecutive
// failures publishing is refused until openTimeout has passed.
type Client struct {
	url          string
	exchangeName string
	queueName    string

	// dial opens a connection with the exchange and queue declared.
	// Defaults to dialBroker.
	dial func() (brokerConn, brokerChannel, error)

	// dialMu serialises reconnects so concurrent publishers share one.
	dialMu  sync.Mutex
	mu      sync.Mutex
	conn    brokerConn
	channel brokerChannel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	if _, err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) dialBroker() (brokerConn, brokerChannel, error) {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return conn, channel, nil
}

// connect installs a fresh connection unless another caller already did
// while this one waited. A replaced connection is closed.
func (c *Client) connect() (brokerChannel, error) {
	c.dialMu.Lock()
	defer c.dialMu.Unlock()

	if ch := c.liveChannel(); ch != nil {
		return ch, nil
	}

	dial := c.dial
	if dial == nil {
		dial = c.dialBroker
	}
	conn, channel, err := dial()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	oldConn, oldChannel := c.conn, c.channel
	c.conn, c.channel = conn, channel
	c.mu.Unlock()

	closeQuietly(oldConn, oldChannel)
	return channel, nil
}

// liveChannel returns the current channel if it and its connection are open.
func (c *Client) liveChannel() brokerChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.channel == nil || c.conn.IsClosed() || c.channel.IsClosed() {
		return nil
	}
	return c.channel
}

func closeQuietly(conn brokerConn, channel brokerChannel) {
	if channel != nil {
		channel.Close()
	}
	if conn != nil {
		conn.Close()
	}
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	for _, key := range []string{RouteLedgerChanged, RouteEMIDue} {
		if err := ch.QueueBind(queueName, key, exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue to %s: %w", key, err)
		}
	}
	return nil
}

// PublishLedgerChanged announces a create, update or delete of entity id.
func (c *Client) PublishLedgerChanged(ctx context.Context, entity, id, op string) error {
	body, err := NewLedgerChangedMessage(entity, id, op).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, RouteLedgerChanged, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published ledger change",
		"entity", entity,
		"id", id,
		"op", op,
		"exchange", c.exchangeName)
	return nil
}

// PublishEMIDue publishes a payment reminder for e's next installment.
func (c *Client) PublishEMIDue(ctx context.Context, e core.EMI) error {
	body, err := NewEMIDueMessage(e).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, RouteEMIDue, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published EMI due reminder",
		"id", e.ID,
		"due_date", e.NextDueDate.String(),
		"exchange", c.exchangeName)
	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("%w: dropping %s message", ErrCircuitOpen, routingKey)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ch, err := c.ensureChannel(ctx)
	if err != nil {
		c.recordFailure()
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		pubCtx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.dropConnection()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()
	return nil
}

// ensureChannel returns the open channel, redialling with backoff when the
// connection has gone away.
func (c *Client) ensureChannel(ctx context.Context) (brokerChannel, error) {
	if ch := c.liveChannel(); ch != nil {
		return ch, nil
	}

	var lastErr error
	for attempt := 0; attempt < reconnectRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}
		ch, err := c.connect()
		if err == nil {
			slog.InfoContext(ctx, "Connected to AMQP broker", "attempt", attempt+1)
			return ch, nil
		}
		lastErr = err
		slog.WarnContext(ctx, "AMQP reconnect failed", "attempt", attempt+1, "error", lastErr)
	}
	return nil, fmt.Errorf("reconnect to AMQP: %w", lastErr)
}

func (c *Client) dropConnection() {
	c.mu.Lock()
	conn, channel := c.conn, c.channel
	c.conn, c.channel = nil, nil
	c.mu.Unlock()
	closeQuietly(conn, channel)
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	n := atomic.AddInt64(&c.failureCount, 1)
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// Consume delivers messages from the queue to handler until ctx is done.
// Malformed messages are dropped; handler errors requeue the delivery.
func (c *Client) Consume(ctx context.Context, handler func(ctx context.Context, routingKey string, body []byte) error) error {
	ch, err := c.ensureChannel(ctx)
	if err != nil {
		return err
	}
	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming ledger events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			err := handler(ctx, delivery.RoutingKey, delivery.Body)
			switch {
			case errors.Is(err, ErrMalformed):
				slog.ErrorContext(ctx, "Dropping malformed message", "routing_key", delivery.RoutingKey, "error", err)
				delivery.Nack(false, false)
			case err != nil:
				slog.ErrorContext(ctx, "Failed to handle message", "routing_key", delivery.RoutingKey, "error", err)
				delivery.Nack(false, true)
			default:
				delivery.Ack(false)
			}
		}
	}
}

var (
	// ErrMalformed tells Consume to drop a delivery instead of requeueing it.
	ErrMalformed = errors.New("malformed message")
	// ErrCircuitOpen is returned by publishes refused after repeated failures.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// exponentialBackoff doubles from one second and caps at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
