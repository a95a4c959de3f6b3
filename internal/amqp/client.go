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
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateHalfOpen
	StateOpen
)

const (
	maxFailures = 5
	openTimeout = 30 * time.Second
)

// Client publishes and consumes the broker messages: payment-sync messages
// on the sync queue and reminder messages on the reminder queue. Both queues
// hang off one durable direct exchange.
//
// A small circuit breaker guards publishes so a dead broker cannot slow down
// the request path: after maxFailures consecutive failures publishes fail
// fast until openTimeout has passed.
type Client struct {
	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	url           string
	exchangeName  string
	syncQueue     string
	reminderQueue string

	failureCount int64
	state        int32
	lastFailure  time.Time

	redialing int32
}

func NewClient(url, exchangeName, syncQueue, reminderQueue string) (*Client, error) {
	client := &Client{
		url:           url,
		exchangeName:  exchangeName,
		syncQueue:     syncQueue,
		reminderQueue: reminderQueue,
	}

	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()

	if err := c.setup(); err != nil {
		c.Close()
		return fmt.Errorf("setup exchange and queues: %w", err)
	}
	return nil
}

func (c *Client) setup() error {
	// Declare exchange
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare and bind both queues; routing key equals queue name
	for _, queue := range []string{c.syncQueue, c.reminderQueue} {
		_, err = c.channel.QueueDeclare(
			queue, // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}

		err = c.channel.QueueBind(queue, queue, c.exchangeName, false, nil)
		if err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}

	return nil
}

// reconnect drops the dead connection and redials with exponential backoff.
// Callers hold no lock.
func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(exponentialBackoff(attempt)):
		}

		if err := c.connect(); err != nil {
			slog.WarnContext(ctx, "AMQP reconnect failed", "attempt", attempt+1, "error", err)
			continue
		}
		slog.InfoContext(ctx, "AMQP reconnected", "attempt", attempt+1)
		return nil
	}
}

// exponentialBackoff returns the wait before the given retry attempt,
// doubling from one second and capped at 30 seconds.
func exponentialBackoff(attempt int) time.Duration {
	if attempt > 4 {
		return 30 * time.Second
	}
	return time.Duration(1<<attempt) * time.Second
}

// isConnectionError reports whether an error looks like a broken broker
// connection (worth a reconnect) rather than a protocol or data problem.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range []string{
		"connection refused",
		"connection closed",
		"EOF",
		"broken pipe",
		"use of closed network connection",
		"channel/connection is not open",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func (c *Client) isCircuitOpen() bool {
	state := atomic.LoadInt32(&c.state)
	if state != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.StoreInt32(&c.state, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	failures := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if failures >= maxFailures {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return errors.New("circuit breaker is open")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil {
		c.recordFailure()
		return errors.New("channel not open")
	}

	err := channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent, // make message persistent
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.redialAsync()
		}
		return fmt.Errorf("publish message: %w", err)
	}

	c.recordSuccess()
	return nil
}

// redialAsync starts at most one background reconnect. Publishes keep
// failing fast through the circuit breaker until the redial lands.
func (c *Client) redialAsync() {
	if !atomic.CompareAndSwapInt32(&c.redialing, 0, 1) {
		return
	}
	go func() {
		defer atomic.StoreInt32(&c.redialing, 0)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := c.reconnect(ctx); err != nil {
			slog.Error("AMQP redial gave up", "error", err)
		}
	}()
}

// PublishPaymentSync publishes a payment sync message
func (c *Client) PublishPaymentSync(ctx context.Context, id, attempt int64) error {
	msg := NewPaymentSyncMessage(id, attempt)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, c.syncQueue, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published payment sync message",
		"id", id,
		"attempt", attempt,
		"exchange", c.exchangeName,
		"queue", c.syncQueue)

	return nil
}

// PublishReminder publishes a payment reminder message
func (c *Client) PublishReminder(ctx context.Context, msg *ReminderMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, c.reminderQueue, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published reminder message",
		"member_id", msg.MemberID,
		"balance_cents", msg.BalanceCents,
		"queue", c.reminderQueue)

	return nil
}

// ConsumePaymentSync consumes payment sync messages until ctx is cancelled.
func (c *Client) ConsumePaymentSync(ctx context.Context, handler func(*PaymentSyncMessage) error) error {
	return c.consume(ctx, c.syncQueue, func(body []byte) error {
		msg, err := PaymentSyncMessageFromJSON(body)
		if err != nil {
			return errUnmarshal{err}
		}
		return handler(msg)
	})
}

// ConsumeReminders consumes reminder messages until ctx is cancelled.
func (c *Client) ConsumeReminders(ctx context.Context, handler func(*ReminderMessage) error) error {
	return c.consume(ctx, c.reminderQueue, func(body []byte) error {
		msg, err := ReminderMessageFromJSON(body)
		if err != nil {
			return errUnmarshal{err}
		}
		return handler(msg)
	})
}

// errUnmarshal marks deliveries that can never be processed; they are
// rejected without requeue.
type errUnmarshal struct{ err error }

func (e errUnmarshal) Error() string { return "unmarshal message: " + e.err.Error() }

// consume keeps a consumer alive on the queue until ctx is cancelled. When
// the broker drops the connection it redials and resumes consuming.
func (c *Client) consume(ctx context.Context, queue string, handle func([]byte) error) error {
	for {
		msgs, err := c.startDeliveries(queue)
		if err != nil {
			if !isConnectionError(err) {
				return err
			}
			slog.WarnContext(ctx, "Consume failed, reconnecting", "queue", queue, "error", err)
			if err := c.reconnect(ctx); err != nil {
				return err
			}
			continue
		}

		slog.InfoContext(ctx, "Started consuming messages", "queue", queue)

		if err := c.drainDeliveries(ctx, queue, msgs, handle); err != nil {
			return err
		}

		// The delivery channel closed under us: the broker went away.
		// Unacked deliveries return to the queue, so redial and resume.
		slog.WarnContext(ctx, "Delivery channel closed, reconnecting", "queue", queue)
		if err := c.reconnect(ctx); err != nil {
			return err
		}
	}
}

func (c *Client) startDeliveries(queue string) (<-chan amqp091.Delivery, error) {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil {
		return nil, errors.New("channel/connection is not open")
	}

	msgs, err := channel.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack (we want manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("start consuming: %w", err)
	}
	return msgs, nil
}

// drainDeliveries processes deliveries until ctx is cancelled (returns
// ctx.Err()) or the channel closes (returns nil so the caller redials).
func (c *Client) drainDeliveries(ctx context.Context, queue string, msgs <-chan amqp091.Delivery, handle func([]byte) error) error {
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return nil
			}

			err := handle(delivery.Body)
			if err != nil {
				var bad errUnmarshal
				if errors.As(err, &bad) {
					slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err, "queue", queue)
					delivery.Nack(false, false) // reject and don't requeue
					continue
				}
				slog.ErrorContext(ctx, "Failed to handle message", "error", err, "queue", queue)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false) // acknowledge successful processing
		}
	}
}

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
