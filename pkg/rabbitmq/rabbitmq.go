package rabbitmq

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"resell/internal/models"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"
	amqp "github.com/streadway/amqp"
)

// Queue names. Payment events are keyed by order id.
const (
	PaymentQueue      = "payment-processing"
	PaymentRetryQueue = "payment-retry"
	NotificationQueue = "notifications"

	retryWaitPrefix = "payment-retry-wait."
	orderIDHeader   = "x-order-id"
)

// Client holds the RabbitMQ connection and the publishing channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex // guards channel and waitQueues; amqp channels are not safe for concurrent publish

	waitQueues map[int64]struct{}
	prefetch   int
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL         string
	DialRetries uint
	Prefetch    int
}

// NewClient connects to RabbitMQ, retrying with exponential backoff, and declares the
// payment and notification queues.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	tries := cfg.DialRetries
	if tries == 0 {
		tries = 5
	}
	conn, err := backoff.Retry(ctx, func() (*amqp.Connection, error) {
		c, err := amqp.Dial(cfg.URL)
		if err != nil {
			log.Printf("rabbitmq: dial failed, retrying: %v", err)
			return nil, err
		}
		return c, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(tries))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, q := range []string{PaymentQueue, PaymentRetryQueue, NotificationQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare %s: %w", q, err)
		}
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 32
	}
	log.Println("rabbitmq: connected and queues declared")

	return &Client{
		conn:       conn,
		channel:    ch,
		waitQueues: make(map[int64]struct{}),
		prefetch:   prefetch,
	}, nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// PublishPayment enqueues a payment event on payment-processing.
func (c *Client) PublishPayment(ctx context.Context, evt *models.PaymentEvent) error {
	return c.publishEvent(ctx, PaymentQueue, evt)
}

// PublishPaymentRetry schedules evt for delivery on payment-retry after delay. The event
// waits in a per-delay queue whose TTL dead-letters it into payment-retry, so no consumer
// blocks while the delay runs.
func (c *Client) PublishPaymentRetry(ctx context.Context, evt *models.PaymentEvent, delay time.Duration) error {
	if delay <= 0 {
		return c.publishEvent(ctx, PaymentRetryQueue, evt)
	}
	queue, err := c.waitQueue(delay)
	if err != nil {
		return err
	}
	return c.publishEvent(ctx, queue, evt)
}

// PublishNotification sends a fire-and-forget notification.
func (c *Client) PublishNotification(ctx context.Context, n models.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	return c.publish(ctx, NotificationQueue, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         n.Type,
	})
}

// Consume starts a manual-ack consumer on its own channel. The returned channel closes
// when the broker cancels the consumer or the connection drops.
func (c *Client) Consume(queue, tag string) (<-chan amqp.Delivery, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open consumer channel: %w", err)
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}
	msgs, err := ch.Consume(
		queue, // queue
		tag,   // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to register consumer on %s: %w", queue, err)
	}
	log.Printf("rabbitmq: consuming %s as %s", queue, tag)
	return msgs, nil
}

func (c *Client) publishEvent(ctx context.Context, queue string, evt *models.PaymentEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal payment event: %w", err)
	}
	return c.publish(ctx, queue, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		MessageId:    evt.EventID,
		Headers:      amqp.Table{orderIDHeader: evt.OrderID},
	})
}

func (c *Client) publish(ctx context.Context, queue string, msg amqp.Publishing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}
	if err := c.channel.Publish("", queue, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}
	return nil
}

// waitQueue declares, once per distinct delay, a queue without consumers that
// dead-letters expired messages into payment-retry.
func (c *Client) waitQueue(delay time.Duration) (string, error) {
	ms := delay.Milliseconds()
	name := WaitQueueName(delay)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.waitQueues[ms]; ok {
		return name, nil
	}
	_, err := c.channel.QueueDeclare(name, true, false, false, false, amqp.Table{
		"x-message-ttl":             ms,
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": PaymentRetryQueue,
	})
	if err != nil {
		return "", fmt.Errorf("failed to declare %s: %w", name, err)
	}
	c.waitQueues[ms] = struct{}{}
	return name, nil
}

// WaitQueueName returns the delay queue used for the given retry delay.
func WaitQueueName(delay time.Duration) string {
	return fmt.Sprintf("%s%d", retryWaitPrefix, delay.Milliseconds())
}

// OrderID extracts the partition key of a payment delivery from its headers.
func OrderID(d amqp.Delivery) string {
	if v, ok := d.Headers[orderIDHeader].(string); ok {
		return v
	}
	return ""
}
