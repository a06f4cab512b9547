// Package queue publishes fire and forget notifications over RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Logger is the minimal logging surface the publisher needs.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Publisher maintains a RabbitMQ channel and publishes JSON payloads to
// durable queues. Send never returns an error: a broker outage degrades to a
// false return so callers can log and move on.
type Publisher struct {
	url    string
	logger Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	queues  map[string]bool
}

// New creates a Publisher and attempts an initial connection. A failed dial
// is logged, not returned; the next Send retries.
func New(url string, logger Logger) *Publisher {
	p := &Publisher{
		url:    url,
		logger: logger,
		queues: map[string]bool{},
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		p.logger.Warn("queue initial connection failed", "error", err)
	}

	return p
}

// connect dials the broker and opens a channel. Callers hold p.mu.
func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	p.conn = conn
	p.channel = channel
	p.queues = map[string]bool{}

	p.logger.Info("queue connected", "url", redactURL(p.url))

	return nil
}

// ensure declares the durable queue once per connection. Callers hold p.mu.
func (p *Publisher) ensure(queueName string) error {
	if p.queues[queueName] {
		return nil
	}

	if _, err := p.channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return err
	}

	p.queues[queueName] = true
	return nil
}

// Send publishes the payload as persistent JSON. It reports success; all
// failures are logged and swallowed so a broker outage cannot fail the
// caller's operation.
func (p *Publisher) Send(ctx context.Context, queueName string, payload any) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("queue payload marshal failed", "queue", queueName, "error", err)
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.channel.IsClosed() {
		if err := p.connect(); err != nil {
			p.logger.Warn("queue reconnect failed", "queue", queueName, "error", err)
			return false
		}
	}

	if err := p.ensure(queueName); err != nil {
		p.logger.Warn("queue declare failed", "queue", queueName, "error", err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		})

	if err != nil {
		p.logger.Warn("queue publish failed", "queue", queueName, "error", err)
		return false
	}

	p.logger.Debug("queue publish", "queue", queueName, "bytes", len(body))

	return true
}

// Close tears down the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}

	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}

	return nil
}

// redactURL strips credentials from an amqp URL for log output.
func redactURL(url string) string {
	if parsed, err := amqp.ParseURI(url); err == nil {
		parsed.Password = ""
		return parsed.String()
	}
	return "amqp://***"
}
