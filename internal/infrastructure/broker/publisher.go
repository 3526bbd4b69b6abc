// Package broker publishes domain events to RabbitMQ. The outbox relay is
// the only caller: events are written to the tenant's outbox table inside
// the business transaction and forwarded from there, so a broker outage
// never loses an event, it only delays it.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"bartally/internal/infrastructure/storage/postgres"
)

// Publisher owns one connection and channel to the broker. Publishes are
// serialized; the relay's retry-with-backoff covers transient failures, so
// there is no reconnect logic here.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string

	mu sync.Mutex
}

// NewPublisher connects to the broker and declares the topic exchange.
func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &Publisher{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
	}, nil
}

// Close shuts the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return fmt.Errorf("close channel: %w", err)
	}
	return p.conn.Close()
}

// publish sends one message. The routing key is the event type
// ("period.closed"), so consumers bind with patterns like "period.*".
func (p *Publisher) publish(ctx context.Context, tenantID string, msg *postgres.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(ctx,
		p.exchange,
		msg.EventType,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			Headers: amqp.Table{
				"tenant_id":      tenantID,
				"aggregate_type": msg.AggregateType,
				"aggregate_id":   msg.AggregateID.String(),
			},
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID.String(),
			Type:         msg.EventType,
			Timestamp:    time.Now().UTC(),
			Body:         msg.Payload,
		},
	)
}

// tenantHandler adapts the publisher to one tenant's outbox relay.
type tenantHandler struct {
	publisher *Publisher
	tenantID  string
}

// ForTenant returns an outbox handler stamping messages with the tenant.
// One publisher serves every tenant; only the header differs.
func (p *Publisher) ForTenant(tenantID string) postgres.OutboxHandler {
	return &tenantHandler{publisher: p, tenantID: tenantID}
}

func (h *tenantHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	return h.publisher.publish(ctx, h.tenantID, msg)
}
