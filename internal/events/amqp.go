package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// AMQPPublisher publishes record events to a durable topic exchange so other
// services (CRM sync, analytics) can bind their own queues.
type AMQPPublisher struct {
	mu         sync.Mutex
	url        string
	exchange   string
	connection *amqp.Connection
	channel    *amqp.Channel
}

func NewAMQPPublisher(url, exchange string) *AMQPPublisher {
	return &AMQPPublisher{url: url, exchange: exchange}
}

// Dial connects and declares the exchange.
func (p *AMQPPublisher) Dial() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dialLocked()
}

func (p *AMQPPublisher) dialLocked() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}
	p.connection = conn
	p.channel = ch
	log.Info().Str("exchange", p.exchange).Msg("RabbitMQ publisher ready")
	return nil
}

// Publish sends evt with routing key "<kind>.<action>". A closed connection is
// re-dialed once.
func (p *AMQPPublisher) Publish(ctx context.Context, evt RecordEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode record event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.connection == nil || p.connection.IsClosed() {
		if err := p.dialLocked(); err != nil {
			return err
		}
	}
	err = p.channel.PublishWithContext(ctx, p.exchange, evt.RoutingKey(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    evt.At,
		Type:         evt.RoutingKey(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.exchange, err)
	}
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			return fmt.Errorf("failed to close channel: %w", err)
		}
		p.channel = nil
	}
	if p.connection != nil {
		if err := p.connection.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
		p.connection = nil
	}
	return nil
}
