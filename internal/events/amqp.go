package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// confirmBuffer holds confirms that arrive after their publish gave up waiting.
const confirmBuffer = 64

// AMQPPublisher publishes persistent JSON messages to a topic exchange and
// waits for the broker's confirm.
type AMQPPublisher struct {
	conn     *amqp.Connection
	exchange string
	timeout  time.Duration

	mu       sync.Mutex
	ch       *amqp.Channel
	confirms chan amqp.Confirmation
}

// NewAMQPPublisher dials the broker, declares the exchange and puts the
// channel into confirm mode.
func NewAMQPPublisher(url, exchange string, timeout time.Duration) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: declare exchange %s: %w", exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: enable confirms: %w", err)
	}

	return &AMQPPublisher{
		conn:     conn,
		exchange: exchange,
		timeout:  timeout,
		ch:       ch,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, confirmBuffer)),
	}, nil
}

// Publish sends the event with its type as routing key.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn.IsClosed() || p.ch.IsClosed() {
		return errors.New("rabbitmq: channel is not open")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	tag := p.ch.GetNextPublishSeqNo()
	err = p.ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Body:         body,
	})
	if err != nil {
		return err
	}

	return awaitConfirm(ctx, p.confirms, tag)
}

// awaitConfirm waits for the confirm of delivery tag. Confirms for earlier
// tags belong to publishes that stopped waiting and are discarded.
func awaitConfirm(ctx context.Context, confirms <-chan amqp.Confirmation, tag uint64) error {
	for {
		select {
		case c, ok := <-confirms:
			if !ok {
				return errors.New("rabbitmq: confirm channel closed")
			}
			switch {
			case c.DeliveryTag < tag:
				continue
			case c.DeliveryTag > tag:
				return fmt.Errorf("rabbitmq: missed confirm for delivery %d", tag)
			case !c.Ack:
				return errors.New("rabbitmq: publish not acknowledged")
			default:
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close shuts down the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.ch.Close()
	return p.conn.Close()
}
