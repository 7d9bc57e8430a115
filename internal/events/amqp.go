package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mansoorceksport/learnify/internal/domain"
	"github.com/streadway/amqp"
)

// Connect dials the broker, retrying while it starts up
func Connect(url string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "events.Connect"
	var conn *amqp.Connection
	var err error

	for i := 0; i < retries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		log.Printf("[Events] Broker not reachable (attempt %d/%d): %v", i+1, retries, err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel declares the change exchange and a durable queue bound to
// both entity kinds
func SetupChannel(conn *amqp.Connection, exchange, queue string) (*amqp.Channel, error) {
	const op = "events.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, queue, err)
	}

	for _, kind := range []domain.EntityKind{domain.EntityUser, domain.EntityCourse} {
		if err := ch.QueueBind(queue, string(kind), exchange, false, nil); err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, queue, kind, err)
		}
	}

	return ch, nil
}

// AMQPPublisher implements domain.ChangePublisher on a RabbitMQ exchange.
// Replicas consume one shared named queue, so each event reaches a single
// replica's aggregator, which recomputes from the shared store.
type AMQPPublisher struct {
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
}

// NewAMQPPublisher creates a publisher on an already declared exchange
func NewAMQPPublisher(ch *amqp.Channel, exchange string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, exchange: exchange}
}

// Publish sends the event with the entity kind as routing key
func (p *AMQPPublisher) Publish(ctx context.Context, event domain.ChangeEvent) error {
	const op = "events.Publish"
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.Publish(
		p.exchange,
		string(event.Kind),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.At,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Consume forwards change events from the queue to the handler until ctx is done.
// Malformed messages are dropped; the handler itself never fails.
func Consume(ctx context.Context, ch *amqp.Channel, queue string, handler Handler) error {
	const op = "events.Consume"
	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	go func() {
		for {
			select {
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				var event domain.ChangeEvent
				if err := json.Unmarshal(d.Body, &event); err != nil {
					log.Printf("[Events] Dropping malformed message: %v", err)
					if nackErr := d.Nack(false, false); nackErr != nil {
						log.Printf("[Events] Failed to nack message: %v", nackErr)
					}
					continue
				}
				handler(event)
				if ackErr := d.Ack(false); ackErr != nil {
					log.Printf("[Events] Failed to ack message: %v", ackErr)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
