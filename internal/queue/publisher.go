package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes booking events to RabbitMQ.  The connection is dialed
// lazily and re-dialed after a failure.  Errors are logged and returned so
// the caller can choose to ignore them; a booking is never rolled back
// because an event could not be delivered.
type Publisher struct {
	url    string
	logger echo.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, logger echo.Logger) *Publisher {
	return &Publisher{url: url, logger: logger}
}

// BookingConfirmed publishes ev to the booking.confirmed queue.
func (p *Publisher) BookingConfirmed(ctx context.Context, ev BookingEvent) error {
	ev.Type = "confirmed"
	return p.publish(ctx, BookingConfirmedQueue, ev)
}

// BookingCancelled publishes ev to the booking.cancelled queue.
func (p *Publisher) BookingCancelled(ctx context.Context, ev BookingEvent) error {
	ev.Type = "cancelled"
	return p.publish(ctx, BookingCancelledQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queue string, ev BookingEvent) error {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		p.logger.Errorf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked(queue)
	if err != nil {
		p.logger.Errorf("rabbitmq: channel unavailable: %v", err)
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    ev.EventID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		pub,
	); err != nil {
		p.logger.Errorf("rabbitmq: publish to %s failed: %v", queue, err)
		p.resetLocked()
		return err
	}
	return nil
}

// channelLocked returns an open channel with queue declared, dialing when
// needed.  p.mu must be held.
func (p *Publisher) channelLocked(queue string) (*amqp.Channel, error) {
	if p.conn == nil || p.conn.IsClosed() || p.ch == nil || p.ch.IsClosed() {
		p.resetLocked()
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("dial: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("channel open: %w", err)
		}
		p.conn, p.ch = conn, ch
	}
	// Idempotent; durable so messages survive broker restarts.
	if _, err := p.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.resetLocked()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	return p.ch, nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}
