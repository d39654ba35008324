package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AuditConsumer listens to the booking queues and appends one line per
// event to <dir>/booking.log, giving operators a history of every seat
// reservation and release independent of the database.
type AuditConsumer struct {
	URL    string
	Dir    string
	Logger echo.Logger
}

// Run connects to RabbitMQ, declares the booking queues (durable) and
// consumes them until ctx is cancelled.  Broker failures are retried with
// exponential backoff capped at 30s.  Messages that cannot be handled are
// rejected without requeue so the consumer never spins on a poison
// message.
func (a *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(a.URL)
		if err != nil {
			a.Logger.Warnf("booking-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = a.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.Logger.Warnf("booking-consumer: consume loop ended: %v; reconnecting", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (a *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		a.Logger.Warnf("booking-consumer: set QoS failed: %v", err)
	}

	merged := make(chan amqp.Delivery)
	done := make(chan struct{})
	defer close(done)
	for _, q := range []string{BookingConfirmedQueue, BookingCancelledQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		go forward(done, msgs, merged)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cerr := <-closed:
			if cerr == nil {
				return errors.New("connection closed")
			}
			return cerr
		case d := <-merged:
			if err := a.handleMessage(d.RoutingKey, d.Body); err != nil {
				a.Logger.Errorf("booking-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// forward copies deliveries from in to out until in is closed or done is.
func forward(done <-chan struct{}, in <-chan amqp.Delivery, out chan<- amqp.Delivery) {
	for {
		select {
		case <-done:
			return
		case d, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- d:
			case <-done:
				return
			}
		}
	}
}

func (a *AuditConsumer) handleMessage(routingKey string, body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		ev.Type = strings.TrimPrefix(routingKey, "booking.")
	}
	dir := a.Dir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatAuditLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatAuditLine(ev BookingEvent) string {
	return fmt.Sprintf("[%s] Booking %s | booking_id=%d | ref=%s | user_id=%d | show_id=%d | theatre=%q | screen=%q | movie=%q | show=%s %s | total=%d | seats=[%s]\n",
		ev.OccurredAt, ev.Type, ev.BookingID, ev.Reference, ev.UserID, ev.ShowID,
		ev.TheatreName, ev.ScreenName, ev.MovieTitle, ev.ShowDate, ev.ShowTime,
		ev.TotalAmount, strings.Join(ev.Seats, ","))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
