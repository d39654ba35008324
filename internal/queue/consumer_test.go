package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

func TestHandleMessage_AppendsAuditLine(t *testing.T) {
	dir := t.TempDir()
	a := &AuditConsumer{Dir: dir, Logger: echo.New().Logger}

	ev := BookingEvent{
		BookingID:   7,
		Reference:   "ref-7",
		UserID:      3,
		ShowID:      11,
		MovieTitle:  "Arrival",
		Seats:       []string{"A1", "D2"},
		TotalAmount: 500,
		OccurredAt:  "2026-10-18T10:00:00Z",
	}
	body, _ := json.Marshal(ev)
	if err := a.handleMessage(BookingConfirmedQueue, body); err != nil {
		t.Fatalf("handle confirmed: %v", err)
	}
	ev.Type = "cancelled"
	body, _ = json.Marshal(ev)
	if err := a.handleMessage(BookingCancelledQueue, body); err != nil {
		t.Fatalf("handle cancelled: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "booking.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), raw)
	}
	if !strings.Contains(lines[0], "Booking confirmed") || !strings.Contains(lines[0], "seats=[A1,D2]") {
		t.Fatalf("unexpected first line: %s", lines[0])
	}
	if !strings.Contains(lines[1], "Booking cancelled") {
		t.Fatalf("unexpected second line: %s", lines[1])
	}
}

func TestHandleMessage_RejectsMalformedBody(t *testing.T) {
	a := &AuditConsumer{Dir: t.TempDir(), Logger: echo.New().Logger}
	if err := a.handleMessage(BookingConfirmedQueue, []byte("{not json")); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestSleepCtx_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if sleepCtx(ctx, time.Minute) {
		t.Fatal("expected sleep to be interrupted")
	}
	if time.Since(start) > time.Second {
		t.Fatal("sleep did not return promptly")
	}
}

func TestForward_StopsWhenLoopEnds(t *testing.T) {
	in := make(chan amqp.Delivery, 2)
	in <- amqp.Delivery{RoutingKey: BookingConfirmedQueue}
	in <- amqp.Delivery{RoutingKey: BookingCancelledQueue}
	out := make(chan amqp.Delivery)
	done := make(chan struct{})

	returned := make(chan struct{})
	go func() {
		forward(done, in, out)
		close(returned)
	}()

	d := <-out
	if d.RoutingKey != BookingConfirmedQueue {
		t.Fatalf("unexpected delivery %q", d.RoutingKey)
	}
	// Nobody reads out any more and in stays open.
	close(done)
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("forward still blocked after done was closed")
	}
}

func TestForward_StopsWhenSourceCloses(t *testing.T) {
	in := make(chan amqp.Delivery)
	close(in)
	returned := make(chan struct{})
	go func() {
		forward(make(chan struct{}), in, make(chan amqp.Delivery))
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("forward did not return after the delivery channel closed")
	}
}
