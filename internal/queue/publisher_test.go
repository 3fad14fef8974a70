package queue

import (
	"context"
	"net"
	"testing"
	"time"
)

// silentBroker accepts TCP connections and never answers the AMQP handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	t.Cleanup(func() {
		close(done)
		_ = ln.Close()
	})
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				<-done
				_ = conn.Close()
			}()
		}
	}()
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestPublishGivesUpWithinTimeoutOnSilentBroker(t *testing.T) {
	p := NewPublisher(silentBroker(t), 200*time.Millisecond, nil)
	defer p.Close()

	start := time.Now()
	err := p.PublishBookingEvent(context.Background(), NewBookingEvent(EventBookingCreated, sampleBooking(), time.Now()))
	if err == nil {
		t.Fatal("expected an error from a broker that never handshakes")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("publish blocked for %s", elapsed)
	}
}

func TestPublishStopsDialingAfterBreakerTrips(t *testing.T) {
	p := NewPublisher(silentBroker(t), 100*time.Millisecond, nil)
	defer p.Close()

	ev := NewBookingEvent(EventBookingCreated, sampleBooking(), time.Now())
	for i := 0; i < 3; i++ {
		_ = p.PublishBookingEvent(context.Background(), ev)
	}
	start := time.Now()
	if err := p.PublishBookingEvent(context.Background(), ev); err == nil {
		t.Fatal("expected the open breaker to reject the publish")
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("open breaker still dialed, took %s", elapsed)
	}
}
