package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-inventory-ledger/internal/logger"
)

// Publisher sends booking events to BookingQueue over one lazily opened
// channel.  A circuit breaker stops dialing a broker that keeps failing so
// booking requests are not slowed down by it.
type Publisher struct {
	url     string
	timeout time.Duration
	log     *zap.Logger
	breaker *gobreaker.CircuitBreaker

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string, timeout time.Duration, log *zap.Logger) *Publisher {
	log = logger.OrNop(log)
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Publisher{
		url:     url,
		timeout: timeout,
		log:     log,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "rabbitmq-publisher",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("circuit breaker state changed",
					zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
			},
		}),
	}
}

// PublishBookingEvent marshals ev and publishes it as a persistent message.
// When the breaker is open the event is dropped and gobreaker.ErrOpenState
// is returned.
func (p *Publisher) PublishBookingEvent(ctx context.Context, ev BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err = p.breaker.Execute(func() (interface{}, error) {
		ch, err := p.channel()
		if err != nil {
			return nil, err
		}
		err = ch.PublishWithContext(ctx, "", BookingQueue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.EventID,
			Type:         ev.Type,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
		if err != nil {
			p.reset()
		}
		return nil, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		p.log.Debug("booking event dropped, broker circuit open", zap.String("event_id", ev.EventID))
	}
	return err
}

// channel returns the open channel, dialing and declaring the queue first
// when needed.
func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.closeLocked()
	// The dial and handshake share the publish timeout; mu is held here.
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.timeout)})
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(BookingQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.reset()
	return nil
}
