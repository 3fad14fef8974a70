package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/iliyamo/hotel-inventory-ledger/internal/logger"
)

// NewAuditLogger returns a JSON-lines logger writing to a size-rotated file
// at path.  The returned func flushes and closes the file.
func NewAuditLogger(path string) (*zap.Logger, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	sink := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		LocalTime:  false,
	}
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "logged_at"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(sink), zapcore.InfoLevel)
	audit := zap.New(core)
	return audit, func() error {
		_ = audit.Sync()
		return sink.Close()
	}, nil
}

// StartBookingConsumer consumes BookingQueue and writes one audit line per
// event.  It reconnects with exponential backoff and returns only when ctx
// is done.
func StartBookingConsumer(ctx context.Context, url string, audit, log *zap.Logger) error {
	audit, log = logger.OrNop(audit), logger.OrNop(log)
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("booking consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, audit, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("booking consumer: loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, audit, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("booking consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(BookingQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(BookingQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(audit, d.Body); err != nil {
				log.Warn("booking consumer: rejecting message", zap.Error(err))
				_ = d.Nack(false, false) // do not requeue a message that cannot be parsed
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(audit *zap.Logger, body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.BookingID == "" {
		return errors.New("event without type or booking id")
	}
	audit.Info(ev.Type,
		zap.String("event_id", ev.EventID),
		zap.String("booking_id", ev.BookingID),
		zap.String("booking_number", ev.BookingNumber),
		zap.String("hotel_id", ev.HotelID),
		zap.String("status", string(ev.Status)),
		zap.String("check_in_date", ev.CheckInDate),
		zap.String("check_out_date", ev.CheckOutDate),
		zap.Strings("room_types", ev.RoomTypes),
		zap.Strings("room_ids", ev.RoomIDs),
		zap.Float64("total_amount", ev.TotalAmount),
		zap.String("occurred_at", ev.OccurredAt),
	)
	return nil
}
