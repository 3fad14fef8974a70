// Package queue defines the booking lifecycle events exchanged over the
// message broker, the publisher that emits them and the consumer that
// writes them to the booking audit log.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
)

// BookingQueue is the durable queue every booking event is routed to.
const BookingQueue = "booking.events"

// Event types.
const (
	EventBookingCreated  = "booking.created"
	EventRoomsAssigned   = "booking.rooms_assigned"
	EventBookingCanceled = "booking.cancelled"
	EventCheckedOut      = "booking.checked_out"
)

// BookingEvent is published after a booking transition has been stored.  It
// carries enough for consumers to log or notify without reading the store.
type BookingEvent struct {
	EventID       string              `json:"event_id"`
	Type          string              `json:"type"`
	BookingID     string              `json:"booking_id"`
	BookingNumber string              `json:"booking_number"`
	HotelID       string              `json:"hotel_id"`
	Status        model.BookingStatus `json:"status"`
	CheckInDate   string              `json:"check_in_date"`
	CheckOutDate  string              `json:"check_out_date"`
	RoomTypes     []string            `json:"room_types"`
	RoomIDs       []string            `json:"room_ids"`
	TotalAmount   float64             `json:"total_amount"`
	OccurredAt    string              `json:"occurred_at"`
}

// NewBookingEvent snapshots b for the given event type.
func NewBookingEvent(eventType string, b model.Booking, at time.Time) BookingEvent {
	types := make([]string, 0, len(b.RoomTypeBookings))
	for _, rtb := range b.RoomTypeBookings {
		types = append(types, rtb.RoomType)
	}
	roomIDs := b.RoomIDs
	if roomIDs == nil {
		roomIDs = []string{}
	}
	return BookingEvent{
		EventID:       uuid.NewString(),
		Type:          eventType,
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		HotelID:       b.HotelID,
		Status:        b.BookingStatus,
		CheckInDate:   b.CheckInDate.Format(time.DateOnly),
		CheckOutDate:  b.CheckOutDate.Format(time.DateOnly),
		RoomTypes:     types,
		RoomIDs:       roomIDs,
		TotalAmount:   b.TotalAmount,
		OccurredAt:    at.UTC().Format(time.RFC3339),
	}
}
