package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// GetBooking returns a booking by ID or booking number.
func (s *Service) GetBooking(ctx context.Context, ref string) (model.Booking, error) {
	return s.resolve(ctx, ref)
}

// GetBookingByNumber returns a booking by its booking number only.
func (s *Service) GetBookingByNumber(ctx context.Context, number string) (model.Booking, error) {
	b, err := s.bookings.GetBookingByNumber(ctx, number)
	if err != nil {
		return model.Booking{}, fmt.Errorf("booking %s: %w", number, err)
	}
	return b, nil
}

// ListBookings applies f with the default and maximum page size.
func (s *Service) ListBookings(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	for _, st := range f.Statuses {
		if !st.Valid() {
			return nil, fmt.Errorf("%w: unknown booking status %q", repository.ErrValidation, st)
		}
	}
	if f.PaymentStatus != "" && !f.PaymentStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", repository.ErrValidation, f.PaymentStatus)
	}
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.RoomType = model.NormalizeRoomType(f.RoomType)
	f.GuestEmail = strings.ToLower(strings.TrimSpace(f.GuestEmail))
	return s.bookings.FindBookings(ctx, f)
}

// BookingsByGuest lists every booking made under the guest email.
func (s *Service) BookingsByGuest(ctx context.Context, email string) ([]model.Booking, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: email is required", repository.ErrValidation)
	}
	return s.ListBookings(ctx, repository.BookingFilter{GuestEmail: email, Limit: MaxListLimit})
}

// ActiveBookings lists the hotel's CHECKED_IN bookings.
func (s *Service) ActiveBookings(ctx context.Context, hotelID string) ([]model.Booking, error) {
	return s.ListBookings(ctx, repository.BookingFilter{
		HotelID:  hotelID,
		Statuses: []model.BookingStatus{model.BookingCheckedIn},
		Limit:    MaxListLimit,
	})
}

// UpcomingBookings lists CONFIRMED bookings checking in within the next
// days days, today included.
func (s *Service) UpcomingBookings(ctx context.Context, hotelID string, days int) ([]model.Booking, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive", repository.ErrValidation)
	}
	today := model.Day(s.now())
	return s.ListBookings(ctx, repository.BookingFilter{
		HotelID:     hotelID,
		Statuses:    []model.BookingStatus{model.BookingConfirmed},
		CheckInFrom: today,
		CheckInTo:   today.AddDate(0, 0, days),
		Limit:       MaxListLimit,
	})
}

// InventoryQuery narrows GetRoomInventory.  Empty fields do not filter.
type InventoryQuery struct {
	HotelID  string
	RoomType string
	From     time.Time
	To       time.Time
}

// GetRoomInventory lists ledger rows.
func (s *Service) GetRoomInventory(ctx context.Context, q InventoryQuery) ([]model.InventoryRow, error) {
	return s.ledger.Inventory(ctx, repository.InventoryFilter{
		HotelID:  q.HotelID,
		RoomType: model.NormalizeRoomType(q.RoomType),
		From:     q.From,
		To:       q.To,
	})
}
