package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-inventory-ledger/internal/ledger"
	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/queue"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

// RoomRequest asks for a number of rooms of one type.
type RoomRequest struct {
	RoomType      string
	NumberOfRooms int
}

type CreateInput struct {
	HotelID         string
	Guest           model.Guest
	Rooms           []RoomRequest
	CheckIn         time.Time
	CheckOut        time.Time
	NumberOfGuests  int
	Source          model.BookingSource
	RatePlan        string
	SpecialRequests string
	Actor           string
}

func (in *CreateInput) normalize() error {
	if strings.TrimSpace(in.HotelID) == "" {
		return fmt.Errorf("%w: hotel_id is required", repository.ErrValidation)
	}
	if strings.TrimSpace(in.Guest.Email) == "" {
		return fmt.Errorf("%w: guest email is required", repository.ErrValidation)
	}
	in.Guest.Email = strings.ToLower(strings.TrimSpace(in.Guest.Email))
	in.CheckIn, in.CheckOut = model.Day(in.CheckIn), model.Day(in.CheckOut)
	if !in.CheckOut.After(in.CheckIn) {
		return fmt.Errorf("%w: check_out_date must be after check_in_date", repository.ErrValidation)
	}
	if len(in.Rooms) == 0 {
		return fmt.Errorf("%w: at least one room type is required", repository.ErrValidation)
	}
	seen := make(map[string]bool, len(in.Rooms))
	for i := range in.Rooms {
		rt := model.NormalizeRoomType(in.Rooms[i].RoomType)
		if seen[rt] {
			return fmt.Errorf("%w: room type %s requested twice", repository.ErrValidation, rt)
		}
		seen[rt] = true
		if in.Rooms[i].NumberOfRooms <= 0 {
			return fmt.Errorf("%w: number_of_rooms for %s must be positive", repository.ErrValidation, rt)
		}
		in.Rooms[i].RoomType = rt
	}
	if in.Source == "" {
		in.Source = model.SourceDirect
	}
	if !in.Source.Valid() {
		return fmt.Errorf("%w: unknown booking source %q", repository.ErrValidation, in.Source)
	}
	if in.NumberOfGuests <= 0 {
		in.NumberOfGuests = 1
	}
	return nil
}

// CreateBooking prices the stay, locks inventory for every night and stores
// a CONFIRMED booking.  If the booking cannot be stored the locks are
// released again.
func (s *Service) CreateBooking(ctx context.Context, in CreateInput) (model.Booking, error) {
	if err := in.normalize(); err != nil {
		return model.Booking{}, err
	}
	if _, err := s.catalog.FindHotel(ctx, in.HotelID); err != nil {
		return model.Booking{}, err
	}
	groups := make([]model.RoomTypeBooking, 0, len(in.Rooms))
	for _, r := range in.Rooms {
		price, err := s.catalog.PriceOf(ctx, in.HotelID, r.RoomType)
		if err != nil {
			return model.Booking{}, err
		}
		groups = append(groups, model.RoomTypeBooking{
			RoomType:      r.RoomType,
			NumberOfRooms: r.NumberOfRooms,
			PricePerNight: price,
			RoomIDs:       []string{},
		})
	}
	quote := Price(groups, len(model.Nights(in.CheckIn, in.CheckOut)))

	now := s.now()
	b := model.Booking{
		HotelID:          in.HotelID,
		Guest:            in.Guest,
		RoomTypeBookings: groups,
		RoomIDs:          []string{},
		BookingSource:    in.Source,
		BookingStatus:    model.BookingConfirmed,
		PaymentStatus:    model.PaymentStatusFor(0, quote.TotalAmount),
		CheckInDate:      in.CheckIn,
		CheckOutDate:     in.CheckOut,
		NumberOfGuests:   in.NumberOfGuests,
		RatePlan:         in.RatePlan,
		SpecialRequests:  in.SpecialRequests,
		BaseAmount:       quote.BaseAmount,
		TaxAmount:        quote.TaxAmount,
		TotalAmount:      quote.TotalAmount,
		Payments:         []model.Payment{},
		RoomCharges:      []model.RoomCharge{},
		CreatedBy:        in.Actor,
		UpdatedBy:        in.Actor,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	stay := ledger.StayOf(b)
	if err := s.ledger.ReserveStay(ctx, stay); err != nil {
		return model.Booking{}, err
	}
	if err := s.insert(ctx, &b); err != nil {
		s.log.Error("booking insert failed, releasing reserved nights",
			zap.String("hotel_id", b.HotelID), zap.Error(err))
		cctx, cancel := detached(ctx)
		defer cancel()
		if rerr := s.ledger.ReleaseStay(cctx, stay, model.BucketLocked); rerr != nil {
			s.log.Error("release after failed insert incomplete", zap.Error(rerr))
		}
		return model.Booking{}, err
	}

	s.log.Info("booking created",
		zap.String("booking_id", b.ID),
		zap.String("booking_number", b.BookingNumber),
		zap.String("hotel_id", b.HotelID),
		zap.Float64("total_amount", b.TotalAmount))
	s.publish(ctx, queue.EventBookingCreated, b)
	return b, nil
}

// insert stores b with a fresh booking number, retrying once on a clash.
func (s *Service) insert(ctx context.Context, b *model.Booking) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		b.ID = ""
		b.BookingNumber = s.newNumber(s.now())
		err = s.bookings.InsertBooking(ctx, b)
		if !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
	}
	return fmt.Errorf("%w: booking number collision", repository.ErrValidation)
}
