package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

type PaymentInput struct {
	Method          string
	Amount          float64
	TransactionID   string
	TransactionDate time.Time
	Notes           string
}

type ChargeInput struct {
	Description string
	Amount      float64
	ChargeType  string
	ChargeDate  time.Time
	Notes       string
}

// AddPayment records a payment in any booking status and recomputes the
// payment status from the stored payments.
func (s *Service) AddPayment(ctx context.Context, ref string, in PaymentInput, actor string) (model.Booking, error) {
	method := strings.ToLower(strings.TrimSpace(in.Method))
	if !slices.Contains(model.PaymentMethods, method) {
		return model.Booking{}, fmt.Errorf("%w: unknown payment method %q", repository.ErrValidation, in.Method)
	}
	if in.Amount <= 0 {
		return model.Booking{}, fmt.Errorf("%w: payment amount must be positive", repository.ErrValidation)
	}
	b, err := s.resolve(ctx, ref)
	if err != nil {
		return model.Booking{}, err
	}
	date := in.TransactionDate
	if date.IsZero() {
		date = s.now()
	}
	p := model.Payment{
		Method:          method,
		Amount:          model.RoundMoney(in.Amount),
		TransactionID:   in.TransactionID,
		TransactionDate: date.UTC(),
		Status:          model.PaymentCompleted,
		Notes:           in.Notes,
	}
	updated, err := s.bookings.AppendPayment(ctx, b.ID, p, actor)
	if err != nil {
		return model.Booking{}, err
	}
	s.log.Info("payment added",
		zap.String("booking_id", b.ID),
		zap.Float64("amount", p.Amount),
		zap.String("payment_status", string(updated.PaymentStatus)))
	return updated, nil
}

// AddRoomCharge adds an incidental charge to a CHECKED_IN booking and
// raises its total.
func (s *Service) AddRoomCharge(ctx context.Context, ref string, in ChargeInput, actor string) (model.Booking, error) {
	chargeType := strings.ToLower(strings.TrimSpace(in.ChargeType))
	if !slices.Contains(model.ChargeTypes, chargeType) {
		return model.Booking{}, fmt.Errorf("%w: unknown charge type %q", repository.ErrValidation, in.ChargeType)
	}
	if in.Amount <= 0 {
		return model.Booking{}, fmt.Errorf("%w: charge amount must be positive", repository.ErrValidation)
	}
	if strings.TrimSpace(in.Description) == "" {
		return model.Booking{}, fmt.Errorf("%w: charge description is required", repository.ErrValidation)
	}
	b, err := s.resolve(ctx, ref)
	if err != nil {
		return model.Booking{}, err
	}
	if b.BookingStatus != model.BookingCheckedIn {
		return model.Booking{}, fmt.Errorf("%w: charges can only be added to CHECKED_IN bookings, %s is %s",
			repository.ErrValidation, b.BookingNumber, b.BookingStatus)
	}
	date := in.ChargeDate
	if date.IsZero() {
		date = s.now()
	}
	c := model.RoomCharge{
		Description: strings.TrimSpace(in.Description),
		Amount:      model.RoundMoney(in.Amount),
		ChargeType:  chargeType,
		ChargeDate:  date.UTC(),
		Notes:       in.Notes,
	}
	updated, err := s.bookings.AppendCharge(ctx, b.ID, c, model.BookingCheckedIn, actor)
	if errors.Is(err, repository.ErrStaleState) {
		return model.Booking{}, s.staleStatus(ctx, b.ID, model.BookingCheckedIn)
	}
	if err != nil {
		return model.Booking{}, err
	}
	s.log.Info("room charge added",
		zap.String("booking_id", b.ID),
		zap.String("charge_type", c.ChargeType),
		zap.Float64("amount", c.Amount),
		zap.Float64("total_amount", updated.TotalAmount))
	return updated, nil
}
