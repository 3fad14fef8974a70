package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

// Group is a number of rooms of one type held for every night of a stay.
type Group struct {
	RoomType string
	Rooms    int
}

// Stay covers the nights [CheckIn, CheckOut) for a set of room groups.
type Stay struct {
	HotelID  string
	CheckIn  time.Time
	CheckOut time.Time
	Groups   []Group
}

// StayOf builds a Stay from a booking's room type lines.
func StayOf(b model.Booking) Stay {
	s := Stay{HotelID: b.HotelID, CheckIn: b.CheckInDate, CheckOut: b.CheckOutDate}
	for _, rtb := range b.RoomTypeBookings {
		s.Groups = append(s.Groups, Group{RoomType: rtb.RoomType, Rooms: rtb.NumberOfRooms})
	}
	return s
}

type step struct {
	key model.InventoryKey
	n   int
}

func (s Stay) steps() ([]step, error) {
	nights := model.Nights(s.CheckIn, s.CheckOut)
	if len(nights) == 0 {
		return nil, fmt.Errorf("%w: check-out must be after check-in", repository.ErrValidation)
	}
	out := make([]step, 0, len(nights)*len(s.Groups))
	for _, g := range s.Groups {
		if g.Rooms <= 0 {
			return nil, fmt.Errorf("%w: room count for %s must be positive", repository.ErrValidation, g.RoomType)
		}
		for _, night := range nights {
			out = append(out, step{
				key: model.InventoryKey{HotelID: s.HotelID, RoomType: g.RoomType, Date: night},
				n:   g.Rooms,
			})
		}
	}
	return out, nil
}

// apply runs do for every step in order.  When a step fails, undo runs for
// the already applied steps in reverse order and the original error is
// returned; undo failures are only logged.
func (l *Ledger) apply(ctx context.Context, op string, steps []step,
	do, undo func(context.Context, model.InventoryKey, int) error) error {
	for i, st := range steps {
		err := do(ctx, st.key, st.n)
		if err == nil {
			continue
		}
		l.compensate(ctx, op, steps[:i], undo)
		return err
	}
	return nil
}

func (l *Ledger) compensate(ctx context.Context, op string, done []step,
	undo func(context.Context, model.InventoryKey, int) error) {
	if len(done) == 0 {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	for i := len(done) - 1; i >= 0; i-- {
		st := done[i]
		if err := undo(cctx, st.key, st.n); err != nil {
			l.log.Error("ledger compensation failed",
				append(keyFields(st.key, st.n), zap.String("op", op), zap.Error(err))...)
		}
	}
}

// ReserveStay locks every night of every group, or nothing.
func (l *Ledger) ReserveStay(ctx context.Context, s Stay) error {
	steps, err := s.steps()
	if err != nil {
		return err
	}
	return l.apply(ctx, "reserve", steps, l.Reserve,
		func(ctx context.Context, key model.InventoryKey, n int) error {
			return l.Release(ctx, key, n, model.BucketLocked)
		})
}

// ConfirmStay moves every night of every group from locked to booked, or
// nothing.
func (l *Ledger) ConfirmStay(ctx context.Context, s Stay) error {
	steps, err := s.steps()
	if err != nil {
		return err
	}
	return l.apply(ctx, "confirm", steps, l.ConfirmAssignment, l.RevertAssignment)
}

// RevertStay moves every night back from booked to locked.  It is used to
// undo a ConfirmStay whose follow-up steps failed, so it never stops early.
func (l *Ledger) RevertStay(ctx context.Context, s Stay) error {
	steps, err := s.steps()
	if err != nil {
		return err
	}
	var errs []error
	for _, st := range steps {
		if err := l.RevertAssignment(ctx, st.key, st.n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ReleaseStay returns every night of every group from the given bucket to
// available.  Skipped nights do not stop the loop; their inconsistency
// warnings come back joined.
func (l *Ledger) ReleaseStay(ctx context.Context, s Stay, from model.LedgerBucket) error {
	steps, err := s.steps()
	if err != nil {
		return err
	}
	var errs []error
	for _, st := range steps {
		if err := l.Release(ctx, st.key, st.n, from); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OnlyInconsistencies reports whether err is nil or made up solely of
// ErrLedgerInconsistency warnings.
func OnlyInconsistencies(err error) bool {
	if err == nil {
		return true
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range j.Unwrap() {
			if !OnlyInconsistencies(e) {
				return false
			}
		}
		return true
	}
	return errors.Is(err, repository.ErrLedgerInconsistency)
}
