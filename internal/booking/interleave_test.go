package booking

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iliyamo/hotel-inventory-ledger/internal/catalog"
	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository/memstore"
)

// pausingRooms runs hook once, right before the first room write that moves
// a room to status on.  It lets a test run a second operation in the gap
// between one operation's checks and its writes.
type pausingRooms struct {
	*memstore.DB
	on    model.RoomStatus
	fired atomic.Bool
	hook  func()
}

func (p *pausingRooms) SetRoomStatus(ctx context.Context, id string, from, to model.RoomStatus) (bool, error) {
	if to == p.on && p.fired.CompareAndSwap(false, true) {
		p.hook()
	}
	return p.DB.SetRoomStatus(ctx, id, from, to)
}

// pausedService returns a service whose first occupy write runs hook first.
func (f *fixture) pausedService(hook func(svc *Service)) *Service {
	rooms := &pausingRooms{DB: f.db, on: model.RoomOccupied}
	svc := New(f.db, f.ledger, catalog.New(rooms, f.db, nil), nil, nil)
	rooms.hook = func() { hook(svc) }
	return svc
}

func TestAssignSameRoomToTwoBookingsOneWins(t *testing.T) {
	f := newFixture(t, 2)
	first, second := f.create(t, 1), f.create(t, 1)
	room := f.deluxe[0].ID
	assign := []Assignment{{RoomType: "deluxe", RoomIDs: []string{room}}}

	var innerErr error
	svc := f.pausedService(func(svc *Service) {
		_, innerErr = svc.AssignRooms(context.Background(), second.ID, assign, "user-2")
	})
	_, outerErr := svc.AssignRooms(context.Background(), first.ID, assign, "user-1")

	if innerErr != nil {
		t.Fatalf("inner assign: %v", innerErr)
	}
	if !errors.Is(outerErr, repository.ErrRaceCondition) {
		t.Fatalf("outer assign: expected race condition, got %v", outerErr)
	}

	holders := 0
	for _, id := range []string{first.ID, second.ID} {
		b, err := f.db.GetBooking(context.Background(), id)
		if err != nil {
			t.Fatal(err)
		}
		if b.BookingStatus == model.BookingCheckedIn {
			holders++
		}
		if b.AssignLease != nil {
			t.Fatalf("booking %s kept its assignment lease", b.BookingNumber)
		}
	}
	if holders != 1 {
		t.Fatalf("expected one CHECKED_IN booking, got %d", holders)
	}
	if st := f.roomStatus(t, room); st != model.RoomOccupied {
		t.Fatalf("room is %s", st)
	}
	f.expectNights(t, 0, 1, 1)
}

func TestAssignRollsBackRoomsItFlipped(t *testing.T) {
	f := newFixture(t, 3)
	first, second := f.create(t, 2), f.create(t, 1)
	d0, d1 := f.deluxe[0].ID, f.deluxe[1].ID

	// The second booking takes d1 while the first is about to occupy d0 and d1.
	svc := f.pausedService(func(svc *Service) {
		if _, err := svc.AssignRooms(context.Background(), second.ID,
			[]Assignment{{RoomType: "deluxe", RoomIDs: []string{d1}}}, "user-2"); err != nil {
			t.Errorf("inner assign: %v", err)
		}
	})
	_, err := svc.AssignRooms(context.Background(), first.ID,
		[]Assignment{{RoomType: "deluxe", RoomIDs: []string{d0, d1}}}, "user-1")
	if !errors.Is(err, repository.ErrRaceCondition) {
		t.Fatalf("expected race condition, got %v", err)
	}
	if st := f.roomStatus(t, d0); st != model.RoomAvailable {
		t.Fatalf("d0 left %s", st)
	}
	if st := f.roomStatus(t, d1); st != model.RoomOccupied {
		t.Fatalf("d1 taken from the winner, now %s", st)
	}
	f.expectNights(t, 0, 2, 1)
}

func TestCancelDuringAssignmentIsRejected(t *testing.T) {
	f := newFixture(t, 2)
	b := f.create(t, 1)

	var (
		cancelled bool
		cancelErr error
	)
	svc := f.pausedService(func(svc *Service) {
		cancelled, cancelErr = svc.CancelBooking(context.Background(), b.ID, "user-2")
	})
	got, err := svc.AssignRooms(context.Background(), b.ID,
		[]Assignment{{RoomType: "deluxe", RoomIDs: []string{f.deluxe[0].ID}}}, "user-1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if cancelled || !errors.Is(cancelErr, repository.ErrRaceCondition) {
		t.Fatalf("cancel during assignment: %v %v", cancelled, cancelErr)
	}
	if got.BookingStatus != model.BookingCheckedIn {
		t.Fatalf("expected CHECKED_IN, got %s", got.BookingStatus)
	}
	f.expectNights(t, 1, 0, 1)

	// Once the assignment is done the booking cancels normally.
	if ok, err := f.svc.CancelBooking(context.Background(), b.ID, "user-2"); err != nil || !ok {
		t.Fatalf("cancel after assignment: %v %v", ok, err)
	}
	f.expectNights(t, 2, 0, 0)
}

func TestSecondAssignOfSameBookingIsRejected(t *testing.T) {
	f := newFixture(t, 2)
	b := f.create(t, 1)

	var innerErr error
	svc := f.pausedService(func(svc *Service) {
		_, innerErr = svc.AssignRooms(context.Background(), b.ID,
			[]Assignment{{RoomType: "deluxe", RoomIDs: []string{f.deluxe[1].ID}}}, "user-2")
	})
	if _, err := svc.AssignRooms(context.Background(), b.ID,
		[]Assignment{{RoomType: "deluxe", RoomIDs: []string{f.deluxe[0].ID}}}, "user-1"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if !errors.Is(innerErr, repository.ErrRaceCondition) {
		t.Fatalf("expected race condition, got %v", innerErr)
	}
	if st := f.roomStatus(t, f.deluxe[1].ID); st != model.RoomAvailable {
		t.Fatalf("loser's room is %s", st)
	}
	f.expectNights(t, 1, 0, 1)
}

func TestExpiredAssignmentLeaseDoesNotBlockCancel(t *testing.T) {
	f := newFixture(t, 1)
	b := f.create(t, 1)
	stale := model.AssignmentLease{Token: "abandoned", Until: f.svc.now().Add(-time.Second)}
	if err := f.db.ClaimAssignment(context.Background(), b.ID, stale, stale.Until.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	if ok, err := f.svc.CancelBooking(context.Background(), b.ID, "user-1"); err != nil || !ok {
		t.Fatalf("cancel with expired lease: %v %v", ok, err)
	}
	f.expectNights(t, 1, 0, 0)
}
