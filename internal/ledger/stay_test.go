package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

func TestReserveStayCompensatesOnMissingNight(t *testing.T) {
	ctx := context.Background()
	n1, n2, n3 := night, night.AddDate(0, 0, 1), night.AddDate(0, 0, 2)
	// third night was never seeded
	l, _ := seeded(t, 3, "deluxe", n1, n2)

	stay := Stay{HotelID: "h1", CheckIn: n1, CheckOut: n3.AddDate(0, 0, 1), Groups: []Group{{RoomType: "deluxe", Rooms: 2}}}
	err := l.ReserveStay(ctx, stay)
	if !errors.Is(err, repository.ErrInsufficientInventory) {
		t.Fatalf("expected insufficient inventory, got %v", err)
	}
	for _, d := range []time.Time{n1, n2} {
		if r := row(t, l, "deluxe", d); r.AvailableRooms != 3 || r.LockedRooms != 0 {
			t.Fatalf("night %s not restored: %+v", d, r)
		}
	}
}

func TestReserveStayAcrossGroups(t *testing.T) {
	ctx := context.Background()
	n1, n2 := night, night.AddDate(0, 0, 1)
	l, _ := seeded(t, 2, "deluxe", n1, n2)
	if err := l.Seed(ctx, model.InventoryKey{HotelID: "h1", RoomType: "suite", Date: n1}, 1, 1); err != nil {
		t.Fatal(err)
	}
	// suite has no row for n2, so the second group fails after deluxe succeeded
	stay := Stay{HotelID: "h1", CheckIn: n1, CheckOut: n2.AddDate(0, 0, 1), Groups: []Group{
		{RoomType: "deluxe", Rooms: 1},
		{RoomType: "suite", Rooms: 1},
	}}
	if err := l.ReserveStay(ctx, stay); !errors.Is(err, repository.ErrInsufficientInventory) {
		t.Fatalf("expected insufficient inventory, got %v", err)
	}
	for _, d := range []time.Time{n1, n2} {
		if r := row(t, l, "deluxe", d); r.AvailableRooms != 2 || r.LockedRooms != 0 {
			t.Fatalf("deluxe %s not restored: %+v", d, r)
		}
	}
	if r := row(t, l, "suite", n1); r.AvailableRooms != 1 || r.LockedRooms != 0 {
		t.Fatalf("suite not restored: %+v", r)
	}
}

func TestConfirmStayCompensatesOnRace(t *testing.T) {
	ctx := context.Background()
	n1, n2 := night, night.AddDate(0, 0, 1)
	l, db := seeded(t, 2, "standard", n1, n2)
	stay := Stay{HotelID: "h1", CheckIn: n1, CheckOut: n2.AddDate(0, 0, 1), Groups: []Group{{RoomType: "standard", Rooms: 1}}}
	if err := l.ReserveStay(ctx, stay); err != nil {
		t.Fatal(err)
	}
	// a concurrent actor drains the lock on the second night
	if ok, err := db.Release(ctx, model.InventoryKey{HotelID: "h1", RoomType: "standard", Date: n2}, 1, model.BucketLocked); !ok || err != nil {
		t.Fatalf("drain: %v %v", ok, err)
	}
	if err := l.ConfirmStay(ctx, stay); !errors.Is(err, repository.ErrRaceCondition) {
		t.Fatalf("expected race condition, got %v", err)
	}
	if r := row(t, l, "standard", n1); r.LockedRooms != 1 || r.BookedRooms != 0 {
		t.Fatalf("first night not reverted: %+v", r)
	}
}

func TestReleaseStayReportsSkippedNights(t *testing.T) {
	ctx := context.Background()
	n1, n2 := night, night.AddDate(0, 0, 1)
	l, _ := seeded(t, 1, "standard", n1, n2)
	stay := Stay{HotelID: "h1", CheckIn: n1, CheckOut: n2.AddDate(0, 0, 1), Groups: []Group{{RoomType: "standard", Rooms: 1}}}
	if err := l.ReserveStay(ctx, stay); err != nil {
		t.Fatal(err)
	}
	if err := l.ReleaseStay(ctx, stay, model.BucketLocked); err != nil {
		t.Fatalf("release: %v", err)
	}
	err := l.ReleaseStay(ctx, stay, model.BucketLocked)
	if !errors.Is(err, repository.ErrLedgerInconsistency) || !OnlyInconsistencies(err) {
		t.Fatalf("expected only inconsistency warnings, got %v", err)
	}
	for _, d := range []time.Time{n1, n2} {
		if r := row(t, l, "standard", d); r.AvailableRooms != 1 {
			t.Fatalf("night %s drifted: %+v", d, r)
		}
	}
}

func TestStayRejectsEmptyRange(t *testing.T) {
	l, _ := seeded(t, 1, "standard", night)
	stay := Stay{HotelID: "h1", CheckIn: night, CheckOut: night, Groups: []Group{{RoomType: "standard", Rooms: 1}}}
	if err := l.ReserveStay(context.Background(), stay); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestOnlyInconsistencies(t *testing.T) {
	if !OnlyInconsistencies(nil) {
		t.Fatal("nil should count")
	}
	if OnlyInconsistencies(errors.Join(repository.ErrLedgerInconsistency, errors.New("boom"))) {
		t.Fatal("mixed errors should not count")
	}
}
