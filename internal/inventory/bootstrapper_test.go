package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/hotel-inventory-ledger/internal/catalog"
	"github.com/iliyamo/hotel-inventory-ledger/internal/ledger"
	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository/memstore"
)

var today = time.Date(2030, 6, 1, 9, 30, 0, 0, time.UTC)

func setup(t *testing.T) (*Bootstrapper, *memstore.DB, *ledger.Ledger, model.Hotel) {
	t.Helper()
	db := memstore.New()
	led := ledger.New(db, nil)
	b := New(db, catalog.New(db, db, nil), led, nil)
	b.now = func() time.Time { return today }

	ctx := context.Background()
	h, err := b.CreateHotel(ctx, HotelInput{Name: "Seaside", FloorCount: 3})
	if err != nil {
		t.Fatal(err)
	}
	price := 120.0
	in := RoomTypeInput{HotelID: h.ID, RoomType: "Suite"}
	in.PricePerNight = &price
	if _, err := b.UpsertRoomType(ctx, in); err != nil {
		t.Fatal(err)
	}
	return b, db, led, h
}

func TestCreateRoomSeedsHorizon(t *testing.T) {
	b, db, led, h := setup(t)
	ctx := context.Background()
	room, err := b.CreateRoom(ctx, RoomInput{HotelID: h.ID, RoomNumber: "301", Floor: 3, RoomType: "SUITE"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if room.Status != model.RoomAvailable || !room.IsActive || room.RoomType != "suite" {
		t.Fatalf("unexpected room %+v", room)
	}

	rows, err := led.Inventory(ctx, repository.InventoryFilter{HotelID: h.ID, RoomType: "suite"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != HorizonDays {
		t.Fatalf("expected %d seeded nights, got %d", HorizonDays, len(rows))
	}
	if !rows[0].Date.Equal(model.Day(today)) || !rows[HorizonDays-1].Date.Equal(model.Day(today).AddDate(0, 0, HorizonDays-1)) {
		t.Fatalf("horizon spans %s..%s", rows[0].Date, rows[HorizonDays-1].Date)
	}
	for _, r := range rows {
		if r.TotalRooms != 1 || r.AvailableRooms != 1 || !r.Balanced() {
			t.Fatalf("unexpected row %+v", r)
		}
	}
	hotel, _ := db.GetHotel(ctx, h.ID)
	if hotel.RoomCount != 1 {
		t.Fatalf("room_count = %d", hotel.RoomCount)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	b, _, _, h := setup(t)
	ctx := context.Background()
	if _, err := b.CreateRoom(ctx, RoomInput{HotelID: h.ID, RoomNumber: "301", Floor: 3, RoomType: "suite"}); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name string
		in   RoomInput
		want error
	}{
		{"floor too high", RoomInput{HotelID: h.ID, RoomNumber: "401", Floor: 4, RoomType: "suite"}, repository.ErrValidation},
		{"floor zero", RoomInput{HotelID: h.ID, RoomNumber: "001", Floor: 0, RoomType: "suite"}, repository.ErrValidation},
		{"duplicate number", RoomInput{HotelID: h.ID, RoomNumber: "301", Floor: 3, RoomType: "suite"}, repository.ErrValidation},
		{"missing number", RoomInput{HotelID: h.ID, Floor: 1, RoomType: "suite"}, repository.ErrValidation},
		{"unknown room type", RoomInput{HotelID: h.ID, RoomNumber: "302", Floor: 3, RoomType: "deluxe"}, repository.ErrNotFound},
		{"unknown hotel", RoomInput{HotelID: "nope", RoomNumber: "302", Floor: 1, RoomType: "suite"}, repository.ErrNotFound},
	}
	for _, tc := range cases {
		if _, err := b.CreateRoom(ctx, tc.in); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestDeleteRoomShrinksTodayOnly(t *testing.T) {
	b, db, led, h := setup(t)
	ctx := context.Background()
	room, err := b.CreateRoom(ctx, RoomInput{HotelID: h.ID, RoomNumber: "301", Floor: 3, RoomType: "suite"})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.DeleteRoom(ctx, room.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	todayRow, err := led.Row(ctx, model.InventoryKey{HotelID: h.ID, RoomType: "suite", Date: today})
	if err != nil {
		t.Fatal(err)
	}
	if todayRow.TotalRooms != 0 || todayRow.AvailableRooms != 0 {
		t.Fatalf("today not shrunk: %+v", todayRow)
	}
	tomorrow, err := led.Row(ctx, model.InventoryKey{HotelID: h.ID, RoomType: "suite", Date: today.AddDate(0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	if tomorrow.TotalRooms != 1 {
		t.Fatalf("tomorrow changed: %+v", tomorrow)
	}

	got, _ := db.GetRoom(ctx, room.ID)
	if got.IsActive || got.Status != model.RoomOutOfOrder {
		t.Fatalf("room not deactivated: %+v", got)
	}
	hotel, _ := db.GetHotel(ctx, h.ID)
	if hotel.RoomCount != 0 {
		t.Fatalf("room_count = %d", hotel.RoomCount)
	}
	if err := b.DeleteRoom(ctx, room.ID); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("second delete: expected validation error, got %v", err)
	}
	if err := b.DeleteRoom(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing room: expected not found, got %v", err)
	}
}

func TestDeleteRoomHeldByBooking(t *testing.T) {
	b, db, _, h := setup(t)
	ctx := context.Background()
	room, err := b.CreateRoom(ctx, RoomInput{HotelID: h.ID, RoomNumber: "301", Floor: 3, RoomType: "suite"})
	if err != nil {
		t.Fatal(err)
	}
	held := model.Booking{
		BookingNumber: "BK20300601000000-000001",
		HotelID:       h.ID,
		RoomIDs:       []string{room.ID},
		BookingStatus: model.BookingCheckedIn,
	}
	if err := db.InsertBooking(ctx, &held); err != nil {
		t.Fatal(err)
	}
	if err := b.DeleteRoom(ctx, room.ID); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got, _ := db.GetRoom(ctx, room.ID)
	if !got.IsActive {
		t.Fatal("room deactivated despite live booking")
	}
}

func TestDeleteRoomWithTodayFullyReserved(t *testing.T) {
	b, db, led, h := setup(t)
	ctx := context.Background()
	room, err := b.CreateRoom(ctx, RoomInput{HotelID: h.ID, RoomNumber: "301", Floor: 3, RoomType: "suite"})
	if err != nil {
		t.Fatal(err)
	}
	key := model.InventoryKey{HotelID: h.ID, RoomType: "suite", Date: today}
	if err := led.Reserve(ctx, key, 1); err != nil {
		t.Fatal(err)
	}
	if err := b.DeleteRoom(ctx, room.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	r, _ := led.Row(ctx, key)
	if r.TotalRooms != 1 || r.LockedRooms != 1 || !r.Balanced() {
		t.Fatalf("row changed by skipped shrink: %+v", r)
	}
	got, _ := db.GetRoom(ctx, room.ID)
	if got.IsActive {
		t.Fatal("room still active")
	}
}

func TestUpsertRoomTypeValidation(t *testing.T) {
	b, _, _, h := setup(t)
	ctx := context.Background()
	if _, err := b.UpsertRoomType(ctx, RoomTypeInput{HotelID: h.ID, RoomType: "castle"}); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("unknown type: %v", err)
	}
	if _, err := b.UpsertRoomType(ctx, RoomTypeInput{HotelID: h.ID, RoomType: "deluxe"}); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("missing price: %v", err)
	}
	if _, err := b.CreateHotel(ctx, HotelInput{Name: "No floors"}); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("hotel without floors: %v", err)
	}
}
