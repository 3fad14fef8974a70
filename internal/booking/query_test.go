package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

func TestBookingQueries(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	soon := f.create(t, 1)

	in := f.input(1)
	in.CheckIn = f.checkIn.AddDate(0, 0, 30)
	in.CheckOut = in.CheckIn.AddDate(0, 0, 1)
	in.Guest.Email = "grace@example.com"
	later, err := f.svc.CreateBooking(ctx, in)
	if err != nil {
		t.Fatal(err)
	}

	byNumber, err := f.svc.GetBookingByNumber(ctx, soon.BookingNumber)
	if err != nil || byNumber.ID != soon.ID {
		t.Fatalf("by number: %+v %v", byNumber, err)
	}
	if _, err := f.svc.GetBookingByNumber(ctx, soon.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("id is not a booking number: %v", err)
	}

	upcoming, err := f.svc.UpcomingBookings(ctx, f.hotel.ID, 14)
	if err != nil {
		t.Fatal(err)
	}
	if len(upcoming) != 1 || upcoming[0].ID != soon.ID {
		t.Fatalf("upcoming: %+v", upcoming)
	}

	guest, err := f.svc.BookingsByGuest(ctx, "GRACE@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(guest) != 1 || guest[0].ID != later.ID {
		t.Fatalf("by guest: %+v", guest)
	}
}

func TestActiveBookingsAndListing(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	b := f.assignAll(t, f.create(t, 2))

	active, err := f.svc.ActiveBookings(ctx, f.hotel.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].ID != b.ID {
		t.Fatalf("active: %+v", active)
	}

	all, err := f.svc.ListBookings(ctx, repository.BookingFilter{HotelID: f.hotel.ID, RoomID: f.deluxe[0].ID})
	if err != nil || len(all) != 1 {
		t.Fatalf("by room: %d %v", len(all), err)
	}
	if _, err := f.svc.ListBookings(ctx, repository.BookingFilter{Statuses: []model.BookingStatus{"LOST"}}); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}

	inv, err := f.svc.GetRoomInventory(ctx, InventoryQuery{HotelID: f.hotel.ID, RoomType: "DELUXE", From: f.checkIn, To: f.checkOut})
	if err != nil {
		t.Fatal(err)
	}
	if len(inv) != 3 {
		t.Fatalf("expected 3 nights of deluxe inventory, got %d", len(inv))
	}
	for _, r := range inv {
		if r.BookedRooms != 2 || !r.Balanced() {
			t.Fatalf("unexpected row %+v", r)
		}
	}
}
