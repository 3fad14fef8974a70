package booking

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

func TestPaymentStatusFollowsPayments(t *testing.T) {
	f := newFixture(t, 1)
	b := f.create(t, 1) // 3 nights × 100 + 10% = 330
	ctx := context.Background()

	got, err := f.svc.AddPayment(ctx, b.ID, PaymentInput{Method: "card", Amount: 329}, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.PaymentStatus != model.PaymentPartial {
		t.Fatalf("after 329 of 330: %s", got.PaymentStatus)
	}
	got, err = f.svc.AddPayment(ctx, b.BookingNumber, PaymentInput{Method: "cash", Amount: 1}, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.PaymentStatus != model.PaymentPaid || len(got.Payments) != 2 {
		t.Fatalf("after full payment: %s with %d payments", got.PaymentStatus, len(got.Payments))
	}
	if got.Payments[0].Status != model.PaymentCompleted || got.Payments[0].TransactionDate.IsZero() {
		t.Fatalf("payment defaults not applied: %+v", got.Payments[0])
	}
}

func TestAddPaymentAllowedAfterCancel(t *testing.T) {
	f := newFixture(t, 1)
	b := f.create(t, 1)
	if _, err := f.svc.CancelBooking(context.Background(), b.ID, "user-1"); err != nil {
		t.Fatal(err)
	}
	got, err := f.svc.AddPayment(context.Background(), b.ID, PaymentInput{Method: "bank_transfer", Amount: 50}, "user-1")
	if err != nil {
		t.Fatalf("payment on cancelled booking: %v", err)
	}
	if got.PaymentStatus != model.PaymentPartial {
		t.Fatalf("unexpected status %s", got.PaymentStatus)
	}
}

func TestAddPaymentValidation(t *testing.T) {
	f := newFixture(t, 1)
	b := f.create(t, 1)
	for name, in := range map[string]PaymentInput{
		"zero amount":    {Method: "card", Amount: 0},
		"unknown method": {Method: "barter", Amount: 10},
	} {
		if _, err := f.svc.AddPayment(context.Background(), b.ID, in, "user-1"); !errors.Is(err, repository.ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
	if _, err := f.svc.AddPayment(context.Background(), "missing", PaymentInput{Method: "card", Amount: 1}, "user-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRoomChargeOnlyWhileCheckedIn(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	b := f.create(t, 1)
	charge := ChargeInput{Description: "Late dinner", Amount: 45.5, ChargeType: "room_service"}

	if _, err := f.svc.AddRoomCharge(ctx, b.ID, charge, "user-1"); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("charge on CONFIRMED: expected validation error, got %v", err)
	}

	if _, err := f.svc.AddPayment(ctx, b.ID, PaymentInput{Method: "card", Amount: 330}, "user-1"); err != nil {
		t.Fatal(err)
	}
	f.assignAll(t, b)
	got, err := f.svc.AddRoomCharge(ctx, b.ID, charge, "user-1")
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if got.TotalAmount != 375.5 || len(got.RoomCharges) != 1 {
		t.Fatalf("total not raised: %v with %d charges", got.TotalAmount, len(got.RoomCharges))
	}
	if got.PaymentStatus != model.PaymentPartial {
		t.Fatalf("payment status not recomputed: %s", got.PaymentStatus)
	}

	if _, err := f.svc.CheckoutBooking(ctx, b.ID, "user-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.AddRoomCharge(ctx, b.ID, charge, "user-1"); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("charge after checkout: expected validation error, got %v", err)
	}
}

func TestPrice(t *testing.T) {
	q := Price([]model.RoomTypeBooking{
		{RoomType: "deluxe", NumberOfRooms: 2, PricePerNight: 100},
		{RoomType: "suite", NumberOfRooms: 1, PricePerNight: 249.99},
	}, 2)
	if q.BaseAmount != 899.98 || q.TaxAmount != 90 || q.TotalAmount != 989.98 {
		t.Fatalf("unexpected quote %+v", q)
	}
}

func TestNewBookingNumber(t *testing.T) {
	at := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	n := NewBookingNumber(at)
	if !regexp.MustCompile(`^BK20300102030405-[0-9A-F]{6}$`).MatchString(n) {
		t.Fatalf("unexpected booking number %q", n)
	}
}
