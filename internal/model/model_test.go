package model

import (
	"testing"
	"time"
)

func TestPaymentStatusFor(t *testing.T) {
	cases := []struct {
		paid, total float64
		want        PaymentStatus
	}{
		{0, 660, PaymentPending},
		{659, 660, PaymentPartial},
		{660, 660, PaymentPaid},
		{700, 660, PaymentPaid},
		{0.1 + 0.2, 0.3, PaymentPaid},
		{0, 0, PaymentPending},
	}
	for _, tc := range cases {
		if got := PaymentStatusFor(tc.paid, tc.total); got != tc.want {
			t.Errorf("PaymentStatusFor(%v, %v) = %s, want %s", tc.paid, tc.total, got, tc.want)
		}
	}
}

func TestTransitions(t *testing.T) {
	legal := [][2]BookingStatus{
		{BookingConfirmed, BookingCheckedIn},
		{BookingConfirmed, BookingCancelled},
		{BookingCheckedIn, BookingCheckedOut},
		{BookingCheckedIn, BookingCancelled},
	}
	for _, p := range legal {
		if !CanTransition(p[0], p[1]) {
			t.Errorf("%s -> %s should be legal", p[0], p[1])
		}
	}
	all := []BookingStatus{BookingPending, BookingConfirmed, BookingCheckedIn, BookingCheckedOut, BookingCancelled}
	for _, from := range []BookingStatus{BookingCheckedOut, BookingCancelled} {
		if !from.Terminal() {
			t.Errorf("%s should be terminal", from)
		}
		for _, to := range all {
			if CanTransition(from, to) {
				t.Errorf("%s -> %s should be illegal", from, to)
			}
		}
	}
	if CanTransition(BookingConfirmed, BookingCheckedOut) {
		t.Error("CONFIRMED -> CHECKED_OUT should be illegal")
	}
}

func TestMergePrefersRoomOverrides(t *testing.T) {
	price, bed, size := 200.0, "queen", 32.5
	kingBed, smoking := "king", true
	room := RoomAttributes{BedType: &bed, IsSmoking: &smoking}
	roomType := RoomAttributes{PricePerNight: &price, BedType: &kingBed, RoomSize: &size, Amenities: []string{"wifi"}}

	got := Merge(room, roomType)
	if got.BedType != "queen" || !got.IsSmoking {
		t.Fatalf("room override lost: %+v", got)
	}
	if got.PricePerNight != 200 || got.RoomSize != 32.5 || len(got.Amenities) != 1 {
		t.Fatalf("room type default lost: %+v", got)
	}
	if got.MaxOccupancy != 0 || got.Description != "" || got.ExtraBedAllowed {
		t.Fatalf("unset fields should be zero: %+v", got)
	}

	got.Amenities[0] = "changed"
	if roomType.Amenities[0] != "wifi" {
		t.Fatal("merge aliased the amenities slice")
	}
	if empty := Merge(RoomAttributes{}, RoomAttributes{}); empty.Amenities == nil {
		t.Fatal("amenities should be an empty list, not nil")
	}
}

func TestNights(t *testing.T) {
	in := time.Date(2030, 1, 30, 14, 0, 0, 0, time.UTC)
	out := time.Date(2030, 2, 2, 11, 0, 0, 0, time.UTC)
	nights := Nights(in, out)
	if len(nights) != 3 {
		t.Fatalf("expected 3 nights, got %d", len(nights))
	}
	if !nights[0].Equal(time.Date(2030, 1, 30, 0, 0, 0, 0, time.UTC)) || !nights[2].Equal(time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected nights %v", nights)
	}
	if Nights(out, in) != nil {
		t.Fatal("inverted range should yield no nights")
	}
}
