package model

import (
	"math"
	"time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending    BookingStatus = "PENDING" // never produced; reservations lock inventory synchronously
	BookingConfirmed  BookingStatus = "CONFIRMED"
	BookingCheckedIn  BookingStatus = "CHECKED_IN"
	BookingCheckedOut BookingStatus = "CHECKED_OUT"
	BookingCancelled  BookingStatus = "CANCELLED"
)

// transitions lists the only legal forward moves.  CHECKED_OUT and
// CANCELLED are terminal.
var transitions = map[BookingStatus][]BookingStatus{
	BookingConfirmed: {BookingCheckedIn, BookingCancelled},
	BookingCheckedIn: {BookingCheckedOut, BookingCancelled},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to BookingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s BookingStatus) Terminal() bool { return len(transitions[s]) == 0 }

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCheckedIn, BookingCheckedOut, BookingCancelled:
		return true
	}
	return false
}

// PaymentStatus is derived from the payments sum and the booking total.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentPartial || s == PaymentPaid
}

// PaymentStatusFor is the only way a payment status is computed.
func PaymentStatusFor(paid, total float64) PaymentStatus {
	paid, total = RoundMoney(paid), RoundMoney(total)
	switch {
	case paid >= total && paid > 0:
		return PaymentPaid
	case paid > 0:
		return PaymentPartial
	default:
		return PaymentPending
	}
}

// RoundMoney rounds an amount to cents.
func RoundMoney(v float64) float64 { return math.Round(v*100) / 100 }

// BookingSource records the channel a booking came through.
type BookingSource string

const (
	SourceDirect    BookingSource = "direct"
	SourceWebsite   BookingSource = "website"
	SourceOTA       BookingSource = "ota"
	SourcePhone     BookingSource = "phone"
	SourceWalkIn    BookingSource = "walk_in"
	SourceCorporate BookingSource = "corporate"
)

func (s BookingSource) Valid() bool {
	switch s {
	case SourceDirect, SourceWebsite, SourceOTA, SourcePhone, SourceWalkIn, SourceCorporate:
		return true
	}
	return false
}

// Guest holds the contact and identity details of the booking guest.
type Guest struct {
	FirstName string `bson:"first_name" json:"first_name"`
	LastName  string `bson:"last_name" json:"last_name"`
	Email     string `bson:"email" json:"email"`
	Phone     string `bson:"phone" json:"phone"`
	Address   string `bson:"address,omitempty" json:"address,omitempty"`
	City      string `bson:"city,omitempty" json:"city,omitempty"`
	Country   string `bson:"country,omitempty" json:"country,omitempty"`
	IDType    string `bson:"id_type,omitempty" json:"id_type,omitempty"`
	IDNumber  string `bson:"id_number,omitempty" json:"id_number,omitempty"`
}

// RoomTypeBooking is one room-type group of a booking.  RoomIDs stays empty
// until rooms are assigned.
type RoomTypeBooking struct {
	RoomType      string   `bson:"room_type" json:"room_type"`
	NumberOfRooms int      `bson:"number_of_rooms" json:"number_of_rooms"`
	PricePerNight float64  `bson:"price_per_night" json:"price_per_night"`
	RoomIDs       []string `bson:"room_ids" json:"room_ids"`
}

// Payment is an append-only payment entry.
type Payment struct {
	Method          string    `bson:"method" json:"method"`
	Amount          float64   `bson:"amount" json:"amount"`
	TransactionID   string    `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	TransactionDate time.Time `bson:"transaction_date" json:"transaction_date"`
	Status          string    `bson:"status" json:"status"`
	Notes           string    `bson:"notes,omitempty" json:"notes,omitempty"`
}

// RoomCharge is an append-only incidental charge added during a stay.
type RoomCharge struct {
	Description string    `bson:"description" json:"description"`
	Amount      float64   `bson:"amount" json:"amount"`
	ChargeType  string    `bson:"charge_type" json:"charge_type"`
	ChargeDate  time.Time `bson:"charge_date" json:"charge_date"`
	Notes       string    `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Booking is the stay document.  The booking owns its status and money
// fields; ledger counters and room status live elsewhere.
type Booking struct {
	ID               string            `bson:"_id" json:"id"`
	BookingNumber    string            `bson:"booking_number" json:"booking_number"`
	HotelID          string            `bson:"hotel_id" json:"hotel_id"`
	Guest            Guest             `bson:"guest" json:"guest"`
	RoomTypeBookings []RoomTypeBooking `bson:"room_type_bookings" json:"room_type_bookings"`
	RoomIDs          []string          `bson:"room_ids" json:"room_ids"`
	BookingSource    BookingSource     `bson:"booking_source" json:"booking_source"`
	BookingStatus    BookingStatus     `bson:"booking_status" json:"booking_status"`
	PaymentStatus    PaymentStatus     `bson:"payment_status" json:"payment_status"`
	CheckInDate      time.Time         `bson:"check_in_date" json:"check_in_date"`
	CheckOutDate     time.Time         `bson:"check_out_date" json:"check_out_date"`
	CheckInTime      *time.Time        `bson:"check_in_time,omitempty" json:"check_in_time,omitempty"`
	CheckOutTime     *time.Time        `bson:"check_out_time,omitempty" json:"check_out_time,omitempty"`
	NumberOfGuests   int               `bson:"number_of_guests" json:"number_of_guests"`
	RatePlan         string            `bson:"rate_plan,omitempty" json:"rate_plan,omitempty"`
	SpecialRequests  string            `bson:"special_requests,omitempty" json:"special_requests,omitempty"`
	BaseAmount       float64           `bson:"base_amount" json:"base_amount"`
	TaxAmount        float64           `bson:"tax_amount" json:"tax_amount"`
	TotalAmount      float64           `bson:"total_amount" json:"total_amount"`
	Payments         []Payment         `bson:"payments" json:"payments"`
	RoomCharges      []RoomCharge      `bson:"room_charges" json:"room_charges"`
	CreatedBy        string            `bson:"created_by,omitempty" json:"created_by,omitempty"`
	UpdatedBy        string            `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
	CreatedAt        time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `bson:"updated_at" json:"updated_at"`
	AssignLease      *AssignmentLease  `bson:"assign_lease,omitempty" json:"-"`
}

// AssignmentLease marks a CONFIRMED booking whose rooms are being assigned.
// While it is live no other transition may claim the booking.
type AssignmentLease struct {
	Token string    `bson:"token"`
	Until time.Time `bson:"until"`
}

// Live reports whether the lease still holds at now.
func (l *AssignmentLease) Live(now time.Time) bool {
	return l != nil && now.Before(l.Until)
}

// PaidAmount sums every payment on the booking.
func (b Booking) PaidAmount() float64 {
	var sum float64
	for _, p := range b.Payments {
		sum += p.Amount
	}
	return RoundMoney(sum)
}

// Nights returns the nights covered by the stay.
func (b Booking) Nights() []time.Time { return Nights(b.CheckInDate, b.CheckOutDate) }

// BookingTransition is the set of fields written together with a status
// change.  Nil fields are left untouched.
type BookingTransition struct {
	To               BookingStatus
	RoomTypeBookings []RoomTypeBooking
	RoomIDs          []string
	CheckInTime      *time.Time
	CheckOutTime     *time.Time
	UpdatedBy        string
	At               time.Time

	// LeaseToken, when set, must match the booking's assignment lease.
	// Without it the booking must carry no live lease at At.  Either way
	// the lease is cleared.
	LeaseToken string
}

// Permits reports whether the lease state of b lets t through.
func (t BookingTransition) Permits(b Booking) bool {
	if t.LeaseToken != "" {
		return b.AssignLease != nil && b.AssignLease.Token == t.LeaseToken
	}
	return !b.AssignLease.Live(t.At)
}

// Apply writes the transition onto b.  Stores that mutate documents in
// memory or in SQL rows use it so every backend writes the same fields.
func (t BookingTransition) Apply(b *Booking) {
	b.BookingStatus = t.To
	if t.RoomTypeBookings != nil {
		b.RoomTypeBookings = t.RoomTypeBookings
	}
	if t.RoomIDs != nil {
		b.RoomIDs = t.RoomIDs
	}
	if t.CheckInTime != nil {
		b.CheckInTime = t.CheckInTime
	}
	if t.CheckOutTime != nil {
		b.CheckOutTime = t.CheckOutTime
	}
	if t.UpdatedBy != "" {
		b.UpdatedBy = t.UpdatedBy
	}
	b.UpdatedAt = t.At
	b.AssignLease = nil
}

// Payment methods and charge types accepted on bookings.
var (
	PaymentMethods = []string{"cash", "card", "bank_transfer", "online"}
	ChargeTypes    = []string{"minibar", "room_service", "laundry", "spa", "restaurant", "other"}
)

// PaymentCompleted is the status recorded on every accepted payment.
const PaymentCompleted = "completed"
