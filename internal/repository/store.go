package repository

import (
	"context"
	"time"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
)

// LedgerStore owns the inventory counters.  Every mutating method must be a
// single atomic conditional update on one row: the guard and the change are
// applied together or not at all.  A false result with a nil error means the
// guard did not match (or the row does not exist) and nothing changed.
type LedgerStore interface {
	// Reserve moves n rooms from available to locked when available >= n.
	Reserve(ctx context.Context, key model.InventoryKey, n int) (bool, error)
	// ConfirmAssignment moves n rooms from locked to booked when locked >= n.
	ConfirmAssignment(ctx context.Context, key model.InventoryKey, n int) (bool, error)
	// RevertAssignment moves n rooms from booked back to locked when booked >= n.
	RevertAssignment(ctx context.Context, key model.InventoryKey, n int) (bool, error)
	// Release moves n rooms from the given bucket back to available when
	// that bucket holds at least n.
	Release(ctx context.Context, key model.InventoryKey, n int, from model.LedgerBucket) (bool, error)
	// Seed adds deltaTotal and deltaAvailable to the row.  Positive deltas
	// create the row when missing.  Negative deltas never create a row and
	// apply only while the counters stay non-negative.
	Seed(ctx context.Context, key model.InventoryKey, deltaTotal, deltaAvailable int) (bool, error)
	GetInventoryRow(ctx context.Context, key model.InventoryKey) (model.InventoryRow, error)
	ListInventory(ctx context.Context, f InventoryFilter) ([]model.InventoryRow, error)
}

// InventoryFilter selects ledger rows.  Empty fields do not filter; the date
// range is half open [From, To).
type InventoryFilter struct {
	HotelID  string
	RoomType string
	From     time.Time
	To       time.Time
}

// BookingFilter selects bookings.  Empty fields do not filter.
type BookingFilter struct {
	HotelID       string
	RoomID        string
	RoomType      string
	GuestEmail    string
	Statuses      []model.BookingStatus
	PaymentStatus model.PaymentStatus
	CheckInFrom   time.Time // inclusive
	CheckInTo     time.Time // exclusive
	Limit         int
	Offset        int
}

// BookingStore persists booking documents.
type BookingStore interface {
	// InsertBooking stores b, assigning an ID when empty.  A clashing
	// booking number yields ErrDuplicate.
	InsertBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	GetBookingByNumber(ctx context.Context, number string) (model.Booking, error)
	// FindBookings returns matches ordered by check-in date, then creation time.
	FindBookings(ctx context.Context, f BookingFilter) ([]model.Booking, error)
	// TransitionBooking applies t only while the stored status equals from
	// and t.Permits the stored lease.  A mismatch yields ErrStaleState.
	TransitionBooking(ctx context.Context, id string, from model.BookingStatus, t model.BookingTransition) (model.Booking, error)
	// AppendPayment pushes p and stores the payment status recomputed from
	// the resulting document.
	AppendPayment(ctx context.Context, id string, p model.Payment, by string) (model.Booking, error)
	// AppendCharge pushes c and raises total_amount by c.Amount while the
	// booking is in status required; otherwise ErrStaleState.
	AppendCharge(ctx context.Context, id string, c model.RoomCharge, required model.BookingStatus, by string) (model.Booking, error)
	// ClaimAssignment stores lease on a CONFIRMED booking that has no lease
	// live at now.  Otherwise ErrStaleState.
	ClaimAssignment(ctx context.Context, id string, lease model.AssignmentLease, now time.Time) error
	// ClearAssignment drops the lease if it still carries token.
	ClearAssignment(ctx context.Context, id, token string) error
}

// RoomFilter selects rooms.  Empty fields do not filter.
type RoomFilter struct {
	HotelID    string
	RoomType   string
	Status     model.RoomStatus
	IDs        []string
	ActiveOnly bool
}

// RoomStore persists physical rooms.
type RoomStore interface {
	// InsertRoom stores r.  A clashing (hotel_id, room_number) yields ErrDuplicate.
	InsertRoom(ctx context.Context, r *model.Room) error
	GetRoom(ctx context.Context, id string) (model.Room, error)
	FindRooms(ctx context.Context, f RoomFilter) ([]model.Room, error)
	// SetRoomStatus moves one room to status to while it is in status from.
	// It reports false, writing nothing, when the room is missing or in
	// another status.  An empty from matches any status.
	SetRoomStatus(ctx context.Context, id string, from, to model.RoomStatus) (bool, error)
	// DeactivateRoom marks an active room inactive and out of order.  It
	// reports false when the room was already inactive.
	DeactivateRoom(ctx context.Context, id string) (bool, error)
}

// CatalogStore persists hotels and room types.
type CatalogStore interface {
	InsertHotel(ctx context.Context, h *model.Hotel) error
	GetHotel(ctx context.Context, id string) (model.Hotel, error)
	AdjustRoomCount(ctx context.Context, hotelID string, delta int) error
	// UpsertRoomType creates or replaces the room type keyed by (hotel_id, room_type).
	UpsertRoomType(ctx context.Context, rt *model.RoomType) error
	GetRoomType(ctx context.Context, hotelID, roomType string) (model.RoomType, error)
	ListRoomTypes(ctx context.Context, hotelID string) ([]model.RoomType, error)
}

// UserStore persists staff accounts.
type UserStore interface {
	// CreateUser stores u.  A clashing email yields ErrDuplicate.
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByID(ctx context.Context, id string) (model.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

// Store is the full persistence surface a backend provides.
type Store interface {
	LedgerStore
	BookingStore
	RoomStore
	CatalogStore
	UserStore
	// Migrate creates the collections, tables and unique indexes the
	// backend relies on.  It is idempotent.
	Migrate(ctx context.Context) error
	Close(ctx context.Context) error
}
