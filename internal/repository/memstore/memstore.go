// Package memstore is an in-process implementation of repository.Store.  A
// single mutex serializes every operation, which gives each method the same
// all-or-nothing behaviour the document and SQL stores get from a single
// conditional update.  It backs the test suite and STORE_DRIVER=memory.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

type DB struct {
	mu        sync.Mutex
	now       func() time.Time
	inventory map[inventoryKey]*model.InventoryRow
	bookings  map[string]*model.Booking
	rooms     map[string]*model.Room
	roomTypes map[string]*model.RoomType // hotel_id + "/" + room_type
	hotels    map[string]*model.Hotel
	users     map[string]*model.User
}

type inventoryKey struct {
	hotelID  string
	roomType string
	day      int64
}

func keyOf(k model.InventoryKey) inventoryKey {
	return inventoryKey{hotelID: k.HotelID, roomType: k.RoomType, day: model.Day(k.Date).Unix()}
}

// New returns an empty store.
func New() *DB {
	return &DB{
		now:       func() time.Time { return time.Now().UTC() },
		inventory: make(map[inventoryKey]*model.InventoryRow),
		bookings:  make(map[string]*model.Booking),
		rooms:     make(map[string]*model.Room),
		roomTypes: make(map[string]*model.RoomType),
		hotels:    make(map[string]*model.Hotel),
		users:     make(map[string]*model.User),
	}
}

var _ repository.Store = (*DB)(nil)

func (db *DB) Migrate(context.Context) error { return nil }
func (db *DB) Close(context.Context) error   { return nil }

// ----- ledger -----

// move applies a guarded transfer between two counters of one row.
func (db *DB) move(key model.InventoryKey, guard func(*model.InventoryRow) bool, apply func(*model.InventoryRow)) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	row, ok := db.inventory[keyOf(key)]
	if !ok || !guard(row) {
		return false
	}
	apply(row)
	row.UpdatedAt = db.now()
	return true
}

func (db *DB) Reserve(_ context.Context, key model.InventoryKey, n int) (bool, error) {
	return db.move(key,
		func(r *model.InventoryRow) bool { return r.AvailableRooms >= n },
		func(r *model.InventoryRow) { r.AvailableRooms -= n; r.LockedRooms += n }), nil
}

func (db *DB) ConfirmAssignment(_ context.Context, key model.InventoryKey, n int) (bool, error) {
	return db.move(key,
		func(r *model.InventoryRow) bool { return r.LockedRooms >= n },
		func(r *model.InventoryRow) { r.LockedRooms -= n; r.BookedRooms += n }), nil
}

func (db *DB) RevertAssignment(_ context.Context, key model.InventoryKey, n int) (bool, error) {
	return db.move(key,
		func(r *model.InventoryRow) bool { return r.BookedRooms >= n },
		func(r *model.InventoryRow) { r.BookedRooms -= n; r.LockedRooms += n }), nil
}

func (db *DB) Release(_ context.Context, key model.InventoryKey, n int, from model.LedgerBucket) (bool, error) {
	if from == model.BucketBooked {
		return db.move(key,
			func(r *model.InventoryRow) bool { return r.BookedRooms >= n },
			func(r *model.InventoryRow) { r.BookedRooms -= n; r.AvailableRooms += n }), nil
	}
	return db.move(key,
		func(r *model.InventoryRow) bool { return r.LockedRooms >= n },
		func(r *model.InventoryRow) { r.LockedRooms -= n; r.AvailableRooms += n }), nil
}

func (db *DB) Seed(_ context.Context, key model.InventoryKey, deltaTotal, deltaAvailable int) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	k := keyOf(key)
	row, ok := db.inventory[k]
	shrinking := deltaTotal < 0 || deltaAvailable < 0
	if !ok {
		if shrinking {
			return false, nil
		}
		row = &model.InventoryRow{HotelID: key.HotelID, RoomType: key.RoomType, Date: model.Day(key.Date)}
		db.inventory[k] = row
	}
	if row.TotalRooms+deltaTotal < 0 || row.AvailableRooms+deltaAvailable < 0 {
		return false, nil
	}
	row.TotalRooms += deltaTotal
	row.AvailableRooms += deltaAvailable
	row.UpdatedAt = db.now()
	return true, nil
}

func (db *DB) GetInventoryRow(_ context.Context, key model.InventoryKey) (model.InventoryRow, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	row, ok := db.inventory[keyOf(key)]
	if !ok {
		return model.InventoryRow{}, repository.ErrNotFound
	}
	return *row, nil
}

func (db *DB) ListInventory(_ context.Context, f repository.InventoryFilter) ([]model.InventoryRow, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]model.InventoryRow, 0)
	for _, row := range db.inventory {
		if f.HotelID != "" && row.HotelID != f.HotelID {
			continue
		}
		if f.RoomType != "" && row.RoomType != f.RoomType {
			continue
		}
		if !f.From.IsZero() && row.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !row.Date.Before(f.To) {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.HotelID != b.HotelID {
			return a.HotelID < b.HotelID
		}
		if a.RoomType != b.RoomType {
			return a.RoomType < b.RoomType
		}
		return a.Date.Before(b.Date)
	})
	return out, nil
}

// ----- bookings -----

func cloneBooking(b *model.Booking) model.Booking {
	c := *b
	c.RoomTypeBookings = make([]model.RoomTypeBooking, len(b.RoomTypeBookings))
	for i, g := range b.RoomTypeBookings {
		g.RoomIDs = append([]string{}, g.RoomIDs...)
		c.RoomTypeBookings[i] = g
	}
	c.RoomIDs = append([]string{}, b.RoomIDs...)
	c.Payments = append([]model.Payment{}, b.Payments...)
	c.RoomCharges = append([]model.RoomCharge{}, b.RoomCharges...)
	if b.AssignLease != nil {
		l := *b.AssignLease
		c.AssignLease = &l
	}
	return c
}

func (db *DB) InsertBooking(_ context.Context, b *model.Booking) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, existing := range db.bookings {
		if existing.BookingNumber == b.BookingNumber {
			return repository.ErrDuplicate
		}
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	c := cloneBooking(b)
	db.bookings[b.ID] = &c
	return nil
}

func (db *DB) GetBooking(_ context.Context, id string) (model.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	b, ok := db.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (db *DB) GetBookingByNumber(_ context.Context, number string) (model.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, b := range db.bookings {
		if b.BookingNumber == number {
			return cloneBooking(b), nil
		}
	}
	return model.Booking{}, repository.ErrNotFound
}

func bookingMatches(b *model.Booking, f repository.BookingFilter) bool {
	if f.HotelID != "" && b.HotelID != f.HotelID {
		return false
	}
	if f.GuestEmail != "" && !strings.EqualFold(b.Guest.Email, f.GuestEmail) {
		return false
	}
	if f.PaymentStatus != "" && b.PaymentStatus != f.PaymentStatus {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if b.BookingStatus == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.RoomID != "" && !contains(b.RoomIDs, f.RoomID) {
		return false
	}
	if f.RoomType != "" {
		found := false
		for _, g := range b.RoomTypeBookings {
			if g.RoomType == f.RoomType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.CheckInFrom.IsZero() && b.CheckInDate.Before(f.CheckInFrom) {
		return false
	}
	if !f.CheckInTo.IsZero() && !b.CheckInDate.Before(f.CheckInTo) {
		return false
	}
	return true
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func (db *DB) FindBookings(_ context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]model.Booking, 0)
	for _, b := range db.bookings {
		if bookingMatches(b, f) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckInDate.Equal(out[j].CheckInDate) {
			return out[i].CheckInDate.Before(out[j].CheckInDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []model.Booking{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (db *DB) TransitionBooking(_ context.Context, id string, from model.BookingStatus, t model.BookingTransition) (model.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	b, ok := db.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	if b.BookingStatus != from || !t.Permits(*b) {
		return model.Booking{}, repository.ErrStaleState
	}
	t.Apply(b)
	return cloneBooking(b), nil
}

func (db *DB) ClaimAssignment(_ context.Context, id string, lease model.AssignmentLease, now time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	b, ok := db.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	if b.BookingStatus != model.BookingConfirmed || b.AssignLease.Live(now) {
		return repository.ErrStaleState
	}
	b.AssignLease = &lease
	return nil
}

func (db *DB) ClearAssignment(_ context.Context, id, token string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	b, ok := db.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	if b.AssignLease != nil && b.AssignLease.Token == token {
		b.AssignLease = nil
	}
	return nil
}

func (db *DB) AppendPayment(_ context.Context, id string, p model.Payment, by string) (model.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	b, ok := db.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	b.Payments = append(b.Payments, p)
	b.PaymentStatus = model.PaymentStatusFor(b.PaidAmount(), b.TotalAmount)
	b.UpdatedBy = by
	b.UpdatedAt = db.now()
	return cloneBooking(b), nil
}

func (db *DB) AppendCharge(_ context.Context, id string, c model.RoomCharge, required model.BookingStatus, by string) (model.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	b, ok := db.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	if b.BookingStatus != required {
		return model.Booking{}, repository.ErrStaleState
	}
	b.RoomCharges = append(b.RoomCharges, c)
	b.TotalAmount = model.RoundMoney(b.TotalAmount + c.Amount)
	b.PaymentStatus = model.PaymentStatusFor(b.PaidAmount(), b.TotalAmount)
	b.UpdatedBy = by
	b.UpdatedAt = db.now()
	return cloneBooking(b), nil
}
