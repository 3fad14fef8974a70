package model

import "time"

// InventoryRow is the ledger counter document for one hotel, room type and
// night.  Rows are created by the bootstrapper and mutated only through the
// ledger's conditional updates.
//
// Fields:
//  HotelID        – owning hotel.
//  RoomType       – lower-case room type key.
//  Date           – the night, truncated to UTC midnight.
//  TotalRooms     – active rooms of this type on that night.
//  AvailableRooms – rooms that can still be reserved.
//  LockedRooms    – rooms held by confirmed bookings awaiting assignment.
//  BookedRooms    – rooms bound to assigned bookings.
//  UpdatedAt      – time of the last mutation.
type InventoryRow struct {
	HotelID        string    `bson:"hotel_id" json:"hotel_id"`               // room_inventory.hotel_id
	RoomType       string    `bson:"room_type" json:"room_type"`             // room_inventory.room_type
	Date           time.Time `bson:"date" json:"date"`                       // room_inventory.date
	TotalRooms     int       `bson:"total_rooms" json:"total_rooms"`         // room_inventory.total_rooms
	AvailableRooms int       `bson:"available_rooms" json:"available_rooms"` // room_inventory.available_rooms
	LockedRooms    int       `bson:"locked_rooms" json:"locked_rooms"`       // room_inventory.locked_rooms
	BookedRooms    int       `bson:"booked_rooms" json:"booked_rooms"`       // room_inventory.booked_rooms
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`           // room_inventory.updated_at
}

// Balanced reports whether total equals available + locked + booked.
func (r InventoryRow) Balanced() bool {
	return r.TotalRooms == r.AvailableRooms+r.LockedRooms+r.BookedRooms
}

// InventoryKey addresses a single ledger row.
type InventoryKey struct {
	HotelID  string
	RoomType string
	Date     time.Time
}

// LedgerBucket names the counter a release draws from.
type LedgerBucket string

const (
	BucketLocked LedgerBucket = "locked"
	BucketBooked LedgerBucket = "booked"
)

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Nights lists every night of a stay: each UTC midnight d with
// checkIn <= d < checkOut.  An empty or inverted range yields nil.
func Nights(checkIn, checkOut time.Time) []time.Time {
	start, end := Day(checkIn), Day(checkOut)
	var out []time.Time
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
