package model

import (
	"strings"
	"time"
)

// RoomStatus is the physical status of a room.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
	RoomCleaning    RoomStatus = "cleaning"
	RoomBlocked     RoomStatus = "blocked"
	RoomOutOfOrder  RoomStatus = "out_of_order"
)

func (s RoomStatus) Valid() bool {
	switch s {
	case RoomAvailable, RoomOccupied, RoomMaintenance, RoomCleaning, RoomBlocked, RoomOutOfOrder:
		return true
	}
	return false
}

// Known room type keys.  Room types are stored lower case.
var RoomTypes = []string{"standard", "deluxe", "suite", "executive", "presidential"}

// NormalizeRoomType lower-cases and trims a room type key.
func NormalizeRoomType(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// ValidRoomType reports whether s names a known room type.
func ValidRoomType(s string) bool {
	s = NormalizeRoomType(s)
	for _, rt := range RoomTypes {
		if rt == s {
			return true
		}
	}
	return false
}

// RoomAttributes carries the descriptive fields a room may override and a
// room type provides defaults for.  A nil field is unset.
type RoomAttributes struct {
	PricePerNight   *float64 `bson:"price_per_night,omitempty" json:"price_per_night,omitempty"`
	BaseOccupancy   *int     `bson:"base_occupancy,omitempty" json:"base_occupancy,omitempty"`
	MaxOccupancy    *int     `bson:"max_occupancy,omitempty" json:"max_occupancy,omitempty"`
	ExtraBedAllowed *bool    `bson:"extra_bed_allowed,omitempty" json:"extra_bed_allowed,omitempty"`
	ExtraBedPrice   *float64 `bson:"extra_bed_price,omitempty" json:"extra_bed_price,omitempty"`
	RoomSize        *float64 `bson:"room_size,omitempty" json:"room_size,omitempty"`
	BedType         *string  `bson:"bed_type,omitempty" json:"bed_type,omitempty"`
	BedCount        *int     `bson:"bed_count,omitempty" json:"bed_count,omitempty"`
	Amenities       []string `bson:"amenities,omitempty" json:"amenities,omitempty"`
	Description     *string  `bson:"description,omitempty" json:"description,omitempty"`
	IsSmoking       *bool    `bson:"is_smoking,omitempty" json:"is_smoking,omitempty"`
}

// ResolvedAttributes is RoomAttributes after defaults were applied.
type ResolvedAttributes struct {
	PricePerNight   float64  `json:"price_per_night"`
	BaseOccupancy   int      `json:"base_occupancy"`
	MaxOccupancy    int      `json:"max_occupancy"`
	ExtraBedAllowed bool     `json:"extra_bed_allowed"`
	ExtraBedPrice   float64  `json:"extra_bed_price"`
	RoomSize        float64  `json:"room_size"`
	BedType         string   `json:"bed_type"`
	BedCount        int      `json:"bed_count"`
	Amenities       []string `json:"amenities"`
	Description     string   `json:"description"`
	IsSmoking       bool     `json:"is_smoking"`
}

// Merge resolves every attribute: the room's value when set, else the room
// type's default, else the zero value.
func Merge(room, roomType RoomAttributes) ResolvedAttributes {
	amenities := room.Amenities
	if amenities == nil {
		amenities = roomType.Amenities
	}
	if amenities == nil {
		amenities = []string{}
	}
	return ResolvedAttributes{
		PricePerNight:   pick(room.PricePerNight, roomType.PricePerNight),
		BaseOccupancy:   pick(room.BaseOccupancy, roomType.BaseOccupancy),
		MaxOccupancy:    pick(room.MaxOccupancy, roomType.MaxOccupancy),
		ExtraBedAllowed: pick(room.ExtraBedAllowed, roomType.ExtraBedAllowed),
		ExtraBedPrice:   pick(room.ExtraBedPrice, roomType.ExtraBedPrice),
		RoomSize:        pick(room.RoomSize, roomType.RoomSize),
		BedType:         pick(room.BedType, roomType.BedType),
		BedCount:        pick(room.BedCount, roomType.BedCount),
		Amenities:       append([]string{}, amenities...),
		Description:     pick(room.Description, roomType.Description),
		IsSmoking:       pick(room.IsSmoking, roomType.IsSmoking),
	}
}

func pick[T any](override, fallback *T) T {
	if override != nil {
		return *override
	}
	if fallback != nil {
		return *fallback
	}
	var zero T
	return zero
}

// Room is a physical unit.  Descriptive attributes are overrides on top of
// its room type.
type Room struct {
	ID               string     `bson:"_id" json:"id"`
	HotelID          string     `bson:"hotel_id" json:"hotel_id"`
	RoomNumber       string     `bson:"room_number" json:"room_number"`
	Floor            int        `bson:"floor" json:"floor"`
	RoomType         string     `bson:"room_type" json:"room_type"`
	Status           RoomStatus `bson:"status" json:"status"`
	IsActive         bool       `bson:"is_active" json:"is_active"`
	Images           []string   `bson:"images,omitempty" json:"images,omitempty"`
	MaintenanceNotes string     `bson:"maintenance_notes,omitempty" json:"maintenance_notes,omitempty"`
	RoomAttributes   `bson:",inline"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at" json:"updated_at"`
}

// RoomType holds the per-hotel defaults and nightly price of a room type.
type RoomType struct {
	ID             string `bson:"_id" json:"id"`
	HotelID        string `bson:"hotel_id" json:"hotel_id"`
	RoomType       string `bson:"room_type" json:"room_type"`
	RoomAttributes `bson:",inline"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// Hotel is the slice of the hotel record the inventory core needs.
type Hotel struct {
	ID         string    `bson:"_id" json:"id"`
	Name       string    `bson:"name" json:"name"`
	FloorCount int       `bson:"floor_count" json:"floor_count"`
	RoomCount  int       `bson:"room_count" json:"room_count"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}

// RoomView is a room merged with its room type defaults.
type RoomView struct {
	ID                 string     `json:"id"`
	HotelID            string     `json:"hotel_id"`
	RoomNumber         string     `json:"room_number"`
	Floor              int        `json:"floor"`
	RoomType           string     `json:"room_type"`
	Status             RoomStatus `json:"status"`
	IsActive           bool       `json:"is_active"`
	Images             []string   `json:"images,omitempty"`
	MaintenanceNotes   string     `json:"maintenance_notes,omitempty"`
	ResolvedAttributes `json:",inline"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// View merges r with the defaults of rt.  A nil rt leaves only the room's
// own overrides.
func (r Room) View(rt *RoomType) RoomView {
	var defaults RoomAttributes
	if rt != nil {
		defaults = rt.RoomAttributes
	}
	return RoomView{
		ID:                 r.ID,
		HotelID:            r.HotelID,
		RoomNumber:         r.RoomNumber,
		Floor:              r.Floor,
		RoomType:           r.RoomType,
		Status:             r.Status,
		IsActive:           r.IsActive,
		Images:             r.Images,
		MaintenanceNotes:   r.MaintenanceNotes,
		ResolvedAttributes: Merge(r.RoomAttributes, defaults),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}
