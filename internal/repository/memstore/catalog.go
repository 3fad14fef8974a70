package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

func cloneRoom(r *model.Room) model.Room {
	c := *r
	c.Images = append([]string(nil), r.Images...)
	if r.Amenities != nil {
		c.Amenities = append([]string{}, r.Amenities...)
	}
	return c
}

func (db *DB) InsertRoom(_ context.Context, r *model.Room) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, existing := range db.rooms {
		if existing.HotelID == r.HotelID && existing.RoomNumber == r.RoomNumber {
			return repository.ErrDuplicate
		}
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	c := cloneRoom(r)
	db.rooms[r.ID] = &c
	return nil
}

func (db *DB) GetRoom(_ context.Context, id string) (model.Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	r, ok := db.rooms[id]
	if !ok {
		return model.Room{}, repository.ErrNotFound
	}
	return cloneRoom(r), nil
}

func (db *DB) FindRooms(_ context.Context, f repository.RoomFilter) ([]model.Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]model.Room, 0)
	for _, r := range db.rooms {
		if f.HotelID != "" && r.HotelID != f.HotelID {
			continue
		}
		if f.RoomType != "" && r.RoomType != f.RoomType {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.ActiveOnly && !r.IsActive {
			continue
		}
		if len(f.IDs) > 0 && !contains(f.IDs, r.ID) {
			continue
		}
		out = append(out, cloneRoom(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomNumber < out[j].RoomNumber })
	return out, nil
}

func (db *DB) SetRoomStatus(_ context.Context, id string, from, to model.RoomStatus) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	r, ok := db.rooms[id]
	if !ok || (from != "" && r.Status != from) {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = db.now()
	return true, nil
}

func (db *DB) DeactivateRoom(_ context.Context, id string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	r, ok := db.rooms[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if !r.IsActive {
		return false, nil
	}
	r.IsActive = false
	r.Status = model.RoomOutOfOrder
	r.UpdatedAt = db.now()
	return true, nil
}

// ----- hotels and room types -----

func (db *DB) InsertHotel(_ context.Context, h *model.Hotel) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if _, ok := db.hotels[h.ID]; ok {
		return repository.ErrDuplicate
	}
	c := *h
	db.hotels[h.ID] = &c
	return nil
}

func (db *DB) GetHotel(_ context.Context, id string) (model.Hotel, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	h, ok := db.hotels[id]
	if !ok {
		return model.Hotel{}, repository.ErrNotFound
	}
	return *h, nil
}

func (db *DB) AdjustRoomCount(_ context.Context, hotelID string, delta int) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	h, ok := db.hotels[hotelID]
	if !ok {
		return repository.ErrNotFound
	}
	h.RoomCount += delta
	h.UpdatedAt = db.now()
	return nil
}

func roomTypeKey(hotelID, roomType string) string { return hotelID + "/" + roomType }

func (db *DB) UpsertRoomType(_ context.Context, rt *model.RoomType) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	k := roomTypeKey(rt.HotelID, rt.RoomType)
	if existing, ok := db.roomTypes[k]; ok {
		rt.ID = existing.ID
		rt.CreatedAt = existing.CreatedAt
	} else if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	c := *rt
	c.Amenities = append([]string(nil), rt.Amenities...)
	db.roomTypes[k] = &c
	return nil
}

func (db *DB) GetRoomType(_ context.Context, hotelID, roomType string) (model.RoomType, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	rt, ok := db.roomTypes[roomTypeKey(hotelID, roomType)]
	if !ok {
		return model.RoomType{}, repository.ErrNotFound
	}
	return *rt, nil
}

func (db *DB) ListRoomTypes(_ context.Context, hotelID string) ([]model.RoomType, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]model.RoomType, 0)
	for _, rt := range db.roomTypes {
		if rt.HotelID == hotelID {
			out = append(out, *rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomType < out[j].RoomType })
	return out, nil
}

// ----- users -----

func (db *DB) CreateUser(_ context.Context, u *model.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range db.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	c := *u
	db.users[u.ID] = &c
	return nil
}

func (db *DB) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range db.users {
		if u.Email == email {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (db *DB) GetUserByID(_ context.Context, id string) (model.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return *u, nil
}

func (db *DB) CountUsers(context.Context) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return int64(len(db.users)), nil
}
