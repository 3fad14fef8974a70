// Package catalog is the read side of hotels, room types and rooms used by
// booking and inventory flows, plus the conditional room status moves used
// during assignment, cancellation and checkout.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-inventory-ledger/internal/logger"
	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

type Catalog struct {
	rooms repository.RoomStore
	types repository.CatalogStore
	log   *zap.Logger
}

func New(rooms repository.RoomStore, types repository.CatalogStore, log *zap.Logger) *Catalog {
	return &Catalog{rooms: rooms, types: types, log: logger.OrNop(log)}
}

// PriceOf returns the nightly rate configured on the hotel's room type.
func (c *Catalog) PriceOf(ctx context.Context, hotelID, roomType string) (float64, error) {
	rt, err := c.GetRoomType(ctx, hotelID, roomType)
	if err != nil {
		return 0, err
	}
	if rt.PricePerNight == nil || *rt.PricePerNight <= 0 {
		return 0, fmt.Errorf("%w: room type %s has no nightly price", repository.ErrValidation, rt.RoomType)
	}
	return *rt.PricePerNight, nil
}

func (c *Catalog) GetRoomType(ctx context.Context, hotelID, roomType string) (model.RoomType, error) {
	roomType = model.NormalizeRoomType(roomType)
	rt, err := c.types.GetRoomType(ctx, hotelID, roomType)
	if errors.Is(err, repository.ErrNotFound) {
		return rt, fmt.Errorf("%w: room type %s for hotel %s", repository.ErrNotFound, roomType, hotelID)
	}
	return rt, err
}

func (c *Catalog) FindHotel(ctx context.Context, hotelID string) (model.Hotel, error) {
	h, err := c.types.GetHotel(ctx, hotelID)
	if errors.Is(err, repository.ErrNotFound) {
		return h, fmt.Errorf("%w: hotel %s", repository.ErrNotFound, hotelID)
	}
	return h, err
}

// RoomsMatching loads every id and checks that it is an active room of the
// hotel with the given type and status.  The first offending id is named in
// the error; an unknown id yields ErrNotFound and every other mismatch
// ErrValidation.
func (c *Catalog) RoomsMatching(ctx context.Context, hotelID, roomType string, ids []string, required model.RoomStatus) ([]model.Room, error) {
	roomType = model.NormalizeRoomType(roomType)
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, fmt.Errorf("%w: room %s submitted more than once", repository.ErrValidation, id)
		}
		seen[id] = true
	}
	found, err := c.rooms.FindRooms(ctx, repository.RoomFilter{IDs: ids})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Room, len(found))
	for _, r := range found {
		byID[r.ID] = r
	}

	out := make([]model.Room, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		switch {
		case !ok:
			return nil, fmt.Errorf("%w: room %s", repository.ErrNotFound, id)
		case !r.IsActive:
			return nil, fmt.Errorf("%w: room %s is inactive", repository.ErrValidation, id)
		case r.HotelID != hotelID:
			return nil, fmt.Errorf("%w: room %s does not belong to hotel %s", repository.ErrValidation, id, hotelID)
		case r.RoomType != roomType:
			return nil, fmt.Errorf("%w: room %s is %s, not %s", repository.ErrValidation, id, r.RoomType, roomType)
		case r.Status != required:
			return nil, fmt.Errorf("%w: room %s is %s, not %s", repository.ErrValidation, id, r.Status, required)
		}
		out = append(out, r)
	}
	return out, nil
}

// SetStatus moves every room from one status to another.  Each move is
// conditional on the room still being in from, so two callers can never
// both take the same room.  When a room has moved on, the rooms this call
// already flipped are moved back and ErrRaceCondition is returned.
func (c *Catalog) SetStatus(ctx context.Context, ids []string, from, to model.RoomStatus) error {
	for _, st := range []model.RoomStatus{from, to} {
		if st != "" && !st.Valid() {
			return fmt.Errorf("%w: unknown room status %q", repository.ErrValidation, st)
		}
	}
	if to == "" {
		return fmt.Errorf("%w: target room status is required", repository.ErrValidation)
	}
	flipped := make([]string, 0, len(ids))
	for _, id := range ids {
		ok, err := c.rooms.SetRoomStatus(ctx, id, from, to)
		if err == nil && !ok {
			err = fmt.Errorf("%w: room %s is no longer %s", repository.ErrRaceCondition, id, from)
		}
		if err != nil {
			c.rollback(ctx, flipped, to, from)
			return err
		}
		flipped = append(flipped, id)
	}
	return nil
}

func (c *Catalog) rollback(ctx context.Context, ids []string, from, to model.RoomStatus) {
	if len(ids) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	for _, id := range ids {
		if ok, err := c.rooms.SetRoomStatus(ctx, id, from, to); err != nil || !ok {
			c.log.Error("room status rollback failed",
				zap.String("room_id", id), zap.String("status", string(to)), zap.Error(err))
		}
	}
}

// Vacate returns occupied rooms to available.  Every room is attempted;
// rooms that were not occupied are left alone and reported as a ledger
// inconsistency.
func (c *Catalog) Vacate(ctx context.Context, ids []string) error {
	var bad []string
	for _, id := range ids {
		ok, err := c.rooms.SetRoomStatus(ctx, id, model.RoomOccupied, model.RoomAvailable)
		if err != nil {
			return err
		}
		if !ok {
			bad = append(bad, id)
		}
	}
	if len(bad) > 0 {
		c.log.Warn("vacated rooms were not occupied", zap.Strings("room_ids", bad))
		return fmt.Errorf("%w: rooms %s were not occupied",
			repository.ErrLedgerInconsistency, strings.Join(bad, ", "))
	}
	return nil
}

// GetRoom returns the room merged with its room type defaults.
func (c *Catalog) GetRoom(ctx context.Context, id string) (model.RoomView, error) {
	r, err := c.rooms.GetRoom(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.RoomView{}, fmt.Errorf("%w: room %s", repository.ErrNotFound, id)
	}
	if err != nil {
		return model.RoomView{}, err
	}
	rt, err := c.types.GetRoomType(ctx, r.HotelID, r.RoomType)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return r.View(nil), nil
	case err != nil:
		return model.RoomView{}, err
	}
	return r.View(&rt), nil
}

// ListRooms returns the hotel's active rooms as merged views, optionally
// narrowed by room type and status.
func (c *Catalog) ListRooms(ctx context.Context, hotelID, roomType string, status model.RoomStatus) ([]model.RoomView, error) {
	rooms, err := c.rooms.FindRooms(ctx, repository.RoomFilter{
		HotelID:    hotelID,
		RoomType:   model.NormalizeRoomType(roomType),
		Status:     status,
		ActiveOnly: true,
	})
	if err != nil {
		return nil, err
	}
	types, err := c.types.ListRoomTypes(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	defaults := make(map[string]*model.RoomType, len(types))
	for i := range types {
		defaults[types[i].RoomType] = &types[i]
	}
	out := make([]model.RoomView, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.View(defaults[r.RoomType]))
	}
	return out, nil
}

// ListRoomTypes returns the hotel's room types.
func (c *Catalog) ListRoomTypes(ctx context.Context, hotelID string) ([]model.RoomType, error) {
	return c.types.ListRoomTypes(ctx, hotelID)
}
