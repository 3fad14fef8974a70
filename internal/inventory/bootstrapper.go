// Package inventory administers hotels, room types and rooms, and keeps the
// ledger's capacity in step with the set of active rooms.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-inventory-ledger/internal/catalog"
	"github.com/iliyamo/hotel-inventory-ledger/internal/ledger"
	"github.com/iliyamo/hotel-inventory-ledger/internal/logger"
	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

// HorizonDays is how many nights, starting today, a new room adds capacity to.
const HorizonDays = 365

// Store is the persistence the bootstrapper needs.
type Store interface {
	repository.RoomStore
	repository.CatalogStore
	repository.BookingStore
}

type Bootstrapper struct {
	store   Store
	catalog *catalog.Catalog
	ledger  *ledger.Ledger
	log     *zap.Logger
	now     func() time.Time
}

func New(store Store, cat *catalog.Catalog, led *ledger.Ledger, log *zap.Logger) *Bootstrapper {
	return &Bootstrapper{
		store:   store,
		catalog: cat,
		ledger:  led,
		log:     logger.OrNop(log),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type HotelInput struct {
	Name       string
	FloorCount int
}

// CreateHotel registers a hotel with no rooms.
func (b *Bootstrapper) CreateHotel(ctx context.Context, in HotelInput) (model.Hotel, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Hotel{}, fmt.Errorf("%w: hotel name is required", repository.ErrValidation)
	}
	if in.FloorCount < 1 {
		return model.Hotel{}, fmt.Errorf("%w: floor_count must be at least 1", repository.ErrValidation)
	}
	now := b.now()
	h := model.Hotel{Name: name, FloorCount: in.FloorCount, CreatedAt: now, UpdatedAt: now}
	if err := b.store.InsertHotel(ctx, &h); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Hotel{}, fmt.Errorf("%w: hotel already exists", repository.ErrValidation)
		}
		return model.Hotel{}, err
	}
	b.log.Info("hotel created", zap.String("hotel_id", h.ID), zap.Int("floor_count", h.FloorCount))
	return h, nil
}

type RoomTypeInput struct {
	HotelID  string
	RoomType string
	model.RoomAttributes
}

// UpsertRoomType creates or replaces the defaults and nightly price of a
// room type.  Existing rooms pick the new defaults up on their next read.
func (b *Bootstrapper) UpsertRoomType(ctx context.Context, in RoomTypeInput) (model.RoomType, error) {
	roomType := model.NormalizeRoomType(in.RoomType)
	if !model.ValidRoomType(roomType) {
		return model.RoomType{}, fmt.Errorf("%w: unknown room type %q", repository.ErrValidation, in.RoomType)
	}
	if in.PricePerNight == nil || *in.PricePerNight <= 0 {
		return model.RoomType{}, fmt.Errorf("%w: price_per_night must be positive", repository.ErrValidation)
	}
	if _, err := b.catalog.FindHotel(ctx, in.HotelID); err != nil {
		return model.RoomType{}, err
	}
	now := b.now()
	rt := model.RoomType{
		HotelID:        in.HotelID,
		RoomType:       roomType,
		RoomAttributes: in.RoomAttributes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := b.store.UpsertRoomType(ctx, &rt); err != nil {
		return model.RoomType{}, err
	}
	return rt, nil
}

type RoomInput struct {
	HotelID          string
	RoomNumber       string
	Floor            int
	RoomType         string
	Images           []string
	MaintenanceNotes string
	model.RoomAttributes
}

// CreateRoom adds an active room and one unit of capacity to each of the
// next HorizonDays nights of its room type.
func (b *Bootstrapper) CreateRoom(ctx context.Context, in RoomInput) (model.Room, error) {
	number := strings.TrimSpace(in.RoomNumber)
	if number == "" {
		return model.Room{}, fmt.Errorf("%w: room_number is required", repository.ErrValidation)
	}
	hotel, err := b.catalog.FindHotel(ctx, in.HotelID)
	if err != nil {
		return model.Room{}, err
	}
	if in.Floor < 1 || in.Floor > hotel.FloorCount {
		return model.Room{}, fmt.Errorf("%w: floor %d outside 1..%d", repository.ErrValidation, in.Floor, hotel.FloorCount)
	}
	rt, err := b.catalog.GetRoomType(ctx, hotel.ID, in.RoomType)
	if err != nil {
		return model.Room{}, err
	}

	now := b.now()
	room := model.Room{
		HotelID:          hotel.ID,
		RoomNumber:       number,
		Floor:            in.Floor,
		RoomType:         rt.RoomType,
		Status:           model.RoomAvailable,
		IsActive:         true,
		Images:           in.Images,
		MaintenanceNotes: in.MaintenanceNotes,
		RoomAttributes:   in.RoomAttributes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := b.store.InsertRoom(ctx, &room); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Room{}, fmt.Errorf("%w: room number %s already exists in hotel %s", repository.ErrValidation, number, hotel.ID)
		}
		return model.Room{}, err
	}
	log := b.log.With(zap.String("hotel_id", hotel.ID), zap.String("room_id", room.ID), zap.String("room_type", room.RoomType))

	if err := b.store.AdjustRoomCount(ctx, hotel.ID, 1); err != nil {
		log.Error("room count increment failed", zap.Error(err))
		return model.Room{}, fmt.Errorf("room %s created but hotel room count not updated: %w", room.ID, err)
	}

	today := model.Day(now)
	for i := 0; i < HorizonDays; i++ {
		key := model.InventoryKey{HotelID: hotel.ID, RoomType: room.RoomType, Date: today.AddDate(0, 0, i)}
		if err := b.ledger.Seed(ctx, key, 1, 1); err != nil {
			log.Error("inventory seeding stopped", zap.Int("seeded_days", i), zap.Error(err))
			return model.Room{}, fmt.Errorf("room %s created but inventory seeded for %d of %d days: %w", room.ID, i, HorizonDays, err)
		}
	}
	log.Info("room created", zap.String("room_number", room.RoomNumber), zap.Int("seeded_days", HorizonDays))
	return room, nil
}

// DeleteRoom deactivates a room that no live booking holds.  Only today's
// ledger row loses the unit; later nights keep their capacity.
func (b *Bootstrapper) DeleteRoom(ctx context.Context, id string) error {
	room, err := b.store.GetRoom(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: room %s", repository.ErrNotFound, id)
	}
	if err != nil {
		return err
	}
	if !room.IsActive {
		return fmt.Errorf("%w: room %s is already inactive", repository.ErrValidation, id)
	}
	live, err := b.store.FindBookings(ctx, repository.BookingFilter{
		RoomID:   id,
		Statuses: []model.BookingStatus{model.BookingConfirmed, model.BookingCheckedIn},
		Limit:    1,
	})
	if err != nil {
		return err
	}
	if len(live) > 0 {
		return fmt.Errorf("%w: room %s is held by booking %s", repository.ErrValidation, id, live[0].BookingNumber)
	}

	ok, err := b.store.DeactivateRoom(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: room %s is already inactive", repository.ErrValidation, id)
	}
	log := b.log.With(zap.String("hotel_id", room.HotelID), zap.String("room_id", id), zap.String("room_type", room.RoomType))

	if err := b.store.AdjustRoomCount(ctx, room.HotelID, -1); err != nil {
		log.Error("room count decrement failed", zap.Error(err))
		return fmt.Errorf("room %s deactivated but hotel room count not updated: %w", id, err)
	}

	key := model.InventoryKey{HotelID: room.HotelID, RoomType: room.RoomType, Date: b.now()}
	// a skipped shrink is logged by the ledger; the room stays deactivated
	if err := b.ledger.Seed(ctx, key, -1, -1); err != nil && !errors.Is(err, repository.ErrLedgerInconsistency) {
		return err
	}
	log.Info("room deactivated")
	return nil
}
