package mongostore

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

// ----- rooms -----

func (s *Store) InsertRoom(ctx context.Context, r *model.Room) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if _, err := s.rooms.InsertOne(ctx, r); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) GetRoom(ctx context.Context, id string) (model.Room, error) {
	var r model.Room
	err := s.rooms.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	return r, notFound(err)
}

func (s *Store) FindRooms(ctx context.Context, f repository.RoomFilter) ([]model.Room, error) {
	filter := bson.M{}
	if f.HotelID != "" {
		filter["hotel_id"] = f.HotelID
	}
	if f.RoomType != "" {
		filter["room_type"] = f.RoomType
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if len(f.IDs) > 0 {
		filter["_id"] = bson.M{"$in": f.IDs}
	}
	if f.ActiveOnly {
		filter["is_active"] = true
	}
	cur, err := s.rooms.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "room_number", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := make([]model.Room, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func roomStatusFilter(id string, from model.RoomStatus) bson.M {
	filter := bson.M{"_id": id}
	if from != "" {
		filter["status"] = from
	}
	return filter
}

func (s *Store) SetRoomStatus(ctx context.Context, id string, from, to model.RoomStatus) (bool, error) {
	res, err := s.rooms.UpdateOne(ctx, roomStatusFilter(id, from),
		bson.M{"$set": bson.M{"status": to, "updated_at": s.now()}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (s *Store) DeactivateRoom(ctx context.Context, id string) (bool, error) {
	res, err := s.rooms.UpdateOne(ctx,
		bson.M{"_id": id, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false, "status": model.RoomOutOfOrder, "updated_at": s.now()}})
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	ok, err := exists(ctx, s.rooms, id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, repository.ErrNotFound
	}
	return false, nil
}

// ----- hotels and room types -----

func (s *Store) InsertHotel(ctx context.Context, h *model.Hotel) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if _, err := s.hotels.InsertOne(ctx, h); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) GetHotel(ctx context.Context, id string) (model.Hotel, error) {
	var h model.Hotel
	err := s.hotels.FindOne(ctx, bson.M{"_id": id}).Decode(&h)
	return h, notFound(err)
}

func (s *Store) AdjustRoomCount(ctx context.Context, hotelID string, delta int) error {
	res, err := s.hotels.UpdateOne(ctx,
		bson.M{"_id": hotelID},
		bson.M{"$inc": bson.M{"room_count": delta}, "$set": bson.M{"updated_at": s.now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) UpsertRoomType(ctx context.Context, rt *model.RoomType) error {
	existing, err := s.GetRoomType(ctx, rt.HotelID, rt.RoomType)
	switch {
	case err == nil:
		rt.ID = existing.ID
		rt.CreatedAt = existing.CreatedAt
	case errors.Is(err, repository.ErrNotFound):
		if rt.ID == "" {
			rt.ID = uuid.NewString()
		}
	default:
		return err
	}
	_, err = s.roomTypes.ReplaceOne(ctx,
		bson.M{"hotel_id": rt.HotelID, "room_type": rt.RoomType},
		rt,
		options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicate
	}
	return err
}

func (s *Store) GetRoomType(ctx context.Context, hotelID, roomType string) (model.RoomType, error) {
	var rt model.RoomType
	err := s.roomTypes.FindOne(ctx, bson.M{"hotel_id": hotelID, "room_type": roomType}).Decode(&rt)
	return rt, notFound(err)
}

func (s *Store) ListRoomTypes(ctx context.Context, hotelID string) ([]model.RoomType, error) {
	cur, err := s.roomTypes.Find(ctx, bson.M{"hotel_id": hotelID}, options.Find().SetSort(bson.D{{Key: "room_type", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := make([]model.RoomType, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ----- users -----

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := s.users.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&u)
	return u, notFound(err)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	return u, notFound(err)
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return s.users.CountDocuments(ctx, bson.M{})
}
