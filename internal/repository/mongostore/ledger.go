package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

func keyFilter(key model.InventoryKey) bson.M {
	return bson.M{"hotel_id": key.HotelID, "room_type": key.RoomType, "date": model.Day(key.Date)}
}

// moveFilter matches the row only while counter from holds at least n.
func moveFilter(key model.InventoryKey, n int, from string) bson.M {
	filter := keyFilter(key)
	filter[from] = bson.M{"$gte": n}
	return filter
}

// seedFilter keeps negative deltas from driving total or available below
// zero.  Non-negative deltas match on the key alone.
func seedFilter(key model.InventoryKey, deltaTotal, deltaAvailable int) bson.M {
	filter := keyFilter(key)
	if deltaTotal < 0 {
		filter["total_rooms"] = bson.M{"$gte": -deltaTotal}
	}
	if deltaAvailable < 0 {
		filter["available_rooms"] = bson.M{"$gte": -deltaAvailable}
	}
	return filter
}

// guardedMove decrements from and increments to by n in one UpdateOne that
// only matches while from >= n.
func (s *Store) guardedMove(ctx context.Context, key model.InventoryKey, n int, from, to string) (bool, error) {
	filter := moveFilter(key, n, from)
	update := bson.M{
		"$inc": bson.M{from: -n, to: n},
		"$set": bson.M{"updated_at": s.now()},
	}
	res, err := s.inventory.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (s *Store) Reserve(ctx context.Context, key model.InventoryKey, n int) (bool, error) {
	return s.guardedMove(ctx, key, n, "available_rooms", "locked_rooms")
}

func (s *Store) ConfirmAssignment(ctx context.Context, key model.InventoryKey, n int) (bool, error) {
	return s.guardedMove(ctx, key, n, "locked_rooms", "booked_rooms")
}

func (s *Store) RevertAssignment(ctx context.Context, key model.InventoryKey, n int) (bool, error) {
	return s.guardedMove(ctx, key, n, "booked_rooms", "locked_rooms")
}

func (s *Store) Release(ctx context.Context, key model.InventoryKey, n int, from model.LedgerBucket) (bool, error) {
	if from == model.BucketBooked {
		return s.guardedMove(ctx, key, n, "booked_rooms", "available_rooms")
	}
	return s.guardedMove(ctx, key, n, "locked_rooms", "available_rooms")
}

func (s *Store) Seed(ctx context.Context, key model.InventoryKey, deltaTotal, deltaAvailable int) (bool, error) {
	filter := seedFilter(key, deltaTotal, deltaAvailable)
	update := bson.M{
		"$inc": bson.M{"total_rooms": deltaTotal, "available_rooms": deltaAvailable},
		"$set": bson.M{"updated_at": s.now()},
	}
	if deltaTotal < 0 || deltaAvailable < 0 {
		res, err := s.inventory.UpdateOne(ctx, filter, update)
		if err != nil {
			return false, err
		}
		return res.MatchedCount == 1, nil
	}

	update["$setOnInsert"] = bson.M{"locked_rooms": 0, "booked_rooms": 0}
	opts := options.Update().SetUpsert(true)
	_, err := s.inventory.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		// a concurrent upsert created the row first; the retry matches it
		_, err = s.inventory.UpdateOne(ctx, filter, update, opts)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) GetInventoryRow(ctx context.Context, key model.InventoryKey) (model.InventoryRow, error) {
	var row model.InventoryRow
	err := s.inventory.FindOne(ctx, keyFilter(key)).Decode(&row)
	return row, notFound(err)
}

func (s *Store) ListInventory(ctx context.Context, f repository.InventoryFilter) ([]model.InventoryRow, error) {
	filter := bson.M{}
	if f.HotelID != "" {
		filter["hotel_id"] = f.HotelID
	}
	if f.RoomType != "" {
		filter["room_type"] = f.RoomType
	}
	dates := bson.M{}
	if !f.From.IsZero() {
		dates["$gte"] = model.Day(f.From)
	}
	if !f.To.IsZero() {
		dates["$lt"] = model.Day(f.To)
	}
	if len(dates) > 0 {
		filter["date"] = dates
	}
	opts := options.Find().SetSort(bson.D{{Key: "hotel_id", Value: 1}, {Key: "room_type", Value: 1}, {Key: "date", Value: 1}})
	cur, err := s.inventory.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	rows := make([]model.InventoryRow, 0)
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Date = rows[i].Date.UTC()
	}
	return rows, nil
}
