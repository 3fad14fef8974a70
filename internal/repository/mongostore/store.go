// Package mongostore implements repository.Store on MongoDB.  Every ledger
// mutation is one UpdateOne whose filter carries the guard, so the server
// applies check and change atomically on a single document.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

// Collection names.
const (
	InventoryCollection = "room_inventory"
	BookingCollection   = "bookings"
	RoomCollection      = "rooms"
	RoomTypeCollection  = "room_types"
	HotelCollection     = "hotels"
	UserCollection      = "users"
)

type Store struct {
	client    *mongo.Client
	inventory *mongo.Collection
	bookings  *mongo.Collection
	rooms     *mongo.Collection
	roomTypes *mongo.Collection
	hotels    *mongo.Collection
	users     *mongo.Collection
	now       func() time.Time
}

var _ repository.Store = (*Store)(nil)

// New binds a store to database dbName on an already connected client.
func New(client *mongo.Client, dbName string) *Store {
	db := client.Database(dbName)
	return &Store{
		client:    client,
		inventory: db.Collection(InventoryCollection),
		bookings:  db.Collection(BookingCollection),
		rooms:     db.Collection(RoomCollection),
		roomTypes: db.Collection(RoomTypeCollection),
		hotels:    db.Collection(HotelCollection),
		users:     db.Collection(UserCollection),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates the unique indexes the core relies on.
func (s *Store) Migrate(ctx context.Context) error {
	unique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
	}
	plan := map[*mongo.Collection][]mongo.IndexModel{
		s.inventory: {unique(bson.D{{Key: "hotel_id", Value: 1}, {Key: "room_type", Value: 1}, {Key: "date", Value: 1}})},
		s.bookings: {
			unique(bson.D{{Key: "booking_number", Value: 1}}),
			{Keys: bson.D{{Key: "hotel_id", Value: 1}, {Key: "check_in_date", Value: 1}}},
			{Keys: bson.D{{Key: "guest.email", Value: 1}}},
			{Keys: bson.D{{Key: "room_ids", Value: 1}}},
		},
		s.rooms:     {unique(bson.D{{Key: "hotel_id", Value: 1}, {Key: "room_number", Value: 1}})},
		s.roomTypes: {unique(bson.D{{Key: "hotel_id", Value: 1}, {Key: "room_type", Value: 1}})},
		s.users:     {unique(bson.D{{Key: "email", Value: 1}})},
	}
	for coll, models := range plan {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// notFound maps the driver's empty-result error onto the shared sentinel.
func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}

// exists tells a missing document apart from a guard that did not match.
func exists(ctx context.Context, coll *mongo.Collection, id string) (bool, error) {
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	return n > 0, err
}
