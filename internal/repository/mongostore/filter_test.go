package mongostore

import (
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
)

var testKey = model.InventoryKey{HotelID: "h1", RoomType: "deluxe", Date: time.Date(2030, 1, 2, 15, 4, 0, 0, time.UTC)}

func TestMoveFilterGuardsSourceCounter(t *testing.T) {
	got := moveFilter(testKey, 2, "available_rooms")
	want := bson.M{
		"hotel_id":        "h1",
		"room_type":       "deluxe",
		"date":            time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC),
		"available_rooms": bson.M{"$gte": 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("moveFilter = %v, want %v", got, want)
	}
}

func TestSeedFilterOnlyGuardsNegativeDeltas(t *testing.T) {
	grow := seedFilter(testKey, 3, 3)
	if _, ok := grow["total_rooms"]; ok {
		t.Fatalf("growing seed must not guard total: %v", grow)
	}
	if _, ok := grow["available_rooms"]; ok {
		t.Fatalf("growing seed must not guard available: %v", grow)
	}

	shrink := seedFilter(testKey, -2, -1)
	if !reflect.DeepEqual(shrink["total_rooms"], bson.M{"$gte": 2}) {
		t.Fatalf("total guard = %v", shrink["total_rooms"])
	}
	if !reflect.DeepEqual(shrink["available_rooms"], bson.M{"$gte": 1}) {
		t.Fatalf("available guard = %v", shrink["available_rooms"])
	}
}

func TestSettleFilterPinsPaymentsAndTotal(t *testing.T) {
	b := &model.Booking{ID: "b1", Payments: []model.Payment{{Amount: 10}, {Amount: 20}}}
	got := settleFilter(b, 120.5)
	want := bson.M{"_id": "b1", "payments": bson.M{"$size": 2}, "total_amount": 120.5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("settleFilter = %v, want %v", got, want)
	}
}

func TestTransitionFilterLeaseConditions(t *testing.T) {
	at := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	held := transitionFilter("b1", model.BookingConfirmed, model.BookingTransition{To: model.BookingCheckedIn, At: at, LeaseToken: "tok"})
	if held["assign_lease.token"] != "tok" || held["booking_status"] != model.BookingConfirmed {
		t.Fatalf("lease holder filter = %v", held)
	}
	if _, ok := held["$or"]; ok {
		t.Fatalf("lease holder must not require a free lease: %v", held)
	}

	free := transitionFilter("b1", model.BookingConfirmed, model.BookingTransition{To: model.BookingCancelled, At: at})
	if !reflect.DeepEqual(free["$or"], leaseFree(at)) {
		t.Fatalf("free filter = %v", free)
	}
	if !reflect.DeepEqual(claimFilter("b1", at)["$or"], leaseFree(at)) {
		t.Fatalf("claim filter must require a free lease")
	}

	update := transitionUpdate(model.BookingTransition{To: model.BookingCancelled, At: at})
	if !reflect.DeepEqual(update["$unset"], bson.M{"assign_lease": ""}) {
		t.Fatalf("transition must drop the lease: %v", update)
	}
	if _, ok := update["$set"].(bson.M)["room_ids"]; ok {
		t.Fatalf("nil room ids must be left untouched: %v", update)
	}
}

func TestRoomStatusFilter(t *testing.T) {
	if got := roomStatusFilter("r1", model.RoomAvailable); !reflect.DeepEqual(got, bson.M{"_id": "r1", "status": model.RoomAvailable}) {
		t.Fatalf("guarded filter = %v", got)
	}
	if got := roomStatusFilter("r1", ""); !reflect.DeepEqual(got, bson.M{"_id": "r1"}) {
		t.Fatalf("unguarded filter = %v", got)
	}
}
