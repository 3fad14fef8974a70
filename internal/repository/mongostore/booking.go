package mongostore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

func (s *Store) InsertBooking(ctx context.Context, b *model.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if _, err := s.bookings.InsertOne(ctx, b); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	var b model.Booking
	err := s.bookings.FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	return normalize(b), notFound(err)
}

func (s *Store) GetBookingByNumber(ctx context.Context, number string) (model.Booking, error) {
	var b model.Booking
	err := s.bookings.FindOne(ctx, bson.M{"booking_number": number}).Decode(&b)
	return normalize(b), notFound(err)
}

func bookingFilter(f repository.BookingFilter) bson.M {
	filter := bson.M{}
	if f.HotelID != "" {
		filter["hotel_id"] = f.HotelID
	}
	if f.RoomID != "" {
		filter["room_ids"] = f.RoomID
	}
	if f.RoomType != "" {
		filter["room_type_bookings.room_type"] = f.RoomType
	}
	if f.GuestEmail != "" {
		filter["guest.email"] = strings.ToLower(f.GuestEmail)
	}
	if len(f.Statuses) > 0 {
		filter["booking_status"] = bson.M{"$in": f.Statuses}
	}
	if f.PaymentStatus != "" {
		filter["payment_status"] = f.PaymentStatus
	}
	checkIn := bson.M{}
	if !f.CheckInFrom.IsZero() {
		checkIn["$gte"] = f.CheckInFrom
	}
	if !f.CheckInTo.IsZero() {
		checkIn["$lt"] = f.CheckInTo
	}
	if len(checkIn) > 0 {
		filter["check_in_date"] = checkIn
	}
	return filter
}

func (s *Store) FindBookings(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "check_in_date", Value: 1}, {Key: "created_at", Value: 1}})
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cur, err := s.bookings.Find(ctx, bookingFilter(f), opts)
	if err != nil {
		return nil, err
	}
	out := make([]model.Booking, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i] = normalize(out[i])
	}
	return out, nil
}

// leaseFree matches bookings without an assignment lease live at now.
func leaseFree(now time.Time) bson.A {
	return bson.A{
		bson.M{"assign_lease": nil},
		bson.M{"assign_lease.until": bson.M{"$lte": now}},
	}
}

// transitionFilter pins the expected status and the lease condition of t,
// the document-store equivalent of UPDATE ... WHERE status = ?.
func transitionFilter(id string, from model.BookingStatus, t model.BookingTransition) bson.M {
	filter := bson.M{"_id": id, "booking_status": from}
	if t.LeaseToken != "" {
		filter["assign_lease.token"] = t.LeaseToken
	} else {
		filter["$or"] = leaseFree(t.At)
	}
	return filter
}

func transitionUpdate(t model.BookingTransition) bson.M {
	set := bson.M{"booking_status": t.To, "updated_at": t.At}
	if t.RoomTypeBookings != nil {
		set["room_type_bookings"] = t.RoomTypeBookings
	}
	if t.RoomIDs != nil {
		set["room_ids"] = t.RoomIDs
	}
	if t.CheckInTime != nil {
		set["check_in_time"] = *t.CheckInTime
	}
	if t.CheckOutTime != nil {
		set["check_out_time"] = *t.CheckOutTime
	}
	if t.UpdatedBy != "" {
		set["updated_by"] = t.UpdatedBy
	}
	return bson.M{"$set": set, "$unset": bson.M{"assign_lease": ""}}
}

func (s *Store) TransitionBooking(ctx context.Context, id string, from model.BookingStatus, t model.BookingTransition) (model.Booking, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var b model.Booking
	err := s.bookings.FindOneAndUpdate(ctx, transitionFilter(id, from, t), transitionUpdate(t), opts).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Booking{}, s.missOrStale(ctx, id)
	}
	if err != nil {
		return model.Booking{}, err
	}
	return normalize(b), nil
}

// missOrStale explains a conditional write that matched nothing.
func (s *Store) missOrStale(ctx context.Context, id string) error {
	ok, err := exists(ctx, s.bookings, id)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrNotFound
	}
	return repository.ErrStaleState
}

func claimFilter(id string, now time.Time) bson.M {
	return bson.M{"_id": id, "booking_status": model.BookingConfirmed, "$or": leaseFree(now)}
}

func (s *Store) ClaimAssignment(ctx context.Context, id string, lease model.AssignmentLease, now time.Time) error {
	res, err := s.bookings.UpdateOne(ctx, claimFilter(id, now), bson.M{"$set": bson.M{"assign_lease": lease}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return s.missOrStale(ctx, id)
	}
	return nil
}

func (s *Store) ClearAssignment(ctx context.Context, id, token string) error {
	_, err := s.bookings.UpdateOne(ctx,
		bson.M{"_id": id, "assign_lease.token": token},
		bson.M{"$unset": bson.M{"assign_lease": ""}})
	return err
}

// settleFilter pins the payments count and total seen in b, so a slower
// writer never overwrites the status computed by a later append.
func settleFilter(b *model.Booking, storedTotal float64) bson.M {
	return bson.M{"_id": b.ID, "payments": bson.M{"$size": len(b.Payments)}, "total_amount": storedTotal}
}

// settlePayment stores the payment status derived from b.
func (s *Store) settlePayment(ctx context.Context, b *model.Booking, storedTotal float64) error {
	b.TotalAmount = model.RoundMoney(b.TotalAmount)
	b.PaymentStatus = model.PaymentStatusFor(b.PaidAmount(), b.TotalAmount)
	update := bson.M{"$set": bson.M{"payment_status": b.PaymentStatus, "total_amount": b.TotalAmount}}
	_, err := s.bookings.UpdateOne(ctx, settleFilter(b, storedTotal), update)
	return err
}

func (s *Store) AppendPayment(ctx context.Context, id string, p model.Payment, by string) (model.Booking, error) {
	update := bson.M{
		"$push": bson.M{"payments": p},
		"$set":  bson.M{"updated_at": s.now(), "updated_by": by},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var b model.Booking
	if err := s.bookings.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&b); err != nil {
		return model.Booking{}, notFound(err)
	}
	b = normalize(b)
	if err := s.settlePayment(ctx, &b, b.TotalAmount); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

func (s *Store) AppendCharge(ctx context.Context, id string, c model.RoomCharge, required model.BookingStatus, by string) (model.Booking, error) {
	update := bson.M{
		"$push": bson.M{"room_charges": c},
		"$inc":  bson.M{"total_amount": c.Amount},
		"$set":  bson.M{"updated_at": s.now(), "updated_by": by},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var b model.Booking
	err := s.bookings.FindOneAndUpdate(ctx, bson.M{"_id": id, "booking_status": required}, update, opts).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Booking{}, s.missOrStale(ctx, id)
	}
	if err != nil {
		return model.Booking{}, err
	}
	b = normalize(b)
	if err := s.settlePayment(ctx, &b, b.TotalAmount); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// normalize restores UTC locations and non-nil slices after decoding.
func normalize(b model.Booking) model.Booking {
	b.CheckInDate = b.CheckInDate.UTC()
	b.CheckOutDate = b.CheckOutDate.UTC()
	if b.RoomIDs == nil {
		b.RoomIDs = []string{}
	}
	if b.Payments == nil {
		b.Payments = []model.Payment{}
	}
	if b.RoomCharges == nil {
		b.RoomCharges = []model.RoomCharge{}
	}
	for i := range b.RoomTypeBookings {
		if b.RoomTypeBookings[i].RoomIDs == nil {
			b.RoomTypeBookings[i].RoomIDs = []string{}
		}
	}
	return b
}
