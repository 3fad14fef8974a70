package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

// openTestStore connects to MYSQL_TEST_DSN, which must carry
// parseTime=true, loc=UTC and clientFoundRows=true.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatal(err)
	}
	s := New(db)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return s
}

func TestStoreLedgerGuards(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := model.InventoryKey{HotelID: "h-" + uuid.NewString()[:8], RoomType: "deluxe", Date: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}

	if ok, err := s.Seed(ctx, key, 2, 2); !ok || err != nil {
		t.Fatalf("seed: %v %v", ok, err)
	}
	if ok, err := s.Reserve(ctx, key, 3); ok || err != nil {
		t.Fatalf("over-reserve matched: %v %v", ok, err)
	}
	if ok, err := s.Reserve(ctx, key, 2); !ok || err != nil {
		t.Fatalf("reserve: %v %v", ok, err)
	}
	if ok, err := s.Seed(ctx, key, -1, -1); ok || err != nil {
		t.Fatalf("shrink below available matched: %v %v", ok, err)
	}
	row, err := s.GetInventoryRow(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if !row.Balanced() || row.AvailableRooms != 0 || row.LockedRooms != 2 {
		t.Fatalf("unexpected row %+v", row)
	}
}

func TestStoreAssignmentLease(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	b := &model.Booking{
		BookingNumber: "BK-" + uuid.NewString()[:12],
		HotelID:       "h1",
		BookingSource: model.SourceDirect,
		BookingStatus: model.BookingConfirmed,
		PaymentStatus: model.PaymentPending,
		CheckInDate:   time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		CheckOutDate:  time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.InsertBooking(ctx, b); err != nil {
		t.Fatal(err)
	}
	lease := model.AssignmentLease{Token: "tok", Until: now.Add(time.Minute)}
	if err := s.ClaimAssignment(ctx, b.ID, lease, now); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.ClaimAssignment(ctx, b.ID, model.AssignmentLease{Token: "other", Until: now.Add(time.Minute)}, now); !errors.Is(err, repository.ErrStaleState) {
		t.Fatalf("second claim: %v", err)
	}
	_, err := s.TransitionBooking(ctx, b.ID, model.BookingConfirmed, model.BookingTransition{To: model.BookingCancelled, At: now})
	if !errors.Is(err, repository.ErrStaleState) {
		t.Fatalf("cancel through a live lease: %v", err)
	}
	got, err := s.TransitionBooking(ctx, b.ID, model.BookingConfirmed, model.BookingTransition{To: model.BookingCheckedIn, At: now, LeaseToken: "tok"})
	if err != nil {
		t.Fatalf("transition with lease: %v", err)
	}
	if got.BookingStatus != model.BookingCheckedIn {
		t.Fatalf("unexpected booking %+v", got)
	}
}
