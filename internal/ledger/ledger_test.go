package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository/memstore"
)

var night = time.Date(2030, 3, 10, 0, 0, 0, 0, time.UTC)

func seeded(t *testing.T, total int, roomType string, nights ...time.Time) (*Ledger, *memstore.DB) {
	t.Helper()
	db := memstore.New()
	l := New(db, nil)
	for _, d := range nights {
		if err := l.Seed(context.Background(), model.InventoryKey{HotelID: "h1", RoomType: roomType, Date: d}, total, total); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return l, db
}

func row(t *testing.T, l *Ledger, roomType string, d time.Time) model.InventoryRow {
	t.Helper()
	r, err := l.Row(context.Background(), model.InventoryKey{HotelID: "h1", RoomType: roomType, Date: d})
	if err != nil {
		t.Fatalf("row %s %s: %v", roomType, d.Format(time.DateOnly), err)
	}
	if !r.Balanced() {
		t.Fatalf("row not balanced: %+v", r)
	}
	return r
}

func TestLedgerLifecycleConservesTotal(t *testing.T) {
	ctx := context.Background()
	l, _ := seeded(t, 5, "deluxe", night)
	key := model.InventoryKey{HotelID: "h1", RoomType: "deluxe", Date: night}

	if err := l.Reserve(ctx, key, 2); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if r := row(t, l, "deluxe", night); r.AvailableRooms != 3 || r.LockedRooms != 2 {
		t.Fatalf("after reserve: %+v", r)
	}
	if err := l.ConfirmAssignment(ctx, key, 2); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if r := row(t, l, "deluxe", night); r.LockedRooms != 0 || r.BookedRooms != 2 {
		t.Fatalf("after confirm: %+v", r)
	}
	if err := l.Release(ctx, key, 2, model.BucketBooked); err != nil {
		t.Fatalf("release: %v", err)
	}
	if r := row(t, l, "deluxe", night); r.AvailableRooms != 5 || r.TotalRooms != 5 {
		t.Fatalf("after release: %+v", r)
	}
}

func TestReserveInsufficient(t *testing.T) {
	l, _ := seeded(t, 1, "suite", night)
	key := model.InventoryKey{HotelID: "h1", RoomType: "suite", Date: night}
	err := l.Reserve(context.Background(), key, 2)
	if !errors.Is(err, repository.ErrInsufficientInventory) {
		t.Fatalf("expected insufficient inventory, got %v", err)
	}
	missing := model.InventoryKey{HotelID: "h1", RoomType: "suite", Date: night.AddDate(0, 0, 1)}
	if err := l.Reserve(context.Background(), missing, 1); !errors.Is(err, repository.ErrInsufficientInventory) {
		t.Fatalf("expected insufficient inventory on missing row, got %v", err)
	}
}

func TestReserveRejectsNonPositiveCount(t *testing.T) {
	l, _ := seeded(t, 1, "suite", night)
	key := model.InventoryKey{HotelID: "h1", RoomType: "suite", Date: night}
	if err := l.Reserve(context.Background(), key, 0); !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConcurrentReserveNeverOversells(t *testing.T) {
	const capacity, workers = 5, 40
	l, _ := seeded(t, capacity, "standard", night)
	key := model.InventoryKey{HotelID: "h1", RoomType: "standard", Date: night}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok, bad int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Reserve(context.Background(), key, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, repository.ErrInsufficientInventory):
				bad++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if ok != capacity || bad != workers-capacity {
		t.Fatalf("expected %d successes and %d rejections, got %d and %d", capacity, workers-capacity, ok, bad)
	}
	if r := row(t, l, "standard", night); r.AvailableRooms != 0 || r.LockedRooms != capacity {
		t.Fatalf("final row: %+v", r)
	}
}

func TestConfirmWithoutLockedIsRace(t *testing.T) {
	l, _ := seeded(t, 3, "standard", night)
	key := model.InventoryKey{HotelID: "h1", RoomType: "standard", Date: night}
	if err := l.ConfirmAssignment(context.Background(), key, 1); !errors.Is(err, repository.ErrRaceCondition) {
		t.Fatalf("expected race condition, got %v", err)
	}
	if r := row(t, l, "standard", night); r.AvailableRooms != 3 || r.BookedRooms != 0 {
		t.Fatalf("row changed: %+v", r)
	}
}

func TestReleaseTwiceIsNoOpWithWarning(t *testing.T) {
	ctx := context.Background()
	l, _ := seeded(t, 2, "standard", night)
	key := model.InventoryKey{HotelID: "h1", RoomType: "standard", Date: night}
	if err := l.Reserve(ctx, key, 2); err != nil {
		t.Fatal(err)
	}
	if err := l.Release(ctx, key, 2, model.BucketLocked); err != nil {
		t.Fatalf("first release: %v", err)
	}
	before := row(t, l, "standard", night)
	err := l.Release(ctx, key, 2, model.BucketLocked)
	if !errors.Is(err, repository.ErrLedgerInconsistency) {
		t.Fatalf("expected inconsistency warning, got %v", err)
	}
	if after := row(t, l, "standard", night); after.AvailableRooms != before.AvailableRooms || after.LockedRooms != before.LockedRooms {
		t.Fatalf("second release changed the row: %+v -> %+v", before, after)
	}
}

func TestSeedShrinkNeverCreatesOrUnderflows(t *testing.T) {
	ctx := context.Background()
	l, _ := seeded(t, 1, "standard", night)
	other := model.InventoryKey{HotelID: "h1", RoomType: "standard", Date: night.AddDate(0, 0, 1)}
	if err := l.Seed(ctx, other, -1, -1); !errors.Is(err, repository.ErrLedgerInconsistency) {
		t.Fatalf("expected inconsistency on missing row, got %v", err)
	}
	if _, err := l.Row(ctx, other); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("negative seed created a row: %v", err)
	}

	key := model.InventoryKey{HotelID: "h1", RoomType: "standard", Date: night}
	if err := l.Reserve(ctx, key, 1); err != nil {
		t.Fatal(err)
	}
	if err := l.Seed(ctx, key, -1, -1); !errors.Is(err, repository.ErrLedgerInconsistency) {
		t.Fatalf("expected inconsistency when available is zero, got %v", err)
	}
	if r := row(t, l, "standard", night); r.TotalRooms != 1 || r.LockedRooms != 1 {
		t.Fatalf("row changed: %+v", r)
	}
}

func TestSeedNormalizesDate(t *testing.T) {
	ctx := context.Background()
	l := New(memstore.New(), nil)
	key := model.InventoryKey{HotelID: "h1", RoomType: "standard", Date: night.Add(15 * time.Hour)}
	if err := l.Seed(ctx, key, 1, 1); err != nil {
		t.Fatal(err)
	}
	if r := row(t, l, "standard", night); r.TotalRooms != 1 || !r.Date.Equal(night) {
		t.Fatalf("unexpected row: %+v", r)
	}
}
