// Package ledger wraps a repository.LedgerStore with the inventory rules:
// guarded per-night operations, their error semantics, and stay-level loops
// that undo their own partial work when a later night fails.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-inventory-ledger/internal/logger"
	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

// compensationTimeout bounds the undo phase, which runs even when the
// caller's context is already done.
const compensationTimeout = 10 * time.Second

type Ledger struct {
	store repository.LedgerStore
	log   *zap.Logger
}

func New(store repository.LedgerStore, log *zap.Logger) *Ledger {
	return &Ledger{store: store, log: logger.OrNop(log)}
}

func keyFields(key model.InventoryKey, n int) []zap.Field {
	return []zap.Field{
		zap.String("hotel_id", key.HotelID),
		zap.String("room_type", key.RoomType),
		zap.String("date", key.Date.Format(time.DateOnly)),
		zap.Int("rooms", n),
	}
}

func checkCount(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: room count must be positive, got %d", repository.ErrValidation, n)
	}
	return nil
}

// Reserve locks n available rooms on one night.
func (l *Ledger) Reserve(ctx context.Context, key model.InventoryKey, n int) error {
	if err := checkCount(n); err != nil {
		return err
	}
	ok, err := l.store.Reserve(ctx, key, n)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d %s room(s) not available on %s",
			repository.ErrInsufficientInventory, n, key.RoomType, key.Date.Format(time.DateOnly))
	}
	return nil
}

// ConfirmAssignment converts n locked rooms on one night into booked rooms.
func (l *Ledger) ConfirmAssignment(ctx context.Context, key model.InventoryKey, n int) error {
	if err := checkCount(n); err != nil {
		return err
	}
	ok, err := l.store.ConfirmAssignment(ctx, key, n)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: fewer than %d locked %s room(s) on %s",
			repository.ErrRaceCondition, n, key.RoomType, key.Date.Format(time.DateOnly))
	}
	return nil
}

// RevertAssignment undoes a ConfirmAssignment.
func (l *Ledger) RevertAssignment(ctx context.Context, key model.InventoryKey, n int) error {
	if err := checkCount(n); err != nil {
		return err
	}
	ok, err := l.store.RevertAssignment(ctx, key, n)
	if err != nil {
		return err
	}
	if !ok {
		l.log.Warn("ledger inconsistency: revert assignment would drive booked rooms negative", keyFields(key, n)...)
		return fmt.Errorf("%w: fewer than %d booked %s room(s) on %s",
			repository.ErrLedgerInconsistency, n, key.RoomType, key.Date.Format(time.DateOnly))
	}
	return nil
}

// Release returns n rooms from the given bucket to available.  When the
// bucket holds fewer than n rooms nothing changes and the returned error
// wraps ErrLedgerInconsistency; it is a warning for the caller to report,
// not a reason to fail the surrounding operation.
func (l *Ledger) Release(ctx context.Context, key model.InventoryKey, n int, from model.LedgerBucket) error {
	if err := checkCount(n); err != nil {
		return err
	}
	if from != model.BucketLocked && from != model.BucketBooked {
		return fmt.Errorf("%w: unknown ledger bucket %q", repository.ErrValidation, from)
	}
	ok, err := l.store.Release(ctx, key, n, from)
	if err != nil {
		return err
	}
	if !ok {
		l.log.Warn("ledger inconsistency: release skipped",
			append(keyFields(key, n), zap.String("bucket", string(from)))...)
		return fmt.Errorf("%w: release of %d %s room(s) from %s on %s skipped",
			repository.ErrLedgerInconsistency, n, key.RoomType, from, key.Date.Format(time.DateOnly))
	}
	return nil
}

// Seed grows or shrinks a row's capacity.  A shrink that would push total
// or available below zero is skipped and reported as an inconsistency.
func (l *Ledger) Seed(ctx context.Context, key model.InventoryKey, deltaTotal, deltaAvailable int) error {
	if deltaTotal == 0 && deltaAvailable == 0 {
		return nil
	}
	key.Date = model.Day(key.Date)
	ok, err := l.store.Seed(ctx, key, deltaTotal, deltaAvailable)
	if err != nil {
		return err
	}
	if !ok {
		l.log.Warn("ledger inconsistency: seed skipped",
			append(keyFields(key, deltaAvailable), zap.Int("delta_total", deltaTotal))...)
		return fmt.Errorf("%w: seed %+d/%+d on %s %s skipped",
			repository.ErrLedgerInconsistency, deltaTotal, deltaAvailable, key.RoomType, key.Date.Format(time.DateOnly))
	}
	return nil
}

// Inventory lists ledger rows.
func (l *Ledger) Inventory(ctx context.Context, f repository.InventoryFilter) ([]model.InventoryRow, error) {
	return l.store.ListInventory(ctx, f)
}

// Row returns a single ledger row.
func (l *Ledger) Row(ctx context.Context, key model.InventoryKey) (model.InventoryRow, error) {
	key.Date = model.Day(key.Date)
	row, err := l.store.GetInventoryRow(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return row, fmt.Errorf("%w: no inventory for %s on %s", repository.ErrNotFound, key.RoomType, key.Date.Format(time.DateOnly))
	}
	return row, err
}
