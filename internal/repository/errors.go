// Package repository defines the store contracts used by the inventory core
// and the error values shared by every backend.  Higher layers wrap these
// sentinels with context and match them with errors.Is; handlers translate
// them into HTTP status codes.
package repository

import "errors"

// ErrNotFound is returned when a booking, room, room type, hotel or user
// does not exist.  Handlers translate it into a 404 response.
var ErrNotFound = errors.New("not found")

// ErrInsufficientInventory is returned when a reserve guard fails: the row
// is missing or has fewer available rooms than requested.
var ErrInsufficientInventory = errors.New("insufficient inventory")

// ErrRaceCondition signals that a guarded counter or a booking status was
// changed by a concurrent operation between validation and mutation.
// Callers should re-fetch and retry.
var ErrRaceCondition = errors.New("race condition")

// ErrValidation is returned for input that can never succeed as submitted:
// illegal transitions, room count or status mismatches, floor bounds and
// duplicate room numbers.
var ErrValidation = errors.New("validation error")

// ErrLedgerInconsistency reports an internal invariant violation that was
// detected and clamped to a no-op, such as a release that would drive a
// counter below zero.
var ErrLedgerInconsistency = errors.New("ledger inconsistency")

// ErrDuplicate is returned by stores when a unique index rejects a write.
var ErrDuplicate = errors.New("duplicate key")

// ErrStaleState is returned by conditional booking writes whose expected
// current status no longer matches.
var ErrStaleState = errors.New("stale booking state")
