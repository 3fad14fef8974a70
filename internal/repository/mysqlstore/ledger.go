package mysqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

const inventoryColumns = "hotel_id, room_type, date, total_rooms, available_rooms, locked_rooms, booked_rooms, updated_at"

// moveQuery moves n from one counter column to another while from >= n.
// Column names come from this package only.
func moveQuery(from, to string) string {
	return fmt.Sprintf(`UPDATE room_inventory
		SET %[1]s = %[1]s - ?, %[2]s = %[2]s + ?, updated_at = ?
		WHERE hotel_id = ? AND room_type = ? AND date = ? AND %[1]s >= ?`, from, to)
}

// shrinkQuery applies seed deltas of which at least one is negative.  The
// guard keeps both counters from going below zero.
const shrinkQuery = `UPDATE room_inventory
	SET total_rooms = total_rooms + ?, available_rooms = available_rooms + ?, updated_at = ?
	WHERE hotel_id = ? AND room_type = ? AND date = ?
	  AND total_rooms + ? >= 0 AND available_rooms + ? >= 0`

// guardedMove runs moveQuery and reports whether the guard matched.
func (s *Store) guardedMove(ctx context.Context, key model.InventoryKey, n int, from, to string) (bool, error) {
	res, err := s.db.ExecContext(ctx, moveQuery(from, to), n, n, s.now(), key.HotelID, key.RoomType, model.Day(key.Date), n)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
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
	day := model.Day(key.Date)
	if deltaTotal < 0 || deltaAvailable < 0 {
		res, err := s.db.ExecContext(ctx, shrinkQuery,
			deltaTotal, deltaAvailable, s.now(), key.HotelID, key.RoomType, day, deltaTotal, deltaAvailable)
		if err != nil {
			return false, err
		}
		affected, err := res.RowsAffected()
		return affected == 1, err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO room_inventory (`+inventoryColumns+`)
		VALUES (?, ?, ?, ?, ?, 0, 0, ?)
		ON DUPLICATE KEY UPDATE
			total_rooms = total_rooms + VALUES(total_rooms),
			available_rooms = available_rooms + VALUES(available_rooms),
			updated_at = VALUES(updated_at)`,
		key.HotelID, key.RoomType, day, deltaTotal, deltaAvailable, s.now())
	if err != nil {
		return false, err
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInventory(sc rowScanner) (model.InventoryRow, error) {
	var r model.InventoryRow
	err := sc.Scan(&r.HotelID, &r.RoomType, &r.Date, &r.TotalRooms, &r.AvailableRooms, &r.LockedRooms, &r.BookedRooms, &r.UpdatedAt)
	r.Date = model.Day(r.Date)
	return r, err
}

func (s *Store) GetInventoryRow(ctx context.Context, key model.InventoryKey) (model.InventoryRow, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+inventoryColumns+" FROM room_inventory WHERE hotel_id = ? AND room_type = ? AND date = ?",
		key.HotelID, key.RoomType, model.Day(key.Date))
	r, err := scanInventory(row)
	return r, notFound(err)
}

func (s *Store) ListInventory(ctx context.Context, f repository.InventoryFilter) ([]model.InventoryRow, error) {
	var (
		where []string
		args  []any
	)
	if f.HotelID != "" {
		where = append(where, "hotel_id = ?")
		args = append(args, f.HotelID)
	}
	if f.RoomType != "" {
		where = append(where, "room_type = ?")
		args = append(args, f.RoomType)
	}
	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, model.Day(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "date < ?")
		args = append(args, model.Day(f.To))
	}
	q := "SELECT " + inventoryColumns + " FROM room_inventory"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY hotel_id, room_type, date"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.InventoryRow, 0)
	for rows.Next() {
		r, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
