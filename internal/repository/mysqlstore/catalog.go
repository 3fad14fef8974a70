package mysqlstore

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

// ----- rooms -----

const roomColumns = "id, hotel_id, room_number, floor, room_type, status, is_active, images, maintenance_notes, attributes, created_at, updated_at"

func scanRoom(sc rowScanner) (model.Room, error) {
	var (
		r             model.Room
		images, attrs []byte
	)
	if err := sc.Scan(&r.ID, &r.HotelID, &r.RoomNumber, &r.Floor, &r.RoomType, &r.Status, &r.IsActive,
		&images, &r.MaintenanceNotes, &attrs, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return model.Room{}, err
	}
	if err := json.Unmarshal(images, &r.Images); err != nil {
		return model.Room{}, err
	}
	if err := json.Unmarshal(attrs, &r.RoomAttributes); err != nil {
		return model.Room{}, err
	}
	return r, nil
}

func (s *Store) InsertRoom(ctx context.Context, r *model.Room) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	images := r.Images
	if images == nil {
		images = []string{}
	}
	_, err := s.db.ExecContext(ctx, "INSERT INTO rooms ("+roomColumns+") VALUES ("+placeholders(12)+")",
		r.ID, r.HotelID, r.RoomNumber, r.Floor, r.RoomType, r.Status, r.IsActive,
		mustJSON(images), r.MaintenanceNotes, mustJSON(r.RoomAttributes), r.CreatedAt, r.UpdatedAt)
	if isDuplicate(err) {
		return repository.ErrDuplicate
	}
	return err
}

func (s *Store) GetRoom(ctx context.Context, id string) (model.Room, error) {
	r, err := scanRoom(s.db.QueryRowContext(ctx, "SELECT "+roomColumns+" FROM rooms WHERE id = ?", id))
	return r, notFound(err)
}

func (s *Store) FindRooms(ctx context.Context, f repository.RoomFilter) ([]model.Room, error) {
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
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if len(f.IDs) > 0 {
		where = append(where, "id IN ("+placeholders(len(f.IDs))+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	if f.ActiveOnly {
		where = append(where, "is_active = TRUE")
	}
	q := "SELECT " + roomColumns + " FROM rooms"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY room_number"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Room, 0)
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// roomStatusQuery moves one room to status to, guarded on from unless it
// is empty.
func roomStatusQuery(id string, from, to model.RoomStatus, at time.Time) (string, []any) {
	q := "UPDATE rooms SET status = ?, updated_at = ? WHERE id = ?"
	args := []any{to, at, id}
	if from != "" {
		q += " AND status = ?"
		args = append(args, from)
	}
	return q, args
}

func (s *Store) SetRoomStatus(ctx context.Context, id string, from, to model.RoomStatus) (bool, error) {
	q, args := roomStatusQuery(id, from, to, s.now())
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *Store) DeactivateRoom(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE rooms SET is_active = FALSE, status = ?, updated_at = ? WHERE id = ? AND is_active = TRUE",
		model.RoomOutOfOrder, s.now(), id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 1 {
		return true, nil
	}
	ok, err := s.exists(ctx, "rooms", id)
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
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO hotels (id, name, floor_count, room_count, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		h.ID, h.Name, h.FloorCount, h.RoomCount, h.CreatedAt, h.UpdatedAt)
	if isDuplicate(err) {
		return repository.ErrDuplicate
	}
	return err
}

func (s *Store) GetHotel(ctx context.Context, id string) (model.Hotel, error) {
	var h model.Hotel
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, floor_count, room_count, created_at, updated_at FROM hotels WHERE id = ?", id).
		Scan(&h.ID, &h.Name, &h.FloorCount, &h.RoomCount, &h.CreatedAt, &h.UpdatedAt)
	return h, notFound(err)
}

func (s *Store) AdjustRoomCount(ctx context.Context, hotelID string, delta int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE hotels SET room_count = room_count + ?, updated_at = ? WHERE id = ?", delta, s.now(), hotelID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) UpsertRoomType(ctx context.Context, rt *model.RoomType) error {
	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO room_types (id, hotel_id, room_type, attributes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE attributes = VALUES(attributes), updated_at = VALUES(updated_at)`,
		rt.ID, rt.HotelID, rt.RoomType, mustJSON(rt.RoomAttributes), rt.CreatedAt, rt.UpdatedAt)
	if err != nil {
		return err
	}
	stored, err := s.GetRoomType(ctx, rt.HotelID, rt.RoomType)
	if err != nil {
		return err
	}
	rt.ID, rt.CreatedAt = stored.ID, stored.CreatedAt
	return nil
}

func scanRoomType(sc rowScanner) (model.RoomType, error) {
	var (
		rt    model.RoomType
		attrs []byte
	)
	if err := sc.Scan(&rt.ID, &rt.HotelID, &rt.RoomType, &attrs, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
		return model.RoomType{}, err
	}
	if err := json.Unmarshal(attrs, &rt.RoomAttributes); err != nil {
		return model.RoomType{}, err
	}
	return rt, nil
}

func (s *Store) GetRoomType(ctx context.Context, hotelID, roomType string) (model.RoomType, error) {
	rt, err := scanRoomType(s.db.QueryRowContext(ctx,
		"SELECT id, hotel_id, room_type, attributes, created_at, updated_at FROM room_types WHERE hotel_id = ? AND room_type = ?",
		hotelID, roomType))
	return rt, notFound(err)
}

func (s *Store) ListRoomTypes(ctx context.Context, hotelID string) ([]model.RoomType, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, hotel_id, room_type, attributes, created_at, updated_at FROM room_types WHERE hotel_id = ? ORDER BY room_type",
		hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.RoomType, 0)
	for rows.Next() {
		rt, err := scanRoomType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// ----- users -----

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, role, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		u.ID, u.Email, u.PasswordHash, u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if isDuplicate(err) {
		return repository.ErrDuplicate
	}
	return err
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, role, is_active, created_at, updated_at FROM users WHERE "+where+" LIMIT 1", arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, notFound(err)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.getUser(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) GetUserByID(ctx context.Context, id string) (model.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}
