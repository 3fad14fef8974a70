package mysqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

const bookingColumns = `id, booking_number, hotel_id, guest, room_type_bookings, room_ids, booking_source,
	booking_status, payment_status, check_in_date, check_out_date, check_in_time, check_out_time,
	number_of_guests, rate_plan, special_requests, base_amount, tax_amount, total_amount, payments,
	room_charges, created_by, updated_by, created_at, updated_at`

func scanBooking(sc rowScanner) (model.Booking, error) {
	var (
		b                                  model.Booking
		guest, groups, roomIDs, pays, chgs []byte
		checkInTime, checkOutTime          sql.NullTime
	)
	err := sc.Scan(&b.ID, &b.BookingNumber, &b.HotelID, &guest, &groups, &roomIDs, &b.BookingSource,
		&b.BookingStatus, &b.PaymentStatus, &b.CheckInDate, &b.CheckOutDate, &checkInTime, &checkOutTime,
		&b.NumberOfGuests, &b.RatePlan, &b.SpecialRequests, &b.BaseAmount, &b.TaxAmount, &b.TotalAmount,
		&pays, &chgs, &b.CreatedBy, &b.UpdatedBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	for _, part := range []struct {
		raw []byte
		dst any
	}{{guest, &b.Guest}, {groups, &b.RoomTypeBookings}, {roomIDs, &b.RoomIDs}, {pays, &b.Payments}, {chgs, &b.RoomCharges}} {
		if err := json.Unmarshal(part.raw, part.dst); err != nil {
			return model.Booking{}, err
		}
	}
	if checkInTime.Valid {
		t := checkInTime.Time
		b.CheckInTime = &t
	}
	if checkOutTime.Valid {
		t := checkOutTime.Time
		b.CheckOutTime = &t
	}
	b.CheckInDate = model.Day(b.CheckInDate)
	b.CheckOutDate = model.Day(b.CheckOutDate)
	if b.RoomIDs == nil {
		b.RoomIDs = []string{}
	}
	if b.Payments == nil {
		b.Payments = []model.Payment{}
	}
	if b.RoomCharges == nil {
		b.RoomCharges = []model.RoomCharge{}
	}
	return b, nil
}

func mustJSON(v any) []byte {
	bs, err := json.Marshal(v)
	if err != nil {
		// only model types reach here and they always marshal
		panic(err)
	}
	return bs
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}

func (s *Store) InsertBooking(ctx context.Context, b *model.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO bookings (`+bookingColumns+`, guest_email)
		VALUES (`+placeholders(26)+`)`,
		b.ID, b.BookingNumber, b.HotelID, mustJSON(b.Guest), mustJSON(b.RoomTypeBookings), mustJSON(b.RoomIDs),
		b.BookingSource, b.BookingStatus, b.PaymentStatus, b.CheckInDate, b.CheckOutDate,
		nullTime(b.CheckInTime), nullTime(b.CheckOutTime), b.NumberOfGuests, b.RatePlan, b.SpecialRequests,
		b.BaseAmount, b.TaxAmount, b.TotalAmount, mustJSON(b.Payments), mustJSON(b.RoomCharges),
		b.CreatedBy, b.UpdatedBy, b.CreatedAt, b.UpdatedAt, strings.ToLower(b.Guest.Email))
	if isDuplicate(err) {
		return repository.ErrDuplicate
	}
	return err
}

func (s *Store) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	b, err := scanBooking(s.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id))
	return b, notFound(err)
}

func (s *Store) GetBookingByNumber(ctx context.Context, number string) (model.Booking, error) {
	b, err := scanBooking(s.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE booking_number = ?", number))
	return b, notFound(err)
}

func (s *Store) FindBookings(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	if f.HotelID != "" {
		where = append(where, "hotel_id = ?")
		args = append(args, f.HotelID)
	}
	if f.RoomID != "" {
		where = append(where, "JSON_CONTAINS(room_ids, JSON_QUOTE(?))")
		args = append(args, f.RoomID)
	}
	if f.RoomType != "" {
		where = append(where, "JSON_SEARCH(room_type_bookings, 'one', ?, NULL, '$[*].room_type') IS NOT NULL")
		args = append(args, f.RoomType)
	}
	if f.GuestEmail != "" {
		where = append(where, "guest_email = ?")
		args = append(args, strings.ToLower(f.GuestEmail))
	}
	if len(f.Statuses) > 0 {
		where = append(where, "booking_status IN ("+placeholders(len(f.Statuses))+")")
		for _, st := range f.Statuses {
			args = append(args, st)
		}
	}
	if f.PaymentStatus != "" {
		where = append(where, "payment_status = ?")
		args = append(args, f.PaymentStatus)
	}
	if !f.CheckInFrom.IsZero() {
		where = append(where, "check_in_date >= ?")
		args = append(args, f.CheckInFrom)
	}
	if !f.CheckInTo.IsZero() {
		where = append(where, "check_in_date < ?")
		args = append(args, f.CheckInTo)
	}
	q := "SELECT " + bookingColumns + " FROM bookings"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY check_in_date, created_at"
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// leaseFreeClause matches rows without an assignment lease live at ?.
const leaseFreeClause = "(assign_until IS NULL OR assign_until <= ?)"

// transitionQuery builds the conditional UPDATE for t.  The row must still
// be in status from and satisfy the lease condition of t.
func transitionQuery(id string, from model.BookingStatus, t model.BookingTransition) (string, []any) {
	sets := []string{"booking_status = ?", "updated_at = ?", "assign_token = ''", "assign_until = NULL"}
	args := []any{t.To, t.At}
	if t.RoomTypeBookings != nil {
		sets = append(sets, "room_type_bookings = ?")
		args = append(args, mustJSON(t.RoomTypeBookings))
	}
	if t.RoomIDs != nil {
		sets = append(sets, "room_ids = ?")
		args = append(args, mustJSON(t.RoomIDs))
	}
	if t.CheckInTime != nil {
		sets = append(sets, "check_in_time = ?")
		args = append(args, *t.CheckInTime)
	}
	if t.CheckOutTime != nil {
		sets = append(sets, "check_out_time = ?")
		args = append(args, *t.CheckOutTime)
	}
	if t.UpdatedBy != "" {
		sets = append(sets, "updated_by = ?")
		args = append(args, t.UpdatedBy)
	}
	where := "id = ? AND booking_status = ?"
	args = append(args, id, from)
	if t.LeaseToken != "" {
		where += " AND assign_token = ?"
		args = append(args, t.LeaseToken)
	} else {
		where += " AND " + leaseFreeClause
		args = append(args, t.At)
	}
	return "UPDATE bookings SET " + strings.Join(sets, ", ") + " WHERE " + where, args
}

// TransitionBooking runs transitionQuery.  Zero affected rows is
// disambiguated with an existence check.
func (s *Store) TransitionBooking(ctx context.Context, id string, from model.BookingStatus, t model.BookingTransition) (model.Booking, error) {
	q, args := transitionQuery(id, from, t)
	if err := s.execGuarded(ctx, id, q, args...); err != nil {
		return model.Booking{}, err
	}
	return s.GetBooking(ctx, id)
}

const claimQuery = `UPDATE bookings SET assign_token = ?, assign_until = ?
	WHERE id = ? AND booking_status = ? AND ` + leaseFreeClause

func (s *Store) ClaimAssignment(ctx context.Context, id string, lease model.AssignmentLease, now time.Time) error {
	return s.execGuarded(ctx, id, claimQuery, lease.Token, lease.Until, id, model.BookingConfirmed, now)
}

func (s *Store) ClearAssignment(ctx context.Context, id, token string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE bookings SET assign_token = '', assign_until = NULL WHERE id = ? AND assign_token = ?", id, token)
	return err
}

// execGuarded runs a conditional UPDATE on booking id and maps zero matched
// rows to ErrNotFound or ErrStaleState.
func (s *Store) execGuarded(ctx context.Context, id, q string, args ...any) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	ok, err := s.exists(ctx, "bookings", id)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrNotFound
	}
	return repository.ErrStaleState
}

// mutateLocked loads the booking row FOR UPDATE, lets fn change it and
// writes payments, charges, totals and payment status back in the same
// transaction.
func (s *Store) mutateLocked(ctx context.Context, id string, fn func(*model.Booking) error) (model.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Booking{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := scanBooking(tx.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = ? FOR UPDATE", id))
	if err != nil {
		return model.Booking{}, notFound(err)
	}
	if err := fn(&b); err != nil {
		return model.Booking{}, err
	}
	b.TotalAmount = model.RoundMoney(b.TotalAmount)
	b.PaymentStatus = model.PaymentStatusFor(b.PaidAmount(), b.TotalAmount)
	b.UpdatedAt = s.now()
	_, err = tx.ExecContext(ctx, `UPDATE bookings
		SET payments = ?, room_charges = ?, total_amount = ?, payment_status = ?, updated_by = ?, updated_at = ?
		WHERE id = ?`,
		mustJSON(b.Payments), mustJSON(b.RoomCharges), b.TotalAmount, b.PaymentStatus, b.UpdatedBy, b.UpdatedAt, id)
	if err != nil {
		return model.Booking{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Booking{}, err
	}
	committed = true
	return b, nil
}

func (s *Store) AppendPayment(ctx context.Context, id string, p model.Payment, by string) (model.Booking, error) {
	return s.mutateLocked(ctx, id, func(b *model.Booking) error {
		b.Payments = append(b.Payments, p)
		b.UpdatedBy = by
		return nil
	})
}

func (s *Store) AppendCharge(ctx context.Context, id string, c model.RoomCharge, required model.BookingStatus, by string) (model.Booking, error) {
	return s.mutateLocked(ctx, id, func(b *model.Booking) error {
		if b.BookingStatus != required {
			return repository.ErrStaleState
		}
		b.RoomCharges = append(b.RoomCharges, c)
		b.TotalAmount += c.Amount
		b.UpdatedBy = by
		return nil
	})
}
