// Package mysqlstore implements repository.Store on MySQL.  Ledger guards are
// expressed as UPDATE ... WHERE counter >= ? and checked through
// RowsAffected; booking sub-documents live in JSON columns.
package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ repository.Store = (*Store)(nil)

// New wraps an open connection pool.  The DSN must use parseTime=true and
// clientFoundRows=true so RowsAffected counts matched rows.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// DB exposes the pool so callers can run administrative queries.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close(context.Context) error { return s.db.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS room_inventory (
		hotel_id        VARCHAR(64) NOT NULL,
		room_type       VARCHAR(32) NOT NULL,
		date            DATE        NOT NULL,
		total_rooms     INT         NOT NULL DEFAULT 0,
		available_rooms INT         NOT NULL DEFAULT 0,
		locked_rooms    INT         NOT NULL DEFAULT 0,
		booked_rooms    INT         NOT NULL DEFAULT 0,
		updated_at      DATETIME(3) NOT NULL,
		PRIMARY KEY (hotel_id, room_type, date)
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id                 CHAR(36)      NOT NULL PRIMARY KEY,
		booking_number     VARCHAR(40)   NOT NULL,
		hotel_id           VARCHAR(64)   NOT NULL,
		guest              JSON          NOT NULL,
		guest_email        VARCHAR(255)  NOT NULL,
		room_type_bookings JSON          NOT NULL,
		room_ids           JSON          NOT NULL,
		booking_source     VARCHAR(16)   NOT NULL,
		booking_status     VARCHAR(16)   NOT NULL,
		payment_status     VARCHAR(16)   NOT NULL,
		check_in_date      DATE          NOT NULL,
		check_out_date     DATE          NOT NULL,
		check_in_time      DATETIME(3)   NULL,
		check_out_time     DATETIME(3)   NULL,
		number_of_guests   INT           NOT NULL DEFAULT 1,
		rate_plan          VARCHAR(64)   NOT NULL DEFAULT '',
		special_requests   TEXT          NOT NULL,
		base_amount        DECIMAL(12,2) NOT NULL,
		tax_amount         DECIMAL(12,2) NOT NULL,
		total_amount       DECIMAL(12,2) NOT NULL,
		payments           JSON          NOT NULL,
		room_charges       JSON          NOT NULL,
		created_by         VARCHAR(64)   NOT NULL DEFAULT '',
		updated_by         VARCHAR(64)   NOT NULL DEFAULT '',
		created_at         DATETIME(3)   NOT NULL,
		updated_at         DATETIME(3)   NOT NULL,
		assign_token       VARCHAR(36)   NOT NULL DEFAULT '',
		assign_until       DATETIME(3)   NULL,
		UNIQUE KEY uq_booking_number (booking_number),
		KEY idx_booking_hotel_checkin (hotel_id, check_in_date),
		KEY idx_booking_guest_email (guest_email)
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id                CHAR(36)    NOT NULL PRIMARY KEY,
		hotel_id          VARCHAR(64) NOT NULL,
		room_number       VARCHAR(16) NOT NULL,
		floor             INT         NOT NULL,
		room_type         VARCHAR(32) NOT NULL,
		status            VARCHAR(16) NOT NULL,
		is_active         BOOLEAN     NOT NULL DEFAULT TRUE,
		images            JSON        NOT NULL,
		maintenance_notes TEXT        NOT NULL,
		attributes        JSON        NOT NULL,
		created_at        DATETIME(3) NOT NULL,
		updated_at        DATETIME(3) NOT NULL,
		UNIQUE KEY uq_room_number (hotel_id, room_number)
	)`,
	`CREATE TABLE IF NOT EXISTS room_types (
		id         CHAR(36)    NOT NULL PRIMARY KEY,
		hotel_id   VARCHAR(64) NOT NULL,
		room_type  VARCHAR(32) NOT NULL,
		attributes JSON        NOT NULL,
		created_at DATETIME(3) NOT NULL,
		updated_at DATETIME(3) NOT NULL,
		UNIQUE KEY uq_room_type (hotel_id, room_type)
	)`,
	`CREATE TABLE IF NOT EXISTS hotels (
		id          CHAR(36)     NOT NULL PRIMARY KEY,
		name        VARCHAR(255) NOT NULL,
		floor_count INT          NOT NULL,
		room_count  INT          NOT NULL DEFAULT 0,
		created_at  DATETIME(3)  NOT NULL,
		updated_at  DATETIME(3)  NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16)  NOT NULL,
		is_active     BOOLEAN      NOT NULL DEFAULT TRUE,
		created_at    DATETIME(3)  NOT NULL,
		updated_at    DATETIME(3)  NOT NULL,
		UNIQUE KEY uq_user_email (email)
	)`,
}

// Migrate creates every table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// isDuplicate reports a unique key violation (MySQL error 1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return err != nil && strings.Contains(err.Error(), "1062")
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

// exists tells a missing row apart from a guard that did not match.
func (s *Store) exists(ctx context.Context, table, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
