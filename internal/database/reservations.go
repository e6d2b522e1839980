package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mattn/go-sqlite3"

	"tablebook/internal/models"
	"tablebook/internal/timewindow"
)

const reservationColumns = `id, table_number, customer_name, customer_email, customer_phone,
	reservation_date, reservation_time, number_of_guests, status, special_requests,
	created_at, updated_at`

// CreateReservation inserts r. An active reservation holding the same table, date and
// time yields models.ErrDuplicateSlot.
func (db *DB) CreateReservation(ctx context.Context, r *models.Reservation) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TableNumber, r.CustomerName, r.CustomerEmail, r.CustomerPhone,
		timewindow.FormatDate(r.ReservationDate), r.ReservationTime, r.NumberOfGuests,
		string(r.Status), nullString(r.SpecialRequests), r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("insert reservation", err)
	}
	return nil
}

// GetReservation returns the reservation with id or models.ErrNotFound.
func (db *DB) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := db.scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

// SaveReservation overwrites every mutable column of r.
func (db *DB) SaveReservation(ctx context.Context, r *models.Reservation) error {
	res, err := db.ExecContext(ctx, `
		UPDATE reservations SET
			table_number = ?, customer_name = ?, customer_email = ?, customer_phone = ?,
			reservation_date = ?, reservation_time = ?, number_of_guests = ?, status = ?,
			special_requests = ?, updated_at = ?
		WHERE id = ?`,
		r.TableNumber, r.CustomerName, r.CustomerEmail, r.CustomerPhone,
		timewindow.FormatDate(r.ReservationDate), r.ReservationTime, r.NumberOfGuests,
		string(r.Status), nullString(r.SpecialRequests), r.UpdatedAt, r.ID,
	)
	if err != nil {
		return mapWriteError("update reservation", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListReservations returns every reservation ordered by date and time.
func (db *DB) ListReservations(ctx context.Context) ([]models.Reservation, error) {
	return db.queryReservations(ctx, `SELECT `+reservationColumns+` FROM reservations ORDER BY reservation_date ASC`)
}

// ListReservationsByDate returns reservations on the calendar day of date.
func (db *DB) ListReservationsByDate(ctx context.Context, date time.Time) ([]models.Reservation, error) {
	return db.queryReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE reservation_date = ? ORDER BY reservation_date ASC`,
		timewindow.FormatDate(date),
	)
}

// ListActiveForTableOnDay returns pending and confirmed reservations of a table on day.
func (db *DB) ListActiveForTableOnDay(ctx context.Context, tableNumber int, day time.Time) ([]models.Reservation, error) {
	return db.queryReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		WHERE table_number = ? AND reservation_date = ? AND status IN (?, ?)`,
		tableNumber, timewindow.FormatDate(day),
		string(models.StatusPending), string(models.StatusConfirmed),
	)
}

// DeleteAllReservations removes every reservation and returns how many were deleted.
func (db *DB) DeleteAllReservations(ctx context.Context) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM reservations`)
	if err != nil {
		return 0, fmt.Errorf("delete reservations: %w", err)
	}
	return res.RowsAffected()
}

func (db *DB) queryReservations(ctx context.Context, query string, args ...any) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	result := make([]models.Reservation, 0)
	for rows.Next() {
		r, err := db.scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		result = append(result, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartsAt().Before(result[j].StartsAt())
	})
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (db *DB) scanReservation(s scanner) (*models.Reservation, error) {
	var (
		r        models.Reservation
		date     string
		status   string
		requests sql.NullString
	)
	err := s.Scan(
		&r.ID, &r.TableNumber, &r.CustomerName, &r.CustomerEmail, &r.CustomerPhone,
		&date, &r.ReservationTime, &r.NumberOfGuests, &status, &requests,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.ReservationDate, err = timewindow.ParseDate(date, db.loc)
	if err != nil {
		return nil, fmt.Errorf("reservation %s: %w", r.ID, err)
	}
	r.Status = models.ReservationStatus(status)
	if requests.Valid {
		r.SpecialRequests = requests.String
	}
	return &r, nil
}

func mapWriteError(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return models.ErrDuplicateSlot
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
