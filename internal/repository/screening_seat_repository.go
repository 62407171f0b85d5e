package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/model"
)

// ScreeningSeatRepo owns the screening_seats inventory table. Every
// transition is a conditional UPDATE that names the expected current
// status, so a row can only move AVAILABLE -> LOCKED -> SOLD (or back to
// AVAILABLE) when the database confirms the precondition still holds.
// Batch operations run inside a transaction and roll back unless every
// requested row transitioned, which gives the all-or-nothing guarantee
// without any global lock.
type ScreeningSeatRepo struct {
	db *sql.DB
}

// NewScreeningSeatRepo constructs a ScreeningSeatRepo given a DB handle.
func NewScreeningSeatRepo(db *sql.DB) *ScreeningSeatRepo { return &ScreeningSeatRepo{db: db} }

// CreateBulk inserts one AVAILABLE inventory row per seat for a freshly
// scheduled screening. Passing an empty slice has no effect.
func (r *ScreeningSeatRepo) CreateBulk(ctx context.Context, screeningID uint64, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	query := `INSERT INTO screening_seats (screening_id, seat_id, status) VALUES `
	args := make([]interface{}, 0, len(seatIDs)*3)
	for i, sid := range seatIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, screeningID, sid, model.SeatStatusAvailable)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// Lock attempts to transition every requested seat of the screening from
// AVAILABLE to LOCKED with the given deadline and lock token. The update
// is conditional on the current status, so seats grabbed by a concurrent
// batch simply do not match. When fewer rows than requested transition,
// the transaction is rolled back, no partial locks remain, and the IDs
// of the seats that were not AVAILABLE are returned so callers can name
// the conflict.
func (r *ScreeningSeatRepo) Lock(ctx context.Context, screeningID uint64, seatIDs []uint64, token string, until time.Time) ([]uint64, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	done := false
	defer func() {
		if !done {
			_ = tx.Rollback()
		}
	}()
	placeholders := make([]string, 0, len(seatIDs))
	args := []interface{}{model.SeatStatusLocked, until.UTC(), token, screeningID}
	for _, id := range seatIDs {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	args = append(args, model.SeatStatusAvailable)
	q := `UPDATE screening_seats
	      SET status = ?, lock_until = ?, lock_token = ?
	      WHERE screening_id = ? AND seat_id IN (` + strings.Join(placeholders, ",") + `) AND status = ?`
	result, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected != int64(len(seatIDs)) {
		// Roll back first, then read the conflicts on the pool. Inside
		// the transaction the batch's own uncommitted locks are visible,
		// which would name every requested seat instead of only the ones
		// another actor holds.
		if err := tx.Rollback(); err != nil {
			return nil, err
		}
		done = true
		conflicts, cErr := r.unavailableSeats(ctx, screeningID, seatIDs)
		if cErr != nil {
			return nil, cErr
		}
		return conflicts, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	done = true
	return nil, nil
}

// unavailableSeats lists the requested seats that are not currently
// AVAILABLE, including IDs with no inventory row at all.
func (r *ScreeningSeatRepo) unavailableSeats(ctx context.Context, screeningID uint64, seatIDs []uint64) ([]uint64, error) {
	placeholders := make([]string, 0, len(seatIDs))
	args := []interface{}{screeningID}
	for _, id := range seatIDs {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	args = append(args, model.SeatStatusAvailable)
	q := `SELECT seat_id FROM screening_seats
	      WHERE screening_id = ? AND seat_id IN (` + strings.Join(placeholders, ",") + `) AND status = ?`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	available := make(map[uint64]struct{}, len(seatIDs))
	for rows.Next() {
		var sid uint64
		if scanErr := rows.Scan(&sid); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		available[sid] = struct{}{}
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	conflicts := make([]uint64, 0, len(seatIDs)-len(available))
	for _, id := range seatIDs {
		if _, ok := available[id]; !ok {
			conflicts = append(conflicts, id)
		}
	}
	return conflicts, nil
}

// HeldByToken returns the LOCKED, still unbound seats of a screening
// held under the given lock token.
func (r *ScreeningSeatRepo) HeldByToken(ctx context.Context, screeningID uint64, token string) ([]model.ScreeningSeat, error) {
	const q = `SELECT id, screening_id, seat_id, status, lock_until, booking_id, lock_token, price, updated_at
	           FROM screening_seats
	           WHERE screening_id = ? AND lock_token = ? AND status = ? AND booking_id IS NULL`
	return r.querySeats(ctx, q, screeningID, token, model.SeatStatusLocked)
}

// ByBooking returns all inventory rows bound to a booking, regardless of
// status. Used at confirmation time to mint one ticket per seat.
func (r *ScreeningSeatRepo) ByBooking(ctx context.Context, bookingID uint64) ([]model.ScreeningSeat, error) {
	const q = `SELECT id, screening_id, seat_id, status, lock_until, booking_id, lock_token, price, updated_at
	           FROM screening_seats WHERE booking_id = ? ORDER BY seat_id`
	return r.querySeats(ctx, q, bookingID)
}

// ListByScreening returns the full seat map of a screening for
// availability reads. The result may lag concurrent writes; it is never
// used to gate a transition.
func (r *ScreeningSeatRepo) ListByScreening(ctx context.Context, screeningID uint64) ([]model.ScreeningSeat, error) {
	const q = `SELECT id, screening_id, seat_id, status, lock_until, booking_id, lock_token, price, updated_at
	           FROM screening_seats WHERE screening_id = ? ORDER BY seat_id`
	return r.querySeats(ctx, q, screeningID)
}

// ReleaseByToken releases the unbound LOCKED seats held under a lock
// token back to AVAILABLE. Used for explicit cancellation of a hold
// before a booking exists; the release is unconditional on the deadline.
func (r *ScreeningSeatRepo) ReleaseByToken(ctx context.Context, screeningID uint64, token string) (int64, error) {
	const q = `UPDATE screening_seats
	           SET status = ?, lock_until = NULL, lock_token = NULL
	           WHERE screening_id = ? AND lock_token = ? AND status = ? AND booking_id IS NULL`
	result, err := r.db.ExecContext(ctx, q, model.SeatStatusAvailable, screeningID, token, model.SeatStatusLocked)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ReleaseByBooking releases a booking's LOCKED seats back to AVAILABLE
// and clears the binding. SOLD seats never match the status condition,
// so a finished confirmation is not undone by a racing release.
func (r *ScreeningSeatRepo) ReleaseByBooking(ctx context.Context, bookingID uint64) (int64, error) {
	const q = `UPDATE screening_seats
	           SET status = ?, lock_until = NULL, lock_token = NULL, booking_id = NULL, price = NULL
	           WHERE booking_id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, q, model.SeatStatusAvailable, bookingID, model.SeatStatusLocked)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ReleaseExpiredOrphans releases LOCKED seats whose deadline has passed
// and that were never bound to a booking (abandoned holds). Returns the
// number of seats restored to inventory.
func (r *ScreeningSeatRepo) ReleaseExpiredOrphans(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE screening_seats
	           SET status = ?, lock_until = NULL, lock_token = NULL
	           WHERE status = ? AND booking_id IS NULL AND lock_until <= ?`
	result, err := r.db.ExecContext(ctx, q, model.SeatStatusAvailable, model.SeatStatusLocked, now.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// MarkSoldByBooking finalizes a confirmed booking's seats: LOCKED rows
// bound to the booking become SOLD and their lock bookkeeping is
// cleared. The booking binding itself is immutable from here on.
func (r *ScreeningSeatRepo) MarkSoldByBooking(ctx context.Context, bookingID uint64) (int64, error) {
	const q = `UPDATE screening_seats
	           SET status = ?, lock_until = NULL, lock_token = NULL
	           WHERE booking_id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, q, model.SeatStatusSold, bookingID, model.SeatStatusLocked)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// querySeats runs a SELECT over screening_seats and scans the rows.
func (r *ScreeningSeatRepo) querySeats(ctx context.Context, q string, args ...interface{}) ([]model.ScreeningSeat, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.ScreeningSeat
	for rows.Next() {
		var s model.ScreeningSeat
		var lockUntil sql.NullTime
		var bookingID sql.NullInt64
		var token sql.NullString
		var price sql.NullInt64
		if err := rows.Scan(&s.ID, &s.ScreeningID, &s.SeatID, &s.Status, &lockUntil, &bookingID, &token, &price, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if lockUntil.Valid {
			t := lockUntil.Time.UTC()
			s.LockUntil = &t
		}
		if bookingID.Valid {
			b := uint64(bookingID.Int64)
			s.BookingID = &b
		}
		if token.Valid {
			tok := token.String
			s.LockToken = &tok
		}
		if price.Valid {
			p := price.Int64
			s.Price = &p
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}
