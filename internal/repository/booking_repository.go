package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/model"
)

// ErrBookingNotFound indicates that a booking was not located in the DB.
var ErrBookingNotFound = errors.New("booking not found")

// BookingRepo provides data access to the bookings and booking_combos
// tables. The PENDING -> terminal transition is always a conditional
// UPDATE on the status column; multi-table steps (binding seats, the
// loyalty decrement at confirmation) share a transaction with that
// update so the whole step either lands or leaves no trace.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateWithSeats inserts a PENDING booking together with its combo line
// items and binds the customer's locked seats to it, capturing the
// per-seat price onto each inventory row. The bind is conditional on
// the seats still being LOCKED under the caller's lock token and not
// bound elsewhere; if any seat fails that condition the transaction is
// rolled back and ErrSeatsNotHeld is returned. On success the generated
// booking ID and timestamps are populated on the provided struct.
func (r *BookingRepo) CreateWithSeats(ctx context.Context, b *model.Booking, combos []model.BookingCombo, seatPrices map[uint64]int64, lockToken string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const ins = `INSERT INTO bookings
	             (customer_id, screening_id, status, seat_subtotal, combo_subtotal, discount, total, points_used, expires_at)
	             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, ins,
		b.CustomerID, b.ScreeningID, model.BookingStatusPending,
		b.SeatSubtotal, b.ComboSubtotal, b.Discount, b.Total, b.PointsUsed,
		b.ExpiresAt.UTC(),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Status = model.BookingStatusPending
	// Bind each locked seat to the booking, one conditional update per
	// seat so the captured price can differ per seat type.
	const bind = `UPDATE screening_seats
	              SET booking_id = ?, price = ?
	              WHERE screening_id = ? AND seat_id = ? AND status = ? AND lock_token = ? AND booking_id IS NULL`
	for seatID, price := range seatPrices {
		res, err := tx.ExecContext(ctx, bind, b.ID, price, b.ScreeningID, seatID, model.SeatStatusLocked, lockToken)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected != 1 {
			return ErrSeatsNotHeld
		}
	}
	if err := insertCombosTx(ctx, tx, b.ID, combos); err != nil {
		return err
	}
	const sel = `SELECT created_at, updated_at FROM bookings WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// insertCombosTx bulk-inserts combo line items for a booking within the
// provided transaction. Passing an empty slice has no effect.
func insertCombosTx(ctx context.Context, tx *sql.Tx, bookingID uint64, combos []model.BookingCombo) error {
	if len(combos) == 0 {
		return nil
	}
	query := `INSERT INTO booking_combos (booking_id, combo_id, quantity, unit_price, subtotal) VALUES `
	args := make([]interface{}, 0, len(combos)*5)
	for i, c := range combos {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, bookingID, c.ComboID, c.Quantity, c.UnitPrice, c.Subtotal)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetByID retrieves a booking by its ID. It returns ErrBookingNotFound
// when no row exists.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT id, customer_id, screening_id, status, seat_subtotal, combo_subtotal, discount, total,
	                  points_used, payment_ref, expires_at, created_at, updated_at
	           FROM bookings WHERE id = ?`
	var b model.Booking
	var payRef sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.CustomerID, &b.ScreeningID, &b.Status, &b.SeatSubtotal, &b.ComboSubtotal, &b.Discount, &b.Total,
		&b.PointsUsed, &payRef, &b.ExpiresAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if payRef.Valid {
		ref := payRef.String
		b.PaymentRef = &ref
	}
	return &b, nil
}

// Confirm performs the PENDING -> CONFIRMED compare-and-swap and, in the
// same transaction, redeems the booking's loyalty points via a
// conditional decrement. It returns (false, nil) when the booking was
// not PENDING, which callers resolve by re-reading the terminal state.
// ErrInsufficientPoints is returned, with the booking left PENDING, when
// the customer's balance no longer covers points_used.
func (r *BookingRepo) Confirm(ctx context.Context, id uint64, paymentRef string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const cas = `UPDATE bookings SET status = ?, payment_ref = ? WHERE id = ? AND status = ?`
	result, err := tx.ExecContext(ctx, cas, model.BookingStatusConfirmed, paymentRef, id, model.BookingStatusPending)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}
	var customerID uint64
	var points int64
	const sel = `SELECT customer_id, points_used FROM bookings WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, id).Scan(&customerID, &points); err != nil {
		return false, err
	}
	if points > 0 {
		const redeem = `UPDATE customers SET loyalty_points = loyalty_points - ? WHERE id = ? AND loyalty_points >= ?`
		res, err := tx.ExecContext(ctx, redeem, points, customerID, points)
		if err != nil {
			return false, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, err
		}
		if n == 0 {
			return false, ErrInsufficientPoints
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return true, nil
}

// TransitionStatus performs a compare-and-swap on the booking status.
// It reports whether this caller won the transition; a false result with
// nil error means another caller moved the booking first.
func (r *BookingRepo) TransitionStatus(ctx context.Context, id uint64, from, to string) (bool, error) {
	const q = `UPDATE bookings SET status = ? WHERE id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, q, to, id, from)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// ReplaceCombos swaps a PENDING booking's combo line items and updates
// the derived monetary columns in one transaction. The bookings update
// is conditional on status = PENDING; when the booking has already
// reached a terminal state no rows match and (false, nil) is returned.
func (r *BookingRepo) ReplaceCombos(ctx context.Context, bookingID uint64, combos []model.BookingCombo, comboSubtotal, discount, total int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const upd = `UPDATE bookings SET combo_subtotal = ?, discount = ?, total = ? WHERE id = ? AND status = ?`
	result, err := tx.ExecContext(ctx, upd, comboSubtotal, discount, total, bookingID, model.BookingStatusPending)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM booking_combos WHERE booking_id = ?`, bookingID); err != nil {
		return false, err
	}
	if err := insertCombosTx(ctx, tx, bookingID, combos); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return true, nil
}

// CombosByBooking returns the combo line items of a booking ordered by ID.
func (r *BookingRepo) CombosByBooking(ctx context.Context, bookingID uint64) ([]model.BookingCombo, error) {
	const q = `SELECT id, booking_id, combo_id, quantity, unit_price, subtotal
	           FROM booking_combos WHERE booking_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var combos []model.BookingCombo
	for rows.Next() {
		var c model.BookingCombo
		if err := rows.Scan(&c.ID, &c.BookingID, &c.ComboID, &c.Quantity, &c.UnitPrice, &c.Subtotal); err != nil {
			return nil, err
		}
		combos = append(combos, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return combos, nil
}

// ListExpiredPending returns the IDs of PENDING bookings whose hold
// deadline has passed, oldest first, capped at limit. The reconciler
// resolves each one through the status compare-and-swap afterwards, so
// stale entries in this list are harmless.
func (r *BookingRepo) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
	const q = `SELECT id FROM bookings WHERE status = ? AND expires_at <= ? ORDER BY expires_at ASC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, model.BookingStatusPending, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListByCustomer returns all bookings of a customer, newest first.
func (r *BookingRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Booking, error) {
	const q = `SELECT id, customer_id, screening_id, status, seat_subtotal, combo_subtotal, discount, total,
	                  points_used, payment_ref, expires_at, created_at, updated_at
	           FROM bookings WHERE customer_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookings := make([]model.Booking, 0)
	for rows.Next() {
		var b model.Booking
		var payRef sql.NullString
		if err := rows.Scan(
			&b.ID, &b.CustomerID, &b.ScreeningID, &b.Status, &b.SeatSubtotal, &b.ComboSubtotal, &b.Discount, &b.Total,
			&b.PointsUsed, &payRef, &b.ExpiresAt, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if payRef.Valid {
			ref := payRef.String
			b.PaymentRef = &ref
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

// SeatIDsByBookings returns the bound seat IDs per booking for a set of
// bookings in a single query, used when assembling list responses.
func (r *BookingRepo) SeatIDsByBookings(ctx context.Context, bookingIDs []uint64) (map[uint64][]uint64, error) {
	result := make(map[uint64][]uint64, len(bookingIDs))
	if len(bookingIDs) == 0 {
		return result, nil
	}
	placeholders := make([]string, 0, len(bookingIDs))
	args := make([]interface{}, 0, len(bookingIDs))
	for _, id := range bookingIDs {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	q := `SELECT booking_id, seat_id FROM screening_seats
	      WHERE booking_id IN (` + strings.Join(placeholders, ",") + `) ORDER BY booking_id, seat_id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var bid, sid uint64
		if err := rows.Scan(&bid, &sid); err != nil {
			return nil, err
		}
		result[bid] = append(result[bid], sid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
