package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/model"
)

// ErrTicketNotFound indicates that a ticket was not located in the DB.
var ErrTicketNotFound = errors.New("ticket not found")

// mysqlDuplicateEntry is the server error number for unique index
// violations, used to translate code collisions into a sentinel.
const mysqlDuplicateEntry = 1062

// TicketRepo provides data access to the tickets table. Ticket codes
// carry a unique index; the index is the final arbiter of uniqueness
// even when two issuers generate the same code concurrently.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// CodeExists reports whether a ticket code is already taken. The issuer
// uses this as a cheap pre-check before inserting; the unique index
// still backs it up under races.
func (r *TicketRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	const q = `SELECT 1 FROM tickets WHERE code = ?`
	var one int
	err := r.db.QueryRowContext(ctx, q, code).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateBatch inserts all tickets of one booking in a single
// transaction. The booking must not have tickets yet; ErrTicketsExist
// guards against a second issuance racing the first. A unique index
// collision on any code rolls the whole batch back and returns
// ErrDuplicateTicketCode so the issuer can regenerate and retry.
// Generated IDs are populated on the slice.
func (r *TicketRepo) CreateBatch(ctx context.Context, tickets []model.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
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
	const guard = `SELECT COUNT(*) FROM tickets WHERE booking_id = ? FOR UPDATE`
	var existing int
	if err := tx.QueryRowContext(ctx, guard, tickets[0].BookingID).Scan(&existing); err != nil {
		return err
	}
	if existing > 0 {
		return ErrTicketsExist
	}
	const q = `INSERT INTO tickets (code, booking_id, screening_seat_id, seat_id, price, qr_payload, status, issued_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	for i := range tickets {
		t := &tickets[i]
		result, err := tx.ExecContext(ctx, q,
			t.Code, t.BookingID, t.ScreeningSeatID, t.SeatID, t.Price, t.QRPayload, t.Status, t.IssuedAt.UTC(),
		)
		if err != nil {
			var mysqlErr *mysql.MySQLError
			if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
				return ErrDuplicateTicketCode
			}
			return err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		t.ID = uint64(id)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ByBooking returns all tickets issued for a booking ordered by seat.
func (r *TicketRepo) ByBooking(ctx context.Context, bookingID uint64) ([]model.Ticket, error) {
	const q = `SELECT id, code, booking_id, screening_seat_id, seat_id, price, qr_payload, status, used_at, issued_at
	           FROM tickets WHERE booking_id = ? ORDER BY seat_id`
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tickets []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

// GetByCode retrieves a ticket by its unique code. It returns
// ErrTicketNotFound when no row exists.
func (r *TicketRepo) GetByCode(ctx context.Context, code string) (*model.Ticket, error) {
	const q = `SELECT id, code, booking_id, screening_seat_id, seat_id, price, qr_payload, status, used_at, issued_at
	           FROM tickets WHERE code = ?`
	row := r.db.QueryRowContext(ctx, q, code)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

// MarkUsed performs the ACTIVE -> USED compare-and-swap for check-in and
// stamps used_at. It reports whether this call performed the transition;
// false with nil error means the ticket was not ACTIVE.
func (r *TicketRepo) MarkUsed(ctx context.Context, code string, now time.Time) (bool, error) {
	const q = `UPDATE tickets SET status = ?, used_at = ? WHERE code = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, q, model.TicketStatusUsed, now.UTC(), code, model.TicketStatusActive)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// scanner covers both *sql.Row and *sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTicket(s scanner) (*model.Ticket, error) {
	var t model.Ticket
	var usedAt sql.NullTime
	if err := s.Scan(&t.ID, &t.Code, &t.BookingID, &t.ScreeningSeatID, &t.SeatID, &t.Price, &t.QRPayload, &t.Status, &usedAt, &t.IssuedAt); err != nil {
		return nil, err
	}
	if usedAt.Valid {
		u := usedAt.Time.UTC()
		t.UsedAt = &u
	}
	return &t, nil
}
