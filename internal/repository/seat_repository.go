package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/model"
)

// ErrSeatNotFound indicates that a requested seat does not exist.
var ErrSeatNotFound = errors.New("seat not found")

// SeatRepo provides read access to the seats table. The engine never
// mutates seats; it only resolves seat types for pricing and enumerates
// active seats when seeding screening inventory.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a new SeatRepo bound to the provided database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// ActiveByAuditorium returns all active seats in an auditorium ordered by
// row label and seat number. Used to seed one screening_seat row per seat
// when a screening is scheduled.
func (r *SeatRepo) ActiveByAuditorium(ctx context.Context, auditoriumID uint64) ([]model.Seat, error) {
	const q = `SELECT id, auditorium_id, row_label, seat_number, seat_type, is_active, created_at
	           FROM seats
	           WHERE auditorium_id = ? AND is_active = 1
	           ORDER BY row_label, seat_number`
	rows, err := r.db.QueryContext(ctx, q, auditoriumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.AuditoriumID, &s.RowLabel, &s.SeatNumber, &s.SeatType, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// TypesByIDs resolves the seat type for each of the given seat IDs.
// The returned map contains an entry per existing seat; callers detect
// unknown IDs by comparing sizes.
func (r *SeatRepo) TypesByIDs(ctx context.Context, seatIDs []uint64) (map[uint64]string, error) {
	if len(seatIDs) == 0 {
		return map[uint64]string{}, nil
	}
	placeholders := make([]string, 0, len(seatIDs))
	args := make([]interface{}, 0, len(seatIDs))
	for _, id := range seatIDs {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	q := `SELECT id, seat_type FROM seats WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	types := make(map[uint64]string, len(seatIDs))
	for rows.Next() {
		var id uint64
		var seatType string
		if err := rows.Scan(&id, &seatType); err != nil {
			return nil, err
		}
		types[id] = seatType
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return types, nil
}

// LabelsByIDs returns a display label ("A7") per seat ID, used when
// assembling notification events and booking detail responses.
func (r *SeatRepo) LabelsByIDs(ctx context.Context, seatIDs []uint64) (map[uint64]string, error) {
	if len(seatIDs) == 0 {
		return map[uint64]string{}, nil
	}
	placeholders := make([]string, 0, len(seatIDs))
	args := make([]interface{}, 0, len(seatIDs))
	for _, id := range seatIDs {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	q := `SELECT id, CONCAT(row_label, seat_number) FROM seats WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	labels := make(map[uint64]string, len(seatIDs))
	for rows.Next() {
		var id uint64
		var label string
		if err := rows.Scan(&id, &label); err != nil {
			return nil, err
		}
		labels[id] = label
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return labels, nil
}
