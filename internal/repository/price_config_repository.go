package repository

import (
	"context"
	"database/sql"
	"errors"
)

// ErrPriceNotFound indicates that the price table has no entry for a
// (seatType, dayType, timeSlot) combination. Pricing never falls back
// to zero; the engine surfaces this to the caller.
var ErrPriceNotFound = errors.New("price config not found")

// PriceConfigRepo provides read-only access to the price_configs lookup
// table keyed by seat type, day type and time slot.
type PriceConfigRepo struct {
	db *sql.DB
}

// NewPriceConfigRepo returns a new PriceConfigRepo bound to the given database.
func NewPriceConfigRepo(db *sql.DB) *PriceConfigRepo { return &PriceConfigRepo{db: db} }

// UnitPrice looks up the configured unit seat price for the given
// dimensions. It returns ErrPriceNotFound when no entry exists.
func (r *PriceConfigRepo) UnitPrice(ctx context.Context, seatType, dayType, timeSlot string) (int64, error) {
	const q = `SELECT unit_price FROM price_configs WHERE seat_type = ? AND day_type = ? AND time_slot = ?`
	var price int64
	err := r.db.QueryRowContext(ctx, q, seatType, dayType, timeSlot).Scan(&price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrPriceNotFound
		}
		return 0, err
	}
	return price, nil
}
