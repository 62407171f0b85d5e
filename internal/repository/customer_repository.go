package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/model"
)

// ErrCustomerNotFound indicates that a customer was not located in the DB.
var ErrCustomerNotFound = errors.New("customer not found")

// CustomerRepo exposes the slice of customer data the engine consumes:
// the loyalty point balance. Balances only move through conditional
// updates so concurrent redemptions cannot overdraw an account.
type CustomerRepo struct {
	db *sql.DB
}

// NewCustomerRepo returns a new CustomerRepo bound to the given database.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

// GetByID retrieves a customer by ID. It returns ErrCustomerNotFound
// when no row exists.
func (r *CustomerRepo) GetByID(ctx context.Context, id uint64) (*model.Customer, error) {
	const q = `SELECT id, full_name, loyalty_points, created_at FROM customers WHERE id = ?`
	var c model.Customer
	err := r.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.FullName, &c.LoyaltyPoints, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Balance returns the customer's current loyalty point balance.
func (r *CustomerRepo) Balance(ctx context.Context, id uint64) (int64, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return c.LoyaltyPoints, nil
}

// Refund adds points back to a customer's balance. Used when a
// confirmation wins the redemption but a later step cannot complete.
func (r *CustomerRepo) Refund(ctx context.Context, id uint64, points int64) error {
	if points <= 0 {
		return nil
	}
	const q = `UPDATE customers SET loyalty_points = loyalty_points + ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, points, id)
	return err
}
