package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/model"
)

// ErrComboNotFound indicates that a requested combo does not exist or is
// no longer offered.
var ErrComboNotFound = errors.New("combo not found")

// ComboRepo provides read access to the combos catalogue. The engine
// only resolves active combos to capture their price onto booking line
// items; catalogue management lives elsewhere.
type ComboRepo struct {
	db *sql.DB
}

// NewComboRepo returns a new ComboRepo bound to the given database.
func NewComboRepo(db *sql.DB) *ComboRepo { return &ComboRepo{db: db} }

// ActiveByIDs returns the active combos among the given IDs keyed by ID.
// Callers detect unknown or inactive combos by comparing sizes.
func (r *ComboRepo) ActiveByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Combo, error) {
	result := make(map[uint64]model.Combo, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	placeholders := make([]string, 0, len(ids))
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	q := `SELECT id, name, unit_price, is_active, created_at FROM combos
	      WHERE id IN (` + strings.Join(placeholders, ",") + `) AND is_active = 1`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c model.Combo
		if err := rows.Scan(&c.ID, &c.Name, &c.UnitPrice, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		result[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
