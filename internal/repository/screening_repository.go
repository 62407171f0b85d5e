package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/model"
)

// ErrScreeningNotFound indicates that a screening was not located in the DB.
var ErrScreeningNotFound = errors.New("screening not found")

// ScreeningRepo provides data access to the screenings table. Screenings
// are created by back-office scheduling and read by the engine to decide
// whether a lock or booking request falls inside the open-for-sale
// window. All timestamps are stored in UTC; the driver is opened with
// parseTime=true so DATETIME columns scan directly into time.Time.
type ScreeningRepo struct {
	db *sql.DB
}

// NewScreeningRepo returns a new ScreeningRepo bound to the provided database.
func NewScreeningRepo(db *sql.DB) *ScreeningRepo { return &ScreeningRepo{db: db} }

// Create inserts a new screening and populates the generated ID and
// timestamp fields on the provided struct.
func (r *ScreeningRepo) Create(ctx context.Context, s *model.Screening) error {
	const q = `INSERT INTO screenings (auditorium_id, movie_title, starts_at, ends_at) VALUES (?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, s.AuditoriumID, s.MovieTitle, s.StartsAt.UTC(), s.EndsAt.UTC())
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM screenings WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, s.ID).Scan(&s.CreatedAt, &s.UpdatedAt)
}

// GetByID retrieves a screening by its ID. It returns ErrScreeningNotFound
// when no row exists.
func (r *ScreeningRepo) GetByID(ctx context.Context, id uint64) (*model.Screening, error) {
	const q = `SELECT id, auditorium_id, movie_title, starts_at, ends_at, created_at, updated_at
	           FROM screenings WHERE id = ?`
	var s model.Screening
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.AuditoriumID, &s.MovieTitle, &s.StartsAt, &s.EndsAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScreeningNotFound
		}
		return nil, err
	}
	return &s, nil
}
