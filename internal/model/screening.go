package model

import "time"

// Screening schedules a movie inside an auditorium. When a screening is
// created, one ScreeningSeat row is seeded per active seat in the
// auditorium, which together form the sellable inventory.
//
// Fields:
//  ID           - primary key identifier.
//  AuditoriumID - auditorium the screening plays in.
//  MovieTitle   - display title of the movie.
//  StartsAt     - scheduled start time (UTC).
//  EndsAt       - scheduled end time (UTC).
//  CreatedAt    - creation timestamp.
//  UpdatedAt    - last update timestamp.
type Screening struct {
	ID           uint64    // screenings.id
	AuditoriumID uint64    // screenings.auditorium_id
	MovieTitle   string    // screenings.movie_title
	StartsAt     time.Time // screenings.starts_at
	EndsAt       time.Time // screenings.ends_at
	CreatedAt    time.Time // screenings.created_at
	UpdatedAt    time.Time // screenings.updated_at
}

// Bookable reports whether the screening is still in its open-for-sale
// window at the given instant. Sales close at the scheduled start time.
func (s *Screening) Bookable(now time.Time) bool {
	return now.Before(s.StartsAt)
}
