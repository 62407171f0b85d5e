package model

import "time"

// Screening seat states. AVAILABLE seats can be locked, LOCKED seats are
// time-boxed holds, SOLD seats belong to a confirmed booking forever.
const (
	SeatStatusAvailable = "AVAILABLE"
	SeatStatusLocked    = "LOCKED"
	SeatStatusSold      = "SOLD"
)

// ScreeningSeat is the inventory unit: one row per (screening, seat).
// All state transitions go through conditional updates keyed on Status,
// never through read-then-write pairs, so two callers racing for the
// same seat cannot both win.
//
// Invariants:
//  - Status LOCKED implies LockUntil is set and was in the future when
//    the lock was taken.
//  - Status SOLD implies BookingID is set and immutable afterwards.
//  - At most one booking references the row while LOCKED or SOLD.
//
// Fields:
//  ID          - primary key identifier.
//  ScreeningID - screening this inventory row belongs to.
//  SeatID      - physical seat being sold.
//  Status      - AVAILABLE, LOCKED or SOLD.
//  LockUntil   - hold deadline; nil unless LOCKED.
//  BookingID   - owning booking; nil until the seat is bound.
//  LockToken   - correlates the row with the lock batch that holds it.
//  Price       - unit price captured when the seat is bound to a
//                booking; becomes the ticket price on issuance.
//  UpdatedAt   - last transition timestamp.
type ScreeningSeat struct {
	ID          uint64     // screening_seats.id
	ScreeningID uint64     // screening_seats.screening_id
	SeatID      uint64     // screening_seats.seat_id
	Status      string     // screening_seats.status
	LockUntil   *time.Time // screening_seats.lock_until (nullable)
	BookingID   *uint64    // screening_seats.booking_id (nullable)
	LockToken   *string    // screening_seats.lock_token (nullable)
	Price       *int64     // screening_seats.price (nullable)
	UpdatedAt   time.Time  // screening_seats.updated_at
}
