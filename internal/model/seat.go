package model

import "time"

// Seat types used by the pricing table. Every seat carries exactly one
// of these and the value never changes after the seat is created.
const (
	SeatTypeStandard = "STANDARD"
	SeatTypeVIP      = "VIP"
	SeatTypeCouple   = "COUPLE"
)

// Seat is the static identity of a physical seat inside an auditorium.
// Seats are immutable once created and are only ever soft-deleted by
// flipping IsActive, because issued tickets keep referencing them.
//
// Fields:
//  ID           - primary key identifier.
//  AuditoriumID - auditorium the seat belongs to.
//  RowLabel     - alphabetical row label (A, B, ..., AA).
//  SeatNumber   - 1-based number within the row.
//  SeatType     - pricing category (STANDARD, VIP, COUPLE).
//  IsActive     - soft-delete flag; inactive seats are never seeded
//                 into screening inventory.
//  CreatedAt    - creation timestamp.
type Seat struct {
	ID           uint64    // seats.id
	AuditoriumID uint64    // seats.auditorium_id
	RowLabel     string    // seats.row_label
	SeatNumber   uint32    // seats.seat_number
	SeatType     string    // seats.seat_type
	IsActive     bool      // seats.is_active
	CreatedAt    time.Time // seats.created_at
}
