package model

import "time"

// Booking states. PENDING is the only non-terminal state; the
// PENDING -> {CONFIRMED, CANCELLED, EXPIRED} transition is the single
// point of truth for the whole lifecycle and is always performed as a
// compare-and-swap on the status column.
const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCancelled = "CANCELLED"
	BookingStatusExpired   = "EXPIRED"
)

// Booking aggregates a customer, a screening and the monetary outcome of
// one checkout. Bookings are never deleted; only their status changes.
//
// Fields:
//  ID            - primary key identifier.
//  CustomerID    - customer who created the booking.
//  ScreeningID   - screening being booked.
//  Status        - PENDING, CONFIRMED, CANCELLED or EXPIRED.
//  SeatSubtotal  - sum of per-seat prices.
//  ComboSubtotal - sum of combo line items.
//  Discount      - loyalty discount subtracted from the total.
//  Total         - seatSubtotal + comboSubtotal - discount, floored at 0.
//  PointsUsed    - loyalty points redeemed at confirmation.
//  PaymentRef    - external payment reference, set on confirmation.
//  ExpiresAt     - hold deadline; past it the booking is reconcilable.
//  CreatedAt     - creation timestamp.
//  UpdatedAt     - last update timestamp.
type Booking struct {
	ID            uint64    // bookings.id
	CustomerID    uint64    // bookings.customer_id
	ScreeningID   uint64    // bookings.screening_id
	Status        string    // bookings.status
	SeatSubtotal  int64     // bookings.seat_subtotal
	ComboSubtotal int64     // bookings.combo_subtotal
	Discount      int64     // bookings.discount
	Total         int64     // bookings.total
	PointsUsed    int64     // bookings.points_used
	PaymentRef    *string   // bookings.payment_ref (nullable)
	ExpiresAt     time.Time // bookings.expires_at
	CreatedAt     time.Time // bookings.created_at
	UpdatedAt     time.Time // bookings.updated_at
}

// Terminal reports whether the booking status can no longer change.
func (b *Booking) Terminal() bool {
	return b.Status != BookingStatusPending
}

// BookingCombo is a combo line item owned exclusively by its booking.
// Line items may only be created or replaced while the booking is
// PENDING; afterwards they are immutable.
//
// Fields:
//  ID        - primary key identifier.
//  BookingID - owning booking.
//  ComboID   - combo product being purchased.
//  Quantity  - number of units, always >= 1 when persisted.
//  UnitPrice - price per unit captured at booking time.
//  Subtotal  - quantity * unitPrice.
type BookingCombo struct {
	ID        uint64 // booking_combos.id
	BookingID uint64 // booking_combos.booking_id
	ComboID   uint64 // booking_combos.combo_id
	Quantity  uint32 // booking_combos.quantity
	UnitPrice int64  // booking_combos.unit_price
	Subtotal  int64  // booking_combos.subtotal
}
