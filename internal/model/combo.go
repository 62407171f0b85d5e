package model

import "time"

// Combo is a concession bundle (popcorn, drinks, ...) that customers can
// attach to a booking. Prices are captured onto BookingCombo line items
// at booking time so later combo price changes do not affect existing
// bookings.
type Combo struct {
	ID        uint64    // combos.id
	Name      string    // combos.name
	UnitPrice int64     // combos.unit_price
	IsActive  bool      // combos.is_active
	CreatedAt time.Time // combos.created_at
}
