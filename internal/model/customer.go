package model

import "time"

// Customer is the slice of the customer record the engine cares about:
// identity plus the loyalty point balance consumed at confirmation.
// Account management and authentication live elsewhere; the engine only
// receives an already-authenticated customer id.
//
// One loyalty point is worth one currency unit when redeemed.
type Customer struct {
	ID            uint64    // customers.id
	FullName      string    // customers.full_name
	LoyaltyPoints int64     // customers.loyalty_points
	CreatedAt     time.Time // customers.created_at
}
