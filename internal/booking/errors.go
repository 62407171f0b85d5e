// Package booking implements the seat reservation and booking lifecycle
// engine: time-boxed seat locks, pricing, the booking state machine,
// ticket issuance and the background expiry reconciler. The engine never
// mutates shared state through read-then-write pairs; every transition
// is delegated to a compare-and-swap operation on the backing store, so
// the logic stays correct across concurrent requests and replicas.
package booking

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure kinds the engine reports to callers.
// None of them are retried internally except ticket code collisions.
var (
	// ErrEmptySelection is returned when a lock or booking request
	// names no seats.
	ErrEmptySelection = errors.New("no seats selected")

	// ErrScreeningNotBookable is returned when the screening is outside
	// its open-for-sale window.
	ErrScreeningNotBookable = errors.New("screening is not open for sale")

	// ErrBookingExpired is returned when confirm is attempted past the
	// booking's hold deadline. The seats have been (or are being)
	// released; the caller must restart seat selection.
	ErrBookingExpired = errors.New("booking has expired")

	// ErrBookingNotPending is returned when an operation requires a
	// PENDING booking but the booking already reached CANCELLED.
	ErrBookingNotPending = errors.New("booking is not pending")

	// ErrCodeGenerationExhausted is returned when the issuer cannot
	// produce a collision-free ticket code within its retry budget.
	ErrCodeGenerationExhausted = errors.New("ticket code generation exhausted")

	// ErrNotFound is returned for unknown booking, screening, seat,
	// ticket or customer identifiers.
	ErrNotFound = errors.New("not found")

	// ErrTicketNotCheckable is returned when check-in is attempted on a
	// ticket that is not ACTIVE.
	ErrTicketNotCheckable = errors.New("ticket cannot be checked in")
)

// SeatUnavailableError reports a lock conflict. SeatIDs names exactly
// the requested seats that were not AVAILABLE so the client can
// re-select; the rest of the batch was not locked either.
type SeatUnavailableError struct {
	SeatIDs []uint64
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable: %v", e.SeatIDs)
}

// PriceNotFoundError reports a missing price table entry. Pricing never
// silently defaults to zero.
type PriceNotFoundError struct {
	SeatType string
	DayType  string
	TimeSlot string
}

func (e *PriceNotFoundError) Error() string {
	return fmt.Sprintf("no price configured for %s/%s/%s", e.SeatType, e.DayType, e.TimeSlot)
}

// InvalidRedemptionError reports a loyalty redemption that exceeds the
// customer's balance or the configured cap. Requests are rejected, not
// clamped.
type InvalidRedemptionError struct {
	Requested int64
	Available int64
	Cap       int64
}

func (e *InvalidRedemptionError) Error() string {
	return fmt.Sprintf("invalid redemption: requested %d points (available %d, cap %d)", e.Requested, e.Available, e.Cap)
}
