package booking

import (
	"context"
	"time"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/model"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/queue"
)

// The engine talks to persistence through the narrow contracts below.
// Each method is a transactional unit: implementations must apply the
// described transition atomically and report via their return values
// whether the expected precondition still held. The MySQL
// implementations live in internal/repository; tests substitute
// in-memory fakes honoring the same compare-and-swap semantics.

// SeatInventory manages screening_seat state transitions.
type SeatInventory interface {
	// Lock transitions every seat from AVAILABLE to LOCKED with the
	// given deadline and token, or none of them. A non-empty conflicts
	// slice means nothing was locked and names the seats that were not
	// AVAILABLE (including unknown IDs).
	Lock(ctx context.Context, screeningID uint64, seatIDs []uint64, token string, until time.Time) (conflicts []uint64, err error)

	// HeldByToken returns the LOCKED, unbound seats held under a token.
	HeldByToken(ctx context.Context, screeningID uint64, token string) ([]model.ScreeningSeat, error)

	// ByBooking returns the inventory rows bound to a booking.
	ByBooking(ctx context.Context, bookingID uint64) ([]model.ScreeningSeat, error)

	// ReleaseByToken releases the unbound seats of a lock batch
	// unconditionally (explicit cancellation of a hold).
	ReleaseByToken(ctx context.Context, screeningID uint64, token string) (int64, error)

	// ReleaseByBooking releases a booking's still-LOCKED seats back to
	// AVAILABLE. SOLD seats are never touched.
	ReleaseByBooking(ctx context.Context, bookingID uint64) (int64, error)

	// ReleaseExpiredOrphans releases LOCKED seats past their deadline
	// that were never bound to a booking.
	ReleaseExpiredOrphans(ctx context.Context, now time.Time) (int64, error)

	// MarkSoldByBooking finalizes a confirmed booking's LOCKED seats to
	// SOLD, keeping the booking binding.
	MarkSoldByBooking(ctx context.Context, bookingID uint64) (int64, error)
}

// BookingStore manages booking rows and their combo line items.
type BookingStore interface {
	// CreateWithSeats atomically inserts a PENDING booking plus line
	// items and binds the locked seats (capturing per-seat prices).
	// Returns repository.ErrSeatsNotHeld when the seats are no longer
	// held under the lock token.
	CreateWithSeats(ctx context.Context, b *model.Booking, combos []model.BookingCombo, seatPrices map[uint64]int64, lockToken string) error

	GetByID(ctx context.Context, id uint64) (*model.Booking, error)

	// Confirm is the PENDING -> CONFIRMED compare-and-swap combined
	// with the loyalty point decrement. ok=false means the booking was
	// not PENDING. repository.ErrInsufficientPoints leaves it PENDING.
	Confirm(ctx context.Context, id uint64, paymentRef string) (ok bool, err error)

	// TransitionStatus is the generic status compare-and-swap.
	TransitionStatus(ctx context.Context, id uint64, from, to string) (bool, error)

	// ReplaceCombos swaps line items and derived totals while PENDING.
	ReplaceCombos(ctx context.Context, bookingID uint64, combos []model.BookingCombo, comboSubtotal, discount, total int64) (bool, error)

	CombosByBooking(ctx context.Context, bookingID uint64) ([]model.BookingCombo, error)
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]uint64, error)
}

// TicketStore persists issued tickets behind a unique code index.
type TicketStore interface {
	CodeExists(ctx context.Context, code string) (bool, error)
	// CreateBatch inserts all tickets of a booking or none; a code
	// collision surfaces as repository.ErrDuplicateTicketCode.
	CreateBatch(ctx context.Context, tickets []model.Ticket) error
	ByBooking(ctx context.Context, bookingID uint64) ([]model.Ticket, error)
	GetByCode(ctx context.Context, code string) (*model.Ticket, error)
	// MarkUsed is the ACTIVE -> USED compare-and-swap for check-in.
	MarkUsed(ctx context.Context, code string, now time.Time) (bool, error)
}

// LoyaltyStore reads customer point balances. The decrement itself is
// folded into BookingStore.Confirm so it shares the status CAS
// transaction; Refund undoes it when a confirmation wins that CAS but
// cannot complete.
type LoyaltyStore interface {
	Balance(ctx context.Context, customerID uint64) (int64, error)
	Refund(ctx context.Context, customerID uint64, points int64) error
}

// PriceLookup resolves unit seat prices from the read-only price table.
type PriceLookup interface {
	UnitPrice(ctx context.Context, seatType, dayType, timeSlot string) (int64, error)
}

// ComboCatalog resolves active combo products.
type ComboCatalog interface {
	ActiveByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Combo, error)
}

// SeatCatalog resolves static seat attributes for pricing and for
// notification payloads.
type SeatCatalog interface {
	TypesByIDs(ctx context.Context, seatIDs []uint64) (map[uint64]string, error)
	LabelsByIDs(ctx context.Context, seatIDs []uint64) (map[uint64]string, error)
}

// ScreeningStore resolves screenings for bookability and pricing
// dimensions.
type ScreeningStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Screening, error)
}

// EventPublisher dispatches fire-and-forget notification signals.
// Failures are logged by implementations and never fail the operation
// that triggered them.
type EventPublisher interface {
	BookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent)
	BookingExpired(ctx context.Context, ev queue.BookingExpiredEvent)
}
