package model

import "time"

// Ticket states. Tickets are minted ACTIVE; later transitions (check-in,
// transfer, cancellation) never re-open the originating screening seat.
const (
	TicketStatusActive      = "ACTIVE"
	TicketStatusUsed        = "USED"
	TicketStatusCancelled   = "CANCELLED"
	TicketStatusExpired     = "EXPIRED"
	TicketStatusForTransfer = "FOR_TRANSFER"
)

// Ticket is issued once per sold seat when a booking is confirmed. Each
// ticket belongs to exactly one booking and one screening seat, and its
// code is globally unique.
//
// Fields:
//  ID              - primary key identifier.
//  Code            - globally unique, human-shareable ticket code.
//  BookingID       - booking the ticket was issued for.
//  ScreeningSeatID - the sold inventory row (1:1 once issued).
//  SeatID          - physical seat, denormalized for check-in display.
//  Price           - seat price captured at issuance.
//  QRPayload       - signed, self-contained payload for offline
//                    verification at the gate.
//  Status          - ACTIVE, USED, CANCELLED, EXPIRED or FOR_TRANSFER.
//  UsedAt          - check-in timestamp; nil until USED.
//  IssuedAt        - issuance timestamp.
type Ticket struct {
	ID              uint64     // tickets.id
	Code            string     // tickets.code
	BookingID       uint64     // tickets.booking_id
	ScreeningSeatID uint64     // tickets.screening_seat_id
	SeatID          uint64     // tickets.seat_id
	Price           int64      // tickets.price
	QRPayload       string     // tickets.qr_payload
	Status          string     // tickets.status
	UsedAt          *time.Time // tickets.used_at (nullable)
	IssuedAt        time.Time  // tickets.issued_at
}
