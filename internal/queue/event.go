// Package queue defines message payloads exchanged over the message
// broker and the background consumer that turns them into customer
// notifications.
package queue

// Queue names used on the broker. Both queues are declared durable.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingExpiredQueue   = "booking.expired"
)

// BookingConfirmedEvent is published when a booking is confirmed and its
// tickets are issued. It carries enough information for downstream
// consumers to notify the customer without querying the primary
// database.
type BookingConfirmedEvent struct {
	BookingID   uint64   `json:"booking_id"`
	CustomerID  uint64   `json:"customer_id"`
	ScreeningID uint64   `json:"screening_id"`
	MovieTitle  string   `json:"movie_title"`
	StartsAt    string   `json:"starts_at"`
	SeatLabels  []string `json:"seats"`
	TicketCodes []string `json:"ticket_codes"`
	Total       int64    `json:"total"`
	ConfirmedAt string   `json:"confirmed_at"`
}

// BookingExpiredEvent is published when the reconciler (or a late
// confirm attempt) expires a PENDING booking and releases its seats.
type BookingExpiredEvent struct {
	BookingID   uint64 `json:"booking_id"`
	CustomerID  uint64 `json:"customer_id"`
	ScreeningID uint64 `json:"screening_id"`
	SeatsFreed  int64  `json:"seats_freed"`
	ExpiredAt   string `json:"expired_at"`
}
