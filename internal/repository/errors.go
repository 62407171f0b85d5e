// Package repository implements MySQL persistence for the booking
// engine. Every state transition on shared rows (screening seats,
// bookings, tickets, loyalty balances) is expressed as a conditional
// UPDATE whose WHERE clause names the expected current state, so the
// database itself arbitrates races between concurrent callers and
// service replicas. Sentinel errors declared here let the engine layer
// distinguish failure scenarios without parsing driver errors.
package repository

import "errors"

// ErrInsufficientPoints is returned when a loyalty redemption would
// drive a customer's balance negative. The conditional decrement simply
// matches zero rows in that case.
var ErrInsufficientPoints = errors.New("insufficient loyalty points")

// ErrDuplicateTicketCode is returned when a ticket insert collides with
// an existing code on the unique index. Callers retry with a new code.
var ErrDuplicateTicketCode = errors.New("duplicate ticket code")

// ErrSeatsNotHeld is returned when a booking tries to bind seats that
// are no longer locked under the caller's lock token.
var ErrSeatsNotHeld = errors.New("seats not held by this lock")

// ErrTicketsExist is returned when a ticket batch targets a booking
// that already has tickets. Issuance runs at most once per booking;
// callers read the existing set instead.
var ErrTicketsExist = errors.New("tickets already issued for booking")
