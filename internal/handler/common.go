// Package handler implements the HTTP endpoints over the booking
// engine.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/booking"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/repository"
)

// getUserID extracts the customer id stored by the JWT middleware and
// converts it to uint64. Claims arrive as float64 or string depending
// on how the token was minted.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses the numeric :id path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

// writeError maps engine and repository errors onto HTTP responses.
// Typed errors carry their detail into the body; everything unmapped is
// a plain 500 so internals never leak to clients.
func writeError(c echo.Context, err error) error {
	var (
		seatErr   *booking.SeatUnavailableError
		priceErr  *booking.PriceNotFoundError
		redeemErr *booking.InvalidRedemptionError
	)
	switch {
	case errors.As(err, &seatErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":    "seats unavailable",
			"seat_ids": seatErr.SeatIDs,
		})
	case errors.Is(err, booking.ErrBookingExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "booking has expired"})
	case errors.As(err, &priceErr):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":     "no price configured",
			"seat_type": priceErr.SeatType,
			"day_type":  priceErr.DayType,
			"time_slot": priceErr.TimeSlot,
		})
	case errors.As(err, &redeemErr):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":     "invalid loyalty redemption",
			"requested": redeemErr.Requested,
			"available": redeemErr.Available,
			"cap":       redeemErr.Cap,
		})
	case errors.Is(err, booking.ErrScreeningNotBookable):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "screening is not open for sale"})
	case errors.Is(err, booking.ErrEmptySelection):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no seats selected"})
	case errors.Is(err, booking.ErrBookingNotPending):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not pending"})
	case errors.Is(err, booking.ErrTicketNotCheckable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket cannot be checked in"})
	case errors.Is(err, booking.ErrNotFound),
		errors.Is(err, repository.ErrScreeningNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrTicketNotFound),
		errors.Is(err, repository.ErrComboNotFound),
		errors.Is(err, repository.ErrCustomerNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, booking.ErrCodeGenerationExhausted):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ticket code generation exhausted"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
