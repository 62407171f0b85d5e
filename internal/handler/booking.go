package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/booking"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/model"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/repository"
)

// BookingHandler exposes the seat lock and booking lifecycle endpoints.
// All state transitions go through the engine; the handler only parses,
// authorizes and renders. Listing and detail reads go straight to the
// repositories.
type BookingHandler struct {
	Service           *booking.Service
	BookingRepo       *repository.BookingRepo
	ScreeningSeatRepo *repository.ScreeningSeatRepo
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(service *booking.Service, bookingRepo *repository.BookingRepo, screeningSeatRepo *repository.ScreeningSeatRepo) *BookingHandler {
	if service == nil || bookingRepo == nil || screeningSeatRepo == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{
		Service:           service,
		BookingRepo:       bookingRepo,
		ScreeningSeatRepo: screeningSeatRepo,
	}
}

// LockSeats handles POST /v1/screenings/:id/locks. The whole batch is
// locked or nothing is; on conflict the response names the seats that
// were taken so the client can re-select.
func (h *BookingHandler) LockSeats(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	screeningID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid screening id"})
	}
	var body struct {
		SeatIDs []uint64 `json:"seat_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Service.Locks().Lock(c.Request().Context(), screeningID, body.SeatIDs)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"lock_token": res.Token,
		"seat_ids":   res.SeatIDs,
		"expires_at": res.ExpiresAt.Format(time.RFC3339),
	})
}

// ReleaseLock handles DELETE /v1/screenings/:id/locks. It releases the
// un-bound seats held under the caller's lock token; releasing an
// unknown or spent token is a no-op reporting zero seats.
func (h *BookingHandler) ReleaseLock(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	screeningID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid screening id"})
	}
	var body struct {
		LockToken string `json:"lock_token"`
	}
	if err := c.Bind(&body); err != nil || body.LockToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lock_token is required"})
	}
	released, err := h.Service.Locks().Unlock(c.Request().Context(), screeningID, body.LockToken)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"released": released})
}

// CreateBooking handles POST /v1/bookings. The seats currently held
// under the lock token are priced together with combos and the loyalty
// redemption, then bound to a new PENDING booking.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	customerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		ScreeningID    uint64                   `json:"screening_id"`
		LockToken      string                   `json:"lock_token"`
		Combos         []booking.ComboSelection `json:"combos"`
		PointsToRedeem int64                    `json:"points_to_redeem"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ScreeningID == 0 || body.LockToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "screening_id and lock_token are required"})
	}
	res, err := h.Service.Create(c.Request().Context(), customerID, body.ScreeningID, body.LockToken, body.Combos, body.PointsToRedeem)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, bookingJSON(res.Booking))
}

// UpdateCombos handles PUT /v1/bookings/:id/combos, replacing the combo
// line items of a PENDING booking and recomputing its totals.
func (h *BookingHandler) UpdateCombos(c echo.Context) error {
	customerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var body struct {
		Combos []booking.ComboSelection `json:"combos"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	b, err := h.Service.UpdateCombos(c.Request().Context(), bookingID, customerID, body.Combos)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, bookingJSON(b))
}

// ConfirmBooking handles POST /v1/bookings/:id/confirm, the payment
// success signal. Confirming an already confirmed booking returns the
// previously issued tickets, so retries are safe.
func (h *BookingHandler) ConfirmBooking(c echo.Context) error {
	customerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var body struct {
		PaymentRef string `json:"payment_ref"`
	}
	if err := c.Bind(&body); err != nil || body.PaymentRef == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_ref is required"})
	}
	ctx := c.Request().Context()
	if _, err := h.owned(c, bookingID, customerID); err != nil {
		return writeError(c, err)
	}
	res, err := h.Service.Confirm(ctx, bookingID, body.PaymentRef)
	if err != nil {
		return writeError(c, err)
	}
	out := bookingJSON(res.Booking)
	out["tickets"] = lo.Map(res.Tickets, func(t model.Ticket, _ int) echo.Map { return ticketJSON(&t) })
	return c.JSON(http.StatusOK, out)
}

// CancelBooking handles DELETE /v1/bookings/:id, voiding a PENDING
// booking and releasing its seats.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	customerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Service.Cancel(c.Request().Context(), bookingID, customerID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, bookingJSON(b))
}

// ListBookings handles GET /v1/my-bookings for the authenticated
// customer, newest first, each with its bound seat ids.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	customerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	bookings, err := h.BookingRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return writeError(c, err)
	}
	ids := lo.Map(bookings, func(b model.Booking, _ int) uint64 { return b.ID })
	seatsByBooking, err := h.BookingRepo.SeatIDsByBookings(ctx, ids)
	if err != nil {
		return writeError(c, err)
	}
	out := lo.Map(bookings, func(b model.Booking, _ int) echo.Map {
		j := bookingJSON(&b)
		j["seat_ids"] = seatsByBooking[b.ID]
		return j
	})
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// GetBooking handles GET /v1/bookings/:id, returning the booking with
// its seats and combo line items.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	customerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx := c.Request().Context()
	b, err := h.owned(c, bookingID, customerID)
	if err != nil {
		return writeError(c, err)
	}
	seats, err := h.ScreeningSeatRepo.ByBooking(ctx, bookingID)
	if err != nil {
		return writeError(c, err)
	}
	combos, err := h.BookingRepo.CombosByBooking(ctx, bookingID)
	if err != nil {
		return writeError(c, err)
	}
	out := bookingJSON(b)
	out["seat_ids"] = lo.Map(seats, func(s model.ScreeningSeat, _ int) uint64 { return s.SeatID })
	out["combos"] = lo.Map(combos, func(bc model.BookingCombo, _ int) echo.Map {
		return echo.Map{
			"combo_id":   bc.ComboID,
			"quantity":   bc.Quantity,
			"unit_price": bc.UnitPrice,
			"subtotal":   bc.Subtotal,
		}
	})
	return c.JSON(http.StatusOK, out)
}

// owned loads a booking and hides it behind not-found when it belongs
// to someone else.
func (h *BookingHandler) owned(c echo.Context, bookingID, customerID uint64) (*model.Booking, error) {
	b, err := h.BookingRepo.GetByID(c.Request().Context(), bookingID)
	if err != nil {
		return nil, err
	}
	if b.CustomerID != customerID {
		return nil, booking.ErrNotFound
	}
	return b, nil
}

func bookingJSON(b *model.Booking) echo.Map {
	return echo.Map{
		"id":             b.ID,
		"screening_id":   b.ScreeningID,
		"status":         b.Status,
		"seat_subtotal":  b.SeatSubtotal,
		"combo_subtotal": b.ComboSubtotal,
		"discount":       b.Discount,
		"total":          b.Total,
		"points_used":    b.PointsUsed,
		"expires_at":     b.ExpiresAt.Format(time.RFC3339),
	}
}

func ticketJSON(t *model.Ticket) echo.Map {
	return echo.Map{
		"code":       t.Code,
		"seat_id":    t.SeatID,
		"price":      t.Price,
		"status":     t.Status,
		"qr_payload": t.QRPayload,
		"issued_at":  t.IssuedAt.Format(time.RFC3339),
	}
}
