package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/booking"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/repository"
)

// TicketHandler serves gate-side ticket operations: check-in and QR
// rendering.
type TicketHandler struct {
	Service    *booking.Service
	TicketRepo *repository.TicketRepo
}

// NewTicketHandler constructs a TicketHandler.
func NewTicketHandler(service *booking.Service, ticketRepo *repository.TicketRepo) *TicketHandler {
	if service == nil || ticketRepo == nil {
		panic("nil dependency passed to NewTicketHandler")
	}
	return &TicketHandler{Service: service, TicketRepo: ticketRepo}
}

// CheckIn handles POST /v1/tickets/:code/check-in. The ACTIVE -> USED
// transition happens exactly once; a second scan of the same ticket
// gets a conflict.
func (h *TicketHandler) CheckIn(c echo.Context) error {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket code is required"})
	}
	t, err := h.Service.CheckIn(c.Request().Context(), code)
	if err != nil {
		return writeError(c, err)
	}
	out := ticketJSON(t)
	if t.UsedAt != nil {
		out["used_at"] = t.UsedAt.Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, out)
}

// TicketQR handles GET /v1/tickets/:code/qr, rendering the ticket's
// signed payload as a PNG. The payload is self-contained, so scanners
// verify it offline against the shared secret.
func (h *TicketHandler) TicketQR(c echo.Context) error {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket code is required"})
	}
	t, err := h.TicketRepo.GetByCode(c.Request().Context(), code)
	if err != nil {
		return writeError(c, err)
	}
	png, err := qrcode.Encode(t.QRPayload, qrcode.Medium, 256)
	if err != nil {
		return writeError(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
