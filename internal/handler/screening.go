package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/model"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/repository"
)

// ScreeningHandler schedules screenings and exposes their seat
// availability. Scheduling seeds the sellable inventory: one AVAILABLE
// row per active seat of the auditorium.
type ScreeningHandler struct {
	ScreeningRepo     *repository.ScreeningRepo
	SeatRepo          *repository.SeatRepo
	ScreeningSeatRepo *repository.ScreeningSeatRepo
}

// NewScreeningHandler constructs a ScreeningHandler.
func NewScreeningHandler(screeningRepo *repository.ScreeningRepo, seatRepo *repository.SeatRepo, screeningSeatRepo *repository.ScreeningSeatRepo) *ScreeningHandler {
	if screeningRepo == nil || seatRepo == nil || screeningSeatRepo == nil {
		panic("nil repository passed to NewScreeningHandler")
	}
	return &ScreeningHandler{
		ScreeningRepo:     screeningRepo,
		SeatRepo:          seatRepo,
		ScreeningSeatRepo: screeningSeatRepo,
	}
}

// CreateScreening handles POST /v1/screenings. It creates the screening
// and seeds one inventory row per active seat in the auditorium, so the
// screening is sellable the moment this returns.
func (h *ScreeningHandler) CreateScreening(c echo.Context) error {
	var body struct {
		AuditoriumID uint64 `json:"auditorium_id"`
		MovieTitle   string `json:"movie_title"`
		StartsAt     string `json:"starts_at"`
		EndsAt       string `json:"ends_at"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.AuditoriumID == 0 || body.MovieTitle == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "auditorium_id and movie_title are required"})
	}
	startsAt, err := time.Parse(time.RFC3339, body.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
	}
	endsAt, err := time.Parse(time.RFC3339, body.EndsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be RFC3339"})
	}
	if !endsAt.After(startsAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be after starts_at"})
	}

	ctx := c.Request().Context()
	seats, err := h.SeatRepo.ActiveByAuditorium(ctx, body.AuditoriumID)
	if err != nil {
		return writeError(c, err)
	}
	if len(seats) == 0 {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "auditorium has no active seats"})
	}

	s := &model.Screening{
		AuditoriumID: body.AuditoriumID,
		MovieTitle:   body.MovieTitle,
		StartsAt:     startsAt.UTC(),
		EndsAt:       endsAt.UTC(),
	}
	if err := h.ScreeningRepo.Create(ctx, s); err != nil {
		return writeError(c, err)
	}
	seatIDs := lo.Map(seats, func(seat model.Seat, _ int) uint64 { return seat.ID })
	if err := h.ScreeningSeatRepo.CreateBulk(ctx, s.ID, seatIDs); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":            s.ID,
		"auditorium_id": s.AuditoriumID,
		"movie_title":   s.MovieTitle,
		"starts_at":     s.StartsAt.Format(time.RFC3339),
		"ends_at":       s.EndsAt.Format(time.RFC3339),
		"seats_seeded":  len(seatIDs),
	})
}

// GetScreeningSeats handles GET /v1/screenings/:id/seats. The answer is
// advisory; only a lock attempt decides who gets a seat, so this read
// can be served from the short-TTL response cache. Lock internals
// (token, deadline, booking binding) are not exposed.
func (h *ScreeningHandler) GetScreeningSeats(c echo.Context) error {
	screeningID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid screening id"})
	}
	ctx := c.Request().Context()
	if _, err := h.ScreeningRepo.GetByID(ctx, screeningID); err != nil {
		return writeError(c, err)
	}
	seats, err := h.ScreeningSeatRepo.ListByScreening(ctx, screeningID)
	if err != nil {
		return writeError(c, err)
	}
	out := lo.Map(seats, func(seat model.ScreeningSeat, _ int) echo.Map {
		return echo.Map{
			"seat_id": seat.SeatID,
			"status":  seat.Status,
		}
	})
	return c.JSON(http.StatusOK, echo.Map{
		"screening_id": screeningID,
		"seats":        out,
	})
}
