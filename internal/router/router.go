// Package router registers the HTTP routes of the booking API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/ntkiet1912/cifastar-booking-engine/internal/config"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/handler"
	"github.com/ntkiet1912/cifastar-booking-engine/internal/middleware"
)

// Register wires all routes onto the Echo instance. The seat
// availability read sits behind the response cache; the mutating
// lock and booking endpoints sit behind the rate limiter; everything
// customer-facing requires a valid access token.
func Register(e *echo.Echo, s *handler.ScreeningHandler, b *handler.BookingHandler, t *handler.TicketHandler, jwtSecret string, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	limitMW := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	// Public reads: guests can inspect availability before signing in.
	e.GET("/v1/screenings/:id/seats", s.GetScreeningSeats, cacheMW)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))

	// Scheduling. Authentication suffices; role separation belongs to
	// the identity service.
	auth.POST("/screenings", s.CreateScreening)

	// Seat locks and the booking lifecycle.
	auth.POST("/screenings/:id/locks", b.LockSeats, limitMW)
	auth.DELETE("/screenings/:id/locks", b.ReleaseLock)
	auth.POST("/bookings", b.CreateBooking, limitMW)
	auth.PUT("/bookings/:id/combos", b.UpdateCombos)
	auth.POST("/bookings/:id/confirm", b.ConfirmBooking)
	auth.DELETE("/bookings/:id", b.CancelBooking)
	auth.GET("/my-bookings", b.ListBookings)
	auth.GET("/bookings/:id", b.GetBooking)

	// Gate-side ticket operations.
	auth.POST("/tickets/:code/check-in", t.CheckIn)
	auth.GET("/tickets/:code/qr", t.TicketQR)
}
