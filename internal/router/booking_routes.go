package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-seat-booking/internal/config"
	"github.com/iliyamo/movie-seat-booking/internal/handler"
	"github.com/iliyamo/movie-seat-booking/internal/middleware"
)

// RegisterBooking registers the seat reservation and booking endpoints
// under /v1.  All routes require a valid JWT; the seat-mutating routes
// additionally pass through the Redis token-bucket limiter so a single
// client cannot hammer the claim path.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("USER", "ADMIN"),
	)

	limited := middleware.NewTokenBucket(rlCfg, rdb)

	g.POST("/shows/:id/reserve", h.ReserveSeat, limited)
	g.POST("/shows/:id/release", h.ReleaseSeat, limited)
	g.DELETE("/shows/:id/reservations", h.ReleaseAll, limited)
	g.POST("/shows/:id/book", h.BookSeats, limited)

	g.GET("/my-bookings", h.ListBookings)
	g.GET("/bookings/:id", h.GetBooking)
}
