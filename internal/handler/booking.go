package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-seat-booking/internal/model"
	"github.com/iliyamo/movie-seat-booking/internal/queue"
	"github.com/iliyamo/movie-seat-booking/internal/repository"
	"github.com/iliyamo/movie-seat-booking/internal/service"
)

// BookingHandler exposes the seat reservation and booking engine over
// HTTP.  All methods assume JWT authentication has already been
// performed by middleware; the user ID comes from the token's subject.
// The handler itself holds no seat state; every decision is made by
// the service and the store underneath it.
type BookingHandler struct {
	Reservations *service.ReservationService
	Bookings     *repository.BookingRepo
}

// NewBookingHandler constructs a BookingHandler. Both dependencies must
// be non-nil.
func NewBookingHandler(res *service.ReservationService, bookings *repository.BookingRepo) *BookingHandler {
	if res == nil || bookings == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Reservations: res, Bookings: bookings}
}

// ReserveSeat handles POST /v1/shows/:id/reserve.  The request body must
// contain a JSON object with a positive "seat_number".  On success it
// returns 200 with the seat number and hold timestamp; conflicts return
// 409 with a machine-readable error kind.
func (h *BookingHandler) ReserveSeat(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	var body struct {
		SeatNumber uint32 `json:"seat_number"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.SeatNumber == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_number required"})
	}

	hold, err := h.Reservations.Reserve(c.Request().Context(), showID, userID, body.SeatNumber)
	if err != nil {
		return writeReservationError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"seat_number": hold.SeatNumber,
		"reserved_at": hold.ReservedAt.Format(time.RFC3339Nano),
	})
}

// ReleaseSeat handles POST /v1/shows/:id/release.  It removes the
// caller's hold on the seat in the body.  Releasing a seat the caller
// does not hold returns 404; the underlying operation is idempotent.
func (h *BookingHandler) ReleaseSeat(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	var body struct {
		SeatNumber uint32 `json:"seat_number"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.SeatNumber == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_number required"})
	}

	if err := h.Reservations.Release(c.Request().Context(), showID, userID, body.SeatNumber); err != nil {
		return writeReservationError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"seat_number": body.SeatNumber})
}

// ReleaseAll handles DELETE /v1/shows/:id/reservations.  It releases all
// of the caller's holds on the show and reports how many were removed.
// It always succeeds, even when nothing was held.
func (h *BookingHandler) ReleaseAll(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	released, err := h.Reservations.ReleaseAll(c.Request().Context(), showID, userID)
	if err != nil {
		return writeReservationError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"released": released})
}

// BookSeats handles POST /v1/shows/:id/book.  The body carries 1..6
// distinct seat numbers that must all be unexpired holds owned by the
// caller.  On success the promotion has committed atomically and the
// created booking is returned with 201.  Any failure leaves seat state
// untouched; conflict responses list the offending seats when known.
func (h *BookingHandler) BookSeats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	var body struct {
		Seats []uint32 `json:"seats"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	booking, err := h.Reservations.Book(c.Request().Context(), showID, userID, body.Seats)
	if err != nil {
		return writeReservationError(c, err)
	}

	// The booking is committed; event publication is best-effort and
	// must never fail the request. Errors are logged by the publisher.
	_ = queue.PublishBookingConfirmed(c.Request().Context(), queue.BookingConfirmedEvent{
		BookingID: booking.ID,
		UserID:    booking.UserID,
		ShowID:    booking.ShowID,
		Seats:     booking.Seats,
		CreatedAt: booking.CreatedAt.Format(time.RFC3339Nano),
	})

	return c.JSON(http.StatusCreated, echo.Map{"booking": booking})
}

// ListBookings handles GET /v1/my-bookings.  It returns all bookings
// created by the current user, newest first.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Bookings.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetBooking handles GET /v1/bookings/:id.  Ownership is enforced in the
// repository query; a foreign booking is indistinguishable from a
// missing one.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID := c.Param("id")
	if bookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	booking, err := h.Bookings.GetByIDForUser(c.Request().Context(), bookingID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load booking"})
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": booking})
}

// writeReservationError maps engine errors onto HTTP responses with
// machine-readable kinds. Conflicts carry the offending seats when the
// engine could derive them. Unclassified store failures become a
// retryable 503: the operation aborted cleanly with no partial state,
// and retrying is the caller's decision.
func writeReservationError(c echo.Context, err error) error {
	var missing *repository.MissingHoldsError
	var booked *repository.AlreadyBookedError
	switch {
	case errors.Is(err, service.ErrNoSeats):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no_seats"})
	case errors.Is(err, service.ErrTooManySeats):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "too_many_seats"})
	case errors.Is(err, service.ErrDuplicateSeat):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duplicate_seat"})
	case errors.Is(err, service.ErrInvalidSeat):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_seat"})
	case errors.Is(err, repository.ErrShowNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "show_not_found"})
	case errors.Is(err, repository.ErrHoldNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "hold_not_found"})
	case errors.Is(err, repository.ErrSeatAlreadyBooked):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat_already_booked"})
	case errors.Is(err, repository.ErrSeatAlreadyHeld):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat_already_held"})
	case errors.Is(err, repository.ErrHoldLimitReached):
		return c.JSON(http.StatusConflict, echo.Map{"error": "hold_limit_reached"})
	case errors.Is(err, repository.ErrSeatUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat_unavailable"})
	case errors.As(err, &missing):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seats_not_held", "seats": missing.Seats})
	case errors.As(err, &booked):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seats_already_booked", "seats": booked.Seats})
	default:
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store_unavailable", "retryable": true})
	}
}

// seatStateResponse shapes the seat map returned by the public show
// endpoint. Holds expose their expiry so clients can count down.
func seatStateResponse(state *model.SeatState, ttl time.Duration) echo.Map {
	type holdView struct {
		SeatNumber uint32 `json:"seat_number"`
		ExpiresAt  string `json:"expires_at"`
	}
	holds := make([]holdView, 0, len(state.ReservedSeats))
	for _, h := range state.ReservedSeats {
		holds = append(holds, holdView{
			SeatNumber: h.SeatNumber,
			ExpiresAt:  h.ReservedAt.Add(ttl).Format(time.RFC3339Nano),
		})
	}
	return echo.Map{
		"booked_seats":   state.BookedSeats,
		"reserved_seats": holds,
	}
}
