// Package repository defines error values that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// reservation service and handlers to distinguish between failure
// scenarios without string matching. Conflict errors that concern a
// specific set of seats carry that set so handlers can include it in
// responses.
package repository

import (
	"errors"
	"fmt"
)

// ErrShowNotFound indicates that a show was not located in the DB.
var ErrShowNotFound = errors.New("show not found")

// ErrClaimRejected is returned by the atomic seat claim when its compound
// predicate matched nothing: the seat is booked, the seat is held, or the
// caller is at their hold cap. Which of the three applied is not knowable
// from the failed write itself; callers perform a best-effort diagnostic
// read to pick a more specific error.
var ErrClaimRejected = errors.New("seat claim rejected")

// ErrSeatAlreadyBooked indicates the seat is permanently booked.
var ErrSeatAlreadyBooked = errors.New("seat already booked")

// ErrSeatAlreadyHeld indicates the seat is temporarily held by a user.
var ErrSeatAlreadyHeld = errors.New("seat already held")

// ErrHoldLimitReached indicates the caller already holds the maximum
// number of unexpired seats for the show.
var ErrHoldLimitReached = errors.New("hold limit reached")

// ErrSeatUnavailable is the generic conflict reported when a rejected
// claim cannot be attributed to a specific cause. The true cause may have
// changed between the failed write and the diagnostic read; correctness
// never depends on the diagnosis.
var ErrSeatUnavailable = errors.New("seat unavailable")

// ErrHoldNotFound indicates a release target that does not exist or is
// owned by a different user.
var ErrHoldNotFound = errors.New("hold not found")

// ErrBookingNotFound indicates that a booking was not located in the DB.
var ErrBookingNotFound = errors.New("booking not found")

// ErrEmailTaken indicates a registration attempt with an email that is
// already in use.
var ErrEmailTaken = errors.New("email already registered")

// MissingHoldsError aborts a booking when some of the requested seats are
// not unexpired holds owned by the caller. Seats lists the offenders; no
// mutation has taken place.
type MissingHoldsError struct {
	Seats []uint32
}

func (e *MissingHoldsError) Error() string {
	return fmt.Sprintf("seats not held by caller or hold expired: %v", e.Seats)
}

// AlreadyBookedError aborts a booking when some of the requested seats
// already sit in the booked set. This is a defensive re-check; a seat
// cannot normally be both held by the caller and booked.
type AlreadyBookedError struct {
	Seats []uint32
}

func (e *AlreadyBookedError) Error() string {
	return fmt.Sprintf("seats already booked: %v", e.Seats)
}
