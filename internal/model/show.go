package model

import "time"

// Show represents a scheduled screening of a movie on a screen of a
// cinema.  The cinema and movie references are opaque to the booking
// engine; they are managed by the catalog handlers.  Seats are
// identified by their number within the screen, from 1 up to
// SeatCount inclusive.
//
// Fields:
//  ID           – primary key identifier.
//  CinemaID     – cinema where the show takes place.
//  MovieID      – movie being screened.
//  ScreenNumber – screen within the cinema.
//  StartsAt     – when the show begins.
//  SeatCount    – number of seats on the screen (seat numbers 1..SeatCount).
//  CreatedAt    – creation timestamp.
type Show struct {
	ID           uint64    `json:"id"`            // shows.id
	CinemaID     uint64    `json:"cinema_id"`     // shows.cinema_id
	MovieID      uint64    `json:"movie_id"`      // shows.movie_id
	ScreenNumber uint32    `json:"screen_number"` // shows.screen_number
	StartsAt     time.Time `json:"starts_at"`     // shows.starts_at
	SeatCount    uint32    `json:"seat_count"`    // shows.seat_count
	CreatedAt    time.Time `json:"created_at"`    // shows.created_at
}

// SeatHold is a temporary, owned claim on a single seat of a show.  A
// hold blocks other users from claiming the same seat until it is
// promoted into a booking, released explicitly, or expires.  A hold
// whose ReservedAt is older than the configured TTL is logically
// expired even while the row still exists; the sweeper removes such
// rows lazily.
//
// Fields:
//  ShowID     – show on which the seat is held.
//  SeatNumber – seat being held.
//  UserID     – user who owns the hold.
//  ReservedAt – when the hold was created; drives expiry.
type SeatHold struct {
	ShowID     uint64    `json:"show_id"`     // reserved_seats.show_id
	SeatNumber uint32    `json:"seat_number"` // reserved_seats.seat_number
	UserID     uint64    `json:"user_id"`     // reserved_seats.user_id
	ReservedAt time.Time `json:"reserved_at"` // reserved_seats.reserved_at
}

// Expired reports whether the hold is logically expired at the given
// cutoff, i.e. whether it was created at or before now − TTL.
func (h SeatHold) Expired(cutoff time.Time) bool {
	return !h.ReservedAt.After(cutoff)
}

// SeatState is the externally visible seat occupancy of a show: the
// permanently booked seat numbers and the currently held ones.  It is
// returned by the public show endpoint so clients can render a seat map.
type SeatState struct {
	BookedSeats   []uint32   `json:"booked_seats"`
	ReservedSeats []SeatHold `json:"reserved_seats"`
}
