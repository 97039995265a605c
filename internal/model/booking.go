package model

import "time"

// Booking records the permanent outcome of promoting a user's seat
// holds.  It is created exactly once, inside the same transaction
// that moves the seats from held to booked, and is immutable
// afterwards.  There is no release path for a booked seat.
//
// Fields:
//  ID        – UUID assigned at creation.
//  UserID    – user the booking belongs to.
//  ShowID    – show the seats were booked on.
//  Seats     – seat numbers in the order they were requested.
//  CreatedAt – when the booking transaction committed.
type Booking struct {
	ID        string    `json:"id"`         // bookings.id
	UserID    uint64    `json:"user_id"`    // bookings.user_id
	ShowID    uint64    `json:"show_id"`    // bookings.show_id
	Seats     []uint32  `json:"seats"`      // booking_seats rows ordered by position
	CreatedAt time.Time `json:"created_at"` // bookings.created_at
}
