// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the background consumer.
package queue

// BookingConfirmedEvent is published after a booking transaction commits.
// It contains enough information for downstream consumers to log, notify,
// or trigger analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID string   `json:"booking_id"`
	UserID    uint64   `json:"user_id"`
	ShowID    uint64   `json:"show_id"`
	Seats     []uint32 `json:"seats"`
	CreatedAt string   `json:"created_at"`
}
