package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/movie-seat-booking/internal/model"
)

// BookingRepo persists bookings and performs the transactional promotion
// of a user's holds into a permanent booking. Booking rows are written
// exactly once and never updated; seat numbers live in booking_seats
// ordered by their position in the original request.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// placeholders returns a "?, ?, ..." list of length n for IN clauses.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// Create promotes the holds behind b.Seats into a booking inside one
// transaction. The steps are: purge expired holds on the show, lock and
// load the caller's unexpired holds, verify the requested seats are a
// subset of them, defensively verify none are already booked, then
// append to booked_seats, delete the matching holds and insert the
// booking and its seats. All of it commits atomically; any failure
// rolls back and leaves the ledger and booking store untouched.
//
// On a held-set mismatch it returns *MissingHoldsError listing the seats
// the caller does not validly hold; on the defensive check failing it
// returns *AlreadyBookedError. b must carry the pre-allocated ID, the
// owner, the show and CreatedAt.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking, cutoff time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Physically drop expired holds first so the locked read below only
	// sees live rows.
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM reserved_seats WHERE show_id = ? AND reserved_at <= ?`,
		b.ShowID, cutoff.UTC(),
	); err != nil {
		return err
	}

	// Lock the caller's unexpired holds for the duration of the
	// transaction so a racing release or sweep cannot pull a seat out
	// from under the subset check.
	rows, err := tx.QueryContext(ctx,
		`SELECT seat_number FROM reserved_seats
		 WHERE show_id = ? AND user_id = ? AND reserved_at > ? FOR UPDATE`,
		b.ShowID, b.UserID, cutoff.UTC(),
	)
	if err != nil {
		return err
	}
	held := make(map[uint32]struct{})
	for rows.Next() {
		var n uint32
		if scanErr := rows.Scan(&n); scanErr != nil {
			rows.Close()
			return scanErr
		}
		held[n] = struct{}{}
	}
	if err = rows.Close(); err != nil {
		return err
	}

	var missing []uint32
	for _, seat := range b.Seats {
		if _, ok := held[seat]; !ok {
			missing = append(missing, seat)
		}
	}
	if len(missing) > 0 {
		return &MissingHoldsError{Seats: missing}
	}

	// Defensive re-check: a seat the caller holds cannot normally be
	// booked as well, but the ledger invariant is cheap to verify here
	// and the booking must never double-allocate.
	args := make([]interface{}, 0, len(b.Seats)+1)
	args = append(args, b.ShowID)
	for _, seat := range b.Seats {
		args = append(args, seat)
	}
	brows, err := tx.QueryContext(ctx,
		`SELECT seat_number FROM booked_seats WHERE show_id = ? AND seat_number IN (`+
			placeholders(len(b.Seats))+`) FOR UPDATE`,
		args...,
	)
	if err != nil {
		return err
	}
	var alreadyBooked []uint32
	for brows.Next() {
		var n uint32
		if scanErr := brows.Scan(&n); scanErr != nil {
			brows.Close()
			return scanErr
		}
		alreadyBooked = append(alreadyBooked, n)
	}
	if err = brows.Close(); err != nil {
		return err
	}
	if len(alreadyBooked) > 0 {
		return &AlreadyBookedError{Seats: alreadyBooked}
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO bookings (id, user_id, show_id, created_at) VALUES (?, ?, ?, ?)`,
		b.ID, b.UserID, b.ShowID, b.CreatedAt.UTC(),
	); err != nil {
		return err
	}

	bookedQ := `INSERT INTO booked_seats (show_id, seat_number, booking_id) VALUES `
	bookedArgs := make([]interface{}, 0, len(b.Seats)*3)
	seatQ := `INSERT INTO booking_seats (booking_id, seat_number, position) VALUES `
	seatArgs := make([]interface{}, 0, len(b.Seats)*3)
	for i, seat := range b.Seats {
		if i > 0 {
			bookedQ += ","
			seatQ += ","
		}
		bookedQ += "(?, ?, ?)"
		bookedArgs = append(bookedArgs, b.ShowID, seat, b.ID)
		seatQ += "(?, ?, ?)"
		seatArgs = append(seatArgs, b.ID, seat, i)
	}
	if _, err = tx.ExecContext(ctx, bookedQ, bookedArgs...); err != nil {
		return err
	}

	delArgs := make([]interface{}, 0, len(b.Seats)+2)
	delArgs = append(delArgs, b.ShowID, b.UserID)
	for _, seat := range b.Seats {
		delArgs = append(delArgs, seat)
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM reserved_seats WHERE show_id = ? AND user_id = ? AND seat_number IN (`+
			placeholders(len(b.Seats))+`)`,
		delArgs...,
	); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, seatQ, seatArgs...); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByIDForUser returns a single booking for the given user. It
// returns ErrBookingNotFound when no booking with that ID exists for
// the user; ownership is enforced in the query itself.
func (r *BookingRepo) GetByIDForUser(ctx context.Context, bookingID string, userID uint64) (*model.Booking, error) {
	var b model.Booking
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, show_id, created_at FROM bookings WHERE id = ? AND user_id = ?`,
		bookingID, userID,
	).Scan(&b.ID, &b.UserID, &b.ShowID, &b.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if b.Seats, err = r.seatsFor(ctx, b.ID); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListByUser returns the user's bookings newest first, each with its
// seat numbers in request order. An empty slice means no bookings.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, show_id, created_at FROM bookings
		 WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookings := make([]model.Booking, 0)
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.ShowID, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range bookings {
		if bookings[i].Seats, err = r.seatsFor(ctx, bookings[i].ID); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

func (r *BookingRepo) seatsFor(ctx context.Context, bookingID string) ([]uint32, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seat_number FROM booking_seats WHERE booking_id = ? ORDER BY position`,
		bookingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]uint32, 0, 6)
	for rows.Next() {
		var n uint32
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		seats = append(seats, n)
	}
	return seats, rows.Err()
}
