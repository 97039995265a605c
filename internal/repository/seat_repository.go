package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/movie-seat-booking/internal/model"
)

// mysqlDuplicateEntry is the server error number MySQL returns when an
// insert violates a unique key.
const mysqlDuplicateEntry = 1062

// SeatLedgerRepo provides data access to the per-show seat ledger: the
// reserved_seats table holding temporary claims and the booked_seats
// table holding permanent ones. The ledger is the sole shared mutable
// resource of the booking engine and is only ever mutated through the
// single-statement operations below, never through a read-modify-write
// sequence. All expiry comparisons use a caller-supplied cutoff so that
// every operation works from one consistent time source.
type SeatLedgerRepo struct {
	db *sql.DB
}

// NewSeatLedgerRepo returns a SeatLedgerRepo bound to the provided database.
func NewSeatLedgerRepo(db *sql.DB) *SeatLedgerRepo { return &SeatLedgerRepo{db: db} }

// PurgeExpired removes every hold on the show whose reserved_at is at or
// before the cutoff. It is idempotent: once a hold is gone, repeated
// sweeps have no further effect. It returns the number of rows removed.
func (r *SeatLedgerRepo) PurgeExpired(ctx context.Context, showID uint64, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reserved_seats WHERE show_id = ? AND reserved_at <= ?`,
		showID, cutoff.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Claim attempts to create the given hold with one atomic conditional
// write. The INSERT ... SELECT only produces a row when, at the moment
// the statement executes, the seat is not booked, the seat is not held,
// and the owner has fewer than maxHolds unexpired holds on the show.
// There is no read-then-write gap: the predicate and the append are a
// single statement, linearized by the store, so for a given (show, seat)
// at most one concurrent Claim succeeds.
//
// When the predicate matches nothing the statement affects zero rows and
// ErrClaimRejected is returned. A concurrent insert that slips past the
// predicate under a weaker isolation level dies on the (show_id,
// seat_number) primary key instead and is reported the same way.
func (r *SeatLedgerRepo) Claim(ctx context.Context, hold model.SeatHold, cutoff time.Time, maxHolds int) error {
	const q = `INSERT INTO reserved_seats (show_id, seat_number, user_id, reserved_at)
	           SELECT s.id, ?, ?, ?
	           FROM shows s
	           WHERE s.id = ?
	             AND NOT EXISTS (
	                 SELECT 1 FROM booked_seats b
	                 WHERE b.show_id = s.id AND b.seat_number = ?)
	             AND NOT EXISTS (
	                 SELECT 1 FROM reserved_seats h
	                 WHERE h.show_id = s.id AND h.seat_number = ?)
	             AND (
	                 SELECT COUNT(*) FROM reserved_seats o
	                 WHERE o.show_id = s.id AND o.user_id = ? AND o.reserved_at > ?) < ?`
	res, err := r.db.ExecContext(ctx, q,
		hold.SeatNumber, hold.UserID, hold.ReservedAt.UTC(),
		hold.ShowID,
		hold.SeatNumber,
		hold.SeatNumber,
		hold.UserID, cutoff.UTC(), maxHolds,
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ErrClaimRejected
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrClaimRejected
	}
	return nil
}

// Release removes the hold on the given seat if, and only if, it is
// owned by the given user. It reports whether a hold was removed; a
// missing or foreign-owned hold is not an error at this layer, so the
// operation stays idempotent.
func (r *SeatLedgerRepo) Release(ctx context.Context, showID, userID uint64, seat uint32) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reserved_seats WHERE show_id = ? AND seat_number = ? AND user_id = ?`,
		showID, seat, userID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReleaseAll removes every hold the user owns on the show and returns
// how many were removed. Zero removals is a successful outcome.
func (r *SeatLedgerRepo) ReleaseAll(ctx context.Context, showID, userID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reserved_seats WHERE show_id = ? AND user_id = ?`,
		showID, userID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SeatView is a point-in-time snapshot of a single seat used for
// diagnosing a rejected claim. HeldBy is zero when no hold exists.
type SeatView struct {
	Booked bool
	HeldBy uint64
	HeldAt time.Time
}

// SeatView reads the current state of one seat. The snapshot is only
// advisory: the state may change between a failed claim and this read,
// which is why it is used for error reporting and never for correctness.
func (r *SeatLedgerRepo) SeatView(ctx context.Context, showID uint64, seat uint32) (SeatView, error) {
	var v SeatView
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM booked_seats WHERE show_id = ? AND seat_number = ?)`,
		showID, seat,
	).Scan(&v.Booked)
	if err != nil {
		return SeatView{}, err
	}
	err = r.db.QueryRowContext(ctx,
		`SELECT user_id, reserved_at FROM reserved_seats WHERE show_id = ? AND seat_number = ?`,
		showID, seat,
	).Scan(&v.HeldBy, &v.HeldAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return SeatView{}, err
	}
	return v, nil
}

// HeldCount returns how many unexpired holds the user has on the show.
// Expired rows are excluded even when no sweep has run yet, so the cap
// computation never depends on physical removal.
func (r *SeatLedgerRepo) HeldCount(ctx context.Context, showID, userID uint64, cutoff time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reserved_seats WHERE show_id = ? AND user_id = ? AND reserved_at > ?`,
		showID, userID, cutoff.UTC(),
	).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// SeatState loads the full occupancy of a show for display: the booked
// seat numbers and all current holds. Callers that need a fresh view
// should sweep first; holds past their TTL may still appear here until
// the next sweep, which is why the hold rows carry reserved_at.
func (r *SeatLedgerRepo) SeatState(ctx context.Context, showID uint64) (*model.SeatState, error) {
	state := &model.SeatState{
		BookedSeats:   []uint32{},
		ReservedSeats: []model.SeatHold{},
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seat_number FROM booked_seats WHERE show_id = ? ORDER BY seat_number`,
		showID,
	)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var n uint32
		if scanErr := rows.Scan(&n); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		state.BookedSeats = append(state.BookedSeats, n)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	hrows, err := r.db.QueryContext(ctx,
		`SELECT show_id, seat_number, user_id, reserved_at
		 FROM reserved_seats WHERE show_id = ? ORDER BY seat_number`,
		showID,
	)
	if err != nil {
		return nil, err
	}
	defer hrows.Close()
	for hrows.Next() {
		var h model.SeatHold
		if err := hrows.Scan(&h.ShowID, &h.SeatNumber, &h.UserID, &h.ReservedAt); err != nil {
			return nil, err
		}
		state.ReservedSeats = append(state.ReservedSeats, h)
	}
	if err := hrows.Err(); err != nil {
		return nil, err
	}
	return state, nil
}
