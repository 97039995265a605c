// This file contains data access logic for shows. A Show is the record
// the booking engine operates on; its seat ledger lives in the
// reserved_seats and booked_seats tables managed by SeatLedgerRepo.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/movie-seat-booking/internal/model"
)

// ShowRepo manages persistence for shows.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo {
	return &ShowRepo{db: db}
}

// DB exposes the underlying sql.DB. It allows callers to begin
// transactions spanning multiple repositories when fine-grained
// transaction control is needed.
func (r *ShowRepo) DB() *sql.DB {
	return r.db
}

const showColumns = `id, cinema_id, movie_id, screen_number, starts_at, seat_count, created_at`

func scanShow(row *sql.Row) (*model.Show, error) {
	var s model.Show
	err := row.Scan(&s.ID, &s.CinemaID, &s.MovieID, &s.ScreenNumber, &s.StartsAt, &s.SeatCount, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Create inserts a new show and assigns the generated ID back to the
// struct. Cinema, movie, screen number and start time must be provided;
// SeatCount falls back to the DB default when zero.
func (r *ShowRepo) Create(ctx context.Context, s *model.Show) error {
	var res sql.Result
	var err error
	if s.SeatCount > 0 {
		res, err = r.db.ExecContext(ctx,
			`INSERT INTO shows (cinema_id, movie_id, screen_number, starts_at, seat_count) VALUES (?, ?, ?, ?, ?)`,
			s.CinemaID, s.MovieID, s.ScreenNumber, s.StartsAt.UTC(), s.SeatCount,
		)
	} else {
		res, err = r.db.ExecContext(ctx,
			`INSERT INTO shows (cinema_id, movie_id, screen_number, starts_at) VALUES (?, ?, ?, ?)`,
			s.CinemaID, s.MovieID, s.ScreenNumber, s.StartsAt.UTC(),
		)
	}
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	// Fetch the inserted row to populate defaults (seat_count, created_at).
	loaded, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *loaded
	return nil
}

// GetByID retrieves a show by its ID. It returns ErrShowNotFound if
// there is no matching row.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (*model.Show, error) {
	return scanShow(r.db.QueryRowContext(ctx,
		`SELECT `+showColumns+` FROM shows WHERE id = ?`, id))
}

// Update rewrites the mutable fields of a show. It returns
// ErrShowNotFound when the show does not exist. Seat counts can only
// grow; shrinking a screen under sold seats is not supported.
func (r *ShowRepo) Update(ctx context.Context, s *model.Show) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shows SET cinema_id = ?, movie_id = ?, screen_number = ?, starts_at = ?,
		        seat_count = GREATEST(seat_count, ?)
		 WHERE id = ?`,
		s.CinemaID, s.MovieID, s.ScreenNumber, s.StartsAt.UTC(), s.SeatCount, s.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either absent or a no-op update; distinguish with a read.
		if _, err := r.GetByID(ctx, s.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a show. Shows with booked or held seats cannot be
// deleted; the foreign keys on booked_seats and reserved_seats reject
// such attempts and the store error is surfaced for the handler to map.
func (r *ShowRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shows WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrShowNotFound
	}
	return nil
}

// ListUpcoming returns shows for a cinema and movie that start after the
// given instant, soonest first. This mirrors the public browse endpoint:
// past shows are never offered for reservation.
func (r *ShowRepo) ListUpcoming(ctx context.Context, cinemaID, movieID uint64, after time.Time) ([]model.Show, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+showColumns+` FROM shows
		 WHERE cinema_id = ? AND movie_id = ? AND starts_at > ?
		 ORDER BY starts_at ASC`,
		cinemaID, movieID, after.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	shows := make([]model.Show, 0)
	for rows.Next() {
		var s model.Show
		if err := rows.Scan(&s.ID, &s.CinemaID, &s.MovieID, &s.ScreenNumber, &s.StartsAt, &s.SeatCount, &s.CreatedAt); err != nil {
			return nil, err
		}
		shows = append(shows, s)
	}
	return shows, rows.Err()
}
