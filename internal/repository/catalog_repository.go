// This file contains data access for the catalog entities: cinemas and
// movies. Both are plain CRUD with no concurrency concerns; the booking
// engine references them only by opaque ID through shows.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-seat-booking/internal/model"
)

// ErrCinemaNotFound indicates that a cinema was not located in the DB.
var ErrCinemaNotFound = errors.New("cinema not found")

// ErrMovieNotFound indicates that a movie was not located in the DB.
var ErrMovieNotFound = errors.New("movie not found")

// CinemaRepo manages persistence for cinemas.
type CinemaRepo struct {
	db *sql.DB
}

// NewCinemaRepo constructs a CinemaRepo with the given DB handle.
func NewCinemaRepo(db *sql.DB) *CinemaRepo { return &CinemaRepo{db: db} }

// Create inserts a cinema and assigns the generated ID back to the struct.
func (r *CinemaRepo) Create(ctx context.Context, c *model.Cinema) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO cinemas (name, location) VALUES (?, ?)`, c.Name, c.Location)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID returns one cinema or ErrCinemaNotFound.
func (r *CinemaRepo) GetByID(ctx context.Context, id uint64) (*model.Cinema, error) {
	var c model.Cinema
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, location, created_at FROM cinemas WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Location, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCinemaNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List returns all cinemas ordered by name.
func (r *CinemaRepo) List(ctx context.Context) ([]model.Cinema, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, location, created_at FROM cinemas ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Cinema, 0)
	for rows.Next() {
		var c model.Cinema
		if err := rows.Scan(&c.ID, &c.Name, &c.Location, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a cinema; ErrCinemaNotFound when absent.
func (r *CinemaRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cinemas WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCinemaNotFound
	}
	return nil
}

// MovieRepo manages persistence for movies.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo constructs a MovieRepo with the given DB handle.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

// Create inserts a movie and assigns the generated ID back to the struct.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO movies (title, duration_min, description) VALUES (?, ?, ?)`,
		m.Title, m.DurationMin, m.Description)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// GetByID returns one movie or ErrMovieNotFound.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	var m model.Movie
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, duration_min, description, created_at FROM movies WHERE id = ?`, id,
	).Scan(&m.ID, &m.Title, &m.DurationMin, &m.Description, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return &m, nil
}

// List returns movies ordered by title, optionally filtered by a
// case-insensitive title substring.
func (r *MovieRepo) List(ctx context.Context, titleQuery string) ([]model.Movie, error) {
	q := `SELECT id, title, duration_min, description, created_at FROM movies`
	args := []interface{}{}
	if titleQuery != "" {
		q += ` WHERE title LIKE ?`
		args = append(args, "%"+titleQuery+"%")
	}
	q += ` ORDER BY title`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Movie, 0)
	for rows.Next() {
		var m model.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.DurationMin, &m.Description, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes a movie; ErrMovieNotFound when absent.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMovieNotFound
	}
	return nil
}
