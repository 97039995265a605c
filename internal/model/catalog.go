package model

import "time"

// Cinema is a venue that screens movies.  Managed by admin CRUD only;
// the booking engine never touches cinemas directly.
type Cinema struct {
	ID        uint64    `json:"id"`         // cinemas.id
	Name      string    `json:"name"`       // cinemas.name
	Location  string    `json:"location"`   // cinemas.location
	CreatedAt time.Time `json:"created_at"` // cinemas.created_at
}

// Movie is a film that can be scheduled into shows.
type Movie struct {
	ID          uint64    `json:"id"`           // movies.id
	Title       string    `json:"title"`        // movies.title
	DurationMin uint32    `json:"duration_min"` // movies.duration_min
	Description string    `json:"description"`  // movies.description
	CreatedAt   time.Time `json:"created_at"`   // movies.created_at
}
