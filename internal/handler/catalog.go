package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-seat-booking/internal/model"
	"github.com/iliyamo/movie-seat-booking/internal/repository"
)

// CatalogHandler serves the cinema and movie catalog.  Reads are public
// and sit behind the response cache; writes are admin-only.
type CatalogHandler struct {
	Cinemas *repository.CinemaRepo
	Movies  *repository.MovieRepo
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(cinemas *repository.CinemaRepo, movies *repository.MovieRepo) *CatalogHandler {
	if cinemas == nil || movies == nil {
		panic("nil dependency passed to NewCatalogHandler")
	}
	return &CatalogHandler{Cinemas: cinemas, Movies: movies}
}

// CreateCinema handles POST /v1/admin/cinemas.
func (h *CatalogHandler) CreateCinema(c echo.Context) error {
	var body struct {
		Name     string `json:"name"`
		Location string `json:"location"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(body.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	cinema := &model.Cinema{Name: body.Name, Location: body.Location}
	if err := h.Cinemas.Create(c.Request().Context(), cinema); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create cinema"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"cinema": cinema})
}

// ListCinemas handles GET /v1/cinemas.
func (h *CatalogHandler) ListCinemas(c echo.Context) error {
	items, err := h.Cinemas.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load cinemas"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetCinema handles GET /v1/cinemas/:id.
func (h *CatalogHandler) GetCinema(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cinema id"})
	}
	cinema, err := h.Cinemas.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrCinemaNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "cinema not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load cinema"})
	}
	return c.JSON(http.StatusOK, echo.Map{"cinema": cinema})
}

// DeleteCinema handles DELETE /v1/admin/cinemas/:id.  A cinema that
// still has shows scheduled is protected by a foreign key and the
// delete surfaces as a conflict.
func (h *CatalogHandler) DeleteCinema(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cinema id"})
	}
	if err := h.Cinemas.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrCinemaNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "cinema not found"})
		}
		return c.JSON(http.StatusConflict, echo.Map{"error": "cinema has scheduled shows"})
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateMovie handles POST /v1/admin/movies.
func (h *CatalogHandler) CreateMovie(c echo.Context) error {
	var body struct {
		Title       string `json:"title"`
		DurationMin uint32 `json:"duration_min"`
		Description string `json:"description"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(body.Title) == "" || body.DurationMin == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and duration_min are required"})
	}
	movie := &model.Movie{Title: body.Title, DurationMin: body.DurationMin, Description: body.Description}
	if err := h.Movies.Create(c.Request().Context(), movie); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create movie"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"movie": movie})
}

// ListMovies handles GET /v1/movies?q=.  The optional q parameter
// filters by title substring.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
	items, err := h.Movies.List(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load movies"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetMovie handles GET /v1/movies/:id.
func (h *CatalogHandler) GetMovie(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	movie, err := h.Movies.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load movie"})
	}
	return c.JSON(http.StatusOK, echo.Map{"movie": movie})
}

// DeleteMovie handles DELETE /v1/admin/movies/:id.
func (h *CatalogHandler) DeleteMovie(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	if err := h.Movies.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return c.JSON(http.StatusConflict, echo.Map{"error": "movie has scheduled shows"})
	}
	return c.NoContent(http.StatusNoContent)
}
