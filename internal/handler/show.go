package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-seat-booking/internal/model"
	"github.com/iliyamo/movie-seat-booking/internal/repository"
	"github.com/iliyamo/movie-seat-booking/internal/service"
)

// ShowHandler serves show scheduling (admin) and show browsing (public).
// The public detail endpoint runs the expiry sweeper before reading the
// seat ledger so clients see a seat map with stale holds already purged.
type ShowHandler struct {
	Shows        *repository.ShowRepo
	Ledger       *repository.SeatLedgerRepo
	Reservations *service.ReservationService
}

// NewShowHandler constructs a ShowHandler with the provided dependencies.
func NewShowHandler(shows *repository.ShowRepo, ledger *repository.SeatLedgerRepo, res *service.ReservationService) *ShowHandler {
	if shows == nil || ledger == nil || res == nil {
		panic("nil dependency passed to NewShowHandler")
	}
	return &ShowHandler{Shows: shows, Ledger: ledger, Reservations: res}
}

type showReq struct {
	CinemaID     uint64 `json:"cinema_id"`
	MovieID      uint64 `json:"movie_id"`
	ScreenNumber uint32 `json:"screen_number"`
	StartsAt     string `json:"starts_at"` // RFC3339
	SeatCount    uint32 `json:"seat_count"`
}

func (r showReq) toModel() (*model.Show, error) {
	if r.CinemaID == 0 || r.MovieID == 0 || r.ScreenNumber == 0 || r.StartsAt == "" {
		return nil, errors.New("cinema_id, movie_id, screen_number and starts_at are required")
	}
	startsAt, err := time.Parse(time.RFC3339, r.StartsAt)
	if err != nil {
		return nil, errors.New("starts_at must be RFC3339")
	}
	return &model.Show{
		CinemaID:     r.CinemaID,
		MovieID:      r.MovieID,
		ScreenNumber: r.ScreenNumber,
		StartsAt:     startsAt.UTC(),
		SeatCount:    r.SeatCount,
	}, nil
}

// CreateShow handles POST /v1/admin/shows.
func (h *ShowHandler) CreateShow(c echo.Context) error {
	var body showReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	show, err := body.toModel()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Shows.Create(c.Request().Context(), show); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create show"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"show": show})
}

// UpdateShow handles PUT /v1/admin/shows/:id.
func (h *ShowHandler) UpdateShow(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	var body showReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	show, err := body.toModel()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	show.ID = id
	if err := h.Shows.Update(c.Request().Context(), show); err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update show"})
	}
	updated, err := h.Shows.GetByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load show"})
	}
	return c.JSON(http.StatusOK, echo.Map{"show": updated})
}

// DeleteShow handles DELETE /v1/admin/shows/:id.  A show with seats in
// its ledger cannot be deleted; such attempts surface as a conflict.
func (h *ShowHandler) DeleteShow(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	if err := h.Shows.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusConflict, echo.Map{"error": "show has seat activity"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListShows handles GET /v1/shows?cinema_id=&movie_id=.  It returns
// upcoming shows for the cinema and movie, soonest first.
func (h *ShowHandler) ListShows(c echo.Context) error {
	cinemaID, err1 := strconv.ParseUint(c.QueryParam("cinema_id"), 10, 64)
	movieID, err2 := strconv.ParseUint(c.QueryParam("movie_id"), 10, 64)
	if err1 != nil || err2 != nil || cinemaID == 0 || movieID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cinema_id and movie_id are required"})
	}
	shows, err := h.Shows.ListUpcoming(c.Request().Context(), cinemaID, movieID, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load shows"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": shows})
}

// GetShow handles GET /v1/shows/:id.  It sweeps expired holds first and
// then returns the show together with its current seat map, so guests
// never see seats blocked by long-dead holds.
func (h *ShowHandler) GetShow(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	ctx := c.Request().Context()
	show, err := h.Shows.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load show"})
	}

	h.Reservations.Sweep(ctx, id)

	state, err := h.Ledger.SeatState(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seat state"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"show":  show,
		"seats": seatStateResponse(state, h.Reservations.HoldTTL()),
	})
}
