package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-seat-booking/internal/handler"
	"github.com/iliyamo/movie-seat-booking/internal/middleware"
)

// RegisterAdmin registers catalog and show management endpoints under
// /v1/admin.  Every route requires a valid JWT with the ADMIN role.
func RegisterAdmin(e *echo.Echo, cat *handler.CatalogHandler, shows *handler.ShowHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)

	g.POST("/cinemas", cat.CreateCinema)
	g.DELETE("/cinemas/:id", cat.DeleteCinema)

	g.POST("/movies", cat.CreateMovie)
	g.DELETE("/movies/:id", cat.DeleteMovie)

	g.POST("/shows", shows.CreateShow)
	g.PUT("/shows/:id", shows.UpdateShow)
	g.DELETE("/shows/:id", shows.DeleteShow)
}
