package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-seat-booking/internal/config"
	"github.com/iliyamo/movie-seat-booking/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/movie-seat-booking/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// The health endpoint can be used by load balancers or monitoring
	// systems to verify that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers authentication routes and the profile endpoint.
// Unauthenticated operations live under /v1/auth, while the protected
// /v1/me endpoint sits behind the JWT middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers unauthenticated browse endpoints: the cinema
// and movie catalog plus show listings and the per-show seat map.  The
// catalog reads go through the Redis response cache; the seat map does
// not, because it must always reflect the live ledger.
func RegisterPublic(e *echo.Echo, cat *handler.CatalogHandler, shows *handler.ShowHandler, cacheCfg config.CacheConfig, rdb *redis.Client) {
	cached := middleware.NewCatalogCache(cacheCfg, rdb)

	e.GET("/v1/cinemas", cat.ListCinemas, cached)
	e.GET("/v1/cinemas/:id", cat.GetCinema, cached)
	e.GET("/v1/movies", cat.ListMovies, cached)
	e.GET("/v1/movies/:id", cat.GetMovie, cached)

	e.GET("/v1/shows", shows.ListShows)
	e.GET("/v1/shows/:id", shows.GetShow)
}
