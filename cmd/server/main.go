package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/movie-seat-booking/internal/config"   // Internal config loader
	"github.com/iliyamo/movie-seat-booking/internal/database" // MySQL connection setup
	"github.com/iliyamo/movie-seat-booking/internal/handler"  // HTTP handlers
	"github.com/iliyamo/movie-seat-booking/internal/queue"    // RabbitMQ booking events
	"github.com/iliyamo/movie-seat-booking/internal/repository"
	"github.com/iliyamo/movie-seat-booking/internal/router" // Internal router setup
	"github.com/iliyamo/movie-seat-booking/internal/service"
)

func main() {
	_ = godotenv.Load() // Load .env when present; real env always wins

	cfg := config.Load() // Load environment config
	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // May be nil; limiter and cache degrade gracefully
	if rdb == nil {
		log.Println("redis unavailable: rate limiting and catalog cache disabled")
	}

	// Repositories
	userRepo := repository.NewUserRepo(db)
	cinemaRepo := repository.NewCinemaRepo(db)
	movieRepo := repository.NewMovieRepo(db)
	showRepo := repository.NewShowRepo(db)
	ledgerRepo := repository.NewSeatLedgerRepo(db)
	bookingRepo := repository.NewBookingRepo(db)

	// The reservation engine carries the hold TTL and per-user cap from
	// configuration; everything else uses its defaults.
	reservations := service.NewReservationService(
		showRepo, ledgerRepo, bookingRepo,
		service.WithHoldTTL(cfg.HoldTTL),
		service.WithMaxHolds(cfg.MaxHeldSeats),
	)

	// Handlers
	authHandler := handler.NewAuthHandler(userRepo, cfg)
	catalogHandler := handler.NewCatalogHandler(cinemaRepo, movieRepo)
	showHandler := handler.NewShowHandler(showRepo, ledgerRepo, reservations)
	bookingHandler := handler.NewBookingHandler(reservations, bookingRepo)

	e := echo.New() // Create Echo instance
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterPublic(e, catalogHandler, showHandler, cacheCfg, rdb)
	router.RegisterBooking(e, bookingHandler, cfg.JWTSecret, rlCfg, rdb)
	router.RegisterAdmin(e, catalogHandler, showHandler, cfg.JWTSecret)

	// Consume booking.confirmed events in the background. The consumer
	// reconnects on its own; a missing broker never blocks startup.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err)
	}
}
