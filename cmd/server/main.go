package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // request logging and panic recovery
	"github.com/labstack/gommon/log"                // log levels

	"github.com/iliyamo/movie-ticket-storefront/internal/config"
	"github.com/iliyamo/movie-ticket-storefront/internal/database"
	"github.com/iliyamo/movie-ticket-storefront/internal/handler"
	"github.com/iliyamo/movie-ticket-storefront/internal/middleware"
	"github.com/iliyamo/movie-ticket-storefront/internal/model"
	"github.com/iliyamo/movie-ticket-storefront/internal/queue"
	"github.com/iliyamo/movie-ticket-storefront/internal/repository"
	"github.com/iliyamo/movie-ticket-storefront/internal/router"
	"github.com/iliyamo/movie-ticket-storefront/internal/service"
)

// stores bundles the persistence the services run on.  db is nil for the
// in-memory store.
type stores struct {
	db       *sql.DB
	shows    service.ShowStore
	catalog  service.CatalogStore
	bookings service.BookingStore
	stats    service.StatsStore
	users    handler.UserStore
	tokens   handler.TokenStore
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.Store == config.StoreMemory {
		m := repository.NewMemoryStore()
		return stores{shows: m, catalog: m, bookings: m, stats: m, users: m, tokens: m}, nil
	}
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return stores{}, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return stores{}, err
	}
	return stores{
		db:       db,
		shows:    repository.NewShowRepo(db),
		catalog:  repository.NewCatalogRepo(db),
		bookings: repository.NewBookingRepo(db),
		stats:    repository.NewStatsRepo(db),
		users:    repository.NewUserRepo(db),
		tokens:   repository.NewTokenRepo(db),
	}, nil
}

func logLevel(s string) log.Lvl {
	switch s {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	}
	return log.INFO
}

func main() {
	cfg := config.Load() // Load environment config

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(logLevel(cfg.LogLevel))
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			c.Logger().Infof("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		e.Logger.Fatalf("open %s store: %v", cfg.Store, err)
	}

	if cfg.SeedDemo {
		if movies, err := st.catalog.ListMovies(ctx); err == nil && len(movies) == 0 {
			if err := service.SeedDemo(ctx, st.catalog, st.shows, time.Now()); err != nil {
				e.Logger.Fatalf("seed demo data: %v", err)
			}
			e.Logger.Info("seeded demo theatres, movies and shows")
		}
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		_, err := st.users.CreateUser(ctx, cfg.AdminEmail, "Administrator", cfg.AdminPassword, model.RoleAdmin, cfg.BcryptCost)
		if err != nil && !errors.Is(err, repository.ErrEmailExists) {
			e.Logger.Fatalf("create admin account: %v", err)
		}
	}

	// Booking events are optional; without a broker bookings still work.
	var events service.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		pub := queue.NewPublisher(cfg.RabbitURL, e.Logger)
		defer pub.Close()
		events = pub

		audit := &queue.AuditConsumer{URL: cfg.RabbitURL, Dir: cfg.BookingLogDir, Logger: e.Logger}
		go func() {
			if err := audit.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				e.Logger.Warnf("booking-consumer stopped: %v", err)
			}
		}()
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		e.Logger.Warn("redis unavailable: rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	bookings := service.NewBookingService(st.shows, st.bookings, events, e.Logger)
	bookings.MaxSeats = cfg.MaxSeatsPerBooking
	shows := service.NewShowService(st.shows, st.catalog)
	catalog := service.NewCatalogService(st.catalog)
	stats := service.NewStatsService(st.stats, cfg.StatsTopMovies, cfg.StatsRecentBookings)

	var pinger handler.Pinger
	if st.db != nil {
		pinger = st.db
	}
	router.RegisterRoutes(e, pinger)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, st.users, st.tokens), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewShowHandler(shows, bookings), cache)
	router.RegisterCustomer(e, handler.NewBookingHandler(bookings), cfg.JWTSecret, limiter)
	router.RegisterAdmin(e, handler.NewAdminHandler(shows, catalog, bookings, stats), cfg.JWTSecret)

	addr := ":" + cfg.Port
	e.Logger.Infof("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.Store)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Errorf("shutdown: %v", err)
	}
	if st.db != nil {
		_ = st.db.Close()
	}
}
