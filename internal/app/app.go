package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/kart-pos/internal/domain/auth"
	"github.com/xenking/kart-pos/internal/domain/inventory"
	"github.com/xenking/kart-pos/internal/domain/product"
	"github.com/xenking/kart-pos/internal/domain/register"
	"github.com/xenking/kart-pos/internal/domain/sale"
	"github.com/xenking/kart-pos/internal/handler"
	"github.com/xenking/kart-pos/internal/repository"
	"github.com/xenking/kart-pos/pkg/health"
	"github.com/xenking/kart-pos/pkg/httpmiddleware"
)

const serviceName = "kart-pos"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	taxRate, err := cfg.Tax()
	if err != nil {
		return err
	}

	products, sales, closeStore, err := openStore(ctx, lg, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.Inventory.SeedDemoCatalog {
		n, err := inventory.SeedDemoCatalog(ctx, products)
		if err != nil {
			return errors.Wrap(err, "seed demo catalog")
		}
		if n > 0 {
			lg.Info("Seeded demo catalog", zap.Int("products", n))
		}
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.Register(health.Liveness, "goroutines", time.Second, health.GoroutineLimit(10000))
	healthSvc.Register(health.Readiness, "store", 5*time.Second, health.Ping(products))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Domain services.
	tokens, err := auth.NewTokenManager(cfg.Auth.TokenConfig())
	if err != nil {
		return errors.Wrap(err, "create token manager")
	}
	store := inventory.NewStore(products, cfg.Inventory.Policy())
	reg, err := register.NewService(products, sales, register.Config{
		TaxRate:        taxRate,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create register")
	}

	// Router: health probes + authenticated API. Route-aware middleware runs
	// inside chi so the matched pattern is known.
	root := chi.NewRouter()
	root.Use(
		httpmiddleware.Instrument(serviceName, httpmiddleware.ChiRoute, m),
		httpmiddleware.LogRequests(httpmiddleware.ChiRoute),
	)
	healthSvc.Mount(root)
	root.Mount("/api", handler.NewHandler(store, reg).Routes(tokens))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(root,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				Origins:          cfg.CORS.Origins,
				Headers:          []string{"Content-Type", "Authorization"},
				Expose:           []string{httpmiddleware.HeaderRequestID, "Location", "Retry-After"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				RPS:     cfg.RateLimit.RPS,
				Burst:   cfg.RateLimit.Burst,
				IdleTTL: cfg.RateLimit.IdleTTL,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// openStore returns the PostgreSQL repositories when databaseURL is set and
// the in-memory ones otherwise.
func openStore(ctx context.Context, lg *zap.Logger, databaseURL string) (product.Repository, sale.Repository, func(), error) {
	if databaseURL == "" {
		lg.Info("Using in-memory store")
		return repository.NewMemoryProductRepository(), repository.NewMemorySaleRepository(), func() {}, nil
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "create db pool")
	}
	if err := repository.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, errors.Wrap(err, "run migrations")
	}
	lg.Info("Using PostgreSQL store")
	return repository.NewProductRepository(pool), repository.NewSaleRepository(pool), pool.Close, nil
}
