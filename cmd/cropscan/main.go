package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/AtharvDutare/Scan-Crop/internal/api/http"
	"github.com/AtharvDutare/Scan-Crop/internal/auth"
	"github.com/AtharvDutare/Scan-Crop/internal/catalog"
	"github.com/AtharvDutare/Scan-Crop/internal/config"
	"github.com/AtharvDutare/Scan-Crop/internal/fetch"
	"github.com/AtharvDutare/Scan-Crop/internal/logging"
	"github.com/AtharvDutare/Scan-Crop/internal/metrics"
	"github.com/AtharvDutare/Scan-Crop/internal/scan"
	"github.com/AtharvDutare/Scan-Crop/internal/scheduler"
	"github.com/AtharvDutare/Scan-Crop/internal/store"
	"github.com/AtharvDutare/Scan-Crop/internal/weather"
	"github.com/AtharvDutare/Scan-Crop/internal/weather/providers"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cropscan: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(registry)

	weatherService, err := initWeather(logger, cfg, recorder)
	if err != nil {
		return err
	}
	defer weatherService.Close()

	memStore := store.NewMemoryStore()
	authService := auth.NewService(logger, memStore, auth.LogMailer{Logger: logger}, auth.Config{
		SessionTTL:      cfg.Auth.SessionTTL,
		VerificationTTL: cfg.Auth.VerificationTTL,
		BcryptCost:      cfg.Auth.BcryptCost,
	})

	cat, err := catalog.Load(time.Now())
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	scanner := scan.NewScanner(logger, cat, cfg.Scan.StepInterval, fetch.WithRecorder(recorder))
	defer scanner.Close()

	sched := scheduler.New(logger, memStore, cfg.Auth.PruneInterval)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	app := newApp(logger, registry, recorder)
	httpapi.RegisterRoutes(app, httpapi.Services{
		Weather: weatherService,
		Auth:    authService,
		Scanner: scanner,
		Catalog: cat,
		Logger:  logger,
		Done:    ctx.Done(),
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Msg("HTTP server listening")
		return app.Listen(":" + cfg.Port)
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		auditAuthEvents(gctx, logger, authService)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("Server stopped")
	return nil
}

func initWeather(logger *zerolog.Logger, cfg *config.AppConfig, recorder fetch.Recorder) (*weather.Service, error) {
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provider, err := providers.New(cfg.Weather.Provider, httpClient, cfg.Weather.APIKey(),
		providers.WithLogger(logger),
		providers.WithBackoff(providers.BackoffConfig{
			MaxRetries:      cfg.Weather.MaxRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create weather provider: %w", err)
	}
	if cfg.Weather.APIKey() == "" {
		logger.Warn().Str("provider", provider.Name()).Msg("Weather API key is not set; lookups will fail")
	}

	opts := []fetch.Option{
		fetch.WithWorkers(cfg.Weather.Workers),
		fetch.WithCallTimeout(cfg.Weather.CallTimeout),
		fetch.WithRecorder(recorder),
	}
	if cfg.Weather.Supersede {
		opts = append(opts, fetch.WithSupersede())
	}

	return weather.NewService(logger, provider, opts...), nil
}

func newApp(logger *zerolog.Logger, registry *prometheus.Registry, recorder *metrics.PrometheusRecorder) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "cropscan",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler(logger),
	})

	app.Use(requestid.New())
	app.Use(httpapi.RequestLogger(logger, recorder))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "cropscan",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return app
}

// auditAuthEvents writes every auth event to the log until ctx is done.
func auditAuthEvents(ctx context.Context, logger *zerolog.Logger, svc *auth.Service) {
	for ev := range svc.Watch(ctx) {
		logger.Info().
			Str("event", string(ev.Kind)).
			Str("user_id", ev.User.ID).
			Time("at", ev.At).
			Msg("Auth event")
	}
}
