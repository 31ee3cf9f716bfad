package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/Arminmow/weather-dashboard-nadin-soft/internal/api/http"
	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/config"
	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/logger"
	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/observe"
	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/scheduler"
	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/store"
	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/weather"
	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/weather/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	writers := []io.Writer{os.Stdout}
	hook, err := observe.NewSentryHook(cfg.AppEnv, cfg.AppName, cfg.SentryDSN, cfg.IsDevelopment())
	if err != nil {
		log.Printf("sentry disabled: %v", err)
	}
	if hook != nil {
		writers = append(writers, hook)
		defer hook.Flush()
	}

	l := logger.NewZapLogger(logger.Options{
		AppName: cfg.AppName,
		AppEnv:  cfg.AppEnv,
		Level:   cfg.LogLevel,
	}, writers...)
	defer func() { _ = l.Stop() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	lookupOpts := providers.LookupOptions{
		ClientOptions: providers.ClientOptions{BaseURL: cfg.GeocodingBaseURL, MaxRetries: cfg.HTTPMaxRetries},
		Limit:         cfg.LookupLimit,
		CacheTTL:      cfg.LookupCacheTTL,
	}
	var lookup weather.LocationLookup
	switch cfg.LookupProvider {
	case "google":
		lookup = providers.NewGoogleLookup(cfg.GoogleGeocoderAPIKey, lookupOpts, l)
	default:
		lookup = providers.NewOpenWeatherLookup(httpClient, cfg.OpenWeatherAPIKey, lookupOpts, l)
	}

	snapshots := providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey, providers.ClientOptions{
		BaseURL:    cfg.WeatherAPIBaseURL,
		MaxRetries: cfg.HTTPMaxRetries,
	})
	historical := providers.NewOpenMeteoProvider(httpClient, providers.ClientOptions{
		BaseURL:    cfg.ArchiveBaseURL,
		MaxRetries: cfg.HTTPMaxRetries,
	})

	cache, err := store.New(ctx, store.Options{
		Backend:        cfg.CacheBackend,
		Path:           cfg.CachePath,
		RedisURL:       cfg.RedisURL,
		RedisKeyPrefix: cfg.RedisKeyPrefix,
		Logger:         l,
	})
	if err != nil {
		l.Fatal("cannot open result cache", map[string]any{"backend": cfg.CacheBackend, "err": err.Error()})
	}
	defer cache.Close()

	coordinator := weather.NewCoordinator(lookup, snapshots, historical, cache, l, weather.Options{
		DebounceDelay: cfg.DebounceDelay,
		DefaultCity:   cfg.DefaultCity.City(),
	})
	coordinator.Start(ctx)
	defer coordinator.Close()

	sched := scheduler.New(cfg.RefreshInterval, coordinator, l)
	if err := sched.Start(); err != nil {
		l.Fatal("failed to start scheduler", map[string]any{"err": err.Error()})
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": cfg.AppName,
			"phase":   coordinator.State().Phase,
		})
	})

	httpapi.RegisterRoutes(app, coordinator, lookup)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			l.Error(err, map[string]any{"port": cfg.Port})
			stop()
		}
	}()

	l.Info("application started", map[string]any{
		"port":    cfg.Port,
		"cache":   cfg.CacheBackend,
		"lookup":  lookup.Name(),
		"refresh": cfg.RefreshInterval.String(),
	})

	<-ctx.Done()
	l.Warning("stopping application services")

	// Ends open event streams so the server can drain.
	coordinator.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		l.Error(err)
	}
}
