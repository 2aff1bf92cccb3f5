package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"status-hub/config"
	"status-hub/internal/adapter/gateway"
	adapterhandler "status-hub/internal/adapter/handler"
	"status-hub/internal/adapter/repository"
	infracache "status-hub/internal/infrastructure/cache"
	"status-hub/internal/infrastructure/events"
	infratoken "status-hub/internal/infrastructure/token"
	"status-hub/internal/usecase"
	appmiddleware "status-hub/middleware"
	"status-hub/utils/logger"
	"status-hub/utils/otel"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Handle healthcheck subcommand (for Docker healthcheck in distroless image)
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		if err := runHealthcheck(); err != nil {
			fmt.Fprintf(os.Stderr, "Healthcheck failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	startedAt := time.Now()

	// Initialize OpenTelemetry
	otelCfg := otel.ConfigFromEnv()
	otelShutdown, err := otel.InitProvider(ctx, otelCfg)
	if err != nil {
		slog.Warn("failed to initialize OpenTelemetry, continuing without tracing", "error", err)
		otelCfg.Enabled = false
		otelShutdown = func(context.Context) error { return nil }
	}

	logger.Init(otelCfg.Enabled)

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "configuration loaded",
		"kratos_url", cfg.KratosURL,
		"port", cfg.Port,
		"debounce_window", cfg.DebounceWindow,
		"classify_timeout", cfg.ClassifyTimeout,
		"watch_interval", cfg.WatchInterval)

	// Infrastructure
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to profile store", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	profiles := repository.NewProfileRepository(pool, slog.Default())
	kratosGateway := gateway.NewKratosGateway(cfg.KratosURL, cfg.SessionToken, 5*time.Second)
	bus := events.NewBus()
	statusCache := infracache.NewStatusCache()
	jwtIssuer := infratoken.NewJWTIssuer(infratoken.JWTConfig{
		Secret:   cfg.StatusTokenSecret,
		Issuer:   cfg.StatusTokenIssuer,
		Audience: cfg.StatusTokenAudience,
		TTL:      cfg.StatusTokenTTL,
	})

	// Usecases
	classifier := usecase.NewClassifyStatus(profiles, slog.Default())
	verifierCfg := usecase.VerifierConfig{
		DebounceWindow:  cfg.DebounceWindow,
		ClassifyTimeout: cfg.ClassifyTimeout,
	}
	if otel.Metrics != nil {
		verifierCfg.Recorder = otel.Metrics
	}
	verifier := usecase.NewVerifier(bus, kratosGateway, classifier, statusCache, verifierCfg, slog.Default())
	verifier.Start()
	defer verifier.Close()

	watcher := gateway.NewSessionWatcher(kratosGateway, bus, cfg.WatchInterval, slog.Default())

	// Handlers
	statusHandler := adapterhandler.NewStatusHandler(verifier)
	refreshHandler := adapterhandler.NewRefreshHandler(verifier)
	validateHandler := adapterhandler.NewValidateHandler(verifier, jwtIssuer)
	eventsHandler := adapterhandler.NewEventsHandler(bus)
	healthHandler := adapterhandler.NewHealthHandler(profiles)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(appmiddleware.SecurityHeaders())
	e.Use(appmiddleware.RequestID())

	if otelCfg.Enabled {
		e.Use(otelecho.Middleware(otelCfg.ServiceName))
		e.Use(appmiddleware.OTelStatusMiddleware())
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			rctx := c.Request().Context()
			if v.Error == nil {
				slog.InfoContext(rctx, "request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				slog.ErrorContext(rctx, "request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))

	e.Use(middleware.Recover())

	refreshRL := appmiddleware.NewRateLimiter(ctx, "refresh", 30.0/60.0, 5) // 30 req/min
	eventsRL := appmiddleware.NewRateLimiter(ctx, "events", 120.0/60.0, 20) // 120 req/min

	e.GET("/status", statusHandler.Handle)
	e.GET("/status/stream", statusHandler.Stream)
	e.POST("/refresh", refreshHandler.Handle, refreshRL.Middleware())
	e.GET("/health", healthHandler.Handle)
	if cfg.StatusTokenSecret != "" {
		e.GET("/validate", validateHandler.Handle)
	} else {
		slog.WarnContext(ctx, "STATUS_TOKEN_SECRET not set, /validate is disabled")
	}

	internalGroup := e.Group("/internal", eventsRL.Middleware())
	if cfg.AuthSharedSecret != "" {
		internalGroup.Use(appmiddleware.InternalAuth(cfg.AuthSharedSecret))
	}
	internalGroup.POST("/events", eventsHandler.Handle)

	address := fmt.Sprintf(":%s", cfg.Port)
	logger.GlobalContext.LogDuration(ctx, "startup", time.Since(startedAt))
	slog.InfoContext(ctx, "starting status-hub server", "address", address)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return watcher.Run(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("shutting down server...")
		verifier.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return otelShutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited properly")
}

// runHealthcheck performs a health check against the local server.
func runHealthcheck() error {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8888"
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%s/health", port))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned status: %d", resp.StatusCode)
	}
	return nil
}
