// Package main is the entry point for the floor-plan API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/expohall/expohall/internal/api"
	"github.com/expohall/expohall/internal/auth"
	"github.com/expohall/expohall/internal/blob"
	"github.com/expohall/expohall/internal/config"
	"github.com/expohall/expohall/internal/exhibitor"
	"github.com/expohall/expohall/internal/export"
	"github.com/expohall/expohall/internal/floorplan"
	"github.com/expohall/expohall/internal/health"
	"github.com/expohall/expohall/internal/live"
	"github.com/expohall/expohall/internal/middleware"
	"github.com/expohall/expohall/internal/share"
	"github.com/expohall/expohall/internal/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("ExpoHall API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	logger.Info("configuration loaded", "summary", cfg.LogSummary())

	// Floor plan store: Postgres when configured, in-memory otherwise
	var repo floorplan.Repository
	var dbChecker health.Checker
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		repo = floorplan.NewPostgresRepository(db, logger)
		dbChecker = health.NewDBChecker(db)
		logger.Info("using postgres floor-plan store")
	} else {
		repo = floorplan.NewInMemoryRepository()
		logger.Warn("DATABASE_URL not set, using in-memory floor-plan store")
	}

	// Redis backs share tokens and rate limiting when available
	var redisClient *redis.Client
	var redisChecker health.Checker
	var shareStore share.Store = share.NewInMemoryStore()
	var rateLimitStore middleware.RateLimitStore = middleware.NewInMemoryRateLimitStore()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		shareStore = share.NewRedisStore(redisClient, logger)
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient)
		redisChecker = health.NewRedisChecker(redisClient)
		logger.Info("using redis share-token store")
	}

	shareService := share.NewService(shareStore, time.Duration(cfg.ShareTokenTTLHours)*time.Hour)

	// Export gateway; PDF/PNG need the external render service
	var renderer export.Renderer
	if cfg.RenderServiceURL != "" {
		renderer = export.NewHTTPRenderer(cfg.RenderServiceURL, nil, logger)
	} else {
		logger.Warn("RENDER_SERVICE_URL not set, pdf and png exports disabled")
	}
	gateway := export.NewGateway(renderer, time.Duration(cfg.RenderTimeoutSec)*time.Second)

	// Background image uploads via S3-compatible storage
	var blobService *blob.Service
	if cfg.S3BucketName != "" {
		var err error
		blobService, err = blob.NewService(blob.ServiceConfig{
			BucketName:      cfg.S3BucketName,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			MaxSizeMB:       cfg.S3MaxUploadSizeMB,
		})
		if err != nil {
			logger.Error("failed to initialize blob service", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("S3 not configured, background uploads disabled")
	}

	jwtService := auth.NewJWTServiceWithRotation(cfg.JWTSecret, cfg.JWTPreviousSecret)

	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "expohall-api",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporterType,
		OTLPEndpoint: cfg.TracingOTLPEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.TracingInsecure,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	metrics := middleware.NewMetrics()
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	broadcaster := live.NewEventBroadcaster()
	masterManager := floorplan.NewMasterManager(repo, logger)
	directory := exhibitor.NewInMemoryDirectory()

	mux := api.NewRouter(api.RouterConfig{
		FloorPlans:     api.NewFloorPlanHandlers(repo, masterManager, directory),
		Booths:         api.NewBoothHandlers(repo, broadcaster),
		Share:          api.NewShareHandlers(repo, shareService, gateway),
		Export:         api.NewExportHandlers(repo, gateway),
		Analytics:      api.NewAnalyticsHandlers(repo),
		Background:     api.NewBackgroundHandlers(repo, blobService),
		Live:           api.NewLiveHandlers(repo, broadcaster),
		Health:         api.NewHealthHandlers(dbChecker, redisChecker),
		MetricsHandler: promhttp.Handler(),
		ShareLimiter:   middleware.RateLimiter(rateLimitStore, middleware.DefaultShareLimit(), middleware.UserKeyFunc()),
		ExportLimiter:  middleware.RateLimiter(rateLimitStore, middleware.DefaultExportLimit(), middleware.UserKeyFunc()),
	})

	// Middleware chain, outermost first
	var handler http.Handler = mux
	handler = middleware.RateLimiter(rateLimitStore, middleware.DefaultGlobalLimit(), middleware.IPKeyFunc())(handler)
	handler = middleware.Authenticate(jwtService)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})(handler)
	handler = middleware.HTTPMetrics(metrics)(handler)
	handler = middleware.Logging(logger)(handler)
	if tracerProvider.IsEnabled() {
		handler = middleware.Tracing("expohall-api")(handler)
	}
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := tracerProvider.Shutdown(ctx); err != nil {
		logger.Error("failed to shut down tracer provider", "error", err)
	}

	logger.Info("server stopped")
}
