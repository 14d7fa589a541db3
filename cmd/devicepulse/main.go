package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devicepulse/devicepulse/internal/bulk"
	"github.com/devicepulse/devicepulse/internal/config"
	"github.com/devicepulse/devicepulse/internal/dispatch"
	"github.com/devicepulse/devicepulse/internal/dlq"
	"github.com/devicepulse/devicepulse/internal/handlers"
	"github.com/devicepulse/devicepulse/internal/logging"
	"github.com/devicepulse/devicepulse/internal/ratelimit"
	"github.com/devicepulse/devicepulse/internal/server"
	"github.com/devicepulse/devicepulse/internal/storage"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("devicepulse"))
	logging.SetDefault(logger)

	slog.Info("Starting DevicePulse bridge",
		slog.Int("port", cfg.Server.Port),
		slog.String("engine_mode", cfg.Engine.Mode),
		slog.String("engine_endpoint", cfg.Engine.Endpoint),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
	)
	if *configPath != "" {
		slog.Info("Loaded configuration", slog.String("config_path", *configPath))
	}

	// Initialize the engine client. In aws mode this resolves signing
	// credentials from the environment and refuses to start without them.
	engineCtx, engineCancel := context.WithTimeout(context.Background(), 30*time.Second)
	engine, err := storage.NewEngine(engineCtx, cfg.Engine)
	engineCancel()
	if err != nil {
		log.Fatalf("Failed to create engine client: %v", err)
	}
	log.Printf("Engine client ready (mode: %s, endpoint: %s)", engine.Name(), cfg.Engine.Endpoint)

	// An unreachable engine is not fatal; readiness reports it until it
	// comes back.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := engine.Ping(pingCtx); err != nil {
		log.Printf("WARNING: engine not reachable at startup: %v", err)
	}
	pingCancel()

	// Initialize rate limiter
	var rateLimiter ratelimit.RateLimiter
	if cfg.Redis.Enabled && cfg.Ingestion.RateLimitEnabled {
		log.Printf("Initializing Redis rate limiter: %s", cfg.Redis.URL)
		limiter, err := ratelimit.NewRedisRateLimiter(
			cfg.Redis.URL,
			cfg.Ingestion.RateLimitRequests,
			cfg.Ingestion.RateLimitWindow,
		)
		if err != nil {
			log.Printf("WARNING: Failed to initialize Redis rate limiter: %v", err)
			log.Println("Continuing without rate limiting")
			rateLimiter = &ratelimit.NoOpRateLimiter{}
		} else {
			rateLimiter = limiter
			log.Printf("Rate limiting enabled: %d requests per %s", cfg.Ingestion.RateLimitRequests, cfg.Ingestion.RateLimitWindow)
		}
	} else {
		rateLimiter = &ratelimit.NoOpRateLimiter{}
		if !cfg.Redis.Enabled {
			log.Println("Redis disabled - rate limiting not available")
		}
	}
	defer rateLimiter.Close()

	// Initialize Dead Letter Queue
	var deadLetter dispatch.DeadLetter
	if cfg.DLQ.Enabled {
		switch cfg.DLQ.Backend {
		case "jetstream":
			jsQueue, err := dlq.NewJetStreamQueue(context.Background(), cfg.DLQ.NATSURL)
			if err != nil {
				log.Fatalf("Failed to initialize JetStream DLQ: %v", err)
			}
			defer jsQueue.Close()
			deadLetter = jsQueue
			log.Printf("Dead Letter Queue enabled (backend: jetstream, nats: %s)", cfg.DLQ.NATSURL)
		case "file":
			fileQueue, err := dlq.NewQueue(cfg.DLQ.Path)
			if err != nil {
				log.Fatalf("Failed to initialize file DLQ: %v", err)
			}
			deadLetter = fileQueue
			log.Printf("Dead Letter Queue enabled (backend: file, path: %s)", cfg.DLQ.Path)
			log.Println("WARNING: File-based DLQ does not support multiple bridge instances")
		default:
			log.Fatalf("Unknown DLQ backend: %s (supported: jetstream, file)", cfg.DLQ.Backend)
		}
	} else {
		log.Println("Dead Letter Queue disabled")
	}

	// Assemble the pipeline
	builder := bulk.NewBuilder(bulk.Indices{
		Notifications: cfg.Engine.Indices.Notifications,
		Devices:       cfg.Engine.Indices.Devices,
		Registrations: cfg.Engine.Indices.Registrations,
	})
	dispatcher := dispatch.New(engine, builder, deadLetter, logger)

	handler := handlers.NewCallbackHandler(dispatcher, engine, rateLimiter, logger, int64(cfg.Ingestion.MaxBodySize))
	router := server.NewRouter(handler)

	// Create server with config values
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("DevicePulse bridge listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
