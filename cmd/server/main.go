package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/thevishaljaiswal/dev-approve-flow/internal/client"
	"github.com/thevishaljaiswal/dev-approve-flow/internal/config"
	"github.com/thevishaljaiswal/dev-approve-flow/internal/handler"
	"github.com/thevishaljaiswal/dev-approve-flow/internal/logger"
	"github.com/thevishaljaiswal/dev-approve-flow/internal/middleware"
	"github.com/thevishaljaiswal/dev-approve-flow/internal/service"
	"github.com/thevishaljaiswal/dev-approve-flow/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Deviation Approvals Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the request store
	var requestStore store.Store
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pg, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
		requestStore = pg
		log.Info().Msg("Database connection established")
	default:
		requestStore = store.NewMemoryStore()
		log.Info().Msg("Using in-memory request store")
	}
	defer requestStore.Close()

	// Initialize the workflow event stream (optional)
	var events *client.EventPublisher
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name(cfg.Service.Name))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer nc.Drain()
		events = client.NewEventPublisher(nc, log.Logger)
		log.Info().Str("nats_url", cfg.NATS.URL).Msg("Workflow event stream connected")
	} else {
		log.Info().Msg("NATS_URL not set; workflow events disabled")
	}

	// Initialize services
	deviationService := service.NewDeviationService(requestStore, events, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(deviationService, log)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Deviation routes
	mux.HandleFunc("/api/v1/deviations", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListRequests(w, r)
		case http.MethodPost:
			httpHandler.CreateRequest(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("GET /api/v1/deviations/get", httpHandler.GetRequest)
	mux.HandleFunc("GET /api/v1/deviations/pending", httpHandler.ListPendingApprovals)
	mux.HandleFunc("POST /api/v1/deviations/approve", httpHandler.ApproveRequest)
	mux.HandleFunc("POST /api/v1/deviations/reject", httpHandler.RejectRequest)

	// Apply middleware
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(30 * time.Second)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
