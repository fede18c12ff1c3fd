package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"engram/internal/auth"
	"engram/internal/config"
	"engram/internal/engine"
	"engram/internal/graph"
	"engram/internal/handler"
	"engram/internal/ingest"
	"engram/internal/middleware"
	"engram/internal/repository/postgres"
	"engram/internal/stream"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		f, err := config.SetupLogFile(cfg.LogDir, "ingestd", 10)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer f.Close()
		logOut = io.MultiWriter(os.Stdout, f)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("ingestd starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	ctx := context.Background()

	// Journal database
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("journal database connected")

	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to ensure journal schema: %v", err)
	}

	journal := postgres.NewJournalRepository(&postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	})

	// Event transport
	brokers := strings.Split(cfg.KafkaBrokers, ",")
	publisher := stream.NewPublisher(brokers, stream.TopicParsedEvents, logger)
	defer publisher.Close()

	// Redaction rules
	redactor, err := ingest.NewRedactor()
	if err != nil {
		log.Fatalf("Failed to build redactor: %v", err)
	}

	// Graph client, read path only
	graphClient := graph.NewNeo4jClient(cfg.GraphURI, cfg.GraphUser, cfg.GraphPassword, "", logger)
	if err := graphClient.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to graph: %v", err)
	}
	defer graphClient.Disconnect(ctx)

	ingestHandler := handler.NewIngestHandler(ingest.DefaultProviders(), redactor, journal, publisher, logger)
	timelineHandler := handler.NewTimelineHandler(engine.NewReplayer(graphClient), logger)

	logger.Info("services initialized")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", ingestHandler.HealthCheck)
	mux.HandleFunc("POST /api/events", ingestHandler.Ingest)
	mux.HandleFunc("GET /api/deadletters", ingestHandler.DeadLetters)
	mux.HandleFunc("GET /api/sessions/{id}/timeline", timelineHandler.GetTimeline)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	if cfg.JWKSURL != "" {
		verifier, err := auth.NewTokenVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create token verifier: %v", err)
		}
		defer verifier.Close()
		h = middleware.Auth(verifier, logger)(h)
	} else if cfg.Environment == "prod" {
		log.Fatal("JWKS_URL is required in prod")
	} else {
		logger.Warn("auth disabled: no JWKS_URL configured")
	}
	h = middleware.Recovery(logger)(h)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server starting", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
