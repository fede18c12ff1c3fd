package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"engram/internal/blob"
	"engram/internal/config"
	"engram/internal/engine"
	"engram/internal/graph"
	"engram/internal/ingest"
	"engram/internal/pruner"
	"engram/internal/stream"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		f, err := config.SetupLogFile(cfg.LogDir, "memoryd", 10)
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

	logger.Info("memoryd starting",
		"environment", cfg.Environment,
		"brokers", cfg.KafkaBrokers,
		"graph_uri", cfg.GraphURI,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Graph store
	graphClient := graph.NewNeo4jClient(cfg.GraphURI, cfg.GraphUser, cfg.GraphPassword, "", logger)
	if err := graphClient.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to graph: %v", err)
	}
	defer graphClient.Disconnect(context.Background())

	logger.Info("graph connected")

	// Archive store for pruned nodes
	store, err := buildBlobStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create blob store: %v", err)
	}
	if store == nil {
		logger.Warn("no archive store configured, pruned nodes are deleted without archival")
	}

	brokers := strings.Split(cfg.KafkaBrokers, ",")

	// nodeCreated fan-out. Emission is best-effort: failures are logged,
	// never propagated into the handlers.
	notifyPublisher := stream.NewPublisher(brokers, stream.TopicNodeCreated, logger)
	defer notifyPublisher.Close()

	notify := func(n engine.NodeCreated) {
		if err := notifyPublisher.Publish(ctx, n.Session, n); err != nil {
			logger.Warn("node created notification dropped",
				"node_id", n.NodeID, "error", err)
		}
	}

	arena := engine.NewArena(graphClient, engine.NewDefaultRegistry(), logger, notify, cfg.ArenaTTL)
	go arena.Run(ctx, cfg.SweepInterval)

	// History pruning
	p := pruner.New(graphClient, store, logger)
	go p.Run(ctx, cfg.PruneInterval, cfg.Retention)

	// Event consumption. Partitioning by session id means each engine only
	// ever sees its session's events, in order.
	consumer := stream.NewConsumer(brokers, cfg.KafkaConsumerGroup, stream.TopicParsedEvents, logger)
	defer consumer.Close()

	logger.Info("consuming", "topic", stream.TopicParsedEvents, "group", cfg.KafkaConsumerGroup)

	err = consumer.Run(ctx, func(ctx context.Context, key, value []byte) error {
		var event ingest.ParsedEvent
		if err := json.Unmarshal(value, &event); err != nil {
			// Malformed messages cannot succeed on redelivery; drop them.
			logger.Error("malformed event dropped", "error", err)
			return nil
		}

		sessionID := string(key)
		if sessionID == "" && event.Session != nil {
			sessionID = event.Session.ID
		}
		if sessionID == "" {
			logger.Error("event without session dropped", "event_id", event.EventID)
			return nil
		}

		result, err := arena.Engine(sessionID).Apply(ctx, &event)
		if err != nil {
			return fmt.Errorf("apply event %s: %w", event.EventID, err)
		}

		logger.Debug("event applied",
			"session_id", sessionID,
			"event_id", event.EventID,
			"action", result.Action,
		)
		return nil
	})

	if err != nil && ctx.Err() == nil {
		log.Fatalf("Consumer stopped: %v", err)
	}
	logger.Info("memoryd stopped")
}

// buildBlobStore picks the archive backend from config. Returns nil when
// archival is disabled.
func buildBlobStore(ctx context.Context, cfg *config.Config) (pruner.ArchiveStore, error) {
	switch cfg.BlobBackend {
	case "gcs":
		if cfg.BlobBucket == "" {
			return nil, fmt.Errorf("BLOB_BUCKET is required for the gcs backend")
		}
		return blob.NewGCSStore(ctx, cfg.BlobBucket)
	case "fs":
		if cfg.BlobPath == "" {
			return nil, nil
		}
		return blob.NewFSStore(cfg.BlobPath), nil
	case "none", "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
}
