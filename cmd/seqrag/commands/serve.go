package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/seqrag/seqrag-go/internal/ingestion"
	"github.com/seqrag/seqrag-go/internal/logging"
	"github.com/seqrag/seqrag-go/internal/provider"
	"github.com/seqrag/seqrag-go/internal/rag"
	"github.com/seqrag/seqrag-go/internal/server"
	"github.com/seqrag/seqrag-go/internal/store"
	"github.com/seqrag/seqrag-go/internal/tracing"
)

// NewServeCmd constructs the `seqrag serve` command, which starts the HTTP
// server exposing the upload and ask endpoints.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the seqrag HTTP server",
		Long: `Start the seqrag HTTP server on localhost.

The server exposes:
  POST /api/upload     ingest a .txt, .csv or .pdf document
  POST /api/ask        run the question-answering workflow
  GET  /api/documents  list ingested documents
  GET  /api/health     liveness probe
  GET  /api/ready      readiness probe (checks Qdrant and the LLM backend)
  GET  /metrics        Prometheus metrics

Examples:
  seqrag serve
  seqrag serve --port 9090
  MODEL_PROVIDER=openai seqrag serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Flags win over env/config; the env vars are filled in from
			// YAML by the config layer before RunE fires.
			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("SEQRAG_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("SEQRAG_PORT", port)
			}

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			providerCfg := provider.ConfigFromEnv()
			chatModel, err := provider.New(ctx, providerCfg)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", string(providerCfg.Backend)))

			emb, embedBackend, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}

			qdrantStore, err := buildQdrantStore(embedBackend)
			if err != nil {
				return fmt.Errorf("serve: failed to connect to Qdrant: %w", err)
			}
			defer qdrantStore.Close()

			if err := ensureCollections(ctx, qdrantStore); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			log.Info("qdrant collections ready")

			retriever, err := rag.NewRetriever(emb, qdrantStore, getEnvInt("WORKFLOW_TOP_K", 4))
			if err != nil {
				return fmt.Errorf("serve: failed to create retriever: %w", err)
			}

			registry := buildRegistry()
			engine, err := buildEngine(chatModel, retriever, registry)
			if err != nil {
				return fmt.Errorf("serve: failed to create workflow engine: %w", err)
			}

			pipeline, err := ingestion.NewPipeline(emb, qdrantStore, &ingestion.Config{
				ChunkSize:    getEnvInt("WORKFLOW_CHUNK_SIZE", 0),
				ChunkOverlap: getEnvInt("WORKFLOW_CHUNK_OVERLAP", 0),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create ingest pipeline: %w", err)
			}

			ledger := openLedger(log)
			if ledger != nil {
				defer func() { _ = ledger.Close() }()
			}

			pingers := []server.Pinger{
				server.NewQdrantPinger(qdrantStore.Client()),
				server.NewLLMPinger(chatModel, string(providerCfg.Backend)),
			}

			srv, err := server.New(engine, pipeline, ledgerOrNil(ledger), &server.Config{
				Host:         host,
				Port:         port,
				Logger:       log,
				Pingers:      pingers,
				APIKey:       os.Getenv("SEQRAG_API_KEY"),
				RateLimit:    getEnvFloat("SEQRAG_RATE_LIMIT", 0),
				RateBurst:    getEnvInt("SEQRAG_RATE_BURST", 0),
				SessionCount: engine.Sessions().Len,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}

// ensureCollections creates every queryable collection up front so first
// uploads and searches never race collection creation.
func ensureCollections(ctx context.Context, vs rag.VectorStore) error {
	for _, c := range ingestion.Collections() {
		if err := vs.EnsureCollection(ctx, c); err != nil {
			return fmt.Errorf("ensure collection %s: %w", c, err)
		}
	}
	return nil
}

// openLedger opens the ingest ledger. SEQRAG_LEDGER_DB overrides the
// default path (~/.seqrag/ledger.db); "disabled" turns the ledger off.
// Failure to open is non-fatal — uploads still work, just unrecorded.
func openLedger(log *slog.Logger) *store.SQLiteLedger {
	dbPath := os.Getenv("SEQRAG_LEDGER_DB")
	if dbPath == "disabled" {
		log.Info("ledger: disabled via SEQRAG_LEDGER_DB=disabled")
		return nil
	}
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			log.Warn("ledger: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil
		}
	}

	ledger, err := store.Open(dbPath)
	if err != nil {
		log.Warn("ledger: failed to open, disabling", slog.Any("error", err))
		return nil
	}
	log.Info("ledger: opened", slog.String("path", dbPath))
	return ledger
}

// ledgerOrNil converts a possibly-nil concrete ledger into the server's
// interface without producing a non-nil interface around a nil pointer.
func ledgerOrNil(l *store.SQLiteLedger) server.Ledger {
	if l == nil {
		return nil
	}
	return l
}
