package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/seqrag/seqrag-go/internal/ingestion"
	"github.com/seqrag/seqrag-go/internal/logging"
)

// NewIngestCmd constructs the `seqrag ingest` command, which chunks and
// embeds local files or URLs into the vector store without going through
// the HTTP server.
func NewIngestCmd() *cobra.Command {
	var collection string
	var urls []string

	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Ingest documents into the vector store",
		Long: `Ingest documents into the vector store.

Files (.txt, .csv, .pdf) are chunked, embedded and upserted into the
chosen collection. URLs are fetched and ingested the same way.

Examples:
  seqrag ingest notes.txt --collection Custom
  seqrag ingest paper.pdf specs.csv --collection ArXiv
  seqrag ingest --url https://example.com/page.txt --collection Wiki`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(urls) == 0 {
				return fmt.Errorf("ingest: provide at least one file or --url")
			}
			if !ingestion.ValidCollection(collection) {
				return fmt.Errorf("ingest: unknown collection %q", collection)
			}

			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			emb, embedBackend, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}

			qdrantStore, err := buildQdrantStore(embedBackend)
			if err != nil {
				return fmt.Errorf("ingest: failed to connect to Qdrant: %w", err)
			}
			defer qdrantStore.Close()

			if err := qdrantStore.EnsureCollection(ctx, collection); err != nil {
				return fmt.Errorf("ingest: ensure collection %s: %w", collection, err)
			}

			pipeline, err := ingestion.NewPipeline(emb, qdrantStore, &ingestion.Config{
				ChunkSize:    getEnvInt("WORKFLOW_CHUNK_SIZE", 0),
				ChunkOverlap: getEnvInt("WORKFLOW_CHUNK_OVERLAP", 0),
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			ledger := openLedger(log)
			if ledger != nil {
				defer func() { _ = ledger.Close() }()
			}

			total := 0
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("ingest: read %s: %w", path, err)
				}
				name := filepath.Base(path)
				chunks, err := pipeline.IngestFile(ctx, name, data, collection)
				if err != nil {
					return fmt.Errorf("ingest: %s: %w", path, err)
				}
				if ledger != nil {
					if err := ledger.Record(ctx, name, collection, chunks); err != nil {
						log.Warn("ledger record failed", slog.String("filename", name), slog.Any("error", err))
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ingested %s: %d chunks into %s\n", name, chunks, collection)
				total += chunks
			}

			for _, url := range urls {
				chunks, err := pipeline.IngestURL(ctx, url, collection)
				if err != nil {
					return fmt.Errorf("ingest: %s: %w", url, err)
				}
				if ledger != nil {
					if err := ledger.Record(ctx, url, collection, chunks); err != nil {
						log.Warn("ledger record failed", slog.String("url", url), slog.Any("error", err))
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ingested %s: %d chunks into %s\n", url, chunks, collection)
				total += chunks
			}

			log.Info("ingest complete",
				slog.Int("sources", len(args)+len(urls)),
				slog.Int("chunks", total),
				slog.String("collection", collection))
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", ingestion.CollectionCustom, collectionsHelp)
	cmd.Flags().StringArrayVar(&urls, "url", nil, "URL to ingest (repeatable)")

	return cmd
}
