// Package ingestion implements the document ingestion pipeline. It accepts
// uploaded files or fetched URLs, extracts plain text, chunks the content,
// embeds each chunk, and upserts the results into the vector store
// collection the caller names. Invoked by the upload endpoint and the
// `seqrag ingest` CLI command.
package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seqrag/seqrag-go/internal/logging"
	"github.com/seqrag/seqrag-go/internal/rag"
)

// Collections users can ingest into and query against.
const (
	CollectionWiki   = "Wiki"
	CollectionArxiv  = "ArXiv"
	CollectionCustom = "Custom"
)

// Collections lists the valid collection names.
func Collections() []string {
	return []string{CollectionWiki, CollectionArxiv, CollectionCustom}
}

// ValidCollection reports whether name is a known collection.
func ValidCollection(name string) bool {
	switch name {
	case CollectionWiki, CollectionArxiv, CollectionCustom:
		return true
	}
	return false
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per document chunk.
	// Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters to overlap between consecutive chunks.
	// Defaults to 100 if zero.
	ChunkOverlap int

	// HTTPTimeout is the timeout for each URL fetch request.
	// Defaults to 30s if zero.
	HTTPTimeout time.Duration

	// UserAgent is the HTTP User-Agent header sent with fetch requests.
	UserAgent string
}

// Pipeline orchestrates the extract → chunk → embed → upsert flow.
type Pipeline struct {
	// embedder converts text chunks into dense vector embeddings.
	embedder rag.Embedder

	// store persists the embedded chunks.
	store rag.VectorStore

	// cfg holds the resolved pipeline configuration.
	cfg *Config

	// httpClient is the HTTP client used for fetching URL sources.
	httpClient *http.Client
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "seqrag-go/1.0 (document ingestion)"
	}

	return &Pipeline{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}, nil
}

// IngestFile extracts text from an uploaded file, chunks and embeds it, and
// upserts the chunks into the named collection. It returns the number of
// chunks stored.
func (p *Pipeline) IngestFile(ctx context.Context, filename string, data []byte, collection string) (int, error) {
	if !ValidCollection(collection) {
		return 0, fmt.Errorf("ingestion: unknown collection %q", collection)
	}

	text, err := ExtractText(filename, data)
	if err != nil {
		return 0, err
	}

	return p.ingest(ctx, filename, text, collection)
}

// IngestURL fetches a page, chunks and embeds its text, and upserts the
// chunks into the named collection. It returns the number of chunks stored.
func (p *Pipeline) IngestURL(ctx context.Context, url, collection string) (int, error) {
	if !ValidCollection(collection) {
		return 0, fmt.Errorf("ingestion: unknown collection %q", collection)
	}

	content, err := p.fetch(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("ingestion: fetch failed for %s: %w", url, err)
	}

	return p.ingest(ctx, url, content, collection)
}

// ingest runs the shared chunk → embed → upsert tail. source labels the
// chunks in the vector store and seeds their deterministic IDs.
func (p *Pipeline) ingest(ctx context.Context, source, text, collection string) (int, error) {
	chunks := p.chunk(text)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("ingestion: no text content in %s", source)
	}
	logging.FromContext(ctx).Debug("chunked document",
		"source", source,
		"collection", collection,
		"chunks", len(chunks),
	)

	embeddings, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("ingestion: embedding failed for %s: %w", source, err)
	}

	docs := make([]rag.Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, rag.Document{
			ID:      chunkID(source, i),
			Content: chunk,
			Source:  source,
			Metadata: map[string]string{
				"chunk_index": fmt.Sprintf("%d", i),
			},
		})
	}

	if err := p.store.Upsert(ctx, collection, docs, embeddings); err != nil {
		return 0, fmt.Errorf("ingestion: upsert failed for %s: %w", source, err)
	}

	return len(chunks), nil
}

// fetch retrieves the raw text content of a URL.
func (p *Pipeline) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	req.Header.Set("Accept", "text/plain, text/html")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}

	return string(body), nil
}

// chunk splits text into overlapping chunks of cfg.ChunkSize characters.
func (p *Pipeline) chunk(text string) []string {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil
	}

	var chunks []string
	size := p.cfg.ChunkSize
	overlap := p.cfg.ChunkOverlap

	for start := 0; start < len(text); start += size - overlap {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}

	return chunks
}

// chunkID generates a deterministic UUID for a document chunk based on its
// source name and chunk index. Re-ingesting the same source overwrites its
// previous points instead of duplicating them.
func chunkID(source string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", source, index))).String()
}
