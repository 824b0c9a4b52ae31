package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/cloudwego/eino/components/model"

	"github.com/seqrag/seqrag-go/internal/embedder"
	"github.com/seqrag/seqrag-go/internal/generator"
	"github.com/seqrag/seqrag-go/internal/grader"
	"github.com/seqrag/seqrag-go/internal/ingestion"
	"github.com/seqrag/seqrag-go/internal/rag"
	"github.com/seqrag/seqrag-go/internal/websearch"
	"github.com/seqrag/seqrag-go/internal/workflow"
)

// buildEmbedder constructs the embedding backend from environment settings.
// EMBEDDING_PROVIDER falls back to MODEL_PROVIDER so a single-backend setup
// needs one variable; chat-only providers (gemini, ark) fall back to ollama
// since they have no embedding endpoint here.
func buildEmbedder(log *slog.Logger) (rag.Embedder, string, error) {
	if err := embedder.Preflight(log); err != nil {
		return nil, "", err
	}

	backend := os.Getenv("EMBEDDING_PROVIDER")
	if backend == "" {
		switch fallback := os.Getenv("MODEL_PROVIDER"); fallback {
		case "ollama", "openai", "azure":
			backend = fallback
		default:
			backend = "ollama"
		}
	}
	emb, err := embedder.New(&embedder.Settings{
		Provider:   backend,
		Model:      os.Getenv("EMBEDDING_MODEL"),
		Endpoint:   os.Getenv("EMBEDDING_ENDPOINT"),
		APIKey:     os.Getenv("EMBEDDING_API_KEY"),
		Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
		APIVersion: os.Getenv("EMBEDDING_API_VERSION"),
	})
	if err != nil {
		return nil, "", err
	}
	return emb, backend, nil
}

// buildQdrantStore connects to Qdrant using environment settings. The
// vector size follows the embedding backend unless EMBEDDING_DIMENSIONS
// overrides it.
func buildQdrantStore(embedBackend string) (*rag.QdrantStore, error) {
	dims := getEnvInt("EMBEDDING_DIMENSIONS", 0)
	if dims <= 0 {
		dims = embedder.DefaultDimensions(embedBackend)
	}

	return rag.NewQdrantStore(&rag.QdrantConfig{
		Host:             getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:             getEnvInt("QDRANT_PORT", 6334),
		CollectionPrefix: os.Getenv("QDRANT_COLLECTION_PREFIX"),
		VectorSize:       uint64(dims), //nolint:gosec // dimensions are bounded
		APIKey:           os.Getenv("QDRANT_API_KEY"),
		UseTLS:           os.Getenv("QDRANT_TLS") == "true",
	})
}

// buildRegistry constructs the web search tool registry. Tavily, arXiv and
// Wikipedia are always offered; PubMed joins only when PUBMED_EMAIL is set,
// since NCBI requires a contact address.
func buildRegistry() *websearch.Registry {
	maxResults := getEnvInt("SEARCH_MAX_RESULTS", 0)

	tools := []websearch.Tool{
		websearch.NewTavilyTool(&websearch.TavilyConfig{
			APIKey:     os.Getenv("TAVILY_API_KEY"),
			MaxResults: maxResults,
		}),
		websearch.NewArxivTool(&websearch.ArxivConfig{MaxResults: maxResults}),
		websearch.NewWikipediaTool(&websearch.WikipediaConfig{MaxResults: maxResults}),
	}

	if email := os.Getenv("PUBMED_EMAIL"); email != "" {
		tools = append(tools, websearch.NewPubmedTool(&websearch.PubmedConfig{
			Email:      email,
			MaxResults: maxResults,
		}))
	}

	return websearch.NewRegistry(tools...)
}

// buildEngine wires the full workflow from a chat model and the retrieval
// stack.
func buildEngine(chatModel model.ToolCallingChatModel, retriever rag.Retriever, tools *websearch.Registry) (*workflow.Engine, error) {
	g := grader.New(chatModel)
	gen := generator.New(chatModel)

	ttl := time.Duration(getEnvInt("WORKFLOW_SESSION_TTL_MINUTES", 30)) * time.Minute
	sessions := workflow.NewSessions(ttl)

	return workflow.NewEngine(retriever, g, g, gen, tools, sessions, workflow.Options{
		TopK:        getEnvInt("WORKFLOW_TOP_K", 0),
		MaxAttempts: getEnvInt("WORKFLOW_MAX_ATTEMPTS", 0),
	})
}

// getEnvOrDefault returns the value of the environment variable or the
// fallback when unset.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the environment variable or the
// fallback when unset or unparseable.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvFloat returns the float value of the environment variable or the
// fallback when unset or unparseable.
func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// collectionsHelp is the flag help text shared by ingest and ask.
var collectionsHelp = fmt.Sprintf("Target collection (%s, %s or %s)",
	ingestion.CollectionWiki, ingestion.CollectionArxiv, ingestion.CollectionCustom)
