package embedder

import (
	"fmt"

	"github.com/seqrag/seqrag-go/internal/rag"
)

// Default embedding models per backend.
const (
	defaultOllamaModel = "nomic-embed-text"
	defaultOpenAIModel = "text-embedding-3-small"

	// defaultOllamaDimensions is the output dimension of nomic-embed-text.
	// Other Ollama models may differ — override via the embedding config.
	defaultOllamaDimensions = 768
	// defaultOpenAIDimensions is the output dimension of text-embedding-3-small.
	defaultOpenAIDimensions = 1536
)

// Settings holds the resolved embedding configuration, independent of where
// it came from (YAML file or environment). The config package produces one.
type Settings struct {
	// Provider selects the embedding backend: ollama, openai, azure.
	Provider string
	// Model is the embedding model name. Empty selects the backend default.
	Model string
	// Endpoint is the backend base URL. Empty selects the backend default.
	Endpoint string
	// APIKey authenticates against openai/azure backends.
	APIKey string
	// Dimensions overrides the embedding vector size. Zero selects the
	// backend default.
	Dimensions int
	// APIVersion is the Azure OpenAI API version (azure only).
	APIVersion string
}

// DefaultDimensions returns the correct default embedding vector size for the
// given backend name. Callers that need to pre-configure a vector store
// (e.g. Qdrant collection creation) should use this rather than hardcoding a
// value. An explicit Dimensions setting always takes precedence.
func DefaultDimensions(provider string) int {
	switch provider {
	case "ollama":
		return defaultOllamaDimensions
	default:
		return defaultOpenAIDimensions
	}
}

// New constructs a rag.Embedder from the resolved settings.
func New(s *Settings) (rag.Embedder, error) {
	switch s.Provider {
	case "", "ollama":
		host := s.Endpoint
		if host == "" {
			host = "http://localhost:11434"
		}
		model := s.Model
		if model == "" {
			model = defaultOllamaModel
		}
		return NewOllamaEmbedder(&OllamaConfig{Host: host, Model: model}), nil

	case "openai":
		if s.APIKey == "" {
			return nil, fmt.Errorf("embedder: openai backend requires an API key")
		}
		base := s.Endpoint
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		model := s.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		dims := s.Dimensions
		if dims == 0 {
			dims = defaultOpenAIDimensions
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    base,
			APIKey:     s.APIKey,
			Model:      model,
			Dimensions: dims,
		}), nil

	case "azure":
		if s.APIKey == "" {
			return nil, fmt.Errorf("embedder: azure backend requires an API key")
		}
		if s.Endpoint == "" {
			return nil, fmt.Errorf("embedder: azure backend requires an endpoint")
		}
		apiVersion := s.APIVersion
		if apiVersion == "" {
			apiVersion = "2024-02-01"
		}
		model := s.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    s.Endpoint,
			APIKey:     s.APIKey,
			Model:      model,
			Dimensions: s.Dimensions,
			Azure:      true,
			APIVersion: apiVersion,
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown provider %q (valid: ollama, openai, azure)", s.Provider)
	}
}
