package embedder

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// chatModelFragments contains name fragments identifying chat models that are
// not suitable for embedding. A match triggers a startup warning so the
// operator notices the misconfiguration before the first ingest fails.
var chatModelFragments = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"llama3",
	"llama2",
	"llama-3",
	"llama-2",
	"mistral",
	"mixtral",
	"gemma",
	"gemini",
	"phi-",
	"phi3",
	"claude",
	"command-r",
	"deepseek",
	"qwen",
	"doubao",
	"vicuna",
	"falcon",
	"yi-",
}

// looksLikeChatModel reports whether the model name resembles a known chat
// model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, fragment := range chatModelFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// Preflight checks the embedding environment before the serve and ingest
// commands build the pipeline, so a broken setup fails at startup with a
// clear message instead of during the first embed call. It returns an error
// when required settings are missing and logs warnings for settings that
// are suspicious but not fatal.
func Preflight(log *slog.Logger) error {
	backend := os.Getenv("EMBEDDING_PROVIDER")
	if backend == "" {
		// Mirrors the fallback used when the embedder is built: a chat
		// provider with no embedding endpoint resolves to ollama.
		switch inherited := os.Getenv("MODEL_PROVIDER"); inherited {
		case "openai", "azure":
			backend = inherited
			log.Warn("embedder: EMBEDDING_PROVIDER unset, inheriting MODEL_PROVIDER",
				slog.String("backend", backend),
				slog.String("hint", "set EMBEDDING_PROVIDER explicitly to silence this"),
			)
		default:
			backend = "ollama"
		}
	}

	switch backend {
	case "ollama":
		// Local, no credentials needed.
	case "openai":
		if os.Getenv("EMBEDDING_API_KEY") == "" {
			return fmt.Errorf("embedder: openai backend selected but EMBEDDING_API_KEY is unset")
		}
	case "azure":
		if os.Getenv("EMBEDDING_API_KEY") == "" {
			return fmt.Errorf("embedder: azure backend selected but EMBEDDING_API_KEY is unset")
		}
		if os.Getenv("EMBEDDING_ENDPOINT") == "" {
			return fmt.Errorf("embedder: azure backend selected but EMBEDDING_ENDPOINT is unset")
		}
	default:
		return fmt.Errorf("embedder: unknown provider %q (valid: ollama, openai, azure)", backend)
	}

	if model := os.Getenv("EMBEDDING_MODEL"); model != "" && looksLikeChatModel(model) {
		log.Warn("embedder: EMBEDDING_MODEL looks like a chat model, embeddings will likely be poor",
			slog.String("model", model),
			slog.String("hint", "use a dedicated embedding model such as nomic-embed-text or text-embedding-3-small"),
		)
	}

	return nil
}
