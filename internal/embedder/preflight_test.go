package embedder

import (
	"testing"

	"github.com/seqrag/seqrag-go/internal/logging"
)

func TestPreflight(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{name: "defaults to ollama", env: map[string]string{}},
		{
			name: "chat provider falls back to ollama",
			env:  map[string]string{"MODEL_PROVIDER": "gemini"},
		},
		{
			name:    "openai without key",
			env:     map[string]string{"EMBEDDING_PROVIDER": "openai"},
			wantErr: true,
		},
		{
			name: "openai with key",
			env: map[string]string{
				"EMBEDDING_PROVIDER": "openai",
				"EMBEDDING_API_KEY":  "sk-test",
			},
		},
		{
			name: "azure without endpoint",
			env: map[string]string{
				"EMBEDDING_PROVIDER": "azure",
				"EMBEDDING_API_KEY":  "k",
			},
			wantErr: true,
		},
		{
			name: "azure complete",
			env: map[string]string{
				"EMBEDDING_PROVIDER": "azure",
				"EMBEDDING_API_KEY":  "k",
				"EMBEDDING_ENDPOINT": "https://r.openai.azure.com/openai",
			},
		},
		{
			name:    "unknown provider",
			env:     map[string]string{"EMBEDDING_PROVIDER": "bedrock"},
			wantErr: true,
		},
		{
			name: "inherited openai without key",
			env:  map[string]string{"MODEL_PROVIDER": "openai"},
			// Inheriting openai as the embedding backend still requires a key.
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{
				"EMBEDDING_PROVIDER", "MODEL_PROVIDER",
				"EMBEDDING_API_KEY", "EMBEDDING_ENDPOINT", "EMBEDDING_MODEL",
			} {
				t.Setenv(key, tt.env[key])
			}

			err := Preflight(logging.Discard())
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got none")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Preflight: %v", err)
			}
		})
	}
}

func TestLooksLikeChatModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model string
		want  bool
	}{
		{"nomic-embed-text", false},
		{"text-embedding-3-small", false},
		{"mxbai-embed-large", false},
		{"gpt-4o", true},
		{"llama3.2", true},
		{"Qwen2.5-7B", true},
		{"gemini-2.0-flash", true},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			t.Parallel()
			if got := looksLikeChatModel(tt.model); got != tt.want {
				t.Errorf("looksLikeChatModel(%q): expected %v, got %v", tt.model, tt.want, got)
			}
		})
	}
}
