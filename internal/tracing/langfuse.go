// Package tracing wires the optional Langfuse callback handler into the
// eino model layer. Tracing is opt-in: without Langfuse keys in the
// environment it is silently disabled.
package tracing

import (
	"os"
	"strings"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

// defaultHost is the local Langfuse instance from the docker-compose setup.
const defaultHost = "http://localhost:3000"

// settings holds the Langfuse connection parameters read from the
// environment.
type settings struct {
	host      string
	publicKey string
	secretKey string
	disabled  bool
}

// fromEnv reads the Langfuse settings. LANGFUSE_ENABLED=false forces
// tracing off even when keys are present, which is useful in CI where the
// keys leak in from a shared environment.
func fromEnv() settings {
	s := settings{
		host:      os.Getenv("LANGFUSE_HOST"),
		publicKey: os.Getenv("LANGFUSE_PUBLIC_KEY"),
		secretKey: os.Getenv("LANGFUSE_SECRET_KEY"),
	}
	if v := os.Getenv("LANGFUSE_ENABLED"); strings.EqualFold(v, "false") {
		s.disabled = true
	}
	if s.host == "" {
		s.host = defaultHost
	}
	return s
}

// enabled reports whether tracing should be wired up.
func (s settings) enabled() bool {
	return !s.disabled && s.publicKey != "" && s.secretKey != ""
}

// Setup initialises the Langfuse callback handler from the environment.
// Returns the handler, a flush function that must be called before process
// exit so buffered traces are sent, and whether tracing is enabled. When
// disabled both the handler and flush function are nil.
func Setup() (callbacks.Handler, func(), bool) {
	s := fromEnv()
	if !s.enabled() {
		return nil, nil, false
	}

	handler, flusher := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      s.host,
		PublicKey: s.publicKey,
		SecretKey: s.secretKey,
	})
	return handler, flusher, true
}
