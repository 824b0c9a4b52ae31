package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/seqrag/seqrag-go/internal/store"
	"github.com/seqrag/seqrag-go/internal/workflow"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives the server's Prometheus metrics. If nil a private
	// registry is created; /metrics always serves whichever is in use.
	Registry *prometheus.Registry
	// SessionCount, when set, feeds the active-sessions gauge.
	SessionCount func() int
}

// asker is the interface handleAsk calls to run the workflow.
// *workflow.Engine satisfies it; tests inject a fake.
type asker interface {
	// Ask runs or resumes a workflow run for the request.
	Ask(ctx context.Context, req workflow.Request) (*workflow.Result, error)
}

// ingester is the interface handleUpload calls to ingest a file.
// *ingestion.Pipeline satisfies it; tests inject a fake.
type ingester interface {
	// IngestFile ingests an uploaded file and returns the chunk count.
	IngestFile(ctx context.Context, filename string, data []byte, collection string) (int, error)
}

// Ledger is the interface the upload and documents handlers use to record
// and list ingests. *store.SQLiteLedger satisfies it. It is exported so
// callers holding a possibly-nil concrete ledger can pass a true nil
// interface instead of a typed nil.
type Ledger interface {
	Record(ctx context.Context, filename, collection string, chunks int) error
	List(ctx context.Context, collection string) ([]store.Record, error)
}

// Server is the HTTP server exposing the QA workflow and the ingest
// pipeline.
type Server struct {
	// asker runs the question-answering workflow.
	asker asker
	// ingester runs the document ingest pipeline.
	ingester ingester
	// ledger records and lists ingests. May be nil when no ledger is
	// configured; uploads then skip recording and /api/documents 404s.
	ledger Ledger
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// askRequest is the JSON body for POST /api/ask.
type askRequest struct {
	// Question is the user's question. Required when starting a new run.
	Question string `json:"question"`
	// Collection selects the vector store collection to retrieve from.
	Collection string `json:"collection,omitempty"`
	// SessionID resumes a paused run.
	SessionID string `json:"session_id,omitempty"`
	// ToolChoice is the web search tool name when resuming.
	ToolChoice string `json:"tool_choice,omitempty"`
}

// uploadResponse is the JSON response for POST /api/upload.
type uploadResponse struct {
	// Filename is the name of the ingested file.
	Filename string `json:"filename"`
	// Collection is the collection the chunks landed in.
	Collection string `json:"collection"`
	// Chunks is the number of chunks stored.
	Chunks int `json:"chunks"`
}

// documentsResponse is the JSON response for GET /api/documents.
type documentsResponse struct {
	// Documents lists the recorded ingests, newest first.
	Documents []store.Record `json:"documents"`
}

// errorResponse is the JSON body for all error responses.
type errorResponse struct {
	// Error is the human-readable message.
	Error string `json:"error"`
	// Code is a stable machine-readable error code.
	Code string `json:"code"`
	// Options re-offers the valid tool names on an invalid choice.
	Options []string `json:"options,omitempty"`
}
