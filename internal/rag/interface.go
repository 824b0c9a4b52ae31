// Package rag defines the retrieval-augmented-generation primitives shared by
// the rest of the system: the Passage and Document types, and the interfaces
// for vector storage, embedding, and retrieval. Concrete implementations
// (Qdrant, HTTP embedders) satisfy these interfaces so the workflow layer
// never depends on a specific backend.
package rag

import (
	"context"
)

// Passage is a retrieved or searched text fragment with a source label.
// Passages are produced by the retriever and the web search adapters,
// consumed by the graders and the generator, and never mutated.
type Passage struct {
	// Text is the passage content.
	Text string

	// SourceLabel identifies where the passage came from — an ingested
	// document title, or a search adapter name ("tavily", "arxiv", ...).
	SourceLabel string
}

// Document represents a stored chunk of knowledge in a vector collection.
type Document struct {
	// ID is the unique identifier for this chunk.
	ID string

	// Content is the raw text content of the chunk.
	Content string

	// Source is the origin of the document (file name or URL).
	Source string

	// Metadata holds arbitrary key-value pairs (chunk index, upload batch, etc.).
	Metadata map[string]string

	// Score is the similarity score assigned during retrieval.
	// Zero value means the score was not computed.
	Score float32
}

// Passage converts a stored Document into the Passage shape consumed by the
// grading and generation layers.
func (d Document) Passage() Passage {
	return Passage{Text: d.Content, SourceLabel: d.Source}
}

// VectorStore is the interface for persisting and searching document
// embeddings across named collections. Implementations must be safe to call
// from multiple goroutines; reads may run concurrently while writes hold a
// per-collection lock inside the backing store.
type VectorStore interface {
	// EnsureCollection creates the named collection if it does not exist.
	EnsureCollection(ctx context.Context, collection string) error

	// Upsert stores or updates a batch of documents in the named collection.
	// The embeddings slice must be parallel to docs — embeddings[i] is the
	// vector for docs[i].
	Upsert(ctx context.Context, collection string, docs []Document, embeddings [][]float32) error

	// Search performs a similarity search in the named collection and returns
	// the top-k most relevant documents for the given query embedding.
	Search(ctx context.Context, collection string, queryEmbedding []float32, topK int) ([]Document, error)

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever is the high-level interface the workflow uses to fetch relevant
// context for a question from a named collection. It combines embedding and
// vector search. Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns the top-k most relevant documents for the query,
	// searching only the named collection.
	Retrieve(ctx context.Context, collection, query string, topK int) ([]Document, error)
}
