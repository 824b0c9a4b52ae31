// Package websearch implements the external search adapters the workflow can
// route a question to when the vector store has nothing relevant: Tavily
// (general web), arXiv (academic papers), Wikipedia (encyclopedia), and
// optionally PubMed (biomedical literature).
//
// Every adapter maps its native response shape into the uniform
// []rag.Passage shape. Adapters fail independently — an error or an empty
// result from one never prevents the workflow from using another.
package websearch

import (
	"context"

	"github.com/seqrag/seqrag-go/internal/rag"
)

// Tool names as presented to the user when the workflow pauses for a choice.
const (
	NameTavily    = "Tavily"
	NameArxiv     = "Arxiv"
	NameWikipedia = "Wikipedia"
	NamePubmed    = "PubMed"
)

// Tool is the uniform interface implemented by every search adapter.
// Implementations must be safe to call from multiple goroutines.
type Tool interface {
	// Name returns the user-facing tool name (e.g. "Tavily").
	Name() string

	// Search maps a query string to zero or more passages. An empty result
	// is not an error. Errors indicate the upstream service was unreachable
	// or returned an unusable shape.
	Search(ctx context.Context, query string) ([]rag.Passage, error)
}

// Registry holds the ordered set of tools available to the workflow.
// Order matters: it is the order the options are presented to the user.
type Registry struct {
	// tools is the ordered tool list.
	tools []Tool
}

// NewRegistry constructs a Registry from the given tools, preserving order.
func NewRegistry(tools ...Tool) *Registry {
	return &Registry{tools: tools}
}

// Options returns the ordered tool names offered to the user.
func (r *Registry) Options() []string {
	names := make([]string, 0, len(r.tools))
	for _, t := range r.tools {
		names = append(names, t.Name())
	}
	return names
}

// Lookup returns the tool with the given name, or false if no such tool is
// registered. Matching is exact — tool names are part of the API contract.
func (r *Registry) Lookup(name string) (Tool, bool) {
	for _, t := range r.tools {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}
