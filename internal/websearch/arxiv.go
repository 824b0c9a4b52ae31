package websearch

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seqrag/seqrag-go/internal/rag"
)

// defaultArxivBaseURL is the production arXiv API endpoint.
const defaultArxivBaseURL = "https://export.arxiv.org"

// ArxivTool implements Tool using the arXiv Atom query API.
// It is safe for concurrent use. No API key is required.
type ArxivTool struct {
	// baseURL is the API base, overridable for tests.
	baseURL string
	// maxResults caps the number of papers requested per query.
	maxResults int
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// ArxivConfig holds the settings for constructing an ArxivTool.
type ArxivConfig struct {
	// BaseURL overrides the production endpoint (tests only).
	BaseURL string
	// MaxResults caps the number of papers per query. Defaults to 5.
	MaxResults int
}

// NewArxivTool constructs an ArxivTool from the given config.
func NewArxivTool(cfg *ArxivConfig) *ArxivTool {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultArxivBaseURL
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return &ArxivTool{
		baseURL:    baseURL,
		maxResults: maxResults,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the user-facing tool name.
func (t *ArxivTool) Name() string { return NameArxiv }

// atomFeed is the subset of the arXiv Atom response we consume.
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

// atomEntry is a single paper in the Atom feed.
type atomEntry struct {
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
	ID      string `xml:"id"`
}

// Search queries the arXiv API sorted by relevance and maps each paper into
// a Passage whose text carries the title and abstract.
func (t *ArxivTool) Search(ctx context.Context, query string) ([]rag.Passage, error) {
	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("sortBy", "relevance")
	params.Set("max_results", fmt.Sprintf("%d", t.maxResults))

	reqURL := t.baseURL + "/api/query?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv: create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("arxiv: reading body: %w", err)
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("arxiv: parse feed: %w", err)
	}

	passages := make([]rag.Passage, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		title := strings.TrimSpace(e.Title)
		summary := strings.TrimSpace(e.Summary)
		if title == "" && summary == "" {
			continue
		}
		text := fmt.Sprintf("Title: %s\nSummary: %s", title, summary)
		passages = append(passages, rag.Passage{Text: text, SourceLabel: "arxiv"})
	}

	return passages, nil
}
