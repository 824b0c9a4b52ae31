package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seqrag/seqrag-go/internal/rag"
)

// defaultWikipediaBaseURL is the production English Wikipedia endpoint.
const defaultWikipediaBaseURL = "https://en.wikipedia.org"

// WikipediaTool implements Tool using the MediaWiki action API: a search
// generator combined with plain-text intro extracts, so one request yields
// both titles and content. It is safe for concurrent use.
type WikipediaTool struct {
	// baseURL is the API base, overridable for tests.
	baseURL string
	// maxResults caps the number of articles requested per query.
	maxResults int
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// WikipediaConfig holds the settings for constructing a WikipediaTool.
type WikipediaConfig struct {
	// BaseURL overrides the production endpoint (tests only).
	BaseURL string
	// MaxResults caps the number of articles per query. Defaults to 5.
	MaxResults int
}

// NewWikipediaTool constructs a WikipediaTool from the given config.
func NewWikipediaTool(cfg *WikipediaConfig) *WikipediaTool {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultWikipediaBaseURL
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return &WikipediaTool{
		baseURL:    baseURL,
		maxResults: maxResults,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the user-facing tool name.
func (t *WikipediaTool) Name() string { return NameWikipedia }

// wikipediaResponse is the subset of the action API response we consume.
type wikipediaResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

// Search queries the MediaWiki action API and maps each article into a
// Passage whose text carries the title and intro extract.
func (t *WikipediaTool) Search(ctx context.Context, query string) ([]rag.Passage, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("generator", "search")
	params.Set("gsrsearch", query)
	params.Set("gsrlimit", fmt.Sprintf("%d", t.maxResults))
	params.Set("prop", "extracts")
	params.Set("explaintext", "1")
	params.Set("exintro", "1")

	reqURL := t.baseURL + "/w/api.php?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("wikipedia: create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wikipedia: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia: unexpected status %d", resp.StatusCode)
	}

	var result wikipediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("wikipedia: decode response: %w", err)
	}

	passages := make([]rag.Passage, 0, len(result.Query.Pages))
	for _, page := range result.Query.Pages {
		extract := strings.TrimSpace(page.Extract)
		if extract == "" {
			continue
		}
		text := page.Title + "\n" + extract
		passages = append(passages, rag.Passage{Text: text, SourceLabel: "wikipedia"})
	}

	return passages, nil
}
