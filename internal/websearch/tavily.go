package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/seqrag/seqrag-go/internal/rag"
)

// defaultTavilyBaseURL is the production Tavily API endpoint.
const defaultTavilyBaseURL = "https://api.tavily.com"

// TavilyTool implements Tool using the Tavily web search API.
// It is safe for concurrent use.
type TavilyTool struct {
	// apiKey authenticates against the Tavily API.
	apiKey string
	// baseURL is the API base, overridable for tests.
	baseURL string
	// maxResults caps the number of results requested per query.
	maxResults int
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// TavilyConfig holds the settings for constructing a TavilyTool.
type TavilyConfig struct {
	// APIKey is the Tavily API key.
	APIKey string
	// BaseURL overrides the production endpoint (tests only).
	BaseURL string
	// MaxResults caps the number of results per query. Defaults to 10.
	MaxResults int
}

// NewTavilyTool constructs a TavilyTool from the given config.
func NewTavilyTool(cfg *TavilyConfig) *TavilyTool {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultTavilyBaseURL
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}
	return &TavilyTool{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		maxResults: maxResults,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the user-facing tool name.
func (t *TavilyTool) Name() string { return NameTavily }

// tavilySearchRequest is the JSON body sent to POST /search.
type tavilySearchRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
}

// tavilySearchResponse is the JSON body returned from POST /search.
type tavilySearchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
	Error string `json:"error,omitempty"`
}

// Search queries the Tavily API and maps each result into a Passage.
// Result title and content are concatenated into the passage text.
func (t *TavilyTool) Search(ctx context.Context, query string) ([]rag.Passage, error) {
	body := tavilySearchRequest{
		APIKey:        t.apiKey,
		Query:         query,
		MaxResults:    t.maxResults,
		SearchDepth:   "advanced",
		IncludeAnswer: true,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("tavily: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tavily: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result tavilySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != "" {
			msg = result.Error
		}
		return nil, fmt.Errorf("tavily: %s", msg)
	}

	passages := make([]rag.Passage, 0, len(result.Results))
	for _, r := range result.Results {
		text := strings.TrimSpace(r.Content)
		if text == "" {
			continue
		}
		if r.Title != "" {
			text = r.Title + "\n" + text
		}
		passages = append(passages, rag.Passage{Text: text, SourceLabel: "tavily"})
	}

	return passages, nil
}
