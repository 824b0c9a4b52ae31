package websearch

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seqrag/seqrag-go/internal/rag"
)

// defaultPubmedBaseURL is the NCBI eutils production endpoint.
const defaultPubmedBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// PubmedTool implements Tool using the NCBI eutils API: esearch resolves a
// query to PubMed IDs, efetch resolves IDs to article titles and abstracts.
// NCBI asks clients to identify themselves with a contact email; the tool is
// only registered when one is configured. It is safe for concurrent use.
type PubmedTool struct {
	// baseURL is the eutils base, overridable for tests.
	baseURL string
	// email identifies the client to NCBI, as their usage policy requires.
	email string
	// maxResults caps the number of articles requested per query.
	maxResults int
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// PubmedConfig holds the settings for constructing a PubmedTool.
type PubmedConfig struct {
	// BaseURL overrides the production endpoint (tests only).
	BaseURL string
	// Email is the contact email sent with each request.
	Email string
	// MaxResults caps the number of articles per query. Defaults to 5.
	MaxResults int
}

// NewPubmedTool constructs a PubmedTool from the given config.
func NewPubmedTool(cfg *PubmedConfig) *PubmedTool {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultPubmedBaseURL
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return &PubmedTool{
		baseURL:    baseURL,
		email:      cfg.Email,
		maxResults: maxResults,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the user-facing tool name.
func (t *PubmedTool) Name() string { return NamePubmed }

// esearchResponse is the subset of the esearch JSON response we consume.
type esearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// pubmedArticleSet is the subset of the efetch XML response we consume.
type pubmedArticleSet struct {
	Articles []struct {
		MedlineCitation struct {
			Article struct {
				ArticleTitle string `xml:"ArticleTitle"`
				Abstract     struct {
					AbstractText []string `xml:"AbstractText"`
				} `xml:"Abstract"`
			} `xml:"Article"`
		} `xml:"MedlineCitation"`
	} `xml:"PubmedArticle"`
}

// Search resolves the query to PubMed IDs and fetches title plus abstract
// for each, mapping them into Passages.
func (t *PubmedTool) Search(ctx context.Context, query string) ([]rag.Passage, error) {
	ids, err := t.esearch(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return t.efetch(ctx, ids)
}

// esearch resolves a free-text query to a list of PubMed IDs.
func (t *PubmedTool) esearch(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("retmode", "json")
	params.Set("sort", "relevance")
	params.Set("retmax", fmt.Sprintf("%d", t.maxResults))
	params.Set("term", query)
	params.Set("email", t.email)

	reqURL := t.baseURL + "/esearch.fcgi?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("pubmed: create esearch request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pubmed: esearch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pubmed: esearch unexpected status %d", resp.StatusCode)
	}

	var result esearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("pubmed: decode esearch response: %w", err)
	}

	return result.ESearchResult.IDList, nil
}

// efetch resolves PubMed IDs to article titles and abstracts.
func (t *PubmedTool) efetch(ctx context.Context, ids []string) ([]rag.Passage, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("retmode", "xml")
	params.Set("id", strings.Join(ids, ","))
	params.Set("email", t.email)

	reqURL := t.baseURL + "/efetch.fcgi?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("pubmed: create efetch request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pubmed: efetch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pubmed: efetch unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pubmed: reading efetch body: %w", err)
	}

	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("pubmed: parse efetch response: %w", err)
	}

	passages := make([]rag.Passage, 0, len(set.Articles))
	for _, a := range set.Articles {
		title := strings.TrimSpace(a.MedlineCitation.Article.ArticleTitle)
		abstract := strings.TrimSpace(strings.Join(a.MedlineCitation.Article.Abstract.AbstractText, " "))
		if title == "" && abstract == "" {
			continue
		}
		text := fmt.Sprintf("Title: %s\nAbstract: %s", title, abstract)
		passages = append(passages, rag.Passage{Text: text, SourceLabel: "pubmed"})
	}

	return passages, nil
}
