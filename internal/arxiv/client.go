// Package arxiv is a client for the arXiv Atom query API with transient
// retries and an optional Redis-backed response cache.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arxivmind/arxivmind/pkg/models"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "http://export.arxiv.org/api/query"

// DefaultMaxResults caps one search page. arXiv asks clients to page
// rather than pull large result sets in one request.
const DefaultMaxResults = 10

// Client queries the arXiv API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *Cache // nil disables caching
	maxRetries uint64
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithCache attaches a response cache.
func WithCache(cache *Cache) ClientOption {
	return func(c *Client) { c.cache = cache }
}

// WithMaxRetries sets the retry count for transient failures.
func WithMaxRetries(n uint64) ClientOption {
	return func(c *Client) { c.maxRetries = n }
}

// NewClient creates an arXiv API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchParams describes one search request.
type SearchParams struct {
	Query      string
	Category   string // optional, e.g. "cs.CL"
	MaxResults int
	SortBy     string // relevance (default), submittedDate, lastUpdatedDate
}

// Search queries arXiv for papers matching the params.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]models.ArxivPaper, error) {
	if params.Query == "" {
		return nil, fmt.Errorf("search query must not be empty")
	}
	if params.MaxResults <= 0 || params.MaxResults > DefaultMaxResults {
		params.MaxResults = DefaultMaxResults
	}
	if params.SortBy == "" {
		params.SortBy = "relevance"
	}

	searchQuery := params.Query
	if params.Category != "" {
		searchQuery = fmt.Sprintf("cat:%s AND (%s)", params.Category, params.Query)
	}

	q := url.Values{}
	q.Set("search_query", searchQuery)
	q.Set("start", "0")
	q.Set("max_results", fmt.Sprintf("%d", params.MaxResults))
	q.Set("sortBy", params.SortBy)
	q.Set("sortOrder", "descending")

	cacheKey := "arxiv:search:" + q.Encode()
	if papers, ok := c.cacheGet(ctx, cacheKey); ok {
		return papers, nil
	}

	papers, err := c.query(ctx, q)
	if err != nil {
		return nil, err
	}

	c.cachePut(ctx, cacheKey, papers)
	return papers, nil
}

// Paper fetches a single paper's metadata by its arXiv id.
func (c *Client) Paper(ctx context.Context, id string) (*models.ArxivPaper, error) {
	if id == "" {
		return nil, fmt.Errorf("paper id must not be empty")
	}

	q := url.Values{}
	q.Set("id_list", id)
	q.Set("max_results", "1")

	cacheKey := "arxiv:paper:" + id
	if papers, ok := c.cacheGet(ctx, cacheKey); ok && len(papers) == 1 {
		return &papers[0], nil
	}

	papers, err := c.query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(papers) == 0 {
		return nil, fmt.Errorf("paper not found: %s", id)
	}

	c.cachePut(ctx, cacheKey, papers[:1])
	return &papers[0], nil
}

// query runs one API call with exponential backoff on transient errors.
func (c *Client) query(ctx context.Context, params url.Values) ([]models.ArxivPaper, error) {
	var papers []models.ArxivPaper

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("arxiv api: http %s", resp.Status)
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return err
			}
			return backoff.Permanent(err)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		var feed atomFeed
		if err := xml.Unmarshal(body, &feed); err != nil {
			return backoff.Permanent(fmt.Errorf("parse atom feed: %w", err))
		}

		papers = make([]models.ArxivPaper, 0, len(feed.Entries))
		for _, entry := range feed.Entries {
			papers = append(papers, parseEntry(entry))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return papers, nil
}

// Atom feed structures for the arXiv API.

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Authors    []atomAuthor   `xml:"author"`
	Categories []atomCategory `xml:"category"`
	Published  string         `xml:"published"`
	Updated    string         `xml:"updated"`
	Links      []atomLink     `xml:"link"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

func parseEntry(entry atomEntry) models.ArxivPaper {
	paper := models.ArxivPaper{
		Title:    strings.TrimSpace(strings.ReplaceAll(entry.Title, "\n", " ")),
		Abstract: strings.TrimSpace(entry.Summary),
		URL:      entry.ID,
	}

	// Entry id is an abs URL, e.g. http://arxiv.org/abs/2301.00001v1.
	paper.ID = entry.ID
	if idx := strings.LastIndex(entry.ID, "/abs/"); idx >= 0 {
		paper.ID = stripVersion(entry.ID[idx+5:])
	}

	for _, a := range entry.Authors {
		paper.Authors = append(paper.Authors, a.Name)
	}
	for _, cat := range entry.Categories {
		paper.Categories = append(paper.Categories, cat.Term)
	}
	for _, l := range entry.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			paper.PDFURL = l.Href
		}
	}

	paper.Published, _ = time.Parse(time.RFC3339, entry.Published)
	paper.Updated, _ = time.Parse(time.RFC3339, entry.Updated)
	return paper
}

// stripVersion drops a trailing vN revision marker. Old-style IDs can
// carry a "v" inside the archive name (solv-int/9701001), so only a
// digits-only suffix counts.
func stripVersion(id string) string {
	i := strings.LastIndex(id, "v")
	if i <= 0 || i == len(id)-1 {
		return id
	}
	for _, r := range id[i+1:] {
		if r < '0' || r > '9' {
			return id
		}
	}
	return id[:i]
}

func (c *Client) cacheGet(ctx context.Context, key string) ([]models.ArxivPaper, bool) {
	if c.cache == nil {
		return nil, false
	}
	papers, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("arXiv cache read failed")
		return nil, false
	}
	return papers, ok
}

func (c *Client) cachePut(ctx context.Context, key string, papers []models.ArxivPaper) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, papers); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("arXiv cache write failed")
	}
}
