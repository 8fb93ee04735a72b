// Package scholar scrapes scholarly search result pages (Google Scholar).
//
// There is no public API, so the client fetches the HTML results page and
// reads the result blocks: the linked title, the author/venue/year byline,
// the snippet (used as the abstract) and the "Cited by N" link. Requests can
// be routed through a rotating proxy list, and the default rate limit is well
// below one request per second.
package scholar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-rank-service/internal/domain"
	"github.com/helixir/paper-rank-service/internal/observability"
	"github.com/helixir/paper-rank-service/internal/papersources"
)

const (
	// DefaultBaseURL is the scholar search host.
	DefaultBaseURL = "https://scholar.google.com"

	// DefaultRateLimit keeps direct scraping to one request every two seconds.
	DefaultRateLimit = 0.5

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default number of results per search.
	DefaultMaxResults = 10

	// pageSize is the number of results scholar serves per page.
	pageSize = 10

	// maxPages bounds pagination for a single search.
	maxPages = 5

	// browserUserAgent is sent instead of the service agent; scholar serves
	// an empty page to unrecognized clients.
	browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

	sourceName  = "Google Scholar"
	maxBodySize = 5 << 20
)

// Config holds configuration for the scholar client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64
	BurstSize  int
	MaxResults int
	Enabled    bool

	// Proxies lists proxy URLs; each request goes through one picked at random.
	Proxies []string

	// Metrics receives outbound request metrics. May be nil.
	Metrics *observability.Metrics
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the papersources.PaperSource interface by scraping
// scholar result pages.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.PaperSource = (*Client)(nil)

// New creates a new scholar client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	return &Client{
		config: cfg,
		httpClient: papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Source:    string(domain.SourceTypeScholar),
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: cfg.BurstSize,
			UserAgent: browserUserAgent,
			Proxies:   cfg.Proxies,
			Metrics:   cfg.Metrics,
		}),
	}
}

// NewWithHTTPClient creates a new scholar client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

// Search fetches result pages until MaxResults papers are collected or the
// results run out. Year bounds are passed as as_ylo/as_yhi and re-checked
// against the parsed byline year.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("scholar: %w", domain.ErrSourceDisabled)
	}
	start := time.Now()

	want := params.MaxResults
	if want <= 0 {
		want = c.config.MaxResults
	}

	query := url.Values{}
	query.Set("q", params.Query)
	query.Set("hl", "en")
	if params.DateFrom != nil {
		query.Set("as_ylo", strconv.Itoa(params.DateFrom.Year()))
	}
	if params.DateTo != nil {
		query.Set("as_yhi", strconv.Itoa(params.DateTo.Year()))
	}

	papers := make([]*domain.Paper, 0, want)
	offset := params.Offset
	total := 0
	exhausted := false

	for pages := 0; len(papers) < want && pages < maxPages; pages++ {
		if offset > 0 {
			query.Set("start", strconv.Itoa(offset))
		}

		page, err := c.fetchPage(ctx, query)
		if err != nil {
			return nil, err
		}
		if page.TotalResults > total {
			total = page.TotalResults
		}

		consumed := page.Blocks
		for _, res := range page.Results {
			if len(papers) >= want {
				consumed = res.Block
				break
			}
			if !params.InDateRange(res.Year) {
				continue
			}
			papers = append(papers, resultToPaper(res))
		}

		offset += consumed
		if consumed < page.Blocks {
			break
		}
		if page.Blocks < pageSize {
			exhausted = true
			break
		}
	}

	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   total,
		HasMore:        !exhausted && offset < total,
		NextOffset:     offset,
		Source:         domain.SourceTypeScholar,
		SearchDuration: time.Since(start),
	}, nil
}

// GetByID loads the cluster page for a scholar cluster ID and returns its
// first entry.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("scholar: %w", domain.ErrSourceDisabled)
	}
	id = strings.TrimPrefix(strings.TrimSpace(id), "scholar:")
	if id == "" {
		return nil, domain.NewValidationError("id", "cluster ID is required")
	}

	query := url.Values{}
	query.Set("cluster", id)
	query.Set("hl", "en")

	page, err := c.fetchPage(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, domain.NewNotFoundError("paper", id)
	}

	res := page.Results[0]
	if res.ClusterID == "" {
		res.ClusterID = id
	}
	return resultToPaper(res), nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeScholar
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// ProxyCount returns the number of proxies requests rotate through.
func (c *Client) ProxyCount() int {
	return c.httpClient.ProxyCount()
}

func (c *Client) fetchPage(ctx context.Context, query url.Values) (*resultPage, error) {
	rawURL := strings.TrimRight(c.config.BaseURL, "/") + "/scholar?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, strings.TrimSpace(string(body)), nil)
	}

	page, err := parsePage(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("parsing results page: %w", err)
	}
	if page.Blocked {
		return nil, domain.NewExternalAPIError(sourceName, http.StatusTooManyRequests,
			"request blocked by captcha", domain.NewRateLimitError(sourceName, 0))
	}
	return page, nil
}

// resultToPaper converts a parsed result block to a domain Paper.
func resultToPaper(res result) *domain.Paper {
	authors := make([]domain.Author, 0, len(res.Authors))
	for _, name := range res.Authors {
		authors = append(authors, domain.Author{Name: name})
	}

	var pubDate *time.Time
	if res.Year > 0 {
		t := time.Date(res.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		pubDate = &t
	}

	sourceID := res.ClusterID
	if sourceID == "" {
		sourceID = res.Title
	}

	canonicalID := ""
	if res.ClusterID != "" {
		canonicalID = "scholar:" + res.ClusterID
	}

	metadata := map[string]any{}
	if res.Host != "" {
		metadata[domain.FieldHost] = res.Host
	}
	citations := res.CitedBy

	return &domain.Paper{
		CanonicalID:     canonicalID,
		Source:          domain.SourceTypeScholar,
		SourceID:        sourceID,
		Title:           res.Title,
		Abstract:        res.Snippet,
		Authors:         authors,
		PublicationDate: pubDate,
		PublicationYear: res.Year,
		Venue:           res.Venue,
		CitationCount:   &citations,
		URL:             res.URL,
		PDFURL:          res.PDFURL,
		OpenAccess:      res.PDFURL != "",
		Metadata:        metadata,
	}
}
