// Package arxiv provides a client for the arXiv Atom query API.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-rank-service/internal/domain"
	"github.com/helixir/paper-rank-service/internal/observability"
	"github.com/helixir/paper-rank-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultRateLimit is the default rate limit (1 request per second).
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 2

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 10

	// sourceName is the human-readable name for this source.
	sourceName = "arXiv"

	maxBodySize = 10 << 20
)

// arxivIDRegex extracts the arXiv ID from the full URL.
// Matches patterns like "http://arxiv.org/abs/2301.12345v1" or "http://arxiv.org/abs/hep-th/9901001v1".
var arxivIDRegex = regexp.MustCompile(`arxiv\.org/abs/(.+?)(?:v\d+)?$`)

// Config holds configuration for the arXiv client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64
	BurstSize  int
	MaxResults int
	Enabled    bool

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

// Client implements the papersources.PaperSource interface for arXiv.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.PaperSource = (*Client)(nil)

// New creates a new arXiv client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:    string(domain.SourceTypeArXiv),
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		Metrics:   cfg.Metrics,
	})

	return &Client{config: cfg, httpClient: httpClient}
}

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

// Search queries arXiv for papers matching the given parameters, most relevant first.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("arxiv: %w", domain.ErrSourceDisabled)
	}
	startTime := time.Now()

	query := url.Values{}
	query.Set("search_query", buildSearchQuery(params))

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}
	query.Set("max_results", strconv.Itoa(maxResults))
	if params.Offset > 0 {
		query.Set("start", strconv.Itoa(params.Offset))
	}
	query.Set("sortBy", "relevance")
	query.Set("sortOrder", "descending")

	feed, err := c.fetchFeed(ctx, query)
	if err != nil {
		return nil, err
	}

	papers := make([]*domain.Paper, 0, len(feed.Entries))
	for i := range feed.Entries {
		if paper := entryToPaper(&feed.Entries[i]); paper != nil {
			papers = append(papers, paper)
		}
	}

	nextOffset := params.Offset + len(papers)
	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   feed.TotalResults,
		HasMore:        nextOffset < feed.TotalResults,
		NextOffset:     nextOffset,
		Source:         domain.SourceTypeArXiv,
		SearchDuration: time.Since(startTime),
	}, nil
}

// GetByID retrieves a specific paper by its arXiv ID.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("arxiv: %w", domain.ErrSourceDisabled)
	}

	query := url.Values{}
	query.Set("id_list", id)

	feed, err := c.fetchFeed(ctx, query)
	if err != nil {
		return nil, err
	}
	for i := range feed.Entries {
		if paper := entryToPaper(&feed.Entries[i]); paper != nil {
			return paper, nil
		}
	}
	return nil, domain.NewNotFoundError("paper", id)
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeArXiv
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) fetchFeed(ctx context.Context, query url.Values) (*Feed, error) {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/query"
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	var feed Feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &feed, nil
}

// buildSearchQuery scopes the query to all fields and appends a
// submittedDate range when the params carry date bounds.
func buildSearchQuery(params papersources.SearchParams) string {
	q := "all:" + params.Query
	if params.DateFrom == nil && params.DateTo == nil {
		return q
	}

	from, to := "*", "*"
	if params.DateFrom != nil {
		from = params.DateFrom.Format("20060102") + "0000"
	}
	if params.DateTo != nil {
		to = params.DateTo.Format("20060102") + "2359"
	}
	return fmt.Sprintf("%s AND submittedDate:[%s TO %s]", q, from, to)
}

// entryToPaper converts an arXiv Atom entry to a domain Paper.
// Entries without a recognizable arXiv ID are dropped.
func entryToPaper(entry *Entry) *domain.Paper {
	arxivID := extractArXivID(entry.ID)
	if arxivID == "" {
		return nil
	}

	ids := domain.PaperIdentifiers{
		ArXivID: arxivID,
		DOI:     strings.TrimSpace(entry.DOI),
	}

	var pubDate *time.Time
	var pubYear int
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(entry.Published)); err == nil {
		pubDate = &t
		pubYear = t.Year()
	}

	authors := make([]domain.Author, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		authors = append(authors, domain.Author{
			Name:        name,
			Affiliation: strings.TrimSpace(a.Affiliation),
		})
	}

	absURL, pdfURL := "", ""
	for _, link := range entry.Links {
		switch {
		case link.Title == "pdf" || link.Type == "application/pdf":
			pdfURL = link.Href
		case link.Rel == "alternate":
			absURL = link.Href
		}
	}
	if absURL == "" {
		absURL = "https://arxiv.org/abs/" + arxivID
	}
	if pdfURL == "" {
		pdfURL = "https://arxiv.org/pdf/" + arxivID
	}

	categories := make([]string, 0, len(entry.Categories))
	for _, cat := range entry.Categories {
		if cat.Term != "" {
			categories = append(categories, cat.Term)
		}
	}
	metadata := map[string]any{
		domain.FieldCategories: categories,
	}
	if ref := strings.TrimSpace(entry.JournalRef); ref != "" {
		metadata[domain.FieldJournalRef] = ref
	}
	if comment := strings.TrimSpace(entry.Comment); comment != "" {
		metadata[domain.FieldComment] = comment
	}
	if entry.PrimaryCategory.Term != "" {
		metadata[domain.FieldPrimaryCategory] = entry.PrimaryCategory.Term
	}

	return &domain.Paper{
		CanonicalID:     domain.GenerateCanonicalID(ids),
		Source:          domain.SourceTypeArXiv,
		SourceID:        arxivID,
		Identifiers:     ids,
		Title:           normalizeWhitespace(entry.Title),
		Abstract:        normalizeWhitespace(entry.Summary),
		Authors:         authors,
		PublicationDate: pubDate,
		PublicationYear: pubYear,
		Venue:           sourceName,
		Journal:         strings.TrimSpace(entry.JournalRef),
		URL:             absURL,
		PDFURL:          pdfURL,
		OpenAccess:      true,
		Metadata:        metadata,
	}
}

// extractArXivID extracts the arXiv ID from the full entry URL.
// Input: "http://arxiv.org/abs/2301.12345v1" yields "2301.12345".
func extractArXivID(entryURL string) string {
	matches := arxivIDRegex.FindStringSubmatch(strings.TrimSpace(entryURL))
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// normalizeWhitespace trims and collapses runs of whitespace, including the
// hard line breaks arXiv keeps in titles and summaries.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
