package crossref

import (
	"context"
	"encoding/json"
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
	// DefaultBaseURL is the CrossRef REST API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is the default rate limit for the public pool.
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default number of rows per search.
	DefaultMaxResults = 10

	// MaxResultsLimit is the largest page CrossRef serves.
	MaxResultsLimit = 1000

	sourceName  = "CrossRef"
	doiBaseURL  = "https://doi.org/"
	maxBodySize = 10 << 20
)

// Config holds configuration for the CrossRef client.
type Config struct {
	BaseURL string

	// Email is sent as mailto so requests are routed to the polite pool.
	Email string

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

// Client implements the papersources.PaperSource interface for CrossRef.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.PaperSource = (*Client)(nil)

// New creates a new CrossRef client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	userAgent := papersources.DefaultUserAgent
	if cfg.Email != "" {
		userAgent += " (mailto:" + cfg.Email + ")"
	}

	return &Client{
		config: cfg,
		httpClient: papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Source:    string(domain.SourceTypeCrossRef),
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: cfg.BurstSize,
			UserAgent: userAgent,
			Metrics:   cfg.Metrics,
		}),
	}
}

// NewWithHTTPClient creates a new CrossRef client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

// Search queries /works using CrossRef's bibliographic relevance ranking.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("crossref: %w", domain.ErrSourceDisabled)
	}
	start := time.Now()

	rows := params.MaxResults
	if rows <= 0 {
		rows = c.config.MaxResults
	}
	if rows > MaxResultsLimit {
		rows = MaxResultsLimit
	}

	query := url.Values{}
	query.Set("query", params.Query)
	query.Set("rows", strconv.Itoa(rows))
	if params.Offset > 0 {
		query.Set("offset", strconv.Itoa(params.Offset))
	}
	if filters := buildFilters(params); len(filters) > 0 {
		query.Set("filter", strings.Join(filters, ","))
	}

	var resp WorksResponse
	if err := c.getJSON(ctx, "/works", query, &resp); err != nil {
		return nil, err
	}

	papers := make([]*domain.Paper, 0, len(resp.Message.Items))
	for i := range resp.Message.Items {
		if paper := workToPaper(&resp.Message.Items[i]); paper != nil {
			papers = append(papers, paper)
		}
	}

	nextOffset := params.Offset + len(resp.Message.Items)
	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   resp.Message.TotalResults,
		HasMore:        nextOffset < resp.Message.TotalResults,
		NextOffset:     nextOffset,
		Source:         domain.SourceTypeCrossRef,
		SearchDuration: time.Since(start),
	}, nil
}

// GetByID retrieves a work by DOI. A "https://doi.org/" or "doi:" prefix is accepted.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("crossref: %w", domain.ErrSourceDisabled)
	}

	doi := normalizeDOI(id)
	if doi == "" {
		return nil, domain.NewValidationError("id", "DOI is required")
	}

	var resp WorkResponse
	if err := c.getJSON(ctx, "/works/"+url.PathEscape(doi), url.Values{}, &resp); err != nil {
		return nil, err
	}

	paper := workToPaper(&resp.Message)
	if paper == nil {
		return nil, domain.NewNotFoundError("paper", id)
	}
	return paper, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeCrossRef
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}
	rawURL := strings.TrimRight(c.config.BaseURL, "/") + path
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.NewNotFoundError("work", strings.TrimPrefix(path, "/works/"))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// buildFilters maps the date bounds onto CrossRef publication date filters.
func buildFilters(params papersources.SearchParams) []string {
	var filters []string
	if params.DateFrom != nil {
		filters = append(filters, "from-pub-date:"+params.DateFrom.Format("2006-01-02"))
	}
	if params.DateTo != nil {
		filters = append(filters, "until-pub-date:"+params.DateTo.Format("2006-01-02"))
	}
	return filters
}

// workToPaper converts a CrossRef work to a domain Paper.
// Works without a DOI are dropped.
func workToPaper(work *Work) *domain.Paper {
	doi := normalizeDOI(work.DOI)
	if doi == "" {
		return nil
	}
	ids := domain.PaperIdentifiers{DOI: doi}

	title := ""
	if len(work.Title) > 0 {
		title = papersources.PlainText(work.Title[0])
	}
	venue := ""
	if len(work.ContainerTitle) > 0 {
		venue = work.ContainerTitle[0]
	}

	pubDate, pubYear := work.Issued.Time()
	if pubDate == nil {
		pubDate, pubYear = work.Published.Time()
	}

	authors := make([]domain.Author, 0, len(work.Author))
	for _, a := range work.Author {
		name := a.FullName()
		if name == "" {
			continue
		}
		author := domain.Author{
			Name:  name,
			ORCID: strings.TrimPrefix(strings.TrimPrefix(a.ORCID, "https://orcid.org/"), "http://orcid.org/"),
		}
		if len(a.Affiliation) > 0 {
			author.Affiliation = a.Affiliation[0].Name
		}
		authors = append(authors, author)
	}

	pdfURL := ""
	for _, link := range work.Link {
		if link.ContentType == "application/pdf" {
			pdfURL = link.URL
			break
		}
	}
	if pdfURL == "" {
		pdfURL = doiBaseURL + doi
	}

	landing := work.URL
	if landing == "" {
		landing = doiBaseURL + doi
	}

	metadata := map[string]any{}
	if work.Type != "" {
		metadata[domain.FieldWorkType] = work.Type
	}
	if work.Publisher != "" {
		metadata[domain.FieldPublisher] = work.Publisher
	}
	if work.Volume != "" {
		metadata[domain.FieldVolume] = work.Volume
	}
	if work.Issue != "" {
		metadata[domain.FieldIssue] = work.Issue
	}
	if work.Page != "" {
		metadata[domain.FieldPages] = work.Page
	}
	citations := work.CitedByCount

	return &domain.Paper{
		CanonicalID:     domain.GenerateCanonicalID(ids),
		Source:          domain.SourceTypeCrossRef,
		SourceID:        doi,
		Identifiers:     ids,
		Title:           title,
		Abstract:        papersources.PlainText(work.Abstract),
		Authors:         authors,
		PublicationDate: pubDate,
		PublicationYear: pubYear,
		Venue:           venue,
		Journal:         venue,
		CitationCount:   &citations,
		URL:             landing,
		PDFURL:          pdfURL,
		OpenAccess:      len(work.License) > 0,
		Metadata:        metadata,
	}
}

// FullName joins given and family names, falling back to the
// organizational name CrossRef uses for group authors.
func (a Author) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(a.Given) + " " + strings.TrimSpace(a.Family))
	if name == "" {
		name = strings.TrimSpace(a.Name)
	}
	return name
}

// Time returns the first date in the parts, or nil when no year is known.
// Missing month and day default to January and the first.
func (d DateParts) Time() (*time.Time, int) {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 || d.DateParts[0][0] == 0 {
		return nil, 0
	}
	parts := d.DateParts[0]
	year, month, day := parts[0], 1, 1
	if len(parts) > 1 && parts[1] >= 1 && parts[1] <= 12 {
		month = parts[1]
	}
	if len(parts) > 2 && parts[2] >= 1 && parts[2] <= 31 {
		day = parts[2]
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &t, year
}

func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, doiBaseURL)
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(strings.TrimSpace(doi))
}
