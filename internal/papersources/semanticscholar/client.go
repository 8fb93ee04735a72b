package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/helixir/paper-rank-service/internal/domain"
	"github.com/helixir/paper-rank-service/internal/observability"
	"github.com/helixir/paper-rank-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the default rate limit. Unauthenticated access is
	// shared across all anonymous users, so keep it low without a key.
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum number of results per request.
	DefaultMaxResults = 10

	// MaxResultsLimit is the largest page the search endpoint accepts.
	MaxResultsLimit = 100

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// paperFields is the list of fields to request from the API.
	paperFields = "paperId,externalIds,url,title,abstract,year,publicationDate,venue,journal,authors,citationCount,isOpenAccess,openAccessPdf"

	// sourceName is the human-readable name for this source.
	sourceName = "Semantic Scholar"

	maxBodySize = 10 << 20
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the base URL for the API.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	APIKey string

	Timeout    time.Duration
	RateLimit  float64
	BurstSize  int
	MaxResults int
	Enabled    bool

	// Metrics receives outbound request metrics. May be nil.
	Metrics *observability.Metrics
}

// Client implements the papersources.PaperSource interface for Semantic Scholar.
type Client struct {
	httpClient *papersources.HTTPClient
	config     Config
}

var _ papersources.PaperSource = (*Client)(nil)

// NewClient creates a new Semantic Scholar client with the given configuration.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = DefaultMaxResults
	}

	if httpClient == nil {
		httpClient = papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Source:       string(domain.SourceTypeSemanticScholar),
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
			Metrics:      cfg.Metrics,
		})
	}

	return &Client{httpClient: httpClient, config: cfg}
}

// Search queries Semantic Scholar for papers matching the given parameters.
// The API filters by year only, so papers are also checked against the
// params' year bounds after decoding.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("semantic scholar: %w", domain.ErrSourceDisabled)
	}
	start := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if err := handleErrorResponse(resp); err != nil {
		return nil, err
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	papers := make([]*domain.Paper, 0, len(searchResp.Data))
	for _, result := range searchResp.Data {
		if !params.InDateRange(result.Year) {
			continue
		}
		papers = append(papers, convertToPaper(result))
	}

	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   searchResp.Total,
		HasMore:        searchResp.Next > 0,
		NextOffset:     searchResp.Next,
		Source:         domain.SourceTypeSemanticScholar,
		SearchDuration: time.Since(start),
	}, nil
}

// GetByID retrieves a specific paper by its Semantic Scholar ID or any
// prefixed identifier the API accepts (e.g. "DOI:10.1/x", "ARXIV:2301.1").
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("semantic scholar: %w", domain.ErrSourceDisabled)
	}

	paperURL := fmt.Sprintf("%s/paper/%s?fields=%s", c.config.BaseURL, url.PathEscape(id), paperFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, paperURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewNotFoundError("paper", id)
	}
	if err := handleErrorResponse(resp); err != nil {
		return nil, err
	}

	var paperResult PaperResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&paperResult); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return convertToPaper(paperResult), nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeSemanticScholar
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is currently enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath("paper", "search")

	q := searchURL.Query()
	q.Set("query", params.Query)
	q.Set("fields", paperFields)

	limit := params.MaxResults
	if limit <= 0 {
		limit = c.config.MaxResults
	}
	if limit > MaxResultsLimit {
		limit = MaxResultsLimit
	}
	q.Set("limit", strconv.Itoa(limit))

	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}

	if year := yearFilter(params.DateFrom, params.DateTo); year != "" {
		q.Set("year", year)
	}

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// yearFilter renders the API's year range syntax: "2019-2021", "2019-" or "-2021".
func yearFilter(from, to *time.Time) string {
	switch {
	case from != nil && to != nil:
		return fmt.Sprintf("%d-%d", from.Year(), to.Year())
	case from != nil:
		return fmt.Sprintf("%d-", from.Year())
	case to != nil:
		return fmt.Sprintf("-%d", to.Year())
	}
	return ""
}

// handleErrorResponse checks for API errors and returns appropriate error types.
func handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to read error response", err)
	}

	message := string(body)
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Error != "" {
			message = errResp.Error
		} else if errResp.Message != "" {
			message = errResp.Message
		}
	}
	return domain.NewExternalAPIError(sourceName, resp.StatusCode, message, nil)
}

func convertToPaper(result PaperResult) *domain.Paper {
	ids := domain.PaperIdentifiers{SemanticScholarID: result.PaperID}
	if result.ExternalIDs != nil {
		ids.DOI = result.ExternalIDs.DOI
		ids.ArXivID = result.ExternalIDs.ArXiv
		ids.PubMedID = result.ExternalIDs.PubMed
		ids.PMCID = result.ExternalIDs.PubMedCentral
	}

	paper := &domain.Paper{
		CanonicalID:     domain.GenerateCanonicalID(ids),
		Source:          domain.SourceTypeSemanticScholar,
		SourceID:        result.PaperID,
		Identifiers:     ids,
		Title:           result.Title,
		Abstract:        result.Abstract,
		PublicationYear: result.Year,
		Venue:           result.Venue,
		CitationCount:   result.CitationCount,
		URL:             result.URL,
		OpenAccess:      result.IsOpenAccess,
		Metadata:        map[string]any{},
	}

	if result.PublicationDate != "" {
		if pubDate, err := time.Parse("2006-01-02", result.PublicationDate); err == nil {
			paper.PublicationDate = &pubDate
		}
	}

	if result.Journal != nil {
		paper.Journal = result.Journal.Name
		if result.Journal.Volume != "" {
			paper.Metadata[domain.FieldVolume] = result.Journal.Volume
		}
		if result.Journal.Pages != "" {
			paper.Metadata[domain.FieldPages] = result.Journal.Pages
		}
	}
	if paper.Venue == "" {
		paper.Venue = paper.Journal
	}

	if result.OpenAccessPDF != nil && result.OpenAccessPDF.URL != "" {
		paper.PDFURL = result.OpenAccessPDF.URL
	}

	paper.Authors = make([]domain.Author, 0, len(result.Authors))
	for _, a := range result.Authors {
		if a.Name == "" {
			continue
		}
		paper.Authors = append(paper.Authors, domain.Author{Name: a.Name})
	}

	return paper
}
