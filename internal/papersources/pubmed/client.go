package pubmed

import (
	"context"
	"encoding/xml"
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
	// DefaultBaseURL is the base URL for NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRateLimit is the rate limit without an API key (3 requests/second).
	// With an API key, the limit increases to 10 requests/second.
	DefaultRateLimit = 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per search.
	DefaultMaxResults = 10

	// MaxResultsLimit is the maximum results allowed per request by the API.
	MaxResultsLimit = 10000

	// ArticleBaseURL is the landing page prefix for a PMID.
	ArticleBaseURL = "https://pubmed.ncbi.nlm.nih.gov/"

	// sourceName is the human-readable name for this source.
	sourceName = "PubMed"

	maxBodySize = 10 << 20
)

// Config holds the configuration for the PubMed client.
type Config struct {
	// BaseURL is the base URL for the E-utilities API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the NCBI API key for higher rate limits.
	// Optional but recommended for production use.
	APIKey string

	// Timeout is the request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to DefaultRateLimit (3 req/sec) if zero.
	// With an API key, you can increase this to 10 req/sec.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to DefaultBurstSize if zero.
	BurstSize int

	// MaxResults is the default maximum results per search.
	// Defaults to DefaultMaxResults if zero.
	MaxResults int

	// Enabled indicates whether this source is enabled.
	// When false, Search and GetByID return domain.ErrSourceDisabled.
	Enabled bool

	// Metrics receives outbound request metrics. May be nil.
	Metrics *observability.Metrics
}

// applyDefaults applies default values to the config.
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

// Client implements the papersources.PaperSource interface for PubMed.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Compile-time check that Client implements PaperSource.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new PubMed client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpCfg := papersources.HTTPClientConfig{
		Source:    string(domain.SourceTypePubMed),
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		Metrics:   cfg.Metrics,
	}

	return &Client{
		config:     cfg,
		httpClient: papersources.NewHTTPClient(httpCfg),
	}
}

// NewWithHTTPClient creates a new PubMed client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries PubMed for papers matching the given parameters, sorted by
// relevance. It performs a two-step search: esearch.fcgi returns PMIDs and
// efetch.fcgi returns the article metadata for them.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("pubmed: %w", domain.ErrSourceDisabled)
	}

	startTime := time.Now()

	// Step 1: Search for PMIDs
	searchResult, err := c.esearch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("esearch failed: %w", err)
	}

	// A phrase that matches nothing is an empty result, not an error.
	if searchResult.ErrorList != nil {
		if len(searchResult.ErrorList.PhraseNotFound) > 0 {
			return &papersources.SearchResult{
				Papers:         []*domain.Paper{},
				TotalResults:   0,
				HasMore:        false,
				NextOffset:     0,
				Source:         domain.SourceTypePubMed,
				SearchDuration: time.Since(startTime),
			}, nil
		}
	}

	if len(searchResult.IDList.IDs) == 0 {
		return &papersources.SearchResult{
			Papers:         []*domain.Paper{},
			TotalResults:   searchResult.Count,
			HasMore:        searchResult.Count > params.Offset,
			NextOffset:     params.Offset,
			Source:         domain.SourceTypePubMed,
			SearchDuration: time.Since(startTime),
		}, nil
	}

	articles, err := c.efetch(ctx, searchResult.IDList.IDs)
	if err != nil {
		return nil, fmt.Errorf("efetch failed: %w", err)
	}

	papers := make([]*domain.Paper, 0, len(articles.Articles))
	for _, article := range articles.Articles {
		papers = append(papers, c.articleToPaper(article))
	}

	nextOffset := params.Offset + len(papers)
	hasMore := nextOffset < searchResult.Count

	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   searchResult.Count,
		HasMore:        hasMore,
		NextOffset:     nextOffset,
		Source:         domain.SourceTypePubMed,
		SearchDuration: time.Since(startTime),
	}, nil
}

// GetByID retrieves a specific paper by its PubMed ID (PMID).
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Paper, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("pubmed: %w", domain.ErrSourceDisabled)
	}

	articles, err := c.efetch(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("efetch failed: %w", err)
	}

	if len(articles.Articles) == 0 {
		return nil, domain.NewNotFoundError("paper", id)
	}

	return c.articleToPaper(articles.Articles[0]), nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypePubMed
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// esearch performs a search query and returns matching PMIDs.
func (c *Client) esearch(ctx context.Context, params papersources.SearchParams) (*ESearchResult, error) {
	u, err := url.Parse(c.config.BaseURL + "/esearch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("db", "pubmed")
	q.Set("term", params.Query)
	q.Set("retmode", "xml")
	q.Set("usehistory", "n")
	q.Set("sort", "relevance")

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}
	if maxResults > MaxResultsLimit {
		maxResults = MaxResultsLimit
	}
	q.Set("retmax", strconv.Itoa(maxResults))

	if params.Offset > 0 {
		q.Set("retstart", strconv.Itoa(params.Offset))
	}

	if params.DateFrom != nil || params.DateTo != nil {
		q.Set("datetype", "pdat")

		if params.DateFrom != nil {
			q.Set("mindate", params.DateFrom.Format("2006/01/02"))
		}
		if params.DateTo != nil {
			q.Set("maxdate", params.DateTo.Format("2006/01/02"))
		}
	}

	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}

	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result ESearchResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}

	return &result, nil
}

// efetch retrieves full article metadata for the given PMIDs.
func (c *Client) efetch(ctx context.Context, pmids []string) (*PubmedArticleSet, error) {
	if len(pmids) == 0 {
		return &PubmedArticleSet{}, nil
	}

	u, err := url.Parse(c.config.BaseURL + "/efetch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("db", "pubmed")
	q.Set("id", strings.Join(pmids, ","))
	q.Set("retmode", "xml")
	q.Set("rettype", "abstract")

	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}

	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result PubmedArticleSet
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}

	return &result, nil
}

// articleToPaper converts a PubmedArticle to a domain.Paper.
func (c *Client) articleToPaper(article PubmedArticle) *domain.Paper {
	citation := article.MedlineCitation
	pubmedData := article.PubmedData
	pmid := strings.TrimSpace(citation.PMID.Value)

	doi := extractDOI(citation.Article, pubmedData)
	ids := domain.PaperIdentifiers{
		DOI:      doi,
		PubMedID: pmid,
	}
	for _, aid := range pubmedData.ArticleIdList.ArticleIds {
		if aid.IdType == "pmc" {
			ids.PMCID = aid.Value
			break
		}
	}

	pubDate, pubYear := extractPublicationDate(citation.Article)

	journal := citation.Article.Journal.Title
	if journal == "" {
		journal = citation.Article.Journal.ISOAbbreviation
	}

	metadata := map[string]any{}
	if ids.PMCID != "" {
		metadata[domain.FieldPMCID] = ids.PMCID
	}
	if v := citation.Article.Journal.JournalIssue.Volume; v != "" {
		metadata[domain.FieldVolume] = v
	}
	if v := citation.Article.Journal.JournalIssue.Issue; v != "" {
		metadata[domain.FieldIssue] = v
	}
	if pages := extractPages(citation.Article.Pagination); pages != "" {
		metadata[domain.FieldPages] = pages
	}
	if citation.MeshHeadingList != nil {
		meshTerms := make([]string, 0, len(citation.MeshHeadingList.MeshHeadings))
		for _, mh := range citation.MeshHeadingList.MeshHeadings {
			meshTerms = append(meshTerms, mh.DescriptorName.Value)
		}
		metadata[domain.FieldMeshTerms] = meshTerms
	}
	if citation.KeywordList != nil {
		keywords := make([]string, 0, len(citation.KeywordList.Keywords))
		for _, kw := range citation.KeywordList.Keywords {
			keywords = append(keywords, kw.Value)
		}
		metadata[domain.FieldKeywords] = keywords
	}

	paper := &domain.Paper{
		CanonicalID:     domain.GenerateCanonicalID(ids),
		Source:          domain.SourceTypePubMed,
		SourceID:        pmid,
		Identifiers:     ids,
		Title:           citation.Article.ArticleTitle.String(),
		Abstract:        extractAbstract(citation.Article.Abstract),
		Authors:         extractAuthors(citation.Article.AuthorList),
		PublicationDate: pubDate,
		PublicationYear: pubYear,
		Venue:           journal,
		Journal:         journal,
		Metadata:        metadata,
	}
	if pmid != "" {
		paper.URL = ArticleBaseURL + pmid + "/"
	}
	if doi != "" {
		paper.PDFURL = "https://doi.org/" + doi
	}
	return paper
}

// extractDOI extracts the DOI from article metadata.
// It checks ELocationID first (more reliable), then ArticleIdList.
func extractDOI(article Article, pubmedData PubmedData) string {
	// Check ELocationID first
	for _, eloc := range article.ELocationID {
		if eloc.EIdType == "doi" && (eloc.Valid == "" || eloc.Valid == "Y") {
			return eloc.Value
		}
	}

	// Check ArticleIdList
	for _, aid := range pubmedData.ArticleIdList.ArticleIds {
		if aid.IdType == "doi" {
			return aid.Value
		}
	}

	return ""
}

// extractPublicationDate extracts the publication date from the article.
// Returns the parsed date and year. Uses ArticleDate if available, otherwise PubDate.
func extractPublicationDate(article Article) (*time.Time, int) {
	for _, ad := range article.ArticleDate {
		if ad.DateType == "epublish" || ad.DateType == "Electronic" || ad.DateType == "" {
			if t := parseDate(ad.Year, ad.Month, ad.Day); t != nil {
				return t, t.Year()
			}
		}
	}

	pubDate := article.Journal.JournalIssue.PubDate

	// Handle MedlineDate format (e.g., "2020 Jan-Feb")
	if pubDate.MedlineDate != "" {
		year := extractYearFromMedlineDate(pubDate.MedlineDate)
		if year > 0 {
			t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			return &t, year
		}
	}

	if pubDate.Year != "" {
		t := parseDate(pubDate.Year, pubDate.Month, pubDate.Day)
		if t != nil {
			return t, t.Year()
		}
		if year, err := strconv.Atoi(pubDate.Year); err == nil {
			t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			return &t, year
		}
	}

	return nil, 0
}

// parseDate parses year, month, day strings into a time.Time.
func parseDate(year, month, day string) *time.Time {
	if year == "" {
		return nil
	}

	y, err := strconv.Atoi(year)
	if err != nil {
		return nil
	}

	m := parseMonth(month)
	d := 1
	if day != "" {
		if parsed, err := strconv.Atoi(day); err == nil {
			d = parsed
		}
	}

	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// monthNames maps lowercase month names and abbreviations to time.Month.
var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// parseMonth parses a month string (numeric or name) into time.Month.
func parseMonth(month string) time.Month {
	if month == "" {
		return time.January
	}

	if m, err := strconv.Atoi(month); err == nil && m >= 1 && m <= 12 {
		return time.Month(m)
	}

	if m, ok := monthNames[strings.ToLower(month)]; ok {
		return m
	}

	return time.January
}

// extractYearFromMedlineDate extracts the year from a MedlineDate string.
func extractYearFromMedlineDate(medlineDate string) int {
	// MedlineDate can be "2020 Jan-Feb", "2020 Spring", "2020-2021", etc.
	parts := strings.Fields(medlineDate)
	if len(parts) > 0 {
		yearStr := strings.Split(parts[0], "-")[0]
		if year, err := strconv.Atoi(yearStr); err == nil {
			return year
		}
	}
	return 0
}

// extractAbstract joins structured abstract sections as "LABEL: text", one
// section per line.
func extractAbstract(abstract *Abstract) string {
	if abstract == nil || len(abstract.AbstractTexts) == 0 {
		return ""
	}

	var parts []string
	for _, at := range abstract.AbstractTexts {
		text := at.Text()
		if text == "" {
			continue
		}
		if at.Label != "" {
			parts = append(parts, at.Label+": "+text)
		} else {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, "\n")
}

// extractAuthors converts PubMed authors to domain authors.
func extractAuthors(authorList *AuthorList) []domain.Author {
	if authorList == nil || len(authorList.Authors) == 0 {
		return nil
	}

	authors := make([]domain.Author, 0, len(authorList.Authors))
	for _, a := range authorList.Authors {
		if a.ValidYN == "N" {
			continue
		}

		name := authorName(a)
		if name == "" {
			continue
		}

		var orcid string
		for _, id := range a.Identifiers {
			if strings.ToUpper(id.Source) == "ORCID" {
				orcid = id.Value
				break
			}
		}

		var affiliation string
		if len(a.AffiliationInfo) > 0 {
			affiliation = a.AffiliationInfo[0].Affiliation
		}

		authors = append(authors, domain.Author{
			Name:        name,
			Affiliation: affiliation,
			ORCID:       orcid,
		})
	}

	return authors
}

// authorName prefers "ForeName LastName", then "Initials LastName", then
// whichever part is present.
func authorName(a Author) string {
	if a.CollectiveName != "" {
		return strings.TrimSpace(a.CollectiveName)
	}
	first := a.ForeName
	if first == "" {
		first = a.Initials
	}
	return strings.TrimSpace(strings.Join(strings.Fields(first+" "+a.LastName), " "))
}

// extractPages formats the page information.
func extractPages(pagination *Pagination) string {
	if pagination == nil {
		return ""
	}

	if pagination.MedlinePgn != "" {
		return pagination.MedlinePgn
	}

	if pagination.StartPage != "" {
		if pagination.EndPage != "" && pagination.EndPage != pagination.StartPage {
			return pagination.StartPage + "-" + pagination.EndPage
		}
		return pagination.StartPage
	}

	return ""
}
