package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/helixir/paper-rank-service/internal/domain"
	"github.com/helixir/paper-rank-service/internal/papersources"
)

// sourceRoutes maps the per-source search paths under /api to their sources.
var sourceRoutes = map[string]domain.SourceType{
	"search-pubmed":           domain.SourceTypePubMed,
	"search-arxiv":            domain.SourceTypeArXiv,
	"search-semantic-scholar": domain.SourceTypeSemanticScholar,
	"search-crossref":         domain.SourceTypeCrossRef,
	"search-scholar":          domain.SourceTypeScholar,
}

// searchSource returns the handler for POST /api/search-<source>. It
// responds with a JSON array of paper records in the source's order.
func (s *Server) searchSource(sourceType domain.SourceType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := s.decodeSearchRequest(w, r)
		if !ok {
			return
		}

		ctx, cancel := s.searchContext(r.Context())
		defer cancel()

		var results []papersources.SourceResult
		if s.registry != nil {
			results = s.registry.SearchSources(ctx, s.searchParams(req), []domain.SourceType{sourceType})
		}
		if len(results) == 0 {
			writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("%s search is disabled", sourceType.DisplayName()))
			return
		}

		res := results[0]
		if res.Error != nil {
			s.logger.Error().Err(res.Error).Str("source", string(sourceType)).Msg("search failed")
			writeDomainError(w, res.Error, fmt.Sprintf("Error searching %s: ", sourceType.DisplayName()))
			return
		}

		var papers []*domain.Paper
		if res.Result != nil {
			papers = res.Result.Papers
		}
		writeJSON(w, http.StatusOK, domain.NewPaperRecords(papers))
	}
}

// searchAll handles POST /api/search. Every enabled source (or the listed
// ones) is queried concurrently; the results are merged in source order
// with duplicates removed. Per-source failures are reported alongside the
// papers that did arrive.
func (s *Server) searchAll(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSearchRequest(w, r)
	if !ok {
		return
	}

	sourceTypes := make([]domain.SourceType, len(req.Sources))
	for i, src := range req.Sources {
		sourceTypes[i] = domain.SourceType(src)
	}

	ctx, cancel := s.searchContext(r.Context())
	defer cancel()

	var results []papersources.SourceResult
	if s.registry != nil {
		results = s.registry.SearchSources(ctx, s.searchParams(req), sourceTypes)
	}
	if len(results) == 0 {
		writeError(w, http.StatusServiceUnavailable, "no paper sources are enabled")
		return
	}

	resp := searchAllResponse{Errors: map[string]string{}}
	lists := make([][]*domain.Paper, 0, len(results))
	for _, res := range results {
		if res.Error != nil {
			resp.Errors[string(res.Source)] = res.Error.Error()
			continue
		}
		if res.Result != nil {
			lists = append(lists, res.Result.Papers)
		}
	}
	resp.Papers = domain.NewPaperRecords(s.merger.Merge(lists...))

	s.logger.Info().
		Str("query", req.Query).
		Int("sources", len(results)).
		Int("failed", len(resp.Errors)).
		Int("papers", len(resp.Papers)).
		Msg("merged search completed")

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decodeSearchRequest(w http.ResponseWriter, r *http.Request) (*searchRequest, bool) {
	var req searchRequest
	if !decodeJSON(w, r, &req) {
		return nil, false
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return nil, false
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return nil, false
	}
	return &req, true
}

func (s *Server) searchParams(req *searchRequest) papersources.SearchParams {
	maxResults := req.MaxResults.value()
	if maxResults <= 0 {
		maxResults = s.cfg.DefaultMaxResults
	}
	from, to := papersources.YearRange(req.yearRange())
	return papersources.SearchParams{
		Query:      req.Query,
		DateFrom:   from,
		DateTo:     to,
		MaxResults: maxResults,
	}
}

func (s *Server) searchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.SearchTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.SearchTimeout)
	}
	return context.WithCancel(ctx)
}
