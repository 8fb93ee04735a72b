package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/helixir/paper-rank-service/internal/domain"
)

// Request and response types for JSON serialization.

// flexInt accepts a JSON number or a numeric string. Browser forms send
// either.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("not an integer: %s", data)
		}
		v = int(f)
	}
	*n = flexInt(v)
	return nil
}

func (n *flexInt) value() int {
	if n == nil {
		return 0
	}
	return int(*n)
}

type searchFilters struct {
	YearStart *flexInt `json:"yearStart" validate:"omitempty,min=0,max=9999"`
	YearEnd   *flexInt `json:"yearEnd" validate:"omitempty,min=0,max=9999"`
}

type searchRequest struct {
	Query      string        `json:"query" validate:"required"`
	MaxResults *flexInt      `json:"max_results" validate:"omitempty,min=1,max=1000"`
	Filters    searchFilters `json:"filters"`
	YearLow    *flexInt      `json:"year_low" validate:"omitempty,min=0,max=9999"`
	YearHigh   *flexInt      `json:"year_high" validate:"omitempty,min=0,max=9999"`
	// Sources restricts /api/search to the listed sources.
	Sources []string `json:"sources" validate:"omitempty,dive,oneof=pubmed arxiv semantic_scholar crossref scholar"`
}

// yearRange prefers the filters object and falls back to year_low/year_high.
func (r *searchRequest) yearRange() (start, end int) {
	start, end = r.Filters.YearStart.value(), r.Filters.YearEnd.value()
	if start == 0 {
		start = r.YearLow.value()
	}
	if end == 0 {
		end = r.YearHigh.value()
	}
	return start, end
}

type searchAllResponse struct {
	Papers []domain.PaperRecord `json:"papers"`
	Errors map[string]string    `json:"errors"`
}

type rankRequest struct {
	Papers       []domain.PaperRecord `json:"papers" validate:"required,min=1"`
	VerboseQuery string               `json:"verbose_query" validate:"required"`
}

type rankFallbackResponse struct {
	Error                string               `json:"error"`
	RankedPapersFallback []domain.PaperRecord `json:"ranked_papers_fallback"`
}

type refineRequest struct {
	Query string `json:"query"`
	Model string `json:"model"`
}

type refineResponse struct {
	RefinedQuery string `json:"refined_query"`
}

type summarizeRequest struct {
	Abstract string `json:"abstract"`
	Model    string `json:"model"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

// decodeJSON reads the request body into v. It reports whether decoding
// succeeded and has already written the error response when it did not.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	return true
}

// validationMessage renders the first failed rule of a validator error.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := jsonFieldName(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("unsupported %s: %v", field, fe.Value())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

var jsonFieldNames = map[string]string{
	"Query":        "query",
	"MaxResults":   "max_results",
	"YearStart":    "filters.yearStart",
	"YearEnd":      "filters.yearEnd",
	"YearLow":      "year_low",
	"YearHigh":     "year_high",
	"Sources":      "source",
	"Papers":       "papers",
	"VerboseQuery": "verbose_query",
}

// jsonFieldName maps a validator namespace such as
// "searchRequest.Sources[1]" to the request's JSON field name.
func jsonFieldName(namespace string) string {
	name := namespace[strings.LastIndex(namespace, ".")+1:]
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if mapped, ok := jsonFieldNames[name]; ok {
		return mapped
	}
	return name
}

// writeDomainError maps domain errors to HTTP status codes. prefix is
// prepended to the message of server-side failures.
func writeDomainError(w http.ResponseWriter, err error, prefix string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, prefix+err.Error())
	case isUpstreamError(err):
		writeError(w, http.StatusServiceUnavailable, prefix+err.Error())
	default:
		writeError(w, http.StatusInternalServerError, prefix+err.Error())
	}
}

// isUpstreamError reports failures of a remote dependency: paper source
// APIs, rate limiting, disabled sources and unreachable language models.
func isUpstreamError(err error) bool {
	var apiErr *domain.ExternalAPIError
	return errors.As(err, &apiErr) ||
		errors.Is(err, domain.ErrRateLimited) ||
		errors.Is(err, domain.ErrServiceUnavailable) ||
		errors.Is(err, domain.ErrSourceDisabled) ||
		errors.Is(err, domain.ErrLLMUnavailable)
}
