package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-rank-service/internal/domain"
)

func TestFlexInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
		err  bool
	}{
		{`12`, 12, false},
		{`"12"`, 12, false},
		{`" 2020 "`, 0, true},
		{`12.0`, 12, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`"abc"`, 0, true},
	}
	for _, tt := range tests {
		var n flexInt
		err := json.Unmarshal([]byte(tt.in), &n)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, int(n), tt.in)
	}
}

func TestSearchRequest_YearRange(t *testing.T) {
	y := func(v int) *flexInt { n := flexInt(v); return &n }

	req := searchRequest{Filters: searchFilters{YearStart: y(2010)}, YearLow: y(2000), YearHigh: y(2020)}
	start, end := req.yearRange()
	assert.Equal(t, 2010, start)
	assert.Equal(t, 2020, end)

	start, end = (&searchRequest{}).yearRange()
	assert.Zero(t, start)
	assert.Zero(t, end)
}

func TestValidationMessage(t *testing.T) {
	v := validator.New(validator.WithRequiredStructEnabled())
	big := flexInt(5000)

	err := v.Struct(&searchRequest{Query: "q", MaxResults: &big})
	assert.Equal(t, "max_results must be at most 1000", validationMessage(err))

	err = v.Struct(&searchRequest{})
	assert.Equal(t, "query is required", validationMessage(err))
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.NewValidationError("query", "bad"), http.StatusBadRequest},
		{"not found", domain.NewNotFoundError("paper", "x"), http.StatusNotFound},
		{"source disabled", domain.ErrSourceDisabled, http.StatusServiceUnavailable},
		{"external api", domain.NewExternalAPIError("pubmed", 500, "down", nil), http.StatusServiceUnavailable},
		{"llm unavailable", domain.ErrLLMUnavailable, http.StatusServiceUnavailable},
		{"internal", domain.ErrInternalError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeDomainError(rr, tt.err, "prefix: ")
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}
