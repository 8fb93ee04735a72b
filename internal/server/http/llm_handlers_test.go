package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-rank-service/internal/domain"
)

func TestRefineQuery(t *testing.T) {
	assistant := &fakeAssistant{refined: "CRISPR-Cas9 off-target effects"}
	s := newTestServer(t, Config{}, assistant)

	rr := doJSON(t, s, http.MethodPost, "/api/ollama-refine-query", `{"query":"crispr problems","model":"gemma:3b"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"refined_query":"CRISPR-Cas9 off-target effects"}`, rr.Body.String())
	assert.Equal(t, "crispr problems", assistant.gotText)
	assert.Equal(t, "gemma:3b", assistant.gotModel)

	rr = doJSON(t, s, http.MethodPost, "/api/ollama-refine-query", `{"model":"gemma:3b"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Query is required", decodeBody[map[string]string](t, rr)["error"])
}

func TestSummarizeAbstract(t *testing.T) {
	assistant := &fakeAssistant{summary: "Short."}
	s := newTestServer(t, Config{}, assistant)

	rr := doJSON(t, s, http.MethodPost, "/api/ollama-summarize-abstract", `{"abstract":"A long abstract."}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"summary":"Short."}`, rr.Body.String())
	assert.Empty(t, assistant.gotModel)

	rr = doJSON(t, s, http.MethodPost, "/api/ollama-summarize-abstract", `{"abstract":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Abstract is required", decodeBody[map[string]string](t, rr)["error"])
}

func TestLLMRoutes_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"model unreachable", fmt.Errorf("refine_query: %w", domain.ErrLLMUnavailable), http.StatusServiceUnavailable},
		{"model rejected request", errors.New("ollama: API error (status 404): model not found"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, Config{}, &fakeAssistant{err: tt.err})

			rr := doJSON(t, s, http.MethodPost, "/api/ollama-refine-query", `{"query":"q"}`)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, decodeBody[map[string]string](t, rr)["error"], "Error refining query: ")

			rr = doJSON(t, s, http.MethodPost, "/api/ollama-summarize-abstract", `{"abstract":"a"}`)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, decodeBody[map[string]string](t, rr)["error"], "Error summarizing abstract: ")
		})
	}
}

func TestLLMRoutes_NotConfigured(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	rr := doJSON(t, s, http.MethodPost, "/api/ollama-refine-query", `{"query":"q"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
