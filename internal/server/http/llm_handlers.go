package httpserver

import (
	"net/http"
	"strings"
)

// refineQuery handles POST /api/ollama-refine-query.
func (s *Server) refineQuery(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}
	if s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "language model is not configured")
		return
	}

	refined, err := s.assistant.RefineQuery(r.Context(), req.Query, req.Model)
	if err != nil {
		writeDomainError(w, err, "Error refining query: ")
		return
	}
	writeJSON(w, http.StatusOK, refineResponse{RefinedQuery: refined})
}

// summarizeAbstract handles POST /api/ollama-summarize-abstract.
func (s *Server) summarizeAbstract(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Abstract) == "" {
		writeError(w, http.StatusBadRequest, "Abstract is required")
		return
	}
	if s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "language model is not configured")
		return
	}

	summary, err := s.assistant.SummarizeAbstract(r.Context(), req.Abstract, req.Model)
	if err != nil {
		writeDomainError(w, err, "Error summarizing abstract: ")
		return
	}
	writeJSON(w, http.StatusOK, summarizeResponse{Summary: summary})
}
