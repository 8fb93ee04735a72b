package httpserver

import (
	"net/http"
)

const rankInputRequired = "Papers data and verbose query are required"

// rankBM25 handles POST /api/rank-bm25. The papers come back in request
// order with bm25_score and relevanceScore set. When scoring fails the
// response is a 500 carrying the zero-filled records as a fallback.
func (s *Server) rankBM25(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, rankInputRequired)
		return
	}

	result := s.ranker.Rank(r.Context(), req.Papers, req.VerboseQuery)
	if !result.OK() {
		writeJSON(w, http.StatusInternalServerError, rankFallbackResponse{
			Error:                "Error during BM25 ranking: " + result.Err.Error(),
			RankedPapersFallback: result.Papers,
		})
		return
	}

	writeJSON(w, http.StatusOK, result.Papers)
}
