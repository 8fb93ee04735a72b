// Package observability provides logging and metrics support for the paper
// rank service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger = observability.WithRankingContext(logger, requestID, len(papers))
//
// # Metrics
//
//	metrics := observability.NewMetrics("paper_rank")
//	metrics.RecordRankingCompleted("", len(papers), elapsed.Seconds())
//	metrics.RecordSearchCompleted("pubmed", 20, 1.2)
//
// # Standard Fields
//
//   - request_id: chi request identifier
//   - correlation_id: caller-supplied X-Correlation-ID
//   - query: search or ranking query
//   - source: paper source (pubmed, arxiv, crossref, ...)
//   - paper_count: number of papers in a ranking pass
//   - provider, model, operation: language-model calls
//
// All components are safe for concurrent use from multiple goroutines.
package observability
