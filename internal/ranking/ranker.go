package ranking

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-rank-service/internal/domain"
	"github.com/helixir/paper-rank-service/internal/observability"
)

// Degenerate names the reason a ranking pass skipped the statistical model.
type Degenerate string

const (
	// NotDegenerate means the index was built and scored normally.
	NotDegenerate Degenerate = ""

	// DegenerateEmptyCorpus means every abstract tokenized to nothing.
	DegenerateEmptyCorpus Degenerate = "empty_corpus"

	// DegenerateEmptyQuery means the query tokenized to nothing.
	DegenerateEmptyQuery Degenerate = "empty_query"
)

// Result is the outcome of a ranking pass. Papers is always fully populated:
// scored on success, zero-filled when Err is set.
type Result struct {
	Papers     []domain.PaperRecord
	Err        error
	Degenerate Degenerate
}

// OK reports whether scoring completed.
func (r Result) OK() bool {
	return r.Err == nil
}

// Rank scores each paper's abstract against verboseQuery and writes the
// score to bm25_score and relevanceScore. The returned slice holds the same
// records in the same order.
func Rank(papers []domain.PaperRecord, verboseQuery string) (result Result) {
	out := make([]domain.PaperRecord, len(papers))
	copy(out, papers)

	defer func() {
		if rec := recover(); rec != nil {
			zeroFill(out)
			result = Result{
				Papers: out,
				Err:    domain.NewRankingError(-1, fmt.Sprintf("panic: %v", rec), nil),
			}
		}
	}()

	for i, p := range out {
		if p == nil {
			zeroFill(out)
			return Result{
				Papers: out,
				Err:    domain.NewRankingError(i, "record is null", domain.ErrMalformedRecord),
			}
		}
	}

	corpus := make([][]string, len(out))
	hasTerms := false
	for i, p := range out {
		corpus[i] = Tokenize(p.Abstract())
		if len(corpus[i]) > 0 {
			hasTerms = true
		}
	}

	if !hasTerms {
		zeroFill(out)
		return Result{Papers: out, Degenerate: DegenerateEmptyCorpus}
	}

	query := Tokenize(verboseQuery)
	if len(query) == 0 {
		zeroFill(out)
		return Result{Papers: out, Degenerate: DegenerateEmptyQuery}
	}

	scores := NewBM25(corpus).Scores(query)
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			zeroFill(out)
			return Result{
				Papers: out,
				Err:    domain.NewRankingError(i, fmt.Sprintf("non-finite score %v", s), nil),
			}
		}
	}

	for i, p := range out {
		p.SetScore(scores[i])
	}

	return Result{Papers: out}
}

// zeroFill writes 0.0 to both score fields of every record. Null records are
// replaced with empty ones so every slot carries a score.
func zeroFill(papers []domain.PaperRecord) {
	for i := range papers {
		if papers[i] == nil {
			papers[i] = domain.PaperRecord{}
		}
		papers[i].SetScore(0)
	}
}

// Ranker wraps Rank with logging and metrics for use by request handlers.
type Ranker struct {
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewRanker creates a Ranker. metrics may be nil.
func NewRanker(logger zerolog.Logger, metrics *observability.Metrics) *Ranker {
	return &Ranker{
		logger:  logger.With().Str("component", "bm25-ranker").Logger(),
		metrics: metrics,
	}
}

// Rank runs a ranking pass. The context only carries request metadata; the
// computation itself has no suspension points.
func (r *Ranker) Rank(ctx context.Context, papers []domain.PaperRecord, verboseQuery string) Result {
	logger := observability.WithRankingContext(r.logger, observability.RequestIDFromContext(ctx), len(papers))
	logger.Info().
		Str("query", truncate(verboseQuery, 100)).
		Msg("ranking papers")

	start := time.Now()
	result := Rank(papers, verboseQuery)
	elapsed := time.Since(start).Seconds()

	switch {
	case result.Err != nil:
		logger.Error().Err(result.Err).Msg("ranking failed, returning zero scores")
		if r.metrics != nil {
			r.metrics.RecordRankingFailed(elapsed)
		}
		return result
	case result.Degenerate == DegenerateEmptyCorpus:
		logger.Warn().Msg("all abstracts are empty, assigning zero scores")
	case result.Degenerate == DegenerateEmptyQuery:
		logger.Warn().Msg("query is empty after tokenization, assigning zero scores")
	default:
		logger.Info().Float64("duration_seconds", elapsed).Msg("ranking completed")
	}

	if r.metrics != nil {
		r.metrics.RecordRankingCompleted(string(result.Degenerate), len(papers), elapsed)
	}

	return result
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
