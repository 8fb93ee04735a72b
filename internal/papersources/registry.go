package papersources

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/paper-rank-service/internal/domain"
	"github.com/helixir/paper-rank-service/internal/observability"
)

// SourceResult holds the result of a search from one source.
type SourceResult struct {
	// Source identifies which paper source provided the result.
	Source domain.SourceType

	// Result contains the search results if the search succeeded.
	// Will be nil if Error is non-nil.
	Result *SearchResult

	// Error contains the error if the search failed.
	Error error

	// Duration is the wall time spent on this source.
	Duration time.Duration
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// MaxConcurrency bounds the number of sources searched at once.
	// Zero or negative means unbounded.
	MaxConcurrency int

	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// Registry manages paper sources and coordinates concurrent searches.
// Registration and retrieval are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sources map[domain.SourceType]PaperSource

	maxConcurrency int
	logger         zerolog.Logger
	metrics        *observability.Metrics
}

// NewRegistry creates a new source registry with an empty source map.
func NewRegistry(cfg RegistryConfig) *Registry {
	return &Registry{
		sources:        make(map[domain.SourceType]PaperSource),
		maxConcurrency: cfg.MaxConcurrency,
		logger:         cfg.Logger.With().Str("component", "source-registry").Logger(),
		metrics:        cfg.Metrics,
	}
}

// Register adds a source to the registry.
// If a source with the same type already exists, it will be replaced.
func (r *Registry) Register(source PaperSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[source.SourceType()] = source
}

// Get returns a source by type, or nil if not found.
func (r *Registry) Get(sourceType domain.SourceType) PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[sourceType]
}

// AllSources returns all registered sources in domain.AllSourceTypes order.
func (r *Registry) AllSources() []PaperSource {
	return r.collect(func(PaperSource) bool { return true })
}

// EnabledSources returns only enabled sources in domain.AllSourceTypes order.
func (r *Registry) EnabledSources() []PaperSource {
	return r.collect(PaperSource.IsEnabled)
}

func (r *Registry) collect(keep func(PaperSource) bool) []PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]PaperSource, 0, len(r.sources))
	for _, st := range domain.AllSourceTypes {
		if s, ok := r.sources[st]; ok && keep(s) {
			sources = append(sources, s)
		}
	}
	// Sources registered under types outside AllSourceTypes go last, sorted.
	var extra []domain.SourceType
	for st, s := range r.sources {
		if !slices.Contains(domain.AllSourceTypes, st) && keep(s) {
			extra = append(extra, st)
		}
	}
	slices.Sort(extra)
	for _, st := range extra {
		sources = append(sources, r.sources[st])
	}
	return sources
}

// SearchAll searches all enabled sources concurrently.
// Returns one result per source, errors included, in source order.
func (r *Registry) SearchAll(ctx context.Context, params SearchParams) []SourceResult {
	return r.SearchSources(ctx, params, nil)
}

// SearchSources searches specific sources concurrently.
// If sourceTypes is empty, searches all enabled sources. Unknown or disabled
// sources are skipped. Results keep the order of the searched sources, and a
// failure in one source never cancels the others.
func (r *Registry) SearchSources(ctx context.Context, params SearchParams, sourceTypes []domain.SourceType) []SourceResult {
	var sources []PaperSource
	if len(sourceTypes) == 0 {
		sources = r.EnabledSources()
	} else {
		r.mu.RLock()
		sources = make([]PaperSource, 0, len(sourceTypes))
		for _, st := range sourceTypes {
			if source, ok := r.sources[st]; ok && source.IsEnabled() {
				sources = append(sources, source)
			}
		}
		r.mu.RUnlock()
	}

	if len(sources) == 0 {
		return nil
	}

	results := make([]SourceResult, len(sources))
	var g errgroup.Group
	if r.maxConcurrency > 0 {
		g.SetLimit(r.maxConcurrency)
	}

	for i, source := range sources {
		g.Go(func() error {
			results[i] = r.searchOne(ctx, source, params)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (r *Registry) searchOne(ctx context.Context, source PaperSource, params SearchParams) SourceResult {
	st := source.SourceType()
	logger := observability.WithSearchContext(r.logger, params.Query, string(st))

	if r.metrics != nil {
		r.metrics.RecordSearchStarted(string(st))
	}
	start := time.Now()
	result, err := source.Search(ctx, params)
	elapsed := time.Since(start)

	if err != nil {
		logger.Warn().Err(err).Dur("duration", elapsed).Msg("source search failed")
		if r.metrics != nil {
			r.metrics.RecordSearchFailed(string(st), elapsed.Seconds())
		}
		return SourceResult{Source: st, Error: err, Duration: elapsed}
	}

	count := 0
	if result != nil {
		count = len(result.Papers)
	}
	logger.Debug().Int("papers", count).Dur("duration", elapsed).Msg("source search completed")
	if r.metrics != nil {
		r.metrics.RecordSearchCompleted(string(st), count, elapsed.Seconds())
	}
	return SourceResult{Source: st, Result: result, Duration: elapsed}
}
