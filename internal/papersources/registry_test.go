package papersources

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-rank-service/internal/domain"
	"github.com/helixir/paper-rank-service/internal/observability"
)

// mockPaperSource is a mock implementation of PaperSource for testing.
type mockPaperSource struct {
	sourceType domain.SourceType
	name       string
	enabled    bool

	searchFunc func(ctx context.Context, params SearchParams) (*SearchResult, error)

	searchCalls atomic.Int32
}

func newMockPaperSource(sourceType domain.SourceType, enabled bool) *mockPaperSource {
	return &mockPaperSource{
		sourceType: sourceType,
		name:       sourceType.DisplayName(),
		enabled:    enabled,
	}
}

func (m *mockPaperSource) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	m.searchCalls.Add(1)
	if m.searchFunc != nil {
		return m.searchFunc(ctx, params)
	}
	return &SearchResult{Papers: []*domain.Paper{}, Source: m.sourceType}, nil
}

func (m *mockPaperSource) GetByID(_ context.Context, _ string) (*domain.Paper, error) {
	return nil, domain.ErrNotFound
}

func (m *mockPaperSource) SourceType() domain.SourceType { return m.sourceType }
func (m *mockPaperSource) Name() string                  { return m.name }
func (m *mockPaperSource) IsEnabled() bool               { return m.enabled }

func newTestRegistry(maxConcurrency int) *Registry {
	return NewRegistry(RegistryConfig{MaxConcurrency: maxConcurrency, Logger: zerolog.Nop()})
}

func TestNewRegistry(t *testing.T) {
	registry := newTestRegistry(0)

	require.NotNil(t, registry)
	assert.Nil(t, registry.Get(domain.SourceTypePubMed))
	assert.Empty(t, registry.AllSources())
	assert.Nil(t, registry.SearchAll(context.Background(), SearchParams{Query: "x"}))
}

func TestRegistry_Register(t *testing.T) {
	t.Run("registers and retrieves", func(t *testing.T) {
		registry := newTestRegistry(0)
		source := newMockPaperSource(domain.SourceTypeArXiv, true)

		registry.Register(source)

		assert.Equal(t, source, registry.Get(domain.SourceTypeArXiv))
	})

	t.Run("replaces source of the same type", func(t *testing.T) {
		registry := newTestRegistry(0)
		first := newMockPaperSource(domain.SourceTypeArXiv, true)
		second := newMockPaperSource(domain.SourceTypeArXiv, false)

		registry.Register(first)
		registry.Register(second)

		assert.Same(t, second, registry.Get(domain.SourceTypeArXiv))
		assert.Len(t, registry.AllSources(), 1)
	})

	t.Run("concurrent registration is safe", func(t *testing.T) {
		registry := newTestRegistry(0)
		var wg sync.WaitGroup
		for _, st := range domain.AllSourceTypes {
			wg.Add(1)
			go func(st domain.SourceType) {
				defer wg.Done()
				registry.Register(newMockPaperSource(st, true))
			}(st)
		}
		wg.Wait()

		assert.Len(t, registry.AllSources(), len(domain.AllSourceTypes))
	})
}

func TestRegistry_SourceOrder(t *testing.T) {
	registry := newTestRegistry(0)
	registry.Register(newMockPaperSource(domain.SourceTypeScholar, true))
	registry.Register(newMockPaperSource(domain.SourceTypeCrossRef, false))
	registry.Register(newMockPaperSource(domain.SourceTypePubMed, true))
	registry.Register(newMockPaperSource(domain.SourceTypeArXiv, true))

	var all []domain.SourceType
	for _, s := range registry.AllSources() {
		all = append(all, s.SourceType())
	}
	assert.Equal(t, []domain.SourceType{
		domain.SourceTypePubMed,
		domain.SourceTypeArXiv,
		domain.SourceTypeCrossRef,
		domain.SourceTypeScholar,
	}, all)

	var enabled []domain.SourceType
	for _, s := range registry.EnabledSources() {
		enabled = append(enabled, s.SourceType())
	}
	assert.Equal(t, []domain.SourceType{
		domain.SourceTypePubMed,
		domain.SourceTypeArXiv,
		domain.SourceTypeScholar,
	}, enabled)
}

func TestRegistry_SearchAll(t *testing.T) {
	t.Run("searches enabled sources only and keeps order", func(t *testing.T) {
		registry := newTestRegistry(0)
		pubmed := newMockPaperSource(domain.SourceTypePubMed, true)
		arxiv := newMockPaperSource(domain.SourceTypeArXiv, false)
		scholar := newMockPaperSource(domain.SourceTypeScholar, true)
		// Slow first source must still be reported first.
		pubmed.searchFunc = func(ctx context.Context, _ SearchParams) (*SearchResult, error) {
			time.Sleep(20 * time.Millisecond)
			return &SearchResult{Papers: []*domain.Paper{{Title: "slow"}}, Source: domain.SourceTypePubMed}, nil
		}
		registry.Register(scholar)
		registry.Register(arxiv)
		registry.Register(pubmed)

		results := registry.SearchAll(context.Background(), SearchParams{Query: "genes"})

		require.Len(t, results, 2)
		assert.Equal(t, domain.SourceTypePubMed, results[0].Source)
		assert.Equal(t, domain.SourceTypeScholar, results[1].Source)
		assert.Equal(t, "slow", results[0].Result.Papers[0].Title)
		assert.Equal(t, int32(0), arxiv.searchCalls.Load())
	})

	t.Run("errors do not cancel other sources", func(t *testing.T) {
		registry := newTestRegistry(0)
		failing := newMockPaperSource(domain.SourceTypeCrossRef, true)
		failing.searchFunc = func(context.Context, SearchParams) (*SearchResult, error) {
			return nil, errors.New("boom")
		}
		ok := newMockPaperSource(domain.SourceTypeArXiv, true)
		registry.Register(failing)
		registry.Register(ok)

		results := registry.SearchAll(context.Background(), SearchParams{Query: "q"})

		require.Len(t, results, 2)
		assert.NoError(t, results[0].Error)
		assert.NotNil(t, results[0].Result)
		assert.EqualError(t, results[1].Error, "boom")
		assert.Nil(t, results[1].Result)
	})

	t.Run("passes params through", func(t *testing.T) {
		registry := newTestRegistry(0)
		source := newMockPaperSource(domain.SourceTypePubMed, true)
		var got SearchParams
		source.searchFunc = func(_ context.Context, p SearchParams) (*SearchResult, error) {
			got = p
			return &SearchResult{}, nil
		}
		registry.Register(source)

		registry.SearchAll(context.Background(), SearchParams{Query: "crispr", MaxResults: 7})

		assert.Equal(t, "crispr", got.Query)
		assert.Equal(t, 7, got.MaxResults)
	})
}

func TestRegistry_SearchSources(t *testing.T) {
	registry := newTestRegistry(0)
	pubmed := newMockPaperSource(domain.SourceTypePubMed, true)
	arxiv := newMockPaperSource(domain.SourceTypeArXiv, true)
	disabled := newMockPaperSource(domain.SourceTypeScholar, false)
	registry.Register(pubmed)
	registry.Register(arxiv)
	registry.Register(disabled)

	results := registry.SearchSources(context.Background(), SearchParams{Query: "q"},
		[]domain.SourceType{domain.SourceTypeArXiv, domain.SourceTypeScholar, domain.SourceTypeCrossRef})

	require.Len(t, results, 1)
	assert.Equal(t, domain.SourceTypeArXiv, results[0].Source)
	assert.Equal(t, int32(0), pubmed.searchCalls.Load())
	assert.Equal(t, int32(0), disabled.searchCalls.Load())
}

func TestRegistry_MaxConcurrency(t *testing.T) {
	registry := newTestRegistry(1)

	var inFlight, peak atomic.Int32
	for _, st := range domain.AllSourceTypes {
		source := newMockPaperSource(st, true)
		source.searchFunc = func(context.Context, SearchParams) (*SearchResult, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return &SearchResult{}, nil
		}
		registry.Register(source)
	}

	results := registry.SearchAll(context.Background(), SearchParams{Query: "q"})

	assert.Len(t, results, len(domain.AllSourceTypes))
	assert.Equal(t, int32(1), peak.Load())
}

func TestRegistry_ContextCancellation(t *testing.T) {
	registry := newTestRegistry(0)
	source := newMockPaperSource(domain.SourceTypePubMed, true)
	source.searchFunc = func(ctx context.Context, _ SearchParams) (*SearchResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	registry.Register(source)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	results := registry.SearchAll(ctx, SearchParams{Query: "q"})

	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Error, context.DeadlineExceeded)
}

func TestRegistry_RecordsMetrics(t *testing.T) {
	metrics := observability.NewMetrics("test_registry_metrics")
	registry := NewRegistry(RegistryConfig{Logger: zerolog.Nop(), Metrics: metrics})

	ok := newMockPaperSource(domain.SourceTypePubMed, true)
	failing := newMockPaperSource(domain.SourceTypeArXiv, true)
	failing.searchFunc = func(context.Context, SearchParams) (*SearchResult, error) {
		return nil, errors.New("down")
	}
	registry.Register(ok)
	registry.Register(failing)

	registry.SearchAll(context.Background(), SearchParams{Query: "q"})

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SearchesStarted.WithLabelValues("pubmed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SearchesCompleted.WithLabelValues("pubmed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SearchesFailed.WithLabelValues("arxiv")))
}

func TestSearchParams_InDateRange(t *testing.T) {
	from, to := YearRange(2015, 2020)
	params := SearchParams{DateFrom: from, DateTo: to}

	assert.True(t, params.InDateRange(0))
	assert.True(t, params.InDateRange(2015))
	assert.True(t, params.InDateRange(2020))
	assert.False(t, params.InDateRange(2014))
	assert.False(t, params.InDateRange(2021))

	openFrom, openTo := YearRange(0, 0)
	assert.Nil(t, openFrom)
	assert.Nil(t, openTo)
	assert.True(t, SearchParams{}.InDateRange(1900))
}
