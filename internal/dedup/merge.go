package dedup

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-rank-service/internal/domain"
	"github.com/helixir/paper-rank-service/internal/observability"
)

// DefaultAuthorThreshold is the author overlap at which two papers with the
// same normalized title are treated as one.
const DefaultAuthorThreshold = 0.5

// MergerConfig configures a Merger.
type MergerConfig struct {
	// AuthorThreshold is the minimum AuthorOverlap (0.0-1.0) for a title match
	// to count as a duplicate. Zero uses DefaultAuthorThreshold.
	AuthorThreshold float64

	Logger zerolog.Logger

	// Metrics counts dropped duplicates. May be nil.
	Metrics *observability.Metrics
}

// Merger combines per-source paper lists into one list without duplicates.
// It holds no per-merge state and is safe for concurrent use.
type Merger struct {
	threshold float64
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

// NewMerger creates a Merger.
func NewMerger(cfg MergerConfig) *Merger {
	if cfg.AuthorThreshold <= 0 {
		cfg.AuthorThreshold = DefaultAuthorThreshold
	}
	return &Merger{
		threshold: cfg.AuthorThreshold,
		logger:    cfg.Logger.With().Str("component", "dedup").Logger(),
		metrics:   cfg.Metrics,
	}
}

// Merge concatenates the lists in order and drops every paper that duplicates
// one kept earlier. Two papers are duplicates when they share a canonical ID
// or DOI, or when their normalized titles are equal and their author lists
// overlap by at least the threshold (two empty author lists also match).
// Missing abstract, PDF link, DOI, URL, year, citation count and metadata
// on the kept paper are filled in place from its duplicates. Nil papers are skipped.
func (m *Merger) Merge(results ...[]*domain.Paper) []*domain.Paper {
	var idx index
	idx.init()

	var merged []*domain.Paper
	dropped := 0
	for _, papers := range results {
		for _, p := range papers {
			if p == nil {
				continue
			}
			if kept := idx.match(p, m.threshold); kept != nil {
				dupLogger := observability.WithPaperContext(m.logger, kept.CanonicalID, string(p.Source))
				dupLogger.Trace().Str("duplicate_title", p.Title).Msg("dropping duplicate paper")
				fillMissing(kept, p)
				idx.add(kept, kept)
				idx.add(p, kept)
				dropped++
				continue
			}
			merged = append(merged, p)
			idx.add(p, p)
		}
	}

	if dropped > 0 {
		m.logger.Debug().
			Int("kept", len(merged)).
			Int("dropped", dropped).
			Msg("merged duplicate papers")
		if m.metrics != nil {
			m.metrics.RecordPaperDuplicates(dropped)
		}
	}
	return merged
}

// Merge merges with the given author threshold and no logging or metrics.
func Merge(authorThreshold float64, results ...[]*domain.Paper) []*domain.Paper {
	return NewMerger(MergerConfig{AuthorThreshold: authorThreshold, Logger: zerolog.Nop()}).Merge(results...)
}

// index looks up kept papers by identifier and by title key.
type index struct {
	byID    map[string]*domain.Paper
	byDOI   map[string]*domain.Paper
	byTitle map[string][]*domain.Paper
}

func (x *index) init() {
	x.byID = make(map[string]*domain.Paper)
	x.byDOI = make(map[string]*domain.Paper)
	x.byTitle = make(map[string][]*domain.Paper)
}

// add registers every key of p as pointing at kept. A duplicate's keys are
// registered too, so a later record that only shares the duplicate's
// identifier still resolves to the kept paper.
func (x *index) add(p, kept *domain.Paper) {
	if p.CanonicalID != "" {
		if _, ok := x.byID[p.CanonicalID]; !ok {
			x.byID[p.CanonicalID] = kept
		}
	}
	if doi := doiKey(p); doi != "" {
		if _, ok := x.byDOI[doi]; !ok {
			x.byDOI[doi] = kept
		}
	}
	if title := NormalizeTitle(p.Title); title != "" {
		for _, existing := range x.byTitle[title] {
			if existing == kept {
				return
			}
		}
		x.byTitle[title] = append(x.byTitle[title], kept)
	}
}

func (x *index) match(p *domain.Paper, threshold float64) *domain.Paper {
	if kept, ok := x.byID[p.CanonicalID]; ok && p.CanonicalID != "" {
		return kept
	}
	if doi := doiKey(p); doi != "" {
		if kept, ok := x.byDOI[doi]; ok {
			return kept
		}
	}
	title := NormalizeTitle(p.Title)
	if title == "" {
		return nil
	}
	for _, kept := range x.byTitle[title] {
		if len(kept.Authors) == 0 && len(p.Authors) == 0 {
			return kept
		}
		if AuthorOverlap(kept.Authors, p.Authors) >= threshold {
			return kept
		}
	}
	return nil
}

func doiKey(p *domain.Paper) string {
	return strings.ToLower(strings.TrimSpace(p.Identifiers.DOI))
}

// fillMissing copies fields the kept paper lacks from its duplicate.
func fillMissing(kept, dup *domain.Paper) {
	if kept.Abstract == "" || kept.Abstract == domain.NoAbstractPlaceholder {
		if dup.Abstract != "" && dup.Abstract != domain.NoAbstractPlaceholder {
			kept.Abstract = dup.Abstract
		}
	}
	if kept.PDFURL == "" {
		kept.PDFURL = dup.PDFURL
	}
	if kept.URL == "" {
		kept.URL = dup.URL
	}
	if kept.Identifiers.DOI == "" && dup.Identifiers.DOI != "" {
		kept.Identifiers.DOI = dup.Identifiers.DOI
	}
	if kept.PublicationYear == 0 && dup.PublicationYear != 0 {
		kept.PublicationYear = dup.PublicationYear
		kept.PublicationDate = dup.PublicationDate
	}
	if kept.CitationCount == nil {
		kept.CitationCount = dup.CitationCount
	}
	for k, v := range dup.Metadata {
		if _, ok := kept.Metadata[k]; ok {
			continue
		}
		if kept.Metadata == nil {
			kept.Metadata = make(map[string]any)
		}
		kept.Metadata[k] = v
	}
}
