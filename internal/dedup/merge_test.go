package dedup

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-rank-service/internal/domain"
	"github.com/helixir/paper-rank-service/internal/observability"
)

func paper(source domain.SourceType, id, title string, names ...string) *domain.Paper {
	return &domain.Paper{
		Source:   source,
		SourceID: id,
		Title:    title,
		Authors:  authors(names...),
	}
}

func withDOI(p *domain.Paper, doi string) *domain.Paper {
	p.Identifiers.DOI = doi
	p.CanonicalID = domain.GenerateCanonicalID(p.Identifiers)
	return p
}

func TestMerge_KeepsOrderAndDistinctPapers(t *testing.T) {
	a := paper(domain.SourceTypePubMed, "1", "Gene editing in plants", "Ann Lee")
	b := paper(domain.SourceTypeArXiv, "2", "Sparse attention", "Bo Chen")
	c := paper(domain.SourceTypeCrossRef, "3", "Protein folding", "Cy Diaz")

	merged := Merge(0.5, []*domain.Paper{a, b}, nil, []*domain.Paper{c})

	assert.Equal(t, []*domain.Paper{a, b, c}, merged)
}

func TestMerge_DuplicateByDOI(t *testing.T) {
	kept := withDOI(paper(domain.SourceTypePubMed, "123", "CRISPR review", "Jane Doe"), "10.1/ABC")
	dup := withDOI(paper(domain.SourceTypeCrossRef, "10.1/abc", "A different rendering of the title", "Someone Else"), "10.1/abc")
	dup.Abstract = "From CrossRef."
	dup.PDFURL = "https://example.org/a.pdf"

	merged := Merge(0.5, []*domain.Paper{kept}, []*domain.Paper{dup})

	require.Len(t, merged, 1)
	assert.Same(t, kept, merged[0])
	assert.Equal(t, "From CrossRef.", kept.Abstract)
	assert.Equal(t, "https://example.org/a.pdf", kept.PDFURL)
}

func TestMerge_DuplicateByTitleAndAuthors(t *testing.T) {
	kept := paper(domain.SourceTypeScholar, "c1", "Attention Is All You Need", "A Vaswani", "N Shazeer")
	kept.Abstract = domain.NoAbstractPlaceholder
	dup := withDOI(paper(domain.SourceTypeSemanticScholar, "s2", "Attention is all you need.", "Ashish Vaswani", "Noam Shazeer", "Niki Parmar"), "10.5555/3295222")
	dup.Abstract = "The dominant sequence transduction models..."
	dup.PublicationYear = 2017

	merged := Merge(0.5, []*domain.Paper{kept, dup})

	require.Len(t, merged, 1)
	assert.Equal(t, "The dominant sequence transduction models...", kept.Abstract)
	assert.Equal(t, "10.5555/3295222", kept.Identifiers.DOI)
	assert.Equal(t, 2017, kept.PublicationYear)
}

func TestMerge_FillsCitationsAndMetadata(t *testing.T) {
	kept := withDOI(paper(domain.SourceTypePubMed, "123", "CRISPR review", "Jane Doe"), "10.1/abc")
	kept.Metadata = map[string]any{domain.FieldPages: "1-9"}
	cited := 42
	dup := withDOI(paper(domain.SourceTypeCrossRef, "10.1/abc", "CRISPR review", "Jane Doe"), "10.1/abc")
	dup.CitationCount = &cited
	dup.Metadata = map[string]any{domain.FieldPages: "1-10", domain.FieldPublisher: "Elsevier"}

	merged := Merge(0.5, []*domain.Paper{kept}, []*domain.Paper{dup})

	require.Len(t, merged, 1)
	require.NotNil(t, kept.CitationCount)
	assert.Equal(t, 42, *kept.CitationCount)
	assert.Equal(t, "1-9", kept.Metadata[domain.FieldPages])
	assert.Equal(t, "Elsevier", kept.Metadata[domain.FieldPublisher])
}

func TestMerge_SameTitleDifferentAuthors(t *testing.T) {
	a := paper(domain.SourceTypePubMed, "1", "Introduction", "Ann Lee")
	b := paper(domain.SourceTypeCrossRef, "2", "Introduction", "Bo Chen")

	merged := Merge(0.5, []*domain.Paper{a}, []*domain.Paper{b})

	assert.Len(t, merged, 2)
}

func TestMerge_SameTitleNoAuthors(t *testing.T) {
	a := paper(domain.SourceTypeScholar, "1", "Editorial")
	b := paper(domain.SourceTypeCrossRef, "2", "Editorial")
	c := paper(domain.SourceTypeCrossRef, "3", "Editorial", "Ann Lee")

	merged := Merge(0.5, []*domain.Paper{a, b, c})

	assert.Equal(t, []*domain.Paper{a, c}, merged)
}

func TestMerge_DuplicateKeysResolveToKeptPaper(t *testing.T) {
	// The arXiv record is matched to the PubMed one by title; a later record
	// that shares only the arXiv record's DOI must still fold into PubMed's.
	pubmed := paper(domain.SourceTypePubMed, "1", "Graph neural networks", "Ann Lee")
	arxiv := withDOI(paper(domain.SourceTypeArXiv, "2", "Graph Neural Networks", "A Lee"), "10.48550/arxiv.1")
	crossref := withDOI(paper(domain.SourceTypeCrossRef, "3", "GNNs: a survey", "Zed Q"), "10.48550/ARXIV.1")

	merged := Merge(0.5, []*domain.Paper{pubmed}, []*domain.Paper{arxiv}, []*domain.Paper{crossref})

	require.Len(t, merged, 1)
	assert.Same(t, pubmed, merged[0])
	assert.Equal(t, "10.48550/arxiv.1", pubmed.Identifiers.DOI)
}

func TestMerge_SkipsNil(t *testing.T) {
	a := paper(domain.SourceTypePubMed, "1", "Title", "Ann Lee")

	merged := Merge(0.5, []*domain.Paper{nil, a, nil})

	assert.Equal(t, []*domain.Paper{a}, merged)
}

func TestMerger_DefaultThresholdAndMetrics(t *testing.T) {
	metrics := observability.NewMetrics("test_dedup_merge")
	m := NewMerger(MergerConfig{Logger: zerolog.Nop(), Metrics: metrics})
	assert.Equal(t, DefaultAuthorThreshold, m.threshold)

	a := withDOI(paper(domain.SourceTypePubMed, "1", "T"), "10.1/x")
	b := withDOI(paper(domain.SourceTypeCrossRef, "2", "T"), "10.1/x")
	c := withDOI(paper(domain.SourceTypeArXiv, "3", "T"), "10.1/x")

	merged := m.Merge([]*domain.Paper{a}, []*domain.Paper{b, c})

	assert.Len(t, merged, 1)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.PapersDuplicate))
}
