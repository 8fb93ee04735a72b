package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-rank-service/internal/dedup"
	"github.com/helixir/paper-rank-service/internal/domain"
	"github.com/helixir/paper-rank-service/internal/papersources"
)

type stubSource struct {
	sourceType domain.SourceType
	papers     []*domain.Paper
	err        error
	params     papersources.SearchParams
}

func (s *stubSource) Search(_ context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	return &papersources.SearchResult{Papers: s.papers, Source: s.sourceType}, nil
}

func (s *stubSource) GetByID(context.Context, string) (*domain.Paper, error) {
	return nil, domain.ErrNotFound
}
func (s *stubSource) SourceType() domain.SourceType { return s.sourceType }
func (s *stubSource) Name() string                  { return s.sourceType.DisplayName() }
func (s *stubSource) IsEnabled() bool               { return true }

func newStubRegistry(sources ...*stubSource) *papersources.Registry {
	r := papersources.NewRegistry(papersources.RegistryConfig{Logger: zerolog.Nop()})
	for _, s := range sources {
		r.Register(s)
	}
	return r
}

func paper(source domain.SourceType, id, title, abstract string) *domain.Paper {
	return &domain.Paper{
		CanonicalID: string(source) + ":" + id,
		Source:      source,
		SourceID:    id,
		Title:       title,
		Abstract:    abstract,
		Authors:     []domain.Author{{Name: "Grace Hopper"}},
	}
}

func TestRunSearch(t *testing.T) {
	pubmed := &stubSource{sourceType: domain.SourceTypePubMed, papers: []*domain.Paper{
		paper(domain.SourceTypePubMed, "1", "Compiler design", "Compilers translate programs."),
	}}
	arxiv := &stubSource{sourceType: domain.SourceTypeArXiv, papers: []*domain.Paper{
		paper(domain.SourceTypeArXiv, "2", "Compiler Design", "A duplicate title by the same author."),
		paper(domain.SourceTypeArXiv, "3", "Type systems", "Type systems for safe programs and compilers."),
	}}
	crossref := &stubSource{sourceType: domain.SourceTypeCrossRef, err: errors.New("timeout")}
	registry := newStubRegistry(pubmed, arxiv, crossref)
	merger := dedup.NewMerger(dedup.MergerConfig{Logger: zerolog.Nop()})

	var out, errOut bytes.Buffer
	err := runSearch(context.Background(), zerolog.Nop(), registry, merger, &out, &errOut, searchOptions{
		query:      "compilers",
		maxResults: 5,
		yearStart:  2000,
	})
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "pubmed_1", records[0]["id"])
	assert.Equal(t, "arxiv_3", records[1]["id"])
	assert.Contains(t, errOut.String(), "CrossRef: timeout")

	assert.Equal(t, 5, pubmed.params.MaxResults)
	require.NotNil(t, pubmed.params.DateFrom)
	assert.Equal(t, 2000, pubmed.params.DateFrom.Year())
}

func TestRunSearch_Rank(t *testing.T) {
	arxiv := &stubSource{sourceType: domain.SourceTypeArXiv, papers: []*domain.Paper{
		paper(domain.SourceTypeArXiv, "1", "Baking", "Bread and sourdough starters."),
		paper(domain.SourceTypeArXiv, "2", "Qubits", "Superconducting qubits for quantum error correction."),
	}}
	registry := newStubRegistry(arxiv)
	merger := dedup.NewMerger(dedup.MergerConfig{Logger: zerolog.Nop()})

	var out bytes.Buffer
	err := runSearch(context.Background(), zerolog.Nop(), registry, merger, &out, &bytes.Buffer{}, searchOptions{
		query:     "qubits",
		sources:   []string{"arxiv"},
		rank:      true,
		rankQuery: "quantum error correction with superconducting qubits",
	})
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "arxiv_2", records[0]["id"])
	assert.Equal(t, records[0]["bm25_score"], records[0]["relevanceScore"])
}

func TestRunSearch_Errors(t *testing.T) {
	merger := dedup.NewMerger(dedup.MergerConfig{Logger: zerolog.Nop()})

	err := runSearch(context.Background(), zerolog.Nop(), newStubRegistry(), merger, &bytes.Buffer{}, &bytes.Buffer{},
		searchOptions{query: "q", sources: []string{"openalex"}})
	assert.ErrorContains(t, err, "unsupported source: openalex")

	err = runSearch(context.Background(), zerolog.Nop(), newStubRegistry(), merger, &bytes.Buffer{}, &bytes.Buffer{},
		searchOptions{query: "q"})
	assert.ErrorContains(t, err, "no paper sources are enabled")

	failing := &stubSource{sourceType: domain.SourceTypePubMed, err: errors.New("down")}
	err = runSearch(context.Background(), zerolog.Nop(), newStubRegistry(failing), merger, &bytes.Buffer{}, &bytes.Buffer{},
		searchOptions{query: "q"})
	assert.ErrorContains(t, err, "all 1 sources failed")
}
