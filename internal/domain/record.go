package domain

import (
	"fmt"
	"strconv"
)

// Field names of the record shape exchanged with the frontend.
const (
	FieldID             = "id"
	FieldTitle          = "title"
	FieldAuthors        = "authors"
	FieldAbstract       = "abstract"
	FieldPublishedDate  = "publishedDate"
	FieldYear           = "year"
	FieldURL            = "url"
	FieldPDFURL         = "pdfUrl"
	FieldSource         = "source"
	FieldCitations      = "citations"
	FieldDOI            = "doi"
	FieldVenue          = "venue"
	FieldBM25Score      = "bm25_score"
	FieldRelevanceScore = "relevanceScore"
)

// Source-specific fields carried in Paper.Metadata.
const (
	FieldKeywords        = "keywords"
	FieldMeshTerms       = "meshTerms"
	FieldCategories      = "categories"
	FieldPrimaryCategory = "primaryCategory"
	FieldJournalRef      = "journalRef"
	FieldComment         = "comment"
	FieldVolume          = "volume"
	FieldIssue           = "issue"
	FieldPages           = "pages"
	FieldPublisher       = "publisher"
	FieldWorkType        = "workType"
	FieldPMCID           = "pmcid"
	FieldHost            = "host"
)

// NoAbstractPlaceholder is what adapters emit when a source returns no abstract.
const NoAbstractPlaceholder = "No abstract available."

// UnknownPublishedDate fills publishedDate when a paper carries no date or year.
const UnknownPublishedDate = "N/A"

// PaperRecord is an open-ended paper record as it travels over the API.
// Only the abstract and the two score fields are interpreted; every other
// key is carried through untouched.
type PaperRecord map[string]any

// Abstract returns the abstract as text. A missing key or a JSON null reads
// as the empty string. Any other value, objects and arrays included, is
// rendered with fmt and scored as that text.
func (r PaperRecord) Abstract() string {
	v, ok := r[FieldAbstract]
	if !ok || v == nil {
		return ""
	}
	switch a := v.(type) {
	case string:
		return a
	case float64:
		return strconv.FormatFloat(a, 'f', -1, 64)
	default:
		return fmt.Sprint(a)
	}
}

// SetScore writes the same relevance value to both score fields.
func (r PaperRecord) SetScore(score float64) {
	r[FieldBM25Score] = score
	r[FieldRelevanceScore] = score
}

// Score returns the bm25_score field and whether it holds a number.
func (r PaperRecord) Score() (float64, bool) {
	s, ok := r[FieldBM25Score].(float64)
	return s, ok
}

// NewPaperRecord converts a normalized paper into the record shape the
// frontend consumes, seeded with the source's prior relevance score.
func NewPaperRecord(p *Paper) PaperRecord {
	abstract := p.Abstract
	if abstract == "" {
		abstract = NoAbstractPlaceholder
	}

	url := p.URL
	if url == "" && p.Identifiers.DOI != "" {
		url = "https://doi.org/" + p.Identifiers.DOI
	}

	published := UnknownPublishedDate
	if p.PublicationDate != nil {
		published = p.PublicationDate.Format("2006-01-02")
	} else if p.PublicationYear > 0 {
		published = strconv.Itoa(p.PublicationYear)
	}

	var year any
	if p.PublicationYear > 0 {
		year = p.PublicationYear
	}

	id := p.SourceID
	if id == "" {
		id = p.CanonicalID
	}

	venue := p.Venue
	if venue == "" {
		venue = p.Journal
	}

	var citations any
	if p.CitationCount != nil {
		citations = *p.CitationCount
	}

	r := PaperRecord{
		FieldID:             string(p.Source) + "_" + id,
		FieldTitle:          p.Title,
		FieldAuthors:        p.AuthorNames(),
		FieldAbstract:       abstract,
		FieldPublishedDate:  published,
		FieldYear:           year,
		FieldURL:            url,
		FieldPDFURL:         p.PDFURL,
		FieldSource:         p.Source.DisplayName(),
		FieldCitations:      citations,
		FieldDOI:            p.Identifiers.DOI,
		FieldVenue:          venue,
		FieldRelevanceScore: p.Source.PriorRelevance(),
	}
	// Metadata never overrides the core fields.
	for k, v := range p.Metadata {
		if _, core := r[k]; !core {
			r[k] = v
		}
	}
	return r
}

// NewPaperRecords converts a slice of papers, preserving order.
func NewPaperRecords(papers []*Paper) []PaperRecord {
	records := make([]PaperRecord, 0, len(papers))
	for _, p := range papers {
		if p == nil {
			continue
		}
		records = append(records, NewPaperRecord(p))
	}
	return records
}
