// Package domain provides domain models and business logic for the paper rank service.
package domain

// SourceType represents the source API that provided paper data.
type SourceType string

const (
	SourceTypePubMed          SourceType = "pubmed"
	SourceTypeArXiv           SourceType = "arxiv"
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
	SourceTypeCrossRef        SourceType = "crossref"
	SourceTypeScholar         SourceType = "scholar"
)

// AllSourceTypes lists every known source in the order aggregated searches query them.
var AllSourceTypes = []SourceType{
	SourceTypePubMed,
	SourceTypeArXiv,
	SourceTypeSemanticScholar,
	SourceTypeCrossRef,
	SourceTypeScholar,
}

// IsValid reports whether s names a known source.
func (s SourceType) IsValid() bool {
	for _, known := range AllSourceTypes {
		if s == known {
			return true
		}
	}
	return false
}

// DisplayName returns the label the frontend shows in the "source" field.
func (s SourceType) DisplayName() string {
	switch s {
	case SourceTypePubMed:
		return "PubMed"
	case SourceTypeArXiv:
		return "arXiv"
	case SourceTypeSemanticScholar:
		return "Semantic Scholar"
	case SourceTypeCrossRef:
		return "CrossRef"
	case SourceTypeScholar:
		return "Google Scholar"
	default:
		return string(s)
	}
}

// PriorRelevance returns the fixed relevance score a source assigns to its
// results before any ranking has run.
func (s SourceType) PriorRelevance() float64 {
	switch s {
	case SourceTypePubMed:
		return 0.6
	case SourceTypeScholar:
		return 0.7
	default:
		return 0.5
	}
}
