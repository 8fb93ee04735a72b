package domain

import (
	"strings"
	"time"
)

// PaperIdentifiers holds all possible identifiers for an academic paper.
type PaperIdentifiers struct {
	DOI               string
	ArXivID           string
	PubMedID          string
	PMCID             string
	SemanticScholarID string
}

// GenerateCanonicalID generates a canonical identifier from paper identifiers.
// Priority order: DOI > ArXiv > PubMed > SemanticScholar
// Returns empty string if no identifiers are available.
func GenerateCanonicalID(ids PaperIdentifiers) string {
	if doi := strings.TrimSpace(ids.DOI); doi != "" {
		return "doi:" + strings.ToLower(doi)
	}

	if arxiv := strings.TrimSpace(ids.ArXivID); arxiv != "" {
		return "arxiv:" + arxiv
	}

	if pubmed := strings.TrimSpace(ids.PubMedID); pubmed != "" {
		return "pubmed:" + pubmed
	}

	if s2 := strings.TrimSpace(ids.SemanticScholarID); s2 != "" {
		return "s2:" + s2
	}

	return ""
}

// Author represents a paper author with optional affiliation and ORCID.
type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
	ORCID       string `json:"orcid,omitempty"`
}

// String returns a formatted string representation of the author.
func (a Author) String() string {
	var sb strings.Builder
	sb.WriteString(a.Name)

	if a.Affiliation != "" {
		sb.WriteString(" (")
		sb.WriteString(a.Affiliation)
		sb.WriteString(")")
	}

	if a.ORCID != "" {
		sb.WriteString(" [")
		sb.WriteString(a.ORCID)
		sb.WriteString("]")
	}

	return sb.String()
}

// Paper is the normalized form every source adapter produces.
type Paper struct {
	CanonicalID     string
	Source          SourceType
	SourceID        string
	Identifiers     PaperIdentifiers
	Title           string
	Abstract        string
	Authors         []Author
	PublicationDate *time.Time
	PublicationYear int
	Venue           string
	Journal         string
	// CitationCount is nil when the source reports no citation data.
	CitationCount *int
	URL           string
	PDFURL        string
	OpenAccess    bool
	// Metadata holds source-specific details keyed by record field name
	// (FieldKeywords, FieldVolume, ...). NewPaperRecord passes them through.
	Metadata map[string]any
}

// AuthorNames returns the author names in order.
func (p *Paper) AuthorNames() []string {
	names := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		names = append(names, a.Name)
	}
	return names
}
