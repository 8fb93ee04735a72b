package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helixir/paper-rank-service/internal/domain"
)

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "John Smith", "john smith"},
		{"extra whitespace", "  John   Smith  ", "john smith"},
		{"last comma first", "SMITH, John", "john smith"},
		{"last comma first with spaces", "  Smith ,  John  ", "john smith"},
		{"apostrophe joins", "O'Brien", "obrien"},
		{"initials", "J. K. Rowling", "j k rowling"},
		{"hyphen joins", "Mary-Jane Watson", "maryjane watson"},
		{"diacritics folded", "José Müller", "jose muller"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestNormalizeTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "deep learning a review", NormalizeTitle("Deep Learning: A Review."))
	assert.Equal(t, "crisprcas9 in 2020", NormalizeTitle("  CRISPR-Cas9 in 2020 "))
	assert.Equal(t, "naive bayes", NormalizeTitle("Naïve   Bayes"))
	assert.Equal(t, "", NormalizeTitle("?!"))
}

func TestNameSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b     string
		expected float64
	}{
		{"john smith", "john smith", 1.0},
		{"j smith", "john smith", 0.9},
		{"john smith", "j smith", 0.9},
		{"smith", "john smith", 0.7},
		{"john smith", "jane smith", 0.3},
		{"john smith", "john doe", 0.0},
		{"", "john smith", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.expected, nameSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func authors(names ...string) []domain.Author {
	out := make([]domain.Author, len(names))
	for i, n := range names {
		out[i] = domain.Author{Name: n}
	}
	return out
}

func TestAuthorOverlap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		a, b     []domain.Author
		expected float64
	}{
		{"identical", authors("John Smith", "Jane Doe"), authors("John Smith", "Jane Doe"), 1.0},
		{"order independent", authors("Jane Doe", "John Smith"), authors("Smith, John", "Doe, Jane"), 1.0},
		{"initials", authors("J Smith"), authors("John Smith"), 0.9},
		{"disjoint", authors("John Smith"), authors("Ada Lovelace"), 0.0},
		// One exact pair over a union of two names.
		{"subset", authors("John Smith"), authors("John Smith", "Jane Doe"), 0.5},
		{"empty", nil, authors("John Smith"), 0.0},
		{"both empty", nil, nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.expected, AuthorOverlap(tt.a, tt.b), 1e-9)
		})
	}
}

func TestAuthorOverlap_Symmetry(t *testing.T) {
	t.Parallel()

	a := authors("J Smith", "Jane Doe", "Alan Turing")
	b := authors("John Smith", "A. Turing")
	assert.InDelta(t, AuthorOverlap(a, b), AuthorOverlap(b, a), 1e-12)
}
