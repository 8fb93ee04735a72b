// Package dedup merges paper lists from several sources, dropping records
// that describe the same work.
package dedup

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/helixir/paper-rank-service/internal/domain"
)

// foldDiacritics strips combining marks so "Müller" and "Muller" compare equal.
// The transformer is stateful, so one is built per call.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeName reduces an author name to lowercase letters and single spaces.
// "Last, First" is reordered to "First Last"; punctuation and diacritics are
// dropped.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if last, first, ok := strings.Cut(name, ","); ok {
		name = strings.TrimSpace(first) + " " + strings.TrimSpace(last)
	}
	return lettersOnly(foldDiacritics(name), false)
}

// NormalizeTitle reduces a title to a comparison key: lowercase letters and
// digits separated by single spaces.
func NormalizeTitle(title string) string {
	return lettersOnly(foldDiacritics(strings.ToLower(title)), true)
}

// lettersOnly keeps letters (and digits when asked), turns whitespace and
// word-separating punctuation into single spaces, and drops everything else.
// Hyphens and apostrophes join their neighbours ("O'Brien" -> "obrien").
func lettersOnly(s string, keepDigits bool) string {
	var sb strings.Builder
	sb.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || (keepDigits && unicode.IsDigit(r)):
			if pendingSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			pendingSpace = false
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		case keepDigits && r != '-' && r != '\'' && r != '’':
			pendingSpace = true
		}
	}
	return sb.String()
}

// AuthorOverlap scores how alike two author lists are, from 0 (disjoint or
// either list empty) to 1 (same people). Each author of the shorter list is
// greedily paired with its most similar unpaired author in the longer list;
// the summed pair similarity is divided by the size of the union.
// The score is symmetric.
func AuthorOverlap(a, b []domain.Author) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	short, long := normalizedNames(a), normalizedNames(b)
	if len(short) > len(long) {
		short, long = long, short
	}

	paired := make([]bool, len(long))
	pairs := 0
	total := 0.0
	for _, name := range short {
		best, bestIdx := 0.0, -1
		for j, other := range long {
			if paired[j] {
				continue
			}
			if s := nameSimilarity(name, other); s > best {
				best, bestIdx = s, j
			}
		}
		if bestIdx >= 0 {
			paired[bestIdx] = true
			pairs++
			total += best
		}
	}

	return total / float64(len(short)+len(long)-pairs)
}

// nameSimilarity compares two normalized names by surname, then given names:
//
//	same given names                 1.0
//	given name matches an initial    0.9
//	a given name is missing          0.7
//	different given names            0.3
//	different surnames               0.0
func nameSimilarity(a, b string) float64 {
	fieldsA, fieldsB := strings.Fields(a), strings.Fields(b)
	if len(fieldsA) == 0 || len(fieldsB) == 0 {
		return 0
	}

	surnameA, givenA := fieldsA[len(fieldsA)-1], fieldsA[:len(fieldsA)-1]
	surnameB, givenB := fieldsB[len(fieldsB)-1], fieldsB[:len(fieldsB)-1]
	switch {
	case surnameA != surnameB:
		return 0
	case len(givenA) == 0 || len(givenB) == 0:
		return 0.7
	case strings.Join(givenA, " ") == strings.Join(givenB, " "):
		return 1
	case initialOf(givenA[0], givenB[0]) || initialOf(givenB[0], givenA[0]):
		return 0.9
	default:
		return 0.3
	}
}

// initialOf reports whether initial is a single letter that starts name.
func initialOf(initial, name string) bool {
	return len(initial) == 1 && len(name) > 1 && initial[0] == name[0]
}

func normalizedNames(authors []domain.Author) []string {
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = NormalizeName(a.Name)
	}
	return names
}
