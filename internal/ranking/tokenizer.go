package ranking

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// substitution is a single Treebank rewrite step.
type substitution struct {
	re   *regexp.Regexp
	repl string
}

func apply(text string, subs []substitution) string {
	for _, s := range subs {
		text = s.re.ReplaceAllString(text, s.repl)
	}
	return text
}

// Rewrite tables follow the Penn Treebank conventions. They are compiled once
// and never mutated.
var (
	startingQuotes = []substitution{
		{regexp.MustCompile("([«“‘„]|`+)"), " $1 "},
		{regexp.MustCompile(`^"`), "``"},
		{regexp.MustCompile("(``)"), " $1 "},
		{regexp.MustCompile(`([ (\[{<])("|'{2})`), "$1 `` "},
	}

	punctuation = []substitution{
		{regexp.MustCompile(`([^.])(\.)([\])}>"']*)\s*$`), "$1 $2 $3 "},
		{regexp.MustCompile(`([:,])([^\d])`), " $1 $2"},
		{regexp.MustCompile(`([:,])$`), " $1 "},
		{regexp.MustCompile(`\.{2,}`), " $0 "},
		{regexp.MustCompile(`[;@#$%&]`), " $0 "},
		{regexp.MustCompile(`[?!]`), " $0 "},
		{regexp.MustCompile(`([^'])' `), "$1 ' "},
		{regexp.MustCompile(`\*`), " $0 "},
	}

	brackets = substitution{regexp.MustCompile(`[\]\[(){}<>]`), " $0 "}

	doubleDashes = substitution{regexp.MustCompile(`--`), " -- "}

	endingQuotes = []substitution{
		{regexp.MustCompile(`([»”’])`), " $1 "},
		{regexp.MustCompile(`''`), " '' "},
		{regexp.MustCompile(`"`), " '' "},
		{regexp.MustCompile(`([^' ])('[sS]|'[mM]|'[dD]|') `), "$1 $2 "},
		{regexp.MustCompile(`([^' ])('ll|'LL|'re|'RE|'ve|'VE|n't|N'T) `), "$1 $2 "},
	}

	contractions = []substitution{
		{regexp.MustCompile(`(?i)\b(can)(not)\b`), " $1 $2 "},
		{regexp.MustCompile(`(?i)\b(d)('ye)\b`), " $1 $2 "},
		{regexp.MustCompile(`(?i)\b(gim)(me)\b`), " $1 $2 "},
		{regexp.MustCompile(`(?i)\b(gon)(na)\b`), " $1 $2 "},
		{regexp.MustCompile(`(?i)\b(got)(ta)\b`), " $1 $2 "},
		{regexp.MustCompile(`(?i)\b(lem)(me)\b`), " $1 $2 "},
		{regexp.MustCompile(`(?i)\b(more)('n)\b`), " $1 $2 "},
		{regexp.MustCompile(`(?i)\b(wan)(na)(\s)`), " $1 $2$3"},
		{regexp.MustCompile(`(?i) ('t)(is)\b`), " $1 $2 "},
		{regexp.MustCompile(`(?i) ('t)(was)\b`), " $1 $2 "},
	}
)

// abbreviations never end a sentence even when followed by whitespace.
var abbreviations = map[string]struct{}{
	"al": {}, "approx": {}, "cf": {}, "dr": {}, "eq": {}, "et": {}, "etc": {},
	"fig": {}, "figs": {}, "jr": {}, "mr": {}, "mrs": {}, "ms": {}, "no": {},
	"prof": {}, "ref": {}, "refs": {}, "sr": {}, "st": {}, "vol": {}, "vs": {},
}

// Tokenize lower-cases text and splits it into Treebank-style word tokens.
// Empty or whitespace-only input yields an empty slice.
func Tokenize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	// A Caser carries state and is not safe to share across goroutines.
	lowered := cases.Lower(language.Und).String(text)

	tokens := make([]string, 0, len(lowered)/5)
	for _, sentence := range splitSentences(lowered) {
		tokens = append(tokens, tokenizeSentence(sentence)...)
	}
	return tokens
}

// tokenizeSentence applies the Treebank rewrite rules to a single sentence.
func tokenizeSentence(text string) []string {
	text = apply(text, startingQuotes)
	text = apply(text, punctuation)
	text = brackets.re.ReplaceAllString(text, brackets.repl)
	text = doubleDashes.re.ReplaceAllString(text, doubleDashes.repl)

	text = " " + text + " "
	text = apply(text, endingQuotes)
	text = apply(text, contractions)

	return strings.Fields(text)
}

// splitSentences breaks text on sentence-final punctuation followed by
// whitespace. Whitespace inside a sentence is collapsed to single spaces.
func splitSentences(text string) []string {
	words := strings.Fields(text)
	sentences := make([]string, 0, 1)

	start := 0
	for i, w := range words {
		if i == len(words)-1 || endsSentence(w) {
			sentences = append(sentences, strings.Join(words[start:i+1], " "))
			start = i + 1
		}
	}
	return sentences
}

// endsSentence reports whether a whitespace-delimited word closes a sentence.
func endsSentence(word string) bool {
	word = strings.TrimRight(word, `"')]}»”’`)
	if word == "" {
		return false
	}

	switch word[len(word)-1] {
	case '?', '!':
		return true
	case '.':
	default:
		return false
	}

	core := strings.TrimSuffix(word, ".")
	if core == "" || strings.Contains(core, ".") {
		return false
	}
	if utf8.RuneCountInString(core) == 1 {
		return false
	}
	_, abbr := abbreviations[core]
	return !abbr
}
