package papersources

import (
	"strings"

	"golang.org/x/net/html"
)

// PlainText flattens a fragment that may contain inline markup (JATS tags in
// CrossRef abstracts, <i>/<sub> in PubMed titles, highlight spans in search
// snippets) into whitespace-normalized text. Entities are decoded.
func PlainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}

	z := html.NewTokenizer(strings.NewReader(fragment))
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			// Block-level JATS elements separate words.
			name, _ := z.TagName()
			switch string(name) {
			case "jats:p", "p", "jats:title", "title", "br", "jats:sec", "sec", "div":
				sb.WriteByte(' ')
			}
		}
	}
}
