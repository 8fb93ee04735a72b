package scholar

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// resultPage is what one scholar results page yields.
type resultPage struct {
	Results []result
	// Blocks counts every result block on the page, including those
	// dropped for lacking a title. Scholar's start offset counts blocks.
	Blocks       int
	TotalResults int
	Blocked      bool
}

// result is one entry of a results page before conversion to a Paper.
type result struct {
	// Block is the position of the result block on its page.
	Block     int
	ClusterID string
	Title     string
	URL       string
	PDFURL    string
	Authors   []string
	Venue     string
	Host      string
	Year      int
	Snippet   string
	CitedBy   int
}

var (
	yearRegex    = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)
	totalRegex   = regexp.MustCompile(`([\d,.\s]+)\s+results?`)
	citedByRegex = regexp.MustCompile(`^Cited by (\d+)`)
)

// parsePage extracts result blocks from a results page.
func parsePage(r io.Reader) (*resultPage, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	page := &resultPage{}
	walk(doc, func(n *html.Node) bool {
		switch {
		case n.DataAtom == atom.Form && attr(n, "id") == "gs_captcha_f",
			n.DataAtom == atom.Div && attr(n, "id") == "gs_captcha_ccl":
			page.Blocked = true
			return false
		case n.DataAtom == atom.Div && hasClass(n, "gs_ab_mdw") && page.TotalResults == 0:
			page.TotalResults = parseTotal(textContent(n))
			return false
		case n.DataAtom == atom.Div && hasClass(n, "gs_r") && hasClass(n, "gs_or"):
			if res, ok := parseResult(n); ok {
				res.Block = page.Blocks
				page.Results = append(page.Results, res)
			}
			page.Blocks++
			return false
		}
		return true
	})

	return page, nil
}

func parseResult(block *html.Node) (result, bool) {
	res := result{ClusterID: attr(block, "data-cid")}

	walk(block, func(n *html.Node) bool {
		switch {
		case n.DataAtom == atom.H3 && hasClass(n, "gs_rt"):
			parseTitle(n, &res)
			return false
		case n.DataAtom == atom.Div && hasClass(n, "gs_a"):
			parseByline(textContent(n), &res)
			return false
		case n.DataAtom == atom.Div && hasClass(n, "gs_rs"):
			res.Snippet = normalizeSpace(textContent(n))
			return false
		case n.DataAtom == atom.Div && hasClass(n, "gs_ggs"):
			if a := find(n, func(c *html.Node) bool { return c.DataAtom == atom.A }); a != nil {
				href := attr(a, "href")
				if strings.Contains(strings.ToLower(href), "pdf") {
					res.PDFURL = href
				}
			}
			return false
		case n.DataAtom == atom.A && res.CitedBy == 0:
			if m := citedByRegex.FindStringSubmatch(normalizeSpace(textContent(n))); m != nil {
				res.CitedBy, _ = strconv.Atoi(m[1])
			}
		}
		return true
	})

	return res, res.Title != ""
}

// parseTitle reads the linked title, skipping the [PDF]/[BOOK]/[CITATION]
// type markers scholar prefixes to some titles.
func parseTitle(h3 *html.Node, res *result) {
	if a := find(h3, func(n *html.Node) bool { return n.DataAtom == atom.A }); a != nil {
		res.Title = normalizeSpace(textContent(a))
		res.URL = attr(a, "href")
		if res.ClusterID == "" {
			res.ClusterID = attr(a, "id")
		}
		return
	}

	var sb strings.Builder
	for c := h3.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (hasClass(c, "gs_ctc") || hasClass(c, "gs_ctu")) {
			continue
		}
		sb.WriteString(textContent(c))
	}
	res.Title = normalizeSpace(sb.String())
}

// parseByline splits "A Smith, B Jones - Nature, 2020 - nature.com".
func parseByline(line string, res *result) {
	parts := strings.Split(normalizeSpace(line), " - ")

	for _, name := range strings.Split(parts[0], ",") {
		name = strings.TrimSpace(strings.Trim(strings.TrimSpace(name), "…"))
		if name != "" {
			res.Authors = append(res.Authors, name)
		}
	}

	if len(parts) > 1 {
		venue := parts[1]
		if m := yearRegex.FindAllString(venue, -1); len(m) > 0 {
			last := m[len(m)-1]
			res.Year, _ = strconv.Atoi(last)
			if idx := strings.LastIndex(venue, last); idx >= 0 {
				venue = venue[:idx]
			}
		}
		res.Venue = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(venue), ",…"))
	}
	if len(parts) > 2 {
		res.Host = strings.TrimSpace(parts[len(parts)-1])
	}
}

// parseTotal reads "About 1,230 results (0.05 sec)".
func parseTotal(s string) int {
	m := totalRegex.FindStringSubmatch(normalizeSpace(s))
	if m == nil {
		return 0
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, m[1])
	n, _ := strconv.Atoi(digits)
	return n
}

// walk visits n and its descendants depth first. Returning false from visit
// skips the node's children.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if n.Type == html.ElementNode && !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if found != nil {
			return false
		}
		if match(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

// normalizeSpace collapses whitespace. unicode.IsSpace covers the
// non-breaking spaces scholar puts around byline separators.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
