package browser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TurnState is what a turn's markup says about it.
type TurnState struct {
	HasActionMarker bool
	IsGenerating    bool
}

// AnalyzeTurn inspects a turn's own markup for generating indicators and its
// container markup for action markers.
func AnalyzeTurn(turnHTML, containerHTML string, sel Selectors) (TurnState, error) {
	var st TurnState

	turn, err := goquery.NewDocumentFromReader(strings.NewReader(turnHTML))
	if err != nil {
		return st, fmt.Errorf("failed to parse turn HTML: %w", err)
	}
	st.IsGenerating = matchesAny(turn.Selection, sel.Generating)

	if containerHTML == "" {
		containerHTML = turnHTML
	}
	container, err := goquery.NewDocumentFromReader(strings.NewReader(containerHTML))
	if err != nil {
		return st, fmt.Errorf("failed to parse container HTML: %w", err)
	}
	st.HasActionMarker = matchesAny(container.Selection, sel.ActionMarkers) ||
		hasButtonText(container.Selection, sel.ActionMarkerTexts)

	return st, nil
}

func matchesAny(s *goquery.Selection, selectors []string) bool {
	for _, q := range selectors {
		if q == "" {
			continue
		}
		if s.Find(q).Length() > 0 {
			return true
		}
	}
	return false
}

// hasButtonText reports whether a button-like element's own text contains
// one of texts.
func hasButtonText(s *goquery.Selection, texts []string) bool {
	if len(texts) == 0 {
		return false
	}
	found := false
	s.Find("button, [role='button'], a").EachWithBreak(func(_ int, b *goquery.Selection) bool {
		label := strings.TrimSpace(b.Text())
		if label == "" {
			label, _ = b.Attr("aria-label")
		}
		for _, t := range texts {
			if t != "" && strings.Contains(label, t) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// TextContent renders markup as plain text, one line per block element.
// It is used when the page reports an empty innerText for a turn.
func TextContent(fragment string) (string, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Svg, atom.Button:
				return
			case atom.Br:
				b.WriteByte('\n')
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			b.WriteByte('\n')
		}
	}
	walk(doc)

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n"), nil
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Ul, atom.Ol, atom.Pre, atom.Blockquote,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Tr, atom.Table, atom.Section:
		return true
	}
	return false
}
