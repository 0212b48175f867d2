package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Control is an interactive element found on the chat page.
type Control struct {
	Tag       string
	ID        string
	Class     string
	TestID    string
	Type      string
	Text      string
	AriaLabel string
	Selector  string
}

// Label returns the text a user would see, falling back to aria-label.
func (c Control) Label() string {
	if c.Text != "" {
		return c.Text
	}
	return c.AriaLabel
}

// SelectorHit is one configured selector and how many elements it matched.
type SelectorHit struct {
	Selector string
	Matches  int
}

// PageReport tells whether the configured selectors fit a page.
type PageReport struct {
	Inputs     []SelectorHit
	Submits    []SelectorHit
	Turns      int
	Generating int
	// Regenerate holds controls whose label matches a regenerate text.
	Regenerate []Control
	// Controls lists every button, link and form field on the page.
	Controls []Control
}

// InputFound reports whether any input selector matched.
func (r *PageReport) InputFound() bool {
	for _, h := range r.Inputs {
		if h.Matches > 0 {
			return true
		}
	}
	return false
}

// Inspect checks the selectors against a page snapshot. It is the offline
// half of the inspect command and works on any saved HTML.
func Inspect(pageHTML string, sel Selectors) (*PageReport, error) {
	sel = sel.withDefaults()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}

	r := &PageReport{
		Inputs:  countSelectors(doc.Selection, sel.Input),
		Submits: countSelectors(doc.Selection, sel.Submit),
		Turns:   doc.Find("[" + sel.TurnAttribute + "]").Length(),
	}
	for _, q := range sel.Generating {
		r.Generating += doc.Find(q).Length()
	}

	root, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}
	collectControls(root, &r.Controls)

	for _, c := range r.Controls {
		label := c.Label()
		for _, t := range sel.RegenerateTexts {
			if t != "" && strings.Contains(label, t) {
				r.Regenerate = append(r.Regenerate, c)
				break
			}
		}
	}
	return r, nil
}

// PageHTML returns the current document's markup.
func (m *Manager) PageHTML(ctx context.Context) (string, error) {
	var out string
	if err := m.Run(ctx, chromedp.OuterHTML("html", &out, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}
	return out, nil
}

func countSelectors(s *goquery.Selection, selectors []string) []SelectorHit {
	hits := make([]SelectorHit, 0, len(selectors))
	for _, q := range selectors {
		if q == "" {
			continue
		}
		hits = append(hits, SelectorHit{Selector: q, Matches: s.Find(q).Length()})
	}
	return hits
}

func collectControls(n *html.Node, out *[]Control) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Svg:
			return
		}
		if isControl(n) {
			c := Control{Tag: n.Data}
			for _, attr := range n.Attr {
				switch attr.Key {
				case "id":
					c.ID = attr.Val
				case "class":
					c.Class = attr.Val
				case "data-testid", "data-test", "data-cy":
					c.TestID = attr.Val
				case "type":
					c.Type = attr.Val
				case "aria-label":
					c.AriaLabel = attr.Val
				}
			}
			c.Text = strings.Join(strings.Fields(nodeText(n)), " ")
			c.Selector = controlSelector(c)
			*out = append(*out, c)
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectControls(child, out)
	}
}

func isControl(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Button, atom.A, atom.Input, atom.Select, atom.Textarea:
		return true
	case atom.Div, atom.Span:
		for _, attr := range n.Attr {
			if attr.Key == "role" && attr.Val == "button" {
				return true
			}
			if attr.Key == "contenteditable" && attr.Val == "true" {
				return true
			}
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// controlSelector builds a CSS selector that can be pasted into the
// selectors section of the config.
func controlSelector(c Control) string {
	if c.TestID != "" {
		return fmt.Sprintf("[data-testid='%s']", c.TestID)
	}
	if c.ID != "" {
		return "#" + c.ID
	}

	sel := c.Tag
	if c.Type != "" {
		sel += fmt.Sprintf("[type='%s']", c.Type)
	}
	if c.AriaLabel != "" {
		sel += fmt.Sprintf("[aria-label='%s']", c.AriaLabel)
	} else if classes := strings.Fields(c.Class); len(classes) > 0 {
		sel += "." + classes[0]
	}
	return sel
}
