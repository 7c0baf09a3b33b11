// Package htmltext reads model-produced HTML fragments the way a browser shows them.
package htmltext

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse parses a fragment (or full document) and returns the <body> node.
func Parse(fragment string) (*html.Node, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, err
	}
	if body := First(doc, atom.Body); body != nil {
		return body, nil
	}
	return doc, nil
}

// VisibleText approximates innerText: block elements start new lines, <br> breaks,
// table cells are tab separated, and script/style content is dropped.
func VisibleText(fragment string) string {
	body, err := Parse(fragment)
	if err != nil {
		return fragment
	}
	return cleanup(render(body))
}

// NodeText is the collapsed text content of n, used for table cells.
func NodeText(n *html.Node) string {
	return strings.Join(strings.Fields(render(n)), " ")
}

// First returns the first descendant element with the given atom.
func First(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := First(c, a); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant element with the given atom, outermost first,
// without descending into matches.
func FindAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var visit func(*html.Node)
	visit = func(x *html.Node) {
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == a {
				out = append(out, c)
				continue
			}
			visit(c)
		}
	}
	visit(n)
	return out
}

// Rows returns the rows that belong to table itself: <tr> children of the
// table or of its thead, tbody and tfoot. Rows of nested tables are excluded.
func Rows(table *html.Node) []*html.Node {
	var rows []*html.Node
	for c := table.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Tr:
			rows = append(rows, c)
		case atom.Thead, atom.Tbody, atom.Tfoot:
			for r := c.FirstChild; r != nil; r = r.NextSibling {
				if r.Type == html.ElementNode && r.DataAtom == atom.Tr {
					rows = append(rows, r)
				}
			}
		}
	}
	return rows
}

// Cells returns the td and th children of a row.
func Cells(tr *html.Node) []*html.Node {
	var cells []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, c)
		}
	}
	return cells
}

// IsBlock reports whether a renders on its own line.
func IsBlock(a atom.Atom) bool {
	return blockElements[a]
}

var blockElements = map[atom.Atom]bool{
	atom.P:          true,
	atom.Div:        true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Li:         true,
	atom.Blockquote: true,
	atom.Pre:        true,
	atom.Table:      true,
	atom.Tr:         true,
	atom.Section:    true,
	atom.Article:    true,
	atom.Header:     true,
	atom.Footer:     true,
	atom.Hr:         true,
}

// chunk is either text or a request for at least brk line breaks.
type chunk struct {
	text string
	brk  int
}

func render(n *html.Node) string {
	var chunks []chunk
	collect(n, &chunks, false)

	var b strings.Builder
	pending := 0
	for _, c := range chunks {
		if c.brk > 0 {
			pending = max(pending, c.brk)
			continue
		}
		if c.text == "" || (c.text == " " && (pending > 0 || b.Len() == 0)) {
			continue
		}
		if pending > 0 && b.Len() > 0 {
			b.WriteString(strings.Repeat("\n", pending))
		}
		pending = 0
		b.WriteString(c.text)
	}
	return b.String()
}

func collect(n *html.Node, out *[]chunk, pre bool) {
	brk := 0
	switch n.Type {
	case html.TextNode:
		if pre {
			*out = append(*out, chunk{text: n.Data})
		} else {
			*out = append(*out, chunk{text: collapse(n.Data)})
		}
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Head, atom.Title:
			return
		case atom.Br:
			*out = append(*out, chunk{text: "\n"})
			return
		case atom.Pre:
			pre = true
		case atom.Td, atom.Th:
			if hasPrevCell(n) {
				*out = append(*out, chunk{text: "\t"})
			}
		}
		if n.DataAtom == atom.P {
			brk = 2
		} else if IsBlock(n.DataAtom) {
			brk = 1
		}
	}
	if brk > 0 {
		*out = append(*out, chunk{brk: brk})
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, out, pre)
	}
	if brk > 0 {
		*out = append(*out, chunk{brk: brk})
	}
}

func hasPrevCell(n *html.Node) bool {
	for p := n.PrevSibling; p != nil; p = p.PrevSibling {
		if p.Type == html.ElementNode && (p.DataAtom == atom.Td || p.DataAtom == atom.Th) {
			return true
		}
	}
	return false
}

func collapse(s string) string {
	if s == "" {
		return s
	}
	out := strings.Join(strings.Fields(s), " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) && out != " " {
		out += " "
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// cleanup drops the spaces collapsing left at line and cell edges.
func cleanup(s string) string {
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		cells := strings.Split(ln, "\t")
		for j, c := range cells {
			cells[j] = strings.Trim(c, " ")
		}
		lines[i] = strings.Join(cells, "\t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
