package ui

import (
	"bytes"
	"html"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var droppedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Link:     true,
	atom.Meta:     true,
	atom.Base:     true,
	atom.Form:     true,
	atom.Input:    true,
	atom.Button:   true,
	atom.Textarea: true,
	atom.Select:   true,
}

// Sanitize strips active content from model output before it is shown inline:
// scripts, frames, form controls, event handler attributes and javascript: URLs.
func Sanitize(fragment string) string {
	context := &nethtml.Node{Type: nethtml.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := nethtml.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return html.EscapeString(fragment)
	}
	var buf bytes.Buffer
	for _, n := range nodes {
		if !clean(n) {
			continue
		}
		if err := nethtml.Render(&buf, n); err != nil {
			return html.EscapeString(fragment)
		}
	}
	return buf.String()
}

// clean scrubs n in place and reports whether n itself is kept.
func clean(n *nethtml.Node) bool {
	if n.Type == nethtml.CommentNode {
		return false
	}
	if n.Type == nethtml.ElementNode {
		if droppedElements[n.DataAtom] {
			return false
		}
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			key := strings.ToLower(a.Key)
			if strings.HasPrefix(key, "on") {
				continue
			}
			if (key == "href" || key == "src" || key == "action") && unsafeURL(a.Val) {
				continue
			}
			kept = append(kept, a)
		}
		n.Attr = kept
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if !clean(c) {
			n.RemoveChild(c)
		}
		c = next
	}
	return true
}

func unsafeURL(v string) bool {
	v = strings.ToLower(strings.Join(strings.Fields(v), ""))
	return strings.HasPrefix(v, "javascript:") || strings.HasPrefix(v, "vbscript:") || strings.HasPrefix(v, "data:text/html")
}
