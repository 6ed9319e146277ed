package dom

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ParseHTML builds a Document from markup. There is no layout engine
// behind this path: geometry and the cascade subset come from inline
// style declarations (left/top/width/height in px plus the style
// properties the analyzer consults), which is exactly what fixtures and
// offline runs need. Live pages should be captured over CDP instead.
func ParseHTML(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := &Document{
		Root:     -1,
		Viewport: Viewport{Width: 1280, Height: 720},
	}
	b := &fixtureBuilder{doc: doc}
	b.walk(root, -1, true, 0)
	if doc.Root < 0 {
		return nil, fmt.Errorf("parse html: no body element")
	}
	return doc, nil
}

// ParseHTMLString is ParseHTML over a string.
func ParseHTMLString(s string) (*Document, error) {
	return ParseHTML(strings.NewReader(s))
}

type fixtureBuilder struct {
	doc *Document
	seq int
}

// walk flattens the html.Node tree into the arena. rendered is false
// inside display:none subtrees; zBoost is the paint-order contribution of
// the nearest positioned ancestor with a numeric z-index.
func (b *fixtureBuilder) walk(n *html.Node, parent int, rendered bool, zBoost int) {
	switch n.Type {
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			b.walk(c, parent, rendered, zBoost)
		}
		return
	case html.TextNode:
		if parent < 0 {
			return
		}
		idx := len(b.doc.Nodes)
		b.doc.Nodes = append(b.doc.Nodes, Node{
			Kind:   TextNode,
			Text:   n.Data,
			Parent: parent,
		})
		b.link(parent, idx)
		return
	case html.ElementNode:
		// handled below
	default:
		return
	}

	tag := strings.ToLower(n.Data)
	if tag == "title" {
		b.doc.Title = collectText(n)
		return
	}

	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		attrs[strings.ToLower(a.Key)] = a.Val
	}

	style, rect := parseInlineStyle(attrs["style"])
	style.Normalize()

	childRendered := rendered && style.Display != "none"
	childBoost := zBoost
	if isPositioned(style.Position) {
		if z, ok := parseZIndex(style.ZIndex); ok {
			childBoost = int(z) * 1_000_000
		}
	}

	idx := len(b.doc.Nodes)
	node := Node{
		Kind:   ElementNode,
		Tag:    tag,
		Attrs:  attrs,
		Style:  style,
		Parent: parent,
	}
	if childRendered {
		b.seq++
		node.Layout = &Layout{
			Rect:            rect,
			ClientWidth:     rect.Width,
			ClientHeight:    rect.Height,
			ScrollWidth:     rect.Width,
			ScrollHeight:    rect.Height,
			PaintOrder:      b.seq + childBoost,
			HasOffsetParent: style.Position != "fixed" && style.Position != "sticky",
		}
	}
	b.doc.Nodes = append(b.doc.Nodes, node)
	if parent >= 0 {
		b.link(parent, idx)
	}
	if tag == "body" && b.doc.Root < 0 {
		b.doc.Root = idx
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c, idx, childRendered, childBoost)
	}
}

func (b *fixtureBuilder) link(parent, child int) {
	b.doc.Nodes[parent].Children = append(b.doc.Nodes[parent].Children, child)
}

func collectText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(sb.String())
}

// parseInlineStyle reads the declaration subset the analyzer consults,
// plus left/top/width/height pixel geometry. Unknown declarations and
// unparsable values are ignored.
func parseInlineStyle(style string) (ComputedStyle, Rect) {
	var cs ComputedStyle
	var rect Rect
	for _, decl := range strings.Split(style, ";") {
		prop, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		switch prop {
		case "display":
			cs.Display = value
		case "visibility":
			cs.Visibility = value
		case "position":
			cs.Position = value
		case "overflow":
			cs.Overflow = value
		case "overflow-x":
			cs.OverflowX = value
		case "overflow-y":
			cs.OverflowY = value
		case "cursor":
			cs.Cursor = value
		case "pointer-events":
			cs.PointerEvents = value
		case "z-index":
			cs.ZIndex = value
		case "opacity":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				cs.SetOpacity(v)
			}
		case "left":
			rect.X = pxValue(value)
		case "top":
			rect.Y = pxValue(value)
		case "width":
			rect.Width = pxValue(value)
		case "height":
			rect.Height = pxValue(value)
		}
	}
	return cs, rect
}

func pxValue(v string) float64 {
	v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}
