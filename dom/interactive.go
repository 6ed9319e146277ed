package dom

import "strings"

// interactiveTags are tags that are interactive on their own, subject to
// the per-tag conditions checked in isInteractive.
var interactiveTags = map[string]bool{
	"button":   true,
	"input":    true,
	"select":   true,
	"textarea": true,
	"summary":  true,
	"details":  true,
}

// interactiveRoles are ARIA roles that mark an element as a user target.
var interactiveRoles = map[string]bool{
	"button": true, "link": true, "checkbox": true, "radio": true,
	"tab": true, "menuitem": true, "option": true, "switch": true,
	"slider": true, "spinbutton": true, "combobox": true, "listbox": true,
	"searchbox": true, "textbox": true, "dialog": true, "alertdialog": true,
}

// interactiveHints is the deliberately permissive tail: class/testid
// substrings that routinely mark clickable containers. Matched as plain
// substrings on class+id, not as CSS attribute selectors, which hit
// performance cliffs on large DOMs.
var interactiveHints = []string{
	"button", "btn", "popup", "modal", "dialog", "overlay",
}

// isInteractive classifies a single element per the fixed selector set
// plus heuristics. Probe failures on malformed values are treated as
// non-matches.
func isInteractive(doc *Document, i int) bool {
	n := doc.NodeAt(i)
	if n == nil || n.Kind != ElementNode {
		return false
	}

	switch n.Tag {
	case "a":
		if n.Attr("href") != "" || n.Attr("role") != "" {
			return !isEmptyAnchor(doc, i)
		}
	case "label":
		if n.Attr("for") != "" {
			return true
		}
	}
	if interactiveTags[n.Tag] {
		return true
	}
	if interactiveRoles[strings.ToLower(n.Attr("role"))] {
		return true
	}
	if _, ok := n.Attrs["tabindex"]; ok {
		return true
	}
	if _, ok := n.Attrs["onclick"]; ok {
		return true
	}
	if n.Attr("contenteditable") == "true" {
		return true
	}
	if n.Attr("draggable") == "true" {
		return true
	}
	if n.Attr("aria-modal") == "true" {
		return true
	}

	hint := strings.ToLower(n.Attr("class") + " " + n.Attr("id") + " " + n.Attr("data-testid"))
	for _, h := range interactiveHints {
		if strings.Contains(hint, h) {
			return true
		}
	}

	// A generic container styled as a click target.
	if n.Tag == "div" || n.Tag == "span" {
		st := n.Style
		st.Normalize()
		if st.Cursor == "pointer" {
			return true
		}
	}

	return false
}

// isEmptyAnchor applies the anchor override: a link with no visible text,
// no aria-label, no title and no image-like descendant is not a target.
func isEmptyAnchor(doc *Document, i int) bool {
	n := doc.NodeAt(i)
	if n.Attr("aria-label") != "" || n.Attr("title") != "" {
		return false
	}
	hasContent := false
	var walk func(idx int)
	walk = func(idx int) {
		if hasContent {
			return
		}
		c := doc.NodeAt(idx)
		if c == nil {
			return
		}
		switch c.Kind {
		case TextNode:
			if strings.TrimSpace(c.Text) != "" {
				hasContent = true
			}
		case ElementNode:
			if idx != i {
				if c.Tag == "img" || c.Tag == "svg" || strings.EqualFold(c.Attr("role"), "img") {
					hasContent = true
					return
				}
			}
			for _, child := range c.Children {
				walk(child)
			}
		}
	}
	walk(i)
	return !hasContent
}

// isScrollableElement reports whether the element both overflows and has
// an overflow mode that allows scrolling. body and html only need the
// overflow, matching how the browser scrolls the root.
func isScrollableElement(doc *Document, i int) bool {
	n := doc.NodeAt(i)
	if n == nil || n.Layout == nil {
		return false
	}
	l := n.Layout
	overflowing := l.ScrollHeight > l.ClientHeight+1 || l.ScrollWidth > l.ClientWidth+1
	if !overflowing {
		return false
	}
	if n.Tag == "body" || n.Tag == "html" {
		return true
	}
	st := n.Style
	st.Normalize()
	return scrollableOverflow(st.OverflowY) || scrollableOverflow(st.OverflowX) || scrollableOverflow(st.Overflow)
}

func scrollableOverflow(v string) bool {
	switch v {
	case "auto", "scroll", "overlay":
		return true
	}
	return false
}
