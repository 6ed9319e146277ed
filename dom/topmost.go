package dom

// isTopElement decides whether the element is the topmost target at its
// own center point. The cheap path is a center hit test; when the hit
// lands elsewhere (hit-test misses happen around transforms and partial
// occlusion) a stacking-order walk over nearby boxes arbitrates.
func isTopElement(doc *Document, i int) bool {
	n := doc.NodeAt(i)
	if n == nil || n.Layout == nil {
		return false
	}
	rect := n.Layout.Rect
	if rect.Width == 0 || rect.Height == 0 {
		return false
	}
	cx, cy := rect.Center()
	if cx < 0 || cy < 0 || cx > doc.Viewport.Width || cy > doc.Viewport.Height {
		return false
	}
	hit := doc.ElementFromPoint(cx, cy)
	if hit == i || (hit >= 0 && doc.Contains(i, hit)) {
		return true
	}
	return !hasOverlappingHigherElement(doc, i, rect)
}

// hasOverlappingHigherElement ascends from the element toward body and
// compares stacking priorities against candidate occluders: visible
// non-transparent siblings at every level, plus the children of any
// absolutely or fixed positioned uncle two levels up (the usual home of
// overlays and tooltips). This follows the CSS stacking rules closely
// enough for typical UIs without a full stacking-context simulation.
func hasOverlappingHigherElement(doc *Document, i int, rect Rect) bool {
	own := nodeStackingPriority(doc, i)

	level := 0
	for cur := i; ; level++ {
		n := doc.NodeAt(cur)
		if n == nil || n.Parent < 0 {
			break
		}
		parent := doc.NodeAt(n.Parent)

		for _, sib := range parent.Children {
			if sib == cur {
				continue
			}
			if occludes(doc, sib, rect, own) {
				return true
			}
			// Positioned uncles two levels up often host floating UI;
			// their children compete at this element's level.
			if level == 2 {
				u := doc.NodeAt(sib)
				if u != nil && u.Kind == ElementNode {
					st := u.Style
					st.Normalize()
					if st.Position == "absolute" || st.Position == "fixed" {
						for _, nephew := range u.Children {
							if occludes(doc, nephew, rect, own) {
								return true
							}
						}
					}
				}
			}
		}

		cur = n.Parent
		if parent.Tag == "body" {
			break
		}
	}
	return false
}

// occludes reports whether candidate j is a visible, overlapping box with
// a strictly higher stacking priority than the probed element.
func occludes(doc *Document, j int, rect Rect, own stackPriority) bool {
	c := doc.NodeAt(j)
	if c == nil || c.Kind != ElementNode || c.Layout == nil {
		return false
	}
	st := c.Style
	st.Normalize()
	if st.Display == "none" || st.Visibility == "hidden" || st.Visibility == "collapse" || st.Opacity == 0 {
		return false
	}
	if !RectsOverlap(c.Layout.Rect, rect) {
		return false
	}
	return nodeStackingPriority(doc, j).greater(own)
}
