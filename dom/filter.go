package dom

// filterCandidates removes nested and visually redundant candidates. Two
// passes: DOM containment with link/button priority, then visual overlap
// on the survivors. Returns the survivors in walk order.
func (w *walkContext) filterCandidates() []candidate {
	cands := w.candidates
	dropped := make([]bool, len(cands))

	// Containment pass. Anchors stay primary even when they wrap
	// arbitrary content; otherwise the innermost target wins.
	for ai := range cands {
		for bi := range cands {
			if ai == bi || dropped[ai] || dropped[bi] {
				continue
			}
			a, b := &cands[ai], &cands[bi]
			if a.doc != b.doc || a.node == b.node {
				continue
			}
			if !a.doc.Contains(a.node, b.node) {
				continue
			}
			// a strictly contains b.
			if a.tag == "a" && !isPrimaryTarget(b) {
				dropped[bi] = true
				w.logDrop(b.id, "wrapped by anchor")
			} else {
				dropped[ai] = true
				w.logDrop(a.id, "contains inner target")
			}
		}
	}

	// Visual-overlap pass: of two overlapping non-nested boxes, the
	// larger one goes unless it is the top element at its point.
	for ai := range cands {
		for bi := ai + 1; bi < len(cands); bi++ {
			if dropped[ai] || dropped[bi] {
				continue
			}
			a, b := &cands[ai], &cands[bi]
			if a.doc != b.doc {
				continue
			}
			if a.doc.Contains(a.node, b.node) || a.doc.Contains(b.node, a.node) {
				continue
			}
			if !RectsOverlap(a.rect, b.rect) {
				continue
			}
			larger, largerIdx := a, ai
			if b.rect.Area() > a.rect.Area() {
				larger, largerIdx = b, bi
			}
			if larger.isTop {
				continue
			}
			dropped[largerIdx] = true
			w.logDrop(larger.id, "larger overlapping box")
		}
	}

	var out []candidate
	for i, c := range cands {
		if !dropped[i] {
			out = append(out, c)
		}
	}
	w.metrics.NodeMetrics.FilteredInteractiveNodes = len(out)
	return out
}

// isPrimaryTarget reports whether a candidate keeps its own index even
// inside an anchor: anchors, buttons and role=button do.
func isPrimaryTarget(c *candidate) bool {
	return c.tag == "a" || c.tag == "button" || c.role == "button"
}

func (w *walkContext) logDrop(id NodeID, reason string) {
	w.log.Debug().Int("nodeId", int(id)).Str("reason", reason).Msg("candidate dropped")
}
