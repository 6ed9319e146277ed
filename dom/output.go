package dom

import "strings"

// HighlightContainerID is the id of the singleton overlay container the
// painters append to body. The popup scan must never report it.
const HighlightContainerID = "browser-use-highlight-container"

// popupZThreshold is the z-index floor for popup detection.
const popupZThreshold = 9000

// popupMinSize is the minimum width and height of a reported container.
const popupMinSize = 50.0

// popupKeywords mark likely modal/overlay regions by class or id.
var popupKeywords = []string{
	"modal", "popup", "dialog", "overlay", "signin", "login",
	"consent", "cookie", "banner",
}

// scanPopups walks the top document for floating containers: fixed or
// absolute position, high z-index, visibly large, and either keyword-named,
// dialog-roled or aria-modal.
func scanPopups(doc *Document, w *walkContext) []PopupContainer {
	out := []PopupContainer{}
	for i := range doc.Nodes {
		n := &doc.Nodes[i]
		if n.Kind != ElementNode {
			continue
		}
		w.metrics.PopupMetrics.NodesScanned++
		if n.Attr("id") == HighlightContainerID {
			continue
		}
		st := n.Style
		st.Normalize()
		if st.Position != "fixed" && st.Position != "absolute" {
			continue
		}
		z, ok := parseZIndex(st.ZIndex)
		if !ok || z <= popupZThreshold {
			continue
		}
		if !isVisible(doc, i) {
			continue
		}
		r := n.Layout.Rect
		if r.Width < popupMinSize || r.Height < popupMinSize {
			continue
		}
		matched := popupMatch(n)
		if matched == "" {
			continue
		}
		id := w.idOf[doc][i]
		if id == 0 {
			continue
		}
		out = append(out, PopupContainer{
			NodeID:   id,
			TagName:  n.Tag,
			ID:       n.Attr("id"),
			Class:    n.Attr("class"),
			Role:     strings.ToLower(n.Attr("role")),
			ZIndex:   int(z),
			Viewport: ViewportRect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height},
			Matched:  matched,
		})
	}
	w.metrics.PopupMetrics.ContainersFound = len(out)
	return out
}

// popupMatch returns the matched keyword or role, "" for no match.
func popupMatch(n *Node) string {
	hint := strings.ToLower(n.Attr("class") + " " + n.Attr("id"))
	for _, kw := range popupKeywords {
		if strings.Contains(hint, kw) {
			return kw
		}
	}
	role := strings.ToLower(n.Attr("role"))
	if role == "dialog" || role == "alertdialog" {
		return role
	}
	if n.Attr("aria-modal") == "true" {
		return "aria-modal"
	}
	return ""
}

// compactProjection emits a new map holding only the essential records:
// the root, every surviving candidate with all its ancestors, and every
// iframe placeholder. Child lists are pruned to the essential set so
// every referenced id still resolves.
func compactProjection(res *Result, rootID NodeID, survivors []candidate, iframeIDs []NodeID) {
	essential := make(map[NodeID]bool)
	keep := func(id NodeID) {
		for cur := id; cur != 0 && !essential[cur]; cur = res.parentOf[cur] {
			essential[cur] = true
		}
	}
	keep(rootID)
	for _, c := range survivors {
		keep(c.id)
	}
	for _, id := range iframeIDs {
		keep(id)
	}

	compact := make(map[NodeID]*NodeRecord, len(essential))
	for id := range essential {
		rec := res.Map[id]
		if rec == nil {
			continue
		}
		cp := rec.clone()
		kept := cp.Children[:0]
		for _, child := range cp.Children {
			if essential[child] {
				kept = append(kept, child)
			}
		}
		cp.Children = kept
		compact[id] = cp
	}

	res.Map = compact
	res.IframeNodes = res.IframeNodes[:0]
	for _, id := range iframeIDs {
		if rec := compact[id]; rec != nil {
			res.IframeNodes = append(res.IframeNodes, rec)
		}
	}
}
