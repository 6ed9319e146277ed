package dom

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// skippedTags never produce records and are not descended into.
var skippedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "meta": true,
	"link": true, "head": true, "br": true, "hr": true,
}

// textLimit caps every text payload shown to the model.
const textLimit = 100

// iframeSrcLimit caps the src attribute kept on iframe records.
const iframeSrcLimit = 200

// candidate is an interactive element that passed the visibility and
// viewport gates during the walk. The filter and index assigner work on
// this list.
type candidate struct {
	id    NodeID
	doc   *Document
	node  int
	rect  Rect
	isTop bool
	tag   string
	role  string
}

// walkContext is the explicit state threaded through one pass: the record
// map under construction, the parent side table, the id counter, the
// candidate list and the iframe budget.
type walkContext struct {
	opts Options
	log  zerolog.Logger

	records  map[NodeID]*NodeRecord
	parentOf map[NodeID]NodeID
	nextID   NodeID

	candidates  []candidate
	iframeCount int
	iframeIDs   []NodeID

	metrics *PerfMetrics

	// idOf maps (document, arena index) back to the allocated NodeID so
	// the iframe scan can find the records the body walk emitted.
	idOf map[*Document]map[int]NodeID
}

func newWalkContext(opts Options, metrics *PerfMetrics) *walkContext {
	return &walkContext{
		opts:     opts,
		log:      opts.debugLog(),
		records:  make(map[NodeID]*NodeRecord),
		parentOf: make(map[NodeID]NodeID),
		nextID:   1,
		metrics:  metrics,
		idOf:     make(map[*Document]map[int]NodeID),
	}
}

func (w *walkContext) alloc(doc *Document, node int) NodeID {
	id := w.nextID
	w.nextID++
	m := w.idOf[doc]
	if m == nil {
		m = make(map[int]NodeID)
		w.idOf[doc] = m
	}
	m[node] = id
	return id
}

// walkDocument walks one browsing context: the body subtree first, then
// the iframe scan for that document.
func (w *walkContext) walkDocument(doc *Document, depth int) NodeID {
	rootID := w.walkNode(doc, doc.Root, depth, true)
	w.scanIframes(doc, depth)
	return rootID
}

// walkNode visits one arena node, allocating a record and recursing into
// children. Returns 0 when the node is skipped.
func (w *walkContext) walkNode(doc *Document, i, depth int, parentVisible bool) NodeID {
	n := doc.NodeAt(i)
	if n == nil {
		return 0
	}
	w.metrics.NodeMetrics.TotalNodes++

	if n.Kind == TextNode {
		text := strings.TrimSpace(n.Text)
		if text == "" {
			return 0
		}
		id := w.alloc(doc, i)
		w.records[id] = &NodeRecord{
			Type:      textNodeType,
			Text:      truncateRunes(text, textLimit),
			IsVisible: parentVisible,
			Children:  []NodeID{},
		}
		w.metrics.NodeMetrics.ProcessedNodes++
		return id
	}

	if skippedTags[n.Tag] {
		return 0
	}

	id := w.alloc(doc, i)

	visible := isVisible(doc, i)
	interactive := isInteractive(doc, i)
	inViewport := isInViewport(doc, i, w.opts.ViewportExpansion)
	top := false
	if visible {
		top = isTopElement(doc, i)
	}

	rec := &NodeRecord{
		TagName:       n.Tag,
		Attributes:    filterAttributes(n.Attrs),
		XPath:         buildXPath(doc, i),
		IsVisible:     visible,
		IsInteractive: interactive,
		IsTopElement:  top,
		IsInViewport:  inViewport,
		IsScrollable:  isScrollableElement(doc, i),
		ShadowRoot:    n.ShadowRoot,
		Viewport:      viewportRectOf(n),
		Children:      []NodeID{},
		Text:          extractText(doc, i, interactive),
	}
	rec.AriaLabel = n.Attr("aria-label")
	rec.AriaDescription = n.Attr("aria-description")
	rec.Title = n.Attr("title")
	rec.Role = n.Attr("role")
	w.records[id] = rec

	w.metrics.NodeMetrics.ProcessedNodes++
	if visible {
		w.metrics.NodeMetrics.VisibleNodes++
	}

	if interactive && visible && (inViewport || w.opts.ViewportExpansion > 0) {
		w.metrics.NodeMetrics.InteractiveNodes++
		w.candidates = append(w.candidates, candidate{
			id:    id,
			doc:   doc,
			node:  i,
			rect:  n.Layout.Rect,
			isTop: top,
			tag:   n.Tag,
			role:  strings.ToLower(n.Attr("role")),
		})
	}

	for _, child := range n.Children {
		childID := w.walkNode(doc, child, depth, visible)
		if childID != 0 {
			rec.Children = append(rec.Children, childID)
			w.parentOf[childID] = id
		}
	}
	return id
}

// scanIframes runs after a document's body walk: it upgrades every iframe
// element record of that document to the placeholder shape and, for
// readable frames, walks the content document and recurses for nested
// frames at depth+1. Budget checks stop the recursion early.
func (w *walkContext) scanIframes(doc *Document, depth int) {
	for _, i := range doc.FindByTag("iframe") {
		n := doc.NodeAt(i)
		id := w.idOf[doc][i]
		if id == 0 {
			continue
		}
		rec := w.records[id]
		w.metrics.IframeMetrics.TotalIframes++

		if depth >= w.opts.MaxIframeDepth || w.iframeCount >= w.opts.MaxIframes {
			w.metrics.IframeMetrics.SkippedIframes++
			w.log.Debug().Int("depth", depth).Int("count", w.iframeCount).Msg("iframe budget reached")
			continue
		}

		if rec.Attributes == nil {
			rec.Attributes = map[string]string{}
		}
		if src := n.Attr("src"); src != "" {
			rec.Attributes["src"] = truncateRunes(src, iframeSrcLimit)
		}
		rec.IframeDepth = depth

		if n.ContentDoc != nil {
			rec.Attributes["data-iframe-type"] = "same-origin"
			rec.IframeContent = IframeExtractable
			w.iframeCount++
			w.metrics.IframeMetrics.SameOriginIframes++
			if depth+1 > w.metrics.IframeMetrics.MaxDepthReached {
				w.metrics.IframeMetrics.MaxDepthReached = depth + 1
			}
			childID := w.walkNode(n.ContentDoc, n.ContentDoc.Root, depth+1, true)
			if childID != 0 {
				rec.Children = append(rec.Children, childID)
				w.parentOf[childID] = id
			}
			w.iframeIDs = append(w.iframeIDs, id)
			w.scanIframes(n.ContentDoc, depth+1)
			continue
		}

		// Unreadable content document.
		if !w.opts.IncludeCrossOriginIframes {
			w.metrics.IframeMetrics.SkippedIframes++
			continue
		}
		rec.Attributes["data-iframe-type"] = "cross-origin"
		rec.IframeContent = IframeCrossOriginBlocked
		rec.Children = []NodeID{}
		w.metrics.IframeMetrics.CrossOriginIframes++
		w.iframeIDs = append(w.iframeIDs, id)
	}
}

// filterAttributes drops framework-internal noise and inline style;
// everything else is retained verbatim.
func filterAttributes(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if k == "style" ||
			strings.HasPrefix(k, "data-reactid") ||
			strings.HasPrefix(k, "data-reactroot") ||
			strings.HasPrefix(k, "ng-") {
			continue
		}
		out[k] = v
	}
	return out
}

// buildXPath produces /lowertag[index]/... segments counting same-tag
// previous element siblings. An id on the element or any ancestor
// collapses the prefix to //*[@id="..."].
func buildXPath(doc *Document, i int) string {
	var segs []string
	for cur := i; cur >= 0; {
		n := doc.NodeAt(cur)
		if n.Kind != ElementNode {
			cur = n.Parent
			continue
		}
		if id := n.Attr("id"); id != "" {
			prefix := fmt.Sprintf("//*[@id=%q]", id)
			if len(segs) == 0 {
				return prefix
			}
			return prefix + "/" + strings.Join(segs, "/")
		}
		seg := n.Tag
		if idx := siblingIndex(doc, cur); idx > 1 {
			seg = fmt.Sprintf("%s[%d]", n.Tag, idx)
		}
		segs = append([]string{seg}, segs...)
		cur = n.Parent
	}
	return "/" + strings.Join(segs, "/")
}

// siblingIndex counts previous element siblings with the same tag,
// 1-based.
func siblingIndex(doc *Document, i int) int {
	n := doc.NodeAt(i)
	p := doc.NodeAt(n.Parent)
	if p == nil {
		return 1
	}
	idx := 1
	for _, sib := range p.Children {
		if sib == i {
			break
		}
		s := doc.NodeAt(sib)
		if s != nil && s.Kind == ElementNode && s.Tag == n.Tag {
			idx++
		}
	}
	return idx
}

func viewportRectOf(n *Node) *ViewportRect {
	if n.Layout == nil {
		return &ViewportRect{}
	}
	r := n.Layout.Rect
	return &ViewportRect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// extractText resolves a node's text payload. Interactive elements use
// innerText with a textContent fallback; everything else concatenates
// direct-child text, falling back to element-specific sources (input
// value/placeholder, textarea value, selected option label).
func extractText(doc *Document, i int, interactive bool) string {
	var text string
	if interactive {
		text = innerTextOf(doc, i)
		if text == "" {
			text = textContentOf(doc, i)
		}
	} else {
		text = directChildText(doc, i)
	}
	if text == "" {
		text = elementFallbackText(doc, i)
	}
	return truncateRunes(strings.TrimSpace(text), textLimit)
}

// innerTextOf approximates rendered text: hidden subtrees and non-content
// tags contribute nothing; each text node is trimmed and the non-empty ones
// are joined with single spaces (whitespace inside a node is kept).
func innerTextOf(doc *Document, i int) string {
	var parts []string
	var walk func(idx int)
	walk = func(idx int) {
		n := doc.NodeAt(idx)
		if n == nil {
			return
		}
		if n.Kind == TextNode {
			if t := strings.TrimSpace(n.Text); t != "" {
				parts = append(parts, t)
			}
			return
		}
		if skippedTags[n.Tag] {
			return
		}
		st := n.Style
		st.Normalize()
		if st.Display == "none" || st.Visibility == "hidden" {
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(i)
	return strings.Join(parts, " ")
}

// textContentOf concatenates all descendant character data.
func textContentOf(doc *Document, i int) string {
	var parts []string
	var walk func(idx int)
	walk = func(idx int) {
		n := doc.NodeAt(idx)
		if n == nil {
			return
		}
		if n.Kind == TextNode {
			if t := strings.TrimSpace(n.Text); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(i)
	return strings.Join(parts, " ")
}

func directChildText(doc *Document, i int) string {
	n := doc.NodeAt(i)
	var parts []string
	for _, c := range n.Children {
		cn := doc.NodeAt(c)
		if cn != nil && cn.Kind == TextNode {
			if t := strings.TrimSpace(cn.Text); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, " ")
}

func elementFallbackText(doc *Document, i int) string {
	n := doc.NodeAt(i)
	switch n.Tag {
	case "input":
		if v := n.Attr("value"); v != "" {
			return v
		}
		return n.Attr("placeholder")
	case "textarea":
		if v := n.Attr("value"); v != "" {
			return v
		}
		return directChildText(doc, i)
	case "select":
		var first, selected int = -1, -1
		for _, c := range n.Children {
			cn := doc.NodeAt(c)
			if cn == nil || cn.Kind != ElementNode || cn.Tag != "option" {
				continue
			}
			if first < 0 {
				first = c
			}
			if _, ok := cn.Attrs["selected"]; ok && selected < 0 {
				selected = c
			}
		}
		pick := selected
		if pick < 0 {
			pick = first
		}
		if pick >= 0 {
			return directChildText(doc, pick)
		}
	}
	return ""
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
