package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-rod/rod"

	"github.com/anxuanzi/domlens/dom"
)

// snapshotStyles is the computed-style whitelist requested from CDP, in
// the order the decoder reads them back.
var snapshotStyles = []string{
	"display", "visibility", "opacity", "position", "z-index",
	"overflow", "overflow-x", "overflow-y", "cursor", "pointer-events",
}

// CaptureDocument takes a DOMSnapshot of the page and decodes it into the
// analyzer's document model: the top document plus every same-origin
// iframe document linked in place. Cross-origin frames are not part of
// the snapshot and come back marked blocked.
func CaptureDocument(ctx context.Context, page *rod.Page) (*dom.Document, error) {
	data, err := page.Call(ctx, "", "DOMSnapshot.captureSnapshot", map[string]any{
		"computedStyles":    snapshotStyles,
		"includeDOMRects":   true,
		"includePaintOrder": true,
	})
	if err != nil {
		return nil, fmt.Errorf("capture snapshot: %w", err)
	}

	vp, err := readViewport(page)
	if err != nil {
		return nil, err
	}
	return DecodeSnapshot(data, vp)
}

// DecodeSnapshot converts a raw DOMSnapshot.captureSnapshot response into
// the top-level document, wiring same-origin iframe content documents in
// place. Exposed separately so it can run against canned responses.
func DecodeSnapshot(data []byte, vp dom.Viewport) (*dom.Document, error) {
	var resp snapshotResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if len(resp.Documents) == 0 {
		return nil, fmt.Errorf("decode snapshot: no documents")
	}

	docs := make([]*dom.Document, len(resp.Documents))
	links := make([][]frameLink, len(resp.Documents))
	for di := range resp.Documents {
		docs[di], links[di] = decodeDocument(&resp, di, vp)
	}

	// Wire same-origin iframes to their content documents; an iframe the
	// snapshot carries no document for is a separate target, i.e.
	// cross-origin.
	for di, ls := range links {
		for _, l := range ls {
			if l.contentDoc > 0 && l.contentDoc < len(docs) {
				docs[di].SetIframeContent(l.arenaIdx, docs[l.contentDoc])
			} else {
				docs[di].MarkCrossOrigin(l.arenaIdx)
			}
		}
	}
	return docs[0], nil
}

// readViewport asks the page for its window geometry.
func readViewport(page *rod.Page) (dom.Viewport, error) {
	var vp dom.Viewport
	result, err := page.Eval(`() => ({
		width: window.innerWidth, height: window.innerHeight,
		scrollX: window.scrollX, scrollY: window.scrollY
	})`)
	if err != nil {
		return vp, fmt.Errorf("read viewport: %w", err)
	}
	var raw struct {
		Width   float64 `json:"width"`
		Height  float64 `json:"height"`
		ScrollX float64 `json:"scrollX"`
		ScrollY float64 `json:"scrollY"`
	}
	if err := result.Value.Unmarshal(&raw); err != nil {
		return vp, fmt.Errorf("read viewport: %w", err)
	}
	return dom.Viewport{Width: raw.Width, Height: raw.Height, ScrollX: raw.ScrollX, ScrollY: raw.ScrollY}, nil
}

// frameLink records an iframe arena slot and the snapshot document index
// of its content, -1 when the snapshot carries none.
type frameLink struct {
	arenaIdx   int
	contentDoc int
}

type rareIntegerData struct {
	Index []int `json:"index"`
	Value []int `json:"value"`
}

func (r *rareIntegerData) lookup(i int) (int, bool) {
	for k, idx := range r.Index {
		if idx == i {
			return r.Value[k], true
		}
	}
	return 0, false
}

type rareStringData struct {
	Index []int `json:"index"`
	Value []int `json:"value"`
}

func (r *rareStringData) has(i int) bool {
	for _, idx := range r.Index {
		if idx == i {
			return true
		}
	}
	return false
}

type snapshotNodes struct {
	ParentIndex          []int           `json:"parentIndex"`
	NodeType             []int           `json:"nodeType"`
	NodeName             []int           `json:"nodeName"`
	NodeValue            []int           `json:"nodeValue"`
	BackendNodeID        []int           `json:"backendNodeId"`
	Attributes           [][]int         `json:"attributes"`
	ContentDocumentIndex rareIntegerData `json:"contentDocumentIndex"`
	ShadowRootType       rareStringData  `json:"shadowRootType"`
}

type snapshotLayout struct {
	NodeIndex   []int       `json:"nodeIndex"`
	Styles      [][]int     `json:"styles"`
	Bounds      [][]float64 `json:"bounds"`
	PaintOrders []int       `json:"paintOrders"`
	ClientRects [][]float64 `json:"clientRects"`
	ScrollRects [][]float64 `json:"scrollRects"`
}

type snapshotDocument struct {
	DocumentURL   int            `json:"documentURL"`
	Title         int            `json:"title"`
	ScrollOffsetX float64        `json:"scrollOffsetX"`
	ScrollOffsetY float64        `json:"scrollOffsetY"`
	ContentWidth  float64        `json:"contentWidth"`
	ContentHeight float64        `json:"contentHeight"`
	Nodes         snapshotNodes  `json:"nodes"`
	Layout        snapshotLayout `json:"layout"`
}

type snapshotResponse struct {
	Documents []snapshotDocument `json:"documents"`
	Strings   []string           `json:"strings"`
}

const (
	nodeTypeElement  = 1
	nodeTypeText     = 3
	nodeTypeFragment = 11
)

// decodeDocument converts one snapshot document into an arena document.
// Shadow-root fragments are elided: their children reattach to the host,
// which is marked ShadowRoot.
func decodeDocument(resp *snapshotResponse, di int, vp dom.Viewport) (*dom.Document, []frameLink) {
	sd := &resp.Documents[di]
	getString := func(idx int) string {
		if idx >= 0 && idx < len(resp.Strings) {
			return resp.Strings[idx]
		}
		return ""
	}

	doc := &dom.Document{
		Root:     -1,
		URL:      getString(sd.DocumentURL),
		Title:    getString(sd.Title),
		Viewport: vp,
	}
	if di > 0 && sd.ContentWidth > 0 {
		// Sub-documents are windowed by their own frame box.
		doc.Viewport = dom.Viewport{Width: sd.ContentWidth, Height: sd.ContentHeight}
	}

	layoutLookup := make(map[int]int, len(sd.Layout.NodeIndex))
	for li, ni := range sd.Layout.NodeIndex {
		layoutLookup[ni] = li
	}

	total := len(sd.Nodes.NodeType)
	arenaOf := make([]int, total)
	for i := range arenaOf {
		arenaOf[i] = -1
	}
	var links []frameLink

	// arenaParent resolves the nearest ancestor that made it into the
	// arena, hopping over document and shadow-fragment nodes.
	arenaParent := func(i int) int {
		for p := sd.Nodes.ParentIndex[i]; p >= 0; p = sd.Nodes.ParentIndex[p] {
			if arenaOf[p] >= 0 {
				return arenaOf[p]
			}
		}
		return -1
	}

	for i := 0; i < total; i++ {
		switch sd.Nodes.NodeType[i] {
		case nodeTypeText:
			parent := arenaParent(i)
			if parent < 0 {
				continue
			}
			idx := len(doc.Nodes)
			doc.Nodes = append(doc.Nodes, dom.Node{
				Kind:   dom.TextNode,
				Text:   getString(sd.Nodes.NodeValue[i]),
				Parent: parent,
			})
			doc.Nodes[parent].Children = append(doc.Nodes[parent].Children, idx)
			arenaOf[i] = idx

		case nodeTypeFragment:
			if sd.Nodes.ShadowRootType.has(i) {
				if host := arenaParent(i); host >= 0 {
					doc.Nodes[host].ShadowRoot = true
				}
			}

		case nodeTypeElement:
			tag := strings.ToLower(getString(sd.Nodes.NodeName[i]))
			node := dom.Node{
				Kind:   dom.ElementNode,
				Tag:    tag,
				Attrs:  decodeAttrs(sd.Nodes.Attributes, i, getString),
				Parent: arenaParent(i),
			}
			if li, ok := layoutLookup[i]; ok {
				node.Style = decodeStyles(sd.Layout.Styles, li, getString)
				node.Layout = decodeLayout(&sd.Layout, li)
				node.Layout.Rect.X -= sd.ScrollOffsetX
				node.Layout.Rect.Y -= sd.ScrollOffsetY
				// CDP snapshots carry no offsetParent signal; best
				// effort is "laid out and not display:none", which
				// neutralizes the offset-parent visibility check for
				// CDP-sourced documents.
				node.Layout.HasOffsetParent = node.Style.Display != "none"
			}
			idx := len(doc.Nodes)
			doc.Nodes = append(doc.Nodes, node)
			if node.Parent >= 0 {
				doc.Nodes[node.Parent].Children = append(doc.Nodes[node.Parent].Children, idx)
			}
			arenaOf[i] = idx
			if tag == "body" && doc.Root < 0 {
				doc.Root = idx
			}
			if tag == "iframe" {
				content := -1
				if ci, ok := sd.Nodes.ContentDocumentIndex.lookup(i); ok {
					content = ci
				}
				links = append(links, frameLink{arenaIdx: idx, contentDoc: content})
			}
		}
	}
	return doc, links
}

func decodeAttrs(attributes [][]int, i int, getString func(int) string) map[string]string {
	if i >= len(attributes) {
		return map[string]string{}
	}
	pairs := attributes[i]
	out := make(map[string]string, len(pairs)/2)
	for k := 0; k+1 < len(pairs); k += 2 {
		out[strings.ToLower(getString(pairs[k]))] = getString(pairs[k+1])
	}
	return out
}

// decodeStyles reads the computed styles back in snapshotStyles order.
func decodeStyles(styles [][]int, li int, getString func(int) string) dom.ComputedStyle {
	var cs dom.ComputedStyle
	if li < len(styles) {
		row := styles[li]
		get := func(pos int) string {
			if pos < len(row) {
				return getString(row[pos])
			}
			return ""
		}
		cs.Display = get(0)
		cs.Visibility = get(1)
		if op := get(2); op != "" {
			if v, err := strconv.ParseFloat(op, 64); err == nil {
				cs.SetOpacity(v)
			}
		}
		cs.Position = get(3)
		cs.ZIndex = get(4)
		cs.Overflow = get(5)
		cs.OverflowX = get(6)
		cs.OverflowY = get(7)
		cs.Cursor = get(8)
		cs.PointerEvents = get(9)
	}
	cs.Normalize()
	return cs
}

func decodeLayout(layout *snapshotLayout, li int) *dom.Layout {
	l := &dom.Layout{}
	if li < len(layout.Bounds) {
		if b := layout.Bounds[li]; len(b) >= 4 {
			l.Rect = dom.Rect{X: b[0], Y: b[1], Width: b[2], Height: b[3]}
		}
	}
	if li < len(layout.PaintOrders) {
		l.PaintOrder = layout.PaintOrders[li]
	}
	if li < len(layout.ClientRects) {
		if r := layout.ClientRects[li]; len(r) >= 4 {
			l.ClientWidth, l.ClientHeight = r[2], r[3]
		}
	}
	if li < len(layout.ScrollRects) {
		if r := layout.ScrollRects[li]; len(r) >= 4 {
			l.ScrollWidth, l.ScrollHeight = r[2], r[3]
		}
	}
	return l
}
