package dom

import (
	"fmt"
	"sort"
	"strings"
)

// NodeID identifies one record within a single analysis pass. IDs are
// issued in walk order starting at 1 and are not stable across passes.
type NodeID int

// Record type tag for text nodes.
const textNodeType = "TEXT_NODE"

// Iframe content markers.
const (
	IframeExtractable        = "extractable"
	IframeCrossOriginBlocked = "cross-origin-blocked"
)

// ViewportRect is a node's box in CSS pixels relative to the current
// viewport: boundingClientRect left/top without scroll offsets.
type ViewportRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NodeRecord is one entry of the node map. Element records leave Type
// empty; text records set Type to TEXT_NODE and carry only Text,
// IsVisible and an empty child list.
type NodeRecord struct {
	Type string `json:"type,omitempty"`

	TagName    string            `json:"tagName,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	XPath      string            `json:"xpath,omitempty"`

	Text            string `json:"text,omitempty"`
	AriaLabel       string `json:"ariaLabel,omitempty"`
	AriaDescription string `json:"ariaDescription,omitempty"`
	Title           string `json:"title,omitempty"`
	Role            string `json:"role,omitempty"`

	IsVisible     bool `json:"isVisible"`
	IsInteractive bool `json:"isInteractive,omitempty"`
	IsTopElement  bool `json:"isTopElement,omitempty"`
	IsInViewport  bool `json:"isInViewport,omitempty"`
	IsScrollable  bool `json:"isScrollable,omitempty"`
	ShadowRoot    bool `json:"shadowRoot,omitempty"`

	HighlightIndex *int `json:"highlightIndex"`

	Viewport *ViewportRect `json:"viewport,omitempty"`
	Children []NodeID      `json:"children"`

	IframeContent string `json:"iframeContent,omitempty"`
	IframeDepth   int    `json:"iframeDepth,omitempty"`
}

// clone returns a shallow copy with its own children slice, for the
// compact projection.
func (r *NodeRecord) clone() *NodeRecord {
	cp := *r
	cp.Children = append([]NodeID(nil), r.Children...)
	if r.Attributes != nil {
		cp.Attributes = make(map[string]string, len(r.Attributes))
		for k, v := range r.Attributes {
			cp.Attributes[k] = v
		}
	}
	if r.Viewport != nil {
		v := *r.Viewport
		cp.Viewport = &v
	}
	if r.HighlightIndex != nil {
		h := *r.HighlightIndex
		cp.HighlightIndex = &h
	}
	return &cp
}

// PopupContainer describes a likely modal/overlay region found in the top
// document. Advisory only; never filtered by compact mode.
type PopupContainer struct {
	NodeID   NodeID       `json:"nodeId"`
	TagName  string       `json:"tagName"`
	ID       string       `json:"id,omitempty"`
	Class    string       `json:"class,omitempty"`
	Role     string       `json:"role,omitempty"`
	ZIndex   int          `json:"zIndex"`
	Viewport ViewportRect `json:"viewport"`
	Matched  string       `json:"matched"`
}

// OverlayBox is one entry of the overlay plan: a highlight rectangle the
// painters draw over a surviving top candidate.
type OverlayBox struct {
	Index   int          `json:"index"`
	Rect    ViewportRect `json:"rect"`
	Focused bool         `json:"focused"`
	TagName string       `json:"tagName"`
	Role    string       `json:"role,omitempty"`
}

// NodeMetrics are per-pass node counters.
type NodeMetrics struct {
	TotalNodes               int `json:"totalNodes"`
	ProcessedNodes           int `json:"processedNodes"`
	InteractiveNodes         int `json:"interactiveNodes"`
	VisibleNodes             int `json:"visibleNodes"`
	FilteredInteractiveNodes int `json:"filteredInteractiveNodes"`
}

// IframeMetrics are per-pass iframe counters.
type IframeMetrics struct {
	TotalIframes       int `json:"totalIframes"`
	SameOriginIframes  int `json:"sameOriginIframes"`
	CrossOriginIframes int `json:"crossOriginIframes"`
	SkippedIframes     int `json:"skippedIframes"`
	MaxDepthReached    int `json:"maxDepthReached"`
}

// PopupMetrics are per-pass popup-scan counters.
type PopupMetrics struct {
	ContainersFound int `json:"containersFound"`
	NodesScanned    int `json:"nodesScanned"`
}

// PerfMetrics carries wall-clock and counter data for one pass. Times are
// milliseconds since the Unix epoch.
type PerfMetrics struct {
	StartTime     float64       `json:"startTime"`
	EndTime       float64       `json:"endTime"`
	TotalTime     float64       `json:"totalTime"`
	NodeMetrics   NodeMetrics   `json:"nodeMetrics"`
	IframeMetrics IframeMetrics `json:"iframeMetrics"`
	PopupMetrics  PopupMetrics  `json:"popupMetrics"`
}

// Result is the analysis envelope. It is plain data: every field
// marshals cleanly so hosts can ship it across a process boundary.
type Result struct {
	Map             map[NodeID]*NodeRecord `json:"map"`
	RootID          *NodeID                `json:"rootId"`
	IframeNodes     []*NodeRecord          `json:"iframeNodes"`
	PopupContainers []PopupContainer       `json:"popupContainers"`
	PerfMetrics     PerfMetrics            `json:"perfMetrics"`
	CompactMode     bool                   `json:"compactMode"`
	Error           string                 `json:"error,omitempty"`

	// Overlay is the highlight plan computed when DoHighlightElements is
	// set; painters consume it.
	Overlay []OverlayBox `json:"overlay,omitempty"`

	parentOf map[NodeID]NodeID
}

// ParentOf returns the parent record id, or 0 when id is the root or
// unknown.
func (r *Result) ParentOf(id NodeID) NodeID {
	return r.parentOf[id]
}

// ByHighlightIndex returns the record carrying the given highlight index.
func (r *Result) ByHighlightIndex(idx int) (NodeID, *NodeRecord, bool) {
	for id, rec := range r.Map {
		if rec.HighlightIndex != nil && *rec.HighlightIndex == idx {
			return id, rec, true
		}
	}
	return 0, nil, false
}

// Summary renders the surviving candidates as token-efficient lines for
// LLM context, ordered by highlight index.
func (r *Result) Summary() string {
	type entry struct {
		idx int
		rec *NodeRecord
	}
	var entries []entry
	for _, rec := range r.Map {
		if rec.HighlightIndex != nil {
			entries = append(entries, entry{*rec.HighlightIndex, rec})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })

	var sb strings.Builder
	fmt.Fprintf(&sb, "Interactive elements (%d):\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&sb, "[%d] %s", e.idx, e.rec.TagName)
		if e.rec.Role != "" && e.rec.Role != e.rec.TagName {
			fmt.Fprintf(&sb, " role=%s", e.rec.Role)
		}
		if e.rec.Text != "" {
			fmt.Fprintf(&sb, " %q", truncate(e.rec.Text, 50))
		} else if e.rec.AriaLabel != "" {
			fmt.Fprintf(&sb, " aria=%q", truncate(e.rec.AriaLabel, 50))
		}
		if href := e.rec.Attributes["href"]; href != "" {
			fmt.Fprintf(&sb, " href=%q", truncate(href, 80))
		}
		if e.rec.IsScrollable {
			sb.WriteString(" |SCROLL|")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
