package dom

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestEmptyDocument(t *testing.T) {
	res := analyzeFixture(t, `<html><body></body></html>`, DefaultOptions())

	if res.RootID == nil {
		t.Fatal("rootId missing")
	}
	root := res.Map[*res.RootID]
	if root == nil || root.TagName != "body" {
		t.Fatal("rootId should point at the body")
	}
	if len(res.Map) != 1 {
		t.Errorf("map size = %d, want the body only", len(res.Map))
	}
	if res.PerfMetrics.NodeMetrics.InteractiveNodes != 0 {
		t.Errorf("interactiveNodes = %d, want 0", res.PerfMetrics.NodeMetrics.InteractiveNodes)
	}
	if len(res.Overlay) != 0 {
		t.Error("empty document should produce no overlay boxes")
	}
}

func TestSingleButton(t *testing.T) {
	res := analyzeFixture(t, `<body style="width:1280px;height:720px">
		<button style="left:10px;top:10px;width:80px;height:24px">Go</button>
	</body>`, DefaultOptions())

	if len(res.Map) != 3 {
		t.Errorf("map size = %d, want body + button + text", len(res.Map))
	}
	_, button := findRecord(res, byTag("button"))
	if button == nil {
		t.Fatal("button missing")
	}
	if !button.IsInteractive || button.HighlightIndex == nil || *button.HighlightIndex != 0 {
		t.Errorf("button should carry highlight index 0, got %+v", button.HighlightIndex)
	}
	if button.Text != "Go" {
		t.Errorf("button text = %q, want %q", button.Text, "Go")
	}
	if len(res.Overlay) != 1 || res.Overlay[0].Index != 0 {
		t.Errorf("overlay plan = %+v, want one box for index 0", res.Overlay)
	}
}

func TestEmptyAnchorScenario(t *testing.T) {
	res := analyzeFixture(t, `<body style="width:1280px;height:720px">
		<a href="/x" style="left:10px;top:10px;width:40px;height:20px"></a>
	</body>`, DefaultOptions())

	if got := len(highlightOrder(res)); got != 0 {
		t.Errorf("candidates = %d, want none for an empty anchor", got)
	}
}

func TestOverlappingModal(t *testing.T) {
	markup := `<body style="width:1280px;height:720px">
		<button id="bg" style="left:100px;top:100px;width:300px;height:80px">Behind</button>
		<div id="m" class="signup-modal" style="position:fixed;z-index:10000;left:0;top:0;width:1280px;height:720px">
			<button id="fg" style="position:fixed;z-index:10001;left:120px;top:120px;width:100px;height:40px">In modal</button>
		</div>
	</body>`
	res := analyzeFixture(t, markup, DefaultOptions())

	order := highlightOrder(res)
	if len(order) != 1 {
		t.Fatalf("candidates = %d, want only the in-modal button", len(order))
	}
	if got := res.Map[order[0]].Attributes["id"]; got != "fg" {
		t.Errorf("survivor = %q, want the modal button", got)
	}
	_, bg := findRecord(res, func(r *NodeRecord) bool { return r.Attributes["id"] == "bg" })
	if bg.IsTopElement {
		t.Error("background button should not be top")
	}
	if len(res.PopupContainers) != 1 {
		t.Fatalf("popupContainers = %d, want 1", len(res.PopupContainers))
	}
	if p := res.PopupContainers[0]; p.Matched != "modal" || p.ZIndex != 10000 {
		t.Errorf("popup descriptor = %+v", p)
	}
}

func TestSameOriginIframe(t *testing.T) {
	outer := mustParse(t, `<body style="width:1280px;height:720px">
		<iframe src="https://inner.example/page" title="inner"
			style="left:50px;top:50px;width:600px;height:400px"></iframe>
	</body>`)
	inner := mustParse(t, `<body style="width:600px;height:400px">
		<button style="left:10px;top:10px;width:80px;height:24px">In</button>
	</body>`)
	inner.Viewport = Viewport{Width: 600, Height: 400}
	outer.SetIframeContent(outer.FindByTag("iframe")[0], inner)

	res := Analyze(outer, DefaultOptions())
	checkInvariants(t, res)

	if len(res.IframeNodes) != 1 {
		t.Fatalf("iframeNodes = %d, want 1", len(res.IframeNodes))
	}
	frame := res.IframeNodes[0]
	if frame.IframeContent != IframeExtractable {
		t.Errorf("iframeContent = %q", frame.IframeContent)
	}
	if frame.Attributes["data-iframe-type"] != "same-origin" {
		t.Errorf("data-iframe-type = %q", frame.Attributes["data-iframe-type"])
	}
	if len(frame.Children) != 1 || res.Map[frame.Children[0]].TagName != "body" {
		t.Error("iframe children should resolve to the inner body")
	}
	if res.PerfMetrics.IframeMetrics.TotalIframes != 1 {
		t.Errorf("totalIframes = %d, want 1", res.PerfMetrics.IframeMetrics.TotalIframes)
	}
	_, button := findRecord(res, byTag("button"))
	if button == nil || button.HighlightIndex == nil {
		t.Error("inner button should receive a highlight index")
	}
}

func TestCrossOriginIframe(t *testing.T) {
	markup := `<body style="width:1280px;height:720px">
		<iframe id="x" src="https://other.example/embed"
			style="left:50px;top:50px;width:600px;height:400px"></iframe>
	</body>`

	doc := mustParse(t, markup)
	doc.MarkCrossOrigin(doc.FindByTag("iframe")[0])
	res := Analyze(doc, DefaultOptions())
	checkInvariants(t, res)

	if len(res.IframeNodes) != 1 {
		t.Fatalf("iframeNodes = %d, want 1", len(res.IframeNodes))
	}
	frame := res.IframeNodes[0]
	if frame.IframeContent != IframeCrossOriginBlocked {
		t.Errorf("iframeContent = %q", frame.IframeContent)
	}
	if len(frame.Children) != 0 {
		t.Error("blocked iframe must have no children")
	}

	// Disallowing cross-origin frames elides the placeholder.
	doc2 := mustParse(t, markup)
	doc2.MarkCrossOrigin(doc2.FindByTag("iframe")[0])
	opts := DefaultOptions()
	opts.IncludeCrossOriginIframes = false
	res2 := Analyze(doc2, opts)
	checkInvariants(t, res2)
	if len(res2.IframeNodes) != 0 {
		t.Error("blocked iframe should be elided when disallowed")
	}
}

func TestIframeBudgets(t *testing.T) {
	outer := mustParse(t, `<body style="width:1280px;height:720px">
		<iframe style="left:0;top:0;width:300px;height:200px"></iframe>
		<iframe style="left:0;top:210px;width:300px;height:200px"></iframe>
	</body>`)
	for _, fi := range outer.FindByTag("iframe") {
		inner := mustParse(t, `<body style="width:300px;height:200px"><button style="width:50px;height:20px">X</button></body>`)
		outer.SetIframeContent(fi, inner)
	}

	opts := DefaultOptions()
	opts.MaxIframes = 1
	res := Analyze(outer, opts)
	checkInvariants(t, res)
	if res.PerfMetrics.IframeMetrics.SameOriginIframes != 1 {
		t.Errorf("sameOriginIframes = %d, want 1 under the budget", res.PerfMetrics.IframeMetrics.SameOriginIframes)
	}
	if res.PerfMetrics.IframeMetrics.SkippedIframes != 1 {
		t.Errorf("skippedIframes = %d, want 1", res.PerfMetrics.IframeMetrics.SkippedIframes)
	}

	opts = DefaultOptions()
	opts.MaxIframeDepth = 0
	res = Analyze(outer, opts)
	checkInvariants(t, res)
	if res.PerfMetrics.IframeMetrics.SameOriginIframes != 0 {
		t.Error("depth 0 should process no iframes")
	}
}

func TestDeterminismOnFrozenDocument(t *testing.T) {
	doc := mustParse(t, `<body style="width:1280px;height:720px">
		<button style="left:10px;top:10px;width:80px;height:24px">A</button>
		<a href="/x" style="left:10px;top:60px;width:80px;height:24px">B</a>
		<div class="cookie-banner" style="position:fixed;z-index:9500;left:0;top:620px;width:1280px;height:100px">consent</div>
	</body>`)

	first := Analyze(doc, DefaultOptions())
	opts := DefaultOptions()
	opts.DoHighlightElements = false
	second := Analyze(doc, opts)

	if diff := cmp.Diff(first.Map, second.Map); diff != "" {
		t.Errorf("maps differ between runs (-first +second):\n%s", diff)
	}
	if *first.RootID != *second.RootID {
		t.Error("rootId differs between runs")
	}
	if diff := cmp.Diff(first.PopupContainers, second.PopupContainers); diff != "" {
		t.Errorf("popup containers differ (-first +second):\n%s", diff)
	}
}

func TestCompactProjectionIsSubset(t *testing.T) {
	markup := `<body style="width:1280px;height:720px">
		<div><div><button style="left:10px;top:10px;width:80px;height:24px">Go</button></div></div>
		<div><p>static prose</p></div>
	</body>`

	full := analyzeFixture(t, markup, DefaultOptions())
	opts := DefaultOptions()
	opts.CompactMode = true
	compact := analyzeFixture(t, markup, opts)

	if !compact.CompactMode {
		t.Error("compactMode flag should be set on the envelope")
	}
	if len(compact.Map) >= len(full.Map) {
		t.Errorf("compact map (%d) should be smaller than full (%d)", len(compact.Map), len(full.Map))
	}

	ignoreChildren := cmpopts.IgnoreFields(NodeRecord{}, "Children")
	for id, rec := range compact.Map {
		fullRec, ok := full.Map[id]
		if !ok {
			t.Errorf("compact node %d missing from the full map", id)
			continue
		}
		if diff := cmp.Diff(fullRec, rec, ignoreChildren); diff != "" {
			t.Errorf("node %d payload differs (-full +compact):\n%s", id, diff)
		}
	}

	// Every highlight index survives the projection.
	if diff := cmp.Diff(highlightOrder(full), highlightOrder(compact)); diff != "" {
		t.Errorf("highlight assignment differs (-full +compact):\n%s", diff)
	}

	// The static prose subtree is gone.
	if _, rec := findRecord(compact, byTag("p")); rec != nil {
		t.Error("non-essential subtree should be pruned in compact mode")
	}
}

func TestPopupDetectionIdempotence(t *testing.T) {
	markup := `<body style="width:1280px;height:720px">
		<div class="consent-overlay" role="dialog"
			style="position:fixed;z-index:99999;left:0;top:0;width:1280px;height:720px">cookies</div>
		<div id="browser-use-highlight-container"
			style="position:fixed;z-index:2147483647;left:0;top:0;width:1280px;height:720px"></div>
	</body>`

	first := analyzeFixture(t, markup, DefaultOptions())
	second := analyzeFixture(t, markup, DefaultOptions())

	if diff := cmp.Diff(first.PopupContainers, second.PopupContainers); diff != "" {
		t.Errorf("popup detection not idempotent:\n%s", diff)
	}
	if len(first.PopupContainers) != 1 {
		t.Fatalf("popupContainers = %d, want the consent overlay only", len(first.PopupContainers))
	}
	if first.PopupContainers[0].Class != "consent-overlay" {
		t.Errorf("detected %+v, want the consent overlay", first.PopupContainers[0])
	}
}

func TestDegradedEnvelope(t *testing.T) {
	res := Analyze(nil, DefaultOptions())
	if res.Error == "" {
		t.Fatal("nil document should degrade with an error")
	}
	if res.RootID != nil {
		t.Error("degraded envelope must carry a nil rootId")
	}
	if len(res.Map) != 0 || len(res.IframeNodes) != 0 || len(res.PopupContainers) != 0 {
		t.Error("degraded envelope must be empty")
	}
}

func TestResultMarshals(t *testing.T) {
	res := analyzeFixture(t, `<body style="width:1280px;height:720px">
		<button style="left:10px;top:10px;width:80px;height:24px">Go</button>
	</body>`, DefaultOptions())

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	var round map[string]any
	if err := json.Unmarshal(data, &round); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	for _, key := range []string{"map", "rootId", "iframeNodes", "popupContainers", "perfMetrics", "compactMode"} {
		if _, ok := round[key]; !ok {
			t.Errorf("envelope missing %q", key)
		}
	}
}
