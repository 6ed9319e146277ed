package dom

import (
	"fmt"
	"time"
)

// Analyze runs one synchronous pass over a captured document: walk,
// classify, filter, index, project. It never panics outward; an
// unrecoverable failure yields a degraded envelope with Error set and a
// nil root.
func Analyze(doc *Document, opts Options) (res *Result) {
	start := nowMillis()
	defer func() {
		if r := recover(); r != nil {
			res = degradedResult(opts, start, fmt.Sprintf("%v", r))
		}
	}()

	if doc == nil || doc.NodeAt(doc.Root) == nil {
		return degradedResult(opts, start, "document has no root")
	}

	metrics := PerfMetrics{StartTime: start}
	w := newWalkContext(opts, &metrics)
	log := opts.debugLog()

	rootID := w.walkDocument(doc, 0)
	survivors := w.filterCandidates()
	overlay := w.assignIndexes(survivors)

	res = &Result{
		Map:         w.records,
		RootID:      &rootID,
		IframeNodes: []*NodeRecord{},
		PerfMetrics: metrics,
		CompactMode: opts.CompactMode,
		Overlay:     overlay,
		parentOf:    w.parentOf,
	}
	for _, id := range w.iframeIDs {
		res.IframeNodes = append(res.IframeNodes, w.records[id])
	}
	res.PopupContainers = scanPopups(doc, w)

	if opts.CompactMode {
		compactProjection(res, rootID, survivors, w.iframeIDs)
	}

	res.PerfMetrics = *w.metrics
	res.PerfMetrics.EndTime = nowMillis()
	res.PerfMetrics.TotalTime = res.PerfMetrics.EndTime - res.PerfMetrics.StartTime

	log.Debug().
		Int("totalNodes", res.PerfMetrics.NodeMetrics.TotalNodes).
		Int("processedNodes", res.PerfMetrics.NodeMetrics.ProcessedNodes).
		Int("visibleNodes", res.PerfMetrics.NodeMetrics.VisibleNodes).
		Int("interactiveNodes", res.PerfMetrics.NodeMetrics.InteractiveNodes).
		Int("filteredInteractiveNodes", res.PerfMetrics.NodeMetrics.FilteredInteractiveNodes).
		Int("iframes", res.PerfMetrics.IframeMetrics.TotalIframes).
		Int("popups", res.PerfMetrics.PopupMetrics.ContainersFound).
		Msg("analysis complete")

	return res
}

func degradedResult(opts Options, start float64, msg string) *Result {
	end := nowMillis()
	return &Result{
		Map:             map[NodeID]*NodeRecord{},
		RootID:          nil,
		IframeNodes:     []*NodeRecord{},
		PopupContainers: []PopupContainer{},
		PerfMetrics: PerfMetrics{
			StartTime: start,
			EndTime:   end,
			TotalTime: end - start,
		},
		CompactMode: opts.CompactMode,
		Error:       msg,
		parentOf:    map[NodeID]NodeID{},
	}
}

func nowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
