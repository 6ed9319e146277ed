package dom

import "sort"

// rowTolerance treats tops within this many pixels as the same reading
// row, so left-to-right order wins inside a row.
const rowTolerance = 5.0

// assignIndexes sorts the surviving candidates into reading order, writes
// gap-free highlight indices 0..K-1 onto their records, and builds the
// overlay plan when highlighting is requested.
func (w *walkContext) assignIndexes(survivors []candidate) []OverlayBox {
	sort.SliceStable(survivors, func(i, j int) bool {
		a, b := survivors[i].rect, survivors[j].rect
		dy := a.Y - b.Y
		if dy < -rowTolerance || dy > rowTolerance {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	var overlay []OverlayBox
	for idx := range survivors {
		c := &survivors[idx]
		rec := w.records[c.id]
		if rec == nil {
			continue
		}
		h := idx
		rec.HighlightIndex = &h
		rec.IsTopElement = c.isTop

		if w.opts.DoHighlightElements && c.isTop {
			overlay = append(overlay, OverlayBox{
				Index:   idx,
				Rect:    ViewportRect{X: c.rect.X, Y: c.rect.Y, Width: c.rect.Width, Height: c.rect.Height},
				Focused: idx == w.opts.FocusHighlightIndex,
				TagName: c.tag,
				Role:    c.role,
			})
		}
	}
	return overlay
}
