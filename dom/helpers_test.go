package dom

import (
	"sort"
	"testing"
)

func mustParse(t *testing.T, markup string) *Document {
	t.Helper()
	doc, err := ParseHTMLString(markup)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

// checkInvariants asserts the result-envelope properties every pass must
// uphold: resolvable children, gap-free highlight indices, well-formed
// text records and non-negative viewport boxes.
func checkInvariants(t *testing.T, res *Result) {
	t.Helper()

	var indices []int
	for id, rec := range res.Map {
		for _, child := range rec.Children {
			if _, ok := res.Map[child]; !ok {
				t.Errorf("node %d references missing child %d", id, child)
			}
		}
		if rec.Type == textNodeType {
			if len(rec.Children) != 0 {
				t.Errorf("text node %d has children", id)
			}
			if rec.Text == "" || len([]rune(rec.Text)) > textLimit {
				t.Errorf("text node %d has bad text %q", id, rec.Text)
			}
		}
		if rec.Viewport != nil && (rec.Viewport.Width < 0 || rec.Viewport.Height < 0) {
			t.Errorf("node %d has negative viewport %+v", id, rec.Viewport)
		}
		if rec.HighlightIndex != nil {
			indices = append(indices, *rec.HighlightIndex)
			if !rec.IsVisible {
				t.Errorf("candidate %d is not visible", id)
			}
		}
	}

	sort.Ints(indices)
	for i, v := range indices {
		if v != i {
			t.Fatalf("highlight indices are not a gap-free permutation: %v", indices)
		}
	}
}

// highlightOrder returns candidate ids sorted by highlight index.
func highlightOrder(res *Result) []NodeID {
	type pair struct {
		id  NodeID
		idx int
	}
	var pairs []pair
	for id, rec := range res.Map {
		if rec.HighlightIndex != nil {
			pairs = append(pairs, pair{id, *rec.HighlightIndex})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].idx < pairs[j].idx })
	out := make([]NodeID, len(pairs))
	for i, p := range pairs {
		out[i] = p.id
	}
	return out
}

// findRecord locates the first record matching the predicate.
func findRecord(res *Result, pred func(*NodeRecord) bool) (NodeID, *NodeRecord) {
	for id, rec := range res.Map {
		if pred(rec) {
			return id, rec
		}
	}
	return 0, nil
}

func byTag(tag string) func(*NodeRecord) bool {
	return func(r *NodeRecord) bool { return r.TagName == tag }
}
