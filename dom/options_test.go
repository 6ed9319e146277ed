package dom

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if !opts.DoHighlightElements {
		t.Error("highlighting should default on")
	}
	if opts.FocusHighlightIndex != -1 {
		t.Error("focus index should default to -1")
	}
	if opts.MaxIframeDepth != 5 || opts.MaxIframes != 100 {
		t.Errorf("iframe budgets = %d/%d", opts.MaxIframeDepth, opts.MaxIframes)
	}
	if !opts.IncludeCrossOriginIframes {
		t.Error("cross-origin iframes should default on")
	}
	if opts.CompactMode || opts.DebugMode {
		t.Error("compact and debug should default off")
	}
}

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.yaml")
	content := []byte(`
doHighlightElements: false
focusHighlightIndex: 3
viewportExpansion: 120
compactMode: true
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := LoadOptions(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if opts.DoHighlightElements {
		t.Error("doHighlightElements override lost")
	}
	if opts.FocusHighlightIndex != 3 {
		t.Errorf("focusHighlightIndex = %d", opts.FocusHighlightIndex)
	}
	if opts.ViewportExpansion != 120 {
		t.Errorf("viewportExpansion = %v", opts.ViewportExpansion)
	}
	if !opts.CompactMode {
		t.Error("compactMode override lost")
	}
	// Untouched keys keep their defaults.
	if opts.MaxIframes != 100 || opts.MaxIframeDepth != 5 {
		t.Error("unset keys should keep defaults")
	}

	if _, err := LoadOptions(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should error")
	}
}
