package dom

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Options configures one analysis pass. The zero value is not useful;
// start from DefaultOptions.
type Options struct {
	// DoHighlightElements computes the overlay plan for surviving
	// candidates. The plan is carried on the result; painters in the
	// browser and screenshot packages consume it.
	DoHighlightElements bool `yaml:"doHighlightElements"`

	// FocusHighlightIndex marks one index to render with the focused
	// style, -1 for none.
	FocusHighlightIndex int `yaml:"focusHighlightIndex"`

	// ViewportExpansion widens the viewport rectangle used by the
	// in-viewport probe, in pixels; negative values shrink it. Any value
	// above zero additionally admits off-viewport candidates during
	// collection (the gate becomes in-viewport OR expansion > 0), which
	// the upstream behavior this analyzer reproduces relies on.
	ViewportExpansion float64 `yaml:"viewportExpansion"`

	// DebugMode routes walk and filter counters through Logger.
	DebugMode bool `yaml:"debugMode"`

	// MaxIframeDepth bounds iframe recursion depth.
	MaxIframeDepth int `yaml:"maxIframeDepth"`

	// MaxIframes bounds total iframe fan-out across the pass.
	MaxIframes int `yaml:"maxIframes"`

	// IncludeCrossOriginIframes emits placeholder records for frames
	// whose documents cannot be read; when false they are elided.
	IncludeCrossOriginIframes bool `yaml:"includeCrossOriginIframes"`

	// CompactMode projects the map down to candidates, their ancestors,
	// iframe placeholders and the root.
	CompactMode bool `yaml:"compactMode"`

	// Logger receives debug output when DebugMode is set.
	Logger zerolog.Logger `yaml:"-"`
}

// DefaultOptions returns the analyzer defaults.
func DefaultOptions() Options {
	return Options{
		DoHighlightElements:       true,
		FocusHighlightIndex:       -1,
		ViewportExpansion:         0,
		DebugMode:                 false,
		MaxIframeDepth:            5,
		MaxIframes:                100,
		IncludeCrossOriginIframes: true,
		CompactMode:               false,
		Logger:                    zerolog.Nop(),
	}
}

// LoadOptions reads a YAML options file over the defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read options: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse options: %w", err)
	}
	return opts, nil
}

func (o Options) debugLog() zerolog.Logger {
	if o.DebugMode {
		return o.Logger
	}
	return zerolog.Nop()
}
