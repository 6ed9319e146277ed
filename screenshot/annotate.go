// Package screenshot burns the analyzer's overlay plan into page
// screenshots so vision models see the same indices the text map uses.
package screenshot

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strconv"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/anxuanzi/domlens/dom"
)

// AnnotationConfig configures how highlight boxes are drawn.
type AnnotationConfig struct {
	// BorderWidth is the stroke width of bounding boxes in pixels.
	BorderWidth float64

	// ShowLabels draws the highlight index above each box.
	ShowLabels bool

	// Colors for different element kinds.
	LinkColor      color.RGBA
	ButtonColor    color.RGBA
	InputColor     color.RGBA
	DefaultColor   color.RGBA
	FocusColor     color.RGBA
	LabelTextColor color.RGBA
}

// DefaultAnnotationConfig returns sensible defaults for annotations.
func DefaultAnnotationConfig() AnnotationConfig {
	return AnnotationConfig{
		BorderWidth:    2,
		ShowLabels:     true,
		LinkColor:      color.RGBA{R: 76, G: 175, B: 80, A: 255},
		ButtonColor:    color.RGBA{R: 33, G: 150, B: 243, A: 255},
		InputColor:     color.RGBA{R: 255, G: 152, B: 0, A: 255},
		DefaultColor:   color.RGBA{R: 156, G: 39, B: 176, A: 255},
		FocusColor:     color.RGBA{R: 255, G: 87, B: 34, A: 255},
		LabelTextColor: color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// Annotate draws the overlay plan onto a screenshot and re-encodes it in
// the original format.
func Annotate(imgData []byte, boxes []dom.OverlayBox, cfg AnnotationConfig) ([]byte, error) {
	if len(boxes) == 0 {
		return imgData, nil
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image for annotation: %w", err)
	}

	dc := gg.NewContextForImage(img)
	dc.SetFontFace(basicfont.Face7x13)

	for _, box := range boxes {
		c := boxColor(box, cfg)
		dc.SetColor(c)
		dc.SetLineWidth(cfg.BorderWidth)
		dc.DrawRectangle(box.Rect.X, box.Rect.Y, box.Rect.Width, box.Rect.Height)
		dc.Stroke()

		if cfg.ShowLabels {
			drawLabel(dc, box, c, cfg)
		}
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, dc.Image())
	default:
		err = jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode annotated image: %w", err)
	}
	return buf.Bytes(), nil
}

// AnnotateForLLM annotates a screenshot with defaults tuned for vision
// consumption: every box labeled.
func AnnotateForLLM(imgData []byte, boxes []dom.OverlayBox) ([]byte, error) {
	return Annotate(imgData, boxes, DefaultAnnotationConfig())
}

// boxColor picks the stroke color by element kind, focus winning over
// everything.
func boxColor(box dom.OverlayBox, cfg AnnotationConfig) color.RGBA {
	if box.Focused {
		return cfg.FocusColor
	}
	switch box.TagName {
	case "a":
		return cfg.LinkColor
	case "button":
		return cfg.ButtonColor
	case "input", "textarea", "select":
		return cfg.InputColor
	}
	switch box.Role {
	case "link":
		return cfg.LinkColor
	case "button", "menuitem", "tab":
		return cfg.ButtonColor
	case "textbox", "combobox", "searchbox":
		return cfg.InputColor
	}
	return cfg.DefaultColor
}

// drawLabel paints the index in a filled tag just above the box, moved
// inside when the box touches the top edge.
func drawLabel(dc *gg.Context, box dom.OverlayBox, c color.RGBA, cfg AnnotationConfig) {
	label := strconv.Itoa(box.Index)
	w, h := dc.MeasureString(label)
	pad := 2.0

	x := box.Rect.X
	y := box.Rect.Y - h - 2*pad
	if y < 0 {
		y = box.Rect.Y + pad
	}

	dc.SetColor(c)
	dc.DrawRectangle(x, y, w+2*pad, h+2*pad)
	dc.Fill()

	dc.SetColor(cfg.LabelTextColor)
	dc.DrawString(label, x+pad, y+h+pad-1)
}
