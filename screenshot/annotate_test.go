package screenshot

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/anxuanzi/domlens/dom"
)

func blankPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture image: %v", err)
	}
	return buf.Bytes()
}

func TestAnnotateDrawsBoxes(t *testing.T) {
	src := blankPNG(t, 400, 300)
	boxes := []dom.OverlayBox{
		{Index: 0, Rect: dom.ViewportRect{X: 50, Y: 50, Width: 100, Height: 40}, TagName: "button"},
		{Index: 1, Rect: dom.ViewportRect{X: 200, Y: 120, Width: 80, Height: 30}, TagName: "a", Focused: true},
	}

	out, err := Annotate(src, boxes, DefaultAnnotationConfig())
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if bytes.Equal(out, src) {
		t.Error("annotated image should differ from the source")
	}

	img, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode annotated image: %v", err)
	}
	if format != "png" {
		t.Errorf("format = %q, want png preserved", format)
	}
	if got := img.Bounds(); got.Dx() != 400 || got.Dy() != 300 {
		t.Errorf("dimensions changed: %v", got)
	}

	// The stroke should have left non-white pixels along the first box
	// border.
	r, g, b, _ := img.At(100, 50).RGBA()
	if r == 0xffff && g == 0xffff && b == 0xffff {
		t.Error("expected a stroked border pixel at the box top edge")
	}
}

func TestAnnotateNoBoxes(t *testing.T) {
	src := blankPNG(t, 100, 100)
	out, err := Annotate(src, nil, DefaultAnnotationConfig())
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if !bytes.Equal(out, src) {
		t.Error("no boxes should leave the image untouched")
	}
}

func TestAnnotateRejectsGarbage(t *testing.T) {
	boxes := []dom.OverlayBox{{Index: 0, Rect: dom.ViewportRect{X: 1, Y: 1, Width: 5, Height: 5}}}
	if _, err := Annotate([]byte("not an image"), boxes, DefaultAnnotationConfig()); err == nil {
		t.Error("garbage input should error")
	}
}
