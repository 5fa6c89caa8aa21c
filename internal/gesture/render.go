package gesture

import (
	"image"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Render draws src into dst through the current transform. Nothing is drawn
// until the engine has both content and a viewport.
func (e *Engine) Render(dst draw.Image, src image.Image) {
	e.mu.Lock()
	m, ok := e.m, e.ready()
	e.mu.Unlock()
	if !ok {
		return
	}
	b := src.Bounds()
	m = gg.Translate(-float64(b.Min.X), -float64(b.Min.Y)).Multiply(m)
	draw.BiLinear.Transform(dst, toAff3(m), src, b, draw.Over, nil)
}

func toAff3(m gg.Matrix) f64.Aff3 {
	return f64.Aff3{m.XX, m.XY, m.X0, m.YX, m.YY, m.Y0}
}

// Frame renders src into a new RGBA image the size of the viewport.
func (e *Engine) Frame(src image.Image) *image.RGBA {
	e.mu.Lock()
	w, h := int(e.vw), int(e.vh)
	e.mu.Unlock()
	if w <= 0 || h <= 0 {
		return nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	e.Render(dst, src)
	return dst
}
