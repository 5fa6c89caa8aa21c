package sketch

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"time"

	"github.com/fogleman/gg"
)

// Replayer reveals a sketch incrementally. Advancing forward only appends
// the newly due points; moving backwards restarts from the beginning.
type Replayer struct {
	sketch  Sketch
	si, pi  int
	last    time.Duration
	visible [][]Point
}

func NewReplayer(s Sketch) *Replayer {
	return &Replayer{sketch: s}
}

func (r *Replayer) reset() {
	r.si, r.pi, r.last = 0, 0, 0
	r.visible = nil
}

// Advance reveals every point due at or before elapsed.
func (r *Replayer) Advance(elapsed time.Duration) {
	if elapsed < r.last {
		r.reset()
	}
	r.last = elapsed
	for r.si < len(r.sketch.Strokes) {
		st := r.sketch.Strokes[r.si]
		if st.Start > elapsed {
			return
		}
		if r.pi == 0 {
			r.visible = append(r.visible, nil)
		}
		cur := len(r.visible) - 1
		for r.pi < len(st.Points) && st.Start+st.Points[r.pi].T <= elapsed {
			r.visible[cur] = append(r.visible[cur], st.Points[r.pi])
			r.pi++
		}
		if r.pi < len(st.Points) {
			return
		}
		r.si, r.pi = r.si+1, 0
	}
}

// Done reports whether every stroke has been fully revealed.
func (r *Replayer) Done() bool {
	return r.si >= len(r.sketch.Strokes)
}

// Visible returns the revealed points per stroke. The slices are shared.
func (r *Replayer) Visible() [][]Point {
	return r.visible
}

// ─────────────────────────────────────────────────────────────
// Rendering
// ─────────────────────────────────────────────────────────────

type Style struct {
	Width      float64
	Color      color.Color
	Background color.Color // nil leaves the frame transparent
}

func DefaultStyle() Style {
	return Style{Width: 6, Color: color.Black}
}

// ParseColor accepts #rgb and #rrggbb hex colors.
func ParseColor(hex string) (color.Color, error) {
	var r, g, b uint8
	switch len(hex) {
	case 4:
		if _, err := fmt.Sscanf(hex, "#%1x%1x%1x", &r, &g, &b); err != nil {
			return nil, fmt.Errorf("parse color %q: %w", hex, err)
		}
		r, g, b = r*17, g*17, b*17
	case 7:
		if _, err := fmt.Sscanf(hex, "#%2x%2x%2x", &r, &g, &b); err != nil {
			return nil, fmt.Errorf("parse color %q: %w", hex, err)
		}
	default:
		return nil, fmt.Errorf("parse color %q: want #rgb or #rrggbb", hex)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Draw strokes each path as quadratic segments through sample midpoints.
func Draw(dc *gg.Context, strokes [][]Point, style Style) {
	dc.SetLineWidth(style.Width)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
	dc.SetColor(style.Color)
	for _, pts := range strokes {
		switch len(pts) {
		case 0:
			continue
		case 1:
			dc.DrawCircle(pts[0].X, pts[0].Y, style.Width/2)
			dc.Fill()
			continue
		}
		dc.MoveTo(pts[0].X, pts[0].Y)
		for i := 1; i < len(pts); i++ {
			prev, p := pts[i-1], pts[i]
			dc.QuadraticTo(prev.X, prev.Y, (prev.X+p.X)/2, (prev.Y+p.Y)/2)
		}
		last := pts[len(pts)-1]
		dc.LineTo(last.X, last.Y)
		dc.Stroke()
	}
}

func newContext(w, h int, style Style) *gg.Context {
	dc := gg.NewContext(w, h)
	if style.Background != nil {
		dc.SetColor(style.Background)
		dc.Clear()
	}
	return dc
}

// Render rasterizes the sketch as it appears at elapsed.
func Render(s Sketch, w, h int, elapsed time.Duration, style Style) image.Image {
	r := NewReplayer(s)
	r.Advance(elapsed)
	dc := newContext(w, h, style)
	Draw(dc, r.Visible(), style)
	return dc.Image()
}

// RenderAll rasterizes the complete sketch.
func RenderAll(s Sketch, w, h int, style Style) image.Image {
	return Render(s, w, h, s.Duration(), style)
}

// EncodePNG writes the complete sketch as a PNG.
func EncodePNG(out io.Writer, s Sketch, w, h int, style Style) error {
	dc := newContext(w, h, style)
	Draw(dc, RenderPaths(s), style)
	if err := dc.EncodePNG(out); err != nil {
		return fmt.Errorf("encode sketch png: %w", err)
	}
	return nil
}

// RenderPaths returns every point of every stroke, ready for Draw.
func RenderPaths(s Sketch) [][]Point {
	out := make([][]Point, 0, len(s.Strokes))
	for _, st := range s.Strokes {
		out = append(out, st.Points)
	}
	return out
}

// Play replays s in real time at fps frames per second, calling frame with
// each rendered image. It returns nil once the replay completes.
func Play(ctx context.Context, s Sketch, w, h, fps int, style Style, frame func(elapsed time.Duration, img image.Image)) error {
	if fps <= 0 {
		fps = 30
	}
	r := NewReplayer(s)
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	start := time.Now()
	for {
		elapsed := time.Since(start)
		r.Advance(elapsed)
		dc := newContext(w, h, style)
		Draw(dc, r.Visible(), style)
		frame(elapsed, dc.Image())
		if r.Done() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
