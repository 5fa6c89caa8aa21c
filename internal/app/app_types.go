package app

import (
	"time"

	"github.com/fogleman/gg"
)

// MatrixView is the viewer transform as the canvas setTransform(a, b, c, d, e, f)
// arguments.
type MatrixView struct {
	A     float64 `json:"a"`
	B     float64 `json:"b"`
	C     float64 `json:"c"`
	D     float64 `json:"d"`
	E     float64 `json:"e"`
	F     float64 `json:"f"`
	Scale float64 `json:"scale"`
}

func matrixView(m gg.Matrix) MatrixView {
	return MatrixView{A: m.XX, B: m.YX, C: m.XY, D: m.YY, E: m.X0, F: m.Y0}
}

// SketchSample is one coalesced pointer sample from the frontend.
type SketchSample struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	TimeMs float64 `json:"timeMs"`
}

// SketchFrame is the payload of sketch:frame.
type SketchFrame struct {
	ElapsedMs int64  `json:"elapsedMs"`
	PNG       string `json:"png"` // base64
}

// eventTime converts a DOM event timestamp in milliseconds.
func eventTime(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
