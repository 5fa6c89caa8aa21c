// Package gesture drives a cumulative affine transform for an image viewer:
// fit-to-viewport, clamped pinch zoom, pan, two-finger rotation and
// double-tap reset, followed by bounds correction after every change.
package gesture

import (
	"image"
	"math"
	"sync"
	"time"

	"github.com/fogleman/gg"
)

type Config struct {
	MaxScaleFactor   float64       // maxScale >= minScale * MaxScaleFactor
	MinScaleHeadroom float64       // maxScale >= minScale + MinScaleHeadroom
	TouchSlop        float64       // pixels a single pointer travels before panning
	DoubleTapTimeout time.Duration // first tap up to second tap down
	DoubleTapSlop    float64       // max distance between the two taps
}

func DefaultConfig() Config {
	return Config{
		MaxScaleFactor:   4,
		MinScaleHeadroom: 0.5,
		TouchSlop:        8,
		DoubleTapTimeout: 300 * time.Millisecond,
		DoubleTapSlop:    100,
	}
}

// Content is anything with pixel bounds; image.Image satisfies it.
type Content interface {
	Bounds() image.Rectangle
}

// Engine is safe for concurrent use.
type Engine struct {
	mu  sync.Mutex
	cfg Config

	cw, ch float64 // content size; zero means no content
	vw, vh float64 // viewport size
	fitted bool

	m        gg.Matrix
	minScale float64
	maxScale float64

	tracker pointerTracker

	onChange func(gg.Matrix)
}

func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.MaxScaleFactor <= 0 {
		cfg.MaxScaleFactor = def.MaxScaleFactor
	}
	if cfg.MinScaleHeadroom < 0 {
		cfg.MinScaleHeadroom = def.MinScaleHeadroom
	}
	if cfg.TouchSlop <= 0 {
		cfg.TouchSlop = def.TouchSlop
	}
	if cfg.DoubleTapTimeout <= 0 {
		cfg.DoubleTapTimeout = def.DoubleTapTimeout
	}
	if cfg.DoubleTapSlop <= 0 {
		cfg.DoubleTapSlop = def.DoubleTapSlop
	}
	return &Engine{cfg: cfg, m: gg.Identity()}
}

// OnChange registers fn to receive the matrix after every transform update.
// fn runs with the engine lock held and must not call back into the engine.
func (e *Engine) OnChange(fn func(gg.Matrix)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

// SetContent installs new content and refits. nil clears it.
func (e *Engine) SetContent(c Content) {
	if c == nil {
		e.SetContentSize(0, 0)
		return
	}
	b := c.Bounds()
	e.SetContentSize(float64(b.Dx()), float64(b.Dy()))
}

func (e *Engine) SetContentSize(w, h float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w <= 0 || h <= 0 {
		e.cw, e.ch = 0, 0
		e.fitted = false
		e.m = gg.Identity()
		return
	}
	e.cw, e.ch = w, h
	e.resetToFitLocked()
}

// OnViewportResized refits to the new size. A zero size defers fitting until
// a real size arrives.
func (e *Engine) OnViewportResized(w, h float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vw, e.vh = w, h
	e.resetToFitLocked()
}

func (e *Engine) ResetToFit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetToFitLocked()
}

func (e *Engine) resetToFitLocked() {
	if e.cw <= 0 || e.ch <= 0 || e.vw <= 0 || e.vh <= 0 {
		e.fitted = false
		return
	}
	s := math.Min(e.vw/e.cw, e.vh/e.ch)
	e.m = gg.Scale(s, s).Multiply(gg.Translate((e.vw-e.cw*s)/2, (e.vh-e.ch*s)/2))
	e.minScale = s
	e.maxScale = math.Max(s*e.cfg.MaxScaleFactor, s+e.cfg.MinScaleHeadroom)
	e.fitted = true
	e.changedLocked()
}

func (e *Engine) ready() bool {
	return e.fitted
}

func (e *Engine) changedLocked() {
	if e.onChange != nil {
		e.onChange(e.m)
	}
}

// post applies op after the current transform.
func (e *Engine) post(op gg.Matrix) {
	e.m = e.m.Multiply(op)
}

func about(op gg.Matrix, px, py float64) gg.Matrix {
	return gg.Translate(-px, -py).Multiply(op).Multiply(gg.Translate(px, py))
}

// ─────────────────────────────────────────────────────────────
// Primitives
// ─────────────────────────────────────────────────────────────

// Pinch scales by factor about the focal point, keeping the resulting scale
// within [MinScale, MaxScale].
func (e *Engine) Pinch(factor, fx, fy float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pinchLocked(factor, fx, fy)
}

func (e *Engine) pinchLocked(factor, fx, fy float64) {
	if !e.ready() || factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	s := e.scaleLocked()
	if s == 0 {
		return
	}
	target := math.Max(e.minScale, math.Min(e.maxScale, s*factor))
	k := target / s
	e.post(about(gg.Scale(k, k), fx, fy))
	e.fixBoundsLocked()
	e.changedLocked()
}

// Pan translates by the pointer delta.
func (e *Engine) Pan(dx, dy float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.panLocked(dx, dy)
}

func (e *Engine) panLocked(dx, dy float64) {
	if !e.ready() {
		return
	}
	e.post(gg.Translate(dx, dy))
	e.fixBoundsLocked()
	e.changedLocked()
}

// Rotate turns the content by deg degrees about (cx, cy). Rotation is unbounded.
func (e *Engine) Rotate(deg, cx, cy float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rotateLocked(deg, cx, cy)
}

func (e *Engine) rotateLocked(deg, cx, cy float64) {
	if !e.ready() || deg == 0 {
		return
	}
	e.post(about(gg.Rotate(gg.Radians(deg)), cx, cy))
	e.fixBoundsLocked()
	e.changedLocked()
}

// FixBounds centers each axis that fits in the viewport and removes any gap
// on axes that do not.
func (e *Engine) FixBounds() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready() {
		return
	}
	e.fixBoundsLocked()
	e.changedLocked()
}

func (e *Engine) fixBoundsLocked() {
	minX, minY, maxX, maxY := e.contentRectLocked()
	e.post(gg.Translate(axisCorrection(minX, maxX, e.vw), axisCorrection(minY, maxY, e.vh)))
}

func axisCorrection(lo, hi, view float64) float64 {
	switch extent := hi - lo; {
	case extent <= view:
		return (view-extent)/2 - lo
	case lo > 0:
		return -lo
	case hi < view:
		return view - hi
	}
	return 0
}

// ─────────────────────────────────────────────────────────────
// Read-only accessors
// ─────────────────────────────────────────────────────────────

func (e *Engine) Matrix() gg.Matrix {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.m
}

// Scale is the length of the transformed x basis vector.
func (e *Engine) Scale() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scaleLocked()
}

func (e *Engine) scaleLocked() float64 {
	return math.Hypot(e.m.XX, e.m.YX)
}

// RotationDegrees is the current rotation angle in (-180, 180].
func (e *Engine) RotationDegrees() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gg.Degrees(math.Atan2(e.m.YX, e.m.XX))
}

func (e *Engine) MinScale() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.minScale
}

func (e *Engine) MaxScale() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxScale
}

// Ready reports whether content and a viewport are both known.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready()
}

// ContentRect returns the axis-aligned bounds of the transformed content.
func (e *Engine) ContentRect() (minX, minY, maxX, maxY float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.contentRectLocked()
}

func (e *Engine) contentRectLocked() (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range [][2]float64{{0, 0}, {e.cw, 0}, {0, e.ch}, {e.cw, e.ch}} {
		x, y := e.m.TransformPoint(p[0], p[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return minX, minY, maxX, maxY
}
