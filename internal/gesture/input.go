package gesture

import (
	"math"
	"slices"
	"time"

	"github.com/fogleman/gg"
)

type pointer struct {
	id   int
	x, y float64
}

// pointerTracker holds recognizer state between pointer events.
type pointerTracker struct {
	pointers []pointer // in arrival order

	prevSpan   float64
	lastAngle  float64
	angleValid bool

	downX, downY float64
	lastX, lastY float64
	panning      bool
	multi        bool // more than one pointer was down during this gesture
	consumed     bool // this gesture already fired a double tap

	tapValid   bool
	tapX, tapY float64
	tapUp      time.Duration
}

func (p *pointerTracker) index(id int) int {
	return slices.IndexFunc(p.pointers, func(pt pointer) bool { return pt.id == id })
}

// pair returns the first two pointers' span, angle in degrees and midpoint.
func (p *pointerTracker) pair() (span, angle, mx, my float64) {
	a, b := p.pointers[0], p.pointers[1]
	dx, dy := b.x-a.x, b.y-a.y
	return math.Hypot(dx, dy), gg.Degrees(math.Atan2(dy, dx)), (a.x + b.x) / 2, (a.y + b.y) / 2
}

func (p *pointerTracker) rebaseline() {
	p.prevSpan = 0
	p.angleValid = false
	if len(p.pointers) >= 2 {
		p.prevSpan, p.lastAngle, _, _ = p.pair()
		p.angleValid = true
	}
}

// OnPointerDown registers a pointer. t is a monotonic event timestamp.
func (e *Engine) OnPointerDown(id int, x, y float64, t time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tr := &e.tracker
	if tr.index(id) >= 0 {
		return
	}

	if len(tr.pointers) == 0 {
		tr.downX, tr.downY = x, y
		tr.lastX, tr.lastY = x, y
		tr.panning, tr.multi, tr.consumed = false, false, false
		if tr.tapValid && t-tr.tapUp <= e.cfg.DoubleTapTimeout &&
			math.Hypot(x-tr.tapX, y-tr.tapY) <= e.cfg.DoubleTapSlop {
			tr.tapValid = false
			tr.consumed = true
			e.resetToFitLocked()
		}
	} else {
		tr.multi = true
		tr.panning = false
	}
	tr.pointers = append(tr.pointers, pointer{id: id, x: x, y: y})
	tr.rebaseline()
}

func (e *Engine) OnPointerMove(id int, x, y float64, t time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tr := &e.tracker
	i := tr.index(id)
	if i < 0 {
		return
	}
	tr.pointers[i].x, tr.pointers[i].y = x, y

	if len(tr.pointers) >= 2 {
		if i > 1 {
			return
		}
		span, angle, mx, my := tr.pair()
		if tr.prevSpan > 0 && span > 0 {
			e.pinchLocked(span/tr.prevSpan, mx, my)
		}
		tr.prevSpan = span
		if tr.angleValid {
			e.rotateLocked(normalizeDegrees(angle-tr.lastAngle), mx, my)
		}
		tr.lastAngle, tr.angleValid = angle, true
		return
	}

	if tr.multi || tr.consumed {
		return
	}
	if !tr.panning {
		if math.Hypot(x-tr.downX, y-tr.downY) <= e.cfg.TouchSlop {
			return
		}
		tr.panning = true
	}
	e.panLocked(x-tr.lastX, y-tr.lastY)
	tr.lastX, tr.lastY = x, y
}

func (e *Engine) OnPointerUp(id int, x, y float64, t time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tr := &e.tracker
	i := tr.index(id)
	if i < 0 {
		return
	}
	tr.pointers = slices.Delete(tr.pointers, i, i+1)
	tr.rebaseline()
	tr.angleValid = false

	if len(tr.pointers) > 0 {
		return
	}
	if !tr.multi && !tr.panning && !tr.consumed {
		tr.tapValid = true
		tr.tapX, tr.tapY, tr.tapUp = x, y, t
	} else {
		tr.tapValid = false
	}
}

// OnCancel drops every tracked pointer and pending tap.
func (e *Engine) OnCancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracker = pointerTracker{}
}

// normalizeDegrees maps d into (-180, 180].
func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}
