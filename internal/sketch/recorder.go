// Package sketch records freehand strokes with timing and replays them
// progressively as raster frames.
package sketch

import (
	"sync"
	"time"
)

// Point is a stroke sample. T is relative to the start of its stroke.
type Point struct {
	X float64       `json:"x"`
	Y float64       `json:"y"`
	T time.Duration `json:"t"`
}

// Stroke is one pointer-down to pointer-up path. Start is relative to the
// first stroke of the sketch.
type Stroke struct {
	Start  time.Duration `json:"start"`
	Points []Point       `json:"points"`
}

// Sketch is an immutable recording.
type Sketch struct {
	Strokes []Stroke `json:"strokes"`
}

// Duration is the time at which the last recorded point appears.
func (s Sketch) Duration() time.Duration {
	var d time.Duration
	for _, st := range s.Strokes {
		if n := len(st.Points); n > 0 {
			d = max(d, st.Start+st.Points[n-1].T)
		}
	}
	return d
}

// Sample is a raw pointer sample with an absolute timestamp.
type Sample struct {
	X, Y float64
	T    time.Duration
}

type Recorder struct {
	mu        sync.Mutex
	strokes   []Stroke
	cur       *Stroke
	curAbs    time.Duration // absolute start of the current stroke
	origin    time.Duration // absolute start of the first stroke
	started   bool
	replaying bool
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// SetReplaying blocks input while a replay is shown.
func (r *Recorder) SetReplaying(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaying = on
	if on {
		r.cur = nil
	}
}

func (r *Recorder) Down(x, y float64, t time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replaying {
		return
	}
	if !r.started {
		r.origin, r.started = t, true
	}
	r.finishLocked()
	r.curAbs = t
	r.cur = &Stroke{Start: t - r.origin, Points: []Point{{X: x, Y: y}}}
}

func (r *Recorder) Move(x, y float64, t time.Duration) {
	r.MoveBatch([]Sample{{X: x, Y: y, T: t}})
}

// MoveBatch appends coalesced samples in order.
func (r *Recorder) MoveBatch(samples []Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replaying || r.cur == nil {
		return
	}
	for _, s := range samples {
		t := max(s.T-r.curAbs, r.cur.Points[len(r.cur.Points)-1].T)
		r.cur.Points = append(r.cur.Points, Point{X: s.X, Y: s.Y, T: t})
	}
}

func (r *Recorder) Up() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishLocked()
}

// Cancel discards the stroke in progress.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cur = nil
	if len(r.strokes) == 0 {
		r.started = false
	}
}

func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strokes = nil
	r.cur = nil
	r.started = false
}

func (r *Recorder) finishLocked() {
	if r.cur != nil {
		r.strokes = append(r.strokes, *r.cur)
		r.cur = nil
	}
}

// Snapshot returns the finished strokes, plus the one in progress.
func (r *Recorder) Snapshot() Sketch {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := Sketch{Strokes: make([]Stroke, 0, len(r.strokes)+1)}
	for _, s := range r.strokes {
		out.Strokes = append(out.Strokes, Stroke{Start: s.Start, Points: append([]Point(nil), s.Points...)})
	}
	if r.cur != nil {
		out.Strokes = append(out.Strokes, Stroke{Start: r.cur.Start, Points: append([]Point(nil), r.cur.Points...)})
	}
	return out
}
