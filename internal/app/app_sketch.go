package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"blockpad/internal/editor"
	"blockpad/internal/sketch"
)

// ============================================================
// Sketch Pad
// ============================================================

func (a *App) SketchPointerDown(x, y, timeMs float64) {
	a.sketches.Down(x, y, eventTime(timeMs))
}

func (a *App) SketchPointerMove(x, y, timeMs float64) {
	a.sketches.Move(x, y, eventTime(timeMs))
}

// SketchPointerMoveBatch records coalesced pointer events in order.
func (a *App) SketchPointerMoveBatch(samples []SketchSample) {
	batch := make([]sketch.Sample, len(samples))
	for i, s := range samples {
		batch[i] = sketch.Sample{X: s.X, Y: s.Y, T: eventTime(s.TimeMs)}
	}
	a.sketches.MoveBatch(batch)
}

func (a *App) SketchPointerUp() {
	a.sketches.Up()
}

func (a *App) SketchCancel() {
	a.sketches.Cancel()
}

func (a *App) SketchClear() {
	a.SketchStopReplay()
	a.sketches.Clear()
}

func (a *App) SketchDurationMs() int64 {
	return a.sketches.Snapshot().Duration().Milliseconds()
}

// SketchStartReplay replays the recorded strokes at their original timing,
// emitting one sketch:frame per tick and sketch:replay-done at the end.
// Input is ignored while the replay runs.
func (a *App) SketchStartReplay(width, height, fps int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("replay: invalid size %dx%d", width, height)
	}
	a.SketchStopReplay()

	s := a.sketches.Snapshot()
	ctx, cancel := context.WithCancel(a.ctx)
	a.replayMu.Lock()
	a.replayCancel = cancel
	a.replayMu.Unlock()
	a.sketches.SetReplaying(true)

	go func() {
		defer a.sketches.SetReplaying(false)
		err := sketch.Play(ctx, s, width, height, fps, a.sketchStyle, func(elapsed time.Duration, img image.Image) {
			encoded, err := encodePNG(img)
			if err != nil {
				log.Printf("app: sketch frame: %v", err)
				return
			}
			wailsRuntime.EventsEmit(a.ctx, "sketch:frame", SketchFrame{
				ElapsedMs: elapsed.Milliseconds(),
				PNG:       encoded,
			})
		})
		wailsRuntime.EventsEmit(a.ctx, "sketch:replay-done", map[string]bool{
			"completed": !errors.Is(err, context.Canceled),
		})
	}()
	return nil
}

func (a *App) SketchStopReplay() {
	a.replayMu.Lock()
	cancel := a.replayCancel
	a.replayCancel = nil
	a.replayMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// SketchExportPNG renders every stroke and returns a base64 PNG.
func (a *App) SketchExportPNG(width, height int) (string, error) {
	var buf bytes.Buffer
	if err := sketch.EncodePNG(&buf, a.sketches.Snapshot(), width, height, a.sketchStyle); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// SketchInsertIntoDocument saves the sketch under the data directory and
// adds it to the document as a single-image grid.
func (a *App) SketchInsertIntoDocument(docID string, width, height int) (string, error) {
	dir := filepath.Join(a.cfg.DataDir, "sketches")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create sketch dir: %w", err)
	}
	path := filepath.Join(dir, uuid.New().String()+".png")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create sketch file: %w", err)
	}
	err = sketch.EncodePNG(f, a.sketches.Snapshot(), width, height, a.sketchStyle)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return a.edit(docID, func(ed *editor.Editor) (string, error) {
		blockID, _ := ed.InsertImageRefs([]string{path})
		return blockID, nil
	})
}

func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
