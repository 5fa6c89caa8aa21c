package app

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/webp"
)

// ============================================================
// Image Viewer
// ============================================================

// ViewerLoadImage decodes a local image and fits it to the viewport.
func (a *App) ViewerLoadImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	a.viewerMu.Lock()
	a.viewerImg = img
	a.viewerMu.Unlock()
	a.viewer.SetContent(img)
	return nil
}

func (a *App) ViewerResize(width, height float64) {
	a.viewer.OnViewportResized(width, height)
}

func (a *App) ViewerPointerDown(id int, x, y, timeMs float64) {
	a.viewer.OnPointerDown(id, x, y, eventTime(timeMs))
}

func (a *App) ViewerPointerMove(id int, x, y, timeMs float64) {
	a.viewer.OnPointerMove(id, x, y, eventTime(timeMs))
}

func (a *App) ViewerPointerUp(id int, x, y, timeMs float64) {
	a.viewer.OnPointerUp(id, x, y, eventTime(timeMs))
}

func (a *App) ViewerCancel() {
	a.viewer.OnCancel()
}

// ViewerZoom applies a wheel or trackpad zoom around (fx, fy).
func (a *App) ViewerZoom(factor, fx, fy float64) {
	a.viewer.Pinch(factor, fx, fy)
}

func (a *App) ViewerPan(dx, dy float64) {
	a.viewer.Pan(dx, dy)
}

func (a *App) ViewerReset() {
	a.viewer.ResetToFit()
}

func (a *App) ViewerMatrix() MatrixView {
	v := matrixView(a.viewer.Matrix())
	v.Scale = a.viewer.Scale()
	return v
}

// ViewerFrame renders the loaded image through the current transform as a
// base64 PNG the size of the viewport. It returns "" until both are known.
func (a *App) ViewerFrame() (string, error) {
	a.viewerMu.Lock()
	img := a.viewerImg
	a.viewerMu.Unlock()
	if img == nil {
		return "", nil
	}
	frame := a.viewer.Frame(img)
	if frame == nil {
		return "", nil
	}
	encoded, err := encodePNG(frame)
	if err != nil {
		return "", fmt.Errorf("encode frame: %w", err)
	}
	return encoded, nil
}
