package app

import (
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fogleman/gg"

	"blockpad/internal/config"
	"blockpad/internal/domain"
	"blockpad/internal/gesture"
	"blockpad/internal/richtext"
	"blockpad/internal/service"
	"blockpad/internal/sketch"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvConfigPath, path)
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	dataDir := t.TempDir()
	writeConfig(t, "data_dir: "+dataDir+"\nautosave:\n  schedule: \"\"\n")

	b, err := openBackend(context.Background(), service.NopEmitter{})
	if err != nil {
		t.Fatalf("openBackend: %v", err)
	}
	t.Cleanup(b.Close)
	return &App{
		ctx:         context.Background(),
		cfg:         b.cfg,
		store:       b.store,
		docs:        b.docs,
		viewer:      gesture.NewEngine(b.cfg.Viewer.Gesture()),
		sketches:    sketch.NewRecorder(),
		sketchStyle: b.cfg.Sketch.Style(),
	}
}

// ─────────────────────────────────────────────────────────────
// Bootstrap
// ─────────────────────────────────────────────────────────────

func TestOpenBackend_UsesConfiguredDataDir(t *testing.T) {
	a := newTestApp(t)
	if _, err := os.Stat(a.cfg.DatabasePath()); err != nil {
		t.Fatalf("expected sqlite database in data dir: %v", err)
	}
	if a.cfg.Autosave.Schedule != "" {
		t.Errorf("expected overridden autosave schedule, got %q", a.cfg.Autosave.Schedule)
	}
}

func TestOpenBackend_RejectsInvalidConfig(t *testing.T) {
	writeConfig(t, "data_dir: "+t.TempDir()+"\nstorage:\n  driver: oracle\n")
	if _, err := openBackend(context.Background(), service.NopEmitter{}); err == nil {
		t.Fatal("expected invalid driver to be rejected")
	}
}

func TestStoragePassword_Order(t *testing.T) {
	t.Setenv("BLOCKPAD_SECRET_STORAGE_PASSWORD", "from-secret")
	if got := storagePassword(config.StorageConfig{}); got != "from-secret" {
		t.Errorf("expected secret store password, got %q", got)
	}

	t.Setenv("BLOCKPAD_DB_PW", "from-env")
	if got := storagePassword(config.StorageConfig{PasswordEnv: "BLOCKPAD_DB_PW"}); got != "from-env" {
		t.Errorf("configured env var should win, got %q", got)
	}
}

// ─────────────────────────────────────────────────────────────
// Document bindings
// ─────────────────────────────────────────────────────────────

func TestDocumentBindings(t *testing.T) {
	a := newTestApp(t)

	view, err := a.CreateDocument("Trip")
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	first := view.Blocks[0].Block.BlockID()

	if err := a.SetText(view.ID, first, richtext.Plain("Day one")); err != nil {
		t.Fatalf("SetText: %v", err)
	}
	linkID, err := a.InsertLink(view.ID, "https://youtu.be/dQw4w9WgXcQ")
	if err != nil || linkID == "" {
		t.Fatalf("InsertLink: %q %v", linkID, err)
	}
	if _, err := a.InsertLink(view.ID, "https://example.com"); err == nil {
		t.Error("expected non-video link to be rejected")
	}
	if err := a.ToggleStyle(view.ID, first, "strike", 0, 1); err == nil {
		t.Error("expected unknown style to be rejected")
	}

	ok, err := a.Undo(view.ID)
	if err != nil || !ok {
		t.Fatalf("Undo: %v %v", ok, err)
	}
	got, _ := a.GetDocument(view.ID)
	for _, b := range got.Blocks {
		if b.Block.BlockID() == linkID {
			t.Fatal("expected undo to remove the link block")
		}
	}
	if ok, _ := a.Redo(view.ID); !ok {
		t.Error("expected redo to succeed")
	}

	if err := a.SaveDocument(view.ID); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	docs, err := a.ListDocuments()
	if err != nil || len(docs) != 1 || docs[0].Title != "Trip" {
		t.Fatalf("ListDocuments: %+v %v", docs, err)
	}
}

func TestExportMarkup_WritesUnderDataDir(t *testing.T) {
	a := newTestApp(t)
	view, _ := a.CreateDocument("")

	path, err := a.ExportMarkup(view.ID)
	if err != nil {
		t.Fatalf("ExportMarkup: %v", err)
	}
	if !strings.HasPrefix(path, a.cfg.ExportDir()) {
		t.Errorf("export %q outside %q", path, a.cfg.ExportDir())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "class='editor'") {
		t.Errorf("unexpected export %q", data)
	}
}

// ─────────────────────────────────────────────────────────────
// Viewer and sketch
// ─────────────────────────────────────────────────────────────

func TestMatrixView_CanvasOrder(t *testing.T) {
	m := gg.Matrix{XX: 1, YX: 2, XY: 3, YY: 4, X0: 5, Y0: 6}
	v := matrixView(m)
	if v.A != 1 || v.B != 2 || v.C != 3 || v.D != 4 || v.E != 5 || v.F != 6 {
		t.Errorf("unexpected canvas order %+v", v)
	}
}

func TestViewerFrame(t *testing.T) {
	a := newTestApp(t)
	if frame, err := a.ViewerFrame(); err != nil || frame != "" {
		t.Fatalf("expected empty frame without an image, got %q %v", frame, err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.White)
		}
	}
	a.viewerImg = img
	a.viewer.SetContent(img)
	a.viewer.OnViewportResized(80, 40)

	frame, err := a.ViewerFrame()
	if err != nil || frame == "" {
		t.Fatalf("ViewerFrame: %q %v", frame, err)
	}
	if _, err := base64.StdEncoding.DecodeString(frame); err != nil {
		t.Errorf("frame is not base64: %v", err)
	}
	if s := a.ViewerMatrix().Scale; s <= 0 {
		t.Errorf("expected fitted scale, got %v", s)
	}
}

func TestSketchInsertIntoDocument(t *testing.T) {
	a := newTestApp(t)
	view, _ := a.CreateDocument("")

	a.SketchPointerDown(10, 10, 0)
	a.SketchPointerMoveBatch([]SketchSample{{X: 20, Y: 20, TimeMs: 16}, {X: 30, Y: 25, TimeMs: 32}})
	a.SketchPointerUp()
	if d := a.SketchDurationMs(); d != 32 {
		t.Errorf("expected 32ms sketch, got %d", d)
	}

	blockID, err := a.SketchInsertIntoDocument(view.ID, 64, 64)
	if err != nil || blockID == "" {
		t.Fatalf("SketchInsertIntoDocument: %q %v", blockID, err)
	}
	got, _ := a.GetDocument(view.ID)
	var grid domain.ImageGridBlock
	for _, b := range got.Blocks {
		if g, ok := b.Block.(domain.ImageGridBlock); ok && g.ID == blockID {
			grid = g
		}
	}
	if len(grid.Images) != 1 {
		t.Fatalf("expected single image grid, got %+v", grid)
	}
	if _, err := os.Stat(grid.Images[0].Ref); err != nil {
		t.Errorf("sketch file missing: %v", err)
	}
}
