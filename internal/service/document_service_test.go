package service_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"blockpad/internal/domain"
	"blockpad/internal/editor"
	"blockpad/internal/logship"
	"blockpad/internal/richtext"
	"blockpad/internal/service"
)

// ─────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────

type memStore struct {
	mu      sync.Mutex
	docs    map[string]domain.SavedDocument
	updates int
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]domain.SavedDocument)}
}

func (m *memStore) CreateDocument(d *domain.SavedDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	m.docs[d.ID] = *d
	return nil
}

func (m *memStore) GetDocument(id string) (*domain.SavedDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &d, nil
}

func (m *memStore) ListDocuments() ([]domain.SavedDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SavedDocument
	for _, d := range m.docs {
		out = append(out, d)
	}
	return out, nil
}

func (m *memStore) UpdateDocument(d *domain.SavedDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.UpdatedAt = time.Now()
	m.docs[d.ID] = *d
	m.updates++
	return nil
}

func (m *memStore) DeleteDocument(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *memStore) markup(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[id].Markup
}

func (m *memStore) updateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

type recordingSink struct {
	mu      sync.Mutex
	entries []logship.Entry
}

func (r *recordingSink) SendLog(e logship.Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return true
}

func writeHello(ed *editor.Editor) error {
	id := ed.State().Blocks[0].BlockID()
	return ed.SetText(id, richtext.Text{Content: "hello"})
}

// ─────────────────────────────────────────────────────────────
// DocumentService
// ─────────────────────────────────────────────────────────────

func TestDocumentService_CreateEditSave(t *testing.T) {
	store := newMemStore()
	emitter := &service.MockEmitter{}
	sink := &recordingSink{}
	svc := service.NewDocumentService(store, emitter, service.DocumentServiceOptions{Logs: sink})
	ctx := context.Background()

	view, err := svc.Create(ctx, "Notes")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if view.Dirty || view.CanUndo {
		t.Fatalf("fresh document should be clean with nothing to undo: %+v", view)
	}

	if err := svc.Edit(ctx, view.ID, writeHello); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if n := emitter.Count("document:changed"); n != 1 {
		t.Fatalf("expected 1 change event, got %d", n)
	}
	view, _ = svc.View(view.ID)
	if !view.Dirty || !view.CanUndo {
		t.Fatalf("expected dirty undoable document: %+v", view)
	}

	if err := svc.Save(ctx, view.ID); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.Contains(store.markup(view.ID), "hello") {
		t.Errorf("expected stored markup to contain text, got %q", store.markup(view.ID))
	}
	if n := emitter.Count("document:saved"); n != 1 {
		t.Errorf("expected 1 saved event, got %d", n)
	}
	view, _ = svc.View(view.ID)
	if view.Dirty {
		t.Error("expected clean document after save")
	}
	if len(sink.entries) < 2 {
		t.Errorf("expected create and save to be shipped, got %d entries", len(sink.entries))
	}
}

func TestDocumentService_EditWithoutChangeEmitsNothing(t *testing.T) {
	emitter := &service.MockEmitter{}
	svc := service.NewDocumentService(newMemStore(), emitter, service.DocumentServiceOptions{})
	ctx := context.Background()
	view, _ := svc.Create(ctx, "")

	wantErr := errors.New("boom")
	err := svc.Edit(ctx, view.ID, func(ed *editor.Editor) error {
		ed.Undo() // nothing to undo
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if n := emitter.Count("document:changed"); n != 0 {
		t.Errorf("expected no change events, got %d", n)
	}
}

func TestDocumentService_UnchangedTextKeepsDocumentClean(t *testing.T) {
	emitter := &service.MockEmitter{}
	svc := service.NewDocumentService(newMemStore(), emitter, service.DocumentServiceOptions{})
	ctx := context.Background()
	view, _ := svc.Create(ctx, "")
	svc.Edit(ctx, view.ID, writeHello)
	if err := svc.Save(ctx, view.ID); err != nil {
		t.Fatalf("Save: %v", err)
	}

	before := emitter.Count("document:changed")
	if err := svc.Edit(ctx, view.ID, writeHello); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if n := emitter.Count("document:changed"); n != before {
		t.Errorf("expected no change event for identical text, got %d new", n-before)
	}
	view, _ = svc.View(view.ID)
	if view.Dirty {
		t.Error("expected document to stay clean")
	}
}

func TestDocumentService_OpenReloadsFromStore(t *testing.T) {
	store := newMemStore()
	svc := service.NewDocumentService(store, nil, service.DocumentServiceOptions{})
	ctx := context.Background()

	view, _ := svc.Create(ctx, "t")
	svc.Edit(ctx, view.ID, writeHello)
	if err := svc.Close(ctx, view.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := svc.View(view.ID); !errors.Is(err, service.ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen after close, got %v", err)
	}

	reopened, err := svc.Open(ctx, view.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if reopened.CanUndo {
		t.Error("loaded document must not be undoable")
	}
	if !strings.Contains(reopened.Markup, "hello") {
		t.Errorf("expected saved text after reopen, got %q", reopened.Markup)
	}
}

func TestDocumentService_ImportIsUndoable(t *testing.T) {
	svc := service.NewDocumentService(newMemStore(), nil, service.DocumentServiceOptions{})
	ctx := context.Background()
	view, _ := svc.Create(ctx, "t")

	markup := "<div class='editor'><div class='text'><p>imported</p></div></div>"
	if err := svc.ImportMarkup(ctx, view.ID, markup); err != nil {
		t.Fatal(err)
	}
	view, _ = svc.View(view.ID)
	if !view.CanUndo || !strings.Contains(view.Markup, "imported") {
		t.Fatalf("unexpected state after import: %+v", view)
	}

	svc.Edit(ctx, view.ID, func(ed *editor.Editor) error {
		ed.Undo()
		return nil
	})
	view, _ = svc.View(view.ID)
	if strings.Contains(view.Markup, "imported") {
		t.Error("expected undo to revert the import")
	}
}

func TestDocumentService_ReloadIgnoresOwnExport(t *testing.T) {
	dir := t.TempDir()
	emitter := &service.MockEmitter{}
	svc := service.NewDocumentService(newMemStore(), emitter, service.DocumentServiceOptions{ExportDir: dir})
	ctx := context.Background()
	view, _ := svc.Create(ctx, "t")
	svc.Edit(ctx, view.ID, writeHello)

	path, err := svc.ExportMarkup(ctx, view.ID)
	if err != nil {
		t.Fatalf("ExportMarkup: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	before := emitter.Count("document:changed")
	if err := svc.ReloadFromFile(ctx, view.ID, string(data)); err != nil {
		t.Fatal(err)
	}
	if emitter.Count("document:changed") != before {
		t.Error("reloading identical content should be a no-op")
	}
	view, _ = svc.View(view.ID)
	if !view.CanUndo {
		t.Error("history must survive a no-op reload")
	}

	edited := strings.Replace(string(data), "hello", "changed", 1)
	svc.ReloadFromFile(ctx, view.ID, edited)
	view, _ = svc.View(view.ID)
	if view.CanUndo || !strings.Contains(view.Markup, "changed") {
		t.Errorf("external reload should replace content and reset history: %+v", view)
	}

	if err := svc.Delete(ctx, view.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected export file removed with the document")
	}
}

func TestDocumentService_DeleteLogsUnremovableExport(t *testing.T) {
	dir := t.TempDir()
	svc := service.NewDocumentService(newMemStore(), nil, service.DocumentServiceOptions{ExportDir: dir})
	ctx := context.Background()
	view, _ := svc.Create(ctx, "t")

	// A non-empty directory at the export path cannot be removed.
	path := svc.ExportPath(view.ID)
	if err := os.MkdirAll(filepath.Join(path, "keep"), 0755); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	if err := svc.Delete(ctx, view.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.View(view.ID); err == nil {
		t.Error("expected session dropped")
	}
	if !strings.Contains(buf.String(), "remove export") {
		t.Errorf("expected failed removal to be logged, got %q", buf.String())
	}

	// Deleting a document that was never exported logs nothing.
	buf.Reset()
	other, _ := svc.Create(ctx, "u")
	if err := svc.Delete(ctx, other.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if strings.Contains(buf.String(), "remove export") {
		t.Errorf("expected missing export to be ignored, got %q", buf.String())
	}
}

func TestDocumentService_Autosave(t *testing.T) {
	store := newMemStore()
	svc := service.NewDocumentService(store, nil, service.DocumentServiceOptions{})
	ctx := context.Background()
	view, _ := svc.Create(ctx, "t")
	svc.Edit(ctx, view.ID, writeHello)

	if err := svc.StartAutosave(ctx, "@every 1s"); err != nil {
		t.Fatalf("StartAutosave: %v", err)
	}
	defer svc.StopAutosave()

	deadline := time.Now().Add(3 * time.Second)
	for !strings.Contains(store.markup(view.ID), "hello") {
		if time.Now().After(deadline) {
			t.Fatal("autosave did not run")
		}
		time.Sleep(20 * time.Millisecond)
	}

	n := store.updateCount()
	if saved := svc.SaveDirty(ctx); saved != 0 {
		t.Errorf("expected nothing dirty after autosave, saved %d", saved)
	}
	if store.updateCount() != n {
		t.Error("clean documents must not be written")
	}
}

func TestDocumentService_InvalidAutosaveSchedule(t *testing.T) {
	svc := service.NewDocumentService(newMemStore(), nil, service.DocumentServiceOptions{})
	if err := svc.StartAutosave(context.Background(), "not a schedule"); err == nil {
		t.Fatal("expected error for bad cron schedule")
	}
	if err := svc.StartAutosave(context.Background(), ""); err != nil {
		t.Fatalf("empty schedule disables autosave, got %v", err)
	}
}

func TestDocumentService_EditUnknownDocument(t *testing.T) {
	svc := service.NewDocumentService(newMemStore(), nil, service.DocumentServiceOptions{})
	err := svc.Edit(context.Background(), "nope", writeHello)
	if !errors.Is(err, service.ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}
}
