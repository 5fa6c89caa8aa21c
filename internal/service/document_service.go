package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"blockpad/internal/domain"
	"blockpad/internal/editor"
	"blockpad/internal/logship"
)

// ─────────────────────────────────────────────────────────────
// Document Service: live editor sessions over a DocumentStore
// ─────────────────────────────────────────────────────────────

var (
	ErrNotOpen        = errors.New("document is not open")
	ErrSaveInProgress = errors.New("save already in progress")
)

// LogSink receives application events worth shipping off-box.
// *logship.Client satisfies it.
type LogSink interface {
	SendLog(e logship.Entry) bool
}

// DocumentService owns one editor per open document. Edits to a document are
// serialized; different documents are independent.
type DocumentService struct {
	store     domain.DocumentStore
	emitter   EventEmitter
	logs      LogSink
	editorCfg editor.Config
	exportDir string

	mu       sync.Mutex
	sessions map[string]*session
	saving   saveGuard

	cronMu    sync.Mutex
	cronSched *cron.Cron
}

type session struct {
	mu      sync.Mutex
	meta    domain.SavedDocument // Markup is stale between saves
	ed      *editor.Editor
	version uint64 // bumped on every change
	saved   uint64 // version last written to the store
}

func (s *session) dirty() bool { return s.version != s.saved }

// DocumentServiceOptions configures optional collaborators.
type DocumentServiceOptions struct {
	Editor    editor.Config
	ExportDir string  // where ExportMarkup writes; "" disables export
	Logs      LogSink // may be nil
}

func NewDocumentService(store domain.DocumentStore, emitter EventEmitter, opts DocumentServiceOptions) *DocumentService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &DocumentService{
		store:     store,
		emitter:   emitter,
		logs:      opts.Logs,
		editorCfg: opts.Editor,
		exportDir: opts.ExportDir,
		sessions:  make(map[string]*session),
	}
}

func (s *DocumentService) ship(level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("document service: %s", msg)
	if s.logs != nil {
		s.logs.SendLog(logship.NewEntry(level, msg))
	}
}

func (s *DocumentService) newSession(meta domain.SavedDocument) *session {
	sess := &session{meta: meta, ed: editor.New(s.editorCfg)}
	sess.ed.LoadMarkup(meta.Markup)
	sess.ed.OnChange(func() { sess.version++ })
	return sess
}

func (s *DocumentService) get(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotOpen)
	}
	return sess, nil
}

// ── Lifecycle ──────────────────────────────────────────────

// Create stores a new minimal document and opens it.
func (s *DocumentService) Create(ctx context.Context, title string) (*DocumentView, error) {
	if title == "" {
		title = "Untitled"
	}
	ed := editor.New(s.editorCfg)
	doc := &domain.SavedDocument{ID: domain.NewID(), Title: title, Markup: ed.ToMarkup()}
	if err := s.store.CreateDocument(doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	sess := s.newSession(*doc)
	s.mu.Lock()
	s.sessions[doc.ID] = sess
	s.mu.Unlock()

	s.ship("info", "created document %s", doc.ID)
	return s.View(doc.ID)
}

// Open loads a stored document into a live session. Opening an already open
// document returns the live state.
func (s *DocumentService) Open(ctx context.Context, id string) (*DocumentView, error) {
	s.mu.Lock()
	_, open := s.sessions[id]
	s.mu.Unlock()
	if open {
		return s.View(id)
	}

	doc, err := s.store.GetDocument(id)
	if err != nil {
		s.ship("error", "open %s failed: %v", id, err)
		return nil, fmt.Errorf("open document: %w", err)
	}
	sess := s.newSession(*doc)

	s.mu.Lock()
	if existing, ok := s.sessions[id]; ok {
		sess = existing
	} else {
		s.sessions[id] = sess
	}
	s.mu.Unlock()
	return s.View(id)
}

// Close saves pending changes and drops the session.
func (s *DocumentService) Close(ctx context.Context, id string) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	dirty := sess.dirty()
	sess.mu.Unlock()
	if dirty {
		if err := s.Save(ctx, id); err != nil {
			return err
		}
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// List returns stored documents; open documents report their live title.
func (s *DocumentService) List() ([]domain.SavedDocument, error) {
	docs, err := s.store.ListDocuments()
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// OpenIDs returns the IDs of open documents in sorted order.
func (s *DocumentService) OpenIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Delete drops the session without saving and removes the stored document
// and any exported file.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	if err := s.store.DeleteDocument(id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if path := s.ExportPath(id); path != "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("document service: remove export %s: %v", path, err)
		}
	}
	s.ship("info", "deleted document %s", id)
	return nil
}

// Rename changes the title of an open document and marks it dirty.
func (s *DocumentService) Rename(ctx context.Context, id, title string) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	sess.meta.Title = title
	sess.version++
	sess.mu.Unlock()
	return nil
}

// ── Editing ────────────────────────────────────────────────

// Edit runs fn against the document's editor. Access is serialized per
// document; document:changed is emitted when fn changed anything, even if
// fn returned an error after a partial edit.
func (s *DocumentService) Edit(ctx context.Context, id string, fn func(ed *editor.Editor) error) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	before := sess.version
	fnErr := fn(sess.ed)
	changed := sess.version != before
	var ev ChangeEvent
	if changed {
		ev = sess.changeEvent()
	}
	sess.mu.Unlock()

	if changed {
		s.emitter.Emit(ctx, "document:changed", ev)
	}
	return fnErr
}

// ImportMarkup replaces the document with parsed markup as an undoable edit.
func (s *DocumentService) ImportMarkup(ctx context.Context, id, markup string) error {
	return s.Edit(ctx, id, func(ed *editor.Editor) error {
		ed.ImportMarkup(markup)
		return nil
	})
}

// ReloadFromFile restores content written outside the editor, for example by
// a file watcher. Content matching the live document is ignored so that our
// own exports do not reset history.
func (s *DocumentService) ReloadFromFile(ctx context.Context, id, content string) error {
	return s.Edit(ctx, id, func(ed *editor.Editor) error {
		if content == ed.ToMarkup() {
			return nil
		}
		ed.LoadMarkup(content)
		return nil
	})
}

// ExportPath returns where ExportMarkup writes id, or "" when export is off.
func (s *DocumentService) ExportPath(id string) string {
	if s.exportDir == "" {
		return ""
	}
	return filepath.Join(s.exportDir, id+".html")
}

// ExportMarkup writes the live markup of id to its export path.
func (s *DocumentService) ExportMarkup(ctx context.Context, id string) (string, error) {
	path := s.ExportPath(id)
	if path == "" {
		return "", fmt.Errorf("export document: no export directory configured")
	}
	markup, err := s.Markup(id)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.exportDir, 0755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(markup), 0644); err != nil {
		return "", fmt.Errorf("export document: %w", err)
	}
	return path, nil
}

// Markup returns the live markup of an open document.
func (s *DocumentService) Markup(id string) (string, error) {
	sess, err := s.get(id)
	if err != nil {
		return "", err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.ed.ToMarkup(), nil
}

// ── Persistence ────────────────────────────────────────────

// Save writes the live markup of id to the store. Concurrent saves of the
// same document fail with ErrSaveInProgress.
func (s *DocumentService) Save(ctx context.Context, id string) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	if !s.saving.TryLock(id) {
		return fmt.Errorf("save %s: %w", id, ErrSaveInProgress)
	}
	defer s.saving.Unlock(id)

	sess.mu.Lock()
	doc := sess.meta
	doc.Markup = sess.ed.ToMarkup()
	version := sess.version
	sess.mu.Unlock()

	if err := s.store.UpdateDocument(&doc); err != nil {
		s.ship("error", "save %s failed: %v", id, err)
		return fmt.Errorf("save document: %w", err)
	}

	sess.mu.Lock()
	sess.meta.UpdatedAt = doc.UpdatedAt
	if version > sess.saved {
		sess.saved = version
	}
	sess.mu.Unlock()

	s.emitter.Emit(ctx, "document:saved", SavedEvent{DocumentID: id, UpdatedAt: doc.UpdatedAt})
	s.ship("info", "saved document %s", id)
	return nil
}

// SaveDirty saves every open document with unsaved changes and returns how
// many were written. Documents already being saved are skipped.
func (s *DocumentService) SaveDirty(ctx context.Context) int {
	n := 0
	for _, id := range s.OpenIDs() {
		sess, err := s.get(id)
		if err != nil {
			continue
		}
		sess.mu.Lock()
		dirty := sess.dirty()
		sess.mu.Unlock()
		if !dirty {
			continue
		}
		switch err := s.Save(ctx, id); {
		case err == nil:
			n++
		case errors.Is(err, ErrSaveInProgress):
		default:
			log.Printf("document service: autosave %s: %v", id, err)
		}
	}
	return n
}

// StartAutosave saves dirty documents on a cron schedule such as
// "@every 30s". An empty schedule disables autosave.
func (s *DocumentService) StartAutosave(ctx context.Context, schedule string) error {
	s.StopAutosave()
	if schedule == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if n := s.SaveDirty(ctx); n > 0 {
			log.Printf("document service: autosaved %d document(s)", n)
		}
	}); err != nil {
		return fmt.Errorf("autosave schedule %q: %w", schedule, err)
	}
	c.Start()

	s.cronMu.Lock()
	s.cronSched = c
	s.cronMu.Unlock()
	return nil
}

func (s *DocumentService) StopAutosave() {
	s.cronMu.Lock()
	c := s.cronSched
	s.cronSched = nil
	s.cronMu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// Shutdown stops autosave, waits for in-flight saves and saves whatever is
// still dirty.
func (s *DocumentService) Shutdown(ctx context.Context) {
	s.StopAutosave()
	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	s.saving.WaitAll(waitCtx)
	s.SaveDirty(ctx)
}
