// Package editor owns a live document and its undo history. Every user-level
// mutation records exactly one snapshot; restores (undo, redo, load) replace
// the document without recording one.
package editor

import (
	"errors"
	"fmt"
	"log"

	"blockpad/internal/codec"
	"blockpad/internal/domain"
	"blockpad/internal/richtext"
)

var (
	ErrOutOfRange     = errors.New("index out of range")
	ErrBlockNotFound  = errors.New("block not found")
	ErrWrongBlockKind = errors.New("wrong block kind")
)

type Config struct {
	MaxHistory int
	Prober     codec.OrientationProber
}

// Editor is not safe for concurrent use; callers serialize access.
type Editor struct {
	doc      domain.Document
	history  *History
	prober   codec.OrientationProber
	onChange func()
}

// New returns an editor holding the minimal document as its history baseline.
func New(cfg Config) *Editor {
	e := &Editor{
		doc:     domain.NewDocument(),
		history: NewHistory(cfg.MaxHistory),
		prober:  cfg.Prober,
	}
	e.history.Reset(codec.EncodeSnapshot(e.doc))
	return e
}

// OnChange registers fn to run after every committed mutation or restore.
func (e *Editor) OnChange(fn func()) {
	e.onChange = fn
}

func (e *Editor) notify() {
	if e.onChange != nil {
		e.onChange()
	}
}

// commit records the current document and notifies listeners. A document
// identical to the top of history is neither recorded nor reported.
func (e *Editor) commit() {
	if e.history.Push(codec.EncodeSnapshot(e.doc)) {
		e.notify()
	}
}

// apply restores a snapshot without recording it.
func (e *Editor) apply(snapshot string) {
	doc, err := codec.DecodeSnapshot(snapshot)
	if err != nil {
		log.Printf("editor: restore snapshot: %v", err)
	}
	e.doc = doc
	e.notify()
}

// ─────────────────────────────────────────────────────────────
// State
// ─────────────────────────────────────────────────────────────

// State returns a deep copy of the current document.
func (e *Editor) State() domain.Document {
	return e.doc.Clone()
}

// SetState replaces the document as a single user edit.
func (e *Editor) SetState(d domain.Document) {
	e.doc = d.Clone()
	e.doc.Ensure()
	e.commit()
}

func (e *Editor) ToMarkup() string {
	return codec.EncodeMarkup(e.doc)
}

// LoadMarkup restores a stored document. The loaded state becomes the new
// history baseline, so it cannot be undone.
func (e *Editor) LoadMarkup(markup string) {
	e.doc = codec.DecodeMarkup(markup, e.prober)
	e.history.Reset(codec.EncodeSnapshot(e.doc))
	e.notify()
}

// ImportMarkup replaces the document with parsed markup as an undoable edit.
func (e *Editor) ImportMarkup(markup string) {
	e.doc = codec.DecodeMarkup(markup, e.prober)
	e.commit()
}

func (e *Editor) Undo() bool {
	s, ok := e.history.Undo()
	if !ok {
		return false
	}
	e.apply(s)
	return true
}

func (e *Editor) Redo() bool {
	s, ok := e.history.Redo()
	if !ok {
		return false
	}
	e.apply(s)
	return true
}

func (e *Editor) CanUndo() bool { return e.history.CanUndo() }
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// HistoryDepth reports the undo and redo stack sizes.
func (e *Editor) HistoryDepth() (undo, redo int) {
	return e.history.Depth()
}

// ─────────────────────────────────────────────────────────────
// Lookup
// ─────────────────────────────────────────────────────────────

func (e *Editor) IndexOf(id string) int {
	return e.doc.IndexOf(id)
}

// Block returns a copy of the block with id.
func (e *Editor) Block(id string) (domain.Block, error) {
	i := e.doc.IndexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("block %s: %w", id, ErrBlockNotFound)
	}
	return e.doc.Clone().Blocks[i], nil
}

func (e *Editor) textBlock(id string) (int, domain.TextBlock, error) {
	i := e.doc.IndexOf(id)
	if i < 0 {
		return -1, domain.TextBlock{}, fmt.Errorf("block %s: %w", id, ErrBlockNotFound)
	}
	tb, ok := e.doc.Blocks[i].(domain.TextBlock)
	if !ok {
		return -1, domain.TextBlock{}, fmt.Errorf("block %s is %s, not text: %w", id, e.doc.Blocks[i].Kind(), ErrWrongBlockKind)
	}
	return i, tb, nil
}

// ─────────────────────────────────────────────────────────────
// Mutations
// ─────────────────────────────────────────────────────────────

// InsertTextBlock adds an empty text block at the front or the end.
func (e *Editor) InsertTextBlock(atFront bool) string {
	tb := domain.NewTextBlock(richtext.Text{})
	e.insert(tb, atFront)
	return tb.ID
}

// InsertImageGrid appends a grid of images. Nothing happens for an empty list.
func (e *Editor) InsertImageGrid(images []domain.Image) (string, bool) {
	grid, ok := domain.NewImageGrid(images)
	if !ok {
		return "", false
	}
	e.insert(grid, false)
	return grid.ID, true
}

// InsertImageRefs probes the orientation of each reference and inserts them
// as one grid.
func (e *Editor) InsertImageRefs(refs []string) (string, bool) {
	probe := e.prober
	if probe == nil {
		probe = codec.DefaultProber
	}
	images := make([]domain.Image, 0, len(refs))
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		images = append(images, domain.Image{Ref: ref, Portrait: probe.Portrait(ref)})
	}
	return e.InsertImageGrid(images)
}

// InsertVideo appends a video block. ok is false, and nothing changes, for
// an empty ref.
func (e *Editor) InsertVideo(ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	v := domain.VideoBlock{ID: domain.NewID(), Ref: ref}
	e.insert(v, false)
	return v.ID, true
}

// InsertEmbeddedLink appends a link block. ok is false, and nothing changes,
// when url carries no recognizable video id.
func (e *Editor) InsertEmbeddedLink(url string) (string, bool) {
	link, ok := domain.ResolveLink(url)
	if !ok {
		return "", false
	}
	e.insert(link, false)
	return link.ID, true
}

func (e *Editor) insert(b domain.Block, atFront bool) {
	if atFront {
		e.doc.Blocks = append([]domain.Block{b}, e.doc.Blocks...)
	} else {
		e.doc.Blocks = append(e.doc.Blocks, b)
	}
	e.commit()
}

// MoveBlock moves the block at from so that it ends up at index to.
func (e *Editor) MoveBlock(from, to int) error {
	n := len(e.doc.Blocks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("move block %d to %d of %d: %w", from, to, n, ErrOutOfRange)
	}
	if from == to {
		return nil
	}
	b := e.doc.Blocks[from]
	blocks := append(e.doc.Blocks[:from:from], e.doc.Blocks[from+1:]...)
	blocks = append(blocks[:to], append([]domain.Block{b}, blocks[to:]...)...)
	e.doc.Blocks = blocks
	e.commit()
	return nil
}

// RemoveBlock deletes a block, keeping at least one text block in place.
func (e *Editor) RemoveBlock(id string) error {
	i := e.doc.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("remove block %s: %w", id, ErrBlockNotFound)
	}
	e.doc.Blocks = append(e.doc.Blocks[:i:i], e.doc.Blocks[i+1:]...)
	e.doc.Ensure()
	e.commit()
	return nil
}

// SetText replaces the content of a text block.
func (e *Editor) SetText(id string, t richtext.Text) error {
	i, tb, err := e.textBlock(id)
	if err != nil {
		return fmt.Errorf("set text: %w", err)
	}
	tb.Text = t.Clone().Normalize()
	e.doc.Blocks[i] = tb
	e.commit()
	return nil
}

// ToggleStyle toggles kind over r inside a text block. An invalid range is
// ignored and records nothing.
func (e *Editor) ToggleStyle(id string, kind richtext.StyleKind, r richtext.Range) error {
	i, tb, err := e.textBlock(id)
	if err != nil {
		return fmt.Errorf("toggle style: %w", err)
	}
	if r.Start < 0 || r.End <= r.Start || r.End > tb.Text.Len() {
		return nil
	}
	tb.Text = tb.Text.Toggle(kind, r)
	e.doc.Blocks[i] = tb
	e.commit()
	return nil
}

func (e *Editor) ToggleHeading(id string) error {
	i, tb, err := e.textBlock(id)
	if err != nil {
		return fmt.Errorf("toggle heading: %w", err)
	}
	tb.Heading = !tb.Heading
	e.doc.Blocks[i] = tb
	e.commit()
	return nil
}

// CycleImageGridColumns advances the column count 1 → 2 → 3 → 1.
func (e *Editor) CycleImageGridColumns(id string) error {
	i := e.doc.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("cycle columns %s: %w", id, ErrBlockNotFound)
	}
	grid, ok := e.doc.Blocks[i].(domain.ImageGridBlock)
	if !ok {
		return fmt.Errorf("cycle columns %s: %w", id, ErrWrongBlockKind)
	}
	grid.Columns = grid.NextColumns()
	e.doc.Blocks[i] = grid
	e.commit()
	return nil
}

// ─────────────────────────────────────────────────────────────
// Cache updates (not recorded, no notification)
// ─────────────────────────────────────────────────────────────

// SetVideoThumbnail caches an encoded preview frame on a video block.
func (e *Editor) SetVideoThumbnail(id string, thumb []byte) error {
	i := e.doc.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("set thumbnail %s: %w", id, ErrBlockNotFound)
	}
	v, ok := e.doc.Blocks[i].(domain.VideoBlock)
	if !ok {
		return fmt.Errorf("set thumbnail %s: %w", id, ErrWrongBlockKind)
	}
	v.Thumbnail = append([]byte(nil), thumb...)
	e.doc.Blocks[i] = v
	return nil
}

// SetLinkThumbnail overrides the preview url of a link block.
func (e *Editor) SetLinkThumbnail(id, url string) error {
	i := e.doc.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("set link thumbnail %s: %w", id, ErrBlockNotFound)
	}
	link, ok := e.doc.Blocks[i].(domain.EmbeddedLinkBlock)
	if !ok {
		return fmt.Errorf("set link thumbnail %s: %w", id, ErrWrongBlockKind)
	}
	link.ThumbnailURL = url
	e.doc.Blocks[i] = link
	return nil
}
