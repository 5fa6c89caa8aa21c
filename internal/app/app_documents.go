package app

import (
	"fmt"

	"blockpad/internal/domain"
	"blockpad/internal/editor"
	"blockpad/internal/richtext"
	"blockpad/internal/service"
)

// ============================================================
// Documents
// ============================================================

func (a *App) ListDocuments() ([]domain.SavedDocument, error) {
	return a.docs.List()
}

func (a *App) CreateDocument(title string) (*service.DocumentView, error) {
	return a.docs.Create(a.ctx, title)
}

func (a *App) OpenDocument(id string) (*service.DocumentView, error) {
	return a.docs.Open(a.ctx, id)
}

func (a *App) GetDocument(id string) (*service.DocumentView, error) {
	return a.docs.View(id)
}

// CloseDocument saves pending changes and stops watching its export file.
func (a *App) CloseDocument(id string) error {
	if a.watcher != nil {
		a.watcher.StopWatching(id)
	}
	return a.docs.Close(a.ctx, id)
}

func (a *App) DeleteDocument(id string) error {
	if a.watcher != nil {
		a.watcher.StopWatching(id)
	}
	return a.docs.Delete(a.ctx, id)
}

func (a *App) RenameDocument(id, title string) error {
	return a.docs.Rename(a.ctx, id, title)
}

func (a *App) SaveDocument(id string) error {
	return a.docs.Save(a.ctx, id)
}

func (a *App) ExportMarkup(id string) (string, error) {
	return a.docs.ExportMarkup(a.ctx, id)
}

func (a *App) ImportMarkup(id, markup string) error {
	return a.docs.ImportMarkup(a.ctx, id, markup)
}

// ============================================================
// Editing
// ============================================================

// edit applies fn to an open document and returns the block id it reports.
func (a *App) edit(id string, fn func(ed *editor.Editor) (string, error)) (string, error) {
	var blockID string
	err := a.docs.Edit(a.ctx, id, func(ed *editor.Editor) error {
		var err error
		blockID, err = fn(ed)
		return err
	})
	return blockID, err
}

func (a *App) Undo(id string) (bool, error) {
	var ok bool
	err := a.docs.Edit(a.ctx, id, func(ed *editor.Editor) error {
		ok = ed.Undo()
		return nil
	})
	return ok, err
}

func (a *App) Redo(id string) (bool, error) {
	var ok bool
	err := a.docs.Edit(a.ctx, id, func(ed *editor.Editor) error {
		ok = ed.Redo()
		return nil
	})
	return ok, err
}

func (a *App) InsertTextBlock(id string, atFront bool) (string, error) {
	return a.edit(id, func(ed *editor.Editor) (string, error) {
		return ed.InsertTextBlock(atFront), nil
	})
}

// InsertImages adds an image grid for refs; orientation is probed from the files.
func (a *App) InsertImages(id string, refs []string) (string, error) {
	return a.edit(id, func(ed *editor.Editor) (string, error) {
		blockID, ok := ed.InsertImageRefs(refs)
		if !ok {
			return "", fmt.Errorf("insert images: no image references")
		}
		return blockID, nil
	})
}

func (a *App) InsertVideo(id, ref string) (string, error) {
	return a.edit(id, func(ed *editor.Editor) (string, error) {
		blockID, ok := ed.InsertVideo(ref)
		if !ok {
			return "", fmt.Errorf("insert video: empty reference")
		}
		return blockID, nil
	})
}

func (a *App) InsertLink(id, url string) (string, error) {
	return a.edit(id, func(ed *editor.Editor) (string, error) {
		blockID, ok := ed.InsertEmbeddedLink(url)
		if !ok {
			return "", fmt.Errorf("insert link: unsupported url %q", url)
		}
		return blockID, nil
	})
}

func (a *App) MoveBlock(id string, from, to int) error {
	_, err := a.edit(id, func(ed *editor.Editor) (string, error) {
		return "", ed.MoveBlock(from, to)
	})
	return err
}

func (a *App) RemoveBlock(id, blockID string) error {
	_, err := a.edit(id, func(ed *editor.Editor) (string, error) {
		return "", ed.RemoveBlock(blockID)
	})
	return err
}

// SetText replaces the rich text of a text block.
func (a *App) SetText(id, blockID string, text richtext.Text) error {
	_, err := a.edit(id, func(ed *editor.Editor) (string, error) {
		return "", ed.SetText(blockID, text)
	})
	return err
}

// ToggleStyle toggles "bold", "italic" or "underline" over [start, end).
func (a *App) ToggleStyle(id, blockID, style string, start, end int) error {
	kind, ok := richtext.ParseStyleKind(style)
	if !ok {
		return fmt.Errorf("toggle style: unknown style %q", style)
	}
	_, err := a.edit(id, func(ed *editor.Editor) (string, error) {
		return "", ed.ToggleStyle(blockID, kind, richtext.Range{Start: start, End: end})
	})
	return err
}

func (a *App) ToggleHeading(id, blockID string) error {
	_, err := a.edit(id, func(ed *editor.Editor) (string, error) {
		return "", ed.ToggleHeading(blockID)
	})
	return err
}

func (a *App) CycleColumns(id, blockID string) error {
	_, err := a.edit(id, func(ed *editor.Editor) (string, error) {
		return "", ed.CycleImageGridColumns(blockID)
	})
	return err
}

// SetVideoThumbnail caches an encoded frame for a video block without
// touching history.
func (a *App) SetVideoThumbnail(id, blockID string, thumb []byte) error {
	_, err := a.edit(id, func(ed *editor.Editor) (string, error) {
		return "", ed.SetVideoThumbnail(blockID, thumb)
	})
	return err
}

func (a *App) SetLinkThumbnail(id, blockID, url string) error {
	_, err := a.edit(id, func(ed *editor.Editor) (string, error) {
		return "", ed.SetLinkThumbnail(blockID, url)
	})
	return err
}
