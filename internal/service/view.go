package service

import (
	"time"

	"blockpad/internal/domain"
)

// BlockView tags a block with its kind for JSON consumers.
type BlockView struct {
	Kind  domain.BlockKind `json:"kind"`
	Block domain.Block     `json:"block"`
}

// DocumentView is the live state of an open document.
type DocumentView struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Blocks    []BlockView `json:"blocks"`
	Markup    string      `json:"markup"`
	Dirty     bool        `json:"dirty"`
	CanUndo   bool        `json:"canUndo"`
	CanRedo   bool        `json:"canRedo"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// ChangeEvent is the payload of document:changed.
type ChangeEvent struct {
	DocumentID string `json:"documentId"`
	Markup     string `json:"markup"`
	CanUndo    bool   `json:"canUndo"`
	CanRedo    bool   `json:"canRedo"`
}

// SavedEvent is the payload of document:saved.
type SavedEvent struct {
	DocumentID string    `json:"documentId"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func blockViews(d domain.Document) []BlockView {
	out := make([]BlockView, len(d.Blocks))
	for i, b := range d.Blocks {
		out[i] = BlockView{Kind: b.Kind(), Block: b}
	}
	return out
}

// changeEvent must be called with s.mu held.
func (s *session) changeEvent() ChangeEvent {
	return ChangeEvent{
		DocumentID: s.meta.ID,
		Markup:     s.ed.ToMarkup(),
		CanUndo:    s.ed.CanUndo(),
		CanRedo:    s.ed.CanRedo(),
	}
}

// View returns a copy of the live state of an open document.
func (s *DocumentService) View(id string) (*DocumentView, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return &DocumentView{
		ID:        sess.meta.ID,
		Title:     sess.meta.Title,
		Blocks:    blockViews(sess.ed.State()),
		Markup:    sess.ed.ToMarkup(),
		Dirty:     sess.dirty(),
		CanUndo:   sess.ed.CanUndo(),
		CanRedo:   sess.ed.CanRedo(),
		UpdatedAt: sess.meta.UpdatedAt,
	}, nil
}
