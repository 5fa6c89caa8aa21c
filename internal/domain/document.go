package domain

import (
	"fmt"
	"time"

	"blockpad/internal/richtext"
)

// Document is an ordered block sequence holding at least one TextBlock.
type Document struct {
	Blocks []Block `json:"blocks"`
}

// NewDocument returns the minimal valid document: a single empty text block.
func NewDocument() Document {
	return Document{Blocks: []Block{NewTextBlock(richtext.Text{})}}
}

// Clone deep-copies the document so the result shares no mutable state.
func (d Document) Clone() Document {
	out := Document{Blocks: make([]Block, len(d.Blocks))}
	for i, b := range d.Blocks {
		out.Blocks[i] = b.cloneBlock()
	}
	return out
}

// Ensure appends an empty TextBlock when the document has none.
func (d *Document) Ensure() {
	for _, b := range d.Blocks {
		if _, ok := b.(TextBlock); ok {
			return
		}
	}
	d.Blocks = append(d.Blocks, NewTextBlock(richtext.Text{}))
}

// IndexOf returns the position of the block with id, or -1.
func (d Document) IndexOf(id string) int {
	for i, b := range d.Blocks {
		if b.BlockID() == id {
			return i
		}
	}
	return -1
}

// PlainText joins the content of every text block with newlines.
func (d Document) PlainText() string {
	var out []byte
	for _, b := range d.Blocks {
		if tb, ok := b.(TextBlock); ok {
			if len(out) > 0 {
				out = append(out, '\n')
			}
			out = append(out, tb.Text.Content...)
		}
	}
	return string(out)
}

// MustKnownBlock panics on a Block implementation outside the closed set.
func MustKnownBlock(b Block) {
	switch b.(type) {
	case TextBlock, ImageGridBlock, VideoBlock, EmbeddedLinkBlock:
	default:
		panic(fmt.Sprintf("domain: unknown block type %T", b))
	}
}

// SavedDocument is the durable form of a document.
type SavedDocument struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Markup    string    `json:"markup"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type DocumentStore interface {
	CreateDocument(d *SavedDocument) error
	GetDocument(id string) (*SavedDocument, error)
	ListDocuments() ([]SavedDocument, error)
	UpdateDocument(d *SavedDocument) error
	DeleteDocument(id string) error
}
