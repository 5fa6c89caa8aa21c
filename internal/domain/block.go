package domain

import (
	"bytes"
	"slices"

	"blockpad/internal/richtext"

	"github.com/google/uuid"
)

type BlockKind string

const (
	BlockKindText  BlockKind = "text"
	BlockKindImage BlockKind = "image"
	BlockKindVideo BlockKind = "video"
	BlockKindLink  BlockKind = "youtube"
)

// Block is one entry of a Document. The set of implementations is closed:
// TextBlock, ImageGridBlock, VideoBlock and EmbeddedLinkBlock.
type Block interface {
	BlockID() string
	Kind() BlockKind
	cloneBlock() Block
}

type TextBlock struct {
	ID      string        `json:"id"`
	Text    richtext.Text `json:"text"`
	Heading bool          `json:"heading"`
}

type Image struct {
	Ref      string `json:"ref"`
	Portrait bool   `json:"portrait"`
}

type ImageGridBlock struct {
	ID      string  `json:"id"`
	Images  []Image `json:"images"`
	Columns int     `json:"columns"` // 1..3
}

type VideoBlock struct {
	ID        string `json:"id"`
	Ref       string `json:"ref"`
	Thumbnail []byte `json:"thumbnail,omitempty"` // cached encoded frame
}

type EmbeddedLinkBlock struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	VideoID      string `json:"videoId"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

func (b TextBlock) BlockID() string         { return b.ID }
func (b ImageGridBlock) BlockID() string    { return b.ID }
func (b VideoBlock) BlockID() string        { return b.ID }
func (b EmbeddedLinkBlock) BlockID() string { return b.ID }

func (TextBlock) Kind() BlockKind         { return BlockKindText }
func (ImageGridBlock) Kind() BlockKind    { return BlockKindImage }
func (VideoBlock) Kind() BlockKind        { return BlockKindVideo }
func (EmbeddedLinkBlock) Kind() BlockKind { return BlockKindLink }

func (b TextBlock) cloneBlock() Block {
	b.Text = b.Text.Clone()
	return b
}

func (b ImageGridBlock) cloneBlock() Block {
	b.Images = slices.Clone(b.Images)
	return b
}

func (b VideoBlock) cloneBlock() Block {
	b.Thumbnail = bytes.Clone(b.Thumbnail)
	return b
}

func (b EmbeddedLinkBlock) cloneBlock() Block { return b }

// NewID returns a fresh block or document identifier.
func NewID() string {
	return uuid.New().String()
}

func NewTextBlock(t richtext.Text) TextBlock {
	return TextBlock{ID: NewID(), Text: t}
}

// ClampColumns bounds a grid column count to [1, 3].
func ClampColumns(n int) int {
	return max(1, min(3, n))
}

// NewImageGrid sizes the grid to the image count, capped at three columns.
// ok is false when images is empty.
func NewImageGrid(images []Image) (ImageGridBlock, bool) {
	if len(images) == 0 {
		return ImageGridBlock{}, false
	}
	return ImageGridBlock{ID: NewID(), Images: slices.Clone(images), Columns: ClampColumns(len(images))}, true
}

// NextColumns cycles 1 → 2 → 3 → 1.
func (b ImageGridBlock) NextColumns() int {
	return b.Columns%3 + 1
}
