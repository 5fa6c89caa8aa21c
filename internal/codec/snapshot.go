package codec

import (
	"encoding/json"
	"fmt"

	"blockpad/internal/domain"
	"blockpad/internal/richtext"
)

type snapshotDoc struct {
	Blocks []snapshotBlock `json:"blocks"`
}

type snapshotSpan struct {
	T string `json:"t"`
	S int    `json:"s"`
	E int    `json:"e"`
}

type snapshotImage struct {
	URI      string `json:"uri"`
	Portrait bool   `json:"portrait"`
}

type snapshotBlock struct {
	Type string `json:"type"`
	ID   string `json:"id"`

	Text    string         `json:"text,omitempty"`
	Heading bool           `json:"heading,omitempty"`
	Spans   []snapshotSpan `json:"spans,omitempty"`

	Items   []snapshotImage `json:"items,omitempty"`
	Columns int             `json:"columns,omitempty"`

	URI   string `json:"uri,omitempty"`
	Thumb []byte `json:"thumb,omitempty"`

	URL      string `json:"url,omitempty"`
	VideoID  string `json:"videoId,omitempty"`
	ThumbURL string `json:"thumbUrl,omitempty"`
}

// EncodeSnapshot serializes the full document state, including block ids and
// cached thumbnails, for the undo history.
func EncodeSnapshot(d domain.Document) string {
	out := snapshotDoc{Blocks: make([]snapshotBlock, 0, len(d.Blocks))}
	for _, b := range d.Blocks {
		switch v := b.(type) {
		case domain.TextBlock:
			sb := snapshotBlock{Type: string(domain.BlockKindText), ID: v.ID, Text: v.Text.Content, Heading: v.Heading}
			for _, s := range v.Text.Spans {
				sb.Spans = append(sb.Spans, snapshotSpan{T: s.Kind.Code(), S: s.Start, E: s.End})
			}
			out.Blocks = append(out.Blocks, sb)
		case domain.ImageGridBlock:
			sb := snapshotBlock{Type: string(domain.BlockKindImage), ID: v.ID, Columns: v.Columns}
			for _, img := range v.Images {
				sb.Items = append(sb.Items, snapshotImage{URI: img.Ref, Portrait: img.Portrait})
			}
			out.Blocks = append(out.Blocks, sb)
		case domain.VideoBlock:
			out.Blocks = append(out.Blocks, snapshotBlock{Type: string(domain.BlockKindVideo), ID: v.ID, URI: v.Ref, Thumb: v.Thumbnail})
		case domain.EmbeddedLinkBlock:
			out.Blocks = append(out.Blocks, snapshotBlock{
				Type: string(domain.BlockKindLink), ID: v.ID, URL: v.URL, VideoID: v.VideoID, ThumbURL: v.ThumbnailURL,
			})
		default:
			domain.MustKnownBlock(b)
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		// Only plain strings, ints and bools are marshaled here.
		panic(fmt.Sprintf("encode snapshot: %v", err))
	}
	return string(data)
}

// DecodeSnapshot parses a snapshot. On any failure it returns the minimal
// document together with the error, so callers can log it and carry on.
func DecodeSnapshot(s string) (domain.Document, error) {
	var in snapshotDoc
	if err := json.Unmarshal([]byte(s), &in); err != nil {
		return domain.NewDocument(), fmt.Errorf("decode snapshot: %w", err)
	}

	doc := domain.Document{Blocks: make([]domain.Block, 0, len(in.Blocks))}
	for i, sb := range in.Blocks {
		id := sb.ID
		if id == "" {
			id = domain.NewID()
		}
		switch domain.BlockKind(sb.Type) {
		case domain.BlockKindText:
			txt := richtext.Text{Content: sb.Text}
			for _, sp := range sb.Spans {
				kind, ok := richtext.ParseStyleKind(sp.T)
				if !ok {
					return domain.NewDocument(), fmt.Errorf("decode snapshot: block %d: unknown style %q", i, sp.T)
				}
				txt.Spans = append(txt.Spans, richtext.Span{Kind: kind, Start: sp.S, End: sp.E})
			}
			doc.Blocks = append(doc.Blocks, domain.TextBlock{ID: id, Text: txt.Normalize(), Heading: sb.Heading})
		case domain.BlockKindImage:
			grid := domain.ImageGridBlock{ID: id, Columns: domain.ClampColumns(sb.Columns)}
			for _, it := range sb.Items {
				grid.Images = append(grid.Images, domain.Image{Ref: it.URI, Portrait: it.Portrait})
			}
			if len(grid.Images) == 0 {
				continue
			}
			doc.Blocks = append(doc.Blocks, grid)
		case domain.BlockKindVideo:
			doc.Blocks = append(doc.Blocks, domain.VideoBlock{ID: id, Ref: sb.URI, Thumbnail: sb.Thumb})
		case domain.BlockKindLink:
			link := domain.EmbeddedLinkBlock{ID: id, URL: sb.URL, VideoID: sb.VideoID, ThumbnailURL: sb.ThumbURL}
			if link.VideoID == "" {
				resolved, ok := domain.ResolveLink(sb.URL)
				if !ok {
					continue
				}
				link.VideoID, link.ThumbnailURL = resolved.VideoID, resolved.ThumbnailURL
			}
			doc.Blocks = append(doc.Blocks, link)
		default:
			return domain.NewDocument(), fmt.Errorf("decode snapshot: block %d: unknown type %q", i, sb.Type)
		}
	}
	doc.Ensure()
	return doc, nil
}
