package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"blockpad/internal/domain"
	"blockpad/internal/editor"
	"blockpad/internal/richtext"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerEditTools() {
	docParam := mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)"))

	// ── inserts ────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("insert_text_block",
		mcp.WithDescription("Insert a text block at the end, or at the front with atFront"),
		mcp.WithString("text", mcp.Description("Initial plain text (optional)")),
		mcp.WithBoolean("heading", mcp.Description("Render as a heading (optional)")),
		mcp.WithBoolean("atFront", mcp.Description("Insert before every other block (optional)")),
		docParam,
	), s.handleInsertTextBlock)

	s.mcp.AddTool(mcp.NewTool("insert_image_grid",
		mcp.WithDescription("Append a grid of images. Orientation is read from local files; remote images count as portrait."),
		mcp.WithString("refs", mcp.Description("Comma-separated image paths or URLs"), mcp.Required()),
		docParam,
	), s.handleInsertImageGrid)

	s.mcp.AddTool(mcp.NewTool("insert_video",
		mcp.WithDescription("Append a local video block"),
		mcp.WithString("ref", mcp.Description("Video path or URI"), mcp.Required()),
		docParam,
	), s.handleInsertVideo)

	s.mcp.AddTool(mcp.NewTool("insert_link",
		mcp.WithDescription("Append an embedded video link. Fails when the URL carries no recognizable video id."),
		mcp.WithString("url", mcp.Description("Video page URL"), mcp.Required()),
		docParam,
	), s.handleInsertLink)

	// ── block edits ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Move the block at index from so that it ends up at index to"),
		mcp.WithNumber("from", mcp.Description("Current index"), mcp.Required()),
		mcp.WithNumber("to", mcp.Description("Target index"), mcp.Required()),
		docParam,
	), s.handleMoveBlock)

	s.mcp.AddTool(mcp.NewTool("remove_block",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove a block. Can be reverted with undo while the document is open."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
		docParam,
	), s.handleRemoveBlock)

	s.mcp.AddTool(mcp.NewTool("set_text",
		mcp.WithDescription("Replace the content of a text block. Offsets in spans count UTF-16 code units."),
		mcp.WithString("blockId", mcp.Description("Text block ID"), mcp.Required()),
		mcp.WithString("text", mcp.Description("New plain text"), mcp.Required()),
		mcp.WithString("spans", mcp.Description(`Optional JSON array of styles, e.g. [{"style":"bold","start":0,"end":5}]`)),
		docParam,
	), s.handleSetText)

	s.mcp.AddTool(mcp.NewTool("toggle_style",
		mcp.WithDescription("Toggle bold, italic or underline over [start, end) of a text block"),
		mcp.WithString("blockId", mcp.Description("Text block ID"), mcp.Required()),
		mcp.WithString("style", mcp.Description("bold, italic or underline"), mcp.Required()),
		mcp.WithNumber("start", mcp.Description("Start offset (UTF-16)"), mcp.Required()),
		mcp.WithNumber("end", mcp.Description("End offset (UTF-16, exclusive)"), mcp.Required()),
		docParam,
	), s.handleToggleStyle)

	s.mcp.AddTool(mcp.NewTool("toggle_heading",
		mcp.WithDescription("Toggle heading display of a text block"),
		mcp.WithString("blockId", mcp.Description("Text block ID"), mcp.Required()),
		docParam,
	), s.handleToggleHeading)

	s.mcp.AddTool(mcp.NewTool("cycle_columns",
		mcp.WithDescription("Cycle the column count of an image grid 1 → 2 → 3 → 1"),
		mcp.WithString("blockId", mcp.Description("Image grid block ID"), mcp.Required()),
		docParam,
	), s.handleCycleColumns)
}

// edit runs fn against the resolved document and returns its result as JSON.
func (s *Server) edit(ctx context.Context, req mcp.CallToolRequest, fn func(ed *editor.Editor) (any, error)) (*mcp.CallToolResult, error) {
	id, err := s.resolveDocID(req)
	if err != nil {
		return nil, err
	}
	var out any
	err = s.docs.Edit(ctx, id, func(ed *editor.Editor) error {
		var err error
		out, err = fn(ed)
		return err
	})
	if err != nil {
		return nil, err
	}
	return jsonResult(out)
}

func requireBlockID(req mcp.CallToolRequest) (string, error) {
	id := req.GetString("blockId", "")
	if id == "" {
		return "", fmt.Errorf("blockId is required")
	}
	return id, nil
}

type spanArg struct {
	Style string `json:"style"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// parseSpans decodes the spans argument of set_text.
func parseSpans(raw string) ([]richtext.Span, error) {
	if raw == "" {
		return nil, nil
	}
	var args []spanArg
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("parse spans: %w", err)
	}
	spans := make([]richtext.Span, 0, len(args))
	for _, a := range args {
		kind, ok := richtext.ParseStyleKind(a.Style)
		if !ok {
			return nil, fmt.Errorf("parse spans: unknown style %q", a.Style)
		}
		spans = append(spans, richtext.Span{Kind: kind, Start: a.Start, End: a.End})
	}
	return spans, nil
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleInsertTextBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	heading := req.GetBool("heading", false)
	atFront := req.GetBool("atFront", false)
	return s.edit(ctx, req, func(ed *editor.Editor) (any, error) {
		if text == "" && !heading {
			return map[string]string{"blockId": ed.InsertTextBlock(atFront)}, nil
		}
		// One history step for the block and its content.
		tb := domain.NewTextBlock(richtext.Text{Content: text})
		tb.Heading = heading
		doc := ed.State()
		if atFront {
			doc.Blocks = append([]domain.Block{tb}, doc.Blocks...)
		} else {
			doc.Blocks = append(doc.Blocks, tb)
		}
		ed.SetState(doc)
		return map[string]string{"blockId": tb.ID}, nil
	})
}

func (s *Server) handleInsertImageGrid(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var refs []string
	for _, r := range strings.Split(req.GetString("refs", ""), ",") {
		if r = strings.TrimSpace(r); r != "" {
			refs = append(refs, r)
		}
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("refs is required")
	}
	return s.edit(ctx, req, func(ed *editor.Editor) (any, error) {
		id, ok := ed.InsertImageRefs(refs)
		if !ok {
			return nil, fmt.Errorf("no images to insert")
		}
		return map[string]string{"blockId": id}, nil
	})
}

func (s *Server) handleInsertVideo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := req.GetString("ref", "")
	return s.edit(ctx, req, func(ed *editor.Editor) (any, error) {
		id, ok := ed.InsertVideo(ref)
		if !ok {
			return nil, fmt.Errorf("ref is required")
		}
		return map[string]string{"blockId": id}, nil
	})
}

func (s *Server) handleInsertLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := req.GetString("url", "")
	return s.edit(ctx, req, func(ed *editor.Editor) (any, error) {
		id, ok := ed.InsertEmbeddedLink(url)
		if !ok {
			return nil, fmt.Errorf("no video id found in %q", url)
		}
		b, err := ed.Block(id)
		if err != nil {
			return nil, err
		}
		return b, nil
	})
}

func (s *Server) handleMoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from := req.GetInt("from", -1)
	to := req.GetInt("to", -1)
	return s.edit(ctx, req, func(ed *editor.Editor) (any, error) {
		if err := ed.MoveBlock(from, to); err != nil {
			return nil, err
		}
		return map[string]int{"from": from, "to": to}, nil
	})
}

func (s *Server) handleRemoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, err := requireBlockID(req)
	if err != nil {
		return nil, err
	}
	return s.edit(ctx, req, func(ed *editor.Editor) (any, error) {
		if err := ed.RemoveBlock(blockID); err != nil {
			return nil, err
		}
		return map[string]string{"removed": blockID}, nil
	})
}

func (s *Server) handleSetText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, err := requireBlockID(req)
	if err != nil {
		return nil, err
	}
	spans, err := parseSpans(req.GetString("spans", ""))
	if err != nil {
		return nil, err
	}
	text := richtext.Text{Content: req.GetString("text", ""), Spans: spans}
	return s.edit(ctx, req, func(ed *editor.Editor) (any, error) {
		if err := ed.SetText(blockID, text); err != nil {
			return nil, err
		}
		return ed.Block(blockID)
	})
}

func (s *Server) handleToggleStyle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, err := requireBlockID(req)
	if err != nil {
		return nil, err
	}
	kind, ok := richtext.ParseStyleKind(req.GetString("style", ""))
	if !ok {
		return nil, fmt.Errorf("style must be bold, italic or underline")
	}
	r := richtext.Range{Start: req.GetInt("start", 0), End: req.GetInt("end", 0)}
	return s.edit(ctx, req, func(ed *editor.Editor) (any, error) {
		if err := ed.ToggleStyle(blockID, kind, r); err != nil {
			return nil, err
		}
		return ed.Block(blockID)
	})
}

func (s *Server) handleToggleHeading(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, err := requireBlockID(req)
	if err != nil {
		return nil, err
	}
	return s.edit(ctx, req, func(ed *editor.Editor) (any, error) {
		if err := ed.ToggleHeading(blockID); err != nil {
			return nil, err
		}
		return ed.Block(blockID)
	})
}

func (s *Server) handleCycleColumns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blockID, err := requireBlockID(req)
	if err != nil {
		return nil, err
	}
	return s.edit(ctx, req, func(ed *editor.Editor) (any, error) {
		if err := ed.CycleImageGridColumns(blockID); err != nil {
			return nil, err
		}
		return ed.Block(blockID)
	})
}
