package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"blockpad/internal/domain"
	"blockpad/internal/service"
	"blockpad/internal/storage"

	"github.com/mark3labs/mcp-go/mcp"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := storage.New(t.TempDir() + "/mcp.db")
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	docs := service.NewDocumentService(storage.NewDocumentStore(db), nil, service.DocumentServiceOptions{ExportDir: t.TempDir()})
	return New(Deps{Documents: docs})
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) string {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("tool call failed: %v", err)
	}
	return res.Content[0].(mcp.TextContent).Text
}

func callErr(handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) error {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	_, err := handler(context.Background(), req)
	return err
}

func blockID(t *testing.T, out string) string {
	t.Helper()
	var v map[string]string
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return v["blockId"]
}

// ─────────────────────────────────────────────────────────────
// Tools
// ─────────────────────────────────────────────────────────────

func TestTools_NeedActiveDocument(t *testing.T) {
	s := newTestServer(t)
	if err := callErr(s.handleGetDocument, nil); err == nil {
		t.Fatal("expected error without an active document")
	}
}

func TestTools_EditSession(t *testing.T) {
	s := newTestServer(t)

	call(t, s.handleCreateDocument, map[string]any{"title": "Trip"})

	id := blockID(t, call(t, s.handleInsertTextBlock, map[string]any{"text": "Day one", "heading": true}))
	if id == "" {
		t.Fatal("expected a block id")
	}
	out := call(t, s.handleToggleStyle, map[string]any{"blockId": id, "style": "bold", "start": 0.0, "end": 3.0})
	if !strings.Contains(out, "Day one") {
		t.Errorf("expected block in result, got %s", out)
	}

	link := call(t, s.handleInsertLink, map[string]any{"url": "https://youtu.be/dQw4w9WgXcQ"})
	if !strings.Contains(link, "dQw4w9WgXcQ") {
		t.Errorf("expected resolved video id, got %s", link)
	}
	if err := callErr(s.handleInsertLink, map[string]any{"url": "https://example.com"}); err == nil {
		t.Error("expected unresolvable link to fail")
	}

	markup := call(t, s.handleExportMarkup, nil)
	var exported map[string]string
	json.Unmarshal([]byte(markup), &exported)
	if !strings.Contains(exported["markup"], "<h1><b>Day</b> one</h1>") {
		t.Errorf("unexpected markup %s", exported["markup"])
	}
	if exported["path"] == "" {
		t.Error("expected export path")
	}

	call(t, s.handleUndo, nil)
	view := call(t, s.handleGetDocument, nil)
	if strings.Contains(view, "dQw4w9WgXcQ") {
		t.Error("expected undo to drop the link block")
	}
	call(t, s.handleRedo, nil)

	call(t, s.handleSaveDocument, nil)
	list := call(t, s.handleListDocuments, nil)
	if !strings.Contains(list, "Trip") {
		t.Errorf("expected saved document in list, got %s", list)
	}
}

func TestTools_MoveAndRemove(t *testing.T) {
	s := newTestServer(t)
	call(t, s.handleCreateDocument, nil)
	video := blockID(t, call(t, s.handleInsertVideo, map[string]any{"ref": "/clips/a.mp4"}))

	call(t, s.handleMoveBlock, map[string]any{"from": 1.0, "to": 0.0})
	view, err := s.docs.View(s.activeDocID)
	if err != nil {
		t.Fatal(err)
	}
	if view.Blocks[0].Block.BlockID() != video {
		t.Fatalf("expected video first after move")
	}
	if err := callErr(s.handleMoveBlock, map[string]any{"from": 0.0, "to": 5.0}); err == nil {
		t.Error("expected out of range move to fail")
	}

	call(t, s.handleRemoveBlock, map[string]any{"blockId": video})
	view, _ = s.docs.View(s.activeDocID)
	if len(view.Blocks) != 1 || view.Blocks[0].Kind != domain.BlockKindText {
		t.Errorf("expected only the text block left, got %+v", view.Blocks)
	}
}

func TestTools_SetTextWithSpans(t *testing.T) {
	s := newTestServer(t)
	created := call(t, s.handleCreateDocument, nil)
	var view struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(created), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	live, err := s.docs.View(view.ID)
	if err != nil {
		t.Fatal(err)
	}
	id := live.Blocks[0].Block.BlockID()

	call(t, s.handleSetText, map[string]any{
		"blockId": id,
		"text":    "hello world",
		"spans":   `[{"style":"italic","start":6,"end":11}]`,
	})
	markup, _ := s.docs.Markup(view.ID)
	if !strings.Contains(markup, "hello <i>world</i>") {
		t.Errorf("unexpected markup %s", markup)
	}

	if err := callErr(s.handleSetText, map[string]any{"blockId": id, "text": "x", "spans": `[{"style":"strike"}]`}); err == nil {
		t.Error("expected unknown style to fail")
	}
}

func TestTools_ImportMarkupAndResource(t *testing.T) {
	s := newTestServer(t)
	call(t, s.handleCreateDocument, nil)
	call(t, s.handleImportMarkup, map[string]any{
		"markup": "<div class='editor'><div class='text'><p>imported</p></div></div>",
	})

	req := mcp.ReadResourceRequest{}
	req.Params.URI = documentURIPrefix + s.activeDocID + "/markup"
	contents, err := s.handleDocumentMarkupResource(context.Background(), req)
	if err != nil {
		t.Fatalf("read resource: %v", err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	if !strings.Contains(text, "imported") {
		t.Errorf("unexpected resource %s", text)
	}
}

func TestDocumentIDFromURI(t *testing.T) {
	tests := map[string]string{
		"blockpad://document/abc-123/markup": "abc-123",
		"blockpad://document/abc":            "",
		"notes://page/x/blocks":              "",
	}
	for uri, want := range tests {
		if got := documentIDFromURI(uri); got != want {
			t.Errorf("documentIDFromURI(%q) = %q, want %q", uri, got, want)
		}
	}
}
