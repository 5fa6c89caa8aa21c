package mcpserver

import (
	"context"
	"fmt"

	"blockpad/internal/editor"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerDocumentTools() {
	// ── create_document ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a new document and make it the active document"),
		mcp.WithString("title", mcp.Description("Document title (optional)")),
	), s.handleCreateDocument)

	// ── list_documents ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List stored documents, most recently updated first"),
	), s.handleListDocuments)

	// ── open_document ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("open_document",
		mcp.WithDescription("Open a stored document and make it the active document. Tools that accept documentId default to it."),
		mcp.WithString("documentId", mcp.Description("Document ID"), mcp.Required()),
	), s.handleOpenDocument)

	// ── save_document ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_document",
		mcp.WithDescription("Persist the live state of a document"),
		mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
	), s.handleSaveDocument)

	// ── get_document ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Get the blocks, markup and undo state of an open document"),
		mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
	), s.handleGetDocument)

	// ── undo / redo ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last edit of a document"),
		mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
	), s.handleUndo)
	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone edit of a document"),
		mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
	), s.handleRedo)

	// ── export_markup / import_markup ──────────────────
	s.mcp.AddTool(mcp.NewTool("export_markup",
		mcp.WithDescription("Return the markup of a document and write it to the export directory when one is configured"),
		mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
	), s.handleExportMarkup)
	s.mcp.AddTool(mcp.NewTool("import_markup",
		mcp.WithDescription("Replace a document with parsed markup. The replacement can be undone."),
		mcp.WithString("markup", mcp.Description("Markup as produced by export_markup"), mcp.Required()),
		mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
	), s.handleImportMarkup)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleCreateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view, err := s.docs.Create(ctx, req.GetString("title", ""))
	if err != nil {
		return nil, err
	}
	s.setActive(view.ID)
	return jsonResult(view)
}

func (s *Server) handleListDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.docs.List()
	if err != nil {
		return nil, err
	}
	return jsonResult(docs)
}

func (s *Server) handleOpenDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("documentId", "")
	if id == "" {
		return nil, fmt.Errorf("documentId is required")
	}
	view, err := s.docs.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	s.setActive(id)
	return jsonResult(view)
}

func (s *Server) handleSaveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.resolveDocID(req)
	if err != nil {
		return nil, err
	}
	if err := s.docs.Save(ctx, id); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Document %s saved", id)), nil
}

func (s *Server) handleGetDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.resolveDocID(req)
	if err != nil {
		return nil, err
	}
	view, err := s.docs.View(id)
	if err != nil {
		return nil, err
	}
	return jsonResult(view)
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.edit(ctx, req, func(ed *editor.Editor) (any, error) {
		return map[string]bool{"undone": ed.Undo()}, nil
	})
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.edit(ctx, req, func(ed *editor.Editor) (any, error) {
		return map[string]bool{"redone": ed.Redo()}, nil
	})
}

func (s *Server) handleExportMarkup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.resolveDocID(req)
	if err != nil {
		return nil, err
	}
	markup, err := s.docs.Markup(id)
	if err != nil {
		return nil, err
	}
	result := map[string]string{"documentId": id, "markup": markup}
	if s.docs.ExportPath(id) != "" {
		path, err := s.docs.ExportMarkup(ctx, id)
		if err != nil {
			return nil, err
		}
		result["path"] = path
	}
	return jsonResult(result)
}

func (s *Server) handleImportMarkup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markup := req.GetString("markup", "")
	if markup == "" {
		return nil, fmt.Errorf("markup is required")
	}
	id, err := s.resolveDocID(req)
	if err != nil {
		return nil, err
	}
	if err := s.docs.ImportMarkup(ctx, id, markup); err != nil {
		return nil, err
	}
	view, err := s.docs.View(id)
	if err != nil {
		return nil, err
	}
	return jsonResult(view)
}
