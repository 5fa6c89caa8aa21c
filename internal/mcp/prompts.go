package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("draft_document",
		mcp.WithPromptDescription("Guide through drafting a new document with headings, styled text and media"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("What the document is about"),
			mcp.RequiredArgument(),
		),
	), s.handleDraftPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("photo_journal",
		mcp.WithPromptDescription("Lay out a set of photos as captioned image grids"),
		mcp.WithArgument("refs",
			mcp.ArgumentDescription("Comma-separated image paths or URLs"),
			mcp.RequiredArgument(),
		),
	), s.handlePhotoJournalPrompt)
}

func (s *Server) handleDraftPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Draft a document about: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Draft a document about "%s". Follow these steps:

1. Use create_document with a fitting title.
2. Use insert_text_block with heading=true for the title line, then add body paragraphs.
3. Emphasize key phrases with toggle_style (offsets count UTF-16 code units).
4. Add an insert_link block if a relevant video exists.
5. Call get_document to review the result, then save_document.`, topic),
				},
			},
		},
	}, nil
}

func (s *Server) handlePhotoJournalPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	refs := req.Params.Arguments["refs"]
	return &mcp.GetPromptResult{
		Description: "Lay out photos as a journal",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Build a photo journal in the active document from these images: %s

1. Group related photos and add each group with insert_image_grid.
2. Put a short text block before each grid describing it.
3. Use cycle_columns when a grid reads better with fewer columns.
4. Finish with save_document.`, refs),
				},
			},
		},
	}, nil
}
