package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	mcpserver "blockpad/internal/mcp"
	"blockpad/internal/service"
)

// ServeMCP runs the app as a standalone MCP server on stdin/stdout with no GUI.
// Dirty documents are saved on autosave ticks and again on exit.
func ServeMCP() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	b, err := openBackend(ctx, service.NopEmitter{})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer b.Close()

	if err := b.docs.StartAutosave(ctx, b.cfg.Autosave.Schedule); err != nil {
		log.Printf("[MCP] autosave disabled: %v", err)
	}
	defer b.docs.Shutdown(context.Background())

	mcpSrv := mcpserver.New(mcpserver.Deps{Documents: b.docs})

	log.Println("[MCP] Starting standalone stdio server...")
	if err := mcpSrv.ServeStdio(); err != nil {
		log.Printf("MCP server error: %v", err)
	}
}
