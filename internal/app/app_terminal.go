package app

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// ============================================================
// Embedded Terminal
// ============================================================

// TerminalWrite sends input from xterm.js to the PTY.
func (a *App) TerminalWrite(data string) error {
	return a.term.Write(data)
}

// TerminalResize resizes the PTY.
func (a *App) TerminalResize(cols, rows int) error {
	return a.term.Resize(uint16(cols), uint16(rows))
}

// OpenInEditor exports the document's markup and opens it in the embedded
// terminal editor. Saved changes are reloaded while the editor runs.
func (a *App) OpenInEditor(docID string, lineNumber int) error {
	path, err := a.docs.ExportMarkup(a.ctx, docID)
	if err != nil {
		return fmt.Errorf("open in editor: %w", err)
	}
	if a.watcher != nil {
		if err := a.watcher.WatchFile(docID, path); err != nil {
			log.Printf("app: watch %s: %v", path, err)
		}
	}
	return a.term.Edit(docID, path, lineNumber)
}

// CloseEditor closes the embedded terminal session.
func (a *App) CloseEditor() {
	if id := a.term.DocumentID(); id != "" && a.watcher != nil {
		a.watcher.StopWatching(id)
	}
	a.term.Close()
}

// onEditorExit re-imports the final file content as an undoable edit.
func (a *App) onEditorExit(docID string) {
	if a.watcher != nil {
		defer a.watcher.StopWatching(docID)
	}
	content, err := os.ReadFile(a.docs.ExportPath(docID))
	if err != nil {
		return
	}
	if err := a.docs.ImportMarkup(a.ctx, docID, string(content)); err != nil {
		log.Printf("app: reload %s after edit: %v", docID, err)
	}
}

// terminalDataCallback returns the callback used to forward PTY output to the frontend.
func terminalDataCallback(a *App) func(data []byte) {
	return func(data []byte) {
		encoded := base64.StdEncoding.EncodeToString(data)
		wailsRuntime.EventsEmit(a.ctx, "terminal:data", encoded)
	}
}

// terminalExitCallback returns the callback used when the editor process exits.
func terminalExitCallback(a *App) func(docID string, exitLine int) {
	return func(docID string, exitLine int) {
		if docID != "" {
			a.onEditorExit(docID)
		}
		wailsRuntime.EventsEmit(a.ctx, "terminal:exit", map[string]any{
			"documentId": docID,
			"cursorLine": exitLine,
		})
	}
}
