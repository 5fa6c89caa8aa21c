package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/fogleman/gg"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"blockpad/internal/config"
	"blockpad/internal/editor"
	"blockpad/internal/gesture"
	"blockpad/internal/logship"
	"blockpad/internal/secret"
	"blockpad/internal/service"
	"blockpad/internal/sketch"
	"blockpad/internal/storage"
	"blockpad/internal/terminal"
	"blockpad/internal/watch"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx context.Context

	cfg   *config.Config
	store storage.Store
	docs  *service.DocumentService

	logs      *logship.Client
	collector *http.Server
	stopLogs  context.CancelFunc

	watcher *watch.Bridge
	term    *terminal.Manager

	// Image viewer
	viewer    *gesture.Engine
	viewerMu  sync.Mutex
	viewerImg image.Image

	// Sketch pad
	sketches     *sketch.Recorder
	sketchStyle  sketch.Style
	replayMu     sync.Mutex
	replayCancel context.CancelFunc
}

// New creates a new App.
func New() *App {
	return &App{}
}

// wailsEmitter forwards service events to the frontend.
type wailsEmitter struct {
	ctx context.Context
}

func (w wailsEmitter) Emit(_ context.Context, event string, data any) {
	wailsRuntime.EventsEmit(w.ctx, event, data)
}

// backend is what both the GUI and the standalone MCP server run on.
type backend struct {
	cfg   *config.Config
	store storage.Store
	logs  *logship.Client
	docs  *service.DocumentService
}

func (b *backend) Close() {
	if b.logs != nil {
		b.logs.Close()
	}
	if b.store != nil {
		b.store.Close()
	}
}

// storagePassword resolves the document store password: the configured
// environment variable first, then the secret stores.
func storagePassword(cfg config.StorageConfig) string {
	if p := cfg.GetPassword(); p != "" {
		return p
	}
	p, err := secret.Lookup("storage-password", secret.NewEnvStore(), secret.NewKeychainStore())
	if err != nil {
		log.Printf("app: storage password lookup: %v", err)
	}
	return p
}

// openBackend loads configuration and opens the document store and service.
func openBackend(ctx context.Context, emitter service.EventEmitter) (*backend, error) {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := storage.OpenStore(ctx, cfg.Storage, cfg.DatabasePath(), storagePassword(cfg.Storage))
	if err != nil {
		return nil, err
	}

	b := &backend{cfg: cfg, store: store}
	var sink service.LogSink
	if cfg.Logship.IsEnabled() {
		b.logs = logship.NewClient(logship.WebSocketDialer{URL: cfg.Logship.URL}, cfg.Logship.Client())
		b.logs.Bind()
		sink = b.logs
	}

	b.docs = service.NewDocumentService(store, emitter, service.DocumentServiceOptions{
		Editor:    editor.Config{MaxHistory: cfg.History.GetMaxDepth()},
		ExportDir: cfg.ExportDir(),
		Logs:      sink,
	})
	return b, nil
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	// macOS: disable "Press and Hold" so key repeat works in the embedded editor.
	exec.Command("defaults", "write", "com.wails.blockpad", "ApplePressAndHoldEnabled", "-bool", "false").Run()

	b, err := openBackend(ctx, wailsEmitter{ctx: ctx})
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to start: %v", err)
		return
	}
	a.cfg, a.store, a.logs, a.docs = b.cfg, b.store, b.logs, b.docs

	if err := a.docs.StartAutosave(ctx, a.cfg.Autosave.Schedule); err != nil {
		wailsRuntime.LogErrorf(ctx, "Autosave disabled: %v", err)
	}
	a.startCollector()

	// External edits to exported markup flow back into the open document.
	w, err := watch.New(func(docID, content string) {
		if err := a.docs.ReloadFromFile(a.ctx, docID, content); err != nil {
			log.Printf("app: reload %s: %v", docID, err)
		}
	}, watch.DefaultDebounce)
	if err != nil {
		wailsRuntime.LogErrorf(ctx, "Failed to create file watcher: %v", err)
	}
	a.watcher = w

	a.term = terminal.New(terminal.Options{
		OnData: terminalDataCallback(a),
		OnExit: terminalExitCallback(a),
	})

	a.viewer = gesture.NewEngine(a.cfg.Viewer.Gesture())
	a.viewer.OnChange(func(m gg.Matrix) {
		wailsRuntime.EventsEmit(a.ctx, "viewer:matrix", matrixView(m))
	})

	a.sketches = sketch.NewRecorder()
	a.sketchStyle = a.cfg.Sketch.Style()
}

// startCollector runs the log collector endpoint when configured.
func (a *App) startCollector() {
	lc := a.cfg.Logship
	if !lc.IsCollectorEnabled() {
		return
	}
	srv := logship.NewServer(logship.NewUploader(lc.UploadURL), lc.UploadRate)
	srv.Uploaded = func(e logship.Entry, err error) {
		if err != nil {
			log.Printf("[LOGSHIP] upload failed: %v", err)
		}
	}
	ctx, cancel := context.WithCancel(a.ctx)
	a.stopLogs = cancel
	go srv.Run(ctx)

	a.collector = &http.Server{Addr: lc.Listen, Handler: srv}
	go func() {
		if err := a.collector.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[LOGSHIP] collector stopped: %v", err)
		}
	}()
	log.Printf("[LOGSHIP] collector listening on %s", lc.Listen)
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	a.SketchStopReplay()
	if a.term != nil {
		a.term.Close()
	}
	if a.watcher != nil {
		a.watcher.Close()
	}
	if a.docs != nil {
		a.docs.Shutdown(ctx)
	}
	if a.collector != nil {
		sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		a.collector.Shutdown(sctx)
		cancel()
	}
	if a.stopLogs != nil {
		a.stopLogs()
	}
	if a.logs != nil {
		a.logs.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}
