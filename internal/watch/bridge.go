// Package watch reloads documents whose exported markup is edited on disk.
package watch

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler is called with the new file content of a watched document.
type ChangeHandler func(docID, content string)

// DefaultDebounce coalesces the burst of events editors emit per save.
const DefaultDebounce = 200 * time.Millisecond

// Bridge watches exported markup files. Editors that save by rename produce
// Create events rather than Write, so both count as a change.
type Bridge struct {
	watcher  *fsnotify.Watcher
	onChange ChangeHandler
	debounce time.Duration

	mu       sync.Mutex
	watching map[string]string // abs path -> document ID
	dirs     map[string]int    // watched dir -> file count
	timers   map[string]*time.Timer
	done     chan struct{}
}

// New starts a bridge. A zero debounce uses DefaultDebounce.
func New(onChange ChangeHandler, debounce time.Duration) (*Bridge, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	b := &Bridge{
		watcher:  watcher,
		onChange: onChange,
		debounce: debounce,
		watching: make(map[string]string),
		dirs:     make(map[string]int),
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}

	go b.watchLoop()

	return b, nil
}

// WatchFile reports changes of filePath as changes of docID.
func (b *Bridge) WatchFile(docID, filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.watching[absPath]; ok {
		b.watching[absPath] = docID
		return nil
	}

	// fsnotify watches directories for file events
	dir := filepath.Dir(absPath)
	if b.dirs[dir] == 0 {
		if err := b.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	b.dirs[dir]++
	b.watching[absPath] = docID
	return nil
}

// StopWatching forgets every file of docID.
func (b *Bridge) StopWatching(docID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for path, id := range b.watching {
		if id != docID {
			continue
		}
		delete(b.watching, path)
		if t, ok := b.timers[path]; ok {
			t.Stop()
			delete(b.timers, path)
		}
		dir := filepath.Dir(path)
		b.dirs[dir]--
		if b.dirs[dir] <= 0 {
			delete(b.dirs, dir)
			b.watcher.Remove(dir)
		}
	}
}

// Watching returns the document bound to filePath, if any.
func (b *Bridge) Watching(filePath string) (string, bool) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.watching[absPath]
	return id, ok
}

// Close stops the watcher and any pending notification.
func (b *Bridge) Close() error {
	b.mu.Lock()
	select {
	case <-b.done:
		b.mu.Unlock()
		return nil
	default:
		close(b.done)
	}
	for path, t := range b.timers {
		t.Stop()
		delete(b.timers, path)
	}
	b.mu.Unlock()
	return b.watcher.Close()
}

func (b *Bridge) schedule(absPath string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, watched := b.watching[absPath]; !watched {
		return
	}
	if t, ok := b.timers[absPath]; ok {
		t.Stop()
	}
	b.timers[absPath] = time.AfterFunc(b.debounce, func() { b.fire(absPath) })
}

func (b *Bridge) fire(absPath string) {
	b.mu.Lock()
	delete(b.timers, absPath)
	docID, watched := b.watching[absPath]
	closed := false
	select {
	case <-b.done:
		closed = true
	default:
	}
	b.mu.Unlock()
	if !watched || closed {
		return
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		log.Printf("watch bridge: read file %s: %v", absPath, err)
		return
	}
	if b.onChange != nil {
		b.onChange(docID, string(content))
	}
}

func (b *Bridge) watchLoop() {
	for {
		select {
		case event, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				absPath, _ := filepath.Abs(event.Name)
				b.schedule(absPath)
			}
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watch bridge: watcher error: %v", err)
		}
	}
}
