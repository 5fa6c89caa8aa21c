package watch_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"blockpad/internal/watch"
)

type changes struct {
	mu   sync.Mutex
	seen []string
}

func (c *changes) record(docID, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, docID+":"+content)
}

func (c *changes) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.seen...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBridge_ReportsDebouncedWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc-1.html")
	if err := os.WriteFile(path, []byte("v0"), 0644); err != nil {
		t.Fatal(err)
	}

	c := &changes{}
	b, err := watch.New(c.record, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()

	if err := b.WatchFile("doc-1", path); err != nil {
		t.Fatalf("WatchFile: %v", err)
	}
	if id, ok := b.Watching(path); !ok || id != "doc-1" {
		t.Fatalf("expected path bound to doc-1, got %q %v", id, ok)
	}

	os.WriteFile(path, []byte("v1"), 0644)
	os.WriteFile(path, []byte("v2"), 0644)

	waitFor(t, func() bool { return len(c.list()) > 0 })
	time.Sleep(100 * time.Millisecond)
	got := c.list()
	if len(got) != 1 || got[0] != "doc-1:v2" {
		t.Fatalf("expected one coalesced change with final content, got %v", got)
	}
}

func TestBridge_IgnoresUnwatchedAndStopped(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "a.html")
	other := filepath.Join(dir, "b.html")
	os.WriteFile(watched, []byte("a"), 0644)

	c := &changes{}
	b, err := watch.New(c.record, 20*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	b.WatchFile("a", watched)
	os.WriteFile(other, []byte("b"), 0644)
	time.Sleep(150 * time.Millisecond)
	if n := len(c.list()); n != 0 {
		t.Fatalf("expected unwatched file ignored, got %d changes", n)
	}

	b.StopWatching("a")
	os.WriteFile(watched, []byte("a2"), 0644)
	time.Sleep(150 * time.Millisecond)
	if n := len(c.list()); n != 0 {
		t.Fatalf("expected no changes after StopWatching, got %d", n)
	}
}
