package service

import (
	"context"
	"sync"
)

// saveGuard lets one save per document run at a time, whether autosave or
// a manual save started it. Each in-flight save owns a channel that is
// closed when it finishes.
type saveGuard struct {
	mu       sync.Mutex
	inFlight map[string]chan struct{}
}

// TryLock claims docID. It returns false while another save of it runs.
func (g *saveGuard) TryLock(docID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[docID]; busy {
		return false
	}
	if g.inFlight == nil {
		g.inFlight = make(map[string]chan struct{})
	}
	g.inFlight[docID] = make(chan struct{})
	return true
}

// Unlock releases a claim taken by TryLock. Releasing an unclaimed id is a
// no-op.
func (g *saveGuard) Unlock(docID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if done, ok := g.inFlight[docID]; ok {
		close(done)
		delete(g.inFlight, docID)
	}
}

func (g *saveGuard) IsRunning(docID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.inFlight[docID]
	return busy
}

// WaitAll returns once every save running at call time has finished, or
// when ctx is done.
func (g *saveGuard) WaitAll(ctx context.Context) {
	g.mu.Lock()
	pending := make([]chan struct{}, 0, len(g.inFlight))
	for _, done := range g.inFlight {
		pending = append(pending, done)
	}
	g.mu.Unlock()

	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			return
		}
	}
}
