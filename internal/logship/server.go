package logship

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Uploader posts entries as JSON to an HTTP endpoint.
type Uploader struct {
	URL    string
	Client *http.Client
}

func NewUploader(url string) *Uploader {
	return &Uploader{URL: url, Client: &http.Client{Timeout: 15 * time.Second}}
}

func (u *Uploader) Upload(ctx context.Context, e Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := u.Client.Do(req)
	if err != nil {
		return fmt.Errorf("upload entry: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload entry: HTTP %d", resp.StatusCode)
	}
	return nil
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server is the collector side: it accepts websocket connections, queues
// every received entry without bound and uploads them one by one.
type Server struct {
	uploader *Uploader
	limiter  *rate.Limiter

	mu     sync.Mutex
	queue  []Entry
	signal chan struct{}

	// Uploaded, when set, is called after each upload attempt.
	Uploaded func(e Entry, err error)
}

// NewServer uploads at most perSecond entries per second; zero disables
// throttling.
func NewServer(uploader *Uploader, perSecond float64) *Server {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Server{
		uploader: uploader,
		limiter:  rate.NewLimiter(limit, 1),
		signal:   make(chan struct{}, 1),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[LOGSHIP] upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	for {
		var e Entry
		if err := conn.ReadJSON(&e); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[LOGSHIP] unexpected close: %v", err)
			}
			return
		}
		s.Enqueue(e)
	}
}

// Enqueue adds an entry for upload. It never blocks.
func (s *Server) Enqueue(e Entry) {
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Server) next() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return Entry{}, false
	}
	e := s.queue[0]
	s.queue = s.queue[1:]
	return e, true
}

// Run uploads queued entries until ctx is done. Upload failures are logged
// and the entry is dropped.
func (s *Server) Run(ctx context.Context) error {
	for {
		e, ok := s.next()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.signal:
				continue
			}
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		err := s.uploader.Upload(ctx, e)
		if err != nil {
			log.Printf("[LOGSHIP] %v", err)
		}
		if s.Uploaded != nil {
			s.Uploaded(e, err)
		}
	}
}
