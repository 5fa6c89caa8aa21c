// Package logship ships log entries to a collector over a long-lived
// connection. Entries queue while the connection is down and are flushed in
// order once it comes back; reconnects back off exponentially.
package logship

import (
	"context"
	"log"
	"sync"
	"time"
)

type Entry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	TS      int64  `json:"ts"` // unix milliseconds
}

// NewEntry stamps an entry with the current time.
func NewEntry(level, message string) Entry {
	return Entry{Level: level, Message: message, TS: time.Now().UnixMilli()}
}

// Conn is an established connection to the collector.
type Conn interface {
	Send(ctx context.Context, e Entry) error
	Close() error
	// Done is closed once the connection ends, whether it was closed
	// locally or dropped by the remote side.
	Done() <-chan struct{}
}

type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context) (Conn, error) { return f(ctx) }

type Config struct {
	InitialBackoff time.Duration // default 500ms
	MaxBackoff     time.Duration // default 30s
	SendTimeout    time.Duration // default 5s
	EnableLog      bool
}

func DefaultConfig() Config {
	return Config{
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		SendTimeout:    5 * time.Second,
		EnableLog:      true,
	}
}

// Client keeps at most one connection and at most one reconnect loop alive.
type Client struct {
	dialer Dialer
	cfg    Config

	mu           sync.Mutex
	bound        bool
	conn         Conn
	queue        []Entry
	delay        time.Duration
	reconnecting bool
	cancel       context.CancelFunc

	sendMu sync.Mutex // orders queue flushes against direct sends
	wg     sync.WaitGroup
}

func NewClient(d Dialer, cfg Config) *Client {
	def := DefaultConfig()
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = max(def.MaxBackoff, cfg.InitialBackoff)
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = def.SendTimeout
	}
	return &Client{dialer: d, cfg: cfg, delay: cfg.InitialBackoff}
}

func (c *Client) logf(format string, args ...any) {
	if c.cfg.EnableLog {
		log.Printf("[LOGSHIP] "+format, args...)
	}
}

// Bind starts connecting in the background.
func (c *Client) Bind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bound {
		return
	}
	c.bound = true
	c.startConnectLocked(0)
}

// Unbind drops the connection and any pending reconnect. Queued entries are
// kept for the next Bind.
func (c *Client) Unbind() {
	c.mu.Lock()
	c.bound = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.reconnecting = false
	c.delay = c.cfg.InitialBackoff
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// Close unbinds and waits for background goroutines to exit.
func (c *Client) Close() {
	c.Unbind()
	c.wg.Wait()
}

// SendLog ships e, or queues it while disconnected. It returns false only
// when a send on a live connection failed; the entry is then requeued.
func (c *Client) SendLog(e Entry) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	conn := c.conn
	if conn == nil || len(c.queue) > 0 {
		c.queue = append(c.queue, e)
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()

	if err := c.send(conn, e); err != nil {
		c.logf("send failed: %v", err)
		c.requeue(e)
		c.handleDisconnect(conn)
		return false
	}
	return true
}

func (c *Client) send(conn Conn, e Entry) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SendTimeout)
	defer cancel()
	return conn.Send(ctx, e)
}

func (c *Client) requeue(e Entry) {
	c.mu.Lock()
	c.queue = append([]Entry{e}, c.queue...)
	c.mu.Unlock()
}

// Pending returns the number of queued entries.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) Bound() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bound
}

// ─────────────────────────────────────────────────────────────
// Connection lifecycle
// ─────────────────────────────────────────────────────────────

func (c *Client) startConnectLocked(wait time.Duration) {
	if c.reconnecting {
		return
	}
	c.reconnecting = true
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.wg.Add(1)
	go c.connectLoop(ctx, cancel, wait)
}

func (c *Client) connectLoop(ctx context.Context, cancel context.CancelFunc, wait time.Duration) {
	defer c.wg.Done()
	defer cancel()
	for {
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		conn, err := c.dialer.Dial(ctx)
		c.mu.Lock()
		if ctx.Err() != nil || !c.bound {
			c.mu.Unlock()
			if conn != nil {
				conn.Close()
			}
			return
		}
		if err != nil {
			wait = c.nextDelayLocked()
			c.mu.Unlock()
			c.logf("connect failed: %v, retrying in %v", err, wait)
			continue
		}
		c.conn = conn
		c.delay = c.cfg.InitialBackoff
		c.reconnecting = false
		c.cancel = nil
		c.mu.Unlock()

		c.logf("connected")
		c.wg.Add(1)
		go c.watch(conn)
		c.flush(conn)
		return
	}
}

// nextDelayLocked returns the current backoff and doubles it up to the cap.
func (c *Client) nextDelayLocked() time.Duration {
	d := c.delay
	c.delay = min(c.delay*2, c.cfg.MaxBackoff)
	return d
}

func (c *Client) watch(conn Conn) {
	defer c.wg.Done()
	<-conn.Done()
	c.handleDisconnect(conn)
}

// handleDisconnect is the single path for every kind of connection loss.
// Only the first report for the current connection schedules a reconnect.
func (c *Client) handleDisconnect(conn Conn) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.bound {
		wait := c.nextDelayLocked()
		c.logf("disconnected, reconnecting in %v", wait)
		c.startConnectLocked(wait)
	}
	c.mu.Unlock()
	conn.Close()
}

// flush drains the queue in order over conn.
func (c *Client) flush(conn Conn) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	for {
		c.mu.Lock()
		if c.conn != conn || len(c.queue) == 0 {
			c.mu.Unlock()
			return
		}
		e := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()

		if err := c.send(conn, e); err != nil {
			c.logf("flush failed: %v", err)
			c.requeue(e)
			c.handleDisconnect(conn)
			return
		}
	}
}
