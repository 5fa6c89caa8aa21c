package logship

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketDialer connects to a collector endpoint such as ws://host/logs.
type WebSocketDialer struct {
	URL    string
	Header http.Header
}

func (d WebSocketDialer) Dial(ctx context.Context) (Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, d.URL, d.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}
	c := &wsConn{ws: ws, done: make(chan struct{})}
	go c.readLoop()
	return c, nil
}

type wsConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
}

// readLoop discards incoming frames; its only job is noticing hangups.
func (c *wsConn) readLoop() {
	defer c.Close()
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsConn) Send(ctx context.Context, e Entry) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.done:
		return fmt.Errorf("send log: connection closed")
	default:
	}
	deadline, _ := ctx.Deadline()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("send log: %w", err)
	}
	if err := c.ws.WriteJSON(e); err != nil {
		return fmt.Errorf("send log: %w", err)
	}
	return nil
}

func (c *wsConn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

func (c *wsConn) Done() <-chan struct{} {
	return c.done
}
