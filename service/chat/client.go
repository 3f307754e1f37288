package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one WebSocket session on this gateway. Outbound frames go
// through Send and are drained by a single writer goroutine, gorilla's
// WriteMessage must never be called from two goroutines at once.
type Client struct {
	ConnID string
	WS     *websocket.Conn
	Send   chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(connID string, ws *websocket.Conn, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 256
	}
	return &Client{
		ConnID: connID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.ConnID }

// Enqueue implements the fanout sink. A full queue drops the frame
// instead of blocking a fanout worker behind one slow reader.
func (c *Client) Enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// CloseSend tells the write pump to flush a close frame and exit.
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() { close(c.done) })
}

// WritePump owns all writes on the socket. It drains Send with per-write
// deadlines and pings the peer to keep the read deadline moving.
func (c *Client) WritePump(pingEvery, writeWait time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer func() {
		ticker.Stop()
		_ = c.WS.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.WS.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case data := <-c.Send:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
