package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lfvieira/hypershort/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// MidsHandler is called with the parsed token -> mid price map of each
// allMids message.
type MidsHandler func(mids map[string]float64)

// WSClient is a single-use WebSocket connection to the Hyperliquid feed. It
// does not reconnect; the feed supervisor owns the reconnect policy and
// creates a fresh client per attempt.
type WSClient struct {
	wsURL string

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	done chan struct{}
}

// NewWSClient creates a client for the given WebSocket endpoint, e.g.
// "wss://api.hyperliquid.xyz/ws".
func NewWSClient(wsURL string) *WSClient {
	return &WSClient{
		wsURL: wsURL,
		done:  make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and starts the keep-alive
// ping loop.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("hyperliquid/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("hyperliquid/ws: connect: %w", err)
	}

	w.conn = conn

	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.pingLoop()

	return nil
}

// SubscribeAllMids sends the subscription request for the all-mid-prices
// channel. Must be called after Connect.
func (w *WSClient) SubscribeAllMids() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("hyperliquid/ws: not connected")
	}

	cmd := wsRequest{
		Method:       "subscribe",
		Subscription: wsSubscription{Type: "allMids"},
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("hyperliquid/ws: marshal subscribe: %w", err)
	}

	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("hyperliquid/ws: subscribe: %w", err)
	}

	return nil
}

// Listen reads messages until the connection drops, the context is
// cancelled, or Close is called. allMids messages are parsed and dispatched
// to handler; everything else is ignored. Listen always returns a non-nil
// error describing why it stopped.
func (w *WSClient) Listen(ctx context.Context, handler MidsHandler) error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("hyperliquid/ws: not connected")
	}

	// Unblock the read below when the caller goes away.
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			select {
			case <-w.done:
				return fmt.Errorf("hyperliquid/ws: %w", domain.ErrWSDisconnect)
			default:
			}
			return fmt.Errorf("hyperliquid/ws: read: %w", err)
		}

		if mids, ok := ParseAllMids(raw); ok {
			handler(mids)
		}
	}
}

// Close shuts down the connection and the ping loop. Safe to call more than
// once.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}
	return nil
}

// pingLoop sends periodic ping messages to keep the connection alive.
func (w *WSClient) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.Lock()
			conn := w.conn
			w.mu.Unlock()

			if conn == nil {
				return
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
