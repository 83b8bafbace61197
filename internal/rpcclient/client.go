// Package rpcclient provides a Kaspa wRPC (JSON encoding) client over a
// websocket connection.
package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Atomik-Global/atomik-wallet/internal/log"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrConnection is returned when the node cannot be reached or the
// connection drops while a call is in flight.
var ErrConnection = errors.New("rpc connection error")

// ErrNotConnected is returned by calls made before Connect.
var ErrNotConnected = fmt.Errorf("%w: not connected", ErrConnection)

// request is a wRPC request frame.
type request struct {
	ID     uint64      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

// frame is any frame the node sends: a response (ID set) or a
// notification (ID absent).
type frame struct {
	ID     *uint64         `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

// RPCError is returned when the node responds with an error.
type RPCError struct {
	Method  string
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("rpc %s error %d: %s", e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("rpc %s error: %s", e.Method, e.Message)
}

// NotificationHandler receives the raw params of a notification.
type NotificationHandler func(params json.RawMessage)

// Subscription identifies a registered notification handler.
type Subscription uint64

// Client is a wRPC websocket client. It is safe for concurrent use.
type Client struct {
	url    string
	dialer *websocket.Dialer
	log    zerolog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	done    chan struct{}
	pending map[uint64]chan frame

	writeMu sync.Mutex
	nextID  atomic.Uint64

	subsMu  sync.RWMutex
	subs    map[string]map[Subscription]NotificationHandler
	nextSub Subscription
}

// New creates a client for the given ws:// or wss:// endpoint. It does not
// connect.
func New(url string) *Client {
	return &Client{
		url:     url,
		dialer:  websocket.DefaultDialer,
		log:     log.RPC.With().Str("url", url).Logger(),
		pending: make(map[uint64]chan frame),
		subs:    make(map[string]map[Subscription]NotificationHandler),
	}
}

// URL returns the endpoint the client dials.
func (c *Client) URL() string {
	return c.url
}

// Connect dials the node. It is a no-op when already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrConnection, c.url, err)
	}
	c.conn = conn
	c.done = make(chan struct{})
	go c.readLoop(conn, c.done)

	c.log.Info().Msg("Connected to node")
	return nil
}

// Disconnect closes the connection. In-flight calls fail with ErrConnection.
// Subscriptions survive and are served again after the next Connect.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	conn, done := c.conn, c.done
	c.mu.Unlock()
	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	err := conn.Close()
	<-done
	c.log.Info().Msg("Disconnected from node")
	if err != nil {
		return fmt.Errorf("%w: close: %v", ErrConnection, err)
	}
	return nil
}

// IsConnected reports whether the websocket is open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Call invokes method and unmarshals the response params into result.
// If result is nil, the response is discarded.
func (c *Client) Call(ctx context.Context, method string, params, result interface{}) error {
	if params == nil {
		params = struct{}{}
	}

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	id := c.nextID.Add(1)
	ch := make(chan frame, 1)
	c.pending[id] = ch
	done := c.done
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	body, err := json.Marshal(request{ID: id, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, body)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrConnection, method, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return &RPCError{Method: method, Code: resp.Error.Code, Message: resp.Error.Message}
		}
		if result != nil && len(resp.Params) > 0 {
			if err := json.Unmarshal(resp.Params, result); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}
		return nil
	case <-done:
		return fmt.Errorf("%w: connection closed during %s", ErrConnection, method)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers h for notifications named method (for example
// "utxosChangedNotification"). The returned handle removes it again.
func (c *Client) Subscribe(method string, h NotificationHandler) Subscription {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.nextSub++
	id := c.nextSub
	if c.subs[method] == nil {
		c.subs[method] = make(map[Subscription]NotificationHandler)
	}
	c.subs[method][id] = h
	return id
}

// Unsubscribe removes a handler. Unknown handles are ignored.
func (c *Client) Unsubscribe(id Subscription) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for method, hs := range c.subs {
		if _, ok := hs[id]; ok {
			delete(hs, id)
			if len(hs) == 0 {
				delete(c.subs, method)
			}
			return
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		close(done)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn().Err(err).Msg("Connection dropped")
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.log.Debug().Err(err).Msg("Ignoring malformed frame")
			continue
		}

		if f.ID != nil {
			c.mu.Lock()
			ch, ok := c.pending[*f.ID]
			c.mu.Unlock()
			if ok {
				ch <- f
			}
			continue
		}
		c.dispatch(f.Method, f.Params)
	}
}

func (c *Client) dispatch(method string, params json.RawMessage) {
	c.subsMu.RLock()
	handlers := make([]NotificationHandler, 0, len(c.subs[method]))
	for _, h := range c.subs[method] {
		handlers = append(handlers, h)
	}
	c.subsMu.RUnlock()

	if len(handlers) == 0 {
		c.log.Trace().Str("method", method).Msg("Notification without subscribers")
		return
	}
	for _, h := range handlers {
		h(params)
	}
}
