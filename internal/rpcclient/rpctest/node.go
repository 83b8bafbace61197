// Package rpctest runs an in-process fake Kaspa node speaking wRPC JSON over
// a websocket, for tests of code built on rpcclient.
package rpctest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

// Handler answers one method. A returned error is sent as an RPC error.
type Handler func(params json.RawMessage) (interface{}, error)

// Call is a request the node received.
type Call struct {
	Method string
	Params json.RawMessage
}

type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *conn) write(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

// Node is a fake wRPC node.
type Node struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	handlers map[string]Handler
	conns    map[*conn]struct{}
	calls    []Call
}

// NewNode starts a node that is closed when the test ends. getServerInfo
// answers for network and the notify methods succeed until replaced with
// Handle.
func NewNode(t testing.TB, network string) *Node {
	n := &Node{
		handlers: make(map[string]Handler),
		conns:    make(map[*conn]struct{}),
	}
	n.HandleResult("getServerInfo", map[string]interface{}{
		"rpcApiVersion":   1,
		"serverVersion":   "rpctest",
		"networkId":       network,
		"hasUtxoIndex":    true,
		"isSynced":        true,
		"virtualDaaScore": 0,
	})
	for _, m := range []string{"notifyUtxosChanged", "stopNotifyingUtxosChanged", "notifyVirtualDaaScoreChanged"} {
		n.HandleResult(m, struct{}{})
	}
	n.srv = httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(n.Close)
	return n
}

// URL returns the ws:// endpoint of the node.
func (n *Node) URL() string {
	return "ws" + strings.TrimPrefix(n.srv.URL, "http")
}

// Handle installs h for method, replacing any previous handler.
func (n *Node) Handle(method string, h Handler) {
	n.mu.Lock()
	n.handlers[method] = h
	n.mu.Unlock()
}

// HandleResult makes method always answer with result.
func (n *Node) HandleResult(method string, result interface{}) {
	n.Handle(method, func(json.RawMessage) (interface{}, error) {
		return result, nil
	})
}

// HandleError makes method always fail with msg.
func (n *Node) HandleError(method, msg string) {
	n.Handle(method, func(json.RawMessage) (interface{}, error) {
		return nil, errors.New(msg)
	})
}

// Calls returns the params of every received call to method, in order.
func (n *Node) Calls(method string) []json.RawMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []json.RawMessage
	for _, c := range n.calls {
		if c.Method == method {
			out = append(out, c.Params)
		}
	}
	return out
}

// Methods returns the names of all received calls, in order.
func (n *Node) Methods() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.calls))
	for i, c := range n.calls {
		out[i] = c.Method
	}
	return out
}

// Notify sends a notification to every connected client.
func (n *Node) Notify(method string, params interface{}) error {
	n.mu.Lock()
	conns := make([]*conn, 0, len(n.conns))
	for c := range n.conns {
		conns = append(conns, c)
	}
	n.mu.Unlock()

	for _, c := range conns {
		if err := c.write(map[string]interface{}{"method": method, "params": params}); err != nil {
			return err
		}
	}
	return nil
}

// Connections returns the number of open client connections.
func (n *Node) Connections() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.conns)
}

// DropConnections closes every client connection from the server side.
func (n *Node) DropConnections() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for c := range n.conns {
		c.ws.Close()
	}
}

// Close stops the node.
func (n *Node) Close() {
	n.DropConnections()
	n.srv.Close()
}

type request struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func (n *Node) serve(w http.ResponseWriter, r *http.Request) {
	ws, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &conn{ws: ws}

	n.mu.Lock()
	n.conns[c] = struct{}{}
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		delete(n.conns, c)
		n.mu.Unlock()
		ws.Close()
	}()

	for {
		var req request
		if err := ws.ReadJSON(&req); err != nil {
			return
		}

		n.mu.Lock()
		n.calls = append(n.calls, Call{Method: req.Method, Params: req.Params})
		h := n.handlers[req.Method]
		n.mu.Unlock()

		resp := map[string]interface{}{"id": req.ID}
		if h == nil {
			resp["error"] = map[string]string{"message": "unknown method " + req.Method}
		} else if result, err := h(req.Params); err != nil {
			resp["error"] = map[string]string{"message": err.Error()}
		} else {
			if result == nil {
				result = struct{}{}
			}
			resp["params"] = result
		}
		if err := c.write(resp); err != nil {
			return
		}
	}
}
