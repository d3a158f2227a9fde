package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"
)

// Conn is one persistent client-side connection to a deviceserver: the
// remote-call channel of spec.md §6, modeled on the teacher's
// long-lived websocket session in radio_client.go/websocket_manager.go.
// Every DeviceStub owns exactly one Conn.
type Conn struct {
	ws     *websocket.Conn
	addr   string
	mu     sync.Mutex
	closed bool

	pendingMu sync.Mutex
	pending   map[string]chan Response

	// UseCompression enables zstd framing of every request this Conn
	// sends, and zstd decoding of responses (falling back to the raw
	// bytes when a response is not zstd). It is not negotiated: the
	// server compresses responses such as collect() results only when
	// its Dispatcher.UseCompression is set.
	UseCompression bool
	enc            *zstd.Encoder
	dec            *zstd.Decoder
}

// DialTimeout is the short timeout Coordinator.NewUsrp tolerates
// before failing with DeviceUnreachable (spec.md §4.5.1).
const DialTimeout = 3 * time.Second

// Dial opens the remote-call channel to address:port.
func Dial(address string, port int) (*Conn, error) {
	u := url.URL{Scheme: "ws", Host: fmt.Sprintf("%s:%d", address, port), Path: "/ws"}
	dialer := websocket.Dialer{HandshakeTimeout: DialTimeout}
	ws, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}
	enc, _ := zstd.NewWriter(nil)
	dec, _ := zstd.NewReader(nil)
	c := &Conn{
		ws:      ws,
		addr:    u.String(),
		pending: make(map[string]chan Response),
		enc:     enc,
		dec:     dec,
	}
	go c.readLoop()
	return c, nil
}

func (c *Conn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.failAllPending(err)
			return
		}
		if c.UseCompression {
			if plain, derr := c.dec.DecodeAll(data, nil); derr == nil {
				data = plain
			}
		}
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			continue
		}
		c.pendingMu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.pendingMu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (c *Conn) failAllPending(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		ch <- Response{ID: id, Err: &ErrorPayload{Message: err.Error()}}
		delete(c.pending, id)
	}
}

// Call issues one request/response round trip and decodes the result
// into out (nil if the method has no return value).
func (c *Conn) Call(ctx context.Context, method Method, params any, out any) error {
	paramsRaw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params for %s: %w", method, err)
	}
	req := Request{ID: uuid.NewString(), Method: method, Params: paramsRaw}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request %s: %w", method, err)
	}
	if c.UseCompression {
		body = c.enc.EncodeAll(body, nil)
	}

	respCh := make(chan Response, 1)
	c.pendingMu.Lock()
	c.pending[req.ID] = respCh
	c.pendingMu.Unlock()

	c.mu.Lock()
	writeErr := c.ws.WriteMessage(websocket.BinaryMessage, body)
	c.mu.Unlock()
	if writeErr != nil {
		c.pendingMu.Lock()
		delete(c.pending, req.ID)
		c.pendingMu.Unlock()
		return fmt.Errorf("write request %s: %w", method, writeErr)
	}

	select {
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, req.ID)
		c.pendingMu.Unlock()
		return ctx.Err()
	case resp := <-respCh:
		if resp.Err != nil {
			return &RemoteError{Kind: resp.Err.Kind, Message: resp.Err.Message}
		}
		if out == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("unmarshal result for %s: %w", method, err)
		}
		return nil
	}
}

// Close tears down the connection. Idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.ws.Close()
}

// RemoteError is the local re-raise of a failure that crossed the
// wire as an ErrorPayload (spec.md §9).
type RemoteError struct {
	Kind    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Kind == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}
