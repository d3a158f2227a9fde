package wire

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"
)

// Handler answers one Request with either a result value or an error.
// Returning a non-nil error sends an ErrorPayload back to the caller
// instead of raising locally - the static dispatch table replacing
// the "dynamic attribute forwarding" pattern flagged in spec.md §9.
type Handler func(params json.RawMessage) (result any, err error)

// Dispatcher is a static method-name -> Handler table served over one
// websocket connection per client, mirroring the teacher's
// websocket_manager.go session loop.
type Dispatcher struct {
	handlers       map[Method]Handler
	UseCompression bool

	upgrader websocket.Upgrader
}

// NewDispatcher builds an empty Dispatcher; call Handle to populate it.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[Method]Handler),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handle registers the handler for a remote-call method.
func (d *Dispatcher) Handle(method Method, h Handler) {
	d.handlers[method] = h
}

// ServeHTTP upgrades to a websocket and serves requests on it until
// the connection closes.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("wire: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var dec *zstd.Decoder
	var enc *zstd.Encoder
	if d.UseCompression {
		dec, _ = zstd.NewReader(nil)
		enc, _ = zstd.NewWriter(nil)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if dec != nil {
			if plain, derr := dec.DecodeAll(data, nil); derr == nil {
				data = plain
			}
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			log.Printf("wire: malformed request: %v", err)
			continue
		}

		resp := d.dispatch(req)
		out, err := json.Marshal(resp)
		if err != nil {
			log.Printf("wire: marshal response: %v", err)
			continue
		}
		if enc != nil {
			out = enc.EncodeAll(out, nil)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, out); err != nil {
			return
		}
	}
}

func (d *Dispatcher) dispatch(req Request) Response {
	h, ok := d.handlers[req.Method]
	if !ok {
		return Response{ID: req.ID, Err: &ErrorPayload{Message: "unknown method: " + string(req.Method)}}
	}
	result, err := h(req.Params)
	if err != nil {
		kind := ""
		if ke, ok := err.(interface{ ErrorKind() string }); ok {
			kind = ke.ErrorKind()
		}
		return Response{ID: req.ID, Err: &ErrorPayload{Kind: kind, Message: err.Error()}}
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return Response{ID: req.ID, Err: &ErrorPayload{Message: "marshal result: " + err.Error()}}
	}
	return Response{ID: req.ID, Result: raw}
}
