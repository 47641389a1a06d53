package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/ayusman/isyarat/internal/app"
	"github.com/ayusman/isyarat/internal/capture"
	"github.com/ayusman/isyarat/internal/store"
	"github.com/ayusman/isyarat/internal/validate"
)

var errUndecodableFrame = errors.New("frame is not a decodable image")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message types exchanged on /api/session.
const (
	msgStart     = "start"
	msgCancel    = "cancel"
	msgStatus    = "status"
	msgStarted   = "started"
	msgCancelled = "cancelled"
	msgDecision  = "decision"
	msgError     = "error"
)

// clientMessage is a text message sent by a browser. Binary messages carry
// JPEG frames instead.
type clientMessage struct {
	Type   string `json:"type"`
	Target string `json:"target,omitempty"`
	Shape  string `json:"shape,omitempty"`
}

type serverMessage struct {
	Type     string           `json:"type"`
	Session  *app.SessionInfo `json:"session,omitempty"`
	Decision *app.Decision    `json:"decision,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg serverMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

// SessionHandler drives practice sessions over WebSocket. Clients start and
// cancel sessions and may upload frames; every decision of the pipeline is
// broadcast to all clients and recorded as an attempt.
type SessionHandler struct {
	pipeline *app.Pipeline
	store    *store.Store

	mu      sync.RWMutex
	clients map[*client]bool
}

// NewSessionHandler creates a SessionHandler and subscribes it to the
// pipeline's decisions. s may be nil to skip recording attempts.
func NewSessionHandler(p *app.Pipeline, s *store.Store) *SessionHandler {
	h := &SessionHandler{
		pipeline: p,
		store:    s,
		clients:  make(map[*client]bool),
	}
	p.OnDecision(h.onDecision)
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		switch kind {
		case websocket.BinaryMessage:
			if err := h.feed(data); err != nil {
				c.send(serverMessage{Type: msgError, Error: err.Error()})
			}
		case websocket.TextMessage:
			var msg clientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				c.send(serverMessage{Type: msgError, Error: "invalid message"})
				continue
			}
			h.handle(c, msg)
		}
	}
}

func (h *SessionHandler) handle(c *client, msg clientMessage) {
	switch msg.Type {
	case msgStart:
		shape := validate.ShapeOf(msg.Target)
		if msg.Shape != "" {
			parsed, err := validate.ParseShape(msg.Shape)
			if err != nil {
				c.send(serverMessage{Type: msgError, Error: err.Error()})
				return
			}
			shape = parsed
		}
		if _, err := h.pipeline.Start(shape, msg.Target); err != nil {
			c.send(serverMessage{Type: msgError, Error: err.Error()})
			return
		}
		info, _ := h.pipeline.Session()
		h.broadcast(serverMessage{Type: msgStarted, Session: &info})
	case msgCancel:
		h.pipeline.Cancel()
		h.broadcast(serverMessage{Type: msgCancelled})
	case msgStatus:
		reply := serverMessage{Type: msgStatus}
		if info, ok := h.pipeline.Session(); ok {
			reply.Session = &info
		}
		c.send(reply)
	default:
		c.send(serverMessage{Type: msgError, Error: "unknown message type " + msg.Type})
	}
}

// feed decodes an uploaded JPEG and hands it to the pipeline, which takes
// ownership of the frame.
func (h *SessionHandler) feed(data []byte) error {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return err
	}
	if mat.Empty() {
		mat.Close()
		return errUndecodableFrame
	}
	h.pipeline.Feed(capture.NewFrame(&mat))
	return nil
}

func (h *SessionHandler) onDecision(d app.Decision) {
	h.record(d)
	h.broadcast(serverMessage{Type: msgDecision, Decision: &d})
}

// record stores d as an attempt.
func (h *SessionHandler) record(d app.Decision) {
	if h.store == nil {
		return
	}
	attempt, ok := d.Attempt()
	if !ok {
		return
	}
	if err := h.store.Attempts().Create(attempt); err != nil {
		log.Printf("Failed to record attempt: %v", err)
	}
}

func (h *SessionHandler) broadcast(msg serverMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if err := c.send(msg); err != nil {
			log.Printf("websocket write error: %v", err)
		}
	}
}

// Clients returns the number of connected clients.
func (h *SessionHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
