package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/collapse/internal/config"
	"github.com/zeusync/collapse/internal/core/observability/log"
	"github.com/zeusync/collapse/internal/render"
)

const (
	writeWait      = 5 * time.Second
	maxControlSize = 4096

	messageReply = "reply"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

var _ render.Publisher = (*Hub)(nil)

// ControlMessage is a command sent by a viewer over the websocket.
type ControlMessage struct {
	Action   string `json:"action"`
	Material string `json:"material,omitempty"`
}

type controlReply struct {
	Action string `json:"action"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

type viewer struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans encoded messages out to connected viewers. A viewer whose
// buffer is full is disconnected rather than slowing the frame loop.
type Hub struct {
	logger log.Log
	buffer int

	mu      sync.RWMutex
	viewers map[*viewer]struct{}
	dropped atomic.Uint64
}

func NewHub(cfg config.Config, logger log.Log) *Hub {
	return &Hub{
		logger:  logger.With(log.String("component", "hub")),
		buffer:  max(cfg.StreamBuffer, 2),
		viewers: make(map[*viewer]struct{}),
	}
}

// Broadcast queues msg for every viewer without blocking.
func (h *Hub) Broadcast(msg []byte) {
	var slow []*viewer

	h.mu.RLock()
	for v := range h.viewers {
		select {
		case v.send <- msg:
		default:
			slow = append(slow, v)
		}
	}
	h.mu.RUnlock()

	for _, v := range slow {
		h.dropped.Add(1)
		h.logger.Warn("Dropping slow viewer", log.String("viewer_id", v.id))
		h.remove(v)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// Dropped returns how many viewers were disconnected for falling behind.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// CloseAll disconnects every viewer.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	viewers := h.viewers
	h.viewers = make(map[*viewer]struct{})
	h.mu.Unlock()

	for v := range viewers {
		close(v.send)
	}
}

// sendTo queues msg for a single viewer if it is still connected.
func (h *Hub) sendTo(v *viewer, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.viewers[v]; !ok {
		return
	}
	select {
	case v.send <- msg:
	default:
	}
}

func (h *Hub) add(v *viewer) {
	h.mu.Lock()
	h.viewers[v] = struct{}{}
	n := len(h.viewers)
	h.mu.Unlock()

	h.logger.Info("Viewer connected", log.String("viewer_id", v.id), log.Int("viewers", n))
}

func (h *Hub) remove(v *viewer) {
	h.mu.Lock()
	_, ok := h.viewers[v]
	if ok {
		delete(h.viewers, v)
		close(v.send)
	}
	n := len(h.viewers)
	h.mu.Unlock()

	if ok {
		h.logger.Info("Viewer disconnected", log.String("viewer_id", v.id), log.Int("viewers", n))
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", log.Error(err))
		return
	}

	v := &viewer{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, s.hub.buffer),
	}

	// The scene and the current frame go out before any live frame.
	v.send <- s.stream.Scene()
	if latest := s.stream.Latest(); latest != nil {
		v.send <- latest
	}
	s.hub.add(v)

	go s.writeViewer(v)
	s.readViewer(r.Context(), v)
}

func (s *Server) writeViewer(v *viewer) {
	defer v.conn.Close()

	for msg := range v.send {
		_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := v.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.hub.remove(v)
			break
		}
	}
	// Drain until remove closes the channel.
	for range v.send {
	}

	_ = v.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func (s *Server) readViewer(ctx context.Context, v *viewer) {
	defer s.hub.remove(v)

	v.conn.SetReadLimit(maxControlSize)
	for {
		var msg ControlMessage
		if err := v.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("Viewer read failed", log.String("viewer_id", v.id), log.Error(err))
			}
			return
		}
		s.handleControl(ctx, v, msg)
	}
}

func (s *Server) handleControl(ctx context.Context, v *viewer, msg ControlMessage) {
	var err error
	switch msg.Action {
	case "build":
		_, err = s.build(ctx, msg.Material)
	case "test":
		err = s.runTest(ctx)
	default:
		err = fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, msg.Action)
	}

	reply := controlReply{Action: msg.Action, OK: err == nil}
	if err != nil {
		reply.Error = err.Error()
	}
	data, err := json.Marshal(reply)
	if err != nil {
		s.logger.Error("Failed to encode reply", log.Error(err))
		return
	}
	env, err := json.Marshal(render.Envelope{Type: messageReply, Data: data})
	if err != nil {
		s.logger.Error("Failed to encode reply", log.Error(err))
		return
	}
	s.hub.sendTo(v, env)
}
