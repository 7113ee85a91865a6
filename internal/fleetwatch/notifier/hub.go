package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/model"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/metrics"
	"github.com/fleetwatch-io/fleetwatch/pkg/log"
)

// EventNewAlarm is the event name of the frame pushed for every raised alarm.
const EventNewAlarm = "NewAlarm"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	defaultQueueSize = 32
)

var _ core.AlarmNotifier = (*Hub)(nil)

// Frame is the JSON envelope written to push sessions.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Session is one connected dashboard.
type Session struct {
	ID      uuid.UUID
	Subject string

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Hub is the registry of push sessions. Every session owns a bounded queue;
// a full queue drops the event for that session only, so Notify never blocks.
type Hub struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	queueSize int
	upgrader  websocket.Upgrader
}

// NewHub creates an empty hub. queueSize <= 0 selects the default.
func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Hub{
		sessions:  map[uuid.UUID]*Session{},
		queueSize: queueSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Callers are authenticated by bearer token, not by origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades the request to a websocket and registers it until the peer
// goes away. The upgrade failure response is written by the upgrader.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, who model.Identity) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	s := &Session{
		ID:      uuid.New(),
		Subject: who.Subject,
		conn:    conn,
		send:    make(chan []byte, h.queueSize),
		done:    make(chan struct{}),
	}
	h.add(s)

	go h.writePump(s)
	go h.readPump(s)
	return nil
}

// Notify queues the NewAlarm frame on every session registered at call time.
func (h *Hub) Notify(_ context.Context, event *model.AlarmEvent) error {
	payload, err := json.Marshal(Frame{Event: EventNewAlarm, Data: event})
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for _, s := range h.sessions {
		select {
		case s.send <- payload:
		default:
			dropped++
		}
	}

	if dropped > 0 {
		metrics.NotificationsDropped.WithLabelValues("push").Add(float64(dropped))
		log.Warn("Push queue full, event dropped", "alarmID", event.AlarmID, "sessions", dropped)
	}
	return nil
}

// Len returns the number of connected sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Close disconnects every session.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = map[uuid.UUID]*Session{}
	h.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
	metrics.PushSessions.Sub(float64(len(sessions)))
}

func (h *Hub) add(s *Session) {
	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()

	metrics.PushSessions.Inc()
	log.Info("Push session connected", "session", s.ID, "subject", s.Subject)
}

func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s.ID]
	delete(h.sessions, s.ID)
	h.mu.Unlock()

	s.close()
	if ok {
		metrics.PushSessions.Dec()
		log.Info("Push session disconnected", "session", s.ID)
	}
}

// readPump discards inbound messages; it exists to process control frames
// and to notice when the peer leaves.
func (h *Hub) readPump(s *Session) {
	defer h.remove(s)

	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(s *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(s)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(s)
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
