package handler

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog/log"

	"realtime-canvas/internal/auth"
	"realtime-canvas/internal/collab"
	"realtime-canvas/internal/config"
	"realtime-canvas/internal/hub"
	"realtime-canvas/internal/session"
)

// CanvasWSHandler canvas WebSocket endpoint
type CanvasWSHandler struct {
	coord *collab.Coordinator
	cfg   config.WebSocketConfig
}

// NewCanvasWSHandler creates a CanvasWSHandler
func NewCanvasWSHandler(coord *collab.Coordinator, cfg config.WebSocketConfig) *CanvasWSHandler {
	return &CanvasWSHandler{coord: coord, cfg: cfg}
}

// wsTransport queues frames for a single writer goroutine. TrySend never blocks.
type wsTransport struct {
	conn         *websocket.Conn
	send         chan []byte
	done         chan struct{}
	once         sync.Once
	writeTimeout time.Duration
}

func newWSTransport(conn *websocket.Conn, queue int, writeTimeout time.Duration) *wsTransport {
	if queue <= 0 {
		queue = 256
	}
	return &wsTransport{
		conn:         conn,
		send:         make(chan []byte, queue),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

func (t *wsTransport) TrySend(data []byte) error {
	select {
	case <-t.done:
		return session.ErrClosed
	default:
	}

	select {
	case t.send <- data:
		return nil
	default:
		return hub.ErrBackpressure
	}
}

func (t *wsTransport) Close() {
	t.once.Do(func() {
		close(t.done)
	})
}

// writePump drains the queue until Close.
func (t *wsTransport) writePump() {
	for {
		select {
		case <-t.done:
			return
		case data := <-t.send:
			if t.writeTimeout > 0 {
				_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
			}
			if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("module", "handler.ws").Msg("write failed")
				t.Close()
				return
			}
		}
	}
}

// HandleWebSocket runs one connection until the client goes away.
func (h *CanvasWSHandler) HandleWebSocket(c *websocket.Conn) {
	// a panic must not take the server down
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("module", "handler.ws").Msg("recovered in canvas websocket")
		}
	}()

	t := newWSTransport(c, h.cfg.SendQueueSize, h.cfg.WriteTimeout)
	go t.writePump()

	s := h.coord.Connect(t)
	if userID, ok := c.Locals(auth.LocalUserID).(string); ok && userID != "" {
		s.Authenticate(userID)
	}
	defer func() {
		h.coord.Disconnect(s)
		_ = c.Close()
	}()

	if h.cfg.MaxMessageSize > 0 {
		c.SetReadLimit(h.cfg.MaxMessageSize)
	}

	for {
		msgType, msg, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "handler.ws").Str("session", s.ID).Msg("read failed")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		h.coord.Handle(s.Context(), s, msg)
	}
}
