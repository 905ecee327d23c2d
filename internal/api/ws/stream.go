// Package ws implements the live viewport stream. Each connection
// runs a frame producer goroutine alongside a command consumer loop
// so the client sees the page update while it drives it.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/control"
	"github.com/pagelens/pagelens/internal/engine"
	"github.com/pagelens/pagelens/internal/logging"
	"github.com/pagelens/pagelens/internal/monitoring"
	"github.com/pagelens/pagelens/internal/shared/id"
)

// CloseUnknownSession is the close code sent when the stream is opened
// against a session id the store does not know.
const CloseUnknownSession = 4004

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Command is a client-issued action on the streamed session.
type Command struct {
	Type      string           `json:"type"`
	URL       string           `json:"url,omitempty"`
	X         float64          `json:"x,omitempty"`
	Y         float64          `json:"y,omitempty"`
	Button    string           `json:"button,omitempty"`
	Text      string           `json:"text,omitempty"`
	Key       string           `json:"key,omitempty"`
	Modifiers engine.Modifiers `json:"modifiers,omitempty"`
	DeltaX    float64          `json:"deltaX,omitempty"`
	DeltaY    float64          `json:"deltaY,omitempty"`
}

// Handler manages streaming connections.
type Handler struct {
	controller    *control.Controller
	metrics       *monitoring.Metrics
	logger        *logging.Logger
	frameInterval time.Duration
	frameQuality  int
}

// NewHandler creates a stream handler.
func NewHandler(controller *control.Controller, logger *logging.Logger, interval time.Duration, quality int) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if quality <= 0 {
		quality = 40
	}
	return &Handler{
		controller:    controller,
		logger:        logger,
		frameInterval: interval,
		frameQuality:  quality,
	}
}

// WithMetrics attaches a metrics collector.
func (h *Handler) WithMetrics(m *monitoring.Metrics) *Handler {
	h.metrics = m
	return h
}

// streamConn serializes writes. Gorilla connections allow only one
// concurrent writer, and the producer and consumer both send.
type streamConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *streamConn) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *streamConn) writeClose(code int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := websocket.FormatCloseMessage(code, reason)
	return s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// HandleStream upgrades the request and runs the stream loop until
// the client disconnects or the frame producer hits a fatal error.
func (h *Handler) HandleStream(c *gin.Context) {
	raw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Stream upgrade failed", zap.Error(err))
		return
	}
	defer raw.Close()

	conn := &streamConn{conn: raw}
	connID := uuid.NewString()
	sid := id.SessionID(c.Param("id"))

	if _, err := h.controller.Sessions().Get(sid); err != nil {
		conn.writeClose(CloseUnknownSession, "session not found")
		return
	}

	h.logger.Info("Stream connected",
		zap.String("conn_id", connID), zap.String("session_id", sid.String()))
	if h.metrics != nil {
		h.metrics.StreamConnections.Inc()
		defer h.metrics.StreamConnections.Dec()
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// The producer owns the frame cadence; the consumer owns reads.
	// Closing ctx stops the producer, and done confirms it exited
	// before the connection is torn down.
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.produceFrames(ctx, conn, sid, connID)
		// A fatal producer error ends the whole stream.
		cancel()
		raw.Close()
	}()

	h.consumeCommands(ctx, conn, sid, connID)

	cancel()
	raw.Close()
	<-done

	h.logger.Info("Stream disconnected",
		zap.String("conn_id", connID), zap.String("session_id", sid.String()))
}

// produceFrames pushes a screenshot frame on every tick until the
// context is canceled or a capture fails terminally.
func (h *Handler) produceFrames(ctx context.Context, conn *streamConn, sid id.SessionID, connID string) {
	ticker := time.NewTicker(h.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		shot, err := h.controller.Screenshot(ctx, sid, h.frameQuality)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// The session is gone or the page can no longer be
			// captured. Tell the client and end the stream; the
			// session itself is left to the store.
			h.logger.Warn("Frame capture failed",
				zap.String("conn_id", connID), zap.String("session_id", sid.String()), zap.Error(err))
			conn.writeJSON(gin.H{"type": "error", "message": err.Error()})
			// A proper close handshake, so the client sees a close
			// code instead of an abnormal-closure read error.
			conn.writeClose(websocket.CloseInternalServerErr, "frame capture failed")
			return
		}

		frame := gin.H{
			"type":  "screenshot",
			"data":  shot.DataURI,
			"url":   shot.URL,
			"title": shot.Title,
		}
		if err := conn.writeJSON(frame); err != nil {
			return
		}
		if h.metrics != nil {
			h.metrics.FramesSent.Inc()
		}
	}
}

// consumeCommands reads client commands and dispatches them until the
// read side fails, which covers both client close and producer-driven
// teardown. Malformed frames are dropped, not fatal.
func (h *Handler) consumeCommands(ctx context.Context, conn *streamConn, sid id.SessionID, connID string) {
	for {
		_, raw, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("Stream read ended",
					zap.String("conn_id", connID), zap.Error(err))
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		var cmd Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			h.logger.Debug("Dropping malformed stream frame",
				zap.String("conn_id", connID), zap.Error(err))
			continue
		}
		h.dispatch(ctx, conn, sid, cmd)
	}
}

// commandTypes is the accepted inbound vocabulary. Anything else is
// dropped without an answer so the stream survives protocol drift.
var commandTypes = map[string]struct{}{
	"navigate": {}, "click": {}, "type": {}, "keypress": {}, "scroll": {},
	"back": {}, "forward": {}, "refresh": {}, "ping": {},
}

func (h *Handler) dispatch(ctx context.Context, conn *streamConn, sid id.SessionID, cmd Command) {
	if _, ok := commandTypes[cmd.Type]; !ok {
		h.logger.Debug("Ignoring unknown stream command", zap.String("type", cmd.Type))
		return
	}
	if h.metrics != nil {
		h.metrics.StreamCommands.WithLabelValues(cmd.Type).Inc()
	}
	switch cmd.Type {
	case "navigate":
		res, err := h.controller.Navigate(ctx, sid, cmd.URL)
		if err != nil {
			conn.writeJSON(gin.H{"type": "error", "message": err.Error()})
			return
		}
		conn.writeJSON(gin.H{"type": "navigated", "url": res.URL, "title": res.Title})
	case "click":
		button := engine.MouseButton(cmd.Button)
		if button == "" {
			button = engine.ButtonLeft
		}
		if err := h.controller.Click(ctx, sid, cmd.X, cmd.Y, button); err != nil {
			conn.writeJSON(gin.H{"type": "error", "message": err.Error()})
		}
	case "type":
		if err := h.controller.Type(ctx, sid, cmd.Text); err != nil {
			conn.writeJSON(gin.H{"type": "error", "message": err.Error()})
		}
	case "keypress":
		if err := h.controller.Keypress(ctx, sid, cmd.Key, cmd.Modifiers); err != nil {
			conn.writeJSON(gin.H{"type": "error", "message": err.Error()})
		}
	case "scroll":
		if err := h.controller.Scroll(ctx, sid, cmd.DeltaX, cmd.DeltaY); err != nil {
			conn.writeJSON(gin.H{"type": "error", "message": err.Error()})
		}
	case "back":
		res, err := h.controller.Back(ctx, sid)
		if err != nil {
			conn.writeJSON(gin.H{"type": "error", "message": err.Error()})
			return
		}
		conn.writeJSON(gin.H{"type": "history", "status": res.Status, "url": res.URL})
	case "forward":
		res, err := h.controller.Forward(ctx, sid)
		if err != nil {
			conn.writeJSON(gin.H{"type": "error", "message": err.Error()})
			return
		}
		conn.writeJSON(gin.H{"type": "history", "status": res.Status, "url": res.URL})
	case "refresh":
		if _, err := h.controller.Refresh(ctx, sid); err != nil {
			conn.writeJSON(gin.H{"type": "error", "message": err.Error()})
		}
	case "ping":
		conn.writeJSON(gin.H{"type": "pong"})
	}
}
