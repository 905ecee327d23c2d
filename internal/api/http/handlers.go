// Package http contains the REST handlers for session management,
// browser control, and search suggestions.
package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/control"
	"github.com/pagelens/pagelens/internal/engine"
	"github.com/pagelens/pagelens/internal/logging"
	"github.com/pagelens/pagelens/internal/monitoring"
	"github.com/pagelens/pagelens/internal/shared/id"
	"github.com/pagelens/pagelens/internal/suggest"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	controller        *control.Controller
	suggestions       *suggest.Provider
	metrics           *monitoring.Metrics
	logger            *logging.Logger
	screenshotQuality int
}

// NewHandlers creates the handler set.
func NewHandlers(
	controller *control.Controller,
	suggestions *suggest.Provider,
	metrics *monitoring.Metrics,
	logger *logging.Logger,
	screenshotQuality int,
) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	if screenshotQuality <= 0 {
		screenshotQuality = 60
	}
	return &Handlers{
		controller:        controller,
		suggestions:       suggestions,
		metrics:           metrics,
		logger:            logger,
		screenshotQuality: screenshotQuality,
	}
}

// Root handles the service banner.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "pagelens",
		"version": "0.1.0",
	})
}

// Health handles the detailed health check.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": gin.H{"active": h.controller.Sessions().Count()},
		"engine":   gin.H{"running": h.controller.Sessions().EngineRunning()},
	})
}

// NavigateRequest asks a session to load a URL.
type NavigateRequest struct {
	URL string `json:"url" binding:"required"`
}

// ClickRequest dispatches a mouse click at viewport coordinates.
type ClickRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button string  `json:"button"`
}

// TypeRequest inserts text at the current focus.
type TypeRequest struct {
	Text string `json:"text" binding:"required"`
}

// KeypressRequest dispatches a key chord.
type KeypressRequest struct {
	Key       string           `json:"key" binding:"required"`
	Modifiers engine.Modifiers `json:"modifiers"`
}

// ScrollRequest dispatches a wheel event.
type ScrollRequest struct {
	DeltaX float64 `json:"deltaX"`
	DeltaY float64 `json:"deltaY"`
}

// CreateSession creates a new browser session.
func (h *Handlers) CreateSession(c *gin.Context) {
	s, err := h.controller.Sessions().Create(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if h.metrics != nil {
		h.metrics.SessionsCreated.Inc()
		h.metrics.SessionsActive.Set(float64(h.controller.Sessions().Count()))
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": s.ID.String(),
		"created_at": s.CreatedAt,
	})
}

// CloseSession closes a browser session.
func (h *Handlers) CloseSession(c *gin.Context) {
	sid := id.SessionID(c.Param("id"))
	if err := h.controller.Sessions().Close(sid); err != nil {
		h.respondError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.SessionsClosed.Inc()
		h.metrics.SessionsActive.Set(float64(h.controller.Sessions().Count()))
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

// SessionStatus reports the session's live URL, title, and history
// predicates.
func (h *Handlers) SessionStatus(c *gin.Context) {
	sid := id.SessionID(c.Param("id"))
	status, err := h.controller.Status(c.Request.Context(), sid)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id":     status.SessionID,
		"current_url":    status.URL,
		"title":          status.Title,
		"can_go_back":    status.CanGoBack,
		"can_go_forward": status.CanGoForward,
	})
}

// Navigate loads a URL in the session.
func (h *Handlers) Navigate(c *gin.Context) {
	var req NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sid := id.SessionID(c.Param("id"))
	res, err := h.controller.Navigate(c.Request.Context(), sid, req.URL)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "navigated",
		"url":    res.URL,
		"title":  res.Title,
	})
}

// Back goes back one entry in the session's history.
func (h *Handlers) Back(c *gin.Context) {
	h.historyOp(c, h.controller.Back)
}

// Forward goes forward one entry in the session's history.
func (h *Handlers) Forward(c *gin.Context) {
	h.historyOp(c, h.controller.Forward)
}

// Refresh reloads the current page.
func (h *Handlers) Refresh(c *gin.Context) {
	h.historyOp(c, h.controller.Refresh)
}

// Screenshot captures the current viewport.
func (h *Handlers) Screenshot(c *gin.Context) {
	sid := id.SessionID(c.Param("id"))
	quality := h.screenshotQuality
	if q := c.Query("quality"); q != "" {
		if parsed, err := strconv.Atoi(q); err == nil && parsed >= 1 && parsed <= 100 {
			quality = parsed
		}
	}

	res, err := h.controller.Screenshot(c.Request.Context(), sid, quality)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"screenshot": res.DataURI,
		"url":        res.URL,
		"title":      res.Title,
	})
}

// Click dispatches a mouse click.
func (h *Handlers) Click(c *gin.Context) {
	var req ClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sid := id.SessionID(c.Param("id"))
	button := engine.MouseButton(req.Button)
	if button == "" {
		button = engine.ButtonLeft
	}
	if err := h.controller.Click(c.Request.Context(), sid, req.X, req.Y, button); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "clicked"})
}

// Type inserts text.
func (h *Handlers) Type(c *gin.Context) {
	var req TypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sid := id.SessionID(c.Param("id"))
	if err := h.controller.Type(c.Request.Context(), sid, req.Text); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "typed"})
}

// Keypress dispatches a key chord.
func (h *Handlers) Keypress(c *gin.Context) {
	var req KeypressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sid := id.SessionID(c.Param("id"))
	if err := h.controller.Keypress(c.Request.Context(), sid, req.Key, req.Modifiers); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "pressed"})
}

// Scroll dispatches a wheel event.
func (h *Handlers) Scroll(c *gin.Context) {
	var req ScrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sid := id.SessionID(c.Param("id"))
	if err := h.controller.Scroll(c.Request.Context(), sid, req.DeltaX, req.DeltaY); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "scrolled"})
}

// Suggestions answers search autocomplete queries.
func (h *Handlers) Suggestions(c *gin.Context) {
	query := c.Query("q")
	limit := suggest.DefaultLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	suggestions := h.suggestions.Suggestions(c.Request.Context(), query, limit)
	c.JSON(http.StatusOK, gin.H{
		"suggestions": suggestions,
		"query":       query,
	})
}

func (h *Handlers) historyOp(
	c *gin.Context,
	op func(ctx context.Context, sid id.SessionID) (*control.HistoryResult, error),
) {
	sid := id.SessionID(c.Param("id"))
	res, err := op(c.Request.Context(), sid)
	if err != nil {
		h.respondError(c, err)
		return
	}

	body := gin.H{"status": res.Status}
	if res.URL != "" {
		body["url"] = res.URL
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	if control.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
