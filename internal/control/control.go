// Package control validates incoming browser actions, resolves the
// target session, and drives the session's page. It is the single
// dispatch point shared by the REST handlers and the live stream.
package control

import (
	"context"
	"encoding/base64"
	"errors"

	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/engine"
	"github.com/pagelens/pagelens/internal/logging"
	"github.com/pagelens/pagelens/internal/monitoring"
	"github.com/pagelens/pagelens/internal/session"
	"github.com/pagelens/pagelens/internal/shared/id"
)

// History outcome statuses. These are normal results, not errors.
const (
	StatusSuccess          = "success"
	StatusNoHistory        = "no_history"
	StatusNoForwardHistory = "no_forward_history"
)

// NavigateResult is the outcome of a completed navigation.
type NavigateResult struct {
	URL   string
	Title string
}

// StatusResult reflects the page's live state. URL and title come
// from the engine; the history predicates come from the tracker,
// which is authoritative for back/forward eligibility.
type StatusResult struct {
	SessionID    string
	URL          string
	Title        string
	CanGoBack    bool
	CanGoForward bool
}

// HistoryResult is the outcome of a back/forward/refresh request.
type HistoryResult struct {
	Status string
	URL    string
}

// ScreenshotResult carries an encoded viewport capture.
type ScreenshotResult struct {
	DataURI string
	URL     string
	Title   string
}

// Controller dispatches validated actions against stored sessions.
type Controller struct {
	sessions *session.Manager
	logger   *logging.Logger
	metrics  *monitoring.Metrics
}

// NewController creates a dispatcher over the given session store.
func NewController(sessions *session.Manager, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{sessions: sessions, logger: logger}
}

// WithMetrics attaches a metrics collector.
func (c *Controller) WithMetrics(m *monitoring.Metrics) *Controller {
	c.metrics = m
	return c
}

// Sessions exposes the underlying store.
func (c *Controller) Sessions() *session.Manager { return c.sessions }

// Navigate loads url in the session's page with a bounded wait, then
// records the navigation in the tracker. The forward branch past the
// cursor is discarded by the tracker.
func (c *Controller) Navigate(ctx context.Context, sid id.SessionID, url string) (*NavigateResult, error) {
	s, err := c.sessions.Get(sid)
	if err != nil {
		return nil, err
	}

	if err := s.Page().Navigate(ctx, url); err != nil {
		if c.metrics != nil {
			c.metrics.NavigationErrors.Inc()
		}
		c.logger.Error("Navigation failed",
			zap.String("session_id", sid.String()), zap.String("url", url), zap.Error(err))
		return nil, &engine.NavigationError{URL: url, Err: err}
	}

	s.WithHistory(func(h *session.History) {
		h.Record(url)
	})

	info, err := s.Page().Info()
	if err != nil {
		// Navigation landed; fall back to the requested URL.
		info = engine.PageInfo{URL: url}
	}
	return &NavigateResult{URL: info.URL, Title: info.Title}, nil
}

// Status reads the session's live URL and title plus the tracker
// predicates. Read-only.
func (c *Controller) Status(ctx context.Context, sid id.SessionID) (*StatusResult, error) {
	s, err := c.sessions.Get(sid)
	if err != nil {
		return nil, err
	}

	info, err := s.Page().Info()
	if err != nil {
		return nil, &engine.EngineError{Op: "page info", Err: err}
	}

	res := &StatusResult{
		SessionID: sid.String(),
		URL:       info.URL,
		Title:     info.Title,
	}
	s.WithHistory(func(h *session.History) {
		res.CanGoBack = h.CanBack()
		res.CanGoForward = h.CanForward()
	})
	return res, nil
}

// Back navigates one history entry back. When the tracker has no
// earlier entry, the result status is no_history and nothing moves.
func (c *Controller) Back(ctx context.Context, sid id.SessionID) (*HistoryResult, error) {
	s, err := c.sessions.Get(sid)
	if err != nil {
		return nil, err
	}

	moved := false
	s.WithHistory(func(h *session.History) {
		moved = h.Back()
	})
	if !moved {
		return &HistoryResult{Status: StatusNoHistory}, nil
	}

	if err := s.Page().Back(ctx); err != nil {
		return nil, &engine.NavigationError{URL: "", Err: err}
	}
	return &HistoryResult{Status: StatusSuccess, URL: c.currentURL(s)}, nil
}

// Forward navigates one history entry forward.
func (c *Controller) Forward(ctx context.Context, sid id.SessionID) (*HistoryResult, error) {
	s, err := c.sessions.Get(sid)
	if err != nil {
		return nil, err
	}

	moved := false
	s.WithHistory(func(h *session.History) {
		moved = h.Forward()
	})
	if !moved {
		return &HistoryResult{Status: StatusNoForwardHistory}, nil
	}

	if err := s.Page().Forward(ctx); err != nil {
		return nil, &engine.NavigationError{URL: "", Err: err}
	}
	return &HistoryResult{Status: StatusSuccess, URL: c.currentURL(s)}, nil
}

// Refresh reloads the current page without touching history.
func (c *Controller) Refresh(ctx context.Context, sid id.SessionID) (*HistoryResult, error) {
	s, err := c.sessions.Get(sid)
	if err != nil {
		return nil, err
	}
	if err := s.Page().Reload(ctx); err != nil {
		return nil, &engine.NavigationError{URL: "", Err: err}
	}
	return &HistoryResult{Status: "refreshed", URL: c.currentURL(s)}, nil
}

// Screenshot captures the viewport as JPEG at the given quality and
// returns it as a data URI.
func (c *Controller) Screenshot(ctx context.Context, sid id.SessionID, quality int) (*ScreenshotResult, error) {
	s, err := c.sessions.Get(sid)
	if err != nil {
		return nil, err
	}

	raw, err := s.Page().Screenshot(ctx, quality)
	if err != nil {
		if c.metrics != nil {
			c.metrics.CaptureErrors.Inc()
		}
		return nil, &engine.CaptureError{Err: err}
	}

	info, infoErr := s.Page().Info()
	if infoErr != nil {
		info = engine.PageInfo{}
	}
	return &ScreenshotResult{
		DataURI: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw),
		URL:     info.URL,
		Title:   info.Title,
	}, nil
}

// Click dispatches a mouse click at viewport coordinates.
func (c *Controller) Click(ctx context.Context, sid id.SessionID, x, y float64, button engine.MouseButton) error {
	s, err := c.sessions.Get(sid)
	if err != nil {
		return err
	}
	return s.Page().Click(ctx, x, y, button)
}

// Type inserts text at the current focus.
func (c *Controller) Type(ctx context.Context, sid id.SessionID, text string) error {
	s, err := c.sessions.Get(sid)
	if err != nil {
		return err
	}
	return s.Page().Type(ctx, text)
}

// Keypress dispatches a key chord. Modifiers combine with the key in
// a fixed order (Control, Alt, Shift, Meta, key).
func (c *Controller) Keypress(ctx context.Context, sid id.SessionID, key string, mods engine.Modifiers) error {
	s, err := c.sessions.Get(sid)
	if err != nil {
		return err
	}
	return s.Page().Press(ctx, engine.Chord{Key: key, Modifiers: mods})
}

// Scroll dispatches a wheel event.
func (c *Controller) Scroll(ctx context.Context, sid id.SessionID, deltaX, deltaY float64) error {
	s, err := c.sessions.Get(sid)
	if err != nil {
		return err
	}
	return s.Page().Scroll(ctx, deltaX, deltaY)
}

// IsNotFound reports whether err means the session id is unknown.
func IsNotFound(err error) bool {
	return errors.Is(err, session.ErrNotFound)
}

func (c *Controller) currentURL(s *session.Session) string {
	info, err := s.Page().Info()
	if err != nil {
		return ""
	}
	return info.URL
}
