// Package engine owns the shared headless browser process and hands
// out isolated browsing contexts. The browser is launched lazily on
// first use and shared by every session; contexts are incognito so
// sessions never see each other's cookies or storage.
//
// The engine is an explicitly passed capability object rather than a
// package-level singleton so tests can substitute a fake.
package engine

import (
	"context"
	"errors"
	"fmt"
)

// Engine provides isolated browsing contexts from a single shared
// browser process.
type Engine interface {
	// Start launches the browser if it is not already running.
	// Idempotent; concurrent calls collapse into one launch.
	Start(ctx context.Context) error

	// NewContext allocates a fresh isolated context and its page.
	// Start is implied.
	NewContext(ctx context.Context) (BrowsingContext, Page, error)

	// Running reports whether the browser process is currently up.
	Running() bool

	// Shutdown closes the browser and its process. Safe to call
	// multiple times; a no-op if the engine never started.
	Shutdown() error
}

// BrowsingContext is an isolated sandboxed environment (own cookies
// and storage) within the shared browser.
type BrowsingContext interface {
	Close() error
}

// PageInfo is the live location of a page.
type PageInfo struct {
	URL   string
	Title string
}

// MouseButton selects which button a click dispatches.
type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// Page is the single active tab within a browsing context. All
// blocking operations honor the given context.
type Page interface {
	// Navigate loads url, waiting for the content-loaded signal up
	// to the engine's navigation timeout.
	Navigate(ctx context.Context, url string) error

	// Info returns the page's live URL and title.
	Info() (PageInfo, error)

	// Back and Forward drive the engine's native history. Reload
	// refreshes the current page.
	Back(ctx context.Context) error
	Forward(ctx context.Context) error
	Reload(ctx context.Context) error

	// Screenshot captures the current viewport as JPEG at the given
	// quality (1-100).
	Screenshot(ctx context.Context, quality int) ([]byte, error)

	// Input simulation primitives.
	Click(ctx context.Context, x, y float64, button MouseButton) error
	Type(ctx context.Context, text string) error
	Press(ctx context.Context, chord Chord) error
	Scroll(ctx context.Context, deltaX, deltaY float64) error
}

// EngineError reports that the browser failed to start or could not
// allocate a context.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine: %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// NavigationError reports a navigation timeout or load failure. The
// session remains usable afterwards.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// CaptureError reports a screenshot failure.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("screenshot capture failed: %v", e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// ErrNotStarted is returned by operations that require a running
// browser when Start was never called or failed.
var ErrNotStarted = errors.New("engine not started")

// ErrShutdown is returned when the engine has been shut down.
// Shutdown is terminal; a stopped engine is never relaunched.
var ErrShutdown = errors.New("engine shut down")
