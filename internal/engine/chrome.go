package engine

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/logging"
)

// Config holds browser launch and context defaults.
type Config struct {
	// BinPath overrides the browser binary; empty means auto-detect.
	BinPath           string
	ViewportWidth     int
	ViewportHeight    int
	UserAgent         string
	NavigationTimeout time.Duration
}

// DefaultConfig matches a desktop viewport and a realistic Chrome
// user-agent, sized for containerized headless execution.
func DefaultConfig() Config {
	return Config{
		ViewportWidth:     1280,
		ViewportHeight:    720,
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		NavigationTimeout: 30 * time.Second,
	}
}

// Chrome is the rod-backed Engine. One Chromium process serves every
// session; launch happens lazily on first use under a mutex so
// concurrent first-requests collapse into a single launch.
type Chrome struct {
	cfg    Config
	logger *logging.Logger

	// lifetime bounds the shared browser connection. Requests only
	// trigger the launch; the connection itself must outlive them, so
	// it is tied to this context and ends only in Shutdown.
	lifetime context.Context
	cancel   context.CancelFunc

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewChrome creates an engine handle. The browser is not launched
// until Start or the first NewContext.
func NewChrome(cfg Config, logger *logging.Logger) *Chrome {
	if cfg.NavigationTimeout == 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lifetime, cancel := context.WithCancel(context.Background())
	return &Chrome{cfg: cfg, logger: logger, lifetime: lifetime, cancel: cancel}
}

// Start launches headless Chromium. Sandbox and GPU are disabled for
// containerized execution, mirroring the flags a container image
// without /dev/shm headroom needs.
func (c *Chrome) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil {
		return nil
	}
	// The caller's context gates the launch only. An abandoned request
	// should not start a browser, but once connected the browser
	// belongs to the engine lifetime, not to whoever asked first.
	if err := ctx.Err(); err != nil {
		return &EngineError{Op: "launch", Err: err}
	}
	if err := c.lifetime.Err(); err != nil {
		return &EngineError{Op: "launch", Err: ErrShutdown}
	}

	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Set("disable-setuid-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("disable-web-security").
		Set("disable-features", "IsolateOrigins,site-per-process")
	if c.cfg.BinPath != "" {
		l = l.Bin(c.cfg.BinPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return &EngineError{Op: "launch", Err: err}
	}

	browser := rod.New().ControlURL(controlURL).Context(c.lifetime)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return &EngineError{Op: "connect", Err: err}
	}

	c.launcher = l
	c.browser = browser
	c.logger.Info("Browser engine started", zap.String("control_url", controlURL))
	return nil
}

// NewContext allocates an incognito context with one page, applying
// the configured viewport and user-agent.
func (c *Chrome) NewContext(ctx context.Context) (BrowsingContext, Page, error) {
	if err := c.Start(ctx); err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	browser := c.browser
	c.mu.Unlock()
	if browser == nil {
		return nil, nil, &EngineError{Op: "new context", Err: ErrNotStarted}
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, nil, &EngineError{Op: "incognito context", Err: err}
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, nil, &EngineError{Op: "create page", Err: err}
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: c.cfg.UserAgent,
	}); err != nil {
		_ = page.Close()
		return nil, nil, &EngineError{Op: "set user agent", Err: err}
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             c.cfg.ViewportWidth,
		Height:            c.cfg.ViewportHeight,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}); err != nil {
		_ = page.Close()
		return nil, nil, &EngineError{Op: "set viewport", Err: err}
	}

	bctx := &chromeContext{incognito: incognito, page: page}
	return bctx, &chromePage{page: page, navTimeout: c.cfg.NavigationTimeout}, nil
}

// Running reports whether the browser process is up.
func (c *Chrome) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.browser != nil
}

// Shutdown closes the browser and the launched process. Outstanding
// contexts die with it; the session store closes them first.
func (c *Chrome) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser == nil {
		c.cancel()
		return nil
	}

	// Close rides on the lifetime context, so cancel only afterwards.
	err := c.browser.Close()
	c.cancel()
	c.browser = nil
	if c.launcher != nil {
		c.launcher.Cleanup()
		c.launcher = nil
	}
	c.logger.Info("Browser engine stopped")
	return err
}

// chromeContext pairs the incognito browser handle with its page so
// Close releases the whole browsing context, not just the tab.
type chromeContext struct {
	incognito *rod.Browser
	page      *rod.Page
}

func (b *chromeContext) Close() error {
	if b.page != nil {
		_ = b.page.Close()
	}
	return proto.TargetDisposeBrowserContext{
		BrowserContextID: b.incognito.BrowserContextID,
	}.Call(b.incognito)
}

// chromePage adapts a rod page to the Page interface.
type chromePage struct {
	page       *rod.Page
	navTimeout time.Duration
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, p.navTimeout)
	defer cancel()

	page := p.page.Context(navCtx)
	wait := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := page.Navigate(url); err != nil {
		return err
	}
	wait()
	// wait returns silently when the context expires; surface that
	// as the navigation timeout it is.
	return navCtx.Err()
}

func (p *chromePage) Info() (PageInfo, error) {
	info, err := p.page.Info()
	if err != nil {
		return PageInfo{}, err
	}
	return PageInfo{URL: info.URL, Title: info.Title}, nil
}

func (p *chromePage) Back(ctx context.Context) error {
	return p.page.Context(ctx).NavigateBack()
}

func (p *chromePage) Forward(ctx context.Context) error {
	return p.page.Context(ctx).NavigateForward()
}

func (p *chromePage) Reload(ctx context.Context) error {
	return p.page.Context(ctx).Reload()
}

func (p *chromePage) Screenshot(ctx context.Context, quality int) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(quality),
	})
}

func (p *chromePage) Click(ctx context.Context, x, y float64, button MouseButton) error {
	mouse := p.page.Context(ctx).Mouse
	if err := mouse.MoveTo(proto.NewPoint(x, y)); err != nil {
		return err
	}
	return mouse.Click(mouseButton(button), 1)
}

func (p *chromePage) Type(ctx context.Context, text string) error {
	return p.page.Context(ctx).InsertText(text)
}

func (p *chromePage) Press(ctx context.Context, chord Chord) error {
	names := chord.Keys()
	keys := make([]input.Key, 0, len(names))
	for _, name := range names {
		k, ok := lookupKey(name)
		if !ok {
			return &EngineError{Op: "press", Err: errUnknownKey(name)}
		}
		keys = append(keys, k)
	}

	mods, key := keys[:len(keys)-1], keys[len(keys)-1]
	actions := p.page.Context(ctx).KeyActions()
	for _, m := range mods {
		actions = actions.Press(m)
	}
	actions = actions.Type(key)
	for i := len(mods) - 1; i >= 0; i-- {
		actions = actions.Release(mods[i])
	}
	return actions.Do()
}

func (p *chromePage) Scroll(ctx context.Context, deltaX, deltaY float64) error {
	return p.page.Context(ctx).Mouse.Scroll(deltaX, deltaY, 1)
}

func mouseButton(b MouseButton) proto.InputMouseButton {
	switch b {
	case ButtonRight:
		return proto.InputMouseButtonRight
	case ButtonMiddle:
		return proto.InputMouseButtonMiddle
	default:
		return proto.InputMouseButtonLeft
	}
}

type errUnknownKey string

func (e errUnknownKey) Error() string { return "unknown key: " + string(e) }
