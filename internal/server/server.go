package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/pagelens/pagelens/internal/api/http"
	"github.com/pagelens/pagelens/internal/api/middleware"
	"github.com/pagelens/pagelens/internal/api/ws"
	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/control"
	"github.com/pagelens/pagelens/internal/engine"
	"github.com/pagelens/pagelens/internal/logging"
	"github.com/pagelens/pagelens/internal/monitoring"
	"github.com/pagelens/pagelens/internal/session"
	"github.com/pagelens/pagelens/internal/suggest"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router   *gin.Engine
	sessions *session.Manager
	logger   *logging.Logger
	cfg      *config.Config
}

// New creates a server from configuration. The browser engine is not
// launched here; it starts lazily on the first session create.
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	eng := engine.NewChrome(engine.Config{
		BinPath:           cfg.Engine.BinPath,
		ViewportWidth:     cfg.Engine.ViewportWidth,
		ViewportHeight:    cfg.Engine.ViewportHeight,
		UserAgent:         cfg.Engine.UserAgent,
		NavigationTimeout: cfg.Engine.NavigationTimeout,
	}, logger)

	metrics := monitoring.New()
	sessions := session.NewManager(eng, logger)
	controller := control.NewController(sessions, logger).WithMetrics(metrics)
	suggestions := suggest.New(suggest.Config{
		BaseURL: cfg.Suggest.BaseURL,
		APIKey:  cfg.Suggest.APIKey,
		Model:   cfg.Suggest.Model,
		Timeout: cfg.Suggest.Timeout,
	}, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(monitoring.Middleware(metrics))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(controller, suggestions, metrics, logger, cfg.Stream.ScreenshotQuality)
	stream := ws.NewHandler(controller, logger, cfg.Stream.FrameInterval, cfg.Stream.FrameQuality).
		WithMetrics(metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Session lifecycle
	browser := router.Group("/browser")
	browser.POST("/sessions", handlers.CreateSession)
	browser.DELETE("/sessions/:id", handlers.CloseSession)
	browser.GET("/sessions/:id/status", handlers.SessionStatus)

	// Page control
	browser.POST("/sessions/:id/navigate", handlers.Navigate)
	browser.POST("/sessions/:id/back", handlers.Back)
	browser.POST("/sessions/:id/forward", handlers.Forward)
	browser.POST("/sessions/:id/refresh", handlers.Refresh)
	browser.GET("/sessions/:id/screenshot", handlers.Screenshot)
	browser.POST("/sessions/:id/click", handlers.Click)
	browser.POST("/sessions/:id/type", handlers.Type)
	browser.POST("/sessions/:id/keypress", handlers.Keypress)
	browser.POST("/sessions/:id/scroll", handlers.Scroll)

	// Live stream
	browser.GET("/sessions/:id/stream", stream.HandleStream)

	// Search suggestions
	router.GET("/search/suggestions", handlers.Suggestions)

	return &Server{
		router:   router,
		sessions: sessions,
		logger:   logger,
		cfg:      cfg,
	}, nil
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

// Run starts the server and blocks.
func (s *Server) Run() error {
	addr := s.cfg.Server.Host + ":" + s.cfg.Server.Port
	s.logger.Info("Starting browser service", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close releases every session and shuts the engine down.
func (s *Server) Close() error {
	s.logger.Info("Closing all sessions")
	if err := s.sessions.CloseAll(); err != nil {
		s.logger.Error("Error during session teardown", zap.Error(err))
		return err
	}
	return nil
}
