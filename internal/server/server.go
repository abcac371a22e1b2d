package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/unai-app/unai/internal/cache"
	"github.com/unai-app/unai/internal/catalog"
	"github.com/unai-app/unai/internal/config"
	"github.com/unai-app/unai/internal/detector"
	"github.com/unai-app/unai/internal/history"
	"github.com/unai-app/unai/internal/logger"
	"github.com/unai-app/unai/internal/rewrite"
	"github.com/unai-app/unai/internal/security"
	"github.com/unai-app/unai/internal/web"
	"github.com/unai-app/unai/internal/websocket"
)

// Options carries the optional collaborators of a Server
type Options struct {
	Version  string
	Catalog  *catalog.Catalog
	Rewriter rewrite.Rewriter
	Cache    *cache.RewriteCache
	History  *history.Store
}

// Server represents the main HTTP server
type Server struct {
	config    *config.Config
	logger    *logger.Logger
	version   string
	detector  *detector.Detector
	service   *rewrite.Service
	cache     *cache.RewriteCache
	history   *history.Store
	limiter   *security.RateLimiter
	router    *mux.Router
	server    *http.Server
	wsHub     *websocket.Hub
	startedAt time.Time

	cancel context.CancelFunc
}

// New creates a new server instance
func New(cfg *config.Config, log *logger.Logger, opts Options) (*Server, error) {
	c := opts.Catalog
	if c == nil {
		var err error
		c, err = catalog.Load(cfg.Detection.Catalog, cfg.Detection.CatalogFile,
			catalog.WithMatchTimeout(cfg.Detection.MatchTimeout),
			catalog.WithLogger(log.WithComponent("catalog").Logger))
		if err != nil {
			return nil, fmt.Errorf("failed to load pattern catalog: %w", err)
		}
	}

	wsHub := websocket.NewHub(&websocket.HubConfig{
		BroadcastRewrites:    cfg.WebSocket.Events.BroadcastRewrites,
		BroadcastDetections:  cfg.WebSocket.Events.BroadcastDetections,
		BroadcastRequests:    cfg.WebSocket.Events.BroadcastRequests,
		BroadcastConnections: cfg.WebSocket.Events.BroadcastConnections,
		Username:             cfg.WebSocket.Username,
		Password:             cfg.WebSocket.Password,
		AllowedOrigins:       cfg.WebSocket.AllowedOrigins,
	}, log.WithComponent("websocket").Logger)

	det := detector.New(c, log.WithComponent("detector").Logger)

	var hooks []rewrite.ServiceOption
	if opts.History != nil {
		hooks = append(hooks, rewrite.WithRecorder(&historyRecorder{
			store:     opts.History,
			storeText: cfg.History.StoreText,
		}))
	}
	if cfg.WebSocket.Enabled {
		hooks = append(hooks, rewrite.WithNotifier(&hubNotifier{hub: wsHub}))
	}

	server := &Server{
		config:   cfg,
		logger:   log.WithComponent("server"),
		version:  opts.Version,
		detector: det,
		service:  rewrite.NewService(det, opts.Rewriter, log.WithComponent("rewrite").Logger, hooks...),
		cache:    opts.Cache,
		history:  opts.History,
		limiter:  security.NewRateLimiter(&cfg.RateLimit),
		router:   mux.NewRouter(),
		wsHub:    wsHub,
	}

	server.setupRoutes()

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)

	// Dashboard endpoint - embedded HTML
	s.router.HandleFunc("/", web.ServeDashboard).Methods(http.MethodGet, http.MethodHead)
	s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods(http.MethodGet, http.MethodHead)

	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.wsHub.HandleWebSocket).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/patterns", s.handlePatterns).Methods(http.MethodGet)
	api.HandleFunc("/detect", s.handleDetect).Methods(http.MethodPost)
	api.HandleFunc("/rewrite", s.handleRewrite).Methods(http.MethodPost)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/cache", s.handleCacheStats).Methods(http.MethodGet)
	api.HandleFunc("/cache", s.handleCacheClear).Methods(http.MethodDelete)
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the background workers and the HTTP server. It blocks until
// the server stops.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.startedAt = time.Now()

	s.logger.Info("Starting UnAI server",
		zap.Int("port", s.config.Server.Port),
		zap.Int("patterns", s.detector.Catalog().Len()),
		zap.Bool("rewrite_available", s.service.CanRewrite()),
		zap.Bool("cache_enabled", s.cache != nil),
		zap.Bool("history_enabled", s.history != nil),
	)

	go s.wsHub.Run(ctx)
	s.limiter.StartCleanupRoutine(ctx)

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server and background workers
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping UnAI server")
	if s.cancel != nil {
		s.cancel()
	}
	return s.server.Shutdown(ctx)
}
