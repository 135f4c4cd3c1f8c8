package web

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"energy-bubbles/internal/application"
	"energy-bubbles/internal/loop"
)

//go:embed static/index.html
var indexHTML []byte

// MapSettings is what the page needs to draw the generation map.
type MapSettings struct {
	Title         string     `json:"title"`
	TileURL       string     `json:"tile_url"`
	Attribution   string     `json:"attribution"`
	Center        [2]float64 `json:"center"`
	Zoom          int        `json:"zoom"`
	IconURL       string     `json:"icon_url"`
	IconRetinaURL string     `json:"icon_retina_url"`
	ShadowURL     string     `json:"shadow_url"`
}

type Options struct {
	Addr         string
	FeedRate     int
	FeedWindow   time.Duration
	WriteTimeout time.Duration
	Map          MapSettings
	// Gatherer backs /metrics. Nil serves the default registry.
	Gatherer prometheus.Gatherer
}

type Server struct {
	opts     Options
	router   *gin.Engine
	sessions *SessionManager
	limiter  *RateLimiter
	logger   *slog.Logger
	running  atomic.Bool
}

func NewServer(opts Options, sessions *SessionManager, logger *slog.Logger) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	s := &Server{
		opts:     opts,
		router:   gin.New(),
		sessions: sessions,
		limiter:  NewRateLimiter(opts.FeedRate, opts.FeedWindow),
		logger:   logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())

	s.router.GET("/", s.handleIndex)
	s.router.GET("/ws", s.handleWebSocket)
	// No rate limiting on health check
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))

	api := s.router.Group("/api")
	{
		api.GET("/config", s.handleConfig)
		api.GET("/sessions", s.handleListSessions)
		api.GET("/sessions/:id/snapshot", s.handleSnapshot)
		api.POST("/sessions/:id/devices/:device/feed", s.limiter.Middleware(), s.handleFeed)
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down gracefully and tears every
// open view down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()
	s.running.Store(true)

	select {
	case err := <-errCh:
		s.running.Store(false)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.running.Store(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.sessions.CloseAll(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := srv.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (s *Server) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.opts.Map)
}

func (s *Server) handleHealth(c *gin.Context) {
	running := s.running.Load()

	status := "ok"
	statusCode := http.StatusOK
	if !running {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":   status,
		"running":  running,
		"sessions": s.sessions.Len(),
	})
}

type sessionInfo struct {
	ID       string    `json:"id"`
	OpenedAt time.Time `json:"opened_at"`
	Pending  int       `json:"pending"`
}

func (s *Server) handleListSessions(c *gin.Context) {
	list := s.sessions.List()
	out := make([]sessionInfo, 0, len(list))
	for _, sess := range list {
		out = append(out, sessionInfo{ID: sess.ID, OpenedAt: sess.OpenedAt, Pending: sess.Pending()})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

func (s *Server) handleSnapshot(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	snap, err := sess.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleFeed(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	device, err := strconv.Atoi(c.Param("device"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device must be an integer id"})
		return
	}

	endsAt, started, err := sess.Feed(c.Request.Context(), device)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("feed requested", "session", sess.ID, "device", device, "started", started)
	c.JSON(http.StatusOK, gin.H{
		"device":  device,
		"started": started,
		"ends_at": endsAt,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrUnknownDevice), errors.Is(err, ErrUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, application.ErrTornDown), errors.Is(err, application.ErrNotMounted), errors.Is(err, loop.ErrStopped):
		return http.StatusGone
	case errors.Is(err, ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
