// Package httpapi serves analysis, scans and backtests over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"openclaw-agent/internal/interfaces"
	"openclaw-agent/internal/logger"
)

type Server struct {
	engine *gin.Engine
	server *http.Server
}

// Deps are the services behind the routes. Results may be nil, in which
// case the listing routes answer 404.
type Deps struct {
	Analyst    interfaces.Analyst
	Scanner    interfaces.Scanner
	Backtester interfaces.Backtester
	Results    interfaces.ResultStore
}

func NewServer(addr string, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(loggerMiddleware())

	s := &Server{
		engine: engine,
		server: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.setupRoutes(NewHandler(deps))
	return s
}

func (s *Server) setupRoutes(h *Handler) {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api")
	{
		api.GET("/analyze/:symbol", h.Analyze)
		api.GET("/scan", h.Scan)
		api.POST("/backtest", h.Backtest)
		api.GET("/backtests", h.ListBacktests)
		api.GET("/backtests/:id", h.GetBacktest)
	}
}

// Handler exposes the routes for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start blocks serving until Shutdown is called.
func (s *Server) Start() error {
	logger.Info(context.Background(), "HTTP API listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		logger.Info(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
