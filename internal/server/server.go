package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atikulmunna/modusage/internal/aggregator"
)

// Server displays a rendered chart and the report behind it.
type Server struct {
	engine *gin.Engine
	report aggregator.Report
	chart  []byte
	addr   string
}

// New creates a server for one finished report. chartHTML is the page
// produced by chart.Render.
func New(report aggregator.Report, chartHTML []byte, addr string) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	s := &Server{
		engine: engine,
		report: report,
		chart:  chartHTML,
		addr:   addr,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", s.chart)
	})

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"kind":     s.report.Kind,
			"total":    s.report.Total,
			"distinct": len(s.report.Entries),
		})
	})

	s.engine.GET("/api/report", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.report)
	})

	// Exact-key lookup. Keys contain slashes, so they travel in the query.
	s.engine.GET("/api/find", func(c *gin.Context) {
		key := c.Query("key")
		n, err := s.report.Count(key)
		if errors.Is(err, aggregator.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"key": key, "found": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"key": key, "found": true, "count": n})
	})
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
