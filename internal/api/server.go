// Package api is the daemon's HTTP surface: health, metrics, status, manual
// trigger and the delivered-listing archive.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go-casting-scout/internal/archive"
	"go-casting-scout/internal/dedup"
	"go-casting-scout/internal/listing"
	"go-casting-scout/internal/scheduler"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 30 * time.Second
	idleTimeout  = 120 * time.Second

	defaultListingLimit = 100
	maxListingLimit     = 1000
	defaultListingDays  = 7
)

// Trigger is what the server needs from the scheduler.
type Trigger interface {
	Trigger() error
	Status() scheduler.Status
}

// SeenStats reports the size of the seen state.
type SeenStats interface {
	Stats() dedup.Stats
}

// History serves archived listings.
type History interface {
	Since(ctx context.Context, day time.Time, limit int) ([]archive.Record, error)
}

// Deps are the server's collaborators. Metrics and History may be nil.
type Deps struct {
	Scheduler Trigger
	Seen      SeenStats
	History   History
	Metrics   http.Handler
	Log       *zap.SugaredLogger
	Now       func() time.Time
}

type Server struct {
	deps   Deps
	log    *zap.SugaredLogger
	router *gin.Engine
	http   *http.Server
}

func New(addr string, deps Deps, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &Server{deps: deps, log: deps.Log}
	r := gin.New()
	r.Use(gin.Recovery(), s.logging())

	r.GET("/healthz", s.health)
	r.GET("/status", s.status)
	r.POST("/run", s.run)
	r.GET("/listings", s.listings)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	s.router = r
	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks until Shutdown. http.ErrServerClosed is not an error.
func (s *Server) ListenAndServe() error {
	s.log.Infow("HTTP server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debugw("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) status(c *gin.Context) {
	st := s.deps.Scheduler.Status()
	body := gin.H{"scheduler": st}
	if s.deps.Seen != nil {
		seen := s.deps.Seen.Stats()
		body["seen"] = gin.H{
			"entries": seen.Entries,
			"oldest":  dateOrEmpty(seen.Oldest),
			"newest":  dateOrEmpty(seen.Newest),
		}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) run(c *gin.Context) {
	if err := s.deps.Scheduler.Trigger(); err != nil {
		if errors.Is(err, scheduler.ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": "a cycle is already running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

// listings answers GET /listings?since=YYYY-MM-DD&limit=N.
func (s *Server) listings(c *gin.Context) {
	if s.deps.History == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no archive configured"})
		return
	}

	since := listing.AddDays(listing.DateOf(s.deps.Now()), -defaultListingDays)
	if v := c.Query("since"); v != "" {
		d, err := listing.ParseDate(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be YYYY-MM-DD"})
			return
		}
		since = d
	}
	limit := defaultListingLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListingLimit)
	}

	recs, err := s.deps.History.Since(c.Request.Context(), since, limit)
	if err != nil {
		s.log.Errorw("Archive query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "archive unavailable"})
		return
	}
	if recs == nil {
		recs = []archive.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"since": listing.FormatDate(since), "count": len(recs), "listings": recs})
}

func dateOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return listing.FormatDate(t)
}
