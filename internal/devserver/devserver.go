// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package devserver is an in-memory stand-in for the research summarizer
// API. Jobs advance on reads rather than wall-clock time so clients and
// tests can step through processing, completed, analyzing and failed
// deterministically.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/phuslu/log"

	"github.com/pdiddy/research-summarizer/internal/api"
	"github.com/pdiddy/research-summarizer/internal/logging"
	"github.com/pdiddy/research-summarizer/pkg/types"
)

const (
	DefaultAddr               = "localhost:8000"
	DefaultPollsUntilComplete = 2
	DefaultPollsUntilAnalyzed = 2

	// timestampLayout matches Python's datetime.isoformat() without a zone.
	timestampLayout = "2006-01-02T15:04:05.000000"

	detailNotFound = "Query not found"
)

type job struct {
	types.SearchRequest
	id        string
	status    types.JobStatus
	createdAt time.Time

	statusReads   int
	analysisReads int
	summaries     []types.Summary
	analysis      string
}

// Server holds the fake API state.
type Server struct {
	cfg types.DevserverConfig
	log *log.Logger
	now func() time.Time

	mu    sync.Mutex
	jobs  map[string]*job
	order []string

	engine *gin.Engine
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New builds a server. Zero thresholds in cfg fall back to the defaults.
func New(cfg types.DevserverConfig, opts ...Option) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.PollsUntilComplete < 1 {
		cfg.PollsUntilComplete = DefaultPollsUntilComplete
	}
	if cfg.PollsUntilAnalyzed < 1 {
		cfg.PollsUntilAnalyzed = DefaultPollsUntilAnalyzed
	}

	s := &Server{
		cfg:  cfg,
		log:  logging.Discard(),
		now:  time.Now,
		jobs: make(map[string]*job),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler serving /api.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("devserver listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("devserver: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info().Msg("devserver shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("devserver shutdown: %w", err)
	}
	return nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "research-summarizer-devserver"})
	})

	g := r.Group("/api")
	g.GET("/queries", s.handleList)
	g.POST("/search", s.handleSearch)
	g.GET("/queries/:id", s.handleGet)
	g.DELETE("/queries/:id", s.handleDelete)
	g.GET("/queries/:id/summaries", s.handleSummaries)
	g.POST("/analyze", s.handleAnalyze)
	g.GET("/analysis/:id", s.handleAnalysis)
	return r
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().Str("method", c.Request.Method).Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).Dur("elapsed", time.Since(start)).Msg("devserver request")
	}
}

// --- handlers ---

func (s *Server) handleList(c *gin.Context) {
	s.mu.Lock()
	out := make([]jobResponse, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.jobs[s.order[i]].response())
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleSearch(c *gin.Context) {
	req := types.NewSearchRequest("")
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if err := api.ValidateSearch(req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": api.Detail(err, err.Error())})
		return
	}

	j := &job{
		SearchRequest: req,
		id:            uuid.NewString(),
		status:        types.StatusProcessing,
		createdAt:     s.now(),
	}
	s.mu.Lock()
	s.jobs[j.id] = j
	s.order = append(s.order, j.id)
	s.mu.Unlock()

	s.log.Info().Str("query_id", j.id).Str("query", j.Query).Int("num_results", j.NumResults).
		Str("provider", j.Provider).Msg("search accepted")
	c.JSON(http.StatusOK, j.response())
}

func (s *Server) handleGet(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[c.Param("id")]
	if !ok {
		notFound(c)
		return
	}
	if j.status == types.StatusProcessing {
		j.statusReads++
		if j.statusReads >= s.cfg.PollsUntilComplete {
			s.finishSearch(j)
		}
	}
	c.JSON(http.StatusOK, j.response())
}

func (s *Server) handleDelete(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	_, ok := s.jobs[id]
	if ok {
		delete(s.jobs, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()

	if !ok {
		notFound(c)
		return
	}
	s.log.Info().Str("query_id", id).Msg("query deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Query deleted", "session_id": id})
}

// handleSummaries answers an empty list for unknown or unfinished jobs,
// like the real API does.
func (s *Server) handleSummaries(c *gin.Context) {
	s.mu.Lock()
	out := []types.Summary{}
	if j, ok := s.jobs[c.Param("id")]; ok && j.summaries != nil {
		out = append(out, j.summaries...)
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

type analyzeRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{
			{"loc": []string{"body", "session_id"}, "msg": "field required", "type": "value_error.missing"},
		}})
		return
	}

	s.mu.Lock()
	j, ok := s.jobs[req.SessionID]
	if ok {
		j.status = types.StatusAnalyzing
		j.analysisReads = 0
		j.analysis = ""
	}
	s.mu.Unlock()

	if !ok {
		notFound(c)
		return
	}
	s.log.Info().Str("query_id", req.SessionID).Msg("analysis started")
	c.JSON(http.StatusOK, gin.H{"message": "Analysis started", "session_id": req.SessionID})
}

func (s *Server) handleAnalysis(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[c.Param("id")]
	if !ok {
		notFound(c)
		return
	}
	if j.status == types.StatusAnalyzing {
		j.analysisReads++
		if j.analysisReads >= s.cfg.PollsUntilAnalyzed {
			j.analysis = comparativeAnalysis(j)
			j.status = types.StatusCompleted
			s.log.Info().Str("query_id", j.id).Msg("analysis completed")
		}
	}
	if j.analysis == "" {
		c.JSON(http.StatusOK, gin.H{"status": "pending"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed", "content": j.analysis})
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"detail": detailNotFound})
}

// finishSearch settles a processing job. Callers hold s.mu.
func (s *Server) finishSearch(j *job) {
	if strings.Contains(strings.ToLower(j.Query), "fail") {
		j.status = types.StatusFailed
		s.log.Info().Str("query_id", j.id).Msg("search failed")
		return
	}
	j.status = types.StatusCompleted
	j.summaries = fakeSummaries(j)
	s.log.Info().Str("query_id", j.id).Int("papers", len(j.summaries)).Msg("search completed")
}

// --- wire shapes ---

type jobResponse struct {
	ID        string `json:"id"`
	Query     string `json:"query"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
	NumPapers int    `json:"num_papers"`
	Provider  string `json:"provider"`
}

func (j *job) response() jobResponse {
	return jobResponse{
		ID:        j.id,
		Query:     j.Query,
		Timestamp: j.createdAt.Format(timestampLayout),
		Status:    string(j.status),
		NumPapers: j.NumResults,
		Provider:  j.Provider,
	}
}
