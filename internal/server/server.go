// Package server exposes the dashboards over HTTP as JSON.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ctgov/compliance/internal/config"
	"github.com/ctgov/compliance/internal/dashboard"
	"github.com/ctgov/compliance/internal/db"
	"github.com/ctgov/compliance/internal/metrics"
	"github.com/ctgov/compliance/internal/pagination"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP front of the dashboard service
type Server struct {
	svc     *dashboard.Service
	logger  *zap.Logger
	metrics *metrics.Collector
	engine  *gin.Engine
	http    *http.Server
}

// New creates a server and registers its routes
func New(cfg config.ServerConfig, svc *dashboard.Service, logger *zap.Logger, m *metrics.Collector) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{
		svc:     svc,
		logger:  logger,
		metrics: m,
		engine:  gin.New(),
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(RequestIDMiddleware())
	s.engine.Use(LoggingMiddleware(logger))
	s.engine.Use(MetricsMiddleware(m))
	s.registerRoutes()

	s.http = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.engine.Group("/api")
	{
		api.GET("/trials", s.trials)
		api.GET("/search", s.search)
		api.GET("/organizations/:org_ids", s.organization)
		api.GET("/compare", s.compare)
		api.GET("/users/:user_id", s.user)
		api.GET("/reporting", s.reporting)
		api.GET("/funding-sources", s.fundingSources)
	}
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("address", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) trials(c *gin.Context) {
	ctx, err := s.svc.ProcessIndex(c.Request.Context(), nil, c.Request.URL.Query())
	s.respond(c, ctx, err)
}

func (s *Server) search(c *gin.Context) {
	params := db.SearchParams{
		Title:        c.Query("title"),
		NCTID:        c.Query("nct_id"),
		Organization: c.Query("organization"),
		UserEmail:    c.Query("user_email"),
		Status:       c.Query("status"),
		DateType:     c.Query("date_type"),
		DateFrom:     c.Query("date_from"),
		DateTo:       c.Query("date_to"),
		Compliance:   c.QueryArray("compliance"),
	}
	ctx, err := s.svc.ProcessSearch(c.Request.Context(), params, nil, c.Request.URL.Query())
	s.respond(c, ctx, err)
}

func (s *Server) organization(c *gin.Context) {
	ctx, err := s.svc.ProcessOrganization(c.Request.Context(), c.Param("org_ids"), nil, c.Request.URL.Query())
	s.respond(c, ctx, err)
}

func (s *Server) compare(c *gin.Context) {
	ctx, err := s.svc.ProcessCompare(c.Request.Context(), nil, c.Request.URL.Query())
	s.respond(c, ctx, err)
}

func (s *Server) user(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		s.fail(c, fmt.Errorf("%w: user id %q", dashboard.ErrInvalidInput, c.Param("user_id")))
		return
	}
	ctx, err := s.svc.ProcessUser(c.Request.Context(), userID, nil, c.Request.URL.Query())
	s.respond(c, ctx, err)
}

func (s *Server) reporting(c *gin.Context) {
	ctx, err := s.svc.ProcessReporting(c.Request.Context(), nil, c.Request.URL.Query())
	if err == nil {
		s.metrics.SetActionItems(ctx.TotalActionItems)
	}
	s.respond(c, ctx, err)
}

func (s *Server) fundingSources(c *gin.Context) {
	classes, err := s.svc.FundingSourceClasses(c.Request.Context())
	s.respond(c, gin.H{"funding_source_classes": classes}, err)
}

func (s *Server) respond(c *gin.Context, body any, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

// fail maps validation errors to 400 and everything else to 500
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(requestIDKey)),
		)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrInvalidInput),
		errors.Is(err, pagination.ErrInvalidPerPage),
		errors.Is(err, pagination.ErrInvalidNumber):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
