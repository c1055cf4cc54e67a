// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Server exposes reports and metrics over HTTP.
type Server struct {
	store   *Store
	metrics *Metrics
}

// NewServer creates a server over store. metrics may be nil.
func NewServer(store *Store, metrics *Metrics) *Server {
	return &Server{store: store, metrics: metrics}
}

// Summary is the listing form of a report.
type Summary struct {
	ID          uuid.UUID      `json:"id"`
	Analysis    string         `json:"analysis"`
	Description string         `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	Counts      map[string]int `json:"counts,omitempty"`
	Issues      int            `json:"issues"`
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.health)
	r.GET("/api/reports", s.listReports)
	r.GET("/api/reports/:id", s.getReport)
	r.GET("/api/reports/:id/groups/:group", s.getGroup)

	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	return r
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)

	go func() {
		zap.L().Info("serving reports", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}

		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	}
}

func (s *Server) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listReports(ctx *gin.Context) {
	reports := s.store.List()
	summaries := make([]Summary, 0, len(reports))

	for _, r := range reports {
		summaries = append(summaries, Summary{
			ID:          r.ID,
			Analysis:    r.Analysis,
			Description: r.Description,
			CreatedAt:   r.CreatedAt,
			Counts:      r.Counts,
			Issues:      r.Issues(),
		})
	}

	ctx.JSON(http.StatusOK, summaries)
}

func (s *Server) getReport(ctx *gin.Context) {
	r, err := s.store.Get(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, r)
}

func (s *Server) getGroup(ctx *gin.Context) {
	r, err := s.store.Get(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

		return
	}

	g, ok := r.Group(ctx.Param("group"))
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "group not found"})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"id":          g.ID,
		"title":       g.Title,
		"description": g.Description,
		"entries":     g.Sorted(),
	})
}
