// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jcodagnone/poibench/places"
)

// DefaultServerAddr keeps the report server local.
const DefaultServerAddr = "localhost:8080"

// Server exposes stored reports over HTTP.
type Server struct {
	repo       ReportRepository
	categories *places.CategoryTable
	logger     zerolog.Logger
}

// NewServer creates a report server.
func NewServer(repo ReportRepository, categories *places.CategoryTable, logger zerolog.Logger) *Server {
	return &Server{repo: repo, categories: categories, logger: logger}
}

// Handler returns the router with every route registered.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/api/reports", s.listReports)
	r.GET("/api/reports/:id", s.getReport)
	r.GET("/api/reports/:id/cells", s.getCellStats)
	r.GET("/api/reports/:id/geojson", s.getGeoJSON)
	r.GET("/api/places/:place", s.getLatestForPlace)
	r.GET("/api/categories", s.listCategories)

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", addr).Msg("Server starting")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}

		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}

		s.logger.Info().Msg("Server stopped gracefully")

		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		s.logger.Info().
			Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			Int("status", ctx.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	}
}

// abort maps repository errors to HTTP statuses.
func (s *Server) abort(ctx *gin.Context, err error) {
	if errors.Is(err, ErrReportNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

		return
	}

	s.logger.Error().Err(err).Str("path", ctx.Request.URL.Path).Msg("Request failed")
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (s *Server) listReports(ctx *gin.Context) {
	summaries, err := s.repo.ListReports()
	if err != nil {
		s.abort(ctx, err)

		return
	}

	if summaries == nil {
		summaries = []ReportSummary{}
	}

	ctx.JSON(http.StatusOK, summaries)
}

func (s *Server) getReport(ctx *gin.Context) {
	report, err := s.repo.GetReport(ctx.Param("id"))
	if err != nil {
		s.abort(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, report)
}

func (s *Server) getCellStats(ctx *gin.Context) {
	stats, err := s.repo.CellStats(ctx.Param("id"))
	if err != nil {
		s.abort(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, stats)
}

func (s *Server) getGeoJSON(ctx *gin.Context) {
	report, err := s.repo.GetReport(ctx.Param("id"))
	if err != nil {
		s.abort(ctx, err)

		return
	}

	data, err := ReportGeoJSON(report).MarshalJSON()
	if err != nil {
		s.abort(ctx, err)

		return
	}

	ctx.Data(http.StatusOK, "application/geo+json", data)
}

func (s *Server) getLatestForPlace(ctx *gin.Context) {
	report, err := s.repo.LatestForPlace(ctx.Param("place"))
	if err != nil {
		s.abort(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, report)
}

func (s *Server) listCategories(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.categories.All())
}
