// Copyright 2026 SG Prop Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes the analytics query engine over HTTP/JSON. Every
// dependency — store, engine, catalog, caches, logger — is passed in
// explicitly; the package holds no process-global state, so tests spin up
// isolated servers per case.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/sgproplabs/ceaquery/pkg/cache"
	"github.com/sgproplabs/ceaquery/pkg/dataset"
	"github.com/sgproplabs/ceaquery/pkg/query"
	"github.com/sgproplabs/ceaquery/pkg/store"
)

// Cache pool sizing. The API pool serves cheap, high-traffic bodies; the
// stats pool serves heavyweight aggregations worth keeping longer.
const (
	APICacheCapacity   = 200
	APICacheTTL        = 10 * time.Minute
	StatsCacheCapacity = 50
	StatsCacheTTL      = 30 * time.Minute

	DefaultQueryTimeout = 30 * time.Second
)

// Config carries the serve-time knobs.
type Config struct {
	Addr         string
	CORSOrigins  []string
	QueryTimeout time.Duration

	APICacheCapacity   int
	APICacheTTL        time.Duration
	StatsCacheCapacity int
	StatsCacheTTL      time.Duration
}

func (c *Config) applyDefaults() {
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = DefaultQueryTimeout
	}
	if c.APICacheCapacity <= 0 {
		c.APICacheCapacity = APICacheCapacity
	}
	if c.APICacheTTL <= 0 {
		c.APICacheTTL = APICacheTTL
	}
	if c.StatsCacheCapacity <= 0 {
		c.StatsCacheCapacity = StatsCacheCapacity
	}
	if c.StatsCacheTTL <= 0 {
		c.StatsCacheTTL = StatsCacheTTL
	}
}

// Server binds the query engine to the HTTP surface.
type Server struct {
	store   *store.Store
	engine  *query.Engine
	catalog *dataset.Catalog
	logger  *zap.Logger

	apiCache   *cache.Cache
	statsCache *cache.Cache

	queryTimeout time.Duration
	httpServer   *http.Server
}

// New assembles a server. The caller owns the store and catalog lifetimes.
func New(cfg Config, st *store.Store, engine *query.Engine, catalog *dataset.Catalog, logger *zap.Logger) *Server {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		store:        st,
		engine:       engine,
		catalog:      catalog,
		logger:       logger,
		apiCache:     cache.New(cfg.APICacheCapacity, cfg.APICacheTTL),
		statsCache:   cache.New(cfg.StatsCacheCapacity, cfg.StatsCacheTTL),
		queryTimeout: cfg.QueryTimeout,
	}

	handler := s.withRequestID(s.withLogging(s.withCORS(cfg.CORSOrigins, gzhttp.GzipHandler(s.routes()))))
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.QueryTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped root handler, for tests that drive the
// server through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.Handle("GET /api/datasets", s.cached(s.apiCache, s.handleDatasets))
	mux.Handle("GET /api/datasets/{id}", s.cached(s.apiCache, s.handleDatasetDetail))
	mux.Handle("GET /api/datasets/{id}/data", s.cached(s.apiCache, s.handleData))
	mux.Handle("GET /api/datasets/{id}/stats", s.cached(s.statsCache, s.handleFieldStats))
	mux.Handle("GET /api/datasets/{id}/analytics", s.cached(s.statsCache, s.handleAnalytics))
	mux.Handle("GET /api/datasets/{id}/timeseries", s.cached(s.statsCache, s.handleTimeSeries))
	mux.Handle("GET /api/datasets/{id}/insights", s.cached(s.statsCache, s.handleInsights))
	mux.Handle("GET /api/datasets/{id}/agents/top", s.cached(s.statsCache, s.handleTopAgents))
	mux.Handle("GET /api/datasets/{id}/agents/{regNum}", s.cached(s.statsCache, s.handleAgentProfile))

	mux.HandleFunc("GET /api/cache/stats", s.handleCacheStats)
	mux.HandleFunc("POST /api/cache/clear", s.handleCacheClear)
	mux.HandleFunc("POST /api/cache/clear/{datasetId}", s.handleCacheClear)

	return mux
}

// Start serves until ctx is cancelled, then drains connections gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen on %s: %w", s.httpServer.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

// FlushCaches drops every cached response, e.g. after a catalog reload.
func (s *Server) FlushCaches() {
	s.apiCache.Clear()
	s.statsCache.Clear()
}
