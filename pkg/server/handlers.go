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
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sgproplabs/ceaquery/pkg/query"
	"github.com/sgproplabs/ceaquery/pkg/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":    "unhealthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleDatasets(r *http.Request) (any, error) {
	return s.catalog.Document(), nil
}

type schemaField struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Filterable bool   `json:"filterable"`
}

type vizRecommendation struct {
	Type      string `json:"type"`
	Dimension string `json:"dimension"`
	Title     string `json:"title"`
}

type datasetDetail struct {
	ID                           string              `json:"id"`
	Name                         string              `json:"name"`
	Description                  string              `json:"description"`
	Metadata                     store.Metadata      `json:"metadata"`
	Schema                       []schemaField       `json:"schema"`
	VisualizationRecommendations []vizRecommendation `json:"visualizationRecommendations"`
}

// transactionColumns is the full schema of the transactions table, in the
// order the loader writes them.
var transactionColumns = []string{
	"salesperson_name",
	"salesperson_reg_num",
	"transaction_date",
	"property_type",
	"transaction_type",
	"represented",
	"town",
	"district",
	"general_location",
}

func (s *Server) handleDatasetDetail(r *http.Request) (any, error) {
	id := r.PathValue("id")
	desc, ok := s.catalog.Get(id)
	if !ok {
		return nil, errDatasetNotFound()
	}

	// A deployed snapshot file wins over the assembled view.
	if snap, found, err := s.catalog.Snapshot(id); err != nil {
		return nil, err
	} else if found {
		return snap, nil
	}

	md, err := s.store.Metadata(r.Context())
	if err != nil {
		return nil, err
	}

	filterable := map[string]bool{}
	for _, c := range query.FilterableColumns {
		filterable[c] = true
	}
	schema := make([]schemaField, 0, len(transactionColumns))
	for _, c := range transactionColumns {
		schema = append(schema, schemaField{Name: c, Type: "text", Filterable: filterable[c]})
	}

	return datasetDetail{
		ID:          desc.ID,
		Name:        desc.Name,
		Description: desc.Description,
		Metadata:    md,
		Schema:      schema,
		VisualizationRecommendations: []vizRecommendation{
			{Type: "bar", Dimension: "property_type", Title: "Transactions by property type"},
			{Type: "bar", Dimension: "transaction_type", Title: "Transactions by deal kind"},
			{Type: "pie", Dimension: "represented", Title: "Principal represented"},
			{Type: "line", Dimension: "transaction_date", Title: "Monthly transaction volume"},
			{Type: "bar", Dimension: "town", Title: "Most active towns"},
		},
	}, nil
}

func (s *Server) handleData(r *http.Request) (any, error) {
	if err := s.requireDataset(r); err != nil {
		return nil, err
	}
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		return nil, err
	}
	limit, err := intParam(q.Get("limit"), 0)
	if err != nil {
		return nil, err
	}
	filters, err := query.ParseFilters(q.Get("filters"))
	if err != nil {
		return nil, err
	}
	return s.engine.Rows(r.Context(), page, limit, filters)
}

func (s *Server) handleFieldStats(r *http.Request) (any, error) {
	if err := s.requireDataset(r); err != nil {
		return nil, err
	}
	q := r.URL.Query()
	field := q.Get("field")
	if field == "" {
		return nil, fmt.Errorf("%w: field is required", query.ErrInvalidArgument)
	}
	limit, err := intParam(q.Get("limit"), 0)
	if err != nil {
		return nil, err
	}
	return s.engine.FieldStats(r.Context(), field, limit)
}

func (s *Server) handleAnalytics(r *http.Request) (any, error) {
	if err := s.requireDataset(r); err != nil {
		return nil, err
	}
	q := r.URL.Query()
	filters, err := query.ParseFilters(q.Get("filters"))
	if err != nil {
		return nil, err
	}
	return s.engine.Analytics(r.Context(), q.Get("dimension1"), q.Get("dimension2"), filters)
}

func (s *Server) handleTimeSeries(r *http.Request) (any, error) {
	if err := s.requireDataset(r); err != nil {
		return nil, err
	}
	q := r.URL.Query()
	filters, err := query.ParseFilters(q.Get("filters"))
	if err != nil {
		return nil, err
	}
	return s.engine.TimeSeries(r.Context(), q.Get("period"), q.Get("groupBy"), filters)
}

func (s *Server) handleInsights(r *http.Request) (any, error) {
	if err := s.requireDataset(r); err != nil {
		return nil, err
	}
	filters, err := query.ParseFilters(r.URL.Query().Get("filters"))
	if err != nil {
		return nil, err
	}
	return s.engine.Insights(r.Context(), filters)
}

func (s *Server) handleTopAgents(r *http.Request) (any, error) {
	if err := s.requireDataset(r); err != nil {
		return nil, err
	}
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), 0)
	if err != nil {
		return nil, err
	}
	filters, err := query.ParseFilters(q.Get("filters"))
	if err != nil {
		return nil, err
	}
	return s.engine.TopAgents(r.Context(), limit, filters, q.Get("search"))
}

func (s *Server) handleAgentProfile(r *http.Request) (any, error) {
	if err := s.requireDataset(r); err != nil {
		return nil, err
	}
	return s.engine.AgentProfile(r.Context(), r.PathValue("regNum"))
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	body, err := json.Marshal(map[string]any{
		"api":   s.apiCache.Stats(),
		"stats": s.statsCache.Stats(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeBody(w, r, body, "")
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	datasetID := r.PathValue("datasetId")

	var cleared int
	var msg string
	if datasetID == "" {
		cleared = s.apiCache.Clear() + s.statsCache.Clear()
		msg = "Cache cleared"
	} else {
		cleared = s.apiCache.Invalidate(datasetID) + s.statsCache.Invalidate(datasetID)
		msg = "Cache cleared for dataset " + datasetID
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"message":        msg,
		"entriesCleared": cleared,
	})
}

// requireDataset resolves the {id} path parameter against the catalog.
func (s *Server) requireDataset(r *http.Request) error {
	if _, ok := s.catalog.Get(r.PathValue("id")); !ok {
		return errDatasetNotFound()
	}
	return nil
}

// intParam parses an optional integer query parameter.
func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", query.ErrInvalidArgument, raw)
	}
	return n, nil
}
