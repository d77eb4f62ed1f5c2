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
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sgproplabs/ceaquery/pkg/cache"
	"github.com/sgproplabs/ceaquery/pkg/query"
)

// apiError carries an explicit status and user-facing message. Handlers
// return it for conditions the generic mapping cannot infer, like which
// resource a 404 refers to.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string { return e.msg }

func errDatasetNotFound() error {
	return &apiError{status: http.StatusNotFound, msg: "Dataset not found"}
}

// handlerFunc produces a response value for a request. The cached wrapper
// owns serialization, caching, validators, and error mapping.
type handlerFunc func(r *http.Request) (any, error)

// cached wraps a handler with the response cache and the conditional-response
// layer. Requests carrying filters or search are executed but never cached:
// their key cardinality would crowd out the common entries.
func (s *Server) cached(pool *cache.Cache, h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		cacheable := q.Get("filters") == "" && q.Get("search") == ""

		produce := func() ([]byte, error) {
			ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout)
			defer cancel()

			result, err := h(r.WithContext(ctx))
			if err != nil {
				return nil, err
			}
			return json.Marshal(result)
		}

		if !cacheable {
			body, err := produce()
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			s.writeBody(w, r, body, "MISS")
			return
		}

		key := cache.Key(r.Method, r.URL.Path, q)
		body, hit, err := pool.Fill(key, produce)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		status := "MISS"
		if hit {
			status = "HIT"
		}
		s.writeBody(w, r, body, status)
	})
}

// writeBody attaches the strong validator and honors If-None-Match. The
// validator is a content hash, stable across processes; MD5 is fine here,
// the value is never used for security.
func (s *Server) writeBody(w http.ResponseWriter, r *http.Request, body []byte, cacheStatus string) {
	sum := md5.Sum(body)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`

	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("ETag", etag)
	if cacheStatus != "" {
		h.Set("X-Cache", cacheStatus)
	}

	if match := r.Header.Get("If-None-Match"); match != "" && strings.Contains(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// writeError maps error kinds to status codes per the API contract. Internal
// details are logged, never returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apiError
	status := http.StatusInternalServerError
	msg := "Internal error"

	switch {
	case errors.As(err, &ae):
		status, msg = ae.status, ae.msg
	case errors.Is(err, query.ErrInvalidArgument):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, query.ErrNotFound):
		status, msg = http.StatusNotFound, "Agent not found"
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, "Query exceeded budget"
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
		status, msg = 499, "client closed request"
	default:
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
