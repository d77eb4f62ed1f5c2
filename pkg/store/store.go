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

// Package store exposes a prepared-statement interface over the read-only
// transaction database. The store is opened once at process start and shared
// by all requests; prepared statements are cached and safe for concurrent use.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"

	_ "github.com/sgproplabs/ceaquery/internal/sqlitedriver" // registers "sqlite3" driver
)

// openPragmas configure the connection for read-only analytical workloads:
// a ~10MB page cache, a ~30MB mmap window, and no durability overhead
// (the file is never written at runtime).
var openPragmas = []string{
	"PRAGMA query_only = ON",
	"PRAGMA cache_size = -10000",
	"PRAGMA mmap_size = 31457280",
	"PRAGMA synchronous = OFF",
	"PRAGMA temp_store = MEMORY",
	"PRAGMA busy_timeout = 5000",
}

// Store is a read-only handle on the transaction database.
type Store struct {
	db *sql.DB

	mu    sync.RWMutex
	stmts map[string]*sql.Stmt
}

// Open opens the database at path in read-only mode. It fails fast when the
// file does not exist rather than letting SQLite create an empty one.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("store: database file %q: %w", path, err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}

	for _, pragma := range openPragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	// Refresh planner statistics once per process. "optimize" runs ANALYZE
	// only where SQLite judges it worthwhile, so this is cheap on a store
	// whose stats were already written by the precomputer.
	if _, err := db.Exec("PRAGMA optimize"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: refresh planner statistics: %w", err)
	}

	return &Store{db: db, stmts: make(map[string]*sql.Stmt)}, nil
}

// prepare returns a cached prepared statement for query, preparing it on
// first use. Statement preparation failures are programming errors surfaced
// to the caller; they are fatal during startup paths.
func (s *Store) prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	s.mu.RLock()
	stmt, ok := s.stmts[query]
	s.mu.RUnlock()
	if ok {
		return stmt, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if stmt, ok := s.stmts[query]; ok {
		return stmt, nil
	}
	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: prepare %q: %w", query, err)
	}
	s.stmts[query] = stmt
	return stmt, nil
}

// Query executes a parameterized query and returns the row iterator. The
// caller owns the returned rows and must Close them.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	stmt, err := s.prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	return rows, nil
}

// QueryRow executes a parameterized query expected to return at most one row.
func (s *Store) QueryRow(ctx context.Context, query string, args ...any) (*sql.Row, error) {
	stmt, err := s.prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	return stmt.QueryRowContext(ctx, args...), nil
}

// AllMaps runs a query and materializes every row as a column-name keyed map.
// Intended for the paginated raw-row endpoint, whose result size is bounded
// by the row limit; aggregation kernels scan typed rows instead.
func (s *Store) AllMaps(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("store: columns: %w", err)
	}

	out := []map[string]any{}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("store: scan row: %w", err)
		}
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			switch v := values[i].(type) {
			case []byte:
				m[c] = string(v)
			default:
				m[c] = v
			}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate rows: %w", err)
	}
	return out, nil
}

// Ping verifies the store is readable.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	row, err := s.QueryRow(ctx, "SELECT 1")
	if err != nil {
		return err
	}
	if err := row.Scan(&one); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Close finalizes all cached statements and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	for _, stmt := range s.stmts {
		_ = stmt.Close()
	}
	s.stmts = nil
	s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
