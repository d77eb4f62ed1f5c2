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

// Package precompute materializes the aggregate tables the query planner
// uses as fast paths. It runs once after the loader has populated the
// transactions table and is free to rebuild everything from scratch; the
// whole rebuild happens inside a single transaction.
package precompute

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sgproplabs/ceaquery/pkg/query"
)

const dropAndCreate = `
DROP TABLE IF EXISTS top_agents;
DROP TABLE IF EXISTS monthly_stats;
DROP TABLE IF EXISTS property_type_stats;
DROP TABLE IF EXISTS transaction_type_stats;
DROP TABLE IF EXISTS town_stats;

CREATE TABLE top_agents (
	regNum TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	totalTransactions INTEGER NOT NULL,
	lastTransaction TEXT NOT NULL DEFAULT ''
);
CREATE TABLE monthly_stats (
	period TEXT NOT NULL,
	property_type TEXT NOT NULL,
	transaction_type TEXT NOT NULL,
	count INTEGER NOT NULL
);
CREATE TABLE property_type_stats (
	propertyType TEXT PRIMARY KEY,
	count INTEGER NOT NULL,
	percentage REAL NOT NULL
);
CREATE TABLE transaction_type_stats (
	transactionType TEXT PRIMARY KEY,
	count INTEGER NOT NULL,
	percentage REAL NOT NULL
);
CREATE TABLE town_stats (
	town TEXT PRIMARY KEY,
	count INTEGER NOT NULL,
	percentage REAL NOT NULL
);

CREATE INDEX idx_top_agents_total ON top_agents(totalTransactions DESC);
CREATE INDEX idx_monthly_stats_period ON monthly_stats(period);
`

// Run rebuilds the five aggregate tables, refreshes planner statistics, and
// stamps metadata. On any error the transaction is rolled back and the store
// is left as it was.
func Run(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	started := time.Now()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("precompute: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, dropAndCreate); err != nil {
		return fmt.Errorf("precompute: recreate aggregate tables: %w", err)
	}

	if err := buildTypeStats(ctx, tx, "property_type", "property_type_stats", "propertyType"); err != nil {
		return err
	}
	if err := buildTypeStats(ctx, tx, "transaction_type", "transaction_type_stats", "transactionType"); err != nil {
		return err
	}
	if err := buildTownStats(ctx, tx); err != nil {
		return err
	}
	if err := buildMonthlyStats(ctx, tx); err != nil {
		return err
	}
	if err := buildTopAgents(ctx, tx); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("precompute: analyze: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO metadata (key, value) VALUES ('precomputed_at', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("precompute: stamp metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("precompute: commit: %w", err)
	}
	logger.Info("aggregate tables rebuilt", zap.Duration("took", time.Since(started)))
	return nil
}

// buildTypeStats fills a single-column stats table. Percentages are over all
// rows, rounded to two decimals. Null and empty values project to "Unknown".
func buildTypeStats(ctx context.Context, tx *sql.Tx, column, table, valueColumn string) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s, count, percentage)
		SELECT v, c, ROUND(100.0 * c / NULLIF((SELECT COUNT(*) FROM transactions), 0), 2)
		FROM (
			SELECT COALESCE(NULLIF(%s, ''), 'Unknown') AS v, COUNT(*) AS c
			FROM transactions GROUP BY v
		)`, table, valueColumn, column))
	if err != nil {
		return fmt.Errorf("precompute: build %s: %w", table, err)
	}
	return nil
}

// buildTownStats excludes sentinel towns entirely; the percentage denominator
// is the count of non-sentinel rows.
func buildTownStats(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO town_stats (town, count, percentage)
		SELECT v, c, ROUND(100.0 * c / NULLIF((SELECT COUNT(*) FROM transactions WHERE town != '-'), 0), 2)
		FROM (
			SELECT COALESCE(NULLIF(town, ''), 'Unknown') AS v, COUNT(*) AS c
			FROM transactions WHERE town != '-' GROUP BY v
		)`)
	if err != nil {
		return fmt.Errorf("precompute: build town_stats: %w", err)
	}
	return nil
}

// buildMonthlyStats normalizes MMM-YYYY dates to YYYY-MM in Go (the store
// never parses dates) and writes one row per (period, property type,
// transaction type). Type columns carry the same Unknown projection the slow
// path applies, so grouped series agree between paths.
func buildMonthlyStats(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT transaction_date,
		       COALESCE(NULLIF(property_type, ''), 'Unknown'),
		       COALESCE(NULLIF(transaction_type, ''), 'Unknown'),
		       COUNT(*)
		FROM transactions
		WHERE transaction_date != '-' AND transaction_date != ''
		GROUP BY 1, 2, 3`)
	if err != nil {
		return fmt.Errorf("precompute: scan months: %w", err)
	}
	defer rows.Close()

	type key struct{ period, ptype, ttype string }
	buckets := map[key]int{}
	for rows.Next() {
		var date, ptype, ttype string
		var count int
		if err := rows.Scan(&date, &ptype, &ttype, &count); err != nil {
			return fmt.Errorf("precompute: scan month row: %w", err)
		}
		period, ok := query.MonthKey(date)
		if !ok {
			continue
		}
		buckets[key{period, ptype, ttype}] += count
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("precompute: iterate months: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO monthly_stats (period, property_type, transaction_type, count) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("precompute: prepare monthly insert: %w", err)
	}
	defer stmt.Close()
	for k, c := range buckets {
		if _, err := stmt.ExecContext(ctx, k.period, k.ptype, k.ttype, c); err != nil {
			return fmt.Errorf("precompute: insert monthly_stats: %w", err)
		}
	}
	return nil
}

// buildTopAgents writes one row per non-sentinel registration number. The
// last transaction is the chronologically latest date, resolved via the same
// normalization the runtime kernels use.
func buildTopAgents(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT salesperson_reg_num, transaction_date, COUNT(*)
		FROM transactions
		WHERE salesperson_reg_num != '-' AND salesperson_reg_num != ''
		GROUP BY 1, 2`)
	if err != nil {
		return fmt.Errorf("precompute: scan agents: %w", err)
	}
	defer rows.Close()

	type agent struct {
		total    int
		lastKey  string
		lastDate string
	}
	agents := map[string]*agent{}
	for rows.Next() {
		var reg, date string
		var count int
		if err := rows.Scan(&reg, &date, &count); err != nil {
			return fmt.Errorf("precompute: scan agent row: %w", err)
		}
		a := agents[reg]
		if a == nil {
			a = &agent{}
			agents[reg] = a
		}
		a.total += count
		if key, ok := query.MonthKey(date); ok && key > a.lastKey {
			a.lastKey, a.lastDate = key, date
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("precompute: iterate agents: %w", err)
	}

	// Names resolve in one grouped pass: MAX() matches what the slow-path
	// ranking reports for agents with inconsistent display names.
	names := map[string]string{}
	nameRows, err := tx.QueryContext(ctx, `
		SELECT salesperson_reg_num, COALESCE(MAX(salesperson_name), '')
		FROM transactions
		WHERE salesperson_reg_num != '-' AND salesperson_reg_num != ''
		GROUP BY 1`)
	if err != nil {
		return fmt.Errorf("precompute: scan agent names: %w", err)
	}
	defer nameRows.Close()
	for nameRows.Next() {
		var reg, name string
		if err := nameRows.Scan(&reg, &name); err != nil {
			return fmt.Errorf("precompute: scan agent name: %w", err)
		}
		names[reg] = name
	}
	if err := nameRows.Err(); err != nil {
		return fmt.Errorf("precompute: iterate agent names: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO top_agents (regNum, name, totalTransactions, lastTransaction) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("precompute: prepare agent insert: %w", err)
	}
	defer stmt.Close()
	for reg, a := range agents {
		if _, err := stmt.ExecContext(ctx, reg, names[reg], a.total, a.lastDate); err != nil {
			return fmt.Errorf("precompute: insert top_agents: %w", err)
		}
	}
	return nil
}
