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

// Package storetest builds throwaway transaction databases for tests. Each
// helper creates an isolated store file under t.TempDir(), mirroring the
// schema and indexes the production loader writes.
package storetest

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/sgproplabs/ceaquery/internal/sqlitedriver"
	"github.com/sgproplabs/ceaquery/pkg/store"
)

// Row is one seed transaction. Zero-value fields are stored as empty strings,
// matching how the loader stores blank CSV cells.
type Row struct {
	Name            string
	RegNum          string
	Date            string
	PropertyType    string
	TransactionType string
	Represented     string
	Town            string
	District        string
	Location        string
}

const schema = `
CREATE TABLE transactions (
	id INTEGER PRIMARY KEY,
	salesperson_name TEXT,
	salesperson_reg_num TEXT,
	transaction_date TEXT,
	property_type TEXT,
	transaction_type TEXT,
	represented TEXT,
	town TEXT,
	district TEXT,
	general_location TEXT
);
CREATE TABLE metadata (key TEXT PRIMARY KEY, value TEXT);

CREATE INDEX idx_tx_date ON transactions(transaction_date);
CREATE INDEX idx_tx_property_type ON transactions(property_type);
CREATE INDEX idx_tx_transaction_type ON transactions(transaction_type);
CREATE INDEX idx_tx_reg_num ON transactions(salesperson_reg_num);
CREATE INDEX idx_tx_town ON transactions(town);
CREATE INDEX idx_tx_district ON transactions(district);
CREATE INDEX idx_tx_represented ON transactions(represented);
CREATE INDEX idx_tx_agent_rollup ON transactions(salesperson_reg_num, property_type, transaction_type, represented, town);
CREATE INDEX idx_tx_timeseries ON transactions(transaction_date, property_type, transaction_type);
`

// CreateDB writes a seeded store file and returns its path. The file carries
// the loader's schema, indexes, and metadata keys but no aggregate tables;
// run the precomputer on it when a test needs fast paths.
func CreateDB(t *testing.T, rows []Row) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cea-transactions.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(schema)
	require.NoError(t, err)

	Seed(t, db, rows)
	return path
}

// Seed inserts rows and refreshes the metadata counters.
func Seed(t *testing.T, db *sql.DB, rows []Row) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err)
	stmt, err := tx.Prepare(`INSERT INTO transactions
		(salesperson_name, salesperson_reg_num, transaction_date, property_type,
		 transaction_type, represented, town, district, general_location)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	require.NoError(t, err)
	for _, r := range rows {
		_, err = stmt.Exec(r.Name, r.RegNum, r.Date, r.PropertyType,
			r.TransactionType, r.Represented, r.Town, r.District, r.Location)
		require.NoError(t, err)
	}
	require.NoError(t, stmt.Close())

	for key, value := range map[string]string{
		"row_count":        strconv.Itoa(len(rows)),
		"column_count":     "9",
		"source_timestamp": "2026-01-15T00:00:00Z",
		"last_updated":     "2026-01-15T08:30:00Z",
	} {
		_, err = tx.Exec(`INSERT INTO metadata (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit())
}

// Open creates a seeded store file and opens it read-only.
func Open(t *testing.T, rows []Row) *store.Store {
	t.Helper()

	path := CreateDB(t, rows)
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// SampleRows returns a small fixture with agents A (two deals) and B (one),
// the shape used throughout the query and server tests.
func SampleRows() []Row {
	return []Row{
		{Name: "Alice Tan", RegNum: "R001A", Date: "JAN-2024", PropertyType: "HDB", TransactionType: "RESALE", Represented: "BUYER", Town: "PUNGGOL", District: "D19"},
		{Name: "Alice Tan", RegNum: "R001A", Date: "FEB-2024", PropertyType: "HDB", TransactionType: "RESALE", Represented: "SELLER", Town: "PUNGGOL", District: "D19"},
		{Name: "Ben Lim", RegNum: "R002B", Date: "JAN-2024", PropertyType: "CONDOMINIUM_APARTMENTS", TransactionType: "NEW SALE", Represented: "BUYER", Town: "BEDOK", District: "D16"},
	}
}

// Dump prints every transaction row, for debugging a failing fixture.
func Dump(t *testing.T, db *sql.DB) {
	t.Helper()

	rows, err := db.Query("SELECT salesperson_reg_num, transaction_date, property_type FROM transactions ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var reg, date, ptype string
		require.NoError(t, rows.Scan(&reg, &date, &ptype))
		t.Log(fmt.Sprintf("%s %s %s", reg, date, ptype))
	}
}
