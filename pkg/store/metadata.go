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
package store

import (
	"context"
	"fmt"
)

// Metadata holds the load-time facts recorded by the loader in the metadata
// key/value table. Values are returned verbatim in API responses.
type Metadata struct {
	RowCount        string `json:"rowCount"`
	ColumnCount     string `json:"columnCount"`
	SourceTimestamp string `json:"sourceTimestamp"`
	LastUpdated     string `json:"lastUpdated"`
	PrecomputedAt   string `json:"precomputedAt,omitempty"`
}

// Metadata reads the metadata table. Missing keys are left empty rather than
// erroring: older store files predate some keys.
func (s *Store) Metadata(ctx context.Context) (Metadata, error) {
	rows, err := s.Query(ctx, "SELECT key, value FROM metadata")
	if err != nil {
		return Metadata{}, err
	}
	defer rows.Close()

	var md Metadata
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Metadata{}, fmt.Errorf("store: scan metadata: %w", err)
		}
		switch key {
		case "row_count":
			md.RowCount = value
		case "column_count":
			md.ColumnCount = value
		case "source_timestamp":
			md.SourceTimestamp = value
		case "last_updated":
			md.LastUpdated = value
		case "precomputed_at":
			md.PrecomputedAt = value
		}
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("store: iterate metadata: %w", err)
	}
	return md, nil
}
