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
package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sgproplabs/ceaquery/pkg/query"
)

func TestMonthKey(t *testing.T) {
	tests := []struct {
		name string
		date string
		want string
		ok   bool
	}{
		{"october", "OCT-2017", "2017-10", true},
		{"january", "JAN-2024", "2024-01", true},
		{"december", "DEC-1999", "1999-12", true},
		{"lowercase month", "oct-2017", "2017-10", true},
		{"sentinel", "-", "", false},
		{"empty", "", "", false},
		{"unknown month", "XXX-2017", "", false},
		{"missing dash", "OCT 2017", "", false},
		{"short year", "OCT-17", "", false},
		{"garbage year", "OCT-20X7", "", false},
		{"iso date", "2017-10", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := query.MonthKey(tt.date)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestYearKey(t *testing.T) {
	got, ok := query.YearKey("MAR-2021")
	assert.True(t, ok)
	assert.Equal(t, "2021", got)

	_, ok = query.YearKey("-")
	assert.False(t, ok)
}
