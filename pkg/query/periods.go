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
package query

import "strings"

// Transaction dates are stored as raw "MMM-YYYY" text and normalized on
// demand; the store never carries parsed dates. Normalized keys sort
// chronologically under plain string comparison.

var monthNumbers = map[string]string{
	"JAN": "01", "FEB": "02", "MAR": "03", "APR": "04",
	"MAY": "05", "JUN": "06", "JUL": "07", "AUG": "08",
	"SEP": "09", "OCT": "10", "NOV": "11", "DEC": "12",
}

// MonthKey converts "OCT-2017" to "2017-10". The second return is false for
// the sentinel, empty strings, and anything else that is not MMM-YYYY.
func MonthKey(date string) (string, bool) {
	if len(date) != 8 || date[3] != '-' {
		return "", false
	}
	num, ok := monthNumbers[strings.ToUpper(date[:3])]
	if !ok {
		return "", false
	}
	year := date[4:]
	for _, c := range year {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	return year + "-" + num, true
}

// YearKey converts "OCT-2017" to "2017" under the same validity rules.
func YearKey(date string) (string, bool) {
	key, ok := MonthKey(date)
	if !ok {
		return "", false
	}
	return key[:4], true
}
