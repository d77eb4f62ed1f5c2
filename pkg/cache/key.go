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
package cache

import "net/url"

// Key canonicalizes a request into a cache key: METHOD:path with query
// parameters sorted by name, so semantically identical requests with
// shuffled parameters share an entry. url.Values.Encode sorts by key.
func Key(method, path string, query url.Values) string {
	if len(query) == 0 {
		return method + ":" + path
	}
	return method + ":" + path + "?" + query.Encode()
}
