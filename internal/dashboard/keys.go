/*
 * Copyright (c) 2026, Ringboard, Inc. (https://www.ringboard.io).
 *
 * Ringboard, Inc. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package dashboard wires the cache engine to the dashboard's data domains:
// per-domain stores, canonical cache keys, the tag vocabulary, and the
// invalidation entry points called after write operations.
package dashboard

import (
	"sort"
	"strings"
)

// Cache tag vocabulary. Tags carry no semantics beyond grouping entries for
// bulk invalidation.
const (
	TagFinancial = "financial"
	TagClients   = "clients"
	TagUsers     = "users"
	TagSystem    = "system"
	TagMetrics   = "metrics"
)

// Logical cache domains, one store each.
const (
	DomainDashboard = "dashboard"
	DomainAnalytics = "analytics"
	DomainAdmin     = "admin"
)

// Key derives the canonical cache key for an operation. Parameters are
// serialized in sorted order so the same query always maps to the same key;
// distinguishing different logical queries is the caller's responsibility.
func Key(domain, operation string, params map[string]string) string {
	var b strings.Builder
	b.WriteString(domain)
	b.WriteByte(':')
	b.WriteString(operation)

	if len(params) == 0 {
		return b.String()
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteByte(':')
	for idx, name := range names {
		if idx > 0 {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(params[name])
	}
	return b.String()
}
