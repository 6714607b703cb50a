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

// Package persist provides best-effort durable storage for cache entries.
//
// The durable medium is a cross-restart convenience, not a source of truth:
// callers treat every failure here as a cache miss, and rehydration of stale
// records is handled by the cache layer on top.
package persist

import (
	"encoding/json"
	"time"
)

// Record is the serialized form of a cache entry written to the durable medium.
// Key holds the raw cache key; the medium key under which the record is stored
// carries the owning store's namespace prefix.
type Record struct {
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	WrittenAt time.Time       `json:"writtenAt"`
	TTL       time.Duration   `json:"ttl"`
	Tags      []string        `json:"tags,omitempty"`
}

// Store defines the contract for cache persistence backends.
type Store interface {
	// Persist writes a record under the namespaced medium key.
	Persist(mediumKey string, record Record) error
	// Load reads a single record; the second return reports presence.
	Load(mediumKey string) (Record, bool, error)
	// List enumerates all records stored under the given namespace prefix.
	List(prefix string) ([]Record, error)
	// Remove deletes a single record.
	Remove(mediumKey string) error
	// ClearPrefix deletes every record under the given namespace prefix.
	ClearPrefix(prefix string) error
	// Close releases any resources held by the backend.
	Close() error
}
