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

package cache

import (
	"time"
)

// Entry is a point-in-time snapshot of a cache entry and its metadata.
type Entry[T any] struct {
	Key            string
	Value          T
	WrittenAt      time.Time
	TTL            time.Duration
	Tags           []string
	AccessCount    int64
	LastAccessedAt time.Time
}

// Fresh reports whether the entry is within its TTL at the given time.
func (e Entry[T]) Fresh(now time.Time) bool {
	return now.Sub(e.WrittenAt) <= e.TTL
}

// SetOptions carries the per-write options for Store.Set.
type SetOptions struct {
	// TTL overrides the store's default TTL when positive.
	TTL time.Duration
	// Tags labels the entry for bulk invalidation.
	Tags []string
	// Persist writes the entry through to the store's persistence adapter.
	Persist bool
}

// Stat represents cache store statistics.
type Stat struct {
	Enabled        bool
	Size           int
	MaxSize        int
	HitCount       int64
	MissCount      int64
	HitRate        float64
	EvictCount     int64
	EstimatedBytes int64
}
