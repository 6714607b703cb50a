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

import "time"

const (
	// defaultCacheSize is the maximum number of entries when none is configured.
	defaultCacheSize = 1000
	// defaultCacheTTL is the entry TTL when none is configured.
	defaultCacheTTL = 5 * time.Minute
	// defaultMaxConcurrency bounds batch execution when none is configured.
	defaultMaxConcurrency = 5
	// defaultPrefetchDelay is the pause between sequential warm-up fetches.
	defaultPrefetchDelay = 100 * time.Millisecond
)
