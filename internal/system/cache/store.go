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

// Package cache provides the application data cache engine: time-bounded keyed
// stores with LRU eviction, tag and dependency based invalidation, best-effort
// persistence, and stale-while-revalidate fetching.
package cache

import (
	"container/list"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/ringboard/ringboard/internal/system/cache/persist"
	"github.com/ringboard/ringboard/internal/system/log"
)

// Config holds the construction parameters for a Store. One store is created
// per logical domain, each with its own size and TTL policy.
type Config struct {
	// Name identifies the store in logs and statistics.
	Name string
	// Disabled turns the store into a no-op that always misses.
	Disabled bool
	// MaxSize bounds the number of entries; the least recently accessed entry
	// is evicted when the bound is reached.
	MaxSize int
	// DefaultTTL applies to entries written without an explicit TTL.
	DefaultTTL time.Duration
	// CleanupInterval is the background sweep period; zero or negative
	// disables the sweep and the store relies on lazy expiry alone.
	CleanupInterval time.Duration
	// Clock supplies time and timers; nil selects the system clock.
	Clock Clock
	// Persistence, when set, receives write-through copies of entries written
	// with the Persist option and is read back once at construction.
	Persistence persist.Store
	// Namespace prefixes every persisted medium key so stores never collide.
	Namespace string
}

// entry is the internal representation of a cached value.
type entry[T any] struct {
	value          T
	writtenAt      time.Time
	ttl            time.Duration
	tags           []string
	accessCount    int64
	lastAccessedAt time.Time
	persisted      bool
	listElement    *list.Element
}

// Store is a generic keyed store of time-bounded values with LRU eviction.
// All operations serialize on an internal mutex; persistence I/O runs outside
// the lock and its failures are logged, never surfaced to callers.
type Store[T any] struct {
	enabled         bool
	name            string
	maxSize         int
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	clock           Clock
	persistence     persist.Store
	namespace       string

	mu          sync.Mutex
	entries     map[string]*entry[T]
	accessOrder *list.List
	tags        *tagIndex
	hitCount    int64
	missCount   int64
	evictCount  int64

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a store from the given configuration, rehydrates persisted
// entries when a persistence adapter is bound, and starts the background
// sweep. Close must be called on shutdown to stop the sweeper.
func New[T any](cfg Config) *Store[T] {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "CacheStore"),
		log.String(log.LoggerKeyCacheName, cfg.Name))

	if cfg.Disabled {
		logger.Debug("Cache store is disabled, returning no-op store")
		// Fetchers and orchestrators read the clock even when every cache
		// operation is a no-op, so a disabled store still carries one.
		clock := cfg.Clock
		if clock == nil {
			clock = NewSystemClock()
		}
		return &Store[T]{
			name:  cfg.Name,
			clock: clock,
		}
	}

	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = defaultCacheSize
	}
	defaultTTL := cfg.DefaultTTL
	if defaultTTL <= 0 {
		defaultTTL = defaultCacheTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = NewSystemClock()
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "cache:" + cfg.Name + ":"
	}

	logger.Debug("Initializing cache store", log.Int("maxSize", maxSize),
		log.Duration("defaultTTL", defaultTTL), log.Duration("cleanupInterval", cfg.CleanupInterval),
		log.Bool("persistent", cfg.Persistence != nil))

	s := &Store[T]{
		enabled:         true,
		name:            cfg.Name,
		maxSize:         maxSize,
		defaultTTL:      defaultTTL,
		cleanupInterval: cfg.CleanupInterval,
		clock:           clock,
		persistence:     cfg.Persistence,
		namespace:       namespace,
		entries:         make(map[string]*entry[T]),
		accessOrder:     list.New(),
		tags:            newTagIndex(),
		stop:            make(chan struct{}),
	}

	if s.persistence != nil {
		s.rehydrate(logger)
	}
	s.startSweeper(logger)

	return s
}

// Name returns the name of the store.
func (s *Store[T]) Name() string {
	return s.name
}

// IsEnabled returns whether the store is enabled.
func (s *Store[T]) IsEnabled() bool {
	return s.enabled
}

// Get returns the value for the key if present and fresh. An expired entry is
// deleted on the way out and reported as a miss. Hits update the entry's
// access metadata and LRU position.
func (s *Store[T]) Get(key string) (T, bool) {
	var zero T
	if !s.enabled {
		return zero, false
	}

	now := s.clock.Now()

	s.mu.Lock()
	e, exists := s.entries[key]
	if !exists {
		s.missCount++
		s.mu.Unlock()
		return zero, false
	}

	if !s.freshLocked(e, now) {
		persisted := e.persisted
		s.removeEntryLocked(key, e)
		s.missCount++
		s.mu.Unlock()
		if persisted {
			s.removePersisted(key)
		}
		return zero, false
	}

	e.lastAccessedAt = now
	e.accessCount++
	s.accessOrder.MoveToFront(e.listElement)
	s.hitCount++
	value := e.value
	s.mu.Unlock()

	return value, true
}

// Set writes a value under the key. When the store is at capacity and the key
// is new, the least recently accessed entry is evicted first. Entries written
// with the Persist option are copied through to the persistence adapter.
func (s *Store[T]) Set(key string, value T, opts SetOptions) {
	if !s.enabled {
		return
	}

	logger := s.logger()

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	persisting := opts.Persist && s.persistence != nil
	var payload []byte
	if persisting {
		var err error
		payload, err = json.Marshal(value)
		if err != nil {
			logger.Warn("Failed to serialize entry for persistence",
				log.String(log.LoggerKeyCacheKey, key), log.Error(err))
			persisting = false
		}
	}

	now := s.clock.Now()

	s.mu.Lock()
	if e, exists := s.entries[key]; exists {
		s.tags.remove(key, e.tags)
		e.value = value
		e.writtenAt = now
		e.ttl = ttl
		e.tags = opts.Tags
		e.lastAccessedAt = now
		e.accessCount++
		e.persisted = e.persisted || persisting
		s.tags.add(key, opts.Tags)
		s.accessOrder.MoveToFront(e.listElement)
	} else {
		if len(s.entries) >= s.maxSize {
			s.evictOldestLocked(logger)
		}
		e := &entry[T]{
			value:          value,
			writtenAt:      now,
			ttl:            ttl,
			tags:           opts.Tags,
			accessCount:    1,
			lastAccessedAt: now,
			persisted:      persisting,
		}
		e.listElement = s.accessOrder.PushFront(key)
		s.entries[key] = e
		s.tags.add(key, opts.Tags)
	}
	s.mu.Unlock()

	if persisting {
		record := persist.Record{
			Key:       key,
			Payload:   payload,
			WrittenAt: now,
			TTL:       ttl,
			Tags:      opts.Tags,
		}
		if err := s.persistence.Persist(s.namespace+key, record); err != nil {
			logger.Warn("Failed to persist cache entry",
				log.String(log.LoggerKeyCacheKey, key), log.Error(err))
		}
	}

	if logger.IsDebugEnabled() {
		logger.Debug("Cache entry set", log.String(log.LoggerKeyCacheKey, key))
	}
}

// Has reports whether the key is present and fresh, lazily expiring it when
// its TTL has elapsed. It does not touch hit/miss counters or LRU order.
func (s *Store[T]) Has(key string) bool {
	if !s.enabled {
		return false
	}

	now := s.clock.Now()

	s.mu.Lock()
	e, exists := s.entries[key]
	if !exists {
		s.mu.Unlock()
		return false
	}
	if !s.freshLocked(e, now) {
		persisted := e.persisted
		s.removeEntryLocked(key, e)
		s.mu.Unlock()
		if persisted {
			s.removePersisted(key)
		}
		return false
	}
	s.mu.Unlock()
	return true
}

// Peek returns a snapshot of the entry for the key regardless of freshness,
// without updating access metadata or expiring anything. It is the accessor
// used by revalidation policies that serve stale values.
func (s *Store[T]) Peek(key string) (Entry[T], bool) {
	if !s.enabled {
		return Entry[T]{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[key]
	if !exists {
		return Entry[T]{}, false
	}
	return s.snapshotLocked(key, e), true
}

// Delete removes the entry, its tag index references, and its persisted copy.
func (s *Store[T]) Delete(key string) {
	if !s.enabled {
		return
	}

	s.mu.Lock()
	e, exists := s.entries[key]
	var persisted bool
	if exists {
		persisted = e.persisted
		s.removeEntryLocked(key, e)
	}
	s.mu.Unlock()

	if persisted {
		s.removePersisted(key)
	}
}

// ClearByTags removes every entry whose tag set intersects the given tags and
// returns the number of entries removed.
func (s *Store[T]) ClearByTags(tags ...string) int {
	if !s.enabled {
		return 0
	}

	s.mu.Lock()
	keys := s.tags.keysFor(tags)
	var persistedKeys []string
	for _, key := range keys {
		if e, exists := s.entries[key]; exists {
			if e.persisted {
				persistedKeys = append(persistedKeys, key)
			}
			s.removeEntryLocked(key, e)
		}
	}
	s.mu.Unlock()

	for _, key := range persistedKeys {
		s.removePersisted(key)
	}

	if len(keys) > 0 {
		s.logger().Debug("Cleared cache entries by tags", log.Int("count", len(keys)),
			log.Any("tags", tags))
	}
	return len(keys)
}

// Clear removes all entries and all persisted copies under the store's
// namespace, and resets the statistics counters.
func (s *Store[T]) Clear() {
	if !s.enabled {
		return
	}

	s.mu.Lock()
	s.entries = make(map[string]*entry[T])
	s.accessOrder.Init()
	s.tags.clear()
	s.hitCount = 0
	s.missCount = 0
	s.evictCount = 0
	s.mu.Unlock()

	if s.persistence != nil {
		if err := s.persistence.ClearPrefix(s.namespace); err != nil {
			s.logger().Warn("Failed to clear persisted cache namespace", log.Error(err))
		}
	}

	s.logger().Debug("Cleared all entries in the cache store")
}

// Keys returns the keys of all resident entries, fresh or stale.
func (s *Store[T]) Keys() []string {
	if !s.enabled {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return keys
}

// KeysByTags returns the keys of all resident entries carrying any of the
// given tags.
func (s *Store[T]) KeysByTags(tags ...string) []string {
	if !s.enabled {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tags.keysFor(tags)
}

// Stats returns the store statistics, including a JSON-size estimate of the
// resident payloads.
func (s *Store[T]) Stats() Stat {
	if !s.enabled {
		return Stat{Enabled: false}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	totalOps := s.hitCount + s.missCount
	var hitRate float64
	if totalOps > 0 {
		hitRate = float64(s.hitCount) / float64(totalOps)
	}

	var estimatedBytes int64
	for key, e := range s.entries {
		estimatedBytes += int64(len(key))
		for _, tag := range e.tags {
			estimatedBytes += int64(len(tag))
		}
		if data, err := json.Marshal(e.value); err == nil {
			estimatedBytes += int64(len(data))
		}
	}

	return Stat{
		Enabled:        true,
		Size:           len(s.entries),
		MaxSize:        s.maxSize,
		HitCount:       s.hitCount,
		MissCount:      s.missCount,
		HitRate:        hitRate,
		EvictCount:     s.evictCount,
		EstimatedBytes: estimatedBytes,
	}
}

// CleanupExpired removes all expired entries together with their tag index
// and persisted references. Lazy expiry on read already enforces freshness;
// the sweep bounds memory growth from keys nobody reads again.
func (s *Store[T]) CleanupExpired() {
	if !s.enabled {
		return
	}

	now := s.clock.Now()

	s.mu.Lock()
	var persistedKeys []string
	cleaned := 0
	for key, e := range s.entries {
		if !s.freshLocked(e, now) {
			if e.persisted {
				persistedKeys = append(persistedKeys, key)
			}
			s.removeEntryLocked(key, e)
			cleaned++
		}
	}
	s.mu.Unlock()

	for _, key := range persistedKeys {
		s.removePersisted(key)
	}

	if cleaned > 0 {
		s.logger().Debug("Expired cache entries cleaned", log.Int("count", cleaned))
	}
}

// Close stops the background sweeper. The store remains usable afterwards but
// relies on lazy expiry alone.
func (s *Store[T]) Close() {
	if !s.enabled {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

func (s *Store[T]) logger() *log.Logger {
	return log.GetLogger().With(log.String(log.LoggerKeyComponentName, "CacheStore"),
		log.String(log.LoggerKeyCacheName, s.name))
}

func (s *Store[T]) freshLocked(e *entry[T], now time.Time) bool {
	return now.Sub(e.writtenAt) <= e.ttl
}

func (s *Store[T]) snapshotLocked(key string, e *entry[T]) Entry[T] {
	tags := make([]string, len(e.tags))
	copy(tags, e.tags)
	return Entry[T]{
		Key:            key,
		Value:          e.value,
		WrittenAt:      e.writtenAt,
		TTL:            e.ttl,
		Tags:           tags,
		AccessCount:    e.accessCount,
		LastAccessedAt: e.lastAccessedAt,
	}
}

// removeEntryLocked removes an entry from the entry table, the access order
// list, and the tag index. Persisted copies are the caller's responsibility
// since adapter I/O must not run under the lock.
func (s *Store[T]) removeEntryLocked(key string, e *entry[T]) {
	delete(s.entries, key)
	s.accessOrder.Remove(e.listElement)
	s.tags.remove(key, e.tags)
}

// evictOldestLocked removes the least recently accessed entry. The persisted
// copy, if any, is left in place: capacity eviction is a memory concern and
// the record can still be rehydrated while fresh.
func (s *Store[T]) evictOldestLocked(logger *log.Logger) {
	oldest := s.accessOrder.Back()
	if oldest == nil {
		return
	}
	key := oldest.Value.(string)
	if e, exists := s.entries[key]; exists {
		s.removeEntryLocked(key, e)
		s.evictCount++
		logger.Debug("Cache entry evicted", log.String(log.LoggerKeyCacheKey, key))
	}
}

func (s *Store[T]) removePersisted(key string) {
	if s.persistence == nil {
		return
	}
	if err := s.persistence.Remove(s.namespace + key); err != nil {
		s.logger().Warn("Failed to remove persisted cache entry",
			log.String(log.LoggerKeyCacheKey, key), log.Error(err))
	}
}

// rehydrate loads persisted records under the store's namespace, inserting
// only those still fresh. Stale records are deleted from the medium instead
// of loaded so rehydration never resurrects expired data.
func (s *Store[T]) rehydrate(logger *log.Logger) {
	records, err := s.persistence.List(s.namespace)
	if err != nil {
		logger.Warn("Failed to rehydrate cache store", log.Error(err))
		return
	}

	now := s.clock.Now()
	candidates := make([]persist.Record, 0, len(records))
	for _, record := range records {
		if now.Sub(record.WrittenAt) > record.TTL {
			if err := s.persistence.Remove(s.namespace + record.Key); err != nil {
				logger.Warn("Failed to remove stale persisted entry",
					log.String(log.LoggerKeyCacheKey, record.Key), log.Error(err))
			}
			continue
		}
		candidates = append(candidates, record)
	}

	// Newest first, so a store smaller than the medium keeps the most recent
	// data rather than whatever enumeration order the medium returned.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].WrittenAt.After(candidates[j].WrittenAt)
	})

	loaded := 0
	for _, record := range candidates {
		if len(s.entries) >= s.maxSize {
			break
		}

		var value T
		if err := json.Unmarshal(record.Payload, &value); err != nil {
			logger.Warn("Failed to deserialize persisted entry, dropping it",
				log.String(log.LoggerKeyCacheKey, record.Key), log.Error(err))
			if removeErr := s.persistence.Remove(s.namespace + record.Key); removeErr != nil {
				logger.Warn("Failed to remove corrupt persisted entry",
					log.String(log.LoggerKeyCacheKey, record.Key), log.Error(removeErr))
			}
			continue
		}

		e := &entry[T]{
			value:          value,
			writtenAt:      record.WrittenAt,
			ttl:            record.TTL,
			tags:           record.Tags,
			lastAccessedAt: now,
			persisted:      true,
		}
		e.listElement = s.accessOrder.PushFront(record.Key)
		s.entries[record.Key] = e
		s.tags.add(record.Key, record.Tags)
		loaded++
	}

	if loaded > 0 {
		logger.Debug("Rehydrated cache store", log.Int("count", loaded))
	}
}

// startSweeper starts the background cleanup routine.
func (s *Store[T]) startSweeper(logger *log.Logger) {
	if s.cleanupInterval <= 0 {
		return
	}

	// The ticker is created before the goroutine starts so the sweep schedule
	// begins at construction, not at goroutine scheduling.
	ticker := s.clock.NewTicker(s.cleanupInterval)
	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C():
				s.CleanupExpired()
			case <-s.stop:
				return
			}
		}
	}()

	logger.Debug("Cache cleanup routine started", log.Duration("interval", s.cleanupInterval))
}
