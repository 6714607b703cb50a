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

package dashboard

import (
	"encoding/json"
	"time"

	"github.com/ringboard/ringboard/internal/system/cache"
	"github.com/ringboard/ringboard/internal/system/cache/persist"
	"github.com/ringboard/ringboard/internal/system/config"
)

// Payload is the cached representation of remote query results. The remote
// data source returns JSON documents; caching them opaquely keeps one store
// per domain rather than one per result type.
type Payload = json.RawMessage

// domainCaches bundles the cache engine components built for one domain.
type domainCaches struct {
	store        *cache.Store[Payload]
	fetcher      *cache.Fetcher[Payload]
	invalidator  *cache.Invalidator[Payload]
	orchestrator *cache.Orchestrator[Payload]
}

// Registry holds one explicitly constructed cache store per logical domain.
// It replaces ambient module-wide cache singletons: a registry is built once
// at startup and handed to the consumers that need it.
type Registry struct {
	domains map[string]*domainCaches
}

// NewRegistry builds the per-domain stores from configuration. adapter may be
// nil, in which case persistence is disabled for every store regardless of
// per-store settings.
func NewRegistry(cfg config.CacheConfig, adapter persist.Store, clock cache.Clock) *Registry {
	r := &Registry{
		domains: make(map[string]*domainCaches),
	}

	for _, domain := range []string{DomainDashboard, DomainAnalytics, DomainAdmin} {
		property := cfg.GetCacheProperty(domain)

		size := property.Size
		if size <= 0 {
			size = cfg.Size
		}
		ttl := property.TTL
		if ttl <= 0 {
			ttl = cfg.TTL
		}
		cleanupInterval := property.CleanupInterval
		if cleanupInterval <= 0 {
			cleanupInterval = cfg.CleanupInterval
		}

		var persistence persist.Store
		if property.Persist && adapter != nil {
			persistence = adapter
		}
		namespace := property.Namespace
		if namespace == "" {
			namespace = "ringboard:" + domain + ":"
		}

		store := cache.New[Payload](cache.Config{
			Name:            domain,
			Disabled:        cfg.Disabled || property.Disabled,
			MaxSize:         size,
			DefaultTTL:      time.Duration(ttl) * time.Second,
			CleanupInterval: time.Duration(cleanupInterval) * time.Second,
			Clock:           clock,
			Persistence:     persistence,
			Namespace:       namespace,
		})
		fetcher := cache.NewFetcher(store)

		r.domains[domain] = &domainCaches{
			store:        store,
			fetcher:      fetcher,
			invalidator:  cache.NewInvalidator(store),
			orchestrator: cache.NewOrchestrator(fetcher, time.Duration(cfg.PrefetchDelay)*time.Millisecond),
		}
	}

	return r
}

// Store returns the cache store for the domain, or nil for an unknown domain.
func (r *Registry) Store(domain string) *cache.Store[Payload] {
	if d, exists := r.domains[domain]; exists {
		return d.store
	}
	return nil
}

// Fetcher returns the fetcher for the domain, or nil for an unknown domain.
func (r *Registry) Fetcher(domain string) *cache.Fetcher[Payload] {
	if d, exists := r.domains[domain]; exists {
		return d.fetcher
	}
	return nil
}

// Invalidator returns the invalidator for the domain, or nil for an unknown
// domain.
func (r *Registry) Invalidator(domain string) *cache.Invalidator[Payload] {
	if d, exists := r.domains[domain]; exists {
		return d.invalidator
	}
	return nil
}

// Orchestrator returns the batch orchestrator for the domain, or nil for an
// unknown domain.
func (r *Registry) Orchestrator(domain string) *cache.Orchestrator[Payload] {
	if d, exists := r.domains[domain]; exists {
		return d.orchestrator
	}
	return nil
}

// Domains returns the names of all registered domains.
func (r *Registry) Domains() []string {
	domains := make([]string, 0, len(r.domains))
	for domain := range r.domains {
		domains = append(domains, domain)
	}
	return domains
}

// Stats returns the statistics of every domain store.
func (r *Registry) Stats() map[string]cache.Stat {
	stats := make(map[string]cache.Stat, len(r.domains))
	for domain, d := range r.domains {
		stats[domain] = d.store.Stats()
	}
	return stats
}

// Close waits for in-flight background revalidations and stops every store's
// background sweeper.
func (r *Registry) Close() {
	for _, d := range r.domains {
		d.fetcher.WaitForRevalidations()
		d.store.Close()
	}
}
