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
	"context"
	"fmt"
	"time"

	"github.com/ringboard/ringboard/internal/system/cache"
	"github.com/ringboard/ringboard/internal/system/log"
)

// Backend is the remote data source contract. Every remote query the
// dashboard caches goes through this single fetch shape.
type Backend interface {
	Query(ctx context.Context, domain, operation string, params map[string]string) (Payload, error)
}

// QueryOptions carries the caching policy for a cached read.
type QueryOptions struct {
	TTL          time.Duration
	Tags         []string
	Persist      bool
	ForceRefresh bool
}

// Service is the cache-backed read path for dashboard view-models, plus the
// invalidation entry points collaborators call after write operations.
type Service struct {
	registry *Registry
	backend  Backend
	logger   *log.Logger
}

// NewService creates a dashboard data service over the given registry and
// backend, and registers the standing cross-entity dependencies: client data
// feeds the financial summary and the client distribution, so a client write
// cascades into both.
func NewService(registry *Registry, backend Backend) *Service {
	s := &Service{
		registry: registry,
		backend:  backend,
		logger: log.GetLogger().With(
			log.String(log.LoggerKeyComponentName, "DashboardService")),
	}

	clientsKey := Key(DomainDashboard, "clients.list", nil)
	invalidator := registry.Invalidator(DomainDashboard)
	invalidator.AddDependency(Key(DomainDashboard, "financial.summary", nil), clientsKey)
	invalidator.AddDependency(Key(DomainDashboard, "clients.distribution", nil), clientsKey)

	return s
}

// Query resolves a cached read: fresh data from memory when possible, stale
// data with a background refresh otherwise, falling back to the stale copy if
// the backend is down.
func (s *Service) Query(ctx context.Context, domain, operation string,
	params map[string]string, opts QueryOptions) (Payload, error) {
	fetcher := s.registry.Fetcher(domain)
	if fetcher == nil {
		return nil, fmt.Errorf("unknown cache domain: %s", domain)
	}

	key := Key(domain, operation, params)
	return fetcher.Fetch(ctx, key, func(ctx context.Context) (Payload, error) {
		return s.backend.Query(ctx, domain, operation, params)
	}, cache.FetchOptions{
		TTL:                  opts.TTL,
		Tags:                 opts.Tags,
		Persist:              opts.Persist,
		ForceRefresh:         opts.ForceRefresh,
		StaleWhileRevalidate: true,
	})
}

// InvalidateAll clears every domain store. Called after operations that
// change data across domains, e.g. a system settings import.
func (s *Service) InvalidateAll() {
	for _, domain := range s.registry.Domains() {
		s.registry.Invalidator(domain).InvalidateAll()
	}
	s.logger.Debug("Invalidated all cache domains")
}

// InvalidateDomain clears a single domain store and runs the subscriptions of
// its resident keys.
func (s *Service) InvalidateDomain(domain string) error {
	invalidator := s.registry.Invalidator(domain)
	if invalidator == nil {
		return fmt.Errorf("unknown cache domain: %s", domain)
	}
	invalidator.InvalidateAll()
	return nil
}

// ClearByTags removes every entry carrying any of the given tags across all
// domains and returns the total number of keys invalidated. Collaborators
// call this after any create, update, or delete that could make cached reads
// stale; a client update, for example, clears the "clients" and "financial"
// tags and cascades through registered dependencies.
func (s *Service) ClearByTags(tags ...string) int {
	total := 0
	for _, domain := range s.registry.Domains() {
		total += s.registry.Invalidator(domain).InvalidateByTags(tags...)
	}
	return total
}

// OnInvalidate subscribes to invalidations of one key within a domain.
func (s *Service) OnInvalidate(domain, key string, callback cache.InvalidateCallback) (func(), error) {
	invalidator := s.registry.Invalidator(domain)
	if invalidator == nil {
		return nil, fmt.Errorf("unknown cache domain: %s", domain)
	}
	return invalidator.OnInvalidate(key, callback), nil
}

// WarmUp prefetches the queries behind the initial dashboard load, most
// important first. Keys already fresh are skipped.
func (s *Service) WarmUp(ctx context.Context) int {
	configs := []cache.PrefetchConfig[Payload]{
		s.prefetch("clients.list", nil, cache.PriorityHigh, TagClients),
		s.prefetch("calls.recent", map[string]string{"limit": "50"}, cache.PriorityHigh, TagSystem),
		s.prefetch("financial.summary", nil, cache.PriorityMedium, TagFinancial),
		s.prefetch("clients.distribution", nil, cache.PriorityMedium, TagClients),
		s.prefetch("users.list", nil, cache.PriorityLow, TagUsers),
	}
	return s.registry.Orchestrator(DomainDashboard).Prefetch(ctx, configs)
}

func (s *Service) prefetch(operation string, params map[string]string,
	priority cache.Priority, tags ...string) cache.PrefetchConfig[Payload] {
	return cache.PrefetchConfig[Payload]{
		Key:      Key(DomainDashboard, operation, params),
		Priority: priority,
		Tags:     tags,
		Fn: func(ctx context.Context) (Payload, error) {
			return s.backend.Query(ctx, DomainDashboard, operation, params)
		},
	}
}
