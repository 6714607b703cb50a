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
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ringboard/ringboard/internal/system/log"
)

// Priority orders prefetch configurations during warm-up.
type Priority int

const (
	// PriorityHigh prefetches run first.
	PriorityHigh Priority = iota
	// PriorityMedium prefetches run after high.
	PriorityMedium
	// PriorityLow prefetches run last.
	PriorityLow
)

// Query is a single cache-aware fetch inside a batch.
type Query[T any] struct {
	Key     string
	Fn      FetchFunc[T]
	Options FetchOptions
}

// Result carries the per-key outcome of a batch run.
type Result[T any] struct {
	Key  string
	Data T
	Err  error
}

// BatchOptions controls batch execution.
type BatchOptions struct {
	// MaxConcurrency is the number of fetches run concurrently per batch.
	MaxConcurrency int
	// FailFast aborts the whole run on the first error instead of capturing
	// errors per key.
	FailFast bool
}

// PrefetchConfig describes one cache warm-up target.
type PrefetchConfig[T any] struct {
	Key      string
	Fn       FetchFunc[T]
	Priority Priority
	// Condition, when set, must return true for the config to be considered.
	Condition func() bool
	TTL       time.Duration
	Tags      []string
	Persist   bool
}

// Orchestrator groups and prioritizes multiple cache-aware fetches for
// batching and warm-up with bounded concurrency.
type Orchestrator[T any] struct {
	fetcher *Fetcher[T]
	clock   Clock
	delay   time.Duration
}

// NewOrchestrator creates an orchestrator over the given fetcher. delay is
// the pause between sequential prefetches; zero or negative selects the
// default.
func NewOrchestrator[T any](fetcher *Fetcher[T], delay time.Duration) *Orchestrator[T] {
	if delay <= 0 {
		delay = defaultPrefetchDelay
	}
	return &Orchestrator[T]{
		fetcher: fetcher,
		clock:   fetcher.store.clock,
		delay:   delay,
	}
}

// BatchQueries runs the queries in batches of MaxConcurrency, each batch's
// fetches concurrently, and returns per-key results in input order. With
// FailFast the first error aborts remaining batches and is returned alongside
// the results gathered so far; otherwise errors are captured per key and the
// run continues.
func (o *Orchestrator[T]) BatchQueries(ctx context.Context, queries []Query[T], opts BatchOptions) ([]Result[T], error) {
	maxConcurrency := opts.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}

	results := make([]Result[T], len(queries))
	for start := 0; start < len(queries); start += maxConcurrency {
		end := start + maxConcurrency
		if end > len(queries) {
			end = len(queries)
		}

		g, gctx := errgroup.WithContext(ctx)
		for idx := start; idx < end; idx++ {
			idx := idx
			query := queries[idx]
			g.Go(func() error {
				data, err := o.fetcher.Fetch(gctx, query.Key, query.Fn, query.Options)
				results[idx] = Result[T]{Key: query.Key, Data: data, Err: err}
				if err != nil && opts.FailFast {
					return err
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return results, err
		}
	}
	return results, nil
}

// Prefetch warms the cache from the given configurations: it filters by
// condition, sorts by priority, and executes sequentially with a short
// inter-request delay so warming many caches at once does not saturate the
// backend. Keys already fresh in the cache are skipped. It returns the number
// of keys fetched.
func (o *Orchestrator[T]) Prefetch(ctx context.Context, configs []PrefetchConfig[T]) int {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "Orchestrator"),
		log.String(log.LoggerKeyCacheName, o.fetcher.store.Name()))

	eligible := make([]PrefetchConfig[T], 0, len(configs))
	for _, config := range configs {
		if config.Condition != nil && !config.Condition() {
			continue
		}
		eligible = append(eligible, config)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Priority < eligible[j].Priority
	})

	fetched := 0
	for idx, config := range eligible {
		if o.fetcher.store.Has(config.Key) {
			continue
		}

		opts := FetchOptions{
			TTL:     config.TTL,
			Tags:    config.Tags,
			Persist: config.Persist,
		}
		if _, err := o.fetcher.Fetch(ctx, config.Key, config.Fn, opts); err != nil {
			// Warm-up is best effort; a failed prefetch is just a later miss.
			logger.Warn("Prefetch failed", log.String(log.LoggerKeyCacheKey, config.Key), log.Error(err))
		} else {
			fetched++
		}

		if idx < len(eligible)-1 {
			select {
			case <-ctx.Done():
				return fetched
			case <-o.clock.After(o.delay):
			}
		}
	}
	return fetched
}
